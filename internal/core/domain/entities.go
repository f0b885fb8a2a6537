package domain

// TrackedUser is the single live user of a renderer session.
type TrackedUser struct {
	CurrentPosition *Position `json:"current_position,omitempty"`
	HasCenteredOnce bool      `json:"has_centered_once"`
	LastProvince    string    `json:"last_province,omitempty"`
}

// Site is a fixed destination supplied by the host.
type Site struct {
	ID        string  `json:"id" validate:"required"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Position returns the site's location.
func (s Site) Position() Position {
	return Position{Lat: s.Latitude, Lng: s.Longitude}
}

// SiteRoute is the rendered driving route from the user to one site.
type SiteRoute struct {
	Site            Site       `json:"site"`
	DistanceMeters  float64    `json:"distance_meters"`
	DurationSeconds float64    `json:"duration_seconds"`
	Path            []Position `json:"path,omitempty"`
	MarkerID        string     `json:"marker_id"`
	PolylineID      string     `json:"polyline_id,omitempty"`
	Label           string     `json:"label"`
	Resolved        bool       `json:"resolved"`
}

// SearchResult is one ranked place returned to the host.
type SearchResult struct {
	PlaceName      string   `json:"placeName"`
	CityOrProvince string   `json:"cityOrProvince"`
	FullAddress    string   `json:"fullAddress"`
	Location       Position `json:"location"`
	PlaceTypeTag   string   `json:"placeTypeTag"`
}

// PulseState is the breathing circle anchored to the user marker.
type PulseState struct {
	RadiusMeters float64  `json:"radius_meters"`
	Opacity      float64  `json:"opacity"`
	AnchoredAt   Position `json:"anchored_at"`
}

// Address component types consumed from the geocoding boundary.
const (
	ComponentCountry       = "country"
	ComponentLocality      = "locality"
	ComponentAdminLevel1   = "administrative_area_level_1"
	ComponentAdminLevel2   = "administrative_area_level_2"
	ComponentRoute         = "route"
	ComponentStreetAddress = "street_address"
)

// AddressComponent is a typed part of a geocoded address.
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// HasType reports whether the component is tagged with t.
func (c AddressComponent) HasType(t string) bool {
	for _, ct := range c.Types {
		if ct == t {
			return true
		}
	}
	return false
}

// PlaceCandidate is a raw geocoder match.
type PlaceCandidate struct {
	FormattedAddress string             `json:"formatted_address"`
	Components       []AddressComponent `json:"address_components"`
	Location         Position           `json:"location"`
	Types            []string           `json:"types"`
}

// Component returns the first component tagged with t.
func (p PlaceCandidate) Component(t string) (AddressComponent, bool) {
	for _, c := range p.Components {
		if c.HasType(t) {
			return c, true
		}
	}
	return AddressComponent{}, false
}
