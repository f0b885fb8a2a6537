// Package bridge carries typed command and event envelopes between the host
// application and a renderer session.
//
// Envelopes are flat JSON objects tagged by a "type" field, for example
// {"type":"search","query":"city hall"}. Delivery is unordered and
// unacknowledged; receivers drop anything they cannot decode.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

var (
	// ErrMalformed is returned for envelopes that are not valid JSON objects
	// or whose payload fails validation.
	ErrMalformed = errors.New("bridge: malformed envelope")
	// ErrUnknownType is returned for well-formed envelopes with an
	// unrecognised type tag.
	ErrUnknownType = errors.New("bridge: unknown envelope type")
)

// Host -> renderer command tags.
const (
	TypeSearch               = "search"
	TypeNavigate             = "navigate"
	TypeReturnToUserLocation = "returnToUserLocation"
	TypeLoadSites            = "loadSites"
	TypeExitStreetView       = "exitStreetView"
)

// Renderer -> host event tags.
const (
	TypeSearchResults     = "searchResults"
	TypeStreetViewChanged = "streetViewChanged"
	TypeTrackingStatus    = "trackingStatus"
)

var validate = validator.New()

// Command is a host -> renderer envelope.
type Command interface {
	Type() string
	command()
}

type SearchCommand struct {
	Query string `json:"query"`
}

type NavigateCommand struct {
	Location domain.Position `json:"location"`
	Address  string          `json:"address"`
}

type ReturnToUserLocationCommand struct{}

type LoadSitesCommand struct {
	Sites []domain.Site `json:"sites" validate:"dive"`
}

type ExitStreetViewCommand struct{}

func (SearchCommand) Type() string               { return TypeSearch }
func (NavigateCommand) Type() string             { return TypeNavigate }
func (ReturnToUserLocationCommand) Type() string { return TypeReturnToUserLocation }
func (LoadSitesCommand) Type() string            { return TypeLoadSites }
func (ExitStreetViewCommand) Type() string       { return TypeExitStreetView }

func (SearchCommand) command()               {}
func (NavigateCommand) command()             {}
func (ReturnToUserLocationCommand) command() {}
func (LoadSitesCommand) command()            {}
func (ExitStreetViewCommand) command()       {}

// Event is a renderer -> host envelope.
type Event interface {
	Type() string
	event()
}

type SearchResultsEvent struct {
	Results []domain.SearchResult `json:"results"`
}

type StreetViewChangedEvent struct {
	Visible bool `json:"visible"`
}

// Tracking statuses reported in TrackingStatusEvent.
const (
	StatusAcquiring   = "acquiring"
	StatusLive        = "live"
	StatusUnavailable = "unavailable"
)

type TrackingStatusEvent struct {
	Status  string `json:"status" validate:"oneof=acquiring live unavailable"`
	Message string `json:"message,omitempty"`
}

func (SearchResultsEvent) Type() string     { return TypeSearchResults }
func (StreetViewChangedEvent) Type() string { return TypeStreetViewChanged }
func (TrackingStatusEvent) Type() string    { return TypeTrackingStatus }

func (SearchResultsEvent) event()     {}
func (StreetViewChangedEvent) event() {}
func (TrackingStatusEvent) event()    {}

// DecodeCommand parses a command envelope.
func DecodeCommand(data []byte) (Command, error) {
	tag, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case TypeSearch:
		var c SearchCommand
		if err := decodePayload(data, &c); err != nil {
			return nil, err
		}
		return c, nil
	case TypeNavigate:
		var c NavigateCommand
		if err := decodePayload(data, &c); err != nil {
			return nil, err
		}
		return c, nil
	case TypeReturnToUserLocation:
		return ReturnToUserLocationCommand{}, nil
	case TypeLoadSites:
		var c LoadSitesCommand
		if err := decodePayload(data, &c); err != nil {
			return nil, err
		}
		return c, nil
	case TypeExitStreetView:
		return ExitStreetViewCommand{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}
}

// DecodeEvent parses an event envelope.
func DecodeEvent(data []byte) (Event, error) {
	tag, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case TypeSearchResults:
		var e SearchResultsEvent
		if err := decodePayload(data, &e); err != nil {
			return nil, err
		}
		if e.Results == nil {
			e.Results = []domain.SearchResult{}
		}
		return e, nil
	case TypeStreetViewChanged:
		var e StreetViewChangedEvent
		if err := decodePayload(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case TypeTrackingStatus:
		var e TrackingStatusEvent
		if err := decodePayload(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}
}

// EncodeCommand renders c as a tagged envelope.
func EncodeCommand(c Command) ([]byte, error) {
	return encode(c.Type(), c)
}

// EncodeEvent renders e as a tagged envelope.
func EncodeEvent(e Event) ([]byte, error) {
	if r, ok := e.(SearchResultsEvent); ok && r.Results == nil {
		r.Results = []domain.SearchResult{}
		e = r
	}
	return encode(e.Type(), e)
}

func peekType(data []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if head.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return head.Type, nil
}

func decodePayload(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// encode splices the type tag into the payload object.
func encode(tag string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}
	head, err := json.Marshal(tag)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}

	out := make([]byte, 0, len(body)+len(head)+10)
	out = append(out, `{"type":`...)
	out = append(out, head...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}
