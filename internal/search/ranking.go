package search

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

// Place type tags, in ranking order.
const (
	TagEstablishment   = "establishment"
	TagPointOfInterest = "point_of_interest"
	TagStreetAddress   = "street_address"
	TagRoute           = "route"
	TagUnknown         = "unknown"
)

var typePriority = map[string]int{
	TagEstablishment:   0,
	TagPointOfInterest: 1,
	TagStreetAddress:   2,
	TagRoute:           3,
}

const unknownPriority = 4

// Rank turns geocoder candidates into at most limit results. Candidates
// outside country, or that name nothing but the country, are rejected.
// Results in province come first; within each group results are ordered by
// place type, keeping geocoder order for ties.
func Rank(candidates []domain.PlaceCandidate, country, province string, limit int) []domain.SearchResult {
	// A Caser is stateful, so each call gets its own.
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(province))

	type entry struct {
		result     domain.SearchResult
		inProvince bool
	}
	entries := make([]entry, 0, len(candidates))
	seen := make(map[[2]string]struct{}, len(candidates))

	for _, c := range candidates {
		if !inCountry(c, country) || countryOnly(c) {
			continue
		}
		r := toResult(c)
		key := [2]string{r.PlaceName, r.CityOrProvince}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, entry{
			result: r,
			inProvince: needle != "" &&
				(strings.Contains(fold.String(r.CityOrProvince), needle) ||
					strings.Contains(fold.String(r.FullAddress), needle)),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].inProvince != entries[j].inProvince {
			return entries[i].inProvince
		}
		return priority(entries[i].result.PlaceTypeTag) < priority(entries[j].result.PlaceTypeTag)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	results := make([]domain.SearchResult, len(entries))
	for i, e := range entries {
		results[i] = e.result
	}
	return results
}

func toResult(c domain.PlaceCandidate) domain.SearchResult {
	return domain.SearchResult{
		PlaceName:      placeName(c),
		CityOrProvince: cityOrProvince(c),
		FullAddress:    c.FormattedAddress,
		Location:       c.Location.WithoutHeading(),
		PlaceTypeTag:   placeTypeTag(c.Types),
	}
}

// placeName prefers the street or route name and falls back to the formatted
// address without its trailing country.
func placeName(c domain.PlaceCandidate) string {
	for _, comp := range c.Components {
		if comp.HasType(domain.ComponentRoute) || comp.HasType(domain.ComponentStreetAddress) {
			return comp.LongName
		}
	}
	name := c.FormattedAddress
	if country, ok := c.Component(domain.ComponentCountry); ok {
		name = strings.TrimSuffix(name, ", "+country.LongName)
	}
	return name
}

func cityOrProvince(c domain.PlaceCandidate) string {
	for _, t := range []string{domain.ComponentLocality, domain.ComponentAdminLevel2, domain.ComponentAdminLevel1} {
		if comp, ok := c.Component(t); ok {
			return comp.LongName
		}
	}
	return ""
}

func placeTypeTag(types []string) string {
	tag, best := TagUnknown, unknownPriority
	for _, t := range types {
		if p, ok := typePriority[t]; ok && p < best {
			tag, best = t, p
		}
	}
	return tag
}

func priority(tag string) int {
	if p, ok := typePriority[tag]; ok {
		return p
	}
	return unknownPriority
}

// inCountry accepts candidates without a country component; the geocoder
// request is already restricted.
func inCountry(c domain.PlaceCandidate, country string) bool {
	if country == "" {
		return true
	}
	comp, ok := c.Component(domain.ComponentCountry)
	if !ok {
		return true
	}
	return strings.EqualFold(comp.ShortName, country) || strings.EqualFold(comp.LongName, country)
}

func countryOnly(c domain.PlaceCandidate) bool {
	for _, t := range c.Types {
		if t == domain.ComponentCountry {
			return true
		}
	}
	for _, comp := range c.Components {
		if !comp.HasType(domain.ComponentCountry) {
			return false
		}
	}
	return true
}
