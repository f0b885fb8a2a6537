package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
	"github.com/samirrijal/fieldtrack/internal/core/ports"
)

// --- Mocks ---

type mockGeocoder struct {
	GeocodeFn        func(ctx context.Context, query, country string) ([]domain.PlaceCandidate, error)
	ReverseGeocodeFn func(ctx context.Context, point domain.Position) ([]domain.PlaceCandidate, error)
	calls            int
}

func (m *mockGeocoder) Geocode(ctx context.Context, query, country string) ([]domain.PlaceCandidate, error) {
	m.calls++
	return m.GeocodeFn(ctx, query, country)
}

func (m *mockGeocoder) ReverseGeocode(ctx context.Context, point domain.Position) ([]domain.PlaceCandidate, error) {
	m.calls++
	return m.ReverseGeocodeFn(ctx, point)
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// --- Fixtures ---

func comp(name string, types ...string) domain.AddressComponent {
	return domain.AddressComponent{LongName: name, ShortName: name, Types: types}
}

var philippines = domain.AddressComponent{LongName: "Philippines", ShortName: "PH", Types: []string{"country", "political"}}

func place(address, locality, province string, types ...string) domain.PlaceCandidate {
	c := domain.PlaceCandidate{
		FormattedAddress: address,
		Types:            types,
		Location:         domain.Position{Lat: 8.2, Lng: 124.2},
	}
	if locality != "" {
		c.Components = append(c.Components, comp(locality, "locality", "political"))
	}
	if province != "" {
		c.Components = append(c.Components, comp(province, "administrative_area_level_1", "political"))
	}
	c.Components = append(c.Components, philippines)
	return c
}

// --- Rank tests ---

func TestRankPlaceNameExtraction(t *testing.T) {
	withRoute := place("Corrales Ave, Cagayan de Oro, Misamis Oriental, Philippines", "Cagayan de Oro", "Misamis Oriental", "route")
	withRoute.Components = append([]domain.AddressComponent{comp("Corrales Avenue", "route")}, withRoute.Components...)

	noRoute := place("SM City, Cagayan de Oro, Philippines", "Cagayan de Oro", "", "establishment", "point_of_interest")

	got := Rank([]domain.PlaceCandidate{withRoute, noRoute}, "PH", "", 10)
	want := []domain.SearchResult{
		{
			PlaceName:      "SM City, Cagayan de Oro",
			CityOrProvince: "Cagayan de Oro",
			FullAddress:    "SM City, Cagayan de Oro, Philippines",
			Location:       domain.Position{Lat: 8.2, Lng: 124.2},
			PlaceTypeTag:   TagEstablishment,
		},
		{
			PlaceName:      "Corrales Avenue",
			CityOrProvince: "Cagayan de Oro",
			FullAddress:    "Corrales Ave, Cagayan de Oro, Misamis Oriental, Philippines",
			Location:       domain.Position{Lat: 8.2, Lng: 124.2},
			PlaceTypeTag:   TagRoute,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rank() mismatch (-want +got):\n%s", diff)
	}
}

func TestRankCityFallbacks(t *testing.T) {
	adm2 := domain.PlaceCandidate{
		FormattedAddress: "Somewhere, Bukidnon, Philippines",
		Components: []domain.AddressComponent{
			comp("Bukidnon District", "administrative_area_level_2", "political"),
			comp("Northern Mindanao", "administrative_area_level_1", "political"),
			philippines,
		},
		Types: []string{"establishment"},
	}
	adm1 := domain.PlaceCandidate{
		FormattedAddress: "Elsewhere, Northern Mindanao, Philippines",
		Components:       []domain.AddressComponent{comp("Northern Mindanao", "administrative_area_level_1"), philippines},
		Types:            []string{"establishment"},
	}

	got := Rank([]domain.PlaceCandidate{adm2, adm1}, "PH", "", 10)
	require.Len(t, got, 2)
	assert.Equal(t, "Bukidnon District", got[0].CityOrProvince)
	assert.Equal(t, "Northern Mindanao", got[1].CityOrProvince)
}

func TestRankDedupe(t *testing.T) {
	a := place("Gaisano Mall, Iligan, Philippines", "Iligan", "", "establishment")
	dup := place("Gaisano Mall, Iligan, Philippines", "Iligan", "", "point_of_interest")
	otherCity := place("Gaisano Mall, Ozamiz, Philippines", "Ozamiz", "", "establishment")
	caseDiff := place("GAISANO MALL, Iligan, Philippines", "Iligan", "", "establishment")

	got := Rank([]domain.PlaceCandidate{a, dup, otherCity, caseDiff}, "PH", "", 10)
	require.Len(t, got, 3)
	assert.Equal(t, TagEstablishment, got[0].PlaceTypeTag, "first occurrence wins")
	assert.Equal(t, "Ozamiz", got[1].CityOrProvince)
	assert.Equal(t, "GAISANO MALL, Iligan", got[2].PlaceName)
}

func TestRankProvinceFirst(t *testing.T) {
	elsewhere := place("City Hall, Cagayan de Oro, Misamis Oriental, Philippines", "Cagayan de Oro", "Misamis Oriental", "establishment")
	local := place("City Hall, Tubod, Lanao del Norte, Philippines", "Tubod", "Lanao del Norte", "route")

	got := Rank([]domain.PlaceCandidate{elsewhere, local}, "PH", "Lanao del Norte", 10)
	require.Len(t, got, 2)
	assert.Equal(t, "Tubod", got[0].CityOrProvince, "province match beats place type")
	assert.Equal(t, "Cagayan de Oro", got[1].CityOrProvince)

	got = Rank([]domain.PlaceCandidate{elsewhere, local}, "PH", "LANAO DEL NORTE", 10)
	assert.Equal(t, "Tubod", got[0].CityOrProvince, "match is case-insensitive")

	got = Rank([]domain.PlaceCandidate{elsewhere, local}, "PH", "", 10)
	assert.Equal(t, "Cagayan de Oro", got[0].CityOrProvince)
}

func TestRankTypePriorityIsStable(t *testing.T) {
	var cands []domain.PlaceCandidate
	types := []string{"route", "natural_feature", "establishment", "street_address", "establishment", "point_of_interest"}
	for i, typ := range types {
		cands = append(cands, place(fmt.Sprintf("P%d, Philippines", i), fmt.Sprintf("C%d", i), "", typ))
	}

	got := Rank(cands, "PH", "", 10)
	var order []string
	for _, r := range got {
		order = append(order, r.CityOrProvince)
	}
	assert.Equal(t, []string{"C2", "C4", "C5", "C3", "C0", "C1"}, order)
	assert.Equal(t, TagUnknown, got[5].PlaceTypeTag)
}

func TestRankTruncates(t *testing.T) {
	var cands []domain.PlaceCandidate
	for i := 0; i < 15; i++ {
		cands = append(cands, place(fmt.Sprintf("Stop %d, Philippines", i), fmt.Sprintf("Town %d", i), "", "establishment"))
	}
	got := Rank(cands, "PH", "", DefaultLimit)
	require.Len(t, got, 10)
	assert.Equal(t, "Town 0", got[0].CityOrProvince)
	assert.Equal(t, "Town 9", got[9].CityOrProvince)
}

func TestRankRejects(t *testing.T) {
	bare := domain.PlaceCandidate{
		FormattedAddress: "Philippines",
		Components:       []domain.AddressComponent{philippines},
		Types:            []string{"country", "political"},
	}
	abroad := domain.PlaceCandidate{
		FormattedAddress: "City Hall, Kota Kinabalu, Malaysia",
		Components: []domain.AddressComponent{
			comp("Kota Kinabalu", "locality"),
			{LongName: "Malaysia", ShortName: "MY", Types: []string{"country"}},
		},
		Types: []string{"establishment"},
	}
	ok := place("City Hall, Iligan, Philippines", "Iligan", "", "establishment")

	got := Rank([]domain.PlaceCandidate{bare, abroad, ok}, "PH", "", 10)
	require.Len(t, got, 1)
	assert.Equal(t, "Iligan", got[0].CityOrProvince)
}

// --- Engine tests ---

func TestEngineSearchEmptyQuery(t *testing.T) {
	geo := &mockGeocoder{}
	e := NewEngine(geo, nil, "PH", 0)

	got := e.Search(context.Background(), "   ", "")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, geo.calls)
}

func TestEngineSearchGeocoderFailure(t *testing.T) {
	geo := &mockGeocoder{GeocodeFn: func(context.Context, string, string) ([]domain.PlaceCandidate, error) {
		return nil, errors.New("OVER_QUERY_LIMIT")
	}}
	e := NewEngine(geo, nil, "PH", 0)

	got := e.Search(context.Background(), "city hall", "")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEngineSearchUsesCache(t *testing.T) {
	var gotCountry string
	geo := &mockGeocoder{GeocodeFn: func(_ context.Context, _, country string) ([]domain.PlaceCandidate, error) {
		gotCountry = country
		return []domain.PlaceCandidate{place("City Hall, Iligan, Philippines", "Iligan", "", "establishment")}, nil
	}}
	cache := newMemCache()
	e := NewEngine(geo, cache, "PH", 0)

	first := e.Search(context.Background(), "City Hall", "")
	second := e.Search(context.Background(), "city hall ", "")

	assert.Equal(t, "PH", gotCountry)
	assert.Equal(t, 1, geo.calls)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached search mismatch (-first +second):\n%s", diff)
	}
	assert.Equal(t, forwardTTL, cache.ttls["geocode:forward:ph:city hall"])
}

func TestEngineProvince(t *testing.T) {
	geo := &mockGeocoder{ReverseGeocodeFn: func(_ context.Context, p domain.Position) ([]domain.PlaceCandidate, error) {
		assert.Nil(t, p.Heading)
		return []domain.PlaceCandidate{
			{Components: []domain.AddressComponent{comp("Iligan", "locality")}},
			place("Tubod, Lanao del Norte, Philippines", "Tubod", "Lanao del Norte", "locality"),
		}, nil
	}}
	cache := newMemCache()
	e := NewEngine(geo, cache, "PH", 0)

	h := 90.0
	pt := domain.Position{Lat: 8.05612, Lng: 123.79321, Heading: &h}
	got, err := e.Province(context.Background(), pt)
	require.NoError(t, err)
	assert.Equal(t, "Lanao del Norte", got)

	// Nearby point within the 4-decimal key reuses the cache.
	got, err = e.Province(context.Background(), domain.Position{Lat: 8.05614, Lng: 123.79318})
	require.NoError(t, err)
	assert.Equal(t, "Lanao del Norte", got)
	assert.Equal(t, 1, geo.calls)
	assert.Equal(t, reverseTTL, cache.ttls["geocode:reverse:8.0561:123.7932"])
}

func TestEngineProvinceError(t *testing.T) {
	geo := &mockGeocoder{ReverseGeocodeFn: func(context.Context, domain.Position) ([]domain.PlaceCandidate, error) {
		return nil, errors.New("timeout")
	}}
	_, err := NewEngine(geo, nil, "PH", 0).Province(context.Background(), domain.Position{})
	assert.Error(t, err)
}
