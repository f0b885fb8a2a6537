package bridge_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/fieldtrack/internal/bridge"
	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bridge.Command
	}{
		{
			name:  "search",
			input: `{"type":"search","query":"city hall"}`,
			want:  bridge.SearchCommand{Query: "city hall"},
		},
		{
			name:  "navigate",
			input: `{"type":"navigate","location":{"lat":8.228,"lng":124.245},"address":"Iligan City"}`,
			want: bridge.NavigateCommand{
				Location: domain.Position{Lat: 8.228, Lng: 124.245},
				Address:  "Iligan City",
			},
		},
		{
			name:  "return to user",
			input: `{"type":"returnToUserLocation"}`,
			want:  bridge.ReturnToUserLocationCommand{},
		},
		{
			name:  "load sites",
			input: `{"type":"loadSites","sites":[{"id":"s1","name":"Warehouse","latitude":8.2,"longitude":124.2}]}`,
			want: bridge.LoadSitesCommand{Sites: []domain.Site{
				{ID: "s1", Name: "Warehouse", Latitude: 8.2, Longitude: 124.2},
			}},
		},
		{
			name:  "exit street view with extra fields",
			input: `{"type":"exitStreetView","ignored":true}`,
			want:  bridge.ExitStreetViewCommand{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bridge.DecodeCommand([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCommand_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"not json", `not json`, bridge.ErrMalformed},
		{"array", `[1,2]`, bridge.ErrMalformed},
		{"missing type", `{"query":"x"}`, bridge.ErrMalformed},
		{"wrong payload type", `{"type":"search","query":42}`, bridge.ErrMalformed},
		{"site without id", `{"type":"loadSites","sites":[{"name":"x","latitude":1,"longitude":1}]}`, bridge.ErrMalformed},
		{"latitude out of range", `{"type":"navigate","location":{"lat":91,"lng":0}}`, bridge.ErrMalformed},
		{"unknown type", `{"type":"selfDestruct"}`, bridge.ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bridge.DecodeCommand([]byte(tt.input))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
		})
	}
}

func TestEncodeCommand_RoundTrip(t *testing.T) {
	cmds := []bridge.Command{
		bridge.SearchCommand{Query: "plaza"},
		bridge.ReturnToUserLocationCommand{},
		bridge.ExitStreetViewCommand{},
		bridge.LoadSitesCommand{Sites: []domain.Site{{ID: "a", Latitude: 1, Longitude: 2}}},
	}

	for _, c := range cmds {
		data, err := bridge.EncodeCommand(c)
		require.NoError(t, err)

		got, err := bridge.DecodeCommand(data)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestEncodeEvent_Shape(t *testing.T) {
	data, err := bridge.EncodeEvent(bridge.SearchResultsEvent{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"searchResults","results":[]}`, string(data))

	data, err = bridge.EncodeEvent(bridge.StreetViewChangedEvent{Visible: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"streetViewChanged","visible":true}`, string(data))

	data, err = bridge.EncodeEvent(bridge.SearchResultsEvent{Results: []domain.SearchResult{{
		PlaceName:      "Quezon Avenue",
		CityOrProvince: "Iligan City",
		FullAddress:    "Quezon Ave, Iligan City, Lanao del Norte",
		Location:       domain.Position{Lat: 8.2, Lng: 124.2},
		PlaceTypeTag:   "route",
	}}})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "searchResults", raw["type"])
	results := raw["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "Quezon Avenue", results[0].(map[string]any)["placeName"])
}

func TestDecodeEvent(t *testing.T) {
	got, err := bridge.DecodeEvent([]byte(`{"type":"searchResults"}`))
	require.NoError(t, err)
	assert.Equal(t, bridge.SearchResultsEvent{Results: []domain.SearchResult{}}, got)

	got, err = bridge.DecodeEvent([]byte(`{"type":"trackingStatus","status":"live"}`))
	require.NoError(t, err)
	assert.Equal(t, bridge.TrackingStatusEvent{Status: bridge.StatusLive}, got)

	_, err = bridge.DecodeEvent([]byte(`{"type":"trackingStatus","status":"bogus"}`))
	require.ErrorIs(t, err, bridge.ErrMalformed)

	_, err = bridge.DecodeEvent([]byte(`{"type":"search","query":"x"}`))
	require.ErrorIs(t, err, bridge.ErrUnknownType)
}
