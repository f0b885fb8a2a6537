package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/fieldtrack/internal/bridge"
	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

func TestReadSites(t *testing.T) {
	sites, err := readSites(strings.NewReader(`[
	  {"id":"A","name":"Iligan Depot","latitude":8.228,"longitude":124.2452},
	  {"id":"B","name":"Malaybalay Yard","latitude":8.1575,"longitude":125.1278}
	]`))
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "Malaybalay Yard", sites[1].Name)

	sites, err = readSites(strings.NewReader(`null`))
	require.NoError(t, err)
	assert.NotNil(t, sites)
	assert.Empty(t, sites)
}

func TestReadSitesRejects(t *testing.T) {
	for _, in := range []string{
		`{`,
		`[{"name":"no id","latitude":1,"longitude":1}]`,
		`[{"id":"A","latitude":91,"longitude":1}]`,
	} {
		_, err := readSites(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, nil)
	assert.Equal(t, "no results\n", buf.String())

	buf.Reset()
	printResults(&buf, []domain.SearchResult{{
		PlaceName: "City Hall", CityOrProvince: "Iligan", PlaceTypeTag: "establishment",
		Location: domain.Position{Lat: 8.228, Lng: 124.2452},
	}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "PLACE")
	assert.Contains(t, lines[1], "City Hall")
	assert.Contains(t, lines[1], "8.22800,124.24520")
}

func TestFollowPrintsEnvelopes(t *testing.T) {
	events := make(chan bridge.Event, 2)
	events <- bridge.TrackingStatusEvent{Status: bridge.StatusLive}
	events <- bridge.StreetViewChangedEvent{Visible: true}
	close(events)

	var buf bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, follow(ctx, &buf, events))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"type":"trackingStatus"`)
	assert.Contains(t, lines[1], `"visible":true`)
}
