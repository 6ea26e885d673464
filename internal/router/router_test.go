package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LittleAndi/FileHorizon/internal/config"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

func buildRouter(t *testing.T) *Router {
	t.Helper()
	r, err := New(
		config.Routing{Rules: []config.RoutingRule{
			{Name: "local-to-outboxA", MatchOn: config.MatchOn{Protocol: "local", PathGlob: "**/*.txt"}, Destinations: []string{"OutboxA"}, Overwrite: true, RenamePattern: "{fileName}"},
		}},
		config.Destinations{Local: []config.LocalDestination{{Name: "OutboxA", Root: "/tmp/out"}}},
	)
	require.NoError(t, err)
	return r
}

func TestRouteLocalToLocalCopy(t *testing.T) {
	r := buildRouter(t)
	event := model.FileEvent{
		ID:       "evt-1",
		Metadata: model.FileMetadata{SourcePath: "/tmp/in/a.txt", SizeBytes: 5},
		Protocol: model.ProtocolLocal,
	}
	plans, err := r.Route(event)
	require.Nil(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, model.DestinationLocal, plans[0].Kind)
	assert.Equal(t, "/tmp/out/a.txt", plans[0].TargetPath)
	assert.True(t, plans[0].Options.Overwrite)
}

func TestRouteNoRuleMatched(t *testing.T) {
	r := buildRouter(t)
	event := model.FileEvent{
		ID:       "evt-2",
		Metadata: model.FileMetadata{SourcePath: "/x.bin", SizeBytes: 1},
		Protocol: model.ProtocolFTP,
	}
	plans, err := r.Route(event)
	assert.Nil(t, plans)
	require.NotNil(t, err)
	assert.Equal(t, model.CodeNoRuleMatched, err.Code)
}

func TestRouteUnknownDestination(t *testing.T) {
	r, err := New(
		config.Routing{Rules: []config.RoutingRule{
			{Name: "bad", MatchOn: config.MatchOn{Protocol: "local"}, Destinations: []string{"Nope"}},
		}},
		config.Destinations{},
	)
	require.NoError(t, err)
	_, rErr := r.Route(model.FileEvent{ID: "e", Metadata: model.FileMetadata{SourcePath: "/a", SizeBytes: 0}, Protocol: model.ProtocolLocal})
	require.NotNil(t, rErr)
	assert.Equal(t, model.CodeUnknownDestination, rErr.Code)
}

func TestRouteIsDeterministic(t *testing.T) {
	r := buildRouter(t)
	event := model.FileEvent{
		ID:              "evt-3",
		Metadata:        model.FileMetadata{SourcePath: "/tmp/in/b.txt", SizeBytes: 1},
		Protocol:        model.ProtocolLocal,
		DiscoveredAtUtc: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	plans1, _ := r.Route(event)
	plans2, _ := r.Route(event)
	assert.Equal(t, plans1, plans2)
}

func TestRouteFirstMatchWins(t *testing.T) {
	r, err := New(
		config.Routing{Rules: []config.RoutingRule{
			{Name: "first", MatchOn: config.MatchOn{Protocol: "local"}, Destinations: []string{"A"}},
			{Name: "second", MatchOn: config.MatchOn{Protocol: "local"}, Destinations: []string{"B"}},
		}},
		config.Destinations{Local: []config.LocalDestination{{Name: "A", Root: "/a"}, {Name: "B", Root: "/b"}}},
	)
	require.NoError(t, err)
	plans, _ := r.Route(model.FileEvent{ID: "e", Metadata: model.FileMetadata{SourcePath: "/x", SizeBytes: 0}, Protocol: model.ProtocolLocal})
	require.Len(t, plans, 1)
	assert.Equal(t, "A", plans[0].DestinationName)
}

func TestNormalizeForGlobStripsSchemeAndDriveLetter(t *testing.T) {
	assert.Equal(t, "data/in/a.txt", normalizeForGlob("local://_:/data/in/a.txt"))
	assert.Equal(t, "data/in/a.txt", normalizeForGlob(`C:\data\in\a.txt`))
	assert.Equal(t, "data/in/a.txt", normalizeForGlob("/data/in/a.txt"))
}

func TestRenameTargetPathYyyyMMdd(t *testing.T) {
	r, err := New(
		config.Routing{Rules: []config.RoutingRule{
			{Name: "dated", MatchOn: config.MatchOn{Protocol: "local"}, Destinations: []string{"OutboxA"}, RenamePattern: "{yyyyMMdd}-{fileName}"},
		}},
		config.Destinations{Local: []config.LocalDestination{{Name: "OutboxA", Root: "/tmp/out"}}},
	)
	require.NoError(t, err)
	event := model.FileEvent{
		ID:              "e",
		Metadata:        model.FileMetadata{SourcePath: "/in/a.txt", SizeBytes: 0},
		Protocol:        model.ProtocolLocal,
		DiscoveredAtUtc: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
	}
	plans, rErr := r.Route(event)
	require.Nil(t, rErr)
	assert.Equal(t, "/tmp/out/20260730-a.txt", plans[0].TargetPath)
}
