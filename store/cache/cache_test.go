package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *MockBackend) {
	backend := NewMockBackend()
	return NewStore(backend, backend), backend
}

func TestStore_UserData(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	t.Run("RoundTrip", func(t *testing.T) {
		data := map[string]any{"username": "alice", "theme": "dark"}
		require.True(t, store.SetUserData(ctx, 1, data, 0))

		got, ok := store.GetUserData(ctx, 1)
		require.True(t, ok)
		assert.Equal(t, "alice", got["username"])
		assert.Equal(t, "dark", got["theme"])
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		got, ok := store.GetUserData(ctx, 999)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("OverwriteRefreshes", func(t *testing.T) {
		require.True(t, store.SetUserData(ctx, 2, map[string]any{"v": "old"}, 0))
		require.True(t, store.SetUserData(ctx, 2, map[string]any{"v": "new"}, 0))

		got, ok := store.GetUserData(ctx, 2)
		require.True(t, ok)
		assert.Equal(t, "new", got["v"])
	})
}

type testGraph struct {
	MapID int32
	Nodes []string
	Edges map[string][]string
}

func TestStore_KnowledgeMap(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	t.Run("BinaryRoundTrip", func(t *testing.T) {
		graph := testGraph{
			MapID: 7,
			Nodes: []string{"algebra", "calculus"},
			Edges: map[string][]string{"algebra": {"calculus"}},
		}
		require.True(t, store.CacheKnowledgeMap(ctx, 7, graph, 0))

		var got testGraph
		require.True(t, store.GetCachedKnowledgeMap(ctx, 7, &got))
		assert.Equal(t, graph, got)
	})

	t.Run("Miss", func(t *testing.T) {
		var got testGraph
		assert.False(t, store.GetCachedKnowledgeMap(ctx, 404, &got))
	})
}

func TestStore_AnalysisAndStats(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	t.Run("AnalysisRoundTrip", func(t *testing.T) {
		results := map[string]any{"trend": "improving"}
		require.True(t, store.CacheAnalysisResults(ctx, 7, "trend", results, 0))

		var got map[string]any
		require.True(t, store.GetCachedAnalysis(ctx, 7, "trend", &got))
		assert.Equal(t, "improving", got["trend"])
	})

	t.Run("AnalysisTypesAreIndependent", func(t *testing.T) {
		require.True(t, store.CacheAnalysisResults(ctx, 7, "patterns", map[string]any{"a": 1}, 0))

		var got map[string]any
		assert.False(t, store.GetCachedAnalysis(ctx, 7, "weak_points", &got))
	})

	t.Run("StudyStatsRoundTrip", func(t *testing.T) {
		require.True(t, store.CacheStudyStatistics(ctx, 7, map[string]any{"math": 90}, 0))

		var got map[string]any
		require.True(t, store.GetCachedStudyStatistics(ctx, 7, &got))
		assert.Equal(t, float64(90), got["math"])
	})
}

func TestStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	backend := NewMockBackend()
	store := NewStore(backend, backend)

	now := time.Now()
	backend.Now = func() time.Time { return now }

	require.True(t, store.SetUserData(ctx, 1, map[string]any{"k": "v"}, time.Hour))

	_, ok := store.GetUserData(ctx, 1)
	require.True(t, ok)

	// Advance past the TTL without any explicit invalidation.
	now = now.Add(time.Hour + time.Second)

	_, ok = store.GetUserData(ctx, 1)
	assert.False(t, ok)
}

func TestStore_CorruptPayloadReadsAsMiss(t *testing.T) {
	ctx := context.Background()
	backend := NewMockBackend()
	store := NewStore(backend, backend)

	require.NoError(t, backend.SetEx(ctx, Key(CategoryUser, "1"), []byte("{not json"), time.Hour))

	got, ok := store.GetUserData(ctx, 1)
	assert.False(t, ok)
	assert.Nil(t, got)

	require.NoError(t, backend.SetEx(ctx, Key(CategoryKnowledgeMap, "1"), []byte("not gob"), time.Hour))

	var graph testGraph
	assert.False(t, store.GetCachedKnowledgeMap(ctx, 1, &graph))
}

func TestStore_BackendFailure(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore()
	backend.SetError(errors.New("connection refused"))

	assert.False(t, store.SetUserData(ctx, 1, map[string]any{"k": "v"}, 0))
	assert.False(t, store.CacheKnowledgeMap(ctx, 1, testGraph{}, 0))
	assert.False(t, store.InvalidateDomain(ctx, "1"))
	assert.False(t, store.ClearAll(ctx))

	_, ok := store.GetUserData(ctx, 1)
	assert.False(t, ok)

	assert.Equal(t, Stats{}, store.GetStats(ctx))
}

func TestStore_InvalidateDomain(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	require.True(t, store.SetUserData(ctx, 42, map[string]any{"k": "v"}, 0))
	require.True(t, store.CacheStudyStatistics(ctx, 42, map[string]any{"math": 90}, 0))
	require.True(t, store.SetUserData(ctx, 7, map[string]any{"k": "v"}, 0))

	require.True(t, store.InvalidateDomain(ctx, "42"))

	_, ok := store.GetUserData(ctx, 42)
	assert.False(t, ok)
	var stats map[string]any
	assert.False(t, store.GetCachedStudyStatistics(ctx, 42, &stats))

	// Other identifiers are untouched.
	_, ok = store.GetUserData(ctx, 7)
	assert.True(t, ok)
}

func TestStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	require.True(t, store.SetUserData(ctx, 1, map[string]any{"k": "v"}, 0))
	require.True(t, store.ClearAll(ctx))

	_, ok := store.GetUserData(ctx, 1)
	assert.False(t, ok)
}

func TestStore_GetStats(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	require.True(t, store.SetUserData(ctx, 1, map[string]any{"k": "v"}, 0))
	require.True(t, store.CacheStudyStatistics(ctx, 1, map[string]any{"math": 90}, 0))

	stats := store.GetStats(ctx)
	assert.Equal(t, int64(2), stats.TotalKeys)
	assert.Equal(t, "1.00M", stats.MemoryUsed)
	assert.Equal(t, int64(1), stats.ConnectedClients)
}

func TestParseRedisInfo(t *testing.T) {
	raw := "# Memory\r\nused_memory_human:1.05M\r\nconnected_clients:4\r\n\r\nuptime_in_days:12\r\n"
	info := parseRedisInfo(raw)

	assert.Equal(t, "1.05M", info["used_memory_human"])
	assert.Equal(t, "4", info["connected_clients"])
	assert.Equal(t, "12", info["uptime_in_days"])
	assert.NotContains(t, info, "# Memory")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "mindmap:user:42", Key(CategoryUser, "42"))
	assert.Equal(t, "mindmap:analysis:trend:7", Key(AnalysisCategory("trend"), "7"))
}
