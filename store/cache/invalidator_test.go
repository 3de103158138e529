package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedKeys(t *testing.T, backend *MockBackend, keys ...string) {
	t.Helper()
	ctx := context.Background()
	for _, key := range keys {
		require.NoError(t, backend.SetEx(ctx, key, []byte("x"), time.Hour))
	}
}

func keyExists(t *testing.T, backend *MockBackend, key string) bool {
	t.Helper()
	_, ok, err := backend.Get(context.Background(), key)
	require.NoError(t, err)
	return ok
}

func TestInvalidator_DependencyChain(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore()
	inv := NewInvalidator(store)

	seedKeys(t, backend, "a", "b", "c", "d")
	inv.RegisterDependency("a", "b")
	inv.RegisterDependency("b", "c")

	require.True(t, inv.InvalidateWithDependencies(ctx, "a"))

	assert.False(t, keyExists(t, backend, "a"))
	assert.False(t, keyExists(t, backend, "b"))
	assert.False(t, keyExists(t, backend, "c"))
	// Unrelated keys survive.
	assert.True(t, keyExists(t, backend, "d"))
}

func TestInvalidator_CycleTerminates(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore()
	inv := NewInvalidator(store)

	seedKeys(t, backend, "a", "b", "c")
	inv.RegisterDependency("a", "b")
	inv.RegisterDependency("b", "a")

	done := make(chan bool, 1)
	go func() {
		done <- inv.InvalidateWithDependencies(ctx, "a")
	}()

	select {
	case ok := <-done:
		require.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("traversal did not terminate on cyclic graph")
	}

	assert.False(t, keyExists(t, backend, "a"))
	assert.False(t, keyExists(t, backend, "b"))
	assert.True(t, keyExists(t, backend, "c"))
}

func TestInvalidator_RegisterDependencyIdempotent(t *testing.T) {
	store, _ := newTestStore()
	inv := NewInvalidator(store)

	inv.RegisterDependency("a", "b", "b")
	inv.RegisterDependency("a", "b")

	closure := inv.dependentClosure("a")
	assert.Equal(t, []string{"b"}, closure)
}

func TestInvalidator_MissingDependentsStillAttempted(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore()
	inv := NewInvalidator(store)

	// Edges may reference keys that are currently absent from the store.
	seedKeys(t, backend, "a")
	inv.RegisterDependency("a", "ghost")

	assert.True(t, inv.InvalidateWithDependencies(ctx, "a"))
	assert.False(t, keyExists(t, backend, "a"))
}

func TestInvalidator_DeleteFailureReturnsFalse(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore()
	inv := NewInvalidator(store)

	inv.RegisterDependency("a", "b")
	backend.SetError(errors.New("connection refused"))

	assert.False(t, inv.InvalidateWithDependencies(ctx, "a"))
}

func TestInvalidator_InvalidateUserData(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	inv := NewInvalidator(store)

	require.True(t, store.SetUserData(ctx, 42, map[string]any{"k": "v"}, 0))
	require.True(t, store.CacheStudyStatistics(ctx, 42, map[string]any{"math": 90}, 0))
	require.True(t, store.CacheAnalysisResults(ctx, 42, "trend", map[string]any{"t": 1}, 0))
	require.True(t, store.SetUserData(ctx, 7, map[string]any{"k": "v"}, 0))

	require.True(t, inv.InvalidateUserData(ctx, 42))

	_, ok := store.GetUserData(ctx, 42)
	assert.False(t, ok)
	var out map[string]any
	assert.False(t, store.GetCachedStudyStatistics(ctx, 42, &out))
	assert.False(t, store.GetCachedAnalysis(ctx, 42, "trend", &out))

	_, ok = store.GetUserData(ctx, 7)
	assert.True(t, ok)
}

func TestInvalidator_InvalidatePatternNoMatches(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	inv := NewInvalidator(store)

	require.True(t, store.SetUserData(ctx, 1, map[string]any{"k": "v"}, 0))

	// Zero matches is a success with zero effect.
	assert.True(t, inv.InvalidatePattern(ctx, "mindmap:nothing:*"))

	_, ok := store.GetUserData(ctx, 1)
	assert.True(t, ok)
}

func TestInvalidator_InvalidateKnowledgeMap(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	inv := NewInvalidator(store)

	graph := testGraph{MapID: 3, Nodes: []string{"algebra"}}
	require.True(t, store.CacheKnowledgeMap(ctx, 3, graph, 0))
	require.True(t, store.CacheAnalysisResults(ctx, 9, "weak_points", map[string]any{"w": 1}, 0))

	mapKey := Key(CategoryKnowledgeMap, "3")
	analysisKey := Key(AnalysisCategory("weak_points"), "9")
	inv.RegisterDependency(mapKey, analysisKey)

	require.True(t, inv.InvalidateKnowledgeMap(ctx, 3))

	var got testGraph
	assert.False(t, store.GetCachedKnowledgeMap(ctx, 3, &got))
	var out map[string]any
	assert.False(t, store.GetCachedAnalysis(ctx, 9, "weak_points", &out))
}

func TestInvalidator_InvalidateAnalysisCache(t *testing.T) {
	ctx := context.Background()

	t.Run("SpecificType", func(t *testing.T) {
		store, _ := newTestStore()
		inv := NewInvalidator(store)

		require.True(t, store.CacheAnalysisResults(ctx, 7, "trend", map[string]any{"t": 1}, 0))
		require.True(t, store.CacheAnalysisResults(ctx, 7, "patterns", map[string]any{"p": 1}, 0))

		require.True(t, inv.InvalidateAnalysisCache(ctx, 7, "trend"))

		var out map[string]any
		assert.False(t, store.GetCachedAnalysis(ctx, 7, "trend", &out))
		assert.True(t, store.GetCachedAnalysis(ctx, 7, "patterns", &out))
	})

	t.Run("AllTypes", func(t *testing.T) {
		store, _ := newTestStore()
		inv := NewInvalidator(store)

		require.True(t, store.CacheAnalysisResults(ctx, 7, "trend", map[string]any{"t": 1}, 0))
		require.True(t, store.CacheAnalysisResults(ctx, 7, "patterns", map[string]any{"p": 1}, 0))
		require.True(t, store.CacheAnalysisResults(ctx, 8, "trend", map[string]any{"t": 1}, 0))

		require.True(t, inv.InvalidateAnalysisCache(ctx, 7, ""))

		var out map[string]any
		assert.False(t, store.GetCachedAnalysis(ctx, 7, "trend", &out))
		assert.False(t, store.GetCachedAnalysis(ctx, 7, "patterns", &out))
		assert.True(t, store.GetCachedAnalysis(ctx, 8, "trend", &out))
	})
}

// Mirrors the set / get / invalidate flow a request handler goes through.
func TestInvalidator_StudyStatsScenario(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	inv := NewInvalidator(store)

	require.True(t, store.CacheStudyStatistics(ctx, 7, map[string]any{"math": 90}, time.Hour))
	require.True(t, store.CacheAnalysisResults(ctx, 7, "trend", map[string]any{"direction": "up"}, 0))

	var stats map[string]any
	require.True(t, store.GetCachedStudyStatistics(ctx, 7, &stats))
	assert.Equal(t, float64(90), stats["math"])

	require.True(t, inv.InvalidateAnalysisCache(ctx, 7, ""))

	var out map[string]any
	assert.False(t, store.GetCachedAnalysis(ctx, 7, "trend", &out))
	// Study stats are a different category and survive analysis invalidation.
	require.True(t, store.GetCachedStudyStatistics(ctx, 7, &stats))
}
