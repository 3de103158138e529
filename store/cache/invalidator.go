package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Invalidator maintains a directed dependency graph between cache keys and
// cascades invalidation across it: deleting a key also deletes every key
// transitively reachable through registered dependencies.
//
// Dependencies live only in process memory for the process lifetime. They
// are not tied to actual entry existence; an edge may point at a key that is
// currently absent from the store.
type Invalidator struct {
	store *Store

	mu   sync.RWMutex
	deps map[string]map[string]struct{}
}

// NewInvalidator creates an invalidator over the given cache store.
func NewInvalidator(store *Store) *Invalidator {
	return &Invalidator{
		store: store,
		deps:  make(map[string]map[string]struct{}),
	}
}

// RegisterDependency adds directed edges key -> each of dependentKeys,
// meaning the dependents must be invalidated whenever key is. Re-registering
// an existing edge has no additional effect.
//
// Registration normally happens once at process start. If called
// concurrently with an invalidation, the traversal sees the graph either
// before or after the mutation.
func (i *Invalidator) RegisterDependency(key string, dependentKeys ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	set, ok := i.deps[key]
	if !ok {
		set = make(map[string]struct{})
		i.deps[key] = set
	}
	for _, dep := range dependentKeys {
		set[dep] = struct{}{}
	}
}

// InvalidateWithDependencies deletes key plus every key transitively
// reachable from it through registered dependencies. The deletes are
// best-effort: every key in the closure is attempted, and false is returned
// if any delete failed.
func (i *Invalidator) InvalidateWithDependencies(ctx context.Context, key string) bool {
	keys := i.dependentClosure(key)
	keys = append(keys, key)
	return i.store.deleteKeys(ctx, keys)
}

// dependentClosure collects all keys reachable from key, excluding key
// itself unless it appears in a cycle. An explicit worklist with a shared
// visited set keeps the traversal cycle-safe and bounds it to one visit per
// key.
func (i *Invalidator) dependentClosure(key string) []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var closure []string
	visited := map[string]struct{}{}
	worklist := []string{key}

	for len(worklist) > 0 {
		current := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		for dep := range i.deps[current] {
			if _, seen := visited[dep]; seen {
				continue
			}
			visited[dep] = struct{}{}
			if dep != key {
				closure = append(closure, dep)
			}
			worklist = append(worklist, dep)
		}
	}

	return closure
}

// InvalidatePattern deletes all store keys matching a glob-style pattern in
// one batch. A pattern matching nothing is a success with zero effect.
func (i *Invalidator) InvalidatePattern(ctx context.Context, pattern string) bool {
	keys, err := i.store.keysMatching(ctx, pattern)
	if err != nil {
		slog.Error("failed to scan keys for invalidation", "pattern", pattern, "error", err)
		return false
	}
	if len(keys) == 0 {
		return true
	}
	if err := i.store.deleteBatch(ctx, keys); err != nil {
		slog.Error("failed to invalidate pattern", "pattern", pattern, "error", err)
		return false
	}
	slog.Info("invalidated keys matching pattern", "count", len(keys), "pattern", pattern)
	return true
}

// InvalidateUserData deletes every cached entry whose identifier segment
// contains the user ID, across all categories.
func (i *Invalidator) InvalidateUserData(ctx context.Context, userID int32) bool {
	pattern := fmt.Sprintf("%s:*:%d*", Namespace, userID)
	return i.InvalidatePattern(ctx, pattern)
}

// InvalidateKnowledgeMap deletes the cached knowledge map along with its
// registered dependents, such as analysis results computed from it.
func (i *Invalidator) InvalidateKnowledgeMap(ctx context.Context, mapID int32) bool {
	key := Key(CategoryKnowledgeMap, formatID(mapID))
	return i.InvalidateWithDependencies(ctx, key)
}

// InvalidateAnalysisCache deletes cached analysis results for a user. With a
// non-empty analysisType only that analysis category is invalidated;
// otherwise every analysis category for the user is.
func (i *Invalidator) InvalidateAnalysisCache(ctx context.Context, userID int32, analysisType string) bool {
	var pattern string
	if analysisType != "" {
		pattern = fmt.Sprintf("%s:%s:%s:%d", Namespace, CategoryAnalysis, analysisType, userID)
	} else {
		pattern = fmt.Sprintf("%s:%s:*:%d", Namespace, CategoryAnalysis, userID)
	}
	return i.InvalidatePattern(ctx, pattern)
}
