// Package cache provides the Redis-backed cache layer for computed study
// data: user session data, knowledge-map graphs, analysis results and study
// statistics.
//
// The cache is best-effort by contract. Write operations return false on any
// backend or serialization failure, read operations report a miss, and no
// error ever propagates to the caller. Every consumer must be able to fall
// back to the system of record when the cache is absent or unreachable.
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Namespace is the fixed prefix isolating this application's keys from
// others sharing the same Redis instance. The resulting key format
// "mindmap:{category}:{identifier}" must remain stable across versions.
const Namespace = "mindmap"

// Key categories. A category names the data domain of an entry; the analysis
// category carries a colon-delimited sub-type ("analysis:{type}").
const (
	CategoryUser         = "user"
	CategoryKnowledgeMap = "knowledge_map"
	CategoryAnalysis     = "analysis"
	CategoryStudyStats   = "study_stats"
)

// Default TTLs per category.
const (
	UserDataTTL     = time.Hour
	KnowledgeMapTTL = time.Hour
	AnalysisTTL     = 30 * time.Minute
	StudyStatsTTL   = time.Hour
)

// Store is a namespaced key-value cache over a remote backend. Structured
// values are stored as JSON on the text connection; graph-shaped values are
// stored gob-encoded on the binary connection. Both connections point at the
// same logical database.
type Store struct {
	text   Backend
	binary Backend
}

// NewStore creates a cache store over the given text and binary backends.
func NewStore(text, binary Backend) *Store {
	return &Store{text: text, binary: binary}
}

// Key constructs the cache key for a category and identifier.
func Key(category, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", Namespace, category, identifier)
}

// AnalysisCategory returns the category tag for an analysis type.
func AnalysisCategory(analysisType string) string {
	return CategoryAnalysis + ":" + analysisType
}

// SetUserData caches session data for a user. A non-positive ttl uses the
// category default.
func (s *Store) SetUserData(ctx context.Context, userID int32, data map[string]any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = UserDataTTL
	}
	return s.setJSON(ctx, CategoryUser, formatID(userID), data, ttl)
}

// GetUserData retrieves cached session data for a user.
func (s *Store) GetUserData(ctx context.Context, userID int32) (map[string]any, bool) {
	var data map[string]any
	if !s.getJSON(ctx, CategoryUser, formatID(userID), &data) {
		return nil, false
	}
	return data, true
}

// CacheKnowledgeMap caches a computed knowledge-map graph. The graph is gob
// encoded; callers decode it back with GetCachedKnowledgeMap into the same
// concrete type.
func (s *Store) CacheKnowledgeMap(ctx context.Context, mapID int32, graph any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = KnowledgeMapTTL
	}
	key := Key(CategoryKnowledgeMap, formatID(mapID))

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(graph); err != nil {
		slog.Warn("failed to encode knowledge map", "key", key, "error", err)
		return false
	}
	if err := s.binary.SetEx(ctx, key, buf.Bytes(), ttl); err != nil {
		slog.Warn("failed to cache knowledge map", "key", key, "error", err)
		return false
	}
	return true
}

// GetCachedKnowledgeMap retrieves a cached knowledge-map graph into out,
// which must be a pointer to the type passed to CacheKnowledgeMap.
func (s *Store) GetCachedKnowledgeMap(ctx context.Context, mapID int32, out any) bool {
	key := Key(CategoryKnowledgeMap, formatID(mapID))

	data, found, err := s.binary.Get(ctx, key)
	if err != nil {
		slog.Warn("failed to retrieve knowledge map", "key", key, "error", err)
		return false
	}
	if !found {
		return false
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(out); err != nil {
		// Undecodable entries read as misses so callers rebuild from the
		// system of record.
		slog.Warn("failed to decode knowledge map", "key", key, "error", err)
		return false
	}
	return true
}

// CacheAnalysisResults caches computed analysis results for a user under the
// given analysis type.
func (s *Store) CacheAnalysisResults(ctx context.Context, userID int32, analysisType string, results any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = AnalysisTTL
	}
	return s.setJSON(ctx, AnalysisCategory(analysisType), formatID(userID), results, ttl)
}

// GetCachedAnalysis retrieves cached analysis results into out.
func (s *Store) GetCachedAnalysis(ctx context.Context, userID int32, analysisType string, out any) bool {
	return s.getJSON(ctx, AnalysisCategory(analysisType), formatID(userID), out)
}

// CacheStudyStatistics caches aggregated study statistics for a user.
func (s *Store) CacheStudyStatistics(ctx context.Context, userID int32, stats any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = StudyStatsTTL
	}
	return s.setJSON(ctx, CategoryStudyStats, formatID(userID), stats, ttl)
}

// GetCachedStudyStatistics retrieves cached study statistics into out.
func (s *Store) GetCachedStudyStatistics(ctx context.Context, userID int32, out any) bool {
	return s.getJSON(ctx, CategoryStudyStats, formatID(userID), out)
}

// InvalidateDomain deletes every key whose identifier segment matches the
// given identifier, across all categories.
func (s *Store) InvalidateDomain(ctx context.Context, identifier string) bool {
	pattern := fmt.Sprintf("%s:*:%s*", Namespace, identifier)

	keys, err := s.text.Keys(ctx, pattern)
	if err != nil {
		slog.Warn("failed to scan cache keys", "pattern", pattern, "error", err)
		return false
	}
	if len(keys) == 0 {
		return true
	}
	if err := s.text.Delete(ctx, keys...); err != nil {
		slog.Warn("failed to invalidate cache domain", "pattern", pattern, "error", err)
		return false
	}
	return true
}

// ClearAll flushes the entire logical database. Maintenance use only.
func (s *Store) ClearAll(ctx context.Context) bool {
	if err := s.text.FlushDB(ctx); err != nil {
		slog.Warn("failed to clear cache", "error", err)
		return false
	}
	return true
}

// Stats holds read-only backend statistics.
type Stats struct {
	MemoryUsed       string `json:"memory_used"`
	ConnectedClients int64  `json:"connected_clients"`
	TotalKeys        int64  `json:"total_keys"`
	UptimeDays       int64  `json:"uptime_days"`
}

// GetStats returns backend statistics, or the zero value if the backend is
// unreachable.
func (s *Store) GetStats(ctx context.Context) Stats {
	info, err := s.text.Info(ctx)
	if err != nil {
		slog.Warn("failed to get cache stats", "error", err)
		return Stats{}
	}
	size, err := s.text.DBSize(ctx)
	if err != nil {
		slog.Warn("failed to get cache key count", "error", err)
		return Stats{}
	}

	stats := Stats{
		MemoryUsed: info["used_memory_human"],
		TotalKeys:  size,
	}
	if v, err := strconv.ParseInt(info["connected_clients"], 10, 64); err == nil {
		stats.ConnectedClients = v
	}
	if v, err := strconv.ParseInt(info["uptime_in_days"], 10, 64); err == nil {
		stats.UptimeDays = v
	}
	return stats
}

// Close closes both backend connections.
func (s *Store) Close() error {
	textErr := s.text.Close()
	if err := s.binary.Close(); err != nil {
		return err
	}
	return textErr
}

func (s *Store) setJSON(ctx context.Context, category, identifier string, value any, ttl time.Duration) bool {
	key := Key(category, identifier)

	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("failed to marshal cache value", "key", key, "error", err)
		return false
	}
	if err := s.text.SetEx(ctx, key, data, ttl); err != nil {
		slog.Warn("failed to set cache value", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) getJSON(ctx context.Context, category, identifier string, out any) bool {
	key := Key(category, identifier)

	data, found, err := s.text.Get(ctx, key)
	if err != nil {
		slog.Warn("failed to get cache value", "key", key, "error", err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("failed to unmarshal cache value", "key", key, "error", err)
		return false
	}
	return true
}

// deleteKeys removes keys one at a time on behalf of the invalidator. Every
// key is attempted even after a failure; the return value reports whether
// all deletes succeeded.
func (s *Store) deleteKeys(ctx context.Context, keys []string) bool {
	ok := true
	for _, key := range keys {
		if err := s.text.Delete(ctx, key); err != nil {
			slog.Warn("failed to delete cache key", "key", key, "error", err)
			ok = false
			continue
		}
		slog.Info("invalidated cache key", "key", key)
	}
	return ok
}

// keysMatching exposes pattern scans to the invalidator.
func (s *Store) keysMatching(ctx context.Context, pattern string) ([]string, error) {
	return s.text.Keys(ctx, pattern)
}

// deleteBatch removes keys in one backend call on behalf of the invalidator.
func (s *Store) deleteBatch(ctx context.Context, keys []string) error {
	return s.text.Delete(ctx, keys...)
}

func formatID(id int32) string {
	return strconv.FormatInt(int64(id), 10)
}
