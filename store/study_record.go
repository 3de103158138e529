package store

import (
	"context"
	"strconv"

	"github.com/hrygo/mindmap/store/cache"
)

// StudyRecord is the object representing one study session.
type StudyRecord struct {
	ID          int32
	UserID      int32
	Subject     string
	StudyTime   int32 // minutes
	Score       float64
	StressLevel int32 // 1-5
	CreatedTs   int64
}

// FindStudyRecord is the find condition for study records.
type FindStudyRecord struct {
	UserID  *int32
	Subject *string

	// Time range filters on CreatedTs
	CreatedTsAfter  *int64
	CreatedTsBefore *int64

	Limit *int
}

func (s *Store) CreateStudyRecord(ctx context.Context, create *StudyRecord) (*StudyRecord, error) {
	record, err := s.driver.CreateStudyRecord(ctx, create)
	if err != nil {
		return nil, err
	}

	// Cached aggregates derived from study records are stale now.
	s.invalidator.InvalidateAnalysisCache(ctx, record.UserID, "")
	s.invalidator.InvalidatePattern(ctx, cache.Key(cache.CategoryStudyStats, strconv.Itoa(int(record.UserID))))

	return record, nil
}

func (s *Store) ListStudyRecords(ctx context.Context, find *FindStudyRecord) ([]*StudyRecord, error) {
	return s.driver.ListStudyRecords(ctx, find)
}
