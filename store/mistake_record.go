package store

import (
	"context"
)

// MistakeRecord is the object representing one recorded mistake.
type MistakeRecord struct {
	ID                int32
	UserID            int32
	Subject           string
	MistakeType       string
	ProblemDifficulty string
	TimeSpent         int32 // minutes
	IsRepeated        bool
	StressLevel       int32 // 1-5
	CreatedTs         int64
}

// FindMistakeRecord is the find condition for mistake records.
type FindMistakeRecord struct {
	UserID      *int32
	Subject     *string
	MistakeType *string

	CreatedTsAfter *int64

	Limit *int
}

func (s *Store) CreateMistakeRecord(ctx context.Context, create *MistakeRecord) (*MistakeRecord, error) {
	record, err := s.driver.CreateMistakeRecord(ctx, create)
	if err != nil {
		return nil, err
	}

	s.invalidator.InvalidateAnalysisCache(ctx, record.UserID, "")

	return record, nil
}

func (s *Store) ListMistakeRecords(ctx context.Context, find *FindMistakeRecord) ([]*MistakeRecord, error) {
	return s.driver.ListMistakeRecords(ctx, find)
}
