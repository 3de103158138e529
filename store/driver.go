package store

import (
	"context"
)

// Driver is the interface to the system of record. The cache layer sits in
// front of it; on a cache miss callers recompute from the driver and
// repopulate the cache.
type Driver interface {
	Close() error

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	GetUser(ctx context.Context, find *FindUser) (*User, error)
	UpdateUserLastLogin(ctx context.Context, userID int32, lastLoginTs int64) error

	// StudyRecord model related methods.
	CreateStudyRecord(ctx context.Context, create *StudyRecord) (*StudyRecord, error)
	ListStudyRecords(ctx context.Context, find *FindStudyRecord) ([]*StudyRecord, error)

	// MistakeRecord model related methods.
	CreateMistakeRecord(ctx context.Context, create *MistakeRecord) (*MistakeRecord, error)
	ListMistakeRecords(ctx context.Context, find *FindMistakeRecord) ([]*MistakeRecord, error)

	// KnowledgeMap model related methods.
	CreateKnowledgeMap(ctx context.Context, create *KnowledgeMap) (*KnowledgeMap, error)
	GetKnowledgeMap(ctx context.Context, find *FindKnowledgeMap) (*KnowledgeMap, error)
	CreateConceptNode(ctx context.Context, create *ConceptNode) (*ConceptNode, error)
	ListConceptNodes(ctx context.Context, mapID int32) ([]*ConceptNode, error)
	CreateConceptEdge(ctx context.Context, create *ConceptEdge) (*ConceptEdge, error)
	ListConceptEdges(ctx context.Context, mapID int32) ([]*ConceptEdge, error)
}
