package store

import (
	"context"
)

// KnowledgeMap is the object representing a subject's concept map.
type KnowledgeMap struct {
	ID        int32
	UserID    int32
	Subject   string
	CreatedTs int64
	UpdatedTs int64
}

// FindKnowledgeMap is the find condition for knowledge maps.
type FindKnowledgeMap struct {
	ID     *int32
	UserID *int32
}

// ConceptNode is a single concept within a knowledge map.
type ConceptNode struct {
	ID        int32
	MapID     int32
	Concept   string
	Subject   string
	Level     int32
	CreatedTs int64
}

// ConceptEdge links two concepts within a knowledge map.
type ConceptEdge struct {
	ID           int32
	MapID        int32
	SourceNodeID int32
	TargetNodeID int32
	Relationship string
	Strength     float64
	CreatedTs    int64
}

func (s *Store) CreateKnowledgeMap(ctx context.Context, create *KnowledgeMap) (*KnowledgeMap, error) {
	return s.driver.CreateKnowledgeMap(ctx, create)
}

func (s *Store) GetKnowledgeMap(ctx context.Context, find *FindKnowledgeMap) (*KnowledgeMap, error) {
	return s.driver.GetKnowledgeMap(ctx, find)
}

func (s *Store) CreateConceptNode(ctx context.Context, create *ConceptNode) (*ConceptNode, error) {
	node, err := s.driver.CreateConceptNode(ctx, create)
	if err != nil {
		return nil, err
	}

	// The cached graph no longer reflects the stored map.
	s.invalidator.InvalidateKnowledgeMap(ctx, node.MapID)

	return node, nil
}

func (s *Store) ListConceptNodes(ctx context.Context, mapID int32) ([]*ConceptNode, error) {
	return s.driver.ListConceptNodes(ctx, mapID)
}

func (s *Store) CreateConceptEdge(ctx context.Context, create *ConceptEdge) (*ConceptEdge, error) {
	edge, err := s.driver.CreateConceptEdge(ctx, create)
	if err != nil {
		return nil, err
	}

	s.invalidator.InvalidateKnowledgeMap(ctx, edge.MapID)

	return edge, nil
}

func (s *Store) ListConceptEdges(ctx context.Context, mapID int32) ([]*ConceptEdge, error) {
	return s.driver.ListConceptEdges(ctx, mapID)
}
