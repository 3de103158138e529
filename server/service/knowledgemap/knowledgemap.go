// Package knowledgemap builds concept graphs from stored nodes and edges.
// Built graphs are cached as binary payloads; the analysis results derived
// from a graph are registered as cache dependents so invalidating a map
// cascades to them.
package knowledgemap

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/hrygo/mindmap/store"
	"github.com/hrygo/mindmap/store/cache"
)

// ConceptGraph is the computed, cacheable form of a knowledge map.
type ConceptGraph struct {
	MapID   int32
	OwnerID int32
	Subject string
	Nodes   map[int32]GraphNode
	// Adjacency maps a node ID to its outgoing edges. Edges are stored in
	// both directions; concept relations are symmetric.
	Adjacency map[int32][]GraphEdge
}

// GraphNode is one concept within a built graph.
type GraphNode struct {
	ID      int32
	Concept string
	Subject string
	Level   int32
}

// GraphEdge points at a neighboring concept.
type GraphEdge struct {
	TargetID     int32
	Relationship string
	Strength     float64
}

// NodeCount returns the number of concepts in the graph.
func (g *ConceptGraph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of undirected relations in the graph.
func (g *ConceptGraph) EdgeCount() int {
	total := 0
	for _, edges := range g.Adjacency {
		total += len(edges)
	}
	return total / 2
}

// Neighbors returns the IDs of concepts directly related to nodeID.
func (g *ConceptGraph) Neighbors(nodeID int32) []int32 {
	edges := g.Adjacency[nodeID]
	ids := make([]int32, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.TargetID)
	}
	return ids
}

// CentralConcept is a concept ranked by weighted degree.
type CentralConcept struct {
	Concept string  `json:"concept"`
	Degree  int     `json:"degree"`
	Weight  float64 `json:"weight"`
}

// CentralConcepts returns up to limit concepts ordered by the summed
// strength of their relations, strongest first.
func (g *ConceptGraph) CentralConcepts(limit int) []CentralConcept {
	concepts := make([]CentralConcept, 0, len(g.Nodes))
	for id, node := range g.Nodes {
		edges := g.Adjacency[id]
		var weight float64
		for _, edge := range edges {
			weight += edge.Strength
		}
		concepts = append(concepts, CentralConcept{
			Concept: node.Concept,
			Degree:  len(edges),
			Weight:  weight,
		})
	}

	sort.Slice(concepts, func(i, j int) bool {
		if concepts[i].Weight != concepts[j].Weight {
			return concepts[i].Weight > concepts[j].Weight
		}
		return concepts[i].Concept < concepts[j].Concept
	})
	if limit > 0 && len(concepts) > limit {
		concepts = concepts[:limit]
	}
	return concepts
}

// Service builds and caches concept graphs.
type Service struct {
	store *store.Store
}

// NewService creates a knowledge map service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// GetGraph returns the concept graph for a map, from cache when possible.
func (s *Service) GetGraph(ctx context.Context, mapID int32) (*ConceptGraph, error) {
	var cached ConceptGraph
	if s.store.Cache().GetCachedKnowledgeMap(ctx, mapID, &cached) {
		return &cached, nil
	}

	graph, err := s.buildGraph(ctx, mapID)
	if err != nil {
		return nil, err
	}

	if s.store.Cache().CacheKnowledgeMap(ctx, mapID, graph, 0) {
		s.registerDependents(graph)
	}

	return graph, nil
}

// Invalidate drops the cached graph plus its registered dependents.
func (s *Service) Invalidate(ctx context.Context, mapID int32) bool {
	return s.store.Invalidator().InvalidateKnowledgeMap(ctx, mapID)
}

// buildGraph assembles the graph from stored nodes and edges.
func (s *Service) buildGraph(ctx context.Context, mapID int32) (*ConceptGraph, error) {
	knowledgeMap, err := s.store.GetKnowledgeMap(ctx, &store.FindKnowledgeMap{ID: &mapID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get knowledge map")
	}
	if knowledgeMap == nil {
		return nil, errors.Errorf("knowledge map %d not found", mapID)
	}

	nodes, err := s.store.ListConceptNodes(ctx, mapID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list concept nodes")
	}
	edges, err := s.store.ListConceptEdges(ctx, mapID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list concept edges")
	}

	graph := &ConceptGraph{
		MapID:     mapID,
		OwnerID:   knowledgeMap.UserID,
		Subject:   knowledgeMap.Subject,
		Nodes:     make(map[int32]GraphNode, len(nodes)),
		Adjacency: make(map[int32][]GraphEdge),
	}
	for _, node := range nodes {
		graph.Nodes[node.ID] = GraphNode{
			ID:      node.ID,
			Concept: node.Concept,
			Subject: node.Subject,
			Level:   node.Level,
		}
	}
	for _, edge := range edges {
		if _, ok := graph.Nodes[edge.SourceNodeID]; !ok {
			slog.Warn("edge references unknown source node", "map_id", mapID, "node_id", edge.SourceNodeID)
			continue
		}
		if _, ok := graph.Nodes[edge.TargetNodeID]; !ok {
			slog.Warn("edge references unknown target node", "map_id", mapID, "node_id", edge.TargetNodeID)
			continue
		}
		graph.Adjacency[edge.SourceNodeID] = append(graph.Adjacency[edge.SourceNodeID], GraphEdge{
			TargetID:     edge.TargetNodeID,
			Relationship: edge.Relationship,
			Strength:     edge.Strength,
		})
		graph.Adjacency[edge.TargetNodeID] = append(graph.Adjacency[edge.TargetNodeID], GraphEdge{
			TargetID:     edge.SourceNodeID,
			Relationship: edge.Relationship,
			Strength:     edge.Strength,
		})
	}

	return graph, nil
}

// registerDependents wires the map's cache key to the analysis results that
// are computed from it, so invalidating the map cascades to them.
func (s *Service) registerDependents(graph *ConceptGraph) {
	ownerID := strconv.Itoa(int(graph.OwnerID))
	mapKey := cache.Key(cache.CategoryKnowledgeMap, strconv.Itoa(int(graph.MapID)))
	s.store.Invalidator().RegisterDependency(mapKey,
		cache.Key(cache.AnalysisCategory("weak_points"), ownerID),
		cache.Key(cache.AnalysisCategory("patterns"), ownerID),
	)
}
