package v1

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/mindmap/store"
)

type CreateKnowledgeMapRequest struct {
	Subject string `json:"subject"`
}

type CreateConceptNodeRequest struct {
	Concept string `json:"concept"`
	Subject string `json:"subject"`
	Level   int32  `json:"level"`
}

type CreateConceptEdgeRequest struct {
	SourceNodeID int32   `json:"source_node_id"`
	TargetNodeID int32   `json:"target_node_id"`
	Relationship string  `json:"relationship"`
	Strength     float64 `json:"strength"`
}

// CreateKnowledgeMap creates an empty concept map for a subject.
// POST /api/v1/maps
func (s *APIV1Service) CreateKnowledgeMap(c echo.Context) error {
	var request CreateKnowledgeMapRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request"})
	}
	if request.Subject == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "subject is required"})
	}

	now := time.Now().Unix()
	knowledgeMap, err := s.Store.CreateKnowledgeMap(c.Request().Context(), &store.KnowledgeMap{
		UserID:    currentUserID(c),
		Subject:   request.Subject,
		CreatedTs: now,
		UpdatedTs: now,
	})
	if err != nil {
		slog.Error("failed to create knowledge map", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create knowledge map"})
	}
	return c.JSON(http.StatusOK, knowledgeMap)
}

// GetKnowledgeMapGraph returns the built concept graph for a map.
// GET /api/v1/maps/:id/graph
func (s *APIV1Service) GetKnowledgeMapGraph(c echo.Context) error {
	mapID, _, err := s.ownedMap(c)
	if err != nil {
		return err
	}

	graph, err := s.KnowledgeMap.GetGraph(c.Request().Context(), mapID)
	if err != nil {
		slog.Error("failed to build concept graph", "map_id", mapID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build graph"})
	}
	return c.JSON(http.StatusOK, graph)
}

// GetCentralConcepts returns the most connected concepts of a map.
// GET /api/v1/maps/:id/central?limit=5
func (s *APIV1Service) GetCentralConcepts(c echo.Context) error {
	mapID, _, err := s.ownedMap(c)
	if err != nil {
		return err
	}

	graph, err := s.KnowledgeMap.GetGraph(c.Request().Context(), mapID)
	if err != nil {
		slog.Error("failed to build concept graph", "map_id", mapID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build graph"})
	}

	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = 5
	}
	return c.JSON(http.StatusOK, graph.CentralConcepts(limit))
}

// CreateConceptNode adds a concept to a map. The cached graph is invalidated
// by the store.
// POST /api/v1/maps/:id/nodes
func (s *APIV1Service) CreateConceptNode(c echo.Context) error {
	mapID, _, err := s.ownedMap(c)
	if err != nil {
		return err
	}

	var request CreateConceptNodeRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request"})
	}
	if request.Concept == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "concept is required"})
	}

	node, err := s.Store.CreateConceptNode(c.Request().Context(), &store.ConceptNode{
		MapID:     mapID,
		Concept:   request.Concept,
		Subject:   request.Subject,
		Level:     request.Level,
		CreatedTs: time.Now().Unix(),
	})
	if err != nil {
		slog.Error("failed to create concept node", "map_id", mapID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create concept node"})
	}
	return c.JSON(http.StatusOK, node)
}

// CreateConceptEdge links two concepts in a map.
// POST /api/v1/maps/:id/edges
func (s *APIV1Service) CreateConceptEdge(c echo.Context) error {
	mapID, _, err := s.ownedMap(c)
	if err != nil {
		return err
	}

	var request CreateConceptEdgeRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request"})
	}
	if request.SourceNodeID == request.TargetNodeID {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "source and target must differ"})
	}
	if request.Strength < 0 || request.Strength > 1 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "strength must be between 0 and 1"})
	}

	edge, err := s.Store.CreateConceptEdge(c.Request().Context(), &store.ConceptEdge{
		MapID:        mapID,
		SourceNodeID: request.SourceNodeID,
		TargetNodeID: request.TargetNodeID,
		Relationship: request.Relationship,
		Strength:     request.Strength,
		CreatedTs:    time.Now().Unix(),
	})
	if err != nil {
		slog.Error("failed to create concept edge", "map_id", mapID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create concept edge"})
	}
	return c.JSON(http.StatusOK, edge)
}

// ownedMap parses the :id parameter and verifies the map belongs to the
// current user.
func (s *APIV1Service) ownedMap(c echo.Context) (int32, *store.KnowledgeMap, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid map id")
	}
	mapID := int32(id)

	knowledgeMap, err := s.Store.GetKnowledgeMap(c.Request().Context(), &store.FindKnowledgeMap{ID: &mapID})
	if err != nil {
		slog.Error("failed to get knowledge map", "map_id", mapID, "error", err)
		return 0, nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to get knowledge map")
	}
	if knowledgeMap == nil || knowledgeMap.UserID != currentUserID(c) {
		return 0, nil, echo.NewHTTPError(http.StatusNotFound, "knowledge map not found")
	}
	return mapID, knowledgeMap, nil
}
