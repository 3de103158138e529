// Package v1 exposes the HTTP API: authentication, study records and
// mistakes, analysis, knowledge maps, and cache administration.
package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/mindmap/internal/profile"
	"github.com/hrygo/mindmap/server/auth"
	"github.com/hrygo/mindmap/internal/observability"
	"github.com/hrygo/mindmap/server/service/analysis"
	"github.com/hrygo/mindmap/server/service/knowledgemap"
	"github.com/hrygo/mindmap/store"
)

// userIDContextKey is the echo context key holding the authenticated user ID.
const userIDContextKey = "user-id"

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	Authenticator *auth.Authenticator
	Analysis      *analysis.Service
	KnowledgeMap  *knowledgemap.Service

	// Metrics is optional; the overview endpoint reports zeros without it.
	Metrics *observability.Metrics
}

func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store) *APIV1Service {
	return &APIV1Service{
		Profile:       profile,
		Store:         store,
		Authenticator: auth.New(store, secret),
		Analysis:      analysis.NewService(store),
		KnowledgeMap:  knowledgemap.NewService(store),
	}
}

// RegisterRoutes registers all v1 routes with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	apiV1 := echoServer.Group("/api/v1")

	// Public routes.
	apiV1.POST("/auth/signup", s.SignUp)
	apiV1.POST("/auth/signin", s.SignIn)
	apiV1.POST("/auth/refresh", s.RefreshToken)

	// Authenticated routes.
	authed := apiV1.Group("", s.authMiddleware)
	authed.POST("/auth/signout", s.SignOut)
	authed.GET("/auth/session", s.GetSession)

	authed.POST("/study/records", s.CreateStudyRecord)
	authed.GET("/study/records", s.ListStudyRecords)
	authed.POST("/study/mistakes", s.CreateMistakeRecord)
	authed.GET("/study/mistakes", s.ListMistakeRecords)
	authed.GET("/study/statistics", s.GetStudyStatistics)
	authed.GET("/study/patterns", s.GetStudyPatterns)
	authed.GET("/study/prediction", s.GetPrediction)

	authed.POST("/maps", s.CreateKnowledgeMap)
	authed.GET("/maps/:id/graph", s.GetKnowledgeMapGraph)
	authed.GET("/maps/:id/central", s.GetCentralConcepts)
	authed.POST("/maps/:id/nodes", s.CreateConceptNode)
	authed.POST("/maps/:id/edges", s.CreateConceptEdge)

	authed.GET("/system/metrics/overview", s.GetMetricsOverview)

	authed.GET("/cache/stats", s.GetCacheStats)
	authed.POST("/cache/invalidate", s.InvalidateCache)
	authed.POST("/cache/clear", s.ClearCache)
}

// authMiddleware verifies the bearer access token and stores the user ID in
// the request context.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := s.Authenticator.VerifyToken(token, auth.TokenTypeAccess)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		c.Set(userIDContextKey, claims.UserID)
		return next(c)
	}
}

// currentUserID returns the authenticated user's ID from the context.
func currentUserID(c echo.Context) int32 {
	userID, _ := c.Get(userIDContextKey).(int32)
	return userID
}
