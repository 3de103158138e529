package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/mindmap/store"
)

type CreateStudyRecordRequest struct {
	Subject     string  `json:"subject"`
	StudyTime   int32   `json:"study_time"`
	Score       float64 `json:"score"`
	StressLevel int32   `json:"stress_level"`
}

type CreateMistakeRecordRequest struct {
	Subject           string `json:"subject"`
	MistakeType       string `json:"mistake_type"`
	ProblemDifficulty string `json:"problem_difficulty"`
	TimeSpent         int32  `json:"time_spent"`
	IsRepeated        bool   `json:"is_repeated"`
	StressLevel       int32  `json:"stress_level"`
}

// CreateStudyRecord records one study session. Cached aggregates for the user
// are invalidated by the store.
// POST /api/v1/study/records
func (s *APIV1Service) CreateStudyRecord(c echo.Context) error {
	var request CreateStudyRecordRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request"})
	}
	if request.Subject == "" || request.StudyTime <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "subject and a positive study_time are required"})
	}
	if request.Score < 0 || request.Score > 100 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "score must be between 0 and 100"})
	}

	record, err := s.Store.CreateStudyRecord(c.Request().Context(), &store.StudyRecord{
		UserID:      currentUserID(c),
		Subject:     request.Subject,
		StudyTime:   request.StudyTime,
		Score:       request.Score,
		StressLevel: clampStress(request.StressLevel),
	})
	if err != nil {
		slog.Error("failed to create study record", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create study record"})
	}

	return c.JSON(http.StatusOK, record)
}

// ListStudyRecords returns the user's study records, optionally filtered by
// subject and capped by limit.
// GET /api/v1/study/records
func (s *APIV1Service) ListStudyRecords(c echo.Context) error {
	userID := currentUserID(c)
	find := &store.FindStudyRecord{UserID: &userID}
	if subject := c.QueryParam("subject"); subject != "" {
		find.Subject = &subject
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		find.Limit = &limit
	}

	records, err := s.Store.ListStudyRecords(c.Request().Context(), find)
	if err != nil {
		slog.Error("failed to list study records", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list study records"})
	}
	return c.JSON(http.StatusOK, records)
}

// CreateMistakeRecord records one mistake.
// POST /api/v1/study/mistakes
func (s *APIV1Service) CreateMistakeRecord(c echo.Context) error {
	var request CreateMistakeRecordRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request"})
	}
	if request.Subject == "" || request.MistakeType == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "subject and mistake_type are required"})
	}

	record, err := s.Store.CreateMistakeRecord(c.Request().Context(), &store.MistakeRecord{
		UserID:            currentUserID(c),
		Subject:           request.Subject,
		MistakeType:       request.MistakeType,
		ProblemDifficulty: request.ProblemDifficulty,
		TimeSpent:         request.TimeSpent,
		IsRepeated:        request.IsRepeated,
		StressLevel:       clampStress(request.StressLevel),
	})
	if err != nil {
		slog.Error("failed to create mistake record", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create mistake record"})
	}

	return c.JSON(http.StatusOK, record)
}

// ListMistakeRecords returns the user's mistake records.
// GET /api/v1/study/mistakes
func (s *APIV1Service) ListMistakeRecords(c echo.Context) error {
	userID := currentUserID(c)
	find := &store.FindMistakeRecord{UserID: &userID}
	if subject := c.QueryParam("subject"); subject != "" {
		find.Subject = &subject
	}
	if mistakeType := c.QueryParam("type"); mistakeType != "" {
		find.MistakeType = &mistakeType
	}

	records, err := s.Store.ListMistakeRecords(c.Request().Context(), find)
	if err != nil {
		slog.Error("failed to list mistake records", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list mistake records"})
	}
	return c.JSON(http.StatusOK, records)
}

// GetStudyStatistics returns per-subject statistics over the trailing window.
// GET /api/v1/study/statistics
func (s *APIV1Service) GetStudyStatistics(c echo.Context) error {
	stats, err := s.Analysis.GetStudyStatistics(c.Request().Context(), currentUserID(c), queryDays(c))
	if err != nil {
		slog.Error("failed to compute study statistics", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to compute statistics"})
	}
	return c.JSON(http.StatusOK, stats)
}

// GetStudyPatterns returns the study pattern summary.
// GET /api/v1/study/patterns
func (s *APIV1Service) GetStudyPatterns(c echo.Context) error {
	patterns, err := s.Analysis.AnalyzeStudyPatterns(c.Request().Context(), currentUserID(c), queryDays(c))
	if err != nil {
		slog.Error("failed to analyze study patterns", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to analyze patterns"})
	}
	return c.JSON(http.StatusOK, patterns)
}

// GetPrediction returns the performance prediction for a subject.
// GET /api/v1/study/prediction?subject=math
func (s *APIV1Service) GetPrediction(c echo.Context) error {
	subject := c.QueryParam("subject")
	if subject == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "subject is required"})
	}

	prediction, err := s.Analysis.PredictPerformance(c.Request().Context(), currentUserID(c), subject)
	if err != nil {
		slog.Error("failed to predict performance", "subject", subject, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to predict performance"})
	}
	return c.JSON(http.StatusOK, prediction)
}

func queryDays(c echo.Context) int {
	days, err := strconv.Atoi(c.QueryParam("days"))
	if err != nil || days <= 0 {
		return 30
	}
	return days
}

func clampStress(level int32) int32 {
	if level < 1 {
		return 1
	}
	if level > 5 {
		return 5
	}
	return level
}
