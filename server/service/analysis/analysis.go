// Package analysis computes study-pattern summaries, per-subject statistics
// and score predictions from raw study records. Results go through the cache
// (cache-aside): read the cache first, recompute from the store on a miss,
// then repopulate.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/hrygo/mindmap/store"
	"github.com/hrygo/mindmap/store/cache"
)

// Analysis type tags used in cache keys.
const (
	TypePatterns   = "patterns"
	TypePrediction = "prediction"
	TypeWeakPoints = "weak_points"
)

// SubjectStats aggregates study records for one subject.
type SubjectStats struct {
	Subject      string  `json:"subject"`
	TotalTime    int64   `json:"total_time"`
	AverageScore float64 `json:"avg_score"`
	AvgStress    float64 `json:"avg_stress"`
	Sessions     int     `json:"sessions"`
}

// WeakConcept is a below-average concept surfaced from mistake records.
type WeakConcept struct {
	Subject     string `json:"subject"`
	MistakeType string `json:"mistake_type"`
	Frequency   int    `json:"frequency"`
	Repeated    int    `json:"repeated"`
}

// StudyPatterns summarizes a user's recent study behavior.
type StudyPatterns struct {
	MostStudied           string         `json:"most_studied"`
	MostEfficient         string         `json:"most_efficient"`
	OptimalSessionMinutes int            `json:"optimal_session_minutes"`
	HighStressSubjects    []string       `json:"high_stress_subjects"`
	WeakPoints            []WeakConcept  `json:"weak_points"`
	Statistics            []SubjectStats `json:"statistics"`
}

// PredictionFactor is an input the prediction is based on.
type PredictionFactor struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Prediction is a performance estimate for one subject.
type Prediction struct {
	Subject        string             `json:"subject"`
	PredictedScore float64            `json:"predicted_score"`
	Confidence     float64            `json:"confidence"`
	Factors        []PredictionFactor `json:"factors"`
}

// defaultSessionMinutes is returned when the records are too sparse to
// estimate an optimal session length.
const defaultSessionMinutes = 45

// Service computes and caches learning analysis.
type Service struct {
	store *store.Store

	// group collapses concurrent recomputes of the same cache entry.
	group singleflight.Group
}

// NewService creates an analysis service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// GetStudyStatistics returns per-subject statistics for the user's records
// over the trailing days window, from cache when possible.
func (s *Service) GetStudyStatistics(ctx context.Context, userID int32, days int) ([]SubjectStats, error) {
	var cached []SubjectStats
	if s.store.Cache().GetCachedStudyStatistics(ctx, userID, &cached) {
		return cached, nil
	}

	v, err, _ := s.group.Do(fmt.Sprintf("stats:%d", userID), func() (any, error) {
		stats, err := s.computeStatistics(ctx, userID, days)
		if err != nil {
			return nil, err
		}
		s.store.Cache().CacheStudyStatistics(ctx, userID, stats, 0)
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]SubjectStats), nil
}

// AnalyzeStudyPatterns returns the pattern summary for a user, from cache
// when possible.
func (s *Service) AnalyzeStudyPatterns(ctx context.Context, userID int32, days int) (*StudyPatterns, error) {
	var cached StudyPatterns
	if s.store.Cache().GetCachedAnalysis(ctx, userID, TypePatterns, &cached) {
		return &cached, nil
	}

	v, err, _ := s.group.Do(fmt.Sprintf("patterns:%d", userID), func() (any, error) {
		patterns, err := s.computePatterns(ctx, userID, days)
		if err != nil {
			return nil, err
		}
		s.store.Cache().CacheAnalysisResults(ctx, userID, TypePatterns, patterns, 0)
		return patterns, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*StudyPatterns), nil
}

// PredictPerformance estimates the user's next score for a subject.
func (s *Service) PredictPerformance(ctx context.Context, userID int32, subject string) (*Prediction, error) {
	analysisType := TypePrediction + ":" + subject

	var cached Prediction
	if s.store.Cache().GetCachedAnalysis(ctx, userID, analysisType, &cached) {
		return &cached, nil
	}

	v, err, _ := s.group.Do(fmt.Sprintf("prediction:%d:%s", userID, subject), func() (any, error) {
		prediction, err := s.computePrediction(ctx, userID, subject)
		if err != nil {
			return nil, err
		}
		s.store.Cache().CacheAnalysisResults(ctx, userID, analysisType, prediction, 0)
		return prediction, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Prediction), nil
}

// Invalidate drops every cached analysis entry for the user, including the
// study statistics aggregate. Session data is left alone.
func (s *Service) Invalidate(ctx context.Context, userID int32) bool {
	ok := s.store.Invalidator().InvalidateAnalysisCache(ctx, userID, "")
	statsKey := cache.Key(cache.CategoryStudyStats, fmt.Sprintf("%d", userID))
	return s.store.Invalidator().InvalidatePattern(ctx, statsKey) && ok
}

func (s *Service) computeStatistics(ctx context.Context, userID int32, days int) ([]SubjectStats, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days).Unix()

	records, err := s.store.ListStudyRecords(ctx, &store.FindStudyRecord{
		UserID:         &userID,
		CreatedTsAfter: &since,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list study records")
	}

	type bucket struct {
		time   int64
		score  float64
		stress float64
		count  int
	}
	buckets := make(map[string]*bucket)
	for _, record := range records {
		b, ok := buckets[record.Subject]
		if !ok {
			b = &bucket{}
			buckets[record.Subject] = b
		}
		b.time += int64(record.StudyTime)
		b.score += record.Score
		b.stress += float64(record.StressLevel)
		b.count++
	}

	stats := make([]SubjectStats, 0, len(buckets))
	for subject, b := range buckets {
		stats = append(stats, SubjectStats{
			Subject:      subject,
			TotalTime:    b.time,
			AverageScore: b.score / float64(b.count),
			AvgStress:    b.stress / float64(b.count),
			Sessions:     b.count,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].TotalTime > stats[j].TotalTime
	})
	return stats, nil
}

func (s *Service) computePatterns(ctx context.Context, userID int32, days int) (*StudyPatterns, error) {
	stats, err := s.computeStatistics(ctx, userID, days)
	if err != nil {
		return nil, err
	}

	patterns := &StudyPatterns{
		OptimalSessionMinutes: defaultSessionMinutes,
		Statistics:            stats,
	}
	if len(stats) == 0 {
		return patterns, nil
	}

	var totalStress float64
	bestScore := stats[0].AverageScore
	patterns.MostStudied = stats[0].Subject // stats are sorted by total time
	patterns.MostEfficient = stats[0].Subject
	for _, st := range stats {
		totalStress += st.AvgStress
		if st.AverageScore > bestScore {
			bestScore = st.AverageScore
			patterns.MostEfficient = st.Subject
		}
	}

	meanStress := totalStress / float64(len(stats))
	for _, st := range stats {
		if st.AvgStress > meanStress {
			patterns.HighStressSubjects = append(patterns.HighStressSubjects, st.Subject)
		}
	}

	if optimal, ok := s.optimalSessionLength(ctx, userID, days); ok {
		patterns.OptimalSessionMinutes = optimal
	}

	weakPoints, err := s.weakPoints(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	patterns.WeakPoints = weakPoints

	return patterns, nil
}

// optimalSessionLength estimates the session length that correlates with
// above-average scores: the mean duration of sessions scoring better than
// the user's overall mean.
func (s *Service) optimalSessionLength(ctx context.Context, userID int32, days int) (int, bool) {
	since := time.Now().AddDate(0, 0, -days).Unix()
	records, err := s.store.ListStudyRecords(ctx, &store.FindStudyRecord{
		UserID:         &userID,
		CreatedTsAfter: &since,
	})
	if err != nil || len(records) < 2 {
		return 0, false
	}

	var totalScore float64
	for _, record := range records {
		totalScore += record.Score
	}
	meanScore := totalScore / float64(len(records))

	var goodTime int64
	var goodCount int
	for _, record := range records {
		if record.Score >= meanScore {
			goodTime += int64(record.StudyTime)
			goodCount++
		}
	}
	if goodCount == 0 {
		return 0, false
	}
	return int(goodTime / int64(goodCount)), true
}

// weakPoints groups recent mistakes by subject and type, flagging the
// frequent and the repeated ones first.
func (s *Service) weakPoints(ctx context.Context, userID int32, days int) ([]WeakConcept, error) {
	since := time.Now().AddDate(0, 0, -days).Unix()
	mistakes, err := s.store.ListMistakeRecords(ctx, &store.FindMistakeRecord{
		UserID:         &userID,
		CreatedTsAfter: &since,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list mistake records")
	}

	type groupKey struct {
		subject     string
		mistakeType string
	}
	groups := make(map[groupKey]*WeakConcept)
	for _, mistake := range mistakes {
		key := groupKey{subject: mistake.Subject, mistakeType: mistake.MistakeType}
		weak, ok := groups[key]
		if !ok {
			weak = &WeakConcept{Subject: mistake.Subject, MistakeType: mistake.MistakeType}
			groups[key] = weak
		}
		weak.Frequency++
		if mistake.IsRepeated {
			weak.Repeated++
		}
	}

	weakPoints := make([]WeakConcept, 0, len(groups))
	for _, weak := range groups {
		weakPoints = append(weakPoints, *weak)
	}
	sort.Slice(weakPoints, func(i, j int) bool {
		if weakPoints[i].Repeated != weakPoints[j].Repeated {
			return weakPoints[i].Repeated > weakPoints[j].Repeated
		}
		if weakPoints[i].Frequency != weakPoints[j].Frequency {
			return weakPoints[i].Frequency > weakPoints[j].Frequency
		}
		return weakPoints[i].Subject < weakPoints[j].Subject
	})
	return weakPoints, nil
}

// computePrediction applies a linear estimate: the current average adjusted
// up by relative study intensity and down by relative stress.
func (s *Service) computePrediction(ctx context.Context, userID int32, subject string) (*Prediction, error) {
	stats, err := s.computeStatistics(ctx, userID, 30)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return &Prediction{Subject: subject}, nil
	}

	var subjectStats *SubjectStats
	var totalTime int64
	var totalStress float64
	for i := range stats {
		totalTime += stats[i].TotalTime
		totalStress += stats[i].AvgStress
		if stats[i].Subject == subject {
			subjectStats = &stats[i]
		}
	}
	if subjectStats == nil {
		return &Prediction{Subject: subject}, nil
	}

	meanTime := float64(totalTime) / float64(len(stats))
	meanStress := totalStress / float64(len(stats))

	intensityRatio := float64(subjectStats.TotalTime) / meanTime
	predicted := subjectStats.AverageScore * (1 + 0.1*intensityRatio)
	if meanStress > 0 {
		predicted *= 1 - 0.05*(subjectStats.AvgStress/meanStress)
	}
	if predicted > 100 {
		predicted = 100
	}

	confidence := 0.5 + 0.1*intensityRatio
	if confidence > 0.9 {
		confidence = 0.9
	}

	return &Prediction{
		Subject:        subject,
		PredictedScore: roundTo(predicted, 2),
		Confidence:     roundTo(confidence, 2),
		Factors: []PredictionFactor{
			{Name: "current_score", Value: roundTo(subjectStats.AverageScore, 2)},
			{Name: "study_intensity", Value: float64(subjectStats.TotalTime)},
			{Name: "stress_level", Value: roundTo(subjectStats.AvgStress, 2)},
		},
	}, nil
}

func roundTo(v float64, places int) float64 {
	factor := 1.0
	for i := 0; i < places; i++ {
		factor *= 10
	}
	return float64(int64(v*factor+0.5)) / factor
}
