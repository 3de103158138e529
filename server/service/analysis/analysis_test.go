package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mindmap/internal/profile"
	"github.com/hrygo/mindmap/store"
	"github.com/hrygo/mindmap/store/cache"
	"github.com/hrygo/mindmap/store/db/memory"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	backend := cache.NewMockBackend()
	st := store.New(memory.NewDriver(), cache.NewStore(backend, backend), &profile.Profile{Mode: "demo"})
	return NewService(st), st
}

func addRecord(t *testing.T, st *store.Store, userID int32, subject string, minutes int32, score float64, stress int32) {
	t.Helper()
	_, err := st.GetDriver().CreateStudyRecord(context.Background(), &store.StudyRecord{
		UserID:      userID,
		Subject:     subject,
		StudyTime:   minutes,
		Score:       score,
		StressLevel: stress,
	})
	require.NoError(t, err)
}

func TestGetStudyStatistics(t *testing.T) {
	ctx := context.Background()
	service, st := newTestService(t)

	addRecord(t, st, 7, "math", 60, 90, 2)
	addRecord(t, st, 7, "math", 30, 80, 3)
	addRecord(t, st, 7, "physics", 45, 70, 4)
	addRecord(t, st, 8, "math", 120, 95, 1)

	stats, err := service.GetStudyStatistics(ctx, 7, 30)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Sorted by total time, so math first.
	assert.Equal(t, "math", stats[0].Subject)
	assert.Equal(t, int64(90), stats[0].TotalTime)
	assert.InDelta(t, 85.0, stats[0].AverageScore, 0.001)
	assert.InDelta(t, 2.5, stats[0].AvgStress, 0.001)
	assert.Equal(t, 2, stats[0].Sessions)

	assert.Equal(t, "physics", stats[1].Subject)
}

func TestGetStudyStatistics_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	service, st := newTestService(t)

	addRecord(t, st, 7, "math", 60, 90, 2)

	first, err := service.GetStudyStatistics(ctx, 7, 30)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Write through the driver directly so no invalidation fires; the
	// cached aggregate must win until it is invalidated.
	addRecord(t, st, 7, "physics", 45, 70, 4)

	cached, err := service.GetStudyStatistics(ctx, 7, 30)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	require.True(t, service.Invalidate(ctx, 7))

	fresh, err := service.GetStudyStatistics(ctx, 7, 30)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestCreateStudyRecordInvalidatesAggregates(t *testing.T) {
	ctx := context.Background()
	service, st := newTestService(t)

	addRecord(t, st, 7, "math", 60, 90, 2)

	_, err := service.GetStudyStatistics(ctx, 7, 30)
	require.NoError(t, err)

	// Creating a record through the store invalidates cached aggregates.
	_, err = st.CreateStudyRecord(ctx, &store.StudyRecord{
		UserID:    7,
		Subject:   "physics",
		StudyTime: 45,
		Score:     70,
	})
	require.NoError(t, err)

	stats, err := service.GetStudyStatistics(ctx, 7, 30)
	require.NoError(t, err)
	assert.Len(t, stats, 2)
}

func TestAnalyzeStudyPatterns(t *testing.T) {
	ctx := context.Background()
	service, st := newTestService(t)

	addRecord(t, st, 7, "math", 60, 95, 2)
	addRecord(t, st, 7, "math", 50, 90, 2)
	addRecord(t, st, 7, "physics", 200, 60, 5)
	addRecord(t, st, 7, "physics", 190, 55, 5)

	_, err := st.GetDriver().CreateMistakeRecord(ctx, &store.MistakeRecord{
		UserID:      7,
		Subject:     "physics",
		MistakeType: "calculation",
		IsRepeated:  true,
	})
	require.NoError(t, err)

	patterns, err := service.AnalyzeStudyPatterns(ctx, 7, 30)
	require.NoError(t, err)

	assert.Equal(t, "physics", patterns.MostStudied)
	assert.Equal(t, "math", patterns.MostEfficient)
	assert.Contains(t, patterns.HighStressSubjects, "physics")
	assert.NotContains(t, patterns.HighStressSubjects, "math")

	require.Len(t, patterns.WeakPoints, 1)
	assert.Equal(t, "calculation", patterns.WeakPoints[0].MistakeType)
	assert.Equal(t, 1, patterns.WeakPoints[0].Repeated)

	// Above-mean sessions are the math ones, so the optimum tracks them.
	assert.Equal(t, 55, patterns.OptimalSessionMinutes)
}

func TestAnalyzeStudyPatterns_NoRecords(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	patterns, err := service.AnalyzeStudyPatterns(ctx, 7, 30)
	require.NoError(t, err)

	assert.Empty(t, patterns.MostStudied)
	assert.Equal(t, defaultSessionMinutes, patterns.OptimalSessionMinutes)
}

func TestPredictPerformance(t *testing.T) {
	ctx := context.Background()
	service, st := newTestService(t)

	addRecord(t, st, 7, "math", 60, 80, 3)
	addRecord(t, st, 7, "physics", 60, 70, 3)

	prediction, err := service.PredictPerformance(ctx, 7, "math")
	require.NoError(t, err)

	assert.Equal(t, "math", prediction.Subject)
	// Equal intensity and stress across subjects: score * 1.1 * 0.95.
	assert.InDelta(t, 83.6, prediction.PredictedScore, 0.01)
	assert.InDelta(t, 0.6, prediction.Confidence, 0.01)
	require.Len(t, prediction.Factors, 3)
}

func TestPredictPerformance_UnknownSubject(t *testing.T) {
	ctx := context.Background()
	service, st := newTestService(t)

	addRecord(t, st, 7, "math", 60, 80, 3)

	prediction, err := service.PredictPerformance(ctx, 7, "chemistry")
	require.NoError(t, err)
	assert.Zero(t, prediction.PredictedScore)
	assert.Zero(t, prediction.Confidence)
}
