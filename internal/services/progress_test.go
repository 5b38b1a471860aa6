package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/kocahmet1/ultrasat-progress/internal/data/repos"
	"github.com/kocahmet1/ultrasat-progress/internal/data/repos/testutil"
	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"github.com/kocahmet1/ultrasat-progress/internal/modules/progress"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/apperr"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
)

var fixedNow = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

type progressEnv struct {
	db    *gorm.DB
	set   repos.Set
	stats StatsCacheWriter
	svc   *progressService
}

func newProgressEnv(t *testing.T, db *gorm.DB) progressEnv {
	t.Helper()
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	stats := NewStatsCacheWriter(db, log, set.StatsCache, nil)
	svc := NewProgressService(db, log, progress.DefaultPolicy(), set.Users, set.Attempts, set.Exams, set.Progress, stats).(*progressService)
	svc.now = func() time.Time { return fixedNow }
	return progressEnv{db: db, set: set, stats: stats, svc: svc}
}

func TestRecomputeUser_CacheIsAView(t *testing.T) {
	env := newProgressEnv(t, testutil.DB(t))
	ctx := context.Background()
	userID := testutil.UniqueID("view")

	start := fixedNow.Add(-24 * time.Hour)
	testutil.SeedAttempts(t, ctx, env.db, userID, "linear", []string{"slope"}, start, true, true, false, true)
	testutil.SeedAttempts(t, ctx, env.db, userID, "ratios", nil, start.Add(time.Hour), true, false)
	if err := env.set.Exams.Record(dbctx.With(ctx), &types.ExamProgress{UserID: userID, ExamID: "exam-1"}); err != nil {
		t.Fatalf("seed exam: %v", err)
	}

	res, err := env.svc.RecomputeUser(ctx, userID)
	if err != nil {
		t.Fatalf("RecomputeUser: %v", err)
	}
	if res.Outcome != CacheCreated {
		t.Fatalf("Outcome: want=%s got=%s", CacheCreated, res.Outcome)
	}
	if res.Subcategories != 2 {
		t.Fatalf("Subcategories: want=2 got=%d", res.Subcategories)
	}
	// 6 quiz attempts + 1 exam; accuracy 4/6 over quiz attempts only.
	if res.Summary.TotalQuestions != 7 || res.Summary.Accuracy != 67 {
		t.Fatalf("Summary: want=(7,67) got=(%d,%d)", res.Summary.TotalQuestions, res.Summary.Accuracy)
	}

	first, err := env.set.StatsCache.Get(dbctx.With(ctx), userID)
	if err != nil || first == nil {
		t.Fatalf("cache row: got=%v err=%v", first, err)
	}

	if _, err := env.set.StatsCache.DeleteByUserIDs(dbctx.With(ctx), []string{userID}); err != nil {
		t.Fatalf("delete cache row: %v", err)
	}
	res, err = env.svc.RecomputeUser(ctx, userID)
	if err != nil {
		t.Fatalf("RecomputeUser(again): %v", err)
	}
	if res.Outcome != CacheCreated {
		t.Fatalf("Outcome after delete: want=%s got=%s", CacheCreated, res.Outcome)
	}
	second, _ := env.set.StatsCache.Get(dbctx.With(ctx), userID)
	if second == nil || second.TotalQuestions != first.TotalQuestions || second.Accuracy != first.Accuracy || !second.LastUpdated.Equal(first.LastUpdated) {
		t.Fatalf("regenerated cache differs: first=%+v second=%+v", first, second)
	}

	res, _ = env.svc.RecomputeUser(ctx, userID)
	if res.Outcome != CacheUpdated {
		t.Fatalf("Outcome on rerun: want=%s got=%s", CacheUpdated, res.Outcome)
	}
}

func TestRecomputeUser_ZeroActivityWritesNothing(t *testing.T) {
	env := newProgressEnv(t, testutil.DB(t))
	ctx := context.Background()
	userID := testutil.UniqueID("idle")

	res, err := env.svc.RecomputeUser(ctx, userID)
	if err != nil {
		t.Fatalf("RecomputeUser: %v", err)
	}
	if res.Outcome != CacheSkipped {
		t.Fatalf("Outcome: want=%s got=%s", CacheSkipped, res.Outcome)
	}
	if row, _ := env.set.StatsCache.Get(dbctx.With(ctx), userID); row != nil {
		t.Fatalf("cache row: want none got=%+v", row)
	}
}

func TestRecomputeUser_NeverLowersStoredLevel(t *testing.T) {
	env := newProgressEnv(t, testutil.DB(t))
	ctx := context.Background()
	userID := testutil.UniqueID("monotonic")

	testutil.SeedAttempts(t, ctx, env.db, userID, "linear", nil, fixedNow.Add(-time.Hour), true, false, true)
	if err := env.set.Progress.Upsert(dbctx.With(ctx), []*types.SubcategoryProgress{{
		UserID: userID, SubcategoryID: "linear", Level: 3, TotalAttempts: 3, LastUpdated: fixedNow,
	}}); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	if _, err := env.svc.RecomputeUser(ctx, userID); err != nil {
		t.Fatalf("RecomputeUser: %v", err)
	}
	row, err := env.svc.GetSubcategoryProgress(ctx, userID, "linear")
	if err != nil {
		t.Fatalf("GetSubcategoryProgress: %v", err)
	}
	if row.Level != 3 {
		t.Fatalf("Level: want=3 got=%d", row.Level)
	}
	if !row.Mastered {
		t.Fatalf("Mastered: want=true at level 3 with no concepts")
	}
}

func TestRecordAttempt_UpdatesProgressAndStats(t *testing.T) {
	env := newProgressEnv(t, testutil.DB(t))
	ctx := context.Background()
	userID := testutil.UniqueID("live")

	var last *types.SubcategoryProgress
	for i := 0; i < 10; i++ {
		var err error
		last, err = env.svc.RecordAttempt(ctx, AttemptInput{
			UserID:        userID,
			QuestionID:    "q",
			SubcategoryID: "linear",
			ConceptIDs:    []string{"slope", " slope ", ""},
			IsCorrect:     true,
			AnsweredAt:    fixedNow.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordAttempt[%d]: %v", i, err)
		}
	}
	if last.Level != 2 || last.TotalAttempts != 10 {
		t.Fatalf("progress: want level=2 total=10 got level=%d total=%d", last.Level, last.TotalAttempts)
	}
	if !last.Concepts()["slope"] {
		t.Fatalf("concept slope: want mastered")
	}

	stats, err := env.svc.GetStats(ctx, userID)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalQuestions != 10 || stats.Accuracy != 100 {
		t.Fatalf("stats: want=(10,100) got=(%d,%d)", stats.TotalQuestions, stats.Accuracy)
	}

	list, err := env.svc.ListProgress(ctx, userID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListProgress: got=%v err=%v", list, err)
	}
}

func TestRecordAttempt_Validation(t *testing.T) {
	env := newProgressEnv(t, testutil.DB(t))
	_, err := env.svc.RecordAttempt(context.Background(), AttemptInput{UserID: "u", QuestionID: "q"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("want validation error got=%v", err)
	}
}

func TestRecordExamProgress_CountsOneUnitWithoutAccuracy(t *testing.T) {
	env := newProgressEnv(t, testutil.DB(t))
	ctx := context.Background()
	userID := testutil.UniqueID("exam")

	testutil.SeedAttempts(t, ctx, env.db, userID, "linear", nil, fixedNow.Add(-time.Hour), true, false)
	stats, err := env.svc.RecordExamProgress(ctx, userID, "exam-1", time.Time{})
	if err != nil {
		t.Fatalf("RecordExamProgress: %v", err)
	}
	if stats.TotalQuestions != 3 || stats.Accuracy != 50 {
		t.Fatalf("stats: want=(3,50) got=(%d,%d)", stats.TotalQuestions, stats.Accuracy)
	}

	stats, err = env.svc.RecordExamProgress(ctx, userID, "exam-1", time.Time{})
	if err != nil {
		t.Fatalf("RecordExamProgress(repeat): %v", err)
	}
	if stats.TotalQuestions != 3 {
		t.Fatalf("repeat exam counted twice: total=%d", stats.TotalQuestions)
	}
}

func TestGetStats_NotFound(t *testing.T) {
	env := newProgressEnv(t, testutil.DB(t))
	_, err := env.svc.GetStats(context.Background(), testutil.UniqueID("missing"))
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("want not_found got=%v", err)
	}
}
