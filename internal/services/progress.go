package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/kocahmet1/ultrasat-progress/internal/data/repos"
	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"github.com/kocahmet1/ultrasat-progress/internal/modules/progress"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/apperr"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/kocahmet1/ultrasat-progress/internal/services")

// AttemptInput is one answered question arriving on the live path.
type AttemptInput struct {
	UserID        string
	QuestionID    string
	SubcategoryID string
	ConceptIDs    []string
	IsCorrect     bool
	AnsweredAt    time.Time
}

// RecomputeResult reports one user's full recompute.
type RecomputeResult struct {
	UserID        string
	Subcategories int
	Summary       progress.Summary
	Outcome       CacheOutcome
}

type ProgressService interface {
	// RecomputeUser replays the user's whole history into subcategory
	// progress rows and the stats cache record.
	RecomputeUser(ctx context.Context, userID string) (RecomputeResult, error)
	RecordAttempt(ctx context.Context, in AttemptInput) (*types.SubcategoryProgress, error)
	RecordExamProgress(ctx context.Context, userID, examID string, completedAt time.Time) (*types.UserStatsCache, error)
	GetSubcategoryProgress(ctx context.Context, userID, subcategoryID string) (*types.SubcategoryProgress, error)
	ListProgress(ctx context.Context, userID string) ([]*types.SubcategoryProgress, error)
	GetStats(ctx context.Context, userID string) (*types.UserStatsCache, error)
}

type progressService struct {
	db       *gorm.DB
	log      *logger.Logger
	policy   progress.Policy
	users    repos.UserRepo
	attempts repos.AttemptRecordRepo
	exams    repos.ExamProgressRepo
	rows     repos.SubcategoryProgressRepo
	stats    StatsCacheWriter
	now      func() time.Time
}

func NewProgressService(
	db *gorm.DB,
	log *logger.Logger,
	policy progress.Policy,
	users repos.UserRepo,
	attempts repos.AttemptRecordRepo,
	exams repos.ExamProgressRepo,
	rows repos.SubcategoryProgressRepo,
	stats StatsCacheWriter,
) ProgressService {
	return &progressService{
		db:       db,
		log:      log.With("service", "ProgressService"),
		policy:   policy,
		users:    users,
		attempts: attempts,
		exams:    exams,
		rows:     rows,
		stats:    stats,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func storeErr(op string, err error) error {
	return apperr.Wrap(apperr.Classify(err), op, err)
}

func (s *progressService) RecomputeUser(ctx context.Context, userID string) (res RecomputeResult, err error) {
	ctx, span := tracer.Start(ctx, "progress.recompute_user")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return res, apperr.Validation("recompute user", "missing user id")
	}
	res.UserID = userID
	dbc := dbctx.With(ctx)

	history, err := s.attempts.ListByUser(dbc, userID)
	if err != nil {
		return res, storeErr("load attempts", err)
	}
	examCount, err := s.exams.CountByUser(dbc, userID)
	if err != nil {
		return res, storeErr("count exams", err)
	}

	replayed := progress.AggregateAll(s.policy, history)
	if len(replayed) > 0 {
		stored, err := s.rows.ListByUser(dbc, userID)
		if err != nil {
			return res, storeErr("load progress", err)
		}
		bySub := make(map[string]*types.SubcategoryProgress, len(stored))
		for _, row := range stored {
			bySub[row.SubcategoryID] = row
		}
		for i, row := range replayed {
			replayed[i] = progress.KeepHigherLevel(bySub[row.SubcategoryID], row)
		}
		if err := s.rows.Upsert(dbc, replayed); err != nil {
			return res, storeErr("save progress", err)
		}
	}
	res.Subcategories = len(replayed)

	res.Summary = progress.SummarizeHistory(history, examCount)
	res.Outcome, err = s.stats.Write(ctx, userID, res.Summary.TotalQuestions, res.Summary.Accuracy, s.now())
	if err != nil {
		return res, err
	}

	span.SetAttributes(
		attribute.Int("progress.attempts", len(history)),
		attribute.Int("progress.exams", examCount),
		attribute.String("progress.cache_outcome", string(res.Outcome)),
	)
	return res, nil
}

func (s *progressService) RecordAttempt(ctx context.Context, in AttemptInput) (*types.SubcategoryProgress, error) {
	ctx, span := tracer.Start(ctx, "progress.record_attempt")
	defer span.End()

	in.UserID = strings.TrimSpace(in.UserID)
	in.QuestionID = strings.TrimSpace(in.QuestionID)
	in.SubcategoryID = strings.TrimSpace(in.SubcategoryID)
	switch {
	case in.UserID == "":
		return nil, apperr.Validation("record attempt", "missing user id")
	case in.QuestionID == "":
		return nil, apperr.Validation("record attempt", "missing question id")
	case in.SubcategoryID == "":
		return nil, apperr.Validation("record attempt", "missing subcategory id")
	}
	if in.AnsweredAt.IsZero() {
		in.AnsweredAt = s.now()
	}

	dbc := dbctx.With(ctx)
	// The recompute job enumerates the user table, so live learners must be in it.
	if err := s.users.EnsureIDs(dbc, []string{in.UserID}); err != nil {
		return nil, storeErr("register user", err)
	}
	row := &types.AttemptRecord{
		ID:            uuid.New(),
		UserID:        in.UserID,
		QuestionID:    in.QuestionID,
		SubcategoryID: in.SubcategoryID,
		ConceptIDs:    cleanConcepts(in.ConceptIDs),
		IsCorrect:     in.IsCorrect,
		AnsweredAt:    in.AnsweredAt.UTC(),
	}
	if _, err := s.attempts.Create(dbc, []*types.AttemptRecord{row}); err != nil {
		return nil, storeErr("append attempt", err)
	}

	sub, err := s.attempts.ListByUserAndSubcategory(dbc, in.UserID, in.SubcategoryID)
	if err != nil {
		return nil, storeErr("load subcategory attempts", err)
	}
	stored, err := s.rows.Get(dbc, in.UserID, in.SubcategoryID)
	if err != nil {
		return nil, storeErr("load progress", err)
	}
	next := progress.KeepHigherLevel(stored, progress.Aggregate(s.policy, sub))
	if next == nil {
		return nil, apperr.New(apperr.KindInternal, "record attempt", "attempt not visible after append")
	}
	if err := s.rows.Upsert(dbc, []*types.SubcategoryProgress{next}); err != nil {
		return nil, storeErr("save progress", err)
	}

	if _, err := s.refreshStats(ctx, in.UserID); err != nil {
		// The attempt and progress row are stored; the next recompute repairs the cache.
		s.log.Warn("stats refresh after attempt failed", "user_id", in.UserID, "error", err)
	}
	return next, nil
}

func (s *progressService) RecordExamProgress(ctx context.Context, userID, examID string, completedAt time.Time) (*types.UserStatsCache, error) {
	userID = strings.TrimSpace(userID)
	examID = strings.TrimSpace(examID)
	if userID == "" || examID == "" {
		return nil, apperr.Validation("record exam progress", "user id and exam id are required")
	}
	if completedAt.IsZero() {
		completedAt = s.now()
	}
	if err := s.users.EnsureIDs(dbctx.With(ctx), []string{userID}); err != nil {
		return nil, storeErr("register user", err)
	}
	if err := s.exams.Record(dbctx.With(ctx), &types.ExamProgress{UserID: userID, ExamID: examID, CompletedAt: completedAt.UTC()}); err != nil {
		return nil, storeErr("append exam progress", err)
	}
	if _, err := s.refreshStats(ctx, userID); err != nil {
		return nil, err
	}
	return s.stats.Read(ctx, userID)
}

func (s *progressService) refreshStats(ctx context.Context, userID string) (CacheOutcome, error) {
	dbc := dbctx.With(ctx)
	history, err := s.attempts.ListByUser(dbc, userID)
	if err != nil {
		return "", storeErr("load attempts", err)
	}
	examCount, err := s.exams.CountByUser(dbc, userID)
	if err != nil {
		return "", storeErr("count exams", err)
	}
	sum := progress.SummarizeHistory(history, examCount)
	return s.stats.Write(ctx, userID, sum.TotalQuestions, sum.Accuracy, s.now())
}

func (s *progressService) GetSubcategoryProgress(ctx context.Context, userID, subcategoryID string) (*types.SubcategoryProgress, error) {
	row, err := s.rows.Get(dbctx.With(ctx), strings.TrimSpace(userID), strings.TrimSpace(subcategoryID))
	if err != nil {
		return nil, storeErr("get progress", err)
	}
	if row == nil {
		return nil, apperr.New(apperr.KindNotFound, "get progress", "no progress for subcategory")
	}
	return row, nil
}

func (s *progressService) ListProgress(ctx context.Context, userID string) ([]*types.SubcategoryProgress, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Validation("list progress", "missing user id")
	}
	rows, err := s.rows.ListByUser(dbctx.With(ctx), userID)
	if err != nil {
		return nil, storeErr("list progress", err)
	}
	return rows, nil
}

func (s *progressService) GetStats(ctx context.Context, userID string) (*types.UserStatsCache, error) {
	row, err := s.stats.Read(ctx, userID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperr.New(apperr.KindNotFound, "get stats", "no stats for user")
	}
	return row, nil
}

func cleanConcepts(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
