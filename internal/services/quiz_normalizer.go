package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kocahmet1/ultrasat-progress/internal/data/repos"
	"github.com/kocahmet1/ultrasat-progress/internal/modules/progress"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/apperr"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

// NormalizeSummary is the end-of-run report of the quiz normalizer.
type NormalizeSummary struct {
	DryRun          bool              `json:"dry_run"`
	Total           int               `json:"total"`
	NeedsMigration  int               `json:"needs_migration"`
	Migrated        int               `json:"migrated"`
	AlreadyMigrated int               `json:"already_migrated"`
	Errors          int               `json:"errors"`
	ErrorReasons    map[string]string `json:"error_reasons,omitempty"`
	// EstimatedSavedBytes is only filled on a dry run.
	EstimatedSavedBytes int64         `json:"estimated_saved_bytes,omitempty"`
	Batches             int           `json:"batches"`
	Interrupted         bool          `json:"interrupted"`
	Duration            time.Duration `json:"duration"`
}

func (s *NormalizeSummary) fail(docID, reason string) {
	s.Errors++
	if s.ErrorReasons == nil {
		s.ErrorReasons = map[string]string{}
	}
	s.ErrorReasons[docID] = reason
}

type QuizNormalizer interface {
	// Run walks every quiz document. With dryRun it only classifies and
	// estimates; otherwise it rewrites legacy documents in bounded batches.
	Run(ctx context.Context, dryRun bool) (NormalizeSummary, error)
}

type quizNormalizer struct {
	log    *logger.Logger
	docs   repos.QuizDocumentRepo
	policy progress.Policy
	now    func() time.Time
}

func NewQuizNormalizer(log *logger.Logger, docs repos.QuizDocumentRepo, policy progress.Policy) QuizNormalizer {
	return &quizNormalizer{
		log:    log.With("service", "QuizNormalizer"),
		docs:   docs,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (n *quizNormalizer) Run(ctx context.Context, dryRun bool) (NormalizeSummary, error) {
	ctx, span := tracer.Start(ctx, "quiz_normalizer.run")
	defer span.End()

	start := time.Now()
	sum := NormalizeSummary{DryRun: dryRun}
	batch := n.docs.NewBatch(n.policy.WriteCeiling)

	// Commits ignore cancellation so a started batch is never half applied.
	flush := func() {
		if batch.Len() == 0 {
			return
		}
		ids := batch.DocumentIDs()
		sum.Batches++
		applied, err := batch.Commit(dbctx.With(context.WithoutCancel(ctx)))
		if err != nil {
			n.log.Error("quiz batch commit failed", "documents", len(ids), "error", err)
			for _, id := range ids {
				sum.fail(id, fmt.Sprintf("batch commit failed: %v", err))
			}
			return
		}
		sum.Migrated += applied
		// Rows that gained an identifier list since they were read.
		sum.AlreadyMigrated += len(ids) - applied
		n.log.Info("quiz batch committed", "applied", applied, "staged", len(ids))
	}

	after := ""
	for {
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}
		page, err := n.docs.ListPage(dbctx.With(ctx), after, n.policy.PageSize)
		if err != nil {
			flush()
			sum.Duration = time.Since(start)
			return sum, apperr.Wrap(apperr.Classify(err), "list quiz documents", err)
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].ID

		for _, doc := range page {
			sum.Total++
			d := progress.Decide(doc, n.now(), n.policy.MigrationVersion)
			switch d.Disposition {
			case progress.AlreadyMigrated:
				sum.AlreadyMigrated++
			case progress.Invalid:
				n.log.Warn("quiz document skipped", "document_id", d.DocumentID, "reason", d.Reason)
				sum.fail(d.DocumentID, d.Reason)
			case progress.NeedsMigration:
				sum.NeedsMigration++
				if dryRun {
					sum.EstimatedSavedBytes += int64(d.SavedBytes)
					continue
				}
				if batch.Len() >= n.policy.WriteCeiling {
					flush()
				}
				if err := batch.Stage(d.Patch); err != nil {
					if errors.Is(err, repos.ErrBatchFull) {
						flush()
						err = batch.Stage(d.Patch)
					}
					if err != nil {
						n.log.Warn("quiz patch not staged", "document_id", d.DocumentID, "error", err)
						sum.fail(d.DocumentID, err.Error())
					}
				}
			}
		}
		if len(page) < n.policy.PageSize {
			break
		}
	}
	flush()

	sum.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Bool("normalizer.dry_run", dryRun),
		attribute.Int("normalizer.total", sum.Total),
		attribute.Int("normalizer.migrated", sum.Migrated),
		attribute.Int("normalizer.errors", sum.Errors),
	)
	n.log.Info("quiz normalizer finished",
		"dry_run", dryRun,
		"total", sum.Total,
		"migrated", sum.Migrated,
		"already_migrated", sum.AlreadyMigrated,
		"errors", sum.Errors,
		"interrupted", sum.Interrupted,
	)
	return sum, nil
}
