package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/kocahmet1/ultrasat-progress/internal/data/cache"
	"github.com/kocahmet1/ultrasat-progress/internal/data/repos"
	"github.com/kocahmet1/ultrasat-progress/internal/jobs/recompute"
	"github.com/kocahmet1/ultrasat-progress/internal/jobs/worker"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
	"github.com/kocahmet1/ultrasat-progress/internal/services"
)

type Services struct {
	Stats        services.StatsCacheWriter
	Progress     services.ProgressService
	Normalizer   services.QuizNormalizer
	Orchestrator *recompute.Orchestrator
	Worker       *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet repos.Set, mirror cache.StatsMirror) (Services, error) {
	log.Info("Wiring services...")

	stats := services.NewStatsCacheWriter(db, log, reposet.StatsCache, mirror)
	prog := services.NewProgressService(
		db,
		log,
		cfg.Policy,
		reposet.Users,
		reposet.Attempts,
		reposet.Exams,
		reposet.Progress,
		stats,
	)
	normalizer := services.NewQuizNormalizer(log, reposet.QuizDocs, cfg.Policy)
	orch := recompute.NewOrchestrator(log, reposet.Users, prog, stats, recompute.ConfigFromPolicy(cfg.Policy))

	w := worker.NewWorker(log)
	if cfg.RecomputeCron != "" {
		mode, err := recompute.ParseMode(cfg.RecomputeMode)
		if err != nil {
			return Services{}, fmt.Errorf("RECOMPUTE_CRON_MODE: %w", err)
		}
		if err := w.Schedule(cfg.RecomputeCron, recompute.NewJob(orch, mode, log)); err != nil {
			return Services{}, fmt.Errorf("schedule recompute: %w", err)
		}
	}

	return Services{
		Stats:        stats,
		Progress:     prog,
		Normalizer:   normalizer,
		Orchestrator: orch,
		Worker:       w,
	}, nil
}
