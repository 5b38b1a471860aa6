package app

import (
	"github.com/kocahmet1/ultrasat-progress/internal/data/db"
	"github.com/kocahmet1/ultrasat-progress/internal/modules/progress"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/envutil"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

type Config struct {
	HTTPAddr string

	// RecomputeCron schedules an unattended recompute in serve mode. Empty
	// disables it.
	RecomputeCron string
	RecomputeMode string

	DB     db.Config
	Policy progress.Policy
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		HTTPAddr:      envutil.String("HTTP_ADDR", ":8080"),
		RecomputeCron: envutil.String("RECOMPUTE_CRON", ""),
		RecomputeMode: envutil.String("RECOMPUTE_CRON_MODE", "initialize"),
		DB:            db.ConfigFromEnv(),
		Policy:        progress.LoadPolicy(log),
	}
	log.Info("Configuration loaded",
		"http_addr", cfg.HTTPAddr,
		"db_driver", cfg.DB.Driver,
		"recompute_cron", cfg.RecomputeCron,
		"window", cfg.Policy.Window,
		"threshold", cfg.Policy.Threshold,
		"batch_size", cfg.Policy.RecomputeBatchSize,
		"write_ceiling", cfg.Policy.WriteCeiling,
	)
	return cfg
}
