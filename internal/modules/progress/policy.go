package progress

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kocahmet1/ultrasat-progress/internal/platform/envutil"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

const progressPolicyEnv = "PROGRESS_POLICY_YAML"

//go:embed progress_policy.yaml
var progressPolicyFS embed.FS

// Policy holds every tunable of the aggregation, recompute and normalizer
// rules.
type Policy struct {
	Window            int
	Threshold         float64
	MinConceptSamples int
	LevelUpAttempts   int

	RecomputeBatchSize int
	RecomputePause     time.Duration

	WriteCeiling     int
	PageSize         int
	MigrationVersion string
}

func DefaultPolicy() Policy {
	return Policy{
		Window:             10,
		Threshold:          0.8,
		MinConceptSamples:  3,
		LevelUpAttempts:    10,
		RecomputeBatchSize: 10,
		RecomputePause:     time.Second,
		WriteCeiling:       500,
		PageSize:           200,
		MigrationVersion:   "efficient-v1",
	}
}

type yamlPolicy struct {
	Policy      string `yaml:"policy"`
	Version     int    `yaml:"version"`
	Aggregation struct {
		Window            *int     `yaml:"window"`
		Threshold         *float64 `yaml:"threshold"`
		MinConceptSamples *int     `yaml:"min_concept_samples"`
		LevelUpAttempts   *int     `yaml:"level_up_attempts"`
	} `yaml:"aggregation"`
	Recompute struct {
		BatchSize *int `yaml:"batch_size"`
		PauseMS   *int `yaml:"pause_ms"`
	} `yaml:"recompute"`
	Normalizer struct {
		WriteCeiling     *int    `yaml:"write_ceiling"`
		PageSize         *int    `yaml:"page_size"`
		MigrationVersion *string `yaml:"migration_version"`
	} `yaml:"normalizer"`
}

// LoadPolicy reads the embedded policy (or the file named by
// PROGRESS_POLICY_YAML), then applies per-field env overrides. A bad file is
// logged and the built-in defaults are used instead.
func LoadPolicy(log *logger.Logger) Policy {
	p, err := loadPolicyFile()
	if err != nil {
		if log != nil {
			log.Warn("progress policy load failed; using defaults", "error", err)
		}
		p = DefaultPolicy()
	}
	p = applyEnvOverrides(p)
	if err := p.Validate(); err != nil {
		if log != nil {
			log.Warn("progress policy overrides invalid; using defaults", "error", err)
		}
		return DefaultPolicy()
	}
	return p
}

func loadPolicyFile() (Policy, error) {
	var (
		data []byte
		err  error
	)
	if path := strings.TrimSpace(os.Getenv(progressPolicyEnv)); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = progressPolicyFS.ReadFile("progress_policy.yaml")
	}
	if err != nil {
		return Policy{}, err
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a policy document. Fields it omits keep their defaults.
func ParsePolicy(data []byte) (Policy, error) {
	var doc yamlPolicy
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Policy{}, err
	}
	if strings.TrimSpace(doc.Policy) != "progress" {
		return Policy{}, fmt.Errorf("unexpected policy: %q", doc.Policy)
	}

	p := DefaultPolicy()
	setInt(&p.Window, doc.Aggregation.Window)
	if doc.Aggregation.Threshold != nil {
		p.Threshold = *doc.Aggregation.Threshold
	}
	setInt(&p.MinConceptSamples, doc.Aggregation.MinConceptSamples)
	setInt(&p.LevelUpAttempts, doc.Aggregation.LevelUpAttempts)
	setInt(&p.RecomputeBatchSize, doc.Recompute.BatchSize)
	if doc.Recompute.PauseMS != nil {
		p.RecomputePause = time.Duration(*doc.Recompute.PauseMS) * time.Millisecond
	}
	setInt(&p.WriteCeiling, doc.Normalizer.WriteCeiling)
	setInt(&p.PageSize, doc.Normalizer.PageSize)
	if doc.Normalizer.MigrationVersion != nil {
		p.MigrationVersion = strings.TrimSpace(*doc.Normalizer.MigrationVersion)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func applyEnvOverrides(p Policy) Policy {
	p.Window = envutil.Int("PROGRESS_WINDOW", p.Window)
	p.Threshold = envutil.Float("PROGRESS_THRESHOLD", p.Threshold)
	p.MinConceptSamples = envutil.Int("PROGRESS_MIN_CONCEPT_SAMPLES", p.MinConceptSamples)
	p.LevelUpAttempts = envutil.Int("PROGRESS_LEVEL_UP_ATTEMPTS", p.LevelUpAttempts)
	p.RecomputeBatchSize = envutil.Int("RECOMPUTE_BATCH_SIZE", p.RecomputeBatchSize)
	p.RecomputePause = envutil.Duration("RECOMPUTE_PAUSE", p.RecomputePause)
	p.WriteCeiling = envutil.Int("WRITE_BATCH_CEILING", p.WriteCeiling)
	p.MigrationVersion = envutil.String("MIGRATION_VERSION", p.MigrationVersion)
	return p
}

func (p Policy) Validate() error {
	switch {
	case p.Window <= 0:
		return errors.New("window must be positive")
	case p.Threshold <= 0 || p.Threshold > 1:
		return errors.New("threshold must be in (0, 1]")
	case p.MinConceptSamples < 1:
		return errors.New("min_concept_samples must be at least 1")
	case p.LevelUpAttempts <= 0:
		return errors.New("level_up_attempts must be positive")
	case p.RecomputeBatchSize <= 0:
		return errors.New("recompute batch_size must be positive")
	case p.RecomputePause < 0:
		return errors.New("recompute pause must not be negative")
	case p.WriteCeiling <= 0:
		return errors.New("write_ceiling must be positive")
	case p.PageSize <= 0:
		return errors.New("page_size must be positive")
	case p.MigrationVersion == "":
		return errors.New("migration_version is required")
	}
	return nil
}
