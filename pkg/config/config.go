package config

import (
	"strings"

	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/errors"
	"github.com/ajitpratap0/trainbin/pkg/logger"
	"github.com/ajitpratap0/trainbin/pkg/progress"
)

// Direction of a conversion
type Direction string

const (
	// DirectionImport converts the codec's representation into a binary container
	DirectionImport Direction = "import"
	// DirectionExport converts a binary container into the codec's representation
	DirectionExport Direction = "export"
)

// Job is the unified configuration for one conversion
type Job struct {
	// Name identifies the job in logs
	Name string `yaml:"name" json:"name"`
	// Direction is import or export
	Direction Direction `yaml:"direction" json:"direction"`
	// BinaryFile is a local path or an s3://bucket/key location
	BinaryFile string `yaml:"binary_file" json:"binary_file"`

	// Codec selects and configures the external representation
	Codec CodecConfig `yaml:"codec" json:"codec"`

	Progress      ProgressConfig      `yaml:"progress" json:"progress"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Logging       logger.Config       `yaml:"logging" json:"logging"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// CodecConfig names a registered codec and carries its settings
type CodecConfig struct {
	Name         string `yaml:"name" json:"name"`
	codec.Config `yaml:",inline" json:",inline"`
}

// ProgressConfig controls status reporting
type ProgressConfig struct {
	// Interval is the number of records between interim reports
	Interval uint64 `yaml:"interval" json:"interval"`
	// Log enables the zap progress reporter
	Log bool `yaml:"log" json:"log"`
	// Metrics enables the prometheus progress reporter
	Metrics bool `yaml:"metrics" json:"metrics"`
}

// StorageConfig controls staging of remote binary files
type StorageConfig struct {
	// Region used for s3:// locations; empty uses the AWS default chain
	Region string `yaml:"region" json:"region"`
	// TempDir holds staged copies; empty uses the system temp dir
	TempDir string `yaml:"temp_dir" json:"temp_dir"`
	// KeepStaged leaves staged copies on disk after the run
	KeepStaged bool `yaml:"keep_staged" json:"keep_staged"`
}

// ObservabilityConfig controls metrics exposure and tracing
type ObservabilityConfig struct {
	// MetricsAddr serves /metrics when set, e.g. ":9090"
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	// Tracing exports spans to stderr
	Tracing bool `yaml:"tracing" json:"tracing"`
}

// NewJob returns a job with defaults applied
func NewJob() *Job {
	return &Job{
		Progress: ProgressConfig{
			Interval: progress.DefaultInterval,
			Log:      true,
		},
		Logging: logger.DefaultConfig(),
	}
}

// Validate checks required fields and value ranges
func (j *Job) Validate() error {
	switch j.Direction {
	case DirectionImport, DirectionExport:
	case "":
		return errors.New(errors.ErrorTypeConfig, "direction is required")
	default:
		return errors.New(errors.ErrorTypeConfig, "direction must be import or export").
			WithDetail("direction", string(j.Direction))
	}
	if strings.TrimSpace(j.BinaryFile) == "" {
		return errors.New(errors.ErrorTypeConfig, "binary_file is required")
	}
	if j.Codec.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "codec.name is required")
	}
	if j.Progress.Interval == 0 {
		return errors.New(errors.ErrorTypeConfig, "progress.interval must be positive")
	}
	return nil
}
