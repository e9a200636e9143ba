package main

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/trainbin/internal/job"
	"github.com/ajitpratap0/trainbin/pkg/binfile"
	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/config"
	"github.com/ajitpratap0/trainbin/pkg/logger"
	"github.com/ajitpratap0/trainbin/pkg/progress"
)

// conversionCommand builds the import or export command from flags
func (a *app) conversionCommand(direction config.Direction) *cobra.Command {
	j := config.NewJob()
	j.Direction = direction

	var use, short, example string
	switch direction {
	case config.DirectionImport:
		use, short = "import", "Import a dataset into a binary container"
		example = "  trainbin import --codec csv --file xor.csv --input-size 2 --ideal-size 1 --binary xor.tbin"
	default:
		use, short = "export", "Export a binary container to a dataset"
		example = "  trainbin export --codec jsonl --file xor.jsonl.zst --binary s3://bucket/xor.tbin"
	}

	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Example: example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runJob(cmd, j)
		},
	}

	f := cmd.Flags()
	f.StringVar(&j.Name, "name", "", "Job name used in logs")
	f.StringVarP(&j.BinaryFile, "binary", "b", "", "Binary container path or s3://bucket/key (required)")
	f.StringVarP(&j.Codec.Name, "codec", "c", "csv", "Codec name, see 'trainbin codecs'")
	f.StringVarP(&j.Codec.Path, "file", "f", "", "External dataset file")
	f.StringVar(&j.Codec.Compression, "compression", "", "Compression of the dataset file; empty detects from the extension")
	f.StringToStringVarP(&j.Codec.Options, "option", "o", nil, "Codec option as key=value, repeatable")
	f.Uint64Var(&j.Progress.Interval, "interval", progress.DefaultInterval, "Records between progress reports")
	f.BoolVar(&j.Progress.Log, "progress", true, "Log progress reports")
	f.BoolVar(&j.Progress.Metrics, "progress-metrics", false, "Feed progress into prometheus collectors")
	f.StringVar(&j.Storage.Region, "region", "", "AWS region for s3:// locations")
	f.StringVar(&j.Storage.TempDir, "temp-dir", "", "Directory for staged copies")
	f.BoolVar(&j.Storage.KeepStaged, "keep-staged", false, "Keep staged copies after the run")
	if direction == config.DirectionImport {
		f.Uint32Var(&j.Codec.InputSize, "input-size", 0, "Values per input vector")
		f.Uint32Var(&j.Codec.IdealSize, "ideal-size", 0, "Values per ideal vector")
	}
	_ = cmd.MarkFlagRequired("binary")
	return cmd
}

func (a *app) runCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a conversion described by a job file",
		Long: `Run a conversion described by a YAML job file. ${VAR} and ${VAR:-default}
references are expanded from the environment before parsing.

Example:
  trainbin run --config xor.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := config.Load(configFile)
			if err != nil {
				return err
			}

			logCfg := j.Logging
			if a.explicit(cmd, "log-level") {
				logCfg.Level = a.v.GetString("log-level")
			}
			if a.explicit(cmd, "log-encoding") {
				logCfg.Encoding = a.v.GetString("log-encoding")
			}
			if err := logger.Init(logCfg); err != nil {
				return err
			}
			if err := a.startObservability(j.Observability.MetricsAddr, j.Observability.Tracing); err != nil {
				return err
			}
			return a.runJob(cmd, j)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "Path to the YAML job file (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func (a *app) runJob(cmd *cobra.Command, j *config.Job) error {
	stats, err := job.Run(cmd.Context(), j, job.Options{})
	if err != nil {
		return err
	}
	logger.Info("job completed",
		zap.String("direction", string(j.Direction)),
		zap.Uint64("records", stats.Records),
		zap.Duration("elapsed", stats.Elapsed))
	fmt.Fprintf(a.out, "%s: %d records (%d input, %d ideal) in %s\n",
		j.Direction, stats.Records, stats.InputSize, stats.IdealSize, stats.Elapsed.Round(time.Millisecond))
	return nil
}

func (a *app) inspectCommand() *cobra.Command {
	var records uint64
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show a binary container's header and leading records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := binfile.OpenMapped(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			h := m.Header()
			fmt.Fprintf(a.out, "file:         %s\n", args[0])
			fmt.Fprintf(a.out, "version:      %d\n", h.Version)
			fmt.Fprintf(a.out, "input size:   %d\n", h.InputSize)
			fmt.Fprintf(a.out, "ideal size:   %d\n", h.IdealSize)
			fmt.Fprintf(a.out, "record count: %d\n", h.RecordCount)
			access := "read"
			if m.MemoryMapped() {
				access = "mmap"
			}
			fmt.Fprintf(a.out, "access:       %s\n", access)

			input := make([]float64, h.InputSize)
			ideal := make([]float64, h.IdealSize)
			n := records
			if n > h.RecordCount {
				n = h.RecordCount
			}
			for i := uint64(0); i < n; i++ {
				if err := m.Record(i, input, ideal); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%d: [%s] -> [%s]\n", i, formatVector(input), formatVector(ideal))
			}
			return nil
		},
	}
	cmd.Flags().Uint64VarP(&records, "records", "n", 0, "Number of leading records to print")
	return cmd
}

func (a *app) codecsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "codecs",
		Short: "List available codecs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, "Available codecs:")
			for _, name := range codec.List() {
				fmt.Fprintf(a.out, "  - %s\n", name)
			}
		},
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "trainbin v%s\n", version)
			fmt.Fprintf(a.out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(a.out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func formatVector(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}
