package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/trainbin/pkg/config"
	"github.com/ajitpratap0/trainbin/pkg/logger"
	"github.com/ajitpratap0/trainbin/pkg/metrics"
	"github.com/ajitpratap0/trainbin/pkg/observability"
)

var version = "0.1.0"

const envPrefix = "TRAINBIN"

// app holds state shared by every command for one invocation
type app struct {
	v   *viper.Viper
	out io.Writer

	metricsServer *http.Server
	shutdownTrace observability.ShutdownFunc
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "trainbin",
		Short: "trainbin - training dataset binary container converter",
		Long: `trainbin converts training datasets between external representations (csv, jsonl,
avro, sql tables) and a compact binary container of IEEE754 doubles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-encoding", "json", "Log encoding (json, console)")
	flags.String("metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9090")
	flags.Bool("trace", false, "Export trace spans to stderr")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		a.conversionCommand(config.DirectionImport),
		a.conversionCommand(config.DirectionExport),
		a.runCommand(),
		a.inspectCommand(),
		a.codecsCommand(),
		a.versionCommand(),
	)
	return root
}

// setup installs the logger, metrics endpoint and tracer from flags and TRAINBIN_* variables
func (a *app) setup(cmd *cobra.Command) error {
	if err := logger.Init(logger.Config{
		Level:    a.v.GetString("log-level"),
		Encoding: a.v.GetString("log-encoding"),
	}); err != nil {
		return err
	}
	return a.startObservability(a.v.GetString("metrics-addr"), a.v.GetBool("trace"))
}

func (a *app) startObservability(metricsAddr string, tracing bool) error {
	if metricsAddr != "" && a.metricsServer == nil {
		ln, err := net.Listen("tcp", metricsAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", metricsAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		a.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := a.metricsServer.Serve(ln); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	}

	if tracing && a.shutdownTrace == nil {
		cfg := observability.DefaultTracingConfig()
		cfg.ServiceVersion = version
		shutdown, err := observability.InitTracing(cfg)
		if err != nil {
			return err
		}
		a.shutdownTrace = shutdown
	}
	return nil
}

func (a *app) teardown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if a.shutdownTrace != nil {
		err = a.shutdownTrace(ctx)
		a.shutdownTrace = nil
	}
	if a.metricsServer != nil {
		if serr := a.metricsServer.Shutdown(ctx); serr != nil && err == nil {
			err = serr
		}
		a.metricsServer = nil
	}
	_ = logger.Sync()
	return err
}

// explicit reports whether key was set on the command line or in the environment
func (a *app) explicit(cmd *cobra.Command, key string) bool {
	if f := cmd.Flags().Lookup(key); f != nil && f.Changed {
		return true
	}
	env := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	_, ok := os.LookupEnv(env)
	return ok
}
