package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/oriys/lastgood/internal/config"
	"github.com/oriys/lastgood/internal/errorlog"
	"github.com/oriys/lastgood/internal/fallback"
	"github.com/oriys/lastgood/internal/logging"
	"github.com/oriys/lastgood/internal/metrics"
	"github.com/oriys/lastgood/internal/observability"
	"github.com/oriys/lastgood/internal/output"
	"github.com/oriys/lastgood/internal/storage"
)

// rootOptions holds the persistent flags shared by every sub-command.
type rootOptions struct {
	configPath string
	driver     string
	dsn        string
	key        string
	logLevel   string
	logFormat  string
	output     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "lastgood",
		Short:         "lastgood - last-known-good fallback cache",
		Long:          "Keep the last successfully fetched dataset around so it can be served while the primary source is down",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	pf.StringVar(&opts.driver, "driver", "", "Storage driver (none, memory, file, sqlite, redis, postgres)")
	pf.StringVar(&opts.dsn, "dsn", "", "Storage DSN (sqlite path, file directory or postgres URL)")
	pf.StringVar(&opts.key, "key", "", "Storage key for the snapshot")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")
	pf.StringVarP(&opts.output, "output", "o", "table", "Output format (table, json, yaml)")

	rootCmd.AddCommand(
		writeCmd(opts),
		readCmd(opts),
		statusCmd(opts),
		clearCmd(opts),
		serveCmd(opts),
	)

	return rootCmd
}

// app is the wiring one command runs against.
type app struct {
	cfg     *config.Config
	backend storage.Backend
	store   *fallback.Store
	errs    *errorlog.Recorder
	printer *output.Printer
}

// loadConfig layers flags over the file and environment configuration.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.driver != "" {
		cfg.Storage.Driver = o.driver
	}
	if o.dsn != "" {
		cfg.Storage.DSN = o.dsn
	}
	if o.key != "" {
		cfg.Store.Key = o.key
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	logging.InitStructuredTo(cmd.ErrOrStderr(), cfg.Logging.Format, cfg.Logging.Level)
	logging.WithInstance(uuid.New().String())
	metrics.InitPrometheus(cfg.Metrics.Namespace, nil)

	if err := observability.Init(ctx, cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		shutdownTracing()
		return nil, err
	}

	errs := errorlog.NewRecorder(100)
	store := fallback.New(
		fallback.WithBackend(backend),
		fallback.WithSink(errorlog.Multi(errorlog.NewSlogSinkFunc(logging.Op), errs)),
		fallback.WithKey(cfg.Store.Key),
		fallback.WithFreshWindow(cfg.Store.FreshWindow),
	)

	printer := output.NewPrinter(output.ParseFormat(opts.output))
	printer.SetWriter(cmd.OutOrStdout())

	logging.Op().Debug("store opened", "driver", driverName(cfg), "key", cfg.Store.Key)

	return &app{
		cfg:     cfg,
		backend: backend,
		store:   store,
		errs:    errs,
		printer: printer,
	}, nil
}

func (a *app) Close() error {
	var err error
	if a.backend != nil {
		err = a.backend.Close()
	}
	shutdownTracing()
	return err
}

// storageErr turns the first recorded store failure into a command error.
func (a *app) storageErr(action string) error {
	entries := a.errs.Entries()
	if len(entries) == 0 {
		return nil
	}
	e := entries[0]
	if e.Details == nil {
		return fmt.Errorf("%s: %s", action, e.Message)
	}
	return fmt.Errorf("%s: %s: %w", action, e.Message, e.Details)
}

func shutdownTracing() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := observability.Shutdown(ctx); err != nil {
		logging.Op().Warn("tracing shutdown failed", "error", err)
	}
}

func driverName(cfg *config.Config) string {
	d := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if d == "" {
		return storage.DriverNone
	}
	return d
}

var errNoSnapshot = errors.New("no fallback data")
