package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marek-kar/traceops/pkg/client"
	"github.com/marek-kar/traceops/pkg/config"
	"github.com/marek-kar/traceops/pkg/logging"
	"github.com/marek-kar/traceops/pkg/metrics"
	"github.com/marek-kar/traceops/pkg/poller"
	"github.com/marek-kar/traceops/pkg/view"
	"github.com/marek-kar/traceops/pkg/workflow"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once the persistent flags and
// the config file have been resolved.
type app struct {
	configPath  string
	apiBase     string
	logLevel    string
	logFormat   string
	metricsAddr string

	cfg     config.Config
	logger  zerolog.Logger
	metrics *metrics.Recorder
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "traceops",
		Short:        "Submit packet captures to TraceOps and inspect the findings",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	defaultPath, _ := config.DefaultPath()
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", defaultPath, "config file path")
	pf.StringVar(&a.apiBase, "api-base", config.DefaultAPIBase, "TraceOps API base URL")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "auto", "log format (auto, console, json)")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	root.AddCommand(
		newRunCmd(a),
		newReportCmd(a),
		newConsoleCmd(a),
		newStubServerCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("api-base") {
		cfg.APIBase = a.apiBase
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = a.metricsAddr
	}

	a.cfg = cfg
	a.logger = logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	a.metrics = metrics.NewRecorder()
	return nil
}

func (a *app) newClient() (*client.Client, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return client.New(client.Options{
		BaseURL: a.cfg.APIBase,
		Timeout: a.cfg.RequestTimeout,
		Logger:  a.logger,
	})
}

func (a *app) newRunner(c *client.Client) *workflow.Runner {
	p := poller.DefaultOptions()
	p.Attempts = a.cfg.Poll.Attempts
	p.Delay = a.cfg.Poll.Delay
	p.Logger = a.logger

	return workflow.New(c, view.NewState(), workflow.Options{
		Poll:    p,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
}

// serve runs fn and, when a metrics address is configured, a /metrics
// endpoint next to it. The endpoint shuts down once fn returns.
func (a *app) serve(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.cfg.MetricsAddr == "" {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		a.logger.Info().Str("addr", srv.Addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		defer cancel()
		return fn(ctx)
	})
	return g.Wait()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the traceops version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "traceops %s\n", version)
		},
	}
}
