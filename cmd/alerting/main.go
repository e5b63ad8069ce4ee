// Command alerting runs the alert dispatch service: it ingests monitoring
// webhooks on /alert/{team} and fans them out as SMS and chat-webhook
// notifications.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imanbakhtiari/alerting/notify"
	"github.com/imanbakhtiari/alerting/receivers"
	"github.com/imanbakhtiari/alerting/server"
	"github.com/imanbakhtiari/alerting/store"
)

type options struct {
	Listen          string
	DataDir         string
	DeliveryTimeout time.Duration
	MaxConcurrent   int
	SMSSender       string
	LogLevel        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "alerting",
		Short:        "alert-to-SMS/webhook dispatch service",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			// Flags > environment (ALERTING_*) > defaults.
			viper.SetEnvPrefix("alerting")
			viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			viper.AutomaticEnv()
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			opts.Listen = viper.GetString("listen")
			opts.DataDir = viper.GetString("data-dir")
			opts.DeliveryTimeout = viper.GetDuration("delivery-timeout")
			opts.MaxConcurrent = viper.GetInt("max-concurrent")
			opts.SMSSender = viper.GetString("sms-sender")
			opts.LogLevel = viper.GetString("log-level")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	fs := cmd.Flags()
	fs.String("listen", ":5000", "HTTP listen address")
	fs.String("data-dir", ".", "directory holding numbers.txt and template.txt")
	fs.Duration("delivery-timeout", notify.DefaultTimeout, "maximum wait per delivery attempt")
	fs.Int("max-concurrent", notify.DefaultMaxWorkers, "maximum concurrent delivery attempts per request")
	fs.String("sms-sender", "", "originator line passed to SMS gateways (gateway default when empty)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func run(ctx context.Context, opts options) error {
	logger := newLogger(opts.LogLevel)

	st, err := store.Open(opts.DataDir, log.With(logger, "component", "store"))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dispatcher := notify.NewDispatcher(
		st,
		notify.Config{
			Timeout:    opts.DeliveryTimeout,
			MaxWorkers: opts.MaxConcurrent,
			Sender:     opts.SMSSender,
		},
		receivers.NewClient(),
		clock.New(),
		notify.NewMetrics(registry),
		log.With(logger, "component", "dispatcher"),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := st.Watch(ctx); err != nil {
			level.Error(logger).Log("msg", "store watcher stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              opts.Listen,
		Handler:           server.New(st, dispatcher, registry, log.With(logger, "component", "server")).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		level.Info(logger).Log("msg", "listening", "addr", opts.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	level.Info(logger).Log("msg", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var filter level.Option
	switch lvl {
	case "debug":
		filter = level.AllowDebug()
	case "warn":
		filter = level.AllowWarn()
	case "error":
		filter = level.AllowError()
	default:
		filter = level.AllowInfo()
	}
	return level.NewFilter(logger, filter)
}
