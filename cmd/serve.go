package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appcfg "github.com/relaygate/slackbridge/internal/config"
	"github.com/relaygate/slackbridge/internal/eventbus"
	"github.com/relaygate/slackbridge/internal/httpapi"
	"github.com/relaygate/slackbridge/internal/metrics"
	"github.com/relaygate/slackbridge/internal/observability"
	"github.com/relaygate/slackbridge/internal/slackapi"
	"github.com/relaygate/slackbridge/internal/subscription"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real deployments set the environment directly
		_ = godotenv.Load()

		cfg, err := appcfg.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := log.New(os.Stdout, "slackbridge ", log.LstdFlags)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTelemetry, err := setupTelemetry(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				logger.Printf("event=telemetry_shutdown status=error err=%v", err)
			}
		}()

		tokens := slackapi.NewTokenSource(cfg.CredsURL, cfg.OutboundTimeout)
		factory := slackapi.NewFactory(tokens, cfg.OutboundTimeout, logger)

		bus := eventbus.New(cfg.RuntimeURL, cfg.OutboundTimeout,
			eventbus.WithRetry(cfg.ForwardRetryAttempts, cfg.ForwardRetryDelay),
			eventbus.WithLogger(logger),
		)

		service := subscription.NewService(factory, cfg.MaxRetainedEvents, logger)
		service.SetNotifyFunc(forwardFunc(bus, cfg.OutboundTimeout, logger))

		limiter := httpapi.NewRateLimiter(cfg.RateUserPerMinute, cfg.RateChannelPerMinute, cfg.RateGlobalPerMinute)
		server := httpapi.NewServer(cfg, service, limiter, logger)

		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			return server.Run(groupCtx)
		})
		return group.Wait()
	},
}

// forwardFunc builds the notification callback that pushes matched events to
// the runtime. Forwarding happens off the webhook request path so a slow
// runtime cannot delay the 200 Slack is waiting for.
func forwardFunc(bus *eventbus.Bus, timeout time.Duration, logger *log.Logger) subscription.NotifyFunc {
	return func(listener subscription.Listener, event subscription.Event) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			metrics.RecordMatch(ctx, listener.SubscriptionID)
			start := time.Now()
			err := bus.Submit(ctx, listener.SubscriptionID, event.Ts, event)
			metrics.RecordForward(ctx, time.Since(start), err)
			if err != nil {
				logger.Printf("event=forward subscription=%s event_id=%s status=error err=%v",
					listener.SubscriptionID, event.Ts, err)
			}
		}()
	}
}

// setupTelemetry initializes the OTLP trace and metric pipelines when
// enabled, returning a combined shutdown function. Disabled telemetry
// returns a no-op shutdown.
func setupTelemetry(ctx context.Context, cfg *appcfg.Config, logger *log.Logger) (observability.ShutdownFunc, error) {
	obsCfg, err := observability.LoadConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load telemetry config: %w", err)
	}
	if !obsCfg.Enabled {
		return observability.NewShutdownFunc(nil, nil), nil
	}

	tp, err := observability.InitTracer(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracer: %w", err)
	}
	mp, err := observability.InitMeter(ctx, obsCfg)
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
		return nil, fmt.Errorf("failed to init meter: %w", err)
	}

	logger.Printf("event=telemetry_init endpoint=%s protocol=%s", obsCfg.ExporterEndpoint, obsCfg.ExporterProtocol)
	return observability.NewShutdownFunc(tp, mp), nil
}
