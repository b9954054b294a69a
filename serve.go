package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application/checkout"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/fulfillment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/config"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/eventsink"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/paypal"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	httppresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/worker"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout HTTP server",
		Long: `Run the checkout HTTP server.

Configuration is read from the environment (PAYPAL_CLIENT_ID, PAYPAL_SECRET,
PAYPAL_MODE, HTTP_ADDR, EVENT_SINK, ...). SIGINT or SIGTERM shuts the server
down gracefully.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	baseLogger, err := zaplogger.New(cfg.LogFile,
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger.Zap())
	systemLogger := baseLogger.System()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := oteltrace.NewProvider(ctx, cfg.ServiceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	counters, histograms := prometrics.Standard(prometrics.New(reg, "", ""))

	tel := infraobs.New(infraobs.Options{
		Tracer:     oteltrace.FromProvider(tp, cfg.ServiceName),
		Logger:     baseLogger,
		Counters:   counters,
		Histograms: histograms,
	})

	publisher, closeSink, err := newEventSink(ctx, cfg, tel)
	if err != nil {
		return err
	}

	ppOpts := paypal.Options{
		BaseURL:     cfg.PayPal.APIBase(),
		Credentials: cfg.PayPal.Credentials,
		Timeout:     cfg.UpstreamTimeout,
		Tel:         tel,
	}
	tokens, err := paypal.NewTokenAcquirer(ppOpts)
	if err != nil {
		return err
	}
	orders, err := paypal.NewClient(ppOpts)
	if err != nil {
		return err
	}

	catalogRepo := memory.NewStorefrontCatalog()
	handler := httppresentation.NewHandler(httppresentation.Deps{
		CreateOrder: checkout.NewCreateOrderUseCase(tokens, orders,
			checkout.NewCatalogPricer(catalogRepo, cfg.DefaultAmount), cfg.StoreCurrency, tel),
		CaptureOrder:   checkout.NewCaptureOrderUseCase(tokens, orders, publisher, tel),
		Catalog:        catalogRepo,
		StoreCurrency:  cfg.StoreCurrency,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Tel:            tel,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("paypal_environment", string(cfg.PayPal.Environment)),
			observability.F("event_sink", cfg.EventSink),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			systemLogger.Error("http_server_error", observability.F("error", err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
	closeSink(shutdownCtx)
	if err := tp.Shutdown(shutdownCtx); err != nil {
		systemLogger.Warn("tracer_shutdown_error", observability.F("error", err))
	}
	return nil
}

// newEventSink builds the publisher for order.captured events and the func
// that releases it on shutdown.
func newEventSink(ctx context.Context, cfg *config.Config, tel observability.Observability) (domoutbox.Publisher, func(context.Context), error) {
	logger := tel.Logger()
	switch cfg.EventSink {
	case config.SinkNATS:
		nc, err := eventsink.DialNATS(cfg.NATSURL, cfg.ServiceName)
		if err != nil {
			return nil, nil, err
		}
		return eventsink.NewNATSPublisher(nc, cfg.NATSSubjectPrefix, tel), func(context.Context) {
			if err := nc.Drain(); err != nil {
				logger.Warn("nats_drain_error", observability.F("error", err))
			}
		}, nil
	case config.SinkKafka:
		w := eventsink.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		return eventsink.NewKafkaPublisher(w, tel), func(context.Context) {
			if err := w.Close(); err != nil {
				logger.Warn("kafka_writer_close_error", observability.F("error", err))
			}
		}, nil
	case config.SinkNone:
		return domoutbox.NopPublisher(), func(context.Context) {}, nil
	default:
		bus := outbox.NewBus(tel)
		workerpresentation.NewFulfillmentWorker(bus, fulfillment.NewMarkPendingUseCase(tel), tel).Start()
		bus.Start(ctx)
		return bus, bus.Stop, nil
	}
}
