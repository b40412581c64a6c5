package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mimb-immigration/platform/libs/config"
	"github.com/mimb-immigration/platform/libs/db"
	"github.com/mimb-immigration/platform/libs/httpx"
	"github.com/mimb-immigration/platform/libs/kafkax"
	otelx "github.com/mimb-immigration/platform/libs/otel"
	"github.com/mimb-immigration/platform/libs/outbox"
	"github.com/mimb-immigration/platform/libs/runtime"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/expiry"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/handlers"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/lifecycle"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/notify"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "appointment-service")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewRepository(pool, outboxRepo)
	notifier := notify.NewClient(
		config.String("NOTIFICATION_URL", "http://notification-service:8082"),
		config.String("SITE_URL", "https://mimbimmigration.com"),
	)
	svc := lifecycle.NewService(repo, notifier, logger)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	ttlDays := config.Int("PROPOSAL_TTL_DAYS", 14)
	expiryWorker := expiry.NewWorker(repo, notifier, logger,
		time.Duration(ttlDays)*24*time.Hour,
		time.Duration(config.Int("PROPOSAL_SWEEP_MINUTES", 60))*time.Minute,
	)
	go expiryWorker.Run(ctx)

	handler := handlers.NewAppointmentHandler(svc, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/appointments", handler.Create)
	mux.HandleFunc("/api/v1/appointments/respond", handler.Respond)
	mux.HandleFunc("/api/v1/admin/appointments", handler.List)
	mux.HandleFunc("/api/v1/admin/appointments/validate", handler.Validate)
	mux.HandleFunc("/api/v1/admin/appointments/refuse", handler.Refuse)
	mux.HandleFunc("/api/v1/admin/appointments/propose", handler.Propose)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "appointment")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
