package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mimb-immigration/platform/libs/config"
	"github.com/mimb-immigration/platform/libs/db"
	"github.com/mimb-immigration/platform/libs/httpx"
	"github.com/mimb-immigration/platform/libs/kafkax"
	otelx "github.com/mimb-immigration/platform/libs/otel"
	"github.com/mimb-immigration/platform/libs/runtime"
	"github.com/mimb-immigration/platform/services/analytics-service/internal/consumer"
	"github.com/mimb-immigration/platform/services/analytics-service/internal/inbox"
	"github.com/mimb-immigration/platform/services/analytics-service/internal/metrics"
)

var appointmentTopics = []string{
	"appointment.requested.v1",
	"appointment.validated.v1",
	"appointment.refused.v1",
	"appointment.proposal_sent.v1",
	"appointment.proposal_accepted.v1",
	"appointment.proposal_expired.v1",
}

func main() {
	service := config.String("SERVICE_NAME", "analytics-service")
	port, err := config.Port("PORT", "8086")
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

	inboxRepo := inbox.NewRepository(pool)
	metricsRepo := metrics.NewRepository(pool)
	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "analytics-service")

	handleDelivery := func(status string) consumer.Handler {
		return func(ctx context.Context, msg kafka.Message) error {
			var payload struct {
				AppointmentID string `json:"appointment_id"`
				EmailType     string `json:"email_type"`
				Provider      string `json:"provider"`
				Error         string `json:"error"`
			}
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid delivery payload", "err", err)
				return nil
			}
			if payload.AppointmentID == "" || payload.EmailType == "" {
				logger.Error("missing delivery fields", "topic", msg.Topic)
				return nil
			}

			occurredAt := msg.Time
			if occurredAt.IsZero() {
				occurredAt = time.Now()
			}
			if err := metricsRepo.RecordDelivery(ctx, metrics.Delivery{
				AppointmentID: payload.AppointmentID,
				EmailType:     payload.EmailType,
				Provider:      payload.Provider,
				Status:        status,
				ErrorReason:   payload.Error,
				OccurredAt:    occurredAt,
			}); err != nil {
				logger.Error("failed to record delivery metric", "err", err)
				return err
			}
			logger.Info("delivery metric recorded", "appointment_id", payload.AppointmentID, "email_type", payload.EmailType, "status", status)
			return nil
		}
	}

	sentConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "notification.sent.v1",
	}, handleDelivery("sent"))
	go sentConsumer.Run(ctx)

	failedConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "notification.failed.v1",
	}, handleDelivery("failed"))
	go failedConsumer.Run(ctx)

	for _, topic := range appointmentTopics {
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, func(ctx context.Context, msg kafka.Message) error {
			var payload struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid appointment payload", "err", err)
				return nil
			}
			if payload.ID == "" {
				logger.Error("missing appointment id", "topic", msg.Topic)
				return nil
			}

			meta := kafkax.ExtractEventMeta(msg)
			occurredAt := msg.Time
			if occurredAt.IsZero() {
				occurredAt = time.Now()
			}
			if err := metricsRepo.RecordStatusChange(ctx, meta.EventType, occurredAt); err != nil {
				logger.Error("failed to record status metric", "err", err)
				return err
			}
			logger.Info("status metric recorded", "appointment_id", payload.ID, "event_type", meta.EventType)
			return nil
		})
		go c.Run(ctx)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "analytics")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
