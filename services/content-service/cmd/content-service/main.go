package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mimb-immigration/platform/libs/config"
	"github.com/mimb-immigration/platform/libs/db"
	"github.com/mimb-immigration/platform/libs/httpx"
	otelx "github.com/mimb-immigration/platform/libs/otel"
	"github.com/mimb-immigration/platform/libs/runtime"
	"github.com/mimb-immigration/platform/services/content-service/internal/handlers"
	"github.com/mimb-immigration/platform/services/content-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "content-service")
	port, err := config.Port("PORT", "8084")
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

	repo := storage.NewRepository(pool)
	content := handlers.NewContentHandler(repo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
	)
	mux.HandleFunc("/api/v1/content/services", content.Services)
	mux.HandleFunc("/api/v1/content/testimonials", content.Testimonials)
	mux.HandleFunc("/api/v1/content/faq", content.FAQ)
	mux.HandleFunc("/api/v1/content/site", content.SiteContent)
	mux.HandleFunc("/api/v1/content/images", content.SiteImages)
	mux.HandleFunc("/api/v1/contact", content.Contact)
	mux.HandleFunc("/api/v1/admin/content/services", content.Services)
	mux.HandleFunc("/api/v1/admin/content/testimonials", content.Testimonials)
	mux.HandleFunc("/api/v1/admin/content/faq", content.FAQ)
	mux.HandleFunc("/api/v1/admin/content/site", content.SiteContent)
	mux.HandleFunc("/api/v1/admin/content/images", content.SiteImages)
	mux.HandleFunc("/api/v1/admin/contact", content.AdminContacts)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "content")
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
