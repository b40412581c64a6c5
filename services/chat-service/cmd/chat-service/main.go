package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mimb-immigration/platform/libs/config"
	"github.com/mimb-immigration/platform/libs/httpx"
	otelx "github.com/mimb-immigration/platform/libs/otel"
	"github.com/mimb-immigration/platform/libs/runtime"
	"github.com/mimb-immigration/platform/services/chat-service/internal/handlers"
	"github.com/mimb-immigration/platform/services/chat-service/internal/relay"
)

func main() {
	service := config.String("SERVICE_NAME", "chat-service")
	port, err := config.Port("PORT", "8083")
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

	apiKey, err := config.RequiredString("CHAT_API_KEY")
	if err != nil {
		panic(err)
	}
	client := relay.NewClient(
		config.String("CHAT_API_URL", "https://ai.gateway.lovable.dev/v1/chat/completions"),
		apiKey,
		config.String("CHAT_MODEL", "google/gemini-2.5-flash"),
		config.Int("CHAT_MAX_TOKENS", 500),
	)
	chatHandler := handlers.NewChatHandler(client, logger)

	mux := runtime.NewBaseMuxWithReady()
	mux.HandleFunc("/api/v1/chat", chatHandler.Chat)

	// Local per-visitor cap before the upstream's own limits kick in.
	// Redis keeps the window shared when more than one replica runs.
	var limit httpx.Middleware
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			panic(err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		limit = httpx.NewRedisRateLimiter(rdb,
			config.Int("CHAT_RATE_LIMIT", 20), time.Minute, "chat",
		).Middleware(logger, true)
	} else {
		limit = httpx.NewRateLimiter(config.Int("CHAT_RATE_LIMIT", 20), time.Minute).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(64<<10),
		limit,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "chat")
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
