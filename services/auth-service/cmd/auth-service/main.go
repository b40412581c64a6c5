package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/mimb-immigration/platform/libs/config"
	"github.com/mimb-immigration/platform/libs/db"
	"github.com/mimb-immigration/platform/libs/httpx"
	otelx "github.com/mimb-immigration/platform/libs/otel"
	"github.com/mimb-immigration/platform/libs/runtime"
	"github.com/mimb-immigration/platform/services/auth-service/internal/handlers"
	"github.com/mimb-immigration/platform/services/auth-service/internal/storage"
)

// seedAdmin creates the initial admin account when ADMIN_EMAIL and
// ADMIN_PASSWORD are set and the account does not exist yet.
func seedAdmin(ctx context.Context, users *storage.UserRepository, logger *slog.Logger) {
	email := config.String("ADMIN_EMAIL", "")
	password := config.String("ADMIN_PASSWORD", "")
	if email == "" || password == "" {
		return
	}
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return
	} else if !storage.IsNotFound(err) {
		logger.Error("admin seed lookup failed", "err", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("admin seed hash failed", "err", err)
		return
	}
	if err := users.Create(ctx, storage.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         "admin",
	}); err != nil {
		logger.Error("admin seed failed", "err", err)
		return
	}
	logger.Info("admin account seeded", "email", email)
}

func main() {
	service := config.String("SERVICE_NAME", "auth-service")
	port, err := config.Port("PORT", "8085")
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

	secret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
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

	users := storage.NewUserRepository(pool)
	seedAdmin(ctx, users, logger)

	signer := handlers.NewHS256Signer(secret)
	authHandler := handlers.NewAuthHandler(signer, users, logger,
		time.Duration(config.Int("TOKEN_TTL_MINUTES", 60))*time.Minute,
	)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
	)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("/api/v1/auth/me", authHandler.Me)

	// Login attempts are throttled per client.
	limiter := httpx.NewRateLimiter(config.Int("LOGIN_RATE_LIMIT", 10), time.Minute)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(16<<10),
		limiter.Middleware(),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "auth")
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
