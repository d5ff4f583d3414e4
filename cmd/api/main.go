package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"claimflow/internal/app"
	"claimflow/internal/config"
	"claimflow/internal/database"
	"claimflow/internal/domain/eligibility"
	"claimflow/internal/domain/qa"
	apphttp "claimflow/internal/http"
	"claimflow/internal/http/handlers"
	"claimflow/internal/http/metrics"
	httpmw "claimflow/internal/http/middleware"
	"claimflow/internal/http/response"
	"claimflow/internal/integration/verify"
	"claimflow/internal/observability"
	"claimflow/internal/repository/postgres"
	"claimflow/internal/security"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger()
	db := database.NewPostgres(database.PostgresConfig{
		DSN:             cfg.PostgresDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdle:     cfg.DBConnMaxIdle,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
	defer db.Close()

	claimRepo := postgres.NewClaimRepository(db)
	decisionRepo := postgres.NewDecisionRepository(db)
	conflictChecker := postgres.NewConflictChecker(db)

	jwtProvider := security.NewJWTProvider(cfg.JWTSecret)
	verifyClient := verify.NewClient(cfg.VerifyBaseURL, cfg.VerifyAPIKey, &http.Client{Timeout: 5 * time.Second})

	claimService := app.NewClaimService(claimRepo, verifyClient, eligibility.Policy(cfg.PreferredPolicy))
	decisionService := app.NewDecisionService(claimRepo, decisionRepo, conflictChecker, qa.NewSampler(cfg.QAThresholdPercent))
	payrollService := app.NewPayrollService(claimRepo)

	var submitLimiter httpmw.Limiter = httpmw.NewRateLimiter()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		submitLimiter = httpmw.NewRedisLimiter(redis.NewClient(opts))
	}

	claimHandler := handlers.NewClaimHandler(claimService)
	adminHandler := handlers.NewAdminHandler(claimService, decisionService)
	payrollHandler := handlers.NewPayrollHandler(payrollService)
	middleware := httpmw.NewAuthMiddleware(jwtProvider)

	collector := metrics.NewCollector()
	response.SetErrorCollector(collector)

	router := apphttp.NewRouter(apphttp.RouterDependencies{
		ClaimHandler:     claimHandler,
		AdminHandler:     adminHandler,
		PayrollHandler:   payrollHandler,
		MetricsHandler:   handlers.NewMetricsHandler(collector),
		AuthMiddleware:   middleware,
		Metrics:          collector,
		SubmitLimiter:    submitLimiter,
		SubmitRateLimit:  cfg.SubmitRateLimit,
		SubmitRateWindow: cfg.SubmitRateWindow,
		RequestTimeout:   cfg.RequestTimeout,
	})
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API started on :" + cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
