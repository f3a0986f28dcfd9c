// Package app wires the engine together: config, storage, domain services,
// HTTP surface, health probes, and graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Yuliannahernandez/backend-app/internal/api"
	"github.com/Yuliannahernandez/backend-app/internal/domain/audit"
	"github.com/Yuliannahernandez/backend-app/internal/domain/cart"
	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
	"github.com/Yuliannahernandez/backend-app/internal/domain/loyalty"
	"github.com/Yuliannahernandez/backend-app/internal/domain/reward"
	"github.com/Yuliannahernandez/backend-app/internal/domain/trivia"
	"github.com/Yuliannahernandez/backend-app/internal/storage/postgres"
	"github.com/Yuliannahernandez/backend-app/pkg/health"
	"github.com/Yuliannahernandez/backend-app/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.DatabasePingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(2*time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	branchRepo := postgres.NewBranchRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	loyaltyRepo := postgres.NewLoyaltyRepository(pool)
	rewardRepo := postgres.NewRewardRepository(pool)
	questionRepo := postgres.NewTriviaQuestionRepository(pool)
	sessionRepo := postgres.NewTriviaSessionRepository(pool)

	// Coupon validation, optionally behind the ingest-built bloom prefilter.
	validator := coupon.NewValidator(couponRepo)
	issuer := reward.NewIssuer(couponRepo)
	if cfg.BloomFilterPath != "" {
		filter, err := coupon.LoadCodeFilter(cfg.BloomFilterPath)
		if err != nil {
			return errors.Wrap(err, "load coupon code filter")
		}
		validator.WithPrefilter(filter)
		issuer.WithCodeFilter(filter)
		lg.Info("Coupon code prefilter loaded", zap.String("path", cfg.BloomFilterPath))
	}

	// Domain services.
	loyaltySvc := loyalty.NewService(loyaltyRepo, rewardRepo, issuer)
	triviaSvc := trivia.NewService(questionRepo, sessionRepo, issuer, couponRepo)
	cartSvc := cart.NewService(
		orderRepo, productRepo, branchRepo,
		couponRepo, validator, loyaltySvc,
		audit.NewLogObserver(),
	)

	// HTTP surface.
	h := api.NewHandler(cartSvc, loyaltySvc, triviaSvc, validator, productRepo, branchRepo)
	apiRouter := otelhttp.NewHandler(api.NewRouter(h), "orders-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", apiRouter))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-Customer-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
