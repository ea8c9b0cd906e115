package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/shopfront-backend/api/routes"
	"github.com/angelmondragon/shopfront-backend/internal/auth"
	"github.com/angelmondragon/shopfront-backend/internal/cart"
	"github.com/angelmondragon/shopfront-backend/internal/catalog"
	"github.com/angelmondragon/shopfront-backend/internal/coupons"
	"github.com/angelmondragon/shopfront-backend/internal/orders"
	"github.com/angelmondragon/shopfront-backend/internal/profiles"
	"github.com/angelmondragon/shopfront-backend/internal/reviews"
	"github.com/angelmondragon/shopfront-backend/internal/users"
	"github.com/angelmondragon/shopfront-backend/internal/wishlist"
	"github.com/angelmondragon/shopfront-backend/pkg/auth/session"
	"github.com/angelmondragon/shopfront-backend/pkg/config"
	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/instance"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/metrics"
	"github.com/angelmondragon/shopfront-backend/pkg/migrate"
	"github.com/angelmondragon/shopfront-backend/pkg/outbox"
	"github.com/angelmondragon/shopfront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing connections", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	deps, err := buildServices(cfg, logg, dbClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	deps.DB = dbClient
	deps.Redis = redisClient
	deps.Store = redisClient
	deps.Sessions = sessionManager

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Metrics = metrics.NewHTTPMetrics(registry)
	deps.Gatherer = registry

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessionManager *session.Manager) (routes.Dependencies, error) {
	conn := dbClient.DB()

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repository: catalog.NewRepository(conn),
		DB:         dbClient,
		Logger:     logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	cartRepo := cart.NewRepository(conn)
	cartService, err := cart.NewService(cart.ServiceParams{Repository: cartRepo, DB: dbClient})
	if err != nil {
		return routes.Dependencies{}, err
	}

	couponRepo := coupons.NewRepository(conn)
	couponService, err := coupons.NewService(coupons.ServiceParams{Repository: couponRepo, DB: dbClient})
	if err != nil {
		return routes.Dependencies{}, err
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repository: orders.NewRepository(conn),
		Carts:      cartRepo,
		Coupons:    couponRepo,
		DB:         dbClient,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:     logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	reviewService, err := reviews.NewService(reviews.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}
	profileService, err := profiles.NewService(profiles.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}
	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Repository: wishlist.NewRepository(conn),
		DB:         dbClient,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		Auth:     authService,
		Catalog:  catalogService,
		Cart:     cartService,
		Orders:   orderService,
		Reviews:  reviewService,
		Profiles: profileService,
		Wishlist: wishlistService,
		Coupons:  couponService,
	}, nil
}
