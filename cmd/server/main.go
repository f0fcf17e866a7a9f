package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/geohunt/coin-engine/internal/collection"
	"github.com/geohunt/coin-engine/internal/config"
	"github.com/geohunt/coin-engine/internal/distribution"
	"github.com/geohunt/coin-engine/internal/hunt"
	"github.com/geohunt/coin-engine/internal/metrics"
	"github.com/geohunt/coin-engine/internal/payout"
	"github.com/geohunt/coin-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Distribution engine ---
	dist := distribution.NewEngine(st, distribution.Config{
		MinCoinsPerGrid: cfg.MinCoinsPerGrid,
		MinContribution: cfg.MinContribution,
		MaxContribution: cfg.MaxContribution,
		RecycleAfter:    cfg.RecycleAfter,
	}, nil)

	// --- WebSocket hub ---
	hub := hunt.NewHub()
	go hub.Run()

	// --- Hunt service ---
	validator := collection.NewValidator(cfg.CollectionRangeMeters)
	resolver := payout.NewResolver(nil)
	svc := hunt.NewService(st, dist, validator, resolver, hunt.Config{
		DailyGasRate:       cfg.DailyGasRate,
		ConfirmAfter:       cfg.ConfirmAfter,
		NearbyRadiusMeters: cfg.NearbyRadiusMeters,
	}, hub)

	// --- Background sweeps ---
	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	defer stopSweeps()
	go runSweeps(sweepCtx, svc, dist, cfg.SweepInterval)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"coin-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time coin events.
		r.Get("/ws", hub.HandleWS)

		// Coins.
		r.Get("/coins/nearby", svc.HandleNearby)
		r.Post("/coins", svc.HandleHide)
		r.Get("/coins/{coinID}", svc.HandleGetCoin)
		r.Get("/coins/{coinID}/preview", svc.HandlePreview)
		r.Post("/coins/{coinID}/collect", svc.HandleCollect)
		r.Post("/coins/{coinID}/retrieve", svc.HandleRetrieve)

		// Wallets.
		r.Get("/wallets/{userID}", svc.HandleGetWallet)
		r.Get("/wallets/{userID}/history", svc.HandleHistory)
		r.Post("/wallets/{userID}/park", svc.HandlePark)
		r.Post("/wallets/{userID}/unpark", svc.HandleUnpark)
		r.Post("/wallets/{userID}/gas", svc.HandleConsumeGas)
		r.Post("/wallets/{userID}/confirm", svc.HandleConfirmPending)

		// Stats.
		r.Get("/stats/{userID}", svc.HandleGetStats)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("coin-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down coin-engine...")
	stopSweeps()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("coin-engine stopped")
}

// runSweeps drives the periodic maintenance work: reclaiming system
// coins from idle grids, charging daily gas, and confirming matured
// pending credits.
func runSweeps(ctx context.Context, svc *hunt.Service, dist *distribution.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := dist.RecycleStaleCoins(ctx); err != nil {
			slog.Error("recycle sweep failed", "err", err)
		} else if n > 0 {
			metrics.CoinsRecycled.Add(float64(n))
		}

		if _, err := svc.ConsumeDailyGasSweep(ctx); err != nil {
			slog.Error("gas sweep failed", "err", err)
		}

		if _, err := svc.ConfirmPendingSweep(ctx); err != nil {
			slog.Error("confirm sweep failed", "err", err)
		}
	}
}
