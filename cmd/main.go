package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/cart-engine/internal/cart"
	"github.com/fjod/go_cart/cart-engine/internal/catalog"
	"github.com/fjod/go_cart/cart-engine/internal/config"
	h "github.com/fjod/go_cart/cart-engine/internal/http"
	"github.com/fjod/go_cart/cart-engine/internal/logger"
	"github.com/fjod/go_cart/cart-engine/internal/poller"
	"github.com/fjod/go_cart/cart-engine/internal/reconcile"
	"github.com/fjod/go_cart/cart-engine/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStorage, err := openStorage(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("storage setup failed", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer closeStorage()

	fetcher, closeCatalog, err := openCatalog(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("catalog setup failed", zap.String("source", cfg.CatalogSource), zap.Error(err))
	}
	defer closeCatalog()

	store := cart.NewStore(ctx, st, cfg.CartKey, cart.WithLogger(lg))
	store.Subscribe(func(ev cart.Event) {
		lg.Debug("cart changed",
			zap.Uint64("version", ev.Version),
			zap.String("cause", string(ev.Cause)),
			zap.String("command", ev.Command),
			zap.Int("items", len(ev.Items)))
	})
	lg.Info("cart loaded", zap.String("cart_key", cfg.CartKey), zap.Int("items", len(store.Items())))

	reconciler := reconcile.NewReconciler(store, fetcher, lg)
	if cfg.ReconcileInterval > 0 {
		go reconciler.Start(ctx, cfg.ReconcileInterval)
	}

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(store, cfg.OrderEventsTopic, cfg.KafkaGroupID, lg, cfg.KafkaBrokers...)
		defer p.Close()
		go p.Run(ctx)
		lg.Info("order event poller started", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.OrderEventsTopic))
	}

	cartHandler := h.NewCartHandler(store, reconciler, cfg.RequestTimeout, lg)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.NewRouter(cartHandler, cfg.RequestTimeout, lg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("cart engine starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down server...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server forced to shutdown", zap.Error(err))
	}

	lg.Info("server exited")
}

func openStorage(ctx context.Context, cfg *config.Config, lg *zap.Logger) (storage.Storage, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, nil, err
		}
		lg.Info("Redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		return storage.NewRedisStorage(redisClient, cfg.RedisTTL), func() { _ = redisClient.Close() }, nil

	case config.StorageMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		ms := storage.NewMongoStorage(db)
		if err := ms.CreateIndexes(ctx); err != nil {
			lg.Warn("failed to create mongo indexes", zap.Error(err))
		}
		lg.Info("Connected to MongoDB", zap.String("db", cfg.MongoDBName))
		return ms, func() { _ = db.Client().Disconnect(context.Background()) }, nil

	default:
		lg.Warn("using in-memory cart storage, cart will not survive restarts")
		return storage.NewMemoryStorage(), func() {}, nil
	}
}

func openCatalog(ctx context.Context, cfg *config.Config, lg *zap.Logger) (catalog.Fetcher, func(), error) {
	upstream := catalog.NewHTTPFetcher(cfg.CatalogURL, cfg.CatalogTimeout, lg)
	if cfg.CatalogSource != config.CatalogSQLite {
		lg.Info("catalog endpoint configured", zap.String("url", cfg.CatalogURL))
		return upstream, func() {}, nil
	}

	src, err := catalog.NewSQLSource(cfg.CatalogDBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := src.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		_ = src.Close()
		return nil, nil, err
	}

	if cfg.CatalogSyncInterval > 0 {
		// a failed first sync keeps whatever the mirror already holds
		if n, err := src.Sync(ctx, upstream); err != nil {
			lg.Warn("initial catalog mirror sync failed", zap.String("url", cfg.CatalogURL), zap.Error(err))
		} else {
			lg.Info("catalog mirror synced", zap.Int("products", n))
		}
		go src.RunSync(ctx, upstream, cfg.CatalogSyncInterval, lg)
	}

	lg.Info("catalog mirror ready", zap.String("path", cfg.CatalogDBPath))
	return src, func() { _ = src.Close() }, nil
}
