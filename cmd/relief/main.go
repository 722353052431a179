package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"JevanRaksha/internal/alerts"
	"JevanRaksha/internal/bot"
	"JevanRaksha/internal/chat"
	"JevanRaksha/internal/geo"
	handlers "JevanRaksha/internal/handler"
	"JevanRaksha/internal/models"
	livesync "JevanRaksha/internal/sync"
	"JevanRaksha/internal/volunteer"
	"JevanRaksha/pkg/cache"
	"JevanRaksha/pkg/config"
	"JevanRaksha/pkg/feed"
	"JevanRaksha/pkg/logger"
	"JevanRaksha/pkg/metrics"
	"JevanRaksha/pkg/scheduler"
	stores "JevanRaksha/pkg/storage"
	"JevanRaksha/pkg/store"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg := config.GlobalConfig

	logger.Init(cfg.Log)
	defer logger.Sync()
	logger.Info("starting relief client", zap.String("mode", cfg.Mode))

	geo.DefaultCoordinate = geo.Coordinate{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	st := store.NewRestStore(store.Config{
		BaseURL: cfg.StoreURL,
		APIKey:  cfg.StoreAPIKey,
		Timeout: cfg.StoreTimeout,
	})
	changeFeed := feed.NewWebsocketFeed(cfg.FeedURL, cfg.StoreAPIKey, nil)
	defer changeFeed.Close()

	media, err := stores.NewStore(stores.Config{
		Backend:   cfg.StorageBackend,
		Bucket:    cfg.MediaBucket,
		BaseURL:   cfg.StorageBaseURL,
		APIKey:    cfg.StoreAPIKey,
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
		PublicURL: cfg.MinioBaseURL,
	})
	if err != nil {
		log.Fatalf("storage backend: %v", err)
	}

	snapshotCache, err := cache.NewCache(cache.Config{
		Type:              cfg.AlertCacheType,
		MaxSize:           1000,
		DefaultExpiration: cfg.AlertRefresh,
		CleanupInterval:   2 * cfg.AlertRefresh,
		RedisAddr:         cfg.CacheRedisAddr,
		RedisPassword:     cfg.CacheRedisPass,
		RedisDB:           cfg.CacheRedisDB,
	})
	if err != nil {
		log.Fatalf("snapshot cache: %v", err)
	}
	defer snapshotCache.Close()

	locator := geo.NewDefaultChain(nil, cfg.GeoIPDatabase, cfg.PublicIPAddress)
	position := func() *geo.Coordinate {
		point, err := locator.Current(context.Background())
		if err != nil {
			return nil
		}
		return &point
	}

	alertSvc := alerts.NewService(alerts.Config{
		URL:      cfg.AlertAPIURL,
		RadiusKm: int(cfg.AlertRadiusKm),
		Refresh:  cfg.AlertRefresh,
	}, snapshotCache, metrics.Default())

	cr := scheduler.NewCron(nil)
	if err := alertSvc.Start(cr, position); err != nil {
		log.Fatalf("schedule alert refresh: %v", err)
	}
	cr.Start()
	defer cr.Stop()
	alertSvc.Snapshot(context.Background(), position())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New()
	defer sched.Stop()

	chatSvc := chat.NewService(st, media)
	emergencySvc := livesync.NewEmergencyService(st)
	statsSvc := volunteer.NewStatsService(st, snapshotCache)
	assistant := bot.New(bot.Config{
		APIKey:  cfg.LLMApiKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	})

	if cfg.UserID != "" {
		startUserSync(ctx, cfg, st, changeFeed, locator, statsSvc, sched)
	}

	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	handlers.New(alertSvc, chatSvc, assistant, emergencySvc, statsSvc, locator).Register(r)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	logger.Info("http api listening", zap.String("addr", cfg.HTTPAddr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}

// startUserSync brings up the live synchronization hooks for the signed-in
// user: inbox, position tracking, and the emergency views for the user's
// role.
func startUserSync(ctx context.Context, cfg *config.Config, st store.Store, changeFeed feed.Feed, locator geo.Locator, stats *volunteer.StatsService, sched *scheduler.Scheduler) {
	met := metrics.Default()

	inbox := livesync.NewInboxSyncer(st, changeFeed, met, cfg.UserID)
	if err := inbox.Start(ctx); err != nil {
		logger.Error("inbox sync failed to start", zap.Error(err))
	}

	location := livesync.NewLocationSyncer(st, changeFeed, met, cfg.UserID, cfg.UserType)
	if err := location.Start(ctx); err != nil {
		logger.Error("location sync failed to start", zap.Error(err))
	} else if _, err := livesync.StartTracker(ctx, location, locator); err != nil {
		logger.Warn("position tracking unavailable", zap.Error(err))
	}

	if cfg.UserType == models.UserTypeVolunteer {
		active := livesync.NewActiveEmergencySyncer(st, changeFeed, met)
		if err := active.Start(ctx); err != nil {
			logger.Error("active emergency sync failed to start", zap.Error(err))
		}

		missions := livesync.NewMissionSyncer(st, changeFeed, met, cfg.UserID)
		if err := missions.Start(ctx); err != nil {
			logger.Error("mission sync failed to start", zap.Error(err))
		}

		sched.Every(10*time.Minute, scheduler.FuncJob(func(ctx context.Context) {
			if _, err := stats.Recompute(ctx, cfg.UserID); err != nil {
				logger.Warn("stats recompute failed", zap.Error(err))
			}
		}))
	}
}
