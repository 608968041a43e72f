package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/nutrisift/internal/application"
	appchat "github.com/bryanwahyu/nutrisift/internal/application/chat"
	appscans "github.com/bryanwahyu/nutrisift/internal/application/scans"
	"github.com/bryanwahyu/nutrisift/internal/config"
	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
	"github.com/bryanwahyu/nutrisift/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/nutrisift/internal/domain/scans"
	aiinfra "github.com/bryanwahyu/nutrisift/internal/infra/ai"
	"github.com/bryanwahyu/nutrisift/internal/infra/cache"
	mysqlp "github.com/bryanwahyu/nutrisift/internal/infra/db/mysql"
	"github.com/bryanwahyu/nutrisift/internal/infra/db/postgres"
	"github.com/bryanwahyu/nutrisift/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/nutrisift/internal/infra/storage"
	"github.com/bryanwahyu/nutrisift/internal/logger"
	"github.com/bryanwahyu/nutrisift/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx := context.Background()

	// init model client
	client, err := aiinfra.New(aiinfra.Options{
		Provider:   cfg.AI.Provider,
		APIKey:     cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		BaseURL:    cfg.AI.BaseURL,
		SugarTerms: cfg.Rules.ExtraSugarTerms,
	})
	if err != nil {
		lg.Fatal("ai client init error", zap.Error(err))
	}
	model := aiinfra.ModelOf(client)
	lg.Info("ai provider ready", zap.String("provider", client.Name()), zap.String("model", model))

	checkers := map[string]middleware.HealthChecker{}

	// history opsional; tanpa driver record tetap dikembalikan tapi tidak disimpan
	var (
		repo   domain.Repository
		errRep scanerrors.Repository
	)
	if db, err := openDB(ctx, cfg); err != nil {
		lg.Fatal("database connect error", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	} else if db != nil {
		defer db.Close()
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		switch cfg.Database.Driver {
		case "postgres":
			repo, errRep = postgres.NewScanRepository(db), postgres.NewScanErrorRepository(db)
		default:
			repo, errRep = mysqlp.NewScanRepository(db), mysqlp.NewScanErrorRepository(db)
		}
		lg.Info("database connected", zap.String("driver", cfg.Database.Driver))
	}

	// init minio
	var images domain.ImageStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			lg.Fatal("minio init error", zap.Error(err))
		}
		images = store
		checkers["minio"] = middleware.CheckFunc(store.Ping)
	}

	// init redis
	var records domain.RecordCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRecordCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			lg.Fatal("redis init error", zap.Error(err))
		}
		defer rc.Close()
		records = rc
		checkers["redis"] = middleware.CheckFunc(rc.Ping)
	}

	// init service
	scanSvc := &appscans.Service{
		Vision:   client,
		Provider: client.Name(),
		Model:    model,
		Engine:   analysis.NewEngine(analysis.DefaultLexicon(cfg.Rules.ExtraSugarTerms...)),
		Repo:     repo,
		Images:   images,
		Errors:   errRep,
		Cache:    records,
		Clock:    application.SystemClock{},
		Logger:   lg.Named("scans"),
		Timeout:  cfg.AI.Timeout,
	}
	chatSvc := &appchat.Service{
		Chatter: client,
		Cache:   records,
		Repo:    repo,
		Logger:  lg.Named("chat"),
		Timeout: cfg.AI.Timeout,
	}

	stopCleanup := make(chan struct{})
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.Refill)
	limiter.StartCleanup(5*time.Minute, 30*time.Minute, stopCleanup)

	// init router
	handler := httpserver.NewRouter(httpserver.Options{
		Scans:        scanSvc,
		Chat:         chatSvc,
		Logger:       lg.Named("http"),
		Provider:     client.Name(),
		CORSOrigins:  cfg.Server.CORSOrigins,
		APIKeys:      cfg.Server.APIKeys,
		RateLimiter:  limiter,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Checkers:     checkers,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AI.Timeout + 15*time.Second, // model call + upload + simpan
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		lg.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	lg.Info("shutting down server...")
	close(stopCleanup)

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.AI.Timeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		lg.Error("shutdown error", zap.Error(err))
	}
}

// openDB returns nil, nil when no driver is configured.
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "":
		return nil, nil
	case "mysql":
		return mysqlp.Connect(ctx, cfg.MySQLDSN())
	case "postgres":
		return postgres.Connect(ctx, cfg.PostgresDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
