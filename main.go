package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MagicSoftDev0717/send-contract-toemail-render/config"
	"github.com/MagicSoftDev0717/send-contract-toemail-render/handler"
	"github.com/MagicSoftDev0717/send-contract-toemail-render/middleware"
	"github.com/MagicSoftDev0717/send-contract-toemail-render/pkg/logger"
	"github.com/MagicSoftDev0717/send-contract-toemail-render/service"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully",
		"store", cfg.Store.Backend,
		"storage", cfg.Storage.Backend,
		"signed_links", cfg.Links.Secret != "",
	)
	if cfg.Mail.APIKey == "" {
		slog.Warn("SENDGRID_API_KEY is not set, email delivery will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newContractStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize contract store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	signer := service.NewLinkSigner(cfg.Links.Secret, cfg.Links.ExpireHours)

	files, closeFiles, err := newFileStorage(ctx, cfg, signer)
	if err != nil {
		slog.Error("failed to initialize file storage", "error", err)
		os.Exit(1)
	}
	defer closeFiles()

	// Initialize services
	mailer := service.NewSendGridMailer(&cfg.Mail)
	notifier := service.NewNotifier(mailer,
		service.Address{Name: cfg.Mail.FromName, Email: cfg.Mail.FromAddress},
		cfg.Server.PublicURL, signer, cfg.Mail.ShouldAttachPDF())
	contracts := service.NewContractService(store, files, service.NewPDFAnnotator(), notifier)

	contractHandler := handler.NewContractHandler(contracts, cfg.Server.MaxBodyMB)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware(cfg.Server.AllowedOrigin))
	router.Use(noCacheMiddleware())
	router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window()))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	contractHandler.Register(router, middleware.LinkToken(signer))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Server.Port, "public_url", cfg.Server.PublicURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

func newContractStore(ctx context.Context, cfg *config.Config) (service.ContractStore, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		ttl := time.Duration(cfg.Redis.TTLHours) * time.Hour
		return service.NewRedisStore(client, cfg.Redis.KeyPrefix, ttl), func() { client.Close() }, nil
	default:
		return service.NewMemoryStore(cfg.Store.MaxContracts), func() {}, nil
	}
}

func newFileStorage(ctx context.Context, cfg *config.Config, signer *service.LinkSigner) (service.FileStorage, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageMinio:
		minioStorage, err := service.NewMinioStorage(&cfg.Minio)
		if err != nil {
			return nil, nil, err
		}
		if err := minioStorage.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to ensure MINIO bucket: %w", err)
		}
		return minioStorage, func() {}, nil
	default:
		fs, err := service.NewFilesystemStorage(cfg.Storage.Dir, cfg.Server.PublicURL)
		if err != nil {
			return nil, nil, err
		}
		fs.SignLinks(signer)
		slog.Info("storing contracts on disk", "directory", cfg.Storage.Dir)
		return fs, func() { fs.Close() }, nil
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")
		if allowedOrigin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// noCacheMiddleware keeps contract responses out of shared caches
func noCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
