package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	httpctx "github.com/textsnap/textsnap-server/internal/api/http/context"
	"github.com/textsnap/textsnap-server/internal/api/http/router"
	httpServer "github.com/textsnap/textsnap-server/internal/api/http/server"
	"github.com/textsnap/textsnap-server/internal/config"
	"github.com/textsnap/textsnap-server/internal/extract"
	"github.com/textsnap/textsnap-server/internal/extract/tesseract"
	"github.com/textsnap/textsnap-server/internal/logger"
	"github.com/textsnap/textsnap-server/internal/model"
	"github.com/textsnap/textsnap-server/internal/ratelimit"
	"github.com/textsnap/textsnap-server/internal/repository/postgres"
	"github.com/textsnap/textsnap-server/internal/server"
	"github.com/textsnap/textsnap-server/internal/service"
	storage "github.com/textsnap/textsnap-server/internal/storage/minio"
	"github.com/textsnap/textsnap-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	recordRepo := postgres.NewImageRequestRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret)
	authService := service.NewAuth(tokenManager, logger)

	var retention model.Storage
	if cfg.Storage.RetainImages {
		minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
			Secure: cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Fatal("failed to create minio client", "error", err)
		}
		retention, err = storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
		if err != nil {
			logger.Fatal("failed to initialize retention storage", "error", err)
		}
	}

	engine := tesseract.NewEngine(cfg.Extract.Languages...)
	extractor := extract.NewAdapter(engine, cfg.Extract.AllowedTypes, cfg.Extract.MaxBytes, cfg.Extract.Timeout, logger)
	imageService := service.NewImage(recordRepo, extractor, retention, logger)

	limiter := ratelimit.NewFixedWindow(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	defer limiter.Stop()

	ctxMgr := httpctx.NewManager()

	// leave room for multipart framing around the image itself
	maxUpload := cfg.Extract.MaxBytes + 1<<20
	r := router.New(imageService, authService, limiter, ctxMgr, maxUpload, logger)
	srv := httpServer.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(srv)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", srv.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
