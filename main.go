package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/config"
	"github.com/kevinaaaquil/readlog/backend/handlers"
	"github.com/kevinaaaquil/readlog/backend/service"
	"github.com/kevinaaaquil/readlog/backend/store"
	"github.com/kevinaaaquil/readlog/backend/utils"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "readlog",
		Short:         "Reading tracker API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB unique indexes and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ensureIndexes(cmd.Context())
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "readlog:", err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*config.Config, *zap.Logger, *store.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}
	log, err := utils.NewLogger(utils.LogConfig{
		Level:      cfg.LogLevel,
		Dev:        cfg.LogDev,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("logger: %w", err)
	}
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	db, err := store.NewMongoDB(connectCtx, cfg.MongoURI, cfg.DBName, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, fmt.Errorf("mongodb: %w", err)
	}
	return cfg, log, db, nil
}

func ensureIndexes(ctx context.Context) error {
	_, log, db, err := setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer disconnect(db, log)

	if err := db.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("indexes: %w", err)
	}
	log.Info("indexes ensured")
	return nil
}

func serve(ctx context.Context) error {
	cfg, log, db, err := setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer disconnect(db, log)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("indexes: %w", err)
	}

	var covers *service.CoverMirror
	if cfg.S3Bucket != "" {
		s3Service, err := service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		covers = service.NewCoverMirror(s3Service, db, log)
	}

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	router := handlers.NewRouter(handlers.Deps{
		Log:             log,
		Tokens:          tokens,
		Sessions:        service.NewSessionManager(db, tokens, service.BcryptHasher{}, log),
		Library:         service.NewLibraryManager(db, covers, log),
		Ledger:          service.NewReadingLedger(db, log),
		Catalog:         service.NewCatalog(cfg.GoogleBooksURL, cfg.GoogleBooksAPIKey, db, log),
		Ping:            db.Ping,
		AllowedOrigins:  cfg.AllowedOrigins,
		CookieSecure:    cfg.CookieSecure,
		LoginRatePerMin: cfg.LoginRatePerMin,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	return nil
}

func disconnect(db *store.DB, log *zap.Logger) {
	if err := db.Disconnect(context.Background()); err != nil {
		log.Error("mongodb disconnect", zap.Error(err))
	}
}
