package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-multichat/server/internal/api"
	"github.com/go-multichat/server/internal/config"
	"github.com/go-multichat/server/internal/database"
	"github.com/go-multichat/server/internal/media"
	"github.com/go-multichat/server/internal/objstore"
	"github.com/go-multichat/server/internal/permission"
	"github.com/go-multichat/server/internal/realtime"
	"github.com/go-multichat/server/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	migrationsDir  string
	signingKey     string
	allowedOrigins stringSliceFlag

	s3Endpoint     string
	s3Region       string
	s3AccessKey    string
	s3SecretKey    string
	s3UsePathStyle bool
	avatarBucket   string
	mediaBucket    string

	mediaUploadTimeout time.Duration
	presignTTL         time.Duration
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&migrationsDir, "migrations-dir", "db/migrations", "directory containing schema migrations")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&s3Endpoint, "s3-endpoint", "", "object store endpoint override")
	flag.StringVar(&s3Region, "s3-region", "us-east-1", "object store region")
	flag.StringVar(&s3AccessKey, "s3-access-key", "", "object store access key")
	flag.StringVar(&s3SecretKey, "s3-secret-key", "", "object store secret key")
	flag.BoolVar(&s3UsePathStyle, "s3-path-style", false, "use path-style object store addressing")
	flag.StringVar(&avatarBucket, "avatar-bucket", "multichat-avatars", "public bucket for avatars")
	flag.StringVar(&mediaBucket, "media-bucket", "multichat-media", "private bucket for message media")
	flag.DurationVar(&mediaUploadTimeout, "media-upload-timeout", 30*time.Second, "media pipeline timeout")
	flag.DurationVar(&presignTTL, "presign-ttl", time.Hour, "lifetime of presigned media URLs")
	flag.Parse()

	logger := log.New(os.Stderr, "[multichat] ", log.LstdFlags)

	cfg, err := config.NewConfig(config.Params{
		ServerAddr:         addr,
		DatabaseDSN:        dsn,
		MigrationsDir:      migrationsDir,
		SigningSecret:      signingKey,
		AllowedOrigins:     allowedOrigins,
		S3Endpoint:         s3Endpoint,
		S3Region:           s3Region,
		S3AccessKey:        s3AccessKey,
		S3SecretKey:        s3SecretKey,
		S3UsePathStyle:     s3UsePathStyle,
		AvatarBucket:       avatarBucket,
		MediaBucket:        mediaBucket,
		MediaUploadTimeout: mediaUploadTimeout,
		PresignTTL:         presignTTL,
	})
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if cfg.MigrationsDir != "" {
		if err := dbConn.Migrate(cfg.MigrationsDir); err != nil {
			logger.Fatal("migrate:", err)
		}
	}

	// The permission rows must match the declared set exactly before
	// any authorization decision is made.
	registry := permission.NewRegistry(dbConn)
	if err := registry.Resolve(); err != nil {
		logger.Fatal("resolve permissions:", err)
	}

	store, err := objstore.NewS3Store(context.Background(), objstore.Config{
		Endpoint:     cfg.S3Endpoint,
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	if err != nil {
		logger.Fatal("object store:", err)
	}

	processor := media.NewProcessor(store, cfg.MediaBucket, cfg.MediaUploadTimeout)

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	hub := realtime.NewHub(logger, dbConn, statsUpdater)

	srv := api.NewChatApp(mux, logger, dbConn, registry, processor, store, hub, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go hub.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down hub...")
	hub.Shutdown()

	logger.Println("shutdown complete")
}
