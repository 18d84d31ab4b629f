package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/vizzy-backend/api"
	"github.com/rpupo63/vizzy-backend/cleanup"
	"github.com/rpupo63/vizzy-backend/config"
	"github.com/rpupo63/vizzy-backend/database"
	"github.com/rpupo63/vizzy-backend/storage"
)

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	settings, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogging(settings.Logging)

	if settings.Database.URL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	if settings.Database.RunMigrations {
		if err := database.Migrate(settings.Database.URL); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	db, err := database.Open(settings.Database.URL, settings.Database.ReplicaURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	currentDB := database.New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := currentDB.Ping(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("database is not reachable")
	}
	blobs, err := openBlobStore(ctx, settings.Storage)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("driver", settings.Storage.Driver).Msg("failed to open blob store")
	}

	var scheduler *cleanup.Scheduler
	if settings.Cleanup.Enabled {
		cfg := cleanup.DefaultConfig()
		cfg.GracePeriod = time.Duration(settings.Cleanup.GracePeriodMinutes) * time.Minute
		cfg.DryRun = settings.Cleanup.DryRun

		scheduler = cleanup.NewScheduler(cleanup.NewSweeper(currentDB, blobs, cfg), settings.Cleanup.Schedule)
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Str("schedule", settings.Cleanup.Schedule).Msg("failed to start cleanup scheduler")
		}
	}

	errChannel := make(chan error)
	defer close(errChannel)

	server, err := api.NewServer(settings, api.Dependencies{
		Store:  currentDB,
		Blobs:  blobs,
		Pinger: currentDB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Err(fatalErr).Msg("closing server")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	server.ShutdownGracefully(30 * time.Second)
}

func openBlobStore(ctx context.Context, s config.StorageSettings) (storage.BlobStore, error) {
	switch s.Driver {
	case "minio":
		return storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  s.Minio.Endpoint,
			AccessKey: s.Minio.AccessKey,
			SecretKey: s.Minio.SecretKey,
			Bucket:    s.Minio.Bucket,
			Prefix:    s.Minio.Prefix,
			UseSSL:    s.Minio.UseSSL,
			PublicURL: s.UploadURL,
		})
	default:
		return storage.NewLocalStore(s.UploadDir, s.UploadURL)
	}
}

func setupLogging(s config.LoggingSettings) {
	level, err := zerolog.ParseLevel(strings.ToLower(s.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if s.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
