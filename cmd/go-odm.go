package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/adfharrison1/go-odm/pkg/domain"
	"github.com/adfharrison1/go-odm/pkg/migrate"
	"github.com/adfharrison1/go-odm/pkg/mongodb"
	"github.com/adfharrison1/go-odm/pkg/odm"
	"github.com/adfharrison1/go-odm/pkg/server"
	"github.com/adfharrison1/go-odm/pkg/storage"
)

func main() {
	// Command line flags
	var (
		port           = flag.String("port", "8080", "Admin server port")
		mongoURI       = flag.String("mongo-uri", "", "MongoDB connection URI. Empty uses the embedded store.")
		dbName         = flag.String("db-name", "go-odm", "Database name when connecting to MongoDB")
		dataFile       = flag.String("data-file", "go-odm_data.godm", "Data file path for embedded store persistence")
		backgroundSave = flag.Duration("background-save", 0, "Embedded store background save interval (e.g., 5m, 30s). Set to 0 to disable.")
		migrateUntil   = flag.String("migrate-until", "", "RFC3339 cutover instant for the example migration. Empty disables it.")
		showHelp       = flag.Bool("help", false, "Show help message")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ngo-odm reconciles declared indexes and runs interval migrations at boot,\nthen serves an admin API for status and on-demand resync.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          # Embedded store, defaults\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mongo-uri mongodb://localhost:27017     # Real server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -migrate-until 2026-09-01T00:00:00Z      # Enable the example migration\n", os.Args[0])
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Pick the backing database: a real server when a URI is given, the
	// embedded store otherwise.
	var (
		db     domain.Database
		onExit func()
	)
	if *mongoURI != "" {
		mongoDB, err := mongodb.Connect(ctx, *mongoURI, *dbName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
		}
		logger.Info().Str("db", *dbName).Msg("connected to MongoDB")
		db = mongoDB
		onExit = func() { _ = mongoDB.Disconnect(context.Background()) }
	} else {
		var storageOptions []storage.StorageOption
		storageOptions = append(storageOptions, storage.WithDataFile(*dataFile))
		if *backgroundSave > 0 {
			storageOptions = append(storageOptions, storage.WithBackgroundSave(*backgroundSave))
			logger.Info().Dur("interval", *backgroundSave).Msg("background save enabled")
		} else {
			logger.Warn().Msg("background save disabled, data only saved on graceful shutdown")
		}

		engine := storage.NewStorageEngine(storageOptions...)
		if err := engine.LoadFromFile(*dataFile); err != nil {
			logger.Fatal().Err(err).Str("file", *dataFile).Msg("failed to load data file")
		}
		engine.StartBackgroundWorkers()
		logger.Info().Str("file", *dataFile).Msg("embedded store ready")
		db = engine
		onExit = func() {
			engine.StopBackgroundWorkers()
			if err := engine.SaveToFile(*dataFile); err != nil {
				logger.Error().Err(err).Str("file", *dataFile).Msg("failed to save data file")
			}
		}
	}
	defer onExit()

	registry := odm.NewRegistry(odm.NewEngine(odm.WithLogger(logger)), db)
	if err := registerExampleModels(registry, *migrateUntil); err != nil {
		logger.Fatal().Err(err).Msg("invalid model declarations")
	}

	// Boot sequence: indexes first, then migrations, per model. A failure
	// here is fatal; the process never serves traffic half-initialized.
	if err := registry.InitializeAll(ctx); err != nil {
		logger.Fatal().Err(err).Msg("model initialization failed")
	}
	logger.Info().Int("models", len(registry.Statuses())).Msg("all models initialized")

	srv := server.NewServer(registry, logger)
	httpServer := &http.Server{
		Addr:    ":" + *port,
		Handler: srv.Router(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("port", *port).Msg("starting go-odm admin server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	// Give outstanding requests a deadline for completion
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

// registerExampleModels declares the demo models. The users model shows the
// full surface: a unique index, a plain secondary index, and an optional
// interval migration backfilling a field introduced after launch.
func registerExampleModels(registry *odm.Registry, migrateUntil string) error {
	var migrations []domain.Migration
	if migrateUntil != "" {
		threshold, err := time.Parse(time.RFC3339, migrateUntil)
		if err != nil {
			return fmt.Errorf("invalid -migrate-until value: %w", err)
		}
		backfill, err := migrate.NewIntervalMigration(
			"backfill-plan",
			threshold,
			bson.D{{Key: "plan", Value: bson.D{{Key: "$exists", Value: false}}}},
			bson.D{{Key: "plan", Value: "free"}},
			nil,
		)
		if err != nil {
			return err
		}
		migrations = append(migrations, backfill)
	}

	registry.Register(&domain.ModelDescriptor{
		Collection: "users",
		Indexes: []domain.IndexSpec{
			{
				Keys:    []domain.IndexKey{{Field: "email", Type: domain.IndexAscending}},
				Options: domain.IndexOptions{Unique: true},
			},
			{
				Keys: []domain.IndexKey{{Field: "plan", Type: domain.IndexAscending}},
			},
		},
		Migrations: migrations,
	})

	expire := int32(30 * 24 * 60 * 60)
	registry.Register(&domain.ModelDescriptor{
		Collection: "sessions",
		Indexes: []domain.IndexSpec{
			{
				Keys: []domain.IndexKey{{Field: "token", Type: domain.IndexHashed}},
			},
			{
				Name:    "session_ttl",
				Keys:    []domain.IndexKey{{Field: "created_at", Type: domain.IndexAscending}},
				Options: domain.IndexOptions{ExpireAfterSeconds: &expire},
			},
		},
	})

	return nil
}
