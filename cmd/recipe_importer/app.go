package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/recipe-importer/internal/broadcast"
	"github.com/jonathan/recipe-importer/internal/config"
	"github.com/jonathan/recipe-importer/internal/db"
	"github.com/jonathan/recipe-importer/internal/fetch"
	"github.com/jonathan/recipe-importer/internal/jobs"
	"github.com/jonathan/recipe-importer/internal/llm"
	"github.com/jonathan/recipe-importer/internal/observability"
	"github.com/jonathan/recipe-importer/internal/parser"
	"github.com/jonathan/recipe-importer/internal/queue"
	"github.com/jonathan/recipe-importer/internal/storage"
)

// app holds the shared dependencies the serve and work commands wire up
// from configuration.
type app struct {
	cfg      *config.Config
	database *db.DB
	queue    *queue.Queue
	events   *broadcast.Broadcaster
	producer *broadcast.Producer
	images   *storage.ImageStore
	llm      llm.Client
	log      *observability.Logger
}

// newApp connects everything the configuration asks for. Object storage,
// Kafka and the LLM are optional; pipelines degrade when they are absent.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := observability.LevelInfo
	if cfg.Verbose {
		level = observability.LevelDebug
	}
	logger := observability.NewLogger(os.Stderr, level)

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		database: database,
		queue:    queue.New(database.Pool()),
		log:      logger,
	}

	var opts []broadcast.Option
	if cfg.KafkaConfigured() {
		a.producer = broadcast.NewProducer(cfg.Kafka)
		opts = append(opts, broadcast.WithPublisher(a.producer))
		logger.Infof("kafka event publishing enabled (topic %s)", cfg.Kafka.Topic)
	}
	a.events = broadcast.New(database, logger, opts...)

	if cfg.StorageConfigured() {
		images, err := storage.NewImageStore(ctx, cfg.Storage)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to set up image storage: %w", err)
		}
		a.images = images
	} else {
		logger.Warnf("image storage not configured; imports will skip images")
	}

	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to set up LLM client: %w", err)
		}
		a.llm = client
	} else {
		logger.Warnf("GEMINI_API_KEY not set; imports will skip categorization")
	}

	return a, nil
}

// jobDeps assembles the dependency set the pipelines run against.
func (a *app) jobDeps() jobs.Deps {
	var fetchOpts []fetch.Option
	if a.cfg.UseBrowser {
		fetchOpts = append(fetchOpts, fetch.WithBrowserFallback())
	}

	deps := jobs.Deps{
		Parser:   parser.NewParser(),
		Repo:     a.database,
		Queue:    a.queue,
		Notifier: a.events,
		Fetcher:  fetch.NewFetcher(fetchOpts...),
		Labels:   a.cfg.Labels,
		Log:      a.log,
	}
	if a.images != nil {
		deps.Images = a.images
	}
	if a.llm != nil {
		deps.LLM = a.llm
	}
	return deps
}

func (a *app) pollInterval() time.Duration {
	return time.Duration(a.cfg.PollIntervalMS) * time.Millisecond
}

func (a *app) close() {
	if a.llm != nil {
		a.llm.Close() //nolint:errcheck
	}
	if a.producer != nil {
		a.producer.Close() //nolint:errcheck
	}
	if a.database != nil {
		a.database.Close()
	}
}
