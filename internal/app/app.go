// Package app assembles the application: database, LLM runtime, stores,
// tools, agent and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promotesh/worklog/db"
	"github.com/promotesh/worklog/internal/api"
	"github.com/promotesh/worklog/internal/auth"
	"github.com/promotesh/worklog/internal/chat"
	"github.com/promotesh/worklog/internal/config"
	"github.com/promotesh/worklog/internal/entry"
	"github.com/promotesh/worklog/internal/project"
	"github.com/promotesh/worklog/internal/tools"
)

// App holds every initialized component. Call Close to release.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Genkit *genkit.Genkit
	Agent  *chat.Agent
	API    *api.Server

	dbCleanup func()
}

// Setup creates and initializes the application. On error, everything
// already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, dbCleanup, err := provideDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	vectorizer := entry.NewVectorizer(embedder)

	entries := entry.NewStore(pool, logger)
	projects := project.NewStore(pool, logger)
	messages := chat.NewStore(pool, logger)

	agentTools := tools.Register(g, tools.Deps{
		Entries:  entries,
		Embedder: vectorizer,
		Logger:   logger,
		Limits: tools.Limits{
			FetchDefault:    int32(cfg.FetchLimit),
			FetchMax:        config.MaxFetchLimit,
			SummaryDefault:  int32(cfg.SummaryLimit),
			SummaryMax:      config.MaxSummaryLimit,
			SearchLimit:     int32(cfg.SearchLimit),
			SearchThreshold: cfg.SearchThreshold,
		},
	})

	agent, err := chat.New(chat.Config{
		Genkit:       g,
		Messages:     messages,
		Tools:        agentTools,
		Logger:       logger,
		ModelName:    cfg.ModelName,
		MaxToolSteps: cfg.MaxToolSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = agent

	authClient := auth.NewClient(cfg.AuthURL, cfg.AuthAnonKey, logger)

	server, err := api.NewServer(api.Config{
		Logger:      logger,
		Agent:       agent,
		Messages:    messages,
		Entries:     entries,
		Projects:    projects,
		Vectorizer:  vectorizer,
		Auth:        authClient,
		Login:       authClient,
		DB:          pool,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating HTTP server: %w", err)
	}
	a.API = server

	return a, nil
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() error {
	var errs []error
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}
	return errors.Join(errs...)
}

// provideGenkit initializes the Genkit runtime with the Gemini plugin.
// The plugin reads GEMINI_API_KEY from the environment; ValidateServe
// has already confirmed it is set.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	if cfg.GeminiAPIKey != "" {
		// The plugin only reads the environment.
		if err := os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey); err != nil {
			return nil, fmt.Errorf("setting provider key: %w", err)
		}
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit failed")
	}
	return g, nil
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(databaseURL); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, func() { pool.Close() }, nil
}
