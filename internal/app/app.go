// Package app wires configuration, services, HTTP routes and cron jobs
// into a runnable server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dywsy21/Cecilia/internal/config"
	"github.com/dywsy21/Cecilia/internal/middleware"
	"github.com/dywsy21/Cecilia/internal/modules/arxiv"
	"github.com/dywsy21/Cecilia/internal/modules/extract"
	"github.com/dywsy21/Cecilia/internal/modules/llm"
	"github.com/dywsy21/Cecilia/internal/modules/subscription"
	"github.com/dywsy21/Cecilia/internal/modules/summarizer"
	"github.com/dywsy21/Cecilia/internal/modules/verification"
	"github.com/dywsy21/Cecilia/internal/pkg/cron"
	"github.com/dywsy21/Cecilia/internal/pkg/mail"
	"github.com/dywsy21/Cecilia/internal/pkg/push"
)

// App holds the wired server.
type App struct {
	cfg    *config.AppConfig
	log    *zap.Logger
	router *gin.Engine
	sched  *cron.Scheduler

	registry     *subscription.Registry
	summarizer   *summarizer.Service
	verification *verification.Service
	memLimiter   *middleware.MemoryLimiter
}

// New builds the application from configuration.
func New(cfg *config.AppConfig, log *zap.Logger) (*App, error) {
	registry, err := subscription.NewRegistry(filepath.Join(cfg.DataDir, "subscriptions.json"))
	if err != nil {
		return nil, err
	}

	engine, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, err
	}

	mailer := mail.New(cfg.Mail)
	pusher := push.New(cfg.Push.Endpoint)
	extractor := extract.New(filepath.Join(cfg.DataDir, "papers"))
	store := summarizer.NewStore(filepath.Join(cfg.DataDir, "summaries"))
	fetcher := arxiv.New(cfg.Arxiv)

	app := &App{
		cfg:   cfg,
		log:   log,
		sched: cron.New(),
	}

	app.registry = registry
	app.summarizer = summarizer.NewService(fetcher, extractor, engine, store,
		registry, pusher, mailer, *cfg, log.Named("summarizer"))

	sessions, limiter := app.shortLivedStores()
	app.verification = verification.NewService(sessions, registry, mailer,
		cfg.Verification, log.Named("verification"))

	app.router = app.buildRouter(limiter)
	app.registerJobs()
	return app, nil
}

// shortLivedStores picks Redis-backed session and rate-limit stores
// when a Redis URL is configured, in-memory ones otherwise.
func (a *App) shortLivedStores() (verification.SessionStore, middleware.Limiter) {
	if a.cfg.RedisURL == "" {
		a.memLimiter = middleware.NewMemoryLimiter()
		return verification.NewMemoryStore(), a.memLimiter
	}

	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		a.log.Warn("invalid redis url, falling back to memory stores", zap.Error(err))
		a.memLimiter = middleware.NewMemoryLimiter()
		return verification.NewMemoryStore(), a.memLimiter
	}

	client := redis.NewClient(opts)
	a.log.Info("redis-backed verification and rate limiting enabled")
	return verification.NewRedisStore(client, a.cfg.Verification.TTL()),
		middleware.NewRedisLimiter(client)
}

// Handler returns the HTTP handler for the server.
func (a *App) Handler() http.Handler { return a.router }

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Start launches the background jobs. The context cancels them on
// shutdown.
func (a *App) Start(ctx context.Context) {
	a.sched.Start(ctx)
	a.log.Info("scheduler started",
		zap.Int("digest_hour", a.cfg.Schedule.Hour),
		zap.Int("digest_minute", a.cfg.Schedule.Minute))
}
