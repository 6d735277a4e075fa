package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"disqus-bot/command"
	"disqus-bot/database"
	"disqus-bot/disqus"
	"disqus-bot/handlers"
	"disqus-bot/models"
	"disqus-bot/scanner"
	"disqus-bot/services"
	"disqus-bot/utils"
)

// Bot owns every long-lived component and the tick scheduler.
type Bot struct {
	cfg    *models.Config
	logger *zap.Logger

	store  *database.Store
	client *disqus.Client
	auth   *utils.Auth
	parser *command.Parser

	me handlers.Identity

	// Tick steps.
	mods    modRefresher
	threads threadPoller
	posts   postPoller
	hourly  hourlyTicker
	unbans  unbanTicker

	cron *cron.Cron
}

type modRefresher interface {
	Refresh(ctx context.Context, force bool)
}

type threadPoller interface {
	PollThreads(ctx context.Context) (scanner.Outcome, error)
}

type postPoller interface {
	PollPosts(ctx context.Context) (handlers.PollOutcome, error)
}

type hourlyTicker interface {
	Tick(ctx context.Context) (bool, error)
}

type unbanTicker interface {
	TickUnbans(ctx context.Context) (handlers.UnbanOutcome, error)
}

// NewBot opens the store and builds the forum-independent components.
func NewBot(ctx context.Context, cfg *models.Config, logger *zap.Logger) (*Bot, error) {
	store, err := database.InitDB(cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}

	client := disqus.NewClient(cfg, logger)
	return &Bot{
		cfg:    cfg,
		logger: logger.Named("bot"),
		store:  store,
		client: client,
		auth:   utils.NewAuth(ctx, client, store, cfg.ModCacheTTL, logger),
		parser: command.NewParser(services.New(cfg, logger), nil),
	}, nil
}

// Start resolves the bot identity, wires the tick handlers and starts the scheduler.
func (b *Bot) Start(ctx context.Context) error {
	whoami, err := b.client.WhoAmI(ctx)
	if err != nil {
		return err
	}
	b.me = handlers.Identity{ID: whoami.ID.String(), Username: whoami.Username}
	b.logger.Info("Logged in", zap.String("id", b.me.ID), zap.String("username", b.me.Username))

	start := time.Now().Unix()
	if err := b.store.KVSetInt(ctx, database.KeyStartUnix, start); err != nil {
		return err
	}

	b.auth.Refresh(ctx, true)

	poster := handlers.NewPoster(b.client, b.store, b.logger)
	engine := handlers.NewEngine(b.client, b.store, b.auth, poster, b.me, b.logger)
	hourly := NewHourlyPoster(b.store, poster, b.cfg.HourlyMessages, nil, b.logger)
	if err := hourly.Init(ctx); err != nil {
		return err
	}

	b.mods = b.auth
	b.threads = scanner.New(b.client, poster, b.store, scanner.Config{
		Interval:        b.cfg.ThreadPollInterval,
		Limit:           b.cfg.ThreadLimit,
		WelcomeText:     b.cfg.WelcomeText,
		WelcomeExisting: b.cfg.WelcomeExisting,
		StartUnix:       start,
	}, b.logger)
	b.posts = handlers.NewDispatcher(b.client, b.store, b.parser, b.auth, engine, poster, b.me,
		handlers.DispatcherConfig{
			PostLimit:     b.cfg.PostLimit,
			StartUnix:     start,
			DebugTriggers: b.cfg.DebugTriggers,
		}, b.logger)
	b.hourly = hourly
	b.unbans = engine

	return b.startScheduler(ctx)
}

// Stop halts the scheduler and closes the store.
func (b *Bot) Stop() {
	b.stopScheduler()
	if err := b.store.Close(); err != nil {
		b.logger.Warn("Failed to close store", zap.Error(err))
	}
	b.logger.Info("Bot stopped gracefully")
}

// Run starts the bot and blocks until SIGINT or SIGTERM.
func Run(ctx context.Context, cfg *models.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	b, err := NewBot(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("error initializing bot: %w", err)
	}
	if err := b.Start(ctx); err != nil {
		b.Stop()
		return fmt.Errorf("error starting bot: %w", err)
	}

	logger.Info("Bot is now running. Press CTRL-C to exit.")
	<-ctx.Done()
	b.Stop()
	return nil
}
