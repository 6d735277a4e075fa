package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	inner *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.inner.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.inner.Errorw(msg, append(keysAndValues, "error", err)...)
}

// startScheduler runs one tick every poll interval. A tick still running when
// the next one is due makes the next one skip, so ticks never overlap.
func (b *Bot) startScheduler(ctx context.Context) error {
	cl := cronLogger{inner: b.logger.Named("cron").Sugar()}
	b.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	interval := b.cfg.PollInterval
	if interval < time.Second {
		interval = time.Second
	}
	b.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		// Step failures are logged inside Tick.
		_ = b.Tick(ctx)
	}))
	b.cron.Start()
	b.logger.Info("Scheduler started", zap.Duration("interval", interval))
	return nil
}

// stopScheduler stops the cron jobs and waits for a running tick to finish.
func (b *Bot) stopScheduler() {
	if b.cron == nil {
		return
	}
	<-b.cron.Stop().Done()
	b.logger.Info("Scheduler stopped")
}

// Tick runs one pass of every periodic job in a fixed order: moderator cache,
// thread discovery, post polling, hourly post, due unbans. A failing step is
// logged and does not keep the later steps from running; the failures are
// returned joined.
func (b *Bot) Tick(ctx context.Context) error {
	b.mods.Refresh(ctx, false)

	var errs []error
	fail := func(step string, err error) {
		b.logger.Warn("Tick step failed", zap.String("step", step), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", step, err))
	}

	threads, err := b.threads.PollThreads(ctx)
	if err != nil {
		fail("thread discovery", err)
	}

	posts, err := b.posts.PollPosts(ctx)
	if err != nil {
		fail("post polling", err)
	}

	if _, err := b.hourly.Tick(ctx); err != nil {
		fail("hourly post", err)
	}

	unbans, err := b.unbans.TickUnbans(ctx)
	if err != nil {
		fail("unban tick", err)
	}

	if threads.Welcomed > 0 || posts.Processed > 0 || unbans.Due > 0 {
		b.logger.Debug("Tick done",
			zap.Int("welcomed", threads.Welcomed),
			zap.Int("posts", posts.Processed),
			zap.Int("replies", posts.Replies),
			zap.Int("bans", posts.Bans),
			zap.Int("unbans", unbans.Reversed))
	}
	return errors.Join(errs...)
}
