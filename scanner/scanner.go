package scanner

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"disqus-bot/database"
	"disqus-bot/disqus"
	"disqus-bot/models"
)

// ThreadLister lists the newest threads of the forum.
type ThreadLister interface {
	ListRecentThreads(ctx context.Context, limit int) ([]models.Thread, error)
}

// RootPoster posts a top-level message into a thread.
type RootPoster interface {
	PostRoot(ctx context.Context, threadID, message string) (string, error)
}

// Config holds the thread discovery settings.
type Config struct {
	Interval        time.Duration
	Limit           int
	WelcomeText     string
	WelcomeExisting bool
	StartUnix       int64
}

// Outcome summarizes one discovery pass.
type Outcome struct {
	Ran      bool
	Scanned  int
	Welcomed int
}

// Scanner discovers new threads and welcomes each one exactly once.
type Scanner struct {
	threads ThreadLister
	poster  RootPoster
	store   *database.Store
	cfg     Config
	now     func() time.Time
	hex     func() string
	logger  *zap.Logger
}

// New creates a Scanner.
func New(threads ThreadLister, poster RootPoster, store *database.Store, cfg Config, logger *zap.Logger) *Scanner {
	return &Scanner{
		threads: threads,
		poster:  poster,
		store:   store,
		cfg:     cfg,
		now:     time.Now,
		hex:     RandomHex6,
		logger:  logger.Named("scanner"),
	}
}

// SetClock overrides the time source.
func (s *Scanner) SetClock(now func() time.Time) { s.now = now }

// PollThreads runs a discovery pass unless the previous one was less than
// the configured interval ago.
func (s *Scanner) PollThreads(ctx context.Context) (Outcome, error) {
	now := s.now().Unix()
	last, err := s.store.KVGetInt(ctx, database.KeyLastThreadPoll)
	if err != nil {
		return Outcome{}, err
	}
	if now-last < int64(s.cfg.Interval/time.Second) {
		return Outcome{}, nil
	}
	if err := s.store.KVSetInt(ctx, database.KeyLastThreadPoll, now); err != nil {
		return Outcome{}, err
	}

	threads, err := s.threads.ListRecentThreads(ctx, s.cfg.Limit)
	if err != nil {
		return Outcome{Ran: true}, fmt.Errorf("failed to poll threads: %w", err)
	}

	out := Outcome{Ran: true, Scanned: len(threads)}
	for _, th := range slices.Backward(threads) {
		welcomed, err := s.handleThread(ctx, th)
		if err != nil {
			return out, err
		}
		if welcomed {
			out.Welcomed++
		}
	}

	if out.Welcomed > 0 {
		s.logger.Info("Threads scanned", zap.Int("scanned", out.Scanned), zap.Int("new_welcomes", out.Welcomed))
	}
	return out, nil
}

func (s *Scanner) handleThread(ctx context.Context, th models.Thread) (bool, error) {
	threadID := th.ID.String()
	if threadID == "" {
		return false, nil
	}

	seen, err := s.store.IsThreadSeen(ctx, threadID)
	if err != nil || seen {
		return false, err
	}

	if !s.cfg.WelcomeExisting {
		if created, ok := disqus.CreatedAtUnix(th.CreatedAt); ok && created < s.cfg.StartUnix {
			return false, s.store.MarkThreadSeen(ctx, threadID)
		}
	}
	if th.IsClosed {
		return false, s.store.MarkThreadSeen(ctx, threadID)
	}

	welcomedKey := database.WelcomedKey(threadID)
	flag, _, err := s.store.KVGet(ctx, welcomedKey)
	if err != nil {
		return false, err
	}
	if flag == "1" {
		return false, s.store.MarkThreadSeen(ctx, threadID)
	}

	msg := strings.ReplaceAll(s.cfg.WelcomeText, "{HEX}", s.hex())
	if _, err := s.poster.PostRoot(ctx, threadID, msg); err != nil {
		if !disqus.IsThreadClosed(err) {
			// Left unseen so the next pass retries.
			s.logger.Warn("Welcome failed", zap.String("thread_id", threadID), zap.Error(err))
			return false, nil
		}
		s.logger.Info("Welcome skipped, thread closed", zap.String("thread_id", threadID))
		if err := s.store.KVSet(ctx, welcomedKey, "1"); err != nil {
			return false, err
		}
		return false, s.store.MarkThreadSeen(ctx, threadID)
	}

	if err := s.store.KVSet(ctx, welcomedKey, "1"); err != nil {
		return false, err
	}
	if err := s.store.MarkThreadSeen(ctx, threadID); err != nil {
		return false, err
	}
	s.logger.Info("Welcome posted", zap.String("thread_id", threadID))
	return true, nil
}

// RandomHex6 returns three random bytes as six uppercase hex digits.
func RandomHex6() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "000000"
	}
	return strings.ToUpper(hex.EncodeToString(b))
}
