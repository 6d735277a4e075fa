package bot

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"disqus-bot/database"
	"disqus-bot/disqus"
)

// DefaultHourlyMessages is used when no pool is configured.
var DefaultHourlyMessages = []string{
	"Hallo",
	"Noch wer da?",
	"Moin",
	"Ping.",
	"Was geht?",
	"Na, alles klar bei euch?",
	"Jetzt leg mal eine Dadash!",
	"s/o an AnisFencheltee, mein Herr und Gebieter!",
	"12. Februar ist 31GG Feiertag!",
}

// RootPoster posts a top-level message into a thread.
type RootPoster interface {
	PostRoot(ctx context.Context, threadID, message string) (string, error)
}

// HourlyPoster drops one random message per clock hour into the most recently
// active thread, at a random second within the hour.
type HourlyPoster struct {
	store    *database.Store
	poster   RootPoster
	messages []string
	rnd      *rand.Rand
	now      func() time.Time
	logger   *zap.Logger

	next int64
}

// NewHourlyPoster creates a HourlyPoster. An empty pool falls back to
// DefaultHourlyMessages; a nil rnd gets a time-seeded source.
func NewHourlyPoster(store *database.Store, poster RootPoster, messages []string, rnd *rand.Rand, logger *zap.Logger) *HourlyPoster {
	if len(messages) == 0 {
		messages = DefaultHourlyMessages
	}
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &HourlyPoster{
		store:    store,
		poster:   poster,
		messages: messages,
		rnd:      rnd,
		now:      time.Now,
		logger:   logger.Named("hourly"),
	}
}

// SetClock overrides the time source.
func (h *HourlyPoster) SetClock(now func() time.Time) { h.now = now }

// Next returns the scheduled unix second of the next post.
func (h *HourlyPoster) Next() int64 { return h.next }

// NextHourlySlot picks a random second inside the clock hour after now.
func NextHourlySlot(now time.Time, rnd *rand.Rand) int64 {
	hourStart := now.Unix() / 3600 * 3600
	return hourStart + 3600 + rnd.Int64N(3600)
}

// Init loads the persisted schedule or creates a new one.
func (h *HourlyPoster) Init(ctx context.Context) error {
	next, err := h.store.KVGetInt(ctx, database.KeyNextHourlyPost)
	if err != nil {
		return err
	}
	if next > 0 {
		h.next = next
		return nil
	}
	return h.reschedule(ctx)
}

// Tick posts when the scheduled second has passed. The next slot is always
// scheduled afterwards, whether or not the post went out. It reports whether
// a message was posted.
func (h *HourlyPoster) Tick(ctx context.Context) (bool, error) {
	if h.next == 0 {
		if err := h.Init(ctx); err != nil {
			return false, err
		}
	}
	if h.now().Unix() < h.next {
		return false, nil
	}

	posted := false
	threadID, _, err := h.store.KVGet(ctx, database.KeyLastSeenThreadID)
	if err != nil {
		return false, err
	}
	if threadID == "" {
		h.logger.Info("Hourly post skipped, no thread seen yet")
	} else {
		msg := h.messages[h.rnd.IntN(len(h.messages))]
		switch _, err := h.poster.PostRoot(ctx, threadID, msg); {
		case err == nil:
			posted = true
			h.logger.Info("Hourly post sent", zap.String("thread_id", threadID))
		case disqus.IsThreadClosed(err):
			h.logger.Info("Hourly post skipped, thread closed", zap.String("thread_id", threadID))
		default:
			h.logger.Warn("Hourly post failed", zap.String("thread_id", threadID), zap.Error(err))
		}
	}

	return posted, h.reschedule(ctx)
}

func (h *HourlyPoster) reschedule(ctx context.Context) error {
	next := NextHourlySlot(h.now(), h.rnd)
	if err := h.store.KVSetInt(ctx, database.KeyNextHourlyPost, next); err != nil {
		return err
	}
	h.next = next
	h.logger.Info("Next hourly post scheduled", zap.Time("at", time.Unix(next, 0)))
	return nil
}
