package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"disqus-bot/disqus"
)

const unbanBatch = 50

// UnbanOutcome summarizes one unban tick.
type UnbanOutcome struct {
	Due      int
	Reversed int
	Failed   int
}

// TickUnbans reverses every timed ban whose due time has passed. Failed
// reversals stay queued for the next tick. An entry the forum no longer knows
// counts as reversed.
func (e *Engine) TickUnbans(ctx context.Context) (UnbanOutcome, error) {
	now := e.now().Unix()

	due, err := e.store.DuePendingUnbans(ctx, now, unbanBatch)
	if err != nil {
		return UnbanOutcome{}, fmt.Errorf("failed to load due unbans: %w", err)
	}

	out := UnbanOutcome{Due: len(due)}
	for _, p := range due {
		if err := e.forum.RemoveBlacklist(ctx, p.BlacklistID); err != nil {
			if !disqus.IsNotFound(err) {
				out.Failed++
				e.logger.Warn("Unban failed", zap.String("blacklist_id", p.BlacklistID), zap.Error(err))
				continue
			}
			e.logger.Info("Blacklist entry already gone", zap.String("blacklist_id", p.BlacklistID))
		}

		if err := e.store.CompleteUnban(ctx, p.BlacklistID, now); err != nil {
			return out, fmt.Errorf("failed to complete unban %s: %w", p.BlacklistID, err)
		}
		out.Reversed++
		e.logger.Info("Unbanned", zap.String("blacklist_id", p.BlacklistID), zap.Int64("due_unix", p.DueUnix))
	}
	return out, nil
}
