package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"disqus-bot/database"
)

var errEmptyThread = errors.New("failed to post: empty thread id")

// Poster creates posts and likes with the bot's idempotency rules: no two
// consecutive identical texts per thread, and at most one like per post.
type Poster struct {
	forum  Forum
	store  *database.Store
	logger *zap.Logger
}

// NewPoster creates a Poster.
func NewPoster(forum Forum, store *database.Store, logger *zap.Logger) *Poster {
	return &Poster{forum: forum, store: store, logger: logger.Named("poster")}
}

// Dedupe returns message, with one trailing space appended when it equals the
// last text posted to threadID, and stores the result as the new last text.
func (p *Poster) Dedupe(ctx context.Context, threadID, message string) (string, error) {
	key := database.LastBotMessageKey(threadID)
	last, _, err := p.store.KVGet(ctx, key)
	if err != nil {
		return "", err
	}

	msg := strings.TrimRight(message, "\n")
	if msg == last {
		msg += " "
	}
	if err := p.store.KVSet(ctx, key, msg); err != nil {
		return "", err
	}
	return msg, nil
}

// Reply posts message as a reply to parentID and likes the new post.
func (p *Poster) Reply(ctx context.Context, threadID, parentID, message string) (string, error) {
	return p.create(ctx, threadID, parentID, message)
}

// PostRoot posts message at the top level of threadID and likes the new post.
func (p *Poster) PostRoot(ctx context.Context, threadID, message string) (string, error) {
	return p.create(ctx, threadID, "", message)
}

func (p *Poster) create(ctx context.Context, threadID, parentID, message string) (string, error) {
	if threadID == "" {
		return "", errEmptyThread
	}

	msg, err := p.Dedupe(ctx, threadID, message)
	if err != nil {
		return "", fmt.Errorf("failed to dedupe message: %w", err)
	}

	postID, err := p.forum.CreatePost(ctx, threadID, parentID, msg)
	if err != nil {
		return "", err
	}
	if postID != "" {
		p.LikeOnce(ctx, postID)
	}
	return postID, nil
}

// LikeOnce likes postID unless it was liked before. Failures are logged and
// leave the post unmarked so a later call can retry. It reports whether the
// post is liked afterwards.
func (p *Poster) LikeOnce(ctx context.Context, postID string) bool {
	if postID == "" {
		return false
	}

	liked, err := p.store.IsLiked(ctx, postID)
	if err != nil {
		p.logger.Error("Failed to read liked set", zap.String("post_id", postID), zap.Error(err))
		return false
	}
	if liked {
		return true
	}

	if err := p.forum.VotePost(ctx, postID, 1); err != nil {
		p.logger.Warn("Like failed", zap.String("post_id", postID), zap.Error(err))
		return false
	}
	if err := p.store.MarkLiked(ctx, postID); err != nil {
		p.logger.Error("Failed to record like", zap.String("post_id", postID), zap.Error(err))
		return true
	}

	p.logger.Debug("Liked post", zap.String("post_id", postID))
	return true
}
