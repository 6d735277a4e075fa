package handlers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"disqus-bot/command"
	"disqus-bot/database"
	"disqus-bot/disqus"
	"disqus-bot/models"
	"disqus-bot/utils"
)

// debugKeywords select the posts logged when trigger debugging is on.
var debugKeywords = []string{"bot", "ban", "test", "moin", "hallo", "guten morgen", "mods", "witz", "liebestest", "front"}

// DispatcherConfig holds the post polling settings.
type DispatcherConfig struct {
	PostLimit     int
	StartUnix     int64
	DebugTriggers bool
}

// PollOutcome summarizes one post polling tick.
type PollOutcome struct {
	Fetched   int
	Processed int
	Replies   int
	Likes     int
	Bans      int
}

// Dispatcher polls new posts and routes them through the command parser.
type Dispatcher struct {
	forum  Forum
	store  *database.Store
	parser *command.Parser
	auth   Authority
	engine *Engine
	poster *Poster
	me     Identity
	cfg    DispatcherConfig
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(forum Forum, store *database.Store, parser *command.Parser, auth Authority, engine *Engine, poster *Poster, me Identity, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		forum:  forum,
		store:  store,
		parser: parser,
		auth:   auth,
		engine: engine,
		poster: poster,
		me:     me,
		cfg:    cfg,
		logger: logger.Named("dispatcher"),
	}
}

// PollPosts fetches the newest posts and handles the unseen ones oldest
// first. Every post is marked seen before it is acted on.
func (d *Dispatcher) PollPosts(ctx context.Context) (PollOutcome, error) {
	posts, err := d.forum.ListRecentPosts(ctx, d.cfg.PostLimit)
	if err != nil {
		return PollOutcome{}, fmt.Errorf("failed to poll posts: %w", err)
	}

	out := PollOutcome{Fetched: len(posts)}
	for _, p := range slices.Backward(posts) {
		handled, err := d.handlePost(ctx, p, &out)
		if err != nil {
			return out, err
		}
		if handled {
			out.Processed++
		}
	}
	return out, nil
}

func (d *Dispatcher) handlePost(ctx context.Context, p models.Post, out *PollOutcome) (bool, error) {
	postID := p.ID.String()
	if postID == "" {
		return false, nil
	}

	seen, err := d.store.IsPostSeen(ctx, postID)
	if err != nil || seen {
		return false, err
	}
	if err := d.store.MarkPostSeen(ctx, postID); err != nil {
		return false, err
	}

	if created, ok := disqus.CreatedAtUnix(p.CreatedAt); ok && created < d.cfg.StartUnix {
		return false, nil
	}
	if p.IsSpam || p.IsDeleted {
		return false, nil
	}

	threadID := p.Thread.String()
	if threadID == "" {
		return false, nil
	}
	if err := d.store.KVSet(ctx, database.KeyLastSeenThreadID, threadID); err != nil {
		return false, err
	}

	if d.me.Owns(p.Author) {
		if d.poster.LikeOnce(ctx, postID) {
			out.Likes++
		}
		return true, nil
	}

	text := utils.StripHTML(p.Message)
	debug := d.cfg.DebugTriggers && isDebugTrigger(text)
	if debug {
		d.logger.Info("SEEN", zap.String("post_id", postID), zap.String("thread_id", threadID), zap.String("text", text))
	}

	intent := d.parser.Classify(ctx, text)
	if debug {
		d.logger.Info("DISPATCH", zap.String("post_id", postID), zap.Stringer("kind", intent.Kind), zap.String("text", intent.Text))
	}

	switch intent.Kind {
	case command.KindListModerators:
		if _, err := d.poster.Reply(ctx, threadID, postID, d.auth.FormatRoster()); err != nil {
			d.logger.Warn("Moderator roster reply failed", zap.String("post_id", postID), zap.Error(err))
		} else {
			out.Replies++
		}
		return true, nil

	case command.KindBan:
		d.handleBan(ctx, p, threadID, intent.Ban, out)
		return true, nil
	}

	replied := false
	if intent.Kind == command.KindPlainText && intent.Text != "" {
		replyID, err := d.poster.Reply(ctx, threadID, postID, intent.Text)
		switch {
		case err != nil:
			d.logger.Warn("Reply failed", zap.String("post_id", postID), zap.Error(err))
		case replyID != "":
			replied = true
			out.Replies++
			d.logger.Info("Replied", zap.String("post_id", postID), zap.String("bot_post_id", replyID))
		}
	}

	if replied || wantsLike(text) {
		if d.poster.LikeOnce(ctx, postID) {
			out.Likes++
		}
	}
	return true, nil
}

func (d *Dispatcher) handleBan(ctx context.Context, p models.Post, threadID string, spec command.BanSpec, out *PollOutcome) {
	fields := []zap.Field{
		zap.String("post_id", p.ID.String()),
		zap.String("target_post_id", p.Parent.String()),
		zap.String("author_id", p.Author.ID.String()),
		zap.String("author", p.Author.Username),
	}

	err := d.engine.ExecuteBan(ctx, p, threadID, spec)
	switch {
	case err == nil:
		out.Bans++
	case errors.Is(err, ErrNotModerator),
		errors.Is(err, ErrNoTarget),
		errors.Is(err, ErrProtectedTarget),
		errors.Is(err, ErrDuplicateBan),
		errors.Is(err, ErrNoBanSubjects):
		d.logger.Info("Ban ignored", append(fields, zap.String("reason", err.Error()))...)
	default:
		d.logger.Warn("Ban failed", append(fields, zap.Error(err))...)
	}
}

func isDebugTrigger(text string) bool {
	low := strings.ToLower(text)
	for _, kw := range debugKeywords {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}

func wantsLike(text string) bool {
	return strings.Contains(strings.ToLower(text), "like mal")
}
