package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"disqus-bot/command"
	"disqus-bot/database"
	"disqus-bot/models"
)

const (
	banDebounce    = 60 * time.Second
	banConfirmText = "OK."
)

// Engine runs the ban lifecycle: authorize, ban, record, schedule the unban
// and report.
type Engine struct {
	forum  Forum
	store  *database.Store
	auth   Authority
	poster *Poster
	me     Identity
	now    func() time.Time
	logger *zap.Logger
}

// NewEngine creates an Engine acting as me.
func NewEngine(forum Forum, store *database.Store, auth Authority, poster *Poster, me Identity, logger *zap.Logger) *Engine {
	return &Engine{
		forum:  forum,
		store:  store,
		auth:   auth,
		poster: poster,
		me:     me,
		now:    time.Now,
		logger: logger.Named("moderation"),
	}
}

// SetClock overrides the time source.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// ExecuteBan bans the author of the comment cmd replies to. A rejected
// command returns one of the Err* sentinels and has no side effects.
func (e *Engine) ExecuteBan(ctx context.Context, cmd models.Post, threadID string, spec command.BanSpec) error {
	if !e.auth.IsModerator(cmd.Author.ID.String(), cmd.Author.Username) {
		return ErrNotModerator
	}

	targetID := cmd.Parent.String()
	if targetID == "" {
		return ErrNoTarget
	}

	target, err := e.forum.PostDetails(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to fetch ban target: %w", err)
	}
	if e.me.Owns(target.Author) || e.auth.IsModerator(target.Author.ID.String(), target.Author.Username) {
		return ErrProtectedTarget
	}

	lastTarget, _, err := e.store.KVGet(ctx, database.KeyLastBanTargetPost)
	if err != nil {
		return err
	}
	lastBan, err := e.store.KVGetInt(ctx, database.KeyLastBanUnix)
	if err != nil {
		return err
	}
	if strings.TrimSpace(lastTarget) == targetID && e.now().Unix()-lastBan < int64(banDebounce/time.Second) {
		return ErrDuplicateBan
	}

	started := e.now().Unix()
	resp, err := e.forum.BanPostAuthor(ctx, targetID, models.BanOptions{BanUser: true})
	if err != nil {
		return fmt.Errorf("failed to ban author of %s: %w", targetID, err)
	}

	subjects := ExtractBanSubjects(resp)
	if len(subjects) == 0 {
		return ErrNoBanSubjects
	}

	entries, pending := buildBanRecords(subjects, cmd.ID.String(), targetID, threadID, started, spec)
	if err := e.store.RecordBan(ctx, entries, pending); err != nil {
		return fmt.Errorf("failed to record ban: %w", err)
	}

	e.logger.Info("Ban executed",
		zap.String("target_post_id", targetID),
		zap.String("thread_id", threadID),
		zap.Stringer("duration", spec),
		zap.Int("subjects", len(subjects)))

	if _, err := e.poster.Reply(ctx, threadID, cmd.ID.String(), banConfirmText); err != nil {
		e.logger.Warn("Ban confirmation failed", zap.String("thread_id", threadID), zap.Error(err))
	}
	e.postReport(ctx, threadID)

	if err := e.store.KVSet(ctx, database.KeyLastBanTargetPost, targetID); err != nil {
		return err
	}
	return e.store.KVSetInt(ctx, database.KeyLastBanUnix, e.now().Unix())
}

func (e *Engine) postReport(ctx context.Context, threadID string) {
	report, err := e.BuildReport(ctx, e.now())
	if err != nil {
		e.logger.Warn("Failed to build ban report", zap.Error(err))
		return
	}
	if _, err := e.poster.PostRoot(ctx, threadID, report); err != nil {
		e.logger.Warn("Ban report failed", zap.String("thread_id", threadID), zap.Error(err))
		return
	}
	e.logger.Info("Ban report posted", zap.String("thread_id", threadID))
}

func buildBanRecords(subjects []models.BanSubject, cmdID, targetID, threadID string, started int64, spec command.BanSpec) ([]models.BanLogEntry, []models.PendingUnban) {
	secs := spec.Seconds()
	timed := !spec.Permanent && secs > 0

	entries := make([]models.BanLogEntry, 0, len(subjects))
	var pending []models.PendingUnban
	for _, s := range subjects {
		entry := models.BanLogEntry{
			BlacklistID:   s.BlacklistID,
			ThreadID:      threadID,
			CommandPostID: cmdID,
			TargetPostID:  targetID,
			SubjectType:   models.SubjectTypeUser,
			SubjectLabel:  s.Label,
			StartedAtUnix: started,
		}
		if timed {
			due := started + secs
			entry.DurationSecs = sql.NullInt64{Int64: secs, Valid: true}
			entry.DueUnix = sql.NullInt64{Int64: due, Valid: true}
			pending = append(pending, models.PendingUnban{BlacklistID: s.BlacklistID, DueUnix: due})
		}
		entries = append(entries, entry)
	}
	return entries, pending
}

// ExtractBanSubjects returns the reversible user entries of a ban response.
// Email and IP entries are ignored.
func ExtractBanSubjects(resp *models.BanResponse) []models.BanSubject {
	if resp == nil {
		return nil
	}

	var out []models.BanSubject
	for _, item := range resp.Updated {
		if !strings.EqualFold(strings.TrimSpace(item.Type), models.SubjectTypeUser) {
			continue
		}
		id := strings.TrimSpace(item.ID.String())
		raw := strings.TrimSpace(string(item.Value))
		if id == "" || !strings.HasPrefix(raw, "{") {
			continue
		}

		var value struct {
			Name     string `json:"name"`
			Username string `json:"username"`
		}
		if err := sonic.UnmarshalString(raw, &value); err != nil {
			continue
		}

		name := strings.TrimSpace(value.Name)
		username := strings.TrimSpace(value.Username)
		label := name
		switch {
		case label != "":
		case username != "":
			label = "@" + username
		default:
			label = "user"
		}

		out = append(out, models.BanSubject{
			BlacklistID: id,
			Label:       label,
			Username:    strings.ToLower(username),
		})
	}
	return out
}
