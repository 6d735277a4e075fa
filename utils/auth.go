package utils

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"disqus-bot/database"
	"disqus-bot/models"
)

// ModeratorLister fetches the live moderator list of the forum.
type ModeratorLister interface {
	ListModerators(ctx context.Context) ([]models.Moderator, error)
}

// KVStore is the slice of the state store the auth cache persists into.
type KVStore interface {
	KVGet(ctx context.Context, key string) (string, bool, error)
	KVSet(ctx context.Context, key, value string) error
}

// Auth provides moderator authorization checks against a locally cached
// snapshot of the forum's moderators, refreshed on a TTL.
type Auth struct {
	source ModeratorLister
	kv     KVStore
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	snapshot  models.ModSnapshot
	ids       map[string]struct{}
	usernames map[string]struct{}
}

// NewAuth creates an Auth and loads the last persisted snapshot, if any.
func NewAuth(ctx context.Context, source ModeratorLister, kv KVStore, ttl time.Duration, logger *zap.Logger) *Auth {
	a := &Auth{
		source: source,
		kv:     kv,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.Named("mod_cache"),
	}
	a.setSnapshot(models.ModSnapshot{})

	raw, ok, err := kv.KVGet(ctx, database.KeyModsCacheJSON)
	if err != nil {
		a.logger.Warn("Failed to load moderator cache", zap.Error(err))
		return a
	}
	if ok && raw != "" {
		var snap models.ModSnapshot
		if err := sonic.UnmarshalString(raw, &snap); err != nil {
			a.logger.Warn("Ignoring malformed moderator cache", zap.Error(err))
		} else {
			a.setSnapshot(snap)
		}
	}
	return a
}

// SetClock overrides the time source.
func (a *Auth) SetClock(now func() time.Time) { a.now = now }

// Refresh reloads the moderator list when forced or when the TTL has elapsed.
// Failures keep the previous snapshot and are only logged.
func (a *Auth) Refresh(ctx context.Context, force bool) {
	now := a.now().Unix()

	if !force {
		last := int64(0)
		if v, ok, err := a.kv.KVGet(ctx, database.KeyModsCacheLastUnix); err == nil && ok {
			last, _ = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		}
		if now-last < int64(a.ttl/time.Second) {
			return
		}
	}

	mods, err := a.source.ListModerators(ctx)
	if err != nil {
		a.logger.Warn("Moderator cache refresh failed", zap.Error(err))
		return
	}

	snap := ParseModerators(mods)
	blob, err := sonic.MarshalString(snap)
	if err != nil {
		a.logger.Warn("Failed to encode moderator cache", zap.Error(err))
		return
	}
	if err := a.kv.KVSet(ctx, database.KeyModsCacheJSON, blob); err != nil {
		a.logger.Warn("Failed to persist moderator cache", zap.Error(err))
		return
	}
	if err := a.kv.KVSet(ctx, database.KeyModsCacheLastUnix, strconv.FormatInt(now, 10)); err != nil {
		a.logger.Warn("Failed to persist moderator cache timestamp", zap.Error(err))
	}

	a.setSnapshot(snap)
	a.logger.Info("Moderator cache refreshed",
		zap.Int("display_names", len(snap.DisplayNames)),
		zap.Int("ids", len(snap.IDs)))
}

// IsModerator reports whether the author id or username belongs to a cached moderator.
// It never calls the forum.
func (a *Auth) IsModerator(authorID, username string) bool {
	if id := strings.TrimSpace(authorID); id != "" {
		if _, ok := a.ids[id]; ok {
			return true
		}
	}
	if u := strings.ToLower(strings.TrimSpace(username)); u != "" {
		if _, ok := a.usernames[u]; ok {
			return true
		}
	}
	return false
}

// FormatRoster renders the moderators' display names as a bullet list.
func (a *Auth) FormatRoster() string {
	if len(a.snapshot.DisplayNames) == 0 {
		return "Mods:\n- (keine Anzeigenamen gefunden)"
	}
	lines := make([]string, 0, len(a.snapshot.DisplayNames)+1)
	lines = append(lines, "Mods:")
	for _, n := range a.snapshot.DisplayNames {
		lines = append(lines, "- "+n)
	}
	return strings.Join(lines, "\n")
}

// Snapshot returns the current cached snapshot.
func (a *Auth) Snapshot() models.ModSnapshot { return a.snapshot }

func (a *Auth) setSnapshot(snap models.ModSnapshot) {
	a.snapshot = snap
	a.ids = make(map[string]struct{}, len(snap.IDs))
	for _, id := range snap.IDs {
		a.ids[id] = struct{}{}
	}
	a.usernames = make(map[string]struct{}, len(snap.Usernames))
	for _, u := range snap.Usernames {
		a.usernames[u] = struct{}{}
	}
}

// ParseModerators builds a snapshot from the moderator list. Ids and usernames
// are indexed for every entry; only non-empty display names reach the roster,
// de-duplicated case-insensitively in first-seen order.
func ParseModerators(mods []models.Moderator) models.ModSnapshot {
	ids := map[string]struct{}{}
	usernames := map[string]struct{}{}
	var names []string
	seenNames := map[string]struct{}{}

	for _, m := range mods {
		if m.User == nil {
			continue
		}
		if id := strings.TrimSpace(m.User.ID.String()); id != "" {
			ids[id] = struct{}{}
		}
		if u := strings.ToLower(strings.TrimSpace(m.User.Username)); u != "" {
			usernames[u] = struct{}{}
		}
		name := strings.TrimSpace(m.User.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seenNames[key]; dup {
			continue
		}
		seenNames[key] = struct{}{}
		names = append(names, name)
	}

	return models.ModSnapshot{
		IDs:          sortedKeys(ids),
		Usernames:    sortedKeys(usernames),
		DisplayNames: names,
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
