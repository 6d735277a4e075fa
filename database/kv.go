package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Well-known kv keys.
const (
	KeyStartUnix          = "start_unix"
	KeyLastSeenThreadID   = "last_seen_thread_id"
	KeyLastThreadPoll     = "last_thread_poll_unix"
	KeyNextHourlyPost     = "next_hourly_post_unix"
	KeyModsCacheJSON      = "mods_cache_json"
	KeyModsCacheLastUnix  = "mods_cache_last_unix"
	KeyLastBanTargetPost  = "last_ban_target_post_id"
	KeyLastBanUnix        = "last_ban_unix"
	keyLastBotMessagePref = "last_bot_message::"
	keyWelcomedPrefix     = "welcomed::"
)

// LastBotMessageKey is the kv key holding the last text the bot posted in a thread.
func LastBotMessageKey(threadID string) string { return keyLastBotMessagePref + threadID }

// WelcomedKey is the kv key flagging that a thread has been welcomed.
func WelcomedKey(threadID string) string { return keyWelcomedPrefix + threadID }

// KVGet returns the value stored under key and whether it exists.
func (s *Store) KVGet(ctx context.Context, key string) (string, bool, error) {
	var v sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read kv %s: %w", key, err)
	}
	return v.String, true, nil
}

// KVSet stores value under key, overwriting any previous value.
func (s *Store) KVSet(ctx context.Context, key, value string) error {
	err := s.exec(ctx,
		`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write kv %s: %w", key, err)
	}
	return nil
}

// KVGetInt reads key as a unix-style integer. Missing or malformed values read as 0.
func (s *Store) KVGetInt(ctx context.Context, key string) (int64, error) {
	v, ok, err := s.KVGet(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// KVSetInt stores an integer value under key.
func (s *Store) KVSetInt(ctx context.Context, key string, value int64) error {
	return s.KVSet(ctx, key, strconv.FormatInt(value, 10))
}
