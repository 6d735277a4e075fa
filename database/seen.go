package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// IsPostSeen reports whether the post has already been observed.
func (s *Store) IsPostSeen(ctx context.Context, postID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM seen_posts WHERE post_id = ?`, postID)
}

// MarkPostSeen records the post as observed. Marks are never removed.
func (s *Store) MarkPostSeen(ctx context.Context, postID string) error {
	if err := s.exec(ctx, `INSERT OR IGNORE INTO seen_posts (post_id) VALUES (?)`, postID); err != nil {
		return fmt.Errorf("failed to mark post %s seen: %w", postID, err)
	}
	return nil
}

// IsThreadSeen reports whether the thread has already been processed.
func (s *Store) IsThreadSeen(ctx context.Context, threadID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM seen_threads WHERE thread_id = ?`, threadID)
}

// MarkThreadSeen records the thread as processed.
func (s *Store) MarkThreadSeen(ctx context.Context, threadID string) error {
	if err := s.exec(ctx, `INSERT OR IGNORE INTO seen_threads (thread_id) VALUES (?)`, threadID); err != nil {
		return fmt.Errorf("failed to mark thread %s seen: %w", threadID, err)
	}
	return nil
}

// IsLiked reports whether the bot has already voted on the post.
func (s *Store) IsLiked(ctx context.Context, postID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM liked_posts WHERE post_id = ?`, postID)
}

// MarkLiked records a successful like vote on the post.
func (s *Store) MarkLiked(ctx context.Context, postID string) error {
	if err := s.exec(ctx, `INSERT OR IGNORE INTO liked_posts (post_id) VALUES (?)`, postID); err != nil {
		return fmt.Errorf("failed to mark post %s liked: %w", postID, err)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
