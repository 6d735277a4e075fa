package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"disqus-bot/models"
)

// RecordBan persists the ban log entries and, for timed bans, their pending
// unbans in one transaction. Re-logging an entry keeps an existing unbanned_at.
func (s *Store) RecordBan(ctx context.Context, entries []models.BanLogEntry, pending []models.PendingUnban) error {
	return withRetry(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, p := range pending {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO pending_unbans (blacklist_id, due_unix) VALUES (?, ?)`,
				p.BlacklistID, p.DueUnix); err != nil {
				return fmt.Errorf("failed to schedule unban %s: %w", p.BlacklistID, err)
			}
		}

		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, `
    INSERT OR REPLACE INTO bans_log (
        blacklist_id, thread_id, ban_cmd_post_id, target_post_id, subject_type, subject_label,
        started_at_unix, duration_secs, due_unix, unbanned_at_unix
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
        (SELECT unbanned_at_unix FROM bans_log WHERE blacklist_id = ?))`,
				e.BlacklistID, e.ThreadID, e.CommandPostID, e.TargetPostID, e.SubjectType, e.SubjectLabel,
				e.StartedAtUnix, e.DurationSecs, e.DueUnix, e.BlacklistID); err != nil {
				return fmt.Errorf("failed to log ban %s: %w", e.BlacklistID, err)
			}
		}

		return tx.Commit()
	})
}

// DuePendingUnbans returns up to limit pending unbans due at or before now, earliest first.
func (s *Store) DuePendingUnbans(ctx context.Context, now int64, limit int) ([]models.PendingUnban, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT blacklist_id, due_unix FROM pending_unbans WHERE due_unix <= ? ORDER BY due_unix ASC LIMIT ?`,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending unbans: %w", err)
	}
	defer rows.Close()

	var out []models.PendingUnban
	for rows.Next() {
		var p models.PendingUnban
		if err := rows.Scan(&p.BlacklistID, &p.DueUnix); err != nil {
			return nil, fmt.Errorf("failed to scan pending unban: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PendingUnbans returns every scheduled unban.
func (s *Store) PendingUnbans(ctx context.Context) ([]models.PendingUnban, error) {
	return s.DuePendingUnbans(ctx, 1<<62, -1)
}

// CompleteUnban stamps unbanned_at on the log entry and removes the pending row.
func (s *Store) CompleteUnban(ctx context.Context, blacklistID string, unbannedAt int64) error {
	return withRetry(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx,
			`UPDATE bans_log SET unbanned_at_unix = ? WHERE blacklist_id = ? AND unbanned_at_unix IS NULL`,
			unbannedAt, blacklistID); err != nil {
			return fmt.Errorf("failed to mark %s unbanned: %w", blacklistID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM pending_unbans WHERE blacklist_id = ?`, blacklistID); err != nil {
			return fmt.Errorf("failed to delete pending unban %s: %w", blacklistID, err)
		}
		return tx.Commit()
	})
}

// BansSince returns user ban log entries started at or after since, newest first.
func (s *Store) BansSince(ctx context.Context, since int64) ([]models.BanLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
    SELECT blacklist_id, thread_id, ban_cmd_post_id, target_post_id, subject_type, subject_label,
        started_at_unix, duration_secs, due_unix, unbanned_at_unix
    FROM bans_log
    WHERE started_at_unix >= ? AND subject_type = ?
    ORDER BY started_at_unix DESC`, since, models.SubjectTypeUser)
	if err != nil {
		return nil, fmt.Errorf("failed to query ban log: %w", err)
	}
	defer rows.Close()

	var out []models.BanLogEntry
	for rows.Next() {
		e, err := scanBanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetBanLogEntry returns one ban log entry, or false if it does not exist.
func (s *Store) GetBanLogEntry(ctx context.Context, blacklistID string) (models.BanLogEntry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
    SELECT blacklist_id, thread_id, ban_cmd_post_id, target_post_id, subject_type, subject_label,
        started_at_unix, duration_secs, due_unix, unbanned_at_unix
    FROM bans_log WHERE blacklist_id = ?`, blacklistID)
	e, err := scanBanLogEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BanLogEntry{}, false, nil
	}
	if err != nil {
		return models.BanLogEntry{}, false, err
	}
	return e, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBanLogEntry(r rowScanner) (models.BanLogEntry, error) {
	var (
		e                              models.BanLogEntry
		threadID, cmdID, targetID, typ sql.NullString
		label                          sql.NullString
	)
	err := r.Scan(&e.BlacklistID, &threadID, &cmdID, &targetID, &typ, &label,
		&e.StartedAtUnix, &e.DurationSecs, &e.DueUnix, &e.UnbannedAtUnix)
	if err != nil {
		return e, err
	}
	e.ThreadID = threadID.String
	e.CommandPostID = cmdID.String
	e.TargetPostID = targetID.String
	e.SubjectType = typ.String
	e.SubjectLabel = label.String
	return e, nil
}
