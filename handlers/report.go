package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"disqus-bot/models"
)

const (
	reportWindow = 24 * time.Hour
	reportLimit  = 15
	reportHeader = "Bans letzte 24h (Bot-Log):"
)

// BuildReport renders the user bans started in the 24 hours before now,
// newest first.
func (e *Engine) BuildReport(ctx context.Context, now time.Time) (string, error) {
	nowUnix := now.Unix()
	rows, err := e.store.BansSince(ctx, nowUnix-int64(reportWindow/time.Second))
	if err != nil {
		return "", fmt.Errorf("failed to load ban log: %w", err)
	}
	return FormatReport(rows, nowUnix), nil
}

// FormatReport renders ban log rows, which must already be newest first.
func FormatReport(rows []models.BanLogEntry, now int64) string {
	if len(rows) == 0 {
		return reportHeader + "\n- (keine)"
	}

	lines := []string{reportHeader}
	for i, r := range rows {
		if i >= reportLimit {
			break
		}
		lines = append(lines, "- "+r.SubjectLabel+" — "+banState(r, now))
	}
	return strings.Join(lines, "\n")
}

func banState(r models.BanLogEntry, now int64) string {
	switch {
	case r.UnbannedAtUnix.Valid:
		return "WAR gebannt " + FormatDuration(r.UnbannedAtUnix.Int64-r.StartedAtUnix)
	case r.DueUnix.Valid && now < r.DueUnix.Int64:
		return fmt.Sprintf("AKTIV REST %s (seit %s)", FormatDuration(r.DueUnix.Int64-now), FormatDuration(now-r.StartedAtUnix))
	case r.DueUnix.Valid:
		return "FÄLLIG seit " + FormatDuration(now-r.DueUnix.Int64)
	default:
		// No due date means no scheduled reversal.
		return "AKTIV PERM (seit " + FormatDuration(now-r.StartedAtUnix) + ")"
	}
}

// FormatDuration renders secs with the largest non-zero unit first and the
// smaller units zero padded: 1d02h03m04s, 1h01m01s, 5m09s, 42s.
func FormatDuration(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	d, rem := secs/86400, secs%86400
	h, rem := rem/3600, rem%3600
	m, s := rem/60, rem%60

	switch {
	case d > 0:
		return fmt.Sprintf("%dd%02dh%02dm%02ds", d, h, m, s)
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
