package models

import (
	"database/sql"
	"encoding/json"
)

// SubjectTypeUser is the only ban-registry subject type the bot records.
const SubjectTypeUser = "user"

// BanOptions are the flags sent with forums/block/banPostAuthor.
type BanOptions struct {
	BanUser           bool
	BanEmail          bool
	BanIP             bool
	ShadowBan         bool
	RetroactiveAction *int
}

// BanResponse is the response body of a ban call.
type BanResponse struct {
	Updated []BlacklistEntry `json:"updated"`
}

// BlacklistEntry is one registry entry returned by the ban call.
// Value is an object for user entries and a plain string for email/ip entries.
type BlacklistEntry struct {
	ID    ID              `json:"id"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// BanSubject is a reversible ban-registry subject extracted from a ban response.
type BanSubject struct {
	BlacklistID string
	Label       string
	Username    string
}

// PendingUnban is a scheduled reversal of a timed ban.
type PendingUnban struct {
	BlacklistID string `db:"blacklist_id"`
	DueUnix     int64  `db:"due_unix"`
}

// BanLogEntry is one row of the append-only ban audit trail.
type BanLogEntry struct {
	BlacklistID    string        `db:"blacklist_id"`
	ThreadID       string        `db:"thread_id"`
	CommandPostID  string        `db:"ban_cmd_post_id"`
	TargetPostID   string        `db:"target_post_id"`
	SubjectType    string        `db:"subject_type"`
	SubjectLabel   string        `db:"subject_label"`
	StartedAtUnix  int64         `db:"started_at_unix"`
	DurationSecs   sql.NullInt64 `db:"duration_secs"`
	DueUnix        sql.NullInt64 `db:"due_unix"`
	UnbannedAtUnix sql.NullInt64 `db:"unbanned_at_unix"`
}

// Permanent reports whether the ban has no scheduled reversal.
func (e BanLogEntry) Permanent() bool {
	return !e.DurationSecs.Valid && !e.DueUnix.Valid
}
