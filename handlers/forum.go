package handlers

import (
	"context"
	"errors"
	"strings"

	"disqus-bot/models"
)

var (
	ErrNotModerator    = errors.New("ban issuer is not a moderator")
	ErrNoTarget        = errors.New("ban command is not a reply to a target comment")
	ErrProtectedTarget = errors.New("ban target is the bot or a moderator")
	ErrDuplicateBan    = errors.New("ban target was already banned within the debounce window")
	ErrNoBanSubjects   = errors.New("ban returned no user blacklist entry")
)

// Forum is the subset of the forum API the handlers need.
type Forum interface {
	ListRecentPosts(ctx context.Context, limit int) ([]models.Post, error)
	PostDetails(ctx context.Context, postID string) (*models.Post, error)
	CreatePost(ctx context.Context, threadID, parentID, message string) (string, error)
	VotePost(ctx context.Context, postID string, vote int) error
	BanPostAuthor(ctx context.Context, postID string, opts models.BanOptions) (*models.BanResponse, error)
	RemoveBlacklist(ctx context.Context, blacklistID string) error
}

// Authority answers moderator lookups from a local cache.
type Authority interface {
	IsModerator(authorID, username string) bool
	FormatRoster() string
}

// Identity is the bot's own forum account.
type Identity struct {
	ID       string
	Username string
}

// Owns reports whether author is the bot itself.
func (i Identity) Owns(author models.Author) bool {
	if id := strings.TrimSpace(author.ID.String()); i.ID != "" && id != "" && id == i.ID {
		return true
	}
	u := strings.TrimSpace(author.Username)
	return i.Username != "" && u != "" && strings.EqualFold(u, i.Username)
}
