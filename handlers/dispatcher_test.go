package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disqus-bot/database"
	"disqus-bot/models"
)

func TestPollPosts_ReplyAndLikeOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.forum.posts = []models.Post{post("p1", "t1", "", "u1", "test")}

	out, err := h.dispatcher.PollPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Replies)

	require.Len(t, h.forum.created, 1)
	assert.Equal(t, createdPost{ID: "bot-1", ThreadID: "t1", ParentID: "p1", Message: "bestanden."}, h.forum.created[0])
	assert.Equal(t, []string{"bot-1", "p1"}, h.forum.votes)

	// Same page again: nothing new happens.
	out, err = h.dispatcher.PollPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Processed)
	assert.Len(t, h.forum.created, 1)
	assert.Len(t, h.forum.votes, 2)

	last, _, err := h.store.KVGet(ctx, database.KeyLastSeenThreadID)
	require.NoError(t, err)
	assert.Equal(t, "t1", last)
}

func TestPollPosts_OldestFirst(t *testing.T) {
	h := newHarness(t)

	h.forum.posts = []models.Post{
		post("p2", "t1", "", "u1", "moin"),
		post("p1", "t1", "", "u1", "test"),
	}

	_, err := h.dispatcher.PollPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, h.forum.created, 2)
	assert.Equal(t, "p1", h.forum.created[0].ParentID)
	assert.Equal(t, "p2", h.forum.created[1].ParentID)
}

func TestPollPosts_Skips(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	old := post("old", "t1", "", "u1", "test")
	old.CreatedAt = testStart.Add(-time.Hour).Format("2006-01-02T15:04:05")
	spam := post("spam", "t1", "", "u1", "test")
	spam.IsSpam = true
	deleted := post("del", "t1", "", "u1", "test")
	deleted.IsDeleted = true
	silent := post("quiet", "t1", "", "u1", "einfach ein kommentar")

	h.forum.posts = []models.Post{old, spam, deleted, silent}

	_, err := h.dispatcher.PollPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, h.forum.created)
	assert.Empty(t, h.forum.votes)

	for _, id := range []string{"old", "spam", "del", "quiet"} {
		seen, err := h.store.IsPostSeen(ctx, id)
		require.NoError(t, err)
		assert.True(t, seen, id)
	}
}

func TestPollPosts_OwnPostLikedOnce(t *testing.T) {
	h := newHarness(t)

	own := post("mine", "t1", "", "botid", "test")
	h.forum.posts = []models.Post{own}

	_, err := h.dispatcher.PollPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.forum.created)
	assert.Equal(t, []string{"mine"}, h.forum.votes)
}

func TestPollPosts_LikeMal(t *testing.T) {
	h := newHarness(t)

	h.forum.posts = []models.Post{post("p1", "t1", "", "u1", "Like mal bitte")}

	_, err := h.dispatcher.PollPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.forum.created)
	assert.Equal(t, []string{"p1"}, h.forum.votes)
}

func TestPollPosts_FailedReplyDoesNotLike(t *testing.T) {
	h := newHarness(t)

	h.forum.createErr = errors.New("boom")
	h.forum.posts = []models.Post{post("p1", "t1", "", "u1", "test")}

	_, err := h.dispatcher.PollPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.forum.votes)
}

func TestPollPosts_ModeratorRoster(t *testing.T) {
	h := newHarness(t)

	h.forum.posts = []models.Post{post("p1", "t1", "", "u1", "bot sag mods")}

	_, err := h.dispatcher.PollPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, h.forum.created, 1)
	assert.Equal(t, "Mods:\n- Mod One", h.forum.created[0].Message)
	assert.Equal(t, []string{"bot-1"}, h.forum.votes)
}

func TestPoster_DedupeAppendsSpace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.poster.PostRoot(ctx, "t1", "Hallo\n")
	require.NoError(t, err)
	_, err = h.poster.PostRoot(ctx, "t1", "Hallo")
	require.NoError(t, err)
	_, err = h.poster.PostRoot(ctx, "t2", "Hallo")
	require.NoError(t, err)

	require.Len(t, h.forum.created, 3)
	assert.Equal(t, "Hallo", h.forum.created[0].Message)
	assert.Equal(t, "Hallo ", h.forum.created[1].Message)
	assert.Equal(t, "Hallo", h.forum.created[2].Message)
}

func TestIsDebugTrigger(t *testing.T) {
	assert.True(t, isDebugTrigger("Guten Morgen zusammen"))
	assert.True(t, isDebugTrigger("BOT hilfe"))
	assert.False(t, isDebugTrigger("nichts hier"))
}
