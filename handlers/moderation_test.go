package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disqus-bot/command"
	"disqus-bot/disqus"
	"disqus-bot/models"
)

func TestBanOneHour_EndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.forum.details["target"] = &models.Post{ID: "target", Author: models.Author{ID: "u9", Username: "troll"}}
	h.forum.banResp = userBanResponse("b1", "Troll")
	h.forum.posts = []models.Post{post("c1", "t1", "target", "mod1", "ban 1h")}

	out, err := h.dispatcher.PollPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Bans)

	require.Equal(t, []string{"target"}, h.forum.bans)
	assert.Equal(t, models.BanOptions{BanUser: true}, h.forum.banOpts[0])

	started := h.now.Unix()
	entry, ok, err := h.store.GetBanLogEntry(ctx, "b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3600), entry.DurationSecs.Int64)
	assert.Equal(t, started+3600, entry.DueUnix.Int64)
	assert.Equal(t, "Troll", entry.SubjectLabel)
	assert.Equal(t, "c1", entry.CommandPostID)
	assert.Equal(t, "t1", entry.ThreadID)
	assert.False(t, entry.UnbannedAtUnix.Valid)

	pending, err := h.store.PendingUnbans(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, started+3600, pending[0].DueUnix)

	require.Len(t, h.forum.created, 2)
	assert.Equal(t, createdPost{ID: "bot-1", ThreadID: "t1", ParentID: "c1", Message: "OK."}, h.forum.created[0])
	assert.Equal(t, "", h.forum.created[1].ParentID)
	assert.Equal(t, "Bans letzte 24h (Bot-Log):\n- Troll — AKTIV REST 1h00m00s (seit 0s)", h.forum.created[1].Message)
	assert.Equal(t, []string{"bot-1", "bot-2"}, h.forum.votes)

	// Not due yet.
	h.now = h.now.Add(59 * time.Minute)
	unban, err := h.engine.TickUnbans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, unban.Due)
	assert.Empty(t, h.forum.removed)

	h.now = h.now.Add(time.Minute)
	unban, err = h.engine.TickUnbans(ctx)
	require.NoError(t, err)
	assert.Equal(t, UnbanOutcome{Due: 1, Reversed: 1}, unban)
	assert.Equal(t, []string{"b1"}, h.forum.removed)

	pending, err = h.store.PendingUnbans(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	entry, _, err = h.store.GetBanLogEntry(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, h.now.Unix(), entry.UnbannedAtUnix.Int64)

	report, err := h.engine.BuildReport(ctx, h.now)
	require.NoError(t, err)
	assert.Equal(t, "Bans letzte 24h (Bot-Log):\n- Troll — WAR gebannt 1h00m00s", report)
}

func TestBan_NonModeratorIgnored(t *testing.T) {
	h := newHarness(t)

	h.forum.details["target"] = &models.Post{ID: "target", Author: models.Author{ID: "u9"}}
	h.forum.banResp = userBanResponse("b1", "Troll")
	h.forum.posts = []models.Post{post("c1", "t1", "target", "random", "ban")}

	out, err := h.dispatcher.PollPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, out.Bans)
	assert.Empty(t, h.forum.bans)
	assert.Empty(t, h.forum.created)
	assert.Empty(t, h.forum.votes)
}

func TestBan_Debounce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.forum.details["target"] = &models.Post{ID: "target", Author: models.Author{ID: "u9"}}
	h.forum.banResp = userBanResponse("b1", "Troll")

	first := post("c1", "t1", "target", "mod1", "ban")
	second := post("c2", "t1", "target", "mod2", "ban 5m")

	require.NoError(t, h.engine.ExecuteBan(ctx, first, "t1", command.BanSpec{Permanent: true}))

	h.now = h.now.Add(30 * time.Second)
	err := h.engine.ExecuteBan(ctx, second, "t1", command.BanSpec{Duration: 5 * time.Minute})
	assert.ErrorIs(t, err, ErrDuplicateBan)
	assert.Len(t, h.forum.bans, 1)

	h.now = h.now.Add(31 * time.Second)
	require.NoError(t, h.engine.ExecuteBan(ctx, second, "t1", command.BanSpec{Duration: 5 * time.Minute}))
	assert.Len(t, h.forum.bans, 2)
}

func TestBan_ProtectedTargets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.forum.banResp = userBanResponse("b1", "Troll")

	h.forum.details["modpost"] = &models.Post{ID: "modpost", Author: models.Author{ID: "mod2"}}
	h.forum.details["botpost"] = &models.Post{ID: "botpost", Author: models.Author{ID: "other", Username: "TheBot"}}

	err := h.engine.ExecuteBan(ctx, post("c1", "t1", "modpost", "mod1", "ban"), "t1", command.BanSpec{Permanent: true})
	assert.ErrorIs(t, err, ErrProtectedTarget)

	err = h.engine.ExecuteBan(ctx, post("c2", "t1", "botpost", "mod1", "ban"), "t1", command.BanSpec{Permanent: true})
	assert.ErrorIs(t, err, ErrProtectedTarget)

	assert.Empty(t, h.forum.bans)
}

func TestBan_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	perm := command.BanSpec{Permanent: true}

	err := h.engine.ExecuteBan(ctx, post("c1", "t1", "", "mod1", "ban"), "t1", perm)
	assert.ErrorIs(t, err, ErrNoTarget)

	err = h.engine.ExecuteBan(ctx, post("c1", "t1", "missing", "mod1", "ban"), "t1", perm)
	require.Error(t, err)
	assert.Empty(t, h.forum.bans)

	h.forum.details["target"] = &models.Post{ID: "target", Author: models.Author{ID: "u9"}}
	h.forum.banResp = &models.BanResponse{Updated: []models.BlacklistEntry{{ID: "e1", Type: "email", Value: []byte(`"x@y"`)}}}
	err = h.engine.ExecuteBan(ctx, post("c1", "t1", "target", "mod1", "ban"), "t1", perm)
	assert.ErrorIs(t, err, ErrNoBanSubjects)
	assert.Empty(t, h.forum.created)

	// A failed attempt leaves no debounce marker behind.
	v, _, err := h.store.KVGet(ctx, "last_ban_target_post_id")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestBan_PermanentHasNoPendingUnban(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.forum.details["target"] = &models.Post{ID: "target", Author: models.Author{ID: "u9"}}
	h.forum.banResp = userBanResponse("b7", "")

	require.NoError(t, h.engine.ExecuteBan(ctx, post("c1", "t1", "target", "mod1", "ban"), "t1", command.BanSpec{Permanent: true}))

	pending, err := h.store.PendingUnbans(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	entry, ok, err := h.store.GetBanLogEntry(ctx, "b7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, entry.Permanent())
	assert.Equal(t, "@troll", entry.SubjectLabel)
}

func TestTickUnbans_FailuresStayQueued(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.store.RecordBan(ctx,
		[]models.BanLogEntry{{BlacklistID: "b1", SubjectType: models.SubjectTypeUser, SubjectLabel: "x", StartedAtUnix: 1}},
		[]models.PendingUnban{{BlacklistID: "b1", DueUnix: 10}}))

	h.forum.removeErr = errors.New("network down")
	out, err := h.engine.TickUnbans(ctx)
	require.NoError(t, err)
	assert.Equal(t, UnbanOutcome{Due: 1, Failed: 1}, out)

	pending, err := h.store.PendingUnbans(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	h.forum.removeErr = &disqus.APIError{Status: 400, Code: 8, Body: "not found"}
	out, err = h.engine.TickUnbans(ctx)
	require.NoError(t, err)
	assert.Equal(t, UnbanOutcome{Due: 1, Reversed: 1}, out)

	pending, err = h.store.PendingUnbans(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestExtractBanSubjects(t *testing.T) {
	resp := &models.BanResponse{Updated: []models.BlacklistEntry{
		{ID: "1", Type: "User", Value: []byte(`{"name":" Alice ","username":"Al"}`)},
		{ID: "2", Type: "user", Value: []byte(`{"username":"Bob"}`)},
		{ID: "3", Type: "user", Value: []byte(`{}`)},
		{ID: "", Type: "user", Value: []byte(`{"name":"NoID"}`)},
		{ID: "5", Type: "ip", Value: []byte(`"1.2.3.4"`)},
		{ID: "6", Type: "user", Value: []byte(`"plain"`)},
	}}

	got := ExtractBanSubjects(resp)
	assert.Equal(t, []models.BanSubject{
		{BlacklistID: "1", Label: "Alice", Username: "al"},
		{BlacklistID: "2", Label: "@Bob", Username: "bob"},
		{BlacklistID: "3", Label: "user"},
	}, got)
	assert.Nil(t, ExtractBanSubjects(nil))
}
