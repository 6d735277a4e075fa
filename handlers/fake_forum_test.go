package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"disqus-bot/command"
	"disqus-bot/database"
	"disqus-bot/models"
)

type createdPost struct {
	ID       string
	ThreadID string
	ParentID string
	Message  string
}

type fakeForum struct {
	posts   []models.Post
	details map[string]*models.Post

	banResp   *models.BanResponse
	banErr    error
	removeErr error
	createErr error

	created  []createdPost
	votes    []string
	bans     []string
	banOpts  []models.BanOptions
	removed  []string
	nextPost int
}

func newFakeForum() *fakeForum {
	return &fakeForum{details: map[string]*models.Post{}}
}

func (f *fakeForum) ListRecentPosts(context.Context, int) ([]models.Post, error) {
	return f.posts, nil
}

func (f *fakeForum) PostDetails(_ context.Context, postID string) (*models.Post, error) {
	p, ok := f.details[postID]
	if !ok {
		return nil, fmt.Errorf("post %s not found", postID)
	}
	return p, nil
}

func (f *fakeForum) CreatePost(_ context.Context, threadID, parentID, message string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextPost++
	id := fmt.Sprintf("bot-%d", f.nextPost)
	f.created = append(f.created, createdPost{ID: id, ThreadID: threadID, ParentID: parentID, Message: message})
	return id, nil
}

func (f *fakeForum) VotePost(_ context.Context, postID string, _ int) error {
	f.votes = append(f.votes, postID)
	return nil
}

func (f *fakeForum) BanPostAuthor(_ context.Context, postID string, opts models.BanOptions) (*models.BanResponse, error) {
	f.bans = append(f.bans, postID)
	f.banOpts = append(f.banOpts, opts)
	if f.banErr != nil {
		return nil, f.banErr
	}
	return f.banResp, nil
}

func (f *fakeForum) RemoveBlacklist(_ context.Context, blacklistID string) error {
	f.removed = append(f.removed, blacklistID)
	return f.removeErr
}

type fakeAuth struct {
	ids map[string]bool
}

func (a fakeAuth) IsModerator(id, _ string) bool { return id != "" && a.ids[id] }
func (a fakeAuth) FormatRoster() string { return "Mods:\n- Mod One" }

type stubServices struct{}

func (stubServices) Joke(context.Context) string { return "witz" }
func (stubServices) Weather(_ context.Context, c string) string { return "wetter " + c }
func (stubServices) Explain(_ context.Context, q string) string { return "erklaerung " + q }
func (stubServices) Opinion(_ context.Context, q string) string { return "meinung " + q }

type harness struct {
	forum      *fakeForum
	store      *database.Store
	engine     *Engine
	poster     *Poster
	dispatcher *Dispatcher
	now        time.Time
}

var testStart = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := database.InitDB(filepath.Join(t.TempDir(), "bot.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := &harness{forum: newFakeForum(), store: store, now: testStart.Add(time.Minute)}
	auth := fakeAuth{ids: map[string]bool{"mod1": true, "mod2": true}}
	me := Identity{ID: "botid", Username: "thebot"}

	h.poster = NewPoster(h.forum, store, zap.NewNop())
	h.engine = NewEngine(h.forum, store, auth, h.poster, me, zap.NewNop())
	h.engine.SetClock(func() time.Time { return h.now })
	h.dispatcher = NewDispatcher(h.forum, store, command.NewParser(stubServices{}, nil), auth, h.engine, h.poster, me,
		DispatcherConfig{PostLimit: 50, StartUnix: testStart.Unix()}, zap.NewNop())
	return h
}

func post(id, thread, parent, authorID, message string) models.Post {
	return models.Post{
		ID:        models.ID(id),
		Thread:    models.ID(thread),
		Parent:    models.ID(parent),
		Author:    models.Author{ID: models.ID(authorID), Username: "user-" + authorID},
		Message:   "<p>" + message + "</p>",
		CreatedAt: testStart.Add(30 * time.Second).Format("2006-01-02T15:04:05"),
	}
}

func userBanResponse(id, name string) *models.BanResponse {
	return &models.BanResponse{Updated: []models.BlacklistEntry{
		{ID: models.ID(id), Type: "user", Value: []byte(fmt.Sprintf(`{"name":%q,"username":"troll"}`, name))},
		{ID: "e1", Type: "email", Value: []byte(`"troll@example.com"`)},
	}}
}
