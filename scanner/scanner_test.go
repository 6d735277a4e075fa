package scanner

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"disqus-bot/database"
	"disqus-bot/models"
)

type fakeThreads struct {
	threads []models.Thread
	calls   int
}

func (f *fakeThreads) ListRecentThreads(context.Context, int) ([]models.Thread, error) {
	f.calls++
	return f.threads, nil
}

type rootPost struct {
	threadID string
	message  string
}

type fakePoster struct {
	posts []rootPost
	err   error
}

func (f *fakePoster) PostRoot(_ context.Context, threadID, message string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.posts = append(f.posts, rootPost{threadID, message})
	return "new", nil
}

var start = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestScanner(t *testing.T, threads *fakeThreads, poster *fakePoster) (*Scanner, *database.Store, *time.Time) {
	t.Helper()
	store, err := database.InitDB(filepath.Join(t.TempDir(), "scan.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	now := start.Add(time.Minute)
	s := New(threads, poster, store, Config{
		Interval:    20 * time.Second,
		Limit:       25,
		WelcomeText: "Hallo #{HEX}",
		StartUnix:   start.Unix(),
	}, zap.NewNop())
	s.SetClock(func() time.Time { return now })
	return s, store, &now
}

func thread(id string, created time.Time) models.Thread {
	return models.Thread{ID: models.ID(id), CreatedAt: created.Format("2006-01-02T15:04:05")}
}

func TestPollThreads_WelcomesNewThreadOnce(t *testing.T) {
	threads := &fakeThreads{threads: []models.Thread{thread("t1", start.Add(10*time.Second))}}
	poster := &fakePoster{}
	s, store, now := newTestScanner(t, threads, poster)
	ctx := context.Background()

	out, err := s.PollThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Ran: true, Scanned: 1, Welcomed: 1}, out)

	require.Len(t, poster.posts, 1)
	assert.Equal(t, "t1", poster.posts[0].threadID)
	assert.Regexp(t, regexp.MustCompile(`^Hallo #[0-9A-F]{6}$`), poster.posts[0].message)

	flag, _, err := store.KVGet(ctx, database.WelcomedKey("t1"))
	require.NoError(t, err)
	assert.Equal(t, "1", flag)
	seen, err := store.IsThreadSeen(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, seen)

	*now = now.Add(21 * time.Second)
	out, err = s.PollThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Welcomed)
	assert.Len(t, poster.posts, 1)
}

func TestPollThreads_Gate(t *testing.T) {
	threads := &fakeThreads{}
	s, _, now := newTestScanner(t, threads, &fakePoster{})
	ctx := context.Background()

	out, err := s.PollThreads(ctx)
	require.NoError(t, err)
	assert.True(t, out.Ran)

	*now = now.Add(10 * time.Second)
	out, err = s.PollThreads(ctx)
	require.NoError(t, err)
	assert.False(t, out.Ran)
	assert.Equal(t, 1, threads.calls)

	*now = now.Add(10 * time.Second)
	out, err = s.PollThreads(ctx)
	require.NoError(t, err)
	assert.True(t, out.Ran)
	assert.Equal(t, 2, threads.calls)
}

func TestPollThreads_SkipsOldAndClosed(t *testing.T) {
	closed := thread("closed", start.Add(time.Second))
	closed.IsClosed = true
	threads := &fakeThreads{threads: []models.Thread{thread("old", start.Add(-time.Hour)), closed}}
	poster := &fakePoster{}
	s, store, _ := newTestScanner(t, threads, poster)
	ctx := context.Background()

	_, err := s.PollThreads(ctx)
	require.NoError(t, err)
	assert.Empty(t, poster.posts)

	for _, id := range []string{"old", "closed"} {
		seen, err := store.IsThreadSeen(ctx, id)
		require.NoError(t, err)
		assert.True(t, seen, id)
	}
}

func TestPollThreads_WelcomeExisting(t *testing.T) {
	threads := &fakeThreads{threads: []models.Thread{thread("old", start.Add(-time.Hour))}}
	poster := &fakePoster{}
	s, _, _ := newTestScanner(t, threads, poster)
	s.cfg.WelcomeExisting = true

	_, err := s.PollThreads(context.Background())
	require.NoError(t, err)
	assert.Len(t, poster.posts, 1)
}

func TestPollThreads_FailureRetriesClosedDoesNot(t *testing.T) {
	threads := &fakeThreads{threads: []models.Thread{thread("t1", start.Add(time.Second))}}
	poster := &fakePoster{err: errors.New("timeout")}
	s, store, now := newTestScanner(t, threads, poster)
	ctx := context.Background()

	_, err := s.PollThreads(ctx)
	require.NoError(t, err)
	seen, err := store.IsThreadSeen(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, seen, "transient failure leaves the thread for the next pass")

	poster.err = errors.New("disqus api error (HTTP 400, code 2): Thread is closed")
	*now = now.Add(time.Minute)
	out, err := s.PollThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Welcomed)

	seen, err = store.IsThreadSeen(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, seen)
	flag, _, err := store.KVGet(ctx, database.WelcomedKey("t1"))
	require.NoError(t, err)
	assert.Equal(t, "1", flag)
}

func TestRandomHex6(t *testing.T) {
	for range 20 {
		assert.Regexp(t, `^[0-9A-F]{6}$`, RandomHex6())
	}
}
