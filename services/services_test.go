package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"disqus-bot/models"
)

type fakeChatter struct {
	out  string
	err  error
	reqs []ChatRequest
}

func (f *fakeChatter) Chat(_ context.Context, req ChatRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.out, f.err
}

func newTestServices(t *testing.T, h http.HandlerFunc, llm Chatter) *Services {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewWithEndpoints(Endpoints{
		Joke:      srv.URL + "/joke",
		Geocoding: srv.URL + "/geo",
		Forecast:  srv.URL + "/forecast",
		Search:    srv.URL + "/search",
	}, llm, zap.NewNop())
}

func TestJoke(t *testing.T) {
	var payload string
	s := newTestServices(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "de", r.URL.Query().Get("lang"))
		assert.Equal(t, "single", r.URL.Query().Get("type"))
		fmt.Fprint(w, payload)
	}, &fakeChatter{})
	ctx := context.Background()

	payload = `{"error":false,"type":"single","joke":"  Ein Witz.  "}`
	assert.Equal(t, "Ein Witz.", s.Joke(ctx))

	payload = `{"error":true}`
	assert.Equal(t, "Kein Witz gefunden.", s.Joke(ctx))

	payload = `{"error":false,"type":"twopart","setup":"Frage?","delivery":"Antwort."}`
	assert.Equal(t, "Frage?\nAntwort.", s.Joke(ctx))

	payload = `not json`
	assert.Equal(t, "Kein Witz gefunden.", s.Joke(ctx))
}

func TestWeather(t *testing.T) {
	s := newTestServices(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/geo":
			if r.URL.Query().Get("name") == "nirgendwo" {
				fmt.Fprint(w, `{}`)
				return
			}
			assert.Equal(t, "de", r.URL.Query().Get("language"))
			fmt.Fprint(w, `{"results":[{"name":"München","country":"Deutschland","latitude":48.1,"longitude":11.5}]}`)
		case "/forecast":
			assert.Equal(t, "48.1", r.URL.Query().Get("latitude"))
			assert.Equal(t, "true", r.URL.Query().Get("current_weather"))
			fmt.Fprint(w, `{"current_weather":{"temperature":12,"windspeed":7.5}}`)
		}
	}, &fakeChatter{})
	ctx := context.Background()

	assert.Equal(t, "München, Deutschland: 12.0°C, Wind 7.5 km/h", s.Weather(ctx, "muenchen"))
	assert.Equal(t, "Ort nicht gefunden: nirgendwo", s.Weather(ctx, "nirgendwo"))
	assert.Equal(t, "Bitte: bot sag wetter in <stadt>", s.Weather(ctx, "  "))
}

func TestExplain(t *testing.T) {
	llm := &fakeChatter{out: "Ein Atom ist klein."}
	s := newTestServices(t, func(http.ResponseWriter, *http.Request) {}, llm)
	ctx := context.Background()

	assert.Equal(t, "Ein Atom ist klein.", s.Explain(ctx, "atom"))
	require.Len(t, llm.reqs, 1)
	assert.Equal(t, "Erkläre: atom", llm.reqs[0].Prompt)
	assert.Equal(t, int64(280), llm.reqs[0].MaxTokens)

	llm.out = ""
	assert.Equal(t, "Keine Antwort erhalten.", s.Explain(ctx, "atom"))

	llm.err = errors.New("quota")
	assert.Equal(t, "LLM gerade nicht verfügbar (API/Quota/Key).", s.Explain(ctx, "atom"))

	assert.Equal(t, "Bitte: bot erkläre <thema>", s.Explain(ctx, ""))
}

func TestOpinion(t *testing.T) {
	var searchBody string
	llm := &fakeChatter{out: "Gute Sache."}
	s := newTestServices(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		fmt.Fprint(w, searchBody)
	}, llm)
	ctx := context.Background()

	searchBody = `{"Heading":"Go","AbstractText":"A language.","RelatedTopics":[{"Text":"one"},{"Text":""},{"Text":"two"},{"Text":"three"}]}`
	assert.Equal(t, "Meinung zu „go“: Gute Sache.", s.Opinion(ctx, "go"))
	require.Len(t, llm.reqs, 1)
	assert.Contains(t, llm.reqs[0].Prompt, "Kontext (Kurzinfo): Go: A language. | one | two")

	llm.err = errors.New("down")
	assert.Equal(t,
		"Meinung zu „go“ (Kurzinfo): Go: A language. | one | two\n"+
			"Einschätzung: Nimm das als Startpunkt und prüfe Pro/Contra anhand 2–3 verlässlicher Quellen.",
		s.Opinion(ctx, "go"))

	searchBody = `{}`
	assert.Equal(t,
		"Meinung zu „go“: Ich finde dazu gerade keine brauchbare Kurzquelle. "+
			"Formuliere das Thema konkreter (z. B. Produkt/These).",
		s.Opinion(ctx, "go"))
}

func TestLLMClient(t *testing.T) {
	_, err := NewLLMClient(models.LLMConfig{}, zap.NewNop()).Chat(context.Background(), ChatRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrLLMNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Antwort  "}}]}`)
	}))
	defer srv.Close()

	c := NewLLMClient(models.LLMConfig{APIKey: "key", Model: "m", BaseURL: srv.URL + "/"}, zap.NewNop())
	out, err := c.Chat(context.Background(), ChatRequest{System: "s", Prompt: "p", Temperature: 0.2, MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "Antwort", out)
}
