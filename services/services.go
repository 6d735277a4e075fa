package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"disqus-bot/models"
	"disqus-bot/utils"
)

const (
	explainSystem = "Du erklärst Dinge kurz, korrekt und verständlich auf Deutsch. " +
		"Maximal 8 Sätze. Wenn nötig, nutze eine kurze Liste."
	opinionSystem = "Du gibst knappe, pointierte Einschätzungen auf Deutsch. " +
		"Antworte kurz (maximal 5 Sätze) und bleib sachlich."

	llmUnavailable = "LLM gerade nicht verfügbar (API/Quota/Key)."
)

// Services bundles the text collaborators used by command replies. Every
// method returns reply text and never an error.
type Services struct {
	joke    *JokeClient
	weather *WeatherClient
	search  *SearchClient
	llm     Chatter
	logger  *zap.Logger
}

// Chatter is the completion call Explain and Opinion depend on.
type Chatter interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// Endpoints overrides the third-party base URLs.
type Endpoints struct {
	Joke      string
	Geocoding string
	Forecast  string
	Search    string
}

// DefaultEndpoints returns the public service URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Joke:      DefaultJokeURL,
		Geocoding: DefaultGeocodingURL,
		Forecast:  DefaultForecastURL,
		Search:    DefaultSearchURL,
	}
}

// New wires all collaborators from configuration.
func New(cfg *models.Config, logger *zap.Logger) *Services {
	return NewWithEndpoints(DefaultEndpoints(), NewLLMClient(cfg.LLM, logger), logger)
}

// NewWithEndpoints wires collaborators against explicit endpoints and chat backend.
func NewWithEndpoints(ep Endpoints, llm Chatter, logger *zap.Logger) *Services {
	logger = logger.Named("services")
	hc := utils.NewRobustHTTPClient(logger, 20*time.Second)
	return &Services{
		joke:    NewJokeClient(ep.Joke, hc, logger),
		weather: NewWeatherClient(ep.Geocoding, ep.Forecast, hc, logger),
		search:  NewSearchClient(ep.Search, hc, logger),
		llm:     llm,
		logger:  logger,
	}
}

// Joke returns a random German joke.
func (s *Services) Joke(ctx context.Context) string { return s.joke.Joke(ctx) }

// Weather returns the current weather for city.
func (s *Services) Weather(ctx context.Context, city string) string {
	return s.weather.Weather(ctx, city)
}

// Explain asks the LLM for a short explanation of query.
func (s *Services) Explain(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return "Bitte: bot erkläre <thema>"
	}

	out, err := s.llm.Chat(ctx, ChatRequest{
		System:      explainSystem,
		Prompt:      "Erkläre: " + query,
		Temperature: 0.2,
		MaxTokens:   280,
	})
	if err != nil {
		s.logger.Warn("Explain failed", zap.String("query", query), zap.Error(err))
		return llmUnavailable
	}
	if out == "" {
		return "Keine Antwort erhalten."
	}
	return out
}

// Opinion asks the LLM for a short take on topic, grounded on an instant
// answer when one exists.
func (s *Services) Opinion(ctx context.Context, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "Bitte: bot sag meinung zu <thema>"
	}

	info := s.search.InstantAnswer(ctx, topic)
	background := info
	if background == "" {
		background = "(Keine DuckDuckGo-Kurzinfo gefunden.)"
	}

	out, err := s.llm.Chat(ctx, ChatRequest{
		System: opinionSystem,
		Prompt: "Thema: " + topic + "\n" +
			"Kontext (Kurzinfo): " + background + "\n\n" +
			"Gib eine knappe Einschätzung in einem Satz " +
			"und einen Hinweis, wie man es im Internet suchen kann.",
		Temperature: 0.2,
		MaxTokens:   260,
	})
	if err != nil {
		s.logger.Warn("Opinion failed", zap.String("topic", topic), zap.Error(err))
	}
	if err == nil && out != "" {
		return "Meinung zu „" + topic + "“: " + out
	}

	if info == "" {
		return "Meinung zu „" + topic + "“: Ich finde dazu gerade keine brauchbare Kurzquelle. " +
			"Formuliere das Thema konkreter (z. B. Produkt/These)."
	}
	return "Meinung zu „" + topic + "“ (Kurzinfo): " + info + "\n" +
		"Einschätzung: Nimm das als Startpunkt und prüfe Pro/Contra anhand 2–3 verlässlicher Quellen."
}
