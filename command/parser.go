package command

import (
	"context"
	"math/rand/v2"
	"time"
)

// Services are the text collaborators some commands delegate to. Each call
// returns reply text, including its own fallback on failure.
type Services interface {
	Joke(ctx context.Context) string
	Weather(ctx context.Context, city string) string
	Explain(ctx context.Context, query string) string
	Opinion(ctx context.Context, topic string) string
}

// Parser classifies comment text into intents.
type Parser struct {
	services Services
	rnd      *rand.Rand
}

// NewParser creates a Parser. A nil rnd seeds a fresh generator.
func NewParser(services Services, rnd *rand.Rand) *Parser {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	return &Parser{services: services, rnd: rnd}
}

// Classify normalizes raw and returns the intent of the first matching rule.
func (p *Parser) Classify(ctx context.Context, raw string) Intent {
	text := Normalize(raw)
	if text == "" {
		return None()
	}
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if intent := r.handle(ctx, p, text, m); intent.Kind != KindNone {
			return intent
		}
	}
	return None()
}

// Match returns the name of the first rule matching raw, or "" if none does.
// It never calls a collaborator.
func Match(raw string) string {
	text := Normalize(raw)
	if text == "" {
		return ""
	}
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return r.name
		}
	}
	return ""
}
