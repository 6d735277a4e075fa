package command

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const helpText = "Aktive Befehle:\n" +
	"- bot sag mods\n" +
	"- bot sag wetter [in] <stadt>\n" +
	"- bot sag front\n" +
	"- bot sag front an|zu|gegen <user>\n" +
	"- bot erzähl(e) mir die geschichte von 31gg\n" +
	"- bot sag schwanzlänge ...\n" +
	"- bot sag witz / bot erzähl(e) (einen) witz\n" +
	"- bot sag liebestest <UserA> <UserB>\n" +
	"- bot hilfe / bot sag befehle\n" +
	"- bot sag meinung zu <thema>\n" +
	"- bot erklär(e) <thema> / bot was ist|was sind <thema>\n" +
	"- ban 5m|1h|2d oder nur 'ban' (PERM) als Reply auf Zielkommentar (nur Moderatoren)\n" +
	"\n" +
	"Auto-Triggers:\n" +
	"- test -> bestanden.\n" +
	"- moin/hallo/guten morgen/hey -> moin\n"

const storyText = "Die Geschichte von 31GG: Es begann an einem 12. Februar mit einem einzigen " +
	"Kommentar, auf den niemand antworten wollte. Einer tat es trotzdem, dann noch einer, " +
	"und am Ende der Nacht war aus einem verlorenen Thread eine Runde geworden, die sich " +
	"seitdem jedes Jahr wiederfindet. Seitdem ist der 12. Februar 31GG Feiertag."

const (
	frontUsage    = "Usage: bot sag front an|zu|gegen <user> oder nur: bot sag front"
	loveTestUsage = "Nutzung: bot sag liebestest <UserA> <UserB>"
)

var genericFronts = []string{
	"Du Hase.",
	"Heute nicht, mein Freund.",
	"Mach langsam, Chef.",
	"Ganz dünnes Eis.",
	"Stark. Wirklich stark.",
}

// targetedFronts never repeat the direction word, only the name.
var targetedFronts = []string{
	"%s du Hase",
	"%s entspann dich mal",
	"%s das war’s jetzt aber",
	"%s heute bist du aber mutig",
	"%s ganz dünnes Eis",
}

var banUnits = map[string]int64{"s": 1, "m": 60, "h": 3600, "d": 86400}

// sizeValues holds 0.1..0.9 in steps of 0.1 and 1.0..35.0 in steps of 0.5.
var sizeValues = func() []float64 {
	values := make([]float64, 0, 78)
	for i := 1; i <= 9; i++ {
		values = append(values, float64(i)/10)
	}
	for x := 2; x <= 70; x++ {
		values = append(values, float64(x)/2)
	}
	return values
}()

func handleMods(context.Context, *Parser, string, []string) Intent {
	return ListModerators()
}

// ParseBanSpec turns the captured amount and unit into a ban length.
// Anything missing, unparseable or non-positive means a permanent ban.
func ParseBanSpec(amount, unit string) BanSpec {
	perm := BanSpec{Permanent: true}
	if amount == "" || unit == "" {
		return perm
	}
	n, err := strconv.ParseInt(amount, 10, 64)
	if err != nil || n <= 0 {
		return perm
	}
	mult, ok := banUnits[strings.ToLower(unit)]
	if !ok || n > math.MaxInt64/int64(time.Second)/mult {
		return perm
	}
	return BanSpec{Duration: time.Duration(n*mult) * time.Second}
}

func handleBan(_ context.Context, _ *Parser, _ string, m []string) Intent {
	return Ban(ParseBanSpec(m[1], m[2]))
}

func handleJoke(ctx context.Context, p *Parser, _ string, _ []string) Intent {
	return PlainText(p.services.Joke(ctx))
}

func handleWeather(ctx context.Context, p *Parser, _ string, m []string) Intent {
	return PlainText(p.services.Weather(ctx, strings.TrimSpace(m[1])))
}

func handleFront(_ context.Context, p *Parser, _ string, m []string) Intent {
	mode := strings.TrimSpace(m[1])
	target := strings.TrimSpace(m[2])

	switch {
	case mode == "" && target == "":
		return PlainText(genericFronts[p.rnd.IntN(len(genericFronts))])
	case mode != "" && target != "":
		name := cleanName(target)
		if name == "" {
			return PlainText(frontUsage)
		}
		return PlainText(fmt.Sprintf(targetedFronts[p.rnd.IntN(len(targetedFronts))], name))
	default:
		return PlainText(frontUsage)
	}
}

func handleSize(_ context.Context, p *Parser, _ string, _ []string) Intent {
	return PlainText(FormatSize(sizeValues[p.rnd.IntN(len(sizeValues))]))
}

// FormatSize renders a size with one decimal and a German decimal comma.
func FormatSize(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', 1, 64), ".", ",", 1) + " cm"
}

func handleLoveTest(_ context.Context, p *Parser, _ string, m []string) Intent {
	payload := strings.NewReplacer(",", " ", "+", " ", "&", " ").Replace(m[1])
	parts := strings.Fields(payload)
	if len(parts) < 2 {
		return PlainText(loveTestUsage)
	}
	return PlainText(p.LoveTest(cleanName(parts[0]), cleanName(parts[1])))
}

// LoveTest scores two names. Equal names (ignoring case) always score 100.
func (p *Parser) LoveTest(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return loveTestUsage
	}
	pct := 100
	if !strings.EqualFold(a, b) {
		pct = p.rnd.IntN(101)
	}
	return fmt.Sprintf("❤️ Liebestest %s + %s: %d%%", a, b, pct)
}

func handleLLM(ctx context.Context, p *Parser, text string, m []string) Intent {
	query := strings.TrimSpace(m[1])
	if strings.Contains(text, "meinung") {
		return PlainText(p.services.Opinion(ctx, query))
	}
	return PlainText(p.services.Explain(ctx, query))
}

func handleSagAny(ctx context.Context, p *Parser, _ string, m []string) Intent {
	query := strings.TrimSpace(m[1])
	if query == "" {
		return None()
	}
	return PlainText(p.services.Explain(ctx, query))
}
