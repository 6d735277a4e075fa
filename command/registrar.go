package command

import (
	"context"
	"regexp"
)

// rule is one entry of the ordered trigger table. pattern runs against the
// normalized text; the first rule whose pattern matches and whose handler
// returns a non-empty intent wins.
type rule struct {
	name    string
	pattern *regexp.Regexp
	handle  func(ctx context.Context, p *Parser, text string, m []string) Intent
}

// rules is evaluated top to bottom. The order is part of the contract: a
// "ban" anywhere in a comment outranks every bot command listed after it.
var rules = []rule{
	{"test", regexp.MustCompile(`^test\b`), replyWith("bestanden.")},
	{"greet", regexp.MustCompile(`^(?:moin|hallo|guten\s+morgen|hey)\b`), replyWith("moin")},
	{"help", regexp.MustCompile(`^bot\s+sag\s+befehle\b`), replyWith(helpText)},
	{"help", regexp.MustCompile(`^bot\s+hilfe\b`), replyWith(helpText)},
	{"mods", regexp.MustCompile(`^bot\s+sag\s+mods\b`), handleMods},
	{"ban", regexp.MustCompile(`\bban(?:\s+(\d+)\s*([smhd]))?\b`), handleBan},
	{"joke", regexp.MustCompile(`^bot\s+sag\s+witz\b`), handleJoke},
	{"joke", regexp.MustCompile(`^bot\s+erzaehl(?:e)?(?:\s+mir)?(?:\s+einen)?\s+witz\b`), handleJoke},
	{"weather", regexp.MustCompile(`^bot\s+sag\s+wetter(?:\s+in)?\s+(.+)$`), handleWeather},
	{"front", regexp.MustCompile(`^bot\s+sag\s+front(?:\s+(an|zu|gegen))?(?:\s+(\S+))?(?:\s+.*)?$`), handleFront},
	{"story", regexp.MustCompile(`^bot\s+erzaehl(?:e)?\s+mir\s+die\s+geschichte\s+von\s+31gg\s*$`), replyWith(storyText)},
	{"size", regexp.MustCompile(`^bot\s+sag\s+schwanzl(?:aenge|ange)?\b`), handleSize},
	{"liebestest", regexp.MustCompile(`^bot\s+sag\s+liebestest\b\s*(.*)$`), handleLoveTest},
	{"llm", regexp.MustCompile(`^bot\s+(?:(?:sag\s+)?erklaer(?:e)?|(?:sag\s+)?meinung\s+zu|was\s+sind|was\s+ist)\s+(.+)$`), handleLLM},
	{"sag", regexp.MustCompile(`^bot\s+sag\s+(.+)$`), handleSagAny},
}

func replyWith(text string) func(context.Context, *Parser, string, []string) Intent {
	return func(context.Context, *Parser, string, []string) Intent {
		return PlainText(text)
	}
}

// RuleNames returns the trigger names in evaluation order.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}
