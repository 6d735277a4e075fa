package command

import "time"

// Kind tags what a classified comment asks the bot to do.
type Kind int

const (
	// KindNone means the comment is not addressed to the bot.
	KindNone Kind = iota
	// KindPlainText carries a ready reply in Intent.Text.
	KindPlainText
	// KindListModerators asks for the moderator roster.
	KindListModerators
	// KindBan asks to ban the author of the parent comment.
	KindBan
)

func (k Kind) String() string {
	switch k {
	case KindPlainText:
		return "plain_text"
	case KindListModerators:
		return "list_moderators"
	case KindBan:
		return "ban"
	default:
		return "none"
	}
}

// BanSpec is the requested ban length. Permanent bans have a zero Duration.
type BanSpec struct {
	Duration  time.Duration
	Permanent bool
}

// Seconds returns the ban length in whole seconds, 0 for permanent bans.
func (b BanSpec) Seconds() int64 {
	if b.Permanent {
		return 0
	}
	return int64(b.Duration / time.Second)
}

func (b BanSpec) String() string {
	if b.Permanent {
		return "PERM"
	}
	return b.Duration.String()
}

// Intent is the classification result of one comment.
type Intent struct {
	Kind Kind
	Text string
	Ban  BanSpec
}

// None is the empty intent.
func None() Intent { return Intent{Kind: KindNone} }

// PlainText wraps a reply text.
func PlainText(text string) Intent { return Intent{Kind: KindPlainText, Text: text} }

// ListModerators is the roster intent.
func ListModerators() Intent { return Intent{Kind: KindListModerators} }

// Ban is a ban intent for spec.
func Ban(spec BanSpec) Intent { return Intent{Kind: KindBan, Ban: spec} }
