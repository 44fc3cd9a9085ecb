package compose

import (
	"strings"

	"github.com/kestrelhq/kestrel/internal/style"
)

const empathyPrefix = "I understand how you feel. "

var energeticSuffixes = []string{"Let's make the most of it!"}

// formalSubstitutions expand contractions and casual fillers. Applied on
// word boundaries only, longest first.
var formalSubstitutions = [][2]string{
	{"can't", "cannot"},
	{"won't", "will not"},
	{"don't", "do not"},
	{"doesn't", "does not"},
	{"i'm", "I am"},
	{"it's", "it is"},
	{"let's", "let us"},
	{"that's", "that is"},
	{"gonna", "going to"},
	{"yeah", "yes"},
	{"hey", "hello"},
}

// applyTone rewrites the enriched text for the adapted tone, then enforces
// brief length when the style asks for it.
func applyTone(text string, s style.ContextualStyle) string {
	switch s.Tone {
	case style.ToneEmpathetic:
		text = empathyPrefix + text
	case style.ToneEnergetic:
		if !strings.HasSuffix(strings.TrimSpace(text), "!") {
			text = strings.TrimRight(text, " ") + " " + energeticSuffixes[0]
		}
	case style.ToneCalm:
		text = strings.ReplaceAll(text, "!", ".")
	case style.ToneFormal:
		text = formalize(text)
	}

	if s.ResponseLength == style.LengthBrief && len(text) > briefMaxChars {
		text = truncateAtWord(text, briefMaxChars) + "..."
	}
	return text
}

func formalize(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		lower := strings.ToLower(w)
		trimmed := strings.Trim(lower, ".,!?;:")
		for _, sub := range formalSubstitutions {
			if trimmed == sub[0] {
				words[i] = strings.Replace(lower, trimmed, sub[1], 1)
				break
			}
		}
	}
	return strings.Join(words, " ")
}

func truncateAtWord(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := strings.LastIndex(text[:max], " ")
	if cut <= 0 {
		cut = max
	}
	return strings.TrimRight(text[:cut], " ,.;:")
}
