package flow

import (
	"strings"

	"github.com/olkaphoto/concierge/internal/kb"
)

// greeting detection thresholds
const (
	greetingMaxLen = 20
	greetingRatio  = 0.72
)

// greetingFull is the fixed greeting phrase set compared by similarity.
var greetingFull = []string{
	"привет", "здравствуйте", "здрасте", "здрасьте", "здарова", "здаров",
	"приветствую", "добрый день", "добрый вечер", "доброе утро",
	"доброго дня", "доброй ночи", "hello", "hi", "хай", "салют", "ку", "прив",
}

// greetingPrefixes are token prefixes that classify short texts as greetings.
var greetingPrefixes = []string{
	"здрав", "здраст", "здрась", "здаров", "привет", "прив", "добр",
	"hello", "hi", "хай", "салют", "ку",
}

// IsGreeting reports whether the text reads as a greeting: short texts with
// a greeting-prefixed token or close similarity to a known greeting phrase,
// or any text opening with a greeting-prefixed token.
func IsGreeting(text string) bool {
	t := kb.Normalize(text)
	if t == "" {
		return false
	}
	if len([]rune(t)) <= greetingMaxLen {
		for _, tok := range strings.Fields(t) {
			if hasGreetingPrefix(tok) {
				return true
			}
		}
		for _, g := range greetingFull {
			if kb.Ratio(g, t) >= greetingRatio {
				return true
			}
		}
	}
	toks := strings.Fields(t)
	if len(toks) > 0 && hasGreetingPrefix(toks[0]) {
		return true
	}
	return false
}

func hasGreetingPrefix(tok string) bool {
	for _, pref := range greetingPrefixes {
		if strings.HasPrefix(tok, pref) {
			return true
		}
	}
	return false
}
