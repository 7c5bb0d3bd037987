// Package kb provides the static knowledge base of the photo studio:
// text normalization, the authoritative facts block used to ground the
// language model, and a fuzzy FAQ matcher over a fixed topic table.
package kb

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/olkaphoto/concierge/internal/models"
)

// Facts is the authoritative price/condition block. The model must take
// every price, discount and condition from here.
const Facts = `Детский сад:
- Общий альбом: одна вёрстка на группу, формат 20×30, 20 страниц — 3500 ₽.
- Индивидуальный альбом: персональная вёрстка; Мини — 2700 ₽, Лайт — 3700 ₽, Макси — 4600 ₽.

Школа:
- Общий альбом: «Классный» — 2200 ₽, «Дружный» — 3200 ₽, «Большой» — 4400 ₽.
- Индивидуальный альбом: «Планшет» — 2000 ₽, «Мини» — 3300 ₽, «Макси» — 4100 ₽.

Дополнительно:
- Дополнительный разворот — 400 ₽.
- Дубликат альбома — 600 ₽.

Условия:
- Минимальный заказ — от 15 альбомов.
- Съёмка проводится до марта.
- Предоплата 50%, остаток после утверждения макета.
- Срок изготовления — 3–4 недели после утверждения макета.`

// Matching thresholds for the fuzzy lookup.
const (
	directMatchRatio = 0.82
	suggestHintRatio = 0.60
	maxSuggestions   = 3
	shortQueryTokens = 1
)

// Topic is one FAQ entry: the label shown on suggestion keyboards, the
// keyword stems that trigger a direct answer, and the answer text.
type Topic struct {
	Label    string
	Keywords []string
	Answer   string
}

// Base is the fuzzy FAQ matcher over the fixed topic table.
type Base struct {
	topics []Topic
}

// New creates the knowledge base with the built-in topic table.
func New() *Base {
	return &Base{topics: topics}
}

// Lookup matches the user text against the topic table. A confident match
// returns the topic answer plus related topic labels; weaker matches
// return disambiguation suggestions only; no match returns an empty result.
func (b *Base) Lookup(text string) models.FAQResult {
	q := Normalize(text)
	if q == "" {
		return models.FAQResult{}
	}

	var best *Topic
	var near []string
	for i := range b.topics {
		t := &b.topics[i]
		switch classify(q, t) {
		case matchDirect:
			if best == nil {
				best = t
			}
		case matchNear:
			near = append(near, t.Label)
		}
	}

	if best != nil {
		slog.Debug("kb.Lookup: direct match", "topic", best.Label)
		return models.FAQResult{Answer: best.Answer, Suggestions: b.related(best)}
	}
	if len(near) > maxSuggestions {
		near = near[:maxSuggestions]
	}
	if len(near) > 0 {
		slog.Debug("kb.Lookup: ambiguous match", "suggestions", len(near))
	}
	return models.FAQResult{Suggestions: near}
}

type matchKind int

const (
	matchNone matchKind = iota
	matchNear
	matchDirect
)

// classify grades how well a normalized query fits a topic.
func classify(q string, t *Topic) matchKind {
	hits := 0
	for _, kw := range t.Keywords {
		if strings.Contains(q, kw) {
			hits++
		}
	}
	label := Normalize(t.Label)
	r := Ratio(q, label)
	switch {
	case hits >= 2 || r >= directMatchRatio:
		return matchDirect
	case hits == 1 && len(strings.Fields(q)) <= shortQueryTokens:
		// a bare keyword is a confident ask
		return matchDirect
	case hits == 1 || r >= suggestHintRatio:
		return matchNear
	default:
		return matchNone
	}
}

// related returns up to maxSuggestions other topic labels as follow-ups.
func (b *Base) related(current *Topic) []string {
	var out []string
	for i := range b.topics {
		t := &b.topics[i]
		if t == current {
			continue
		}
		out = append(out, t.Label)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// Normalize lowers the text, folds ё to е, strips punctuation and
// collapses whitespace. All matching in the bot runs over this form.
func Normalize(s string) string {
	s = strings.ToLower(s)
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == 'ё':
			sb.WriteRune('е')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		default:
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Ratio is an edit-distance similarity in [0,1]: 1 is identical text,
// 0 shares nothing. Inputs are compared as rune sequences.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

var topics = []Topic{
	{
		Label:    "Цены для детского сада",
		Keywords: []string{"сад", "цен", "стоит", "стоимост", "сколько"},
		Answer: "Цены для детского сада:\n" +
			"• Общий альбом (20×30, 20 стр.) — 3500 ₽.\n" +
			"• Индивидуальный: Мини — 2700 ₽, Лайт — 3700 ₽, Макси — 4600 ₽.\n" +
			"Условия: от 15 альбомов, съёмка до марта.",
	},
	{
		Label:    "Цены для школы",
		Keywords: []string{"школ", "цен", "стоит", "стоимост", "сколько"},
		Answer: "Цены для школы:\n" +
			"• Общий: «Классный» — 2200 ₽, «Дружный» — 3200 ₽, «Большой» — 4400 ₽.\n" +
			"• Индивидуальный: «Планшет» — 2000 ₽, «Мини» — 3300 ₽, «Макси» — 4100 ₽.\n" +
			"Условия: от 15 альбомов, съёмка до марта.",
	},
	{
		Label:    "Условия и сроки",
		Keywords: []string{"услови", "срок", "когда", "март", "минимум"},
		Answer: "Условия: минимальный заказ от 15 альбомов, съёмка проводится до марта. " +
			"Предоплата 50%, остаток после утверждения макета. " +
			"Изготовление занимает 3–4 недели после утверждения.",
	},
	{
		Label:    "Как проходит съёмка",
		Keywords: []string{"съемк", "фотограф", "процесс", "проходит"},
		Answer: "Съёмка проходит в саду или школе в согласованный день: портреты, " +
			"групповые кадры и репортаж с занятий. На группу уходит 2–3 часа, " +
			"детей фотографируем по очереди, без долгого ожидания.",
	},
	{
		Label:    "Дубликаты и развороты",
		Keywords: []string{"дубликат", "разворот", "доп", "еще один", "копия"},
		Answer: "Дополнительный разворот — 400 ₽, дубликат альбома — 600 ₽. " +
			"Заказать можно на этапе утверждения макета.",
	},
	{
		Label:    "Оплата",
		Keywords: []string{"оплат", "предоплат", "плат", "перевод"},
		Answer: "Предоплата 50% при бронировании, остаток после утверждения макета. " +
			"Оплата переводом или наличными в день съёмки.",
	},
	{
		Label:    "Как оформить заявку",
		Keywords: []string{"заявк", "заказ", "оформ", "брон", "записат"},
		Answer: "Оформить заявку проще всего через опрос: команда /survey или кнопка " +
			"«" + models.MenuButtonSurvey + "» в меню. Займёт 1–2 минуты.",
	},
}
