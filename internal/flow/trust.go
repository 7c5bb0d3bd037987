package flow

import "strings"

// SafePriceRefusal replaces a model answer that names a price not backed
// by the facts block.
const SafePriceRefusal = "Не могу назвать точную цену. Давайте я уточню у фотографа."

// knownFactTokens are the numeric price tokens present in the facts block.
// The check is a plain substring scan with no semantic binding between a
// number and the album tier it belongs to; a fabricated price reusing one
// of these tokens passes through. Accepted residual risk.
var knownFactTokens = []string{
	"2700", "3700", "4600", "3500", "2000", "3300", "4100",
	"2200", "3200", "4400", "400", "600",
}

// FilterPrice returns the answer unchanged when it is trusted, or the safe
// refusal when it names a price outside the known facts.
func FilterPrice(answer string) string {
	if looksLikeUntrustedPrice(answer) {
		return SafePriceRefusal
	}
	return answer
}

// looksLikeUntrustedPrice flags an answer iff it mentions a currency and
// carries neither the 50% literal nor any known fact price token.
func looksLikeUntrustedPrice(answer string) bool {
	ans := strings.ToLower(answer)
	if !strings.Contains(ans, "₽") && !strings.Contains(ans, "руб") {
		return false
	}
	if strings.Contains(ans, "50%") || strings.Contains(ans, "50 %") {
		return false
	}
	for _, n := range knownFactTokens {
		if strings.Contains(ans, n) {
			return false
		}
	}
	return true
}
