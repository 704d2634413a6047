// Package sentiment classifies short inbound messages with a keyword
// heuristic. It is deliberately small: scores, not semantics.
package sentiment

import "strings"

const (
	Positive = "positive"
	Neutral  = "neutral"
	Negative = "negative"
)

var positiveWords = []string{
	"thanks", "thank you", "great", "good", "excellent", "perfect",
	"love", "awesome", "yes", "happy", "satisfied", "recommend",
	"obrigado", "obrigada", "otimo", "ótimo", "bom", "excelente",
	"perfeito", "adorei", "sim", "gostei", "recomendo",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "horrible", "no", "never", "refund",
	"broken", "complaint", "cancel", "disappointed", "worst", "problem",
	"ruim", "pessimo", "péssimo", "horrivel", "horrível", "nao", "não",
	"nunca", "problema", "reclamação", "reclamacao", "cancelar", "defeito",
}

// Classify scores the text by keyword hits and returns Positive, Neutral or
// Negative. Ties and no hits are Neutral.
func Classify(text string) string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	score := 0
	for _, w := range positiveWords {
		if matches(set, text, w) {
			score++
		}
	}
	for _, w := range negativeWords {
		if matches(set, text, w) {
			score--
		}
	}
	switch {
	case score > 0:
		return Positive
	case score < 0:
		return Negative
	default:
		return Neutral
	}
}

// matches checks single words against the token set and phrases against the
// raw text.
func matches(set map[string]bool, text, keyword string) bool {
	if strings.ContainsRune(keyword, ' ') {
		return strings.Contains(text, keyword)
	}
	return set[keyword]
}
