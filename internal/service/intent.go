package service

import (
	"strings"

	"cinebot-go/pkg/textnorm"
)

// Intent is the user's answer to "want more suggestions?".
type Intent int

const (
	IntentUnclear Intent = iota
	IntentAffirmative
	IntentNegative
)

func (i Intent) String() string {
	switch i {
	case IntentAffirmative:
		return "affirmative"
	case IntentNegative:
		return "negative"
	default:
		return "unclear"
	}
}

// Tokens are matched after accent folding, so "não" and "nao" are equal.
// "no" is left out: in Portuguese it is the contraction "em o".
var (
	affirmativeTokens = map[string]struct{}{
		"s": {}, "claro": {}, "quero": {}, "mais": {}, "pode": {},
		"bora": {}, "manda": {}, "ok": {}, "yes": {},
	}
	negativeTokens = map[string]struct{}{
		"nao": {}, "n": {}, "nada": {}, "chega": {}, "parar": {}, "pare": {}, "tchau": {},
	}
)

// DetectIntent classifies msg by whole tokens. Any form of "sim" makes the
// answer affirmative ("sim, obrigado"). Otherwise an explicit negation wins
// over other affirmative words ("não quero mais", "nada mais").
func DetectIntent(msg string) Intent {
	tokens := textnorm.Tokens(msg)
	for _, tok := range tokens {
		if isSim(tok) {
			return IntentAffirmative
		}
	}

	var affirmative bool
	for _, tok := range tokens {
		if _, ok := negativeTokens[tok]; ok {
			return IntentNegative
		}
		if _, ok := affirmativeTokens[tok]; ok {
			affirmative = true
		}
	}
	if affirmative {
		return IntentAffirmative
	}
	return IntentUnclear
}

// isSim matches "sim" with stretched letters ("siiim", "simmm") but not
// words that merely start with it ("simples").
func isSim(tok string) bool {
	if !strings.HasPrefix(tok, "si") || !strings.HasSuffix(tok, "m") {
		return false
	}
	return strings.Trim(tok[1:], "im") == ""
}
