package scoring

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "into": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "our": {}, "some": {}, "that": {}, "the": {}, "their": {}, "this": {},
	"to": {}, "we": {}, "with": {}, "need": {}, "needs": {}, "needed": {}, "please": {},
	"any": {}, "all": {}, "very": {}, "few": {}, "lot": {}, "lots": {},
}

// tokenSet normalizes free text into a set of comparable terms:
// NFKC, case folding, split on anything that is not a letter or digit,
// stop-words and pure numbers dropped, simple plurals folded.
func tokenSet(text string) map[string]struct{} {
	folded := cases.Fold().String(norm.NFKC.String(text))
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		if isNumeric(f) {
			continue
		}
		f = singular(f)
		if len([]rune(f)) < 2 {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}

func singular(word string) string {
	n := len(word)
	switch {
	case n > 4 && strings.HasSuffix(word, "ies"):
		return word[:n-3] + "y"
	case n > 4 && (strings.HasSuffix(word, "xes") || strings.HasSuffix(word, "ches") ||
		strings.HasSuffix(word, "shes") || strings.HasSuffix(word, "sses")):
		return word[:n-2]
	case n > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") && !strings.HasSuffix(word, "us"):
		return word[:n-1]
	default:
		return word
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// diceCoefficient returns 2|A∩B| / (|A|+|B|), 0 when either set is empty.
func diceCoefficient(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(a)+len(b))
}

// leadingNumber parses the magnitude at the start of a free-form quantity such as "10 boxes".
func leadingNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(norm.NFKC.String(raw))
	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if (c == '.' || c == ',') && !seenDot && end > 0 {
			seenDot = true
			end++
			continue
		}
		break
	}
	digits := strings.TrimRight(strings.ReplaceAll(s[:end], ",", "."), ".")
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
