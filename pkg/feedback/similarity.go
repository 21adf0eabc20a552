package feedback

import "strings"

// jaccardThreshold is the minimum token-set overlap for two questions
// to count as similar.
const jaccardThreshold = 0.3

// Similar reports whether two questions ask roughly the same thing:
// one contains the other, or their token sets overlap enough.
func Similar(a, b string) bool {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	return jaccard(tokens(na), tokens(nb)) >= jaccardThreshold
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func tokens(s string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range strings.Fields(s) {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if len(tok) > 1 {
			out[tok] = true
		}
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
