package model

import "strings"

// tokenSet lowercases text and splits it into a set of whitespace-delimited
// tokens with edge punctuation stripped.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.Trim(f, ".,;:!?()[]\"'")
		if f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

// jaccard is intersection-over-union of two token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// consensusLevel is the share of the combined vocabulary every answer uses:
// tokens common to all divided by tokens in any.
func consensusLevel(texts []string) float64 {
	if len(texts) == 0 {
		return 0
	}
	common := tokenSet(texts[0])
	union := make(map[string]struct{}, len(common))
	for t := range common {
		union[t] = struct{}{}
	}
	for _, text := range texts[1:] {
		set := tokenSet(text)
		for t := range common {
			if _, ok := set[t]; !ok {
				delete(common, t)
			}
		}
		for t := range set {
			union[t] = struct{}{}
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(len(common)) / float64(len(union))
}

// emphasisMarkers flag sentences likely to carry the core of an answer.
var emphasisMarkers = []string{
	"important", "key", "main", "core", "critical", "notably", "in short",
	"essentially", "primarily",
}

// keyInformation reduces text to its most load-bearing sentences: up to two
// emphasized sentences when present, otherwise the opening one. Short texts
// pass through whole.
func keyInformation(text string) string {
	sentences := splitSentences(text)
	if len(sentences) <= 2 {
		return strings.TrimSpace(text)
	}
	var key []string
	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, marker := range emphasisMarkers {
			if strings.Contains(lower, marker) {
				key = append(key, s)
				break
			}
		}
		if len(key) == 2 {
			break
		}
	}
	if len(key) == 0 {
		key = sentences[:1]
	}
	return strings.Join(key, " ")
}

// splitSentences breaks text on terminal punctuation and newlines.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}
