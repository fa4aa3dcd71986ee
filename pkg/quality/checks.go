package quality

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zen-systems/askroute/pkg/answer"
	"github.com/zen-systems/askroute/pkg/profile"
)

// Check names. The hard-fail set in the config refers to these.
const (
	checkLengthStructure  = "length_structure"
	checkCoherence        = "coherence"
	checkFactualAlignment = "factual_alignment"
	checkCrossSource      = "cross_source_consistency"
	checkCoverage         = "coverage"
)

func defaultChecks() []Check {
	return []Check{
		lengthStructureCheck{},
		coherenceCheck{},
		factualAlignmentCheck{},
		crossSourceCheck{},
		coverageCheck{},
	}
}

var causalConnectives = []string{
	"because", "since", "therefore", "due to", "as a result", "so that",
	"thus", "consequently",
}

var orderingMarkers = []string{
	"first", "second", "third", "then", "finally", "next", "in addition",
	"moreover", "furthermore", "lastly",
}

// lengthStructureCheck scores the surface shape of an answer: enough text,
// more than one sentence, concrete numbers, and causal language.
type lengthStructureCheck struct{}

func (lengthStructureCheck) Name() string { return checkLengthStructure }

func (lengthStructureCheck) Evaluate(cand *answer.Candidate, _ *profile.Profile) CheckResult {
	text := strings.TrimSpace(cand.Text)
	if utf8.RuneCountInString(text) < 10 {
		return CheckResult{Name: checkLengthStructure, Score: 0, Passed: false,
			Detail: "answer is too short to evaluate"}
	}
	score := 0.0
	if utf8.RuneCountInString(text) >= 50 {
		score += 0.3
	}
	if len(splitSentences(text)) >= 2 {
		score += 0.3
	}
	if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
		score += 0.2
	}
	if containsAny(strings.ToLower(text), causalConnectives) {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}
	return CheckResult{Name: checkLengthStructure, Score: score, Passed: score >= checkPassThreshold,
		Detail: fmt.Sprintf("structure score %.1f", score)}
}

// coherenceCheck looks for the connective tissue of a readable answer:
// multiple sentences, ordering markers, causal links, and visible layout.
type coherenceCheck struct{}

func (coherenceCheck) Name() string { return checkCoherence }

func (coherenceCheck) Evaluate(cand *answer.Candidate, _ *profile.Profile) CheckResult {
	text := strings.TrimSpace(cand.Text)
	lower := strings.ToLower(text)
	score := 0.0
	if len(splitSentences(text)) >= 2 {
		score += 0.3
	}
	if containsAny(lower, orderingMarkers) {
		score += 0.3
	}
	if containsAny(lower, causalConnectives) {
		score += 0.2
	}
	if strings.ContainsAny(text, "\n:") {
		score += 0.2
	}
	return CheckResult{Name: checkCoherence, Score: score, Passed: score >= checkPassThreshold,
		Detail: fmt.Sprintf("coherence score %.1f", score)}
}

// claimIndicators mark sentences that state checkable facts.
var claimIndicators = []string{
	" is ", " are ", " was ", " were ", " has ", " have ", " reaches ",
	" about ", " approximately ", " equals ",
}

// factualAlignmentCheck verifies claim-like sentences against the attached
// sources. Without sources there is nothing to verify, so the check passes
// vacuously at a neutral score rather than failing clean no-retrieval runs.
type factualAlignmentCheck struct{}

func (factualAlignmentCheck) Name() string { return checkFactualAlignment }

func (factualAlignmentCheck) Evaluate(cand *answer.Candidate, _ *profile.Profile) CheckResult {
	if len(cand.Sources) == 0 {
		return CheckResult{Name: checkFactualAlignment, Score: 0.5, Passed: true,
			Detail: "no supporting sources attached"}
	}
	var claims []string
	for _, s := range splitSentences(cand.Text) {
		if containsAny(" "+strings.ToLower(s)+" ", claimIndicators) {
			claims = append(claims, s)
		}
	}
	if len(claims) == 0 {
		return CheckResult{Name: checkFactualAlignment, Score: 0.8, Passed: true,
			Detail: "no claim-like sentences to verify"}
	}
	contents := make([]string, len(cand.Sources))
	for i, src := range cand.Sources {
		contents[i] = strings.ToLower(src.Content)
	}
	verified := 0
	for _, claim := range claims {
		if claimSupported(claim, contents) {
			verified++
		}
	}
	score := float64(verified) / float64(len(claims))
	return CheckResult{Name: checkFactualAlignment, Score: score, Passed: score >= checkPassThreshold,
		Detail: fmt.Sprintf("%d of %d claim sentences backed by sources", verified, len(claims))}
}

// claimSupported reports whether any of the claim's leading significant
// words appears in any source content.
func claimSupported(claim string, contents []string) bool {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(claim)) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if utf8.RuneCountInString(w) >= 4 {
			words = append(words, w)
		}
		if len(words) == 3 {
			break
		}
	}
	if len(words) == 0 {
		return true
	}
	for _, content := range contents {
		for _, w := range words {
			if strings.Contains(content, w) {
				return true
			}
		}
	}
	return false
}

// crossSourceCheck measures how much of the answer's vocabulary each source
// origin backs, taking the weakest origin as the score. An origin whose
// content shares nothing with the answer drags the verdict down.
type crossSourceCheck struct{}

func (crossSourceCheck) Name() string { return checkCrossSource }

func (crossSourceCheck) Evaluate(cand *answer.Candidate, _ *profile.Profile) CheckResult {
	if len(cand.Sources) == 0 {
		return CheckResult{Name: checkCrossSource, Score: 1, Passed: true,
			Detail: "no sources to cross-check"}
	}
	byOrigin := make(map[string][]string)
	for _, src := range cand.Sources {
		byOrigin[src.Origin] = append(byOrigin[src.Origin], src.Content)
	}
	candTokens := tokenSet(cand.Text)
	minAgreement, minOrigin := 1.0, ""
	for origin, contents := range byOrigin {
		originTokens := tokenSet(strings.Join(contents, " "))
		agreement := 0.5 + 0.5*containment(candTokens, originTokens)
		if agreement < minAgreement || minOrigin == "" {
			minAgreement, minOrigin = agreement, origin
		}
	}
	return CheckResult{Name: checkCrossSource, Score: minAgreement, Passed: minAgreement >= checkPassThreshold,
		Detail: fmt.Sprintf("lowest origin agreement %.2f (%s)", minAgreement, minOrigin)}
}

// Question aspects and the answer-side markers that satisfy them.
var aspectMarkers = []struct {
	name     string
	question []string
	answer   []string
	digitsOK bool
}{
	{
		name:     "definition",
		question: []string{"what is", "what are", "define", "meaning of"},
		answer:   []string{" is ", " are ", " refers to ", " means ", "defined as"},
	},
	{
		name:     "reason",
		question: []string{"why", "reason", "cause"},
		answer:   []string{"because", "due to", "since", "reason", "caused by"},
	},
	{
		name:     "method",
		question: []string{"how to", "how do", "how can", "how should", "method", "way to"},
		answer:   []string{"step", "method", "through", "by using", "you can", "by following"},
	},
	{
		name:     "time",
		question: []string{"when", "what time", "how long", "how soon"},
		answer: []string{"year", "month", "week", "day", "hour", "minute",
			"today", "tomorrow", "yesterday", "recently", "currently"},
		digitsOK: true,
	},
	{
		name:     "location",
		question: []string{"where", "location", "located"},
		answer: []string{"located", "location", " in ", " at ", "near",
			"north", "south", "east", "west", "region", "country", "city"},
	},
}

// coverageCheck verifies the answer addresses the aspects the question
// asks about. Questions naming no aspect score a fixed 0.8.
type coverageCheck struct{}

func (coverageCheck) Name() string { return checkCoverage }

func (coverageCheck) Evaluate(cand *answer.Candidate, p *profile.Profile) CheckResult {
	question := strings.ToLower(p.Question)
	text := strings.ToLower(cand.Text)
	total, covered := 0, 0
	var missing []string
	for _, aspect := range aspectMarkers {
		if !containsAny(question, aspect.question) {
			continue
		}
		total++
		if containsAny(text, aspect.answer) || (aspect.digitsOK && strings.IndexFunc(text, unicode.IsDigit) >= 0) {
			covered++
		} else {
			missing = append(missing, aspect.name)
		}
	}
	if total == 0 {
		return CheckResult{Name: checkCoverage, Score: 0.8, Passed: true,
			Detail: "question names no explicit aspects"}
	}
	score := float64(covered) / float64(total)
	detail := fmt.Sprintf("%d of %d question aspects covered", covered, total)
	if len(missing) > 0 {
		detail += ": missing " + strings.Join(missing, ", ")
	}
	return CheckResult{Name: checkCoverage, Score: score, Passed: score >= checkPassThreshold, Detail: detail}
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// containment is the share of a's tokens also present in b.
func containment(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	hits := 0
	for t := range a {
		if _, ok := b[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(a))
}

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
