// Package resolve maps a loose user reference ("the dentist thing") onto one
// of a set of titled entities and reports how safe it is to act on the match.
package resolve

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Confidence describes how sure the resolver is about a match
type Confidence string

const (
	Exact     Confidence = "exact"
	High      Confidence = "high"
	Medium    Confidence = "medium"
	Ambiguous Confidence = "ambiguous"
	None      Confidence = "none"
)

// Actionable reports whether a mutation may proceed without asking the user
func (c Confidence) Actionable() bool {
	return c == Exact || c == High
}

const (
	similarityThreshold = 0.3 // max normalized edit distance for similar tokens
	survivorThreshold   = 0.3 // min overlap score to stay in the running
	singleHighThreshold = 0.5 // a lone survivor above this is high
	clearLeadMargin     = 0.2 // best must beat runner-up by this to be high
	maxCandidates       = 3
)

// Match is the outcome of resolving a reference against candidates
type Match[T any] struct {
	Entity     *T
	Confidence Confidence
	Candidates []string // populated for Ambiguous
}

type scored[T any] struct {
	entity T
	title  string
	score  float64
}

// Resolve finds the candidate whose title best matches search.
// title extracts the display title of a candidate.
func Resolve[T any](search string, candidates []T, title func(T) string) Match[T] {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return Match[T]{Confidence: None}
	}

	for i := range candidates {
		if strings.ToLower(title(candidates[i])) == needle {
			return found(candidates[i], Exact)
		}
	}

	for i := range candidates {
		if strings.Contains(strings.ToLower(title(candidates[i])), needle) {
			return found(candidates[i], High)
		}
	}
	for i := range candidates {
		t := strings.ToLower(title(candidates[i]))
		if t != "" && strings.Contains(needle, t) {
			return found(candidates[i], High)
		}
	}

	searchTokens := Tokenize(needle)
	var survivors []scored[T]
	for _, c := range candidates {
		t := title(c)
		score := Score(searchTokens, Tokenize(t))
		if score > survivorThreshold {
			survivors = append(survivors, scored[T]{entity: c, title: t, score: score})
		}
	}
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].score > survivors[j].score
	})

	switch {
	case len(survivors) == 0:
		return Match[T]{Confidence: None}
	case len(survivors) == 1 && survivors[0].score > singleHighThreshold:
		return found(survivors[0].entity, High)
	case len(survivors) == 1:
		return found(survivors[0].entity, Medium)
	case survivors[0].score > survivors[1].score+clearLeadMargin:
		return found(survivors[0].entity, High)
	}

	n := min(len(survivors), maxCandidates)
	names := make([]string, 0, n)
	for _, s := range survivors[:n] {
		names = append(names, s.title)
	}
	return Match[T]{Confidence: Ambiguous, Candidates: names}
}

func found[T any](entity T, c Confidence) Match[T] {
	return Match[T]{Entity: &entity, Confidence: c}
}

// Tokenize lowercases s, splits on whitespace and drops single-rune tokens
func Tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Score is the fraction of search tokens that have a similar title token,
// normalized by the larger token count. It is not symmetric in general.
func Score(searchTokens, titleTokens []string) float64 {
	denom := max(len(searchTokens), len(titleTokens))
	if denom == 0 {
		return 0
	}
	matched := 0
	for _, s := range searchTokens {
		for _, t := range titleTokens {
			if Similar(s, t) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(denom)
}

// Similar reports whether two lowercase tokens refer to the same word
func Similar(a, b string) bool {
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen <= 2 {
		return a == b
	}
	return float64(levenshtein.ComputeDistance(a, b))/float64(maxLen) <= similarityThreshold
}
