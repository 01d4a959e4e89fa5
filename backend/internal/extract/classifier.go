package extract

import (
	"regexp"

	"blog-graph/backend/internal/textnorm"
)

// NounClassifier decides which tokens and short phrases may name a concept.
// Swap it to change extraction strategy without touching inference or storage.
type NounClassifier interface {
	IsNoun(word string) bool
	IsNounPhrase(phrase string) bool
}

var (
	digitsOnly    = regexp.MustCompile(`^\d+$`)
	properNoun    = regexp.MustCompile(`^[A-Z][a-z]+$`)
	acronym       = regexp.MustCompile(`^[A-Z]{2,}[0-9]*$`)
	joinedWord    = regexp.MustCompile(`[-_]`)
	camelCase     = regexp.MustCompile(`[a-z][A-Z]`)
	dottedName    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(\.[A-Za-z][A-Za-z0-9]*)+$`)
	cjkRun        = regexp.MustCompile(`\p{Han}{2,}`)
	fillerPhrase  = regexp.MustCompile(`(?i)^(in the|for the|to the|of the|on the)$`)
	titleCasedRun = regexp.MustCompile(`([A-Z][a-z]+\s+)+`)
	modifierNoun  = regexp.MustCompile(`[a-z]+\s+[A-Z][a-z]+`)
	lowercasePair = regexp.MustCompile(`[a-z]+\s+[a-z]+`)
	cjkPhrase     = regexp.MustCompile(`\p{Han}{2,}\s+\p{Han}{2,}`)
)

// HeuristicClassifier is a surface-pattern noun test. It is a precision/recall
// trade-off, not a part-of-speech tagger.
type HeuristicClassifier struct {
	// MinLongWord is the rune length above which any remaining word counts as a noun
	MinLongWord int
}

// NewHeuristicClassifier returns the classifier with its usual thresholds
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{MinLongWord: 5}
}

// IsNoun accepts capitalised words, acronyms, hyphenated or snake_case
// identifiers, camelCase, dotted names like Node.js, CJK runs of two or
// more characters, and long words.
func (c *HeuristicClassifier) IsNoun(word string) bool {
	if digitsOnly.MatchString(word) {
		return false
	}
	n := textnorm.RuneLen(word)
	if n < 3 {
		return false
	}
	if nonNounWords.has(word) || dateTimeWords.has(word) {
		return false
	}

	return properNoun.MatchString(word) ||
		acronym.MatchString(word) ||
		joinedWord.MatchString(word) ||
		camelCase.MatchString(word) ||
		dottedName.MatchString(word) ||
		cjkRun.MatchString(word) ||
		n > c.MinLongWord
}

// IsNounPhrase accepts title-cased runs, joined identifiers, modifier+Noun,
// long lowercase compounds and CJK word pairs.
func (c *HeuristicClassifier) IsNounPhrase(phrase string) bool {
	if fillerPhrase.MatchString(phrase) {
		return false
	}
	if IsGenericOrExample(phrase) {
		return false
	}

	return titleCasedRun.MatchString(phrase) ||
		joinedWord.MatchString(phrase) ||
		modifierNoun.MatchString(phrase) ||
		(textnorm.RuneLen(phrase) > 10 && lowercasePair.MatchString(phrase)) ||
		cjkPhrase.MatchString(phrase)
}
