package extract

import (
	"math"
	"regexp"
	"strings"

	"blog-graph/backend/internal/textnorm"
)

// Document is the scoring context shared by all candidates of one blog
type Document struct {
	Title         string
	Tag           string
	Text          string // normalized body
	LowerText     string
	WordCount     int
	Paragraphs    []string
	KeyParagraphs []string
}

// NewDocument prepares the scoring context for a blog body
func NewDocument(title, content, tag string) *Document {
	text := textnorm.Normalize(content)
	words := textnorm.Words(text)
	paragraphs := textnorm.Paragraphs(content)

	doc := &Document{
		Title:      textnorm.Normalize(title),
		Tag:        tag,
		Text:       text,
		LowerText:  strings.ToLower(text),
		WordCount:  len(words),
		Paragraphs: paragraphs,
	}
	if doc.WordCount == 0 {
		doc.WordCount = 1
	}
	doc.KeyParagraphs = keyParagraphs(paragraphs)
	return doc
}

// keyParagraphs is the opening paragraph plus the first sentence of each of the first ten paragraphs
func keyParagraphs(paragraphs []string) []string {
	if len(paragraphs) == 0 {
		return nil
	}
	keys := []string{strings.ToLower(paragraphs[0])}
	for i := 0; i < len(paragraphs) && i < 10; i++ {
		sentences := textnorm.Sentences(paragraphs[i])
		if len(sentences) > 0 && textnorm.RuneLen(sentences[0]) > 10 {
			keys = append(keys, strings.ToLower(sentences[0]))
		}
	}
	return keys
}

// Scorer assigns a relevance in [0,1] to a candidate
type Scorer interface {
	Score(e *Entity, doc *Document) float64
}

var technicalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z][a-z]*[A-Z]`),
	regexp.MustCompile(`\b[A-Z]{2,}\b`),
	regexp.MustCompile(`\b[a-z]+[A-Z][a-z]+\b`),
	regexp.MustCompile(`(?i)-(api|sdk|cli|ui|ux|db|sql|css|html|js|ts|xml|json)$`),
	regexp.MustCompile(`(?i)^(api|sdk|cli|ui|db|sql|css|html|js|ts|xml|json)-`),
	regexp.MustCompile(`[a-z]+\.[a-z]+`),
}

// IsTechnicalTerm matches identifier-shaped text or a known technology name
func IsTechnicalTerm(text string) bool {
	for _, p := range technicalPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return commonTechTerms.has(text)
}

// IsDomainRelated reports whether text contains a keyword of the tag's domain
func IsDomainRelated(text, tag string) bool {
	keywords, ok := domainKeywords[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// InTechDictionary is an exact, case-insensitive dictionary lookup
func InTechDictionary(text string) bool {
	return techDictionary.has(text)
}

// RelevanceScorer multiplies frequency by positional and lexical boosts and
// divides by ten, clamped to 1.
type RelevanceScorer struct{}

// Score computes the relevance of e within doc
func (RelevanceScorer) Score(e *Entity, doc *Document) float64 {
	lower := strings.ToLower(e.Text)
	r := float64(e.Frequency)

	r *= math.Min(float64(textnorm.RuneLen(e.Text))/5, 2)

	if occ := strings.Count(doc.LowerText, lower); occ > 0 {
		density := float64(occ) / float64(doc.WordCount)
		r *= 1 + density*10
	}

	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(e.Context)), lower) {
		r *= 1.5
	}

	keyHits := 0
	for _, p := range doc.KeyParagraphs {
		keyHits += strings.Count(p, lower)
	}
	if keyHits > 0 {
		r *= 1 + float64(keyHits)*0.3
	}

	if IsTechnicalTerm(e.Text) {
		r *= 1.5
	}
	if IsDomainRelated(e.Text, doc.Tag) {
		r *= 2
	}
	if InTechDictionary(e.Text) {
		r *= 1.5
	} else {
		r *= 0.7
	}

	if doc.Title != "" && strings.Contains(strings.ToLower(doc.Title), lower) {
		r *= 2
	}
	if doc.Tag != "" && strings.Contains(strings.ToLower(doc.Tag), lower) {
		r *= 1.5
	}

	return math.Min(r/10, 1)
}
