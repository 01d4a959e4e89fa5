// Package extract derives weighted candidate entities from blog text with
// stop-word filtering, a noun heuristic and relevance scoring.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/textnorm"
)

// Entity is an extraction-time candidate concept
type Entity struct {
	Text      string  `json:"text"`
	Context   string  `json:"context"`
	Frequency int     `json:"frequency"`
	Relevance float64 `json:"relevance"`
	FromTitle bool    `json:"from_title"`
}

// ID returns the node id the entity is stored under
func (e *Entity) ID() string {
	return models.EntityNodeID(e.Text)
}

// Options bounds the extraction output
type Options struct {
	MinRelevance      float64 // keep entities strictly above this score
	MaxEntities       int
	MinParagraphRunes int
	MinSentenceRunes  int
	TitleWordWeight   int
	TitlePhraseWeight int
}

// DefaultOptions returns the usual thresholds
func DefaultOptions() Options {
	return Options{
		MinRelevance:      0.2,
		MaxEntities:       20,
		MinParagraphRunes: 10,
		MinSentenceRunes:  5,
		TitleWordWeight:   2,
		TitlePhraseWeight: 3,
	}
}

// Extractor turns text into a ranked entity list. It is safe for concurrent use.
type Extractor struct {
	classifier NounClassifier
	scorer     Scorer
	opts       Options
}

// Option configures an Extractor
type Option func(*Extractor)

// WithClassifier replaces the noun heuristic
func WithClassifier(c NounClassifier) Option {
	return func(x *Extractor) { x.classifier = c }
}

// WithScorer replaces the relevance scorer
func WithScorer(s Scorer) Option {
	return func(x *Extractor) { x.scorer = s }
}

// WithOptions overrides thresholds; zero fields keep their defaults
func WithOptions(o Options) Option {
	return func(x *Extractor) {
		if o.MinRelevance > 0 {
			x.opts.MinRelevance = o.MinRelevance
		}
		if o.MaxEntities > 0 {
			x.opts.MaxEntities = o.MaxEntities
		}
		if o.MinParagraphRunes > 0 {
			x.opts.MinParagraphRunes = o.MinParagraphRunes
		}
		if o.MinSentenceRunes > 0 {
			x.opts.MinSentenceRunes = o.MinSentenceRunes
		}
		if o.TitleWordWeight > 0 {
			x.opts.TitleWordWeight = o.TitleWordWeight
		}
		if o.TitlePhraseWeight > 0 {
			x.opts.TitlePhraseWeight = o.TitlePhraseWeight
		}
	}
}

// New creates an Extractor with the heuristic classifier and relevance scorer
func New(opts ...Option) *Extractor {
	x := &Extractor{
		classifier: NewHeuristicClassifier(),
		scorer:     RelevanceScorer{},
		opts:       DefaultOptions(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// ExtractEntities extracts from body text only
func (x *Extractor) ExtractEntities(text, tag string) []Entity {
	return x.Extract("", text, tag)
}

// Extract returns the ranked entities of a blog. Empty or markup-only content
// yields an empty slice even when the title has candidates; it never fails.
func (x *Extractor) Extract(title, content, tag string) []Entity {
	doc := NewDocument(title, content, tag)
	if doc.Text == "" {
		return []Entity{}
	}

	bag := newCandidateBag()
	x.collectContent(bag, content)
	x.collectTitle(bag, title)

	if len(bag.order) == 0 {
		return []Entity{}
	}

	out := make([]Entity, 0, len(bag.order))
	for _, key := range bag.order {
		e := bag.items[key]
		if isIrrelevant(e.Text) {
			continue
		}
		e.Relevance = x.scorer.Score(e, doc)
		if e.Relevance > x.opts.MinRelevance {
			out = append(out, *e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return strings.ToLower(out[i].Text) < strings.ToLower(out[j].Text)
	})

	if len(out) > x.opts.MaxEntities {
		out = out[:x.opts.MaxEntities]
	}
	return out
}

func (x *Extractor) collectContent(bag *candidateBag, content string) {
	for _, paragraph := range textnorm.Paragraphs(content) {
		if textnorm.RuneLen(paragraph) < x.opts.MinParagraphRunes {
			continue
		}
		for _, sentence := range textnorm.Sentences(paragraph) {
			if textnorm.RuneLen(sentence) < x.opts.MinSentenceRunes {
				continue
			}
			context := strings.Join(textnorm.Words(sentence), " ")
			words := x.filterWords(textnorm.Words(sentence))

			for _, w := range words {
				if x.classifier.IsNoun(w) && !IsGenericOrExample(w) {
					bag.add(w, context, 1, false)
				}
			}
			x.collectPhrases(bag, words, context, 1, false)
		}
	}
}

// collectTitle adds title words and pairs with a higher base weight; a
// repeated title term is counted once.
func (x *Extractor) collectTitle(bag *candidateBag, title string) {
	words := textnorm.Words(textnorm.StripMarkup(title))
	if len(words) == 0 {
		return
	}
	context := strings.Join(words, " ")
	seen := make(map[string]bool)

	for _, w := range x.filterWords(words) {
		key := strings.ToLower(w)
		if seen[key] || !x.classifier.IsNoun(w) {
			continue
		}
		seen[key] = true
		bag.add(w, context, x.opts.TitleWordWeight, true)
	}

	for i := 0; i+1 < len(words); i++ {
		if !x.classifier.IsNoun(words[i]) && !x.classifier.IsNoun(words[i+1]) {
			continue
		}
		phrase := words[i] + " " + words[i+1]
		key := strings.ToLower(phrase)
		if seen[key] || !x.classifier.IsNounPhrase(phrase) {
			continue
		}
		seen[key] = true
		bag.add(phrase, context, x.opts.TitlePhraseWeight, true)
	}
}

func (x *Extractor) collectPhrases(bag *candidateBag, words []string, context string, weight int, fromTitle bool) {
	for i := 0; i+1 < len(words); i++ {
		if x.classifier.IsNoun(words[i]) || x.classifier.IsNoun(words[i+1]) {
			phrase := words[i] + " " + words[i+1]
			if x.classifier.IsNounPhrase(phrase) {
				bag.add(phrase, context, weight, fromTitle)
			}
		}
		if i+2 < len(words) {
			if x.classifier.IsNoun(words[i]) || x.classifier.IsNoun(words[i+1]) || x.classifier.IsNoun(words[i+2]) {
				phrase := words[i] + " " + words[i+1] + " " + words[i+2]
				if x.classifier.IsNounPhrase(phrase) {
					bag.add(phrase, context, weight, fromTitle)
				}
			}
		}
	}
}

// filterWords drops short tokens, stop-words and known non-nouns
func (x *Extractor) filterWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if textnorm.RuneLen(w) <= 2 || stopWords.has(w) || nonNounWords.has(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

var (
	datePattern = regexp.MustCompile(`^\d{2,4}[-/.]\d{1,2}[-/.]\d{1,2}$`)
	yearPattern = regexp.MustCompile(`^(19|20)\d{2}$`)
)

// isIrrelevant rejects dates, years, bare numbers and date-time words
func isIrrelevant(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if textnorm.RuneLen(lower) < 3 {
		return true
	}
	return datePattern.MatchString(lower) ||
		digitsOnly.MatchString(lower) ||
		dateTimeWords.has(lower) ||
		yearPattern.MatchString(lower)
}

// candidateBag accumulates candidates keyed by lowercased text in first-seen order
type candidateBag struct {
	items map[string]*Entity
	order []string
}

func newCandidateBag() *candidateBag {
	return &candidateBag{items: make(map[string]*Entity)}
}

func (b *candidateBag) add(text, context string, weight int, fromTitle bool) {
	key := strings.ToLower(text)
	if e, ok := b.items[key]; ok {
		e.Frequency += weight
		e.FromTitle = e.FromTitle || fromTitle
		return
	}
	b.items[key] = &Entity{
		Text:      text,
		Context:   context,
		Frequency: weight,
		FromTitle: fromTitle,
	}
	b.order = append(b.order, key)
}
