package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flexContent = "Flexbox 是一种 CSS 布局方式...Flexbox 包含 flex-direction 属性"

func findEntity(entities []Entity, text string) (Entity, bool) {
	for _, e := range entities {
		if strings.EqualFold(e.Text, text) {
			return e, true
		}
	}
	return Entity{}, false
}

func TestExtract_FlexboxScenario(t *testing.T) {
	x := New()
	entities := x.Extract("Flexbox 布局指南", flexContent, "CSS")

	flexbox, ok := findEntity(entities, "Flexbox")
	require.True(t, ok, "expected Flexbox in %v", entities)
	assert.True(t, flexbox.FromTitle)
	assert.Equal(t, "entity-flexbox", flexbox.ID())
	assert.GreaterOrEqual(t, flexbox.Frequency, 4, "title weight plus two body mentions")

	dir, ok := findEntity(entities, "flex-direction")
	require.True(t, ok, "expected flex-direction in %v", entities)
	assert.Equal(t, "entity-flex-direction", dir.ID())
	assert.False(t, dir.FromTitle)
}

func TestExtract_Deterministic(t *testing.T) {
	x := New()
	content := strings.Repeat("React uses a virtual DOM. The useState hook manages component state.\n", 3) +
		"GraphQL and REST are API styles used by the React frontend."

	first := x.Extract("React Hooks", content, "javascript")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, x.Extract("React Hooks", content, "javascript"))
	}
}

func TestExtract_EmptyContent(t *testing.T) {
	x := New()

	assert.Empty(t, x.Extract("Flexbox 布局指南", "", "CSS"))
	assert.Empty(t, x.Extract("Flexbox 布局指南", "   \n\n  ", "CSS"))
	assert.Empty(t, x.Extract("", "<p></p><div><br/></div>", "CSS"))
	assert.NotNil(t, x.Extract("", "", ""))
}

func TestExtract_RankedAndBounded(t *testing.T) {
	x := New(WithOptions(Options{MaxEntities: 3}))
	content := "Kubernetes orchestrates Docker containers across clusters.\n" +
		"Kubernetes schedules workloads and Docker builds images for microservice deployments.\n" +
		"Serverless platforms and Kubernetes operators automate PostgreSQL backups."

	entities := x.Extract("Kubernetes Operators", content, "devops")
	require.NotEmpty(t, entities)
	assert.LessOrEqual(t, len(entities), 3)

	for i, e := range entities {
		assert.GreaterOrEqual(t, e.Relevance, 0.0)
		assert.LessOrEqual(t, e.Relevance, 1.0)
		assert.Greater(t, e.Relevance, DefaultOptions().MinRelevance)
		assert.GreaterOrEqual(t, len([]rune(strings.TrimSpace(e.Text))), 3)
		if i > 0 {
			assert.GreaterOrEqual(t, entities[i-1].Relevance, e.Relevance)
		}
	}
}

func TestExtract_FiltersDatesAndStopWords(t *testing.T) {
	x := New()
	content := "Released on 2023-01-15 the Webpack bundler changed everything.\n" +
		"In 2024 Webpack competes with Vite and esbuild for frontend tooling."

	entities := x.Extract("", content, "javascript")
	for _, e := range entities {
		assert.NotEqual(t, "2023-01-15", e.Text)
		assert.NotEqual(t, "2024", e.Text)
		assert.False(t, IsStopWord(e.Text), "stop word %q leaked", e.Text)
	}
	_, ok := findEntity(entities, "Webpack")
	assert.True(t, ok)
}

func TestExtract_DottedNames(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxEntities = 100
	x := New(WithOptions(opts))
	content := "Next.js renders React pages on the server. Next.js ships with routing.\n" +
		"Both run on Node.js, and D3.js draws the charts."

	entities := x.Extract("", content, "javascript")
	next, ok := findEntity(entities, "Next.js")
	require.True(t, ok)
	assert.Equal(t, 2, next.Frequency)
	_, ok = findEntity(entities, "Node.js")
	assert.True(t, ok)
	_, ok = findEntity(entities, "Next")
	assert.False(t, ok, "the name is not split at the dot")
}

func TestExtract_HTMLContent(t *testing.T) {
	x := New()
	content := "<h1>Intro</h1><p>The <strong>TypeScript</strong> compiler checks types.</p>" +
		"<p>TypeScript adds interfaces on top of JavaScript.</p>"

	entities := x.Extract("", content, "javascript")
	_, ok := findEntity(entities, "TypeScript")
	assert.True(t, ok, "got %v", entities)
	for _, e := range entities {
		assert.NotContains(t, e.Text, "<")
		assert.NotContains(t, e.Text, "strong")
	}
}

type onlyGolang struct{}

func (onlyGolang) IsNoun(word string) bool         { return strings.EqualFold(word, "golang") }
func (onlyGolang) IsNounPhrase(phrase string) bool { return false }

type flatScorer struct{ value float64 }

func (s flatScorer) Score(*Entity, *Document) float64 { return s.value }

func TestExtract_PluggableClassifierAndScorer(t *testing.T) {
	x := New(WithClassifier(onlyGolang{}), WithScorer(flatScorer{value: 0.9}))
	entities := x.Extract("", "Writing services in Golang is fun.\nGolang channels compose well.", "")

	require.Len(t, entities, 1)
	assert.Equal(t, "Golang", entities[0].Text)
	assert.Equal(t, 2, entities[0].Frequency)
	assert.Equal(t, 0.9, entities[0].Relevance)

	low := New(WithScorer(flatScorer{value: 0.1}))
	assert.Empty(t, low.Extract("", flexContent, "CSS"))
}

func TestHeuristicClassifier_IsNoun(t *testing.T) {
	c := NewHeuristicClassifier()
	tests := []struct {
		word string
		want bool
	}{
		{"Flexbox", true},
		{"flex-direction", true},
		{"snake_case", true},
		{"useState", true},
		{"CSS", true},
		{"布局方式", true},
		{"container", true},
		{"box", false},
		{"should", false},
		{"12345", false},
		{"monday", false},
		{"ab", false},
		{"D3.js", true},
		{"1.5", false},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsNoun(tt.word))
		})
	}
}

func TestHeuristicClassifier_IsNounPhrase(t *testing.T) {
	c := NewHeuristicClassifier()

	assert.True(t, c.IsNounPhrase("Virtual DOM"))
	assert.True(t, c.IsNounPhrase("css grid-template"))
	assert.True(t, c.IsNounPhrase("react Hooks"))
	assert.True(t, c.IsNounPhrase("promise chaining"))
	assert.True(t, c.IsNounPhrase("弹性 布局"))
	assert.False(t, c.IsNounPhrase("of the"))
	assert.False(t, c.IsNounPhrase("Click Here"))
	assert.False(t, c.IsNounPhrase("Demo App"))
}

func TestRelevanceScorer_Boosts(t *testing.T) {
	doc := NewDocument("Flexbox Guide", flexContent, "css")
	s := RelevanceScorer{}

	plain := &Entity{Text: "Something", Frequency: 1}
	boosted := &Entity{Text: "Flexbox", Frequency: 1, Context: "Flexbox 是一种 CSS 布局方式"}

	assert.Greater(t, s.Score(boosted, doc), s.Score(plain, doc))
	assert.LessOrEqual(t, s.Score(&Entity{Text: "Flexbox", Frequency: 100}, doc), 1.0)
}

func TestTermPredicates(t *testing.T) {
	assert.True(t, IsTechnicalTerm("GraphQL"))
	assert.True(t, IsTechnicalTerm("rest-api"))
	assert.True(t, IsTechnicalTerm("next.js"))
	assert.True(t, IsTechnicalTerm("docker"))
	assert.False(t, IsTechnicalTerm("garden"))

	assert.True(t, IsDomainRelated("flex-direction", "CSS"))
	assert.False(t, IsDomainRelated("flex-direction", "go"))

	assert.True(t, InTechDictionary("React"))
	assert.False(t, InTechDictionary("reactive"))

	assert.True(t, IsGenericOrExample("example.com"))
	assert.True(t, IsGenericOrExample("点击这里"))
	assert.False(t, IsGenericOrExample("Flexbox"))
}
