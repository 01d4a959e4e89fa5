package mdndocs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blog-graph/backend/internal/models"
	apperrors "blog-graph/backend/pkg/errors"
)

// fakeMDN answers /search with canned hits per query; unknown queries get a 503
type fakeMDN struct {
	mu      sync.Mutex
	hits    map[string][]Document
	queries []string
	params  map[string]string
}

func (f *fakeMDN) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := r.URL.Query()
	f.queries = append(f.queries, q.Get("q"))
	f.params = map[string]string{"locale": q.Get("locale"), "size": q.Get("size"), "sort": q.Get("sort")}

	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	hits, ok := f.hits[q.Get("q")]
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"documents": hits})
}

func newTestClient(t *testing.T, f *fakeMDN) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewClient(zap.NewNop(), WithBaseURL(srv.URL+"/"), WithDelay(0))
}

var flexDoc = Document{
	Title:      "flex",
	Slug:       "Web/CSS/flex",
	Summary:    "<p>The <code>flex</code> shorthand\nsets how an item grows.</p>",
	Popularity: 0.8,
}

func TestCollect_DedupesFiltersAndSorts(t *testing.T) {
	f := &fakeMDN{hits: map[string][]Document{
		"CSS": {
			flexDoc,
			{Title: "Grid", Slug: "Web/CSS/CSS_grid_layout", Summary: "Two-dimensional layout"},
			{Title: "fetch()", Slug: "Web/API/fetch", Summary: "Starts a network request"},
		},
		"Layout": {
			flexDoc,
			{Title: "Element.getBoundingClientRect()", Slug: "Web/API/Element/getBoundingClientRect", Summary: "Returns the box model rectangle"},
		},
	}}
	p, err := ProfileFor("css")
	require.NoError(t, err)
	p.Queries = []string{"CSS", "Layout"}

	docs, err := newTestClient(t, f).Collect(context.Background(), p)
	require.NoError(t, err)

	slugs := make([]string, 0, len(docs))
	for _, d := range docs {
		slugs = append(slugs, d.Slug)
	}
	assert.Equal(t, []string{
		"Web/API/Element/getBoundingClientRect",
		"Web/CSS/CSS_grid_layout",
		"Web/CSS/flex",
	}, slugs, "fetch() has no css keyword; flex appears once")

	assert.Equal(t, "The flex shorthand sets how an item grows.", docs[2].Summary)
	assert.Equal(t, []string{"CSS", "Layout"}, f.queries)
	assert.Equal(t, map[string]string{"locale": "zh-CN", "size": "100", "sort": "relevance"}, f.params)
}

func TestCollect_SkipsFailedQueries(t *testing.T) {
	f := &fakeMDN{hits: map[string][]Document{"CSS": {flexDoc}}}
	p, _ := ProfileFor("CSS")
	p.Queries = []string{"Broken", "CSS"}

	docs, err := newTestClient(t, f).Collect(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	p.Queries = []string{"Broken"}
	_, err = newTestClient(t, f).Collect(context.Background(), p)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeFetch))
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, _ := ProfileFor("html")
	_, err := newTestClient(t, &fakeMDN{}).Collect(ctx, p)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeContext))
}

func TestProfileFor(t *testing.T) {
	_, err := ProfileFor("go")
	assert.Error(t, err)

	html, err := ProfileFor(" HTML ")
	require.NoError(t, err)
	assert.Equal(t, "HTML", html.Categorize("Web/HTML/Element/div"))
	assert.Equal(t, "API", html.Categorize("Web/API/HTMLElement"))
	assert.Equal(t, "Other", html.Categorize("Learn/Forms"))
	assert.True(t, html.Matches(Document{Slug: "Learn/Forms", Title: "Your first form"}))
	assert.False(t, html.Matches(Document{Slug: "Web/JavaScript/Closures", Title: "Closures"}))

	css, _ := ProfileFor("css")
	assert.Equal(t, "CSS", css.Categorize("Web/CSS/flex"))
	assert.Equal(t, "Other", css.Categorize("Glossary"))
}

func TestImportRequest(t *testing.T) {
	p, _ := ProfileFor("css")
	c := NewClient(zap.NewNop())
	req := c.ImportRequest(p, []Document{{Title: "flex", Slug: "Web/CSS/flex", Summary: "Shorthand", Popularity: 0.8}})

	require.NoError(t, req.Validate())
	assert.Equal(t, "css", req.Type)
	assert.NotNil(t, req.Relationships)
	require.Len(t, req.Nodes, 1)

	n := req.Nodes[0]
	assert.Equal(t, "css-web-css-flex", n.ID)
	assert.Equal(t, "flex", n.Label)
	assert.Equal(t, models.ConceptType("css"), n.Type)
	assert.Equal(t, "https://developer.mozilla.org/zh-CN/docs/Web/CSS/flex", n.Properties.URL)
	assert.Equal(t, "CSS", n.Properties.Category)
	assert.Equal(t, 0.8, n.Properties.Weight)
}
