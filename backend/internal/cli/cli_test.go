package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-graph/backend/internal/blogsource"
	"blog-graph/backend/internal/graph"
	"blog-graph/backend/internal/models"
)

var blogs = []models.Blog{
	{
		Slug:    "flexbox",
		Title:   "Flexbox 布局指南",
		Content: "Flexbox 是一种 CSS 布局方式...Flexbox 包含 flex-direction 属性",
		Tag:     "CSS",
	},
	{
		Slug:    "redux",
		Title:   "Redux 入门",
		Content: "Redux 是一个状态管理库，常与 React 一起使用。Redux 包含 reducer 概念",
		Tag:     "React",
	},
}

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// useMemory points every command at one in-memory store for the test
func useMemory(t *testing.T) *graph.MemoryStore {
	t.Helper()
	store := graph.NewMemoryStore()
	source := blogsource.NewStaticSource(blogs...)

	orig := openBackend
	openBackend = func(ctx context.Context, withSource bool) (*backend, error) {
		return &backend{store: store, source: source}, nil
	}
	t.Cleanup(func() { openBackend = orig })
	return store
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestProcessAndInspect(t *testing.T) {
	store := useMemory(t)

	out, err := run(t, "process", "flexbox")
	require.NoError(t, err, out)
	assert.Contains(t, out, "flexbox")
	assert.Contains(t, out, "1 processed, 0 failed")
	_, ok := store.NodeType("blog-flexbox")
	assert.True(t, ok)

	out, err = run(t, "process", "--all")
	require.NoError(t, err, out)
	assert.Contains(t, out, "2 processed, 0 failed")

	out, err = run(t, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"CSS", "React"}, strings.Fields(out))

	out, err = run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Category")
	assert.Contains(t, out, "React")
}

func TestProcess_Failures(t *testing.T) {
	useMemory(t)

	out, err := run(t, "process", "missing")
	assert.ErrorContains(t, err, "1 of 1 blogs failed")
	assert.Contains(t, out, "✗")

	_, err = run(t, "process")
	assert.Error(t, err)
	_, err = run(t, "process", "--all", "flexbox")
	assert.Error(t, err)
}

func TestTags_Empty(t *testing.T) {
	useMemory(t)
	out, err := run(t, "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "No tags yet")
}

func TestRemoveAndClear(t *testing.T) {
	store := useMemory(t)
	_, err := run(t, "process", "--all")
	require.NoError(t, err)

	out, err := run(t, "remove", "flexbox")
	require.NoError(t, err)
	assert.Contains(t, out, "removed blog-flexbox")
	_, ok := store.NodeType("blog-flexbox")
	assert.False(t, ok)

	_, err = run(t, "clear")
	assert.ErrorContains(t, err, "--yes")
	nodes, _ := store.Counts()
	assert.NotZero(t, nodes)

	_, err = run(t, "clear", "--yes")
	require.NoError(t, err)
	nodes, edges := store.Counts()
	assert.Zero(t, nodes)
	assert.Zero(t, edges)
}

func TestImport(t *testing.T) {
	store := useMemory(t)

	body, err := json.Marshal(models.ImportRequest{
		Nodes: []models.ImportNode{
			{ID: "css-flex", Label: "Flex", Properties: models.NodeProperties{Category: "layout"}},
			{ID: "css-grid", Label: "Grid", Properties: models.NodeProperties{Category: "layout"}},
		},
	})
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "concepts.json")
	require.NoError(t, os.WriteFile(file, body, 0o644))

	out, err := run(t, "import", file, "--type", "css")
	require.NoError(t, err, out)
	assert.Contains(t, out, "2 nodes")
	typ, ok := store.NodeType("css-grid")
	require.True(t, ok)
	assert.Equal(t, "css_concept", typ)

	_, err = run(t, "import", file, "--type", "Bad Type")
	assert.Error(t, err)
}

func mdnServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		docs := []map[string]any{
			{"title": "flex", "slug": "Web/CSS/flex", "summary": "Sets how a flex item grows", "popularity": 0.8},
			{"title": "grid", "slug": "Web/CSS/grid", "summary": "Grid shorthand", "popularity": 0.5},
			{"title": "fetch()", "slug": "Web/API/fetch", "summary": "Starts a network request"},
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"documents": docs})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFetchDocs(t *testing.T) {
	store := useMemory(t)
	api := mdnServer(t)

	file := filepath.Join(t.TempDir(), "css_docs.json")
	_, err := run(t, "fetch-docs", "--type", "css", "--api", api, "--delay", "0s", "-o", file)
	require.NoError(t, err)

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	var req models.ImportRequest
	require.NoError(t, json.Unmarshal(raw, &req))
	assert.Equal(t, "css", req.Type)
	require.Len(t, req.Nodes, 2, "fetch() is not a css page")
	assert.Equal(t, "css-web-css-flex", req.Nodes[0].ID)

	out, err := run(t, "import", file)
	require.NoError(t, err, out)
	assert.Contains(t, out, "2 nodes, 1 relationships imported")
	typ, ok := store.NodeType("css-web-css-grid")
	require.True(t, ok)
	assert.Equal(t, "css_concept", typ)
}

func TestFetchDocs_DirectImport(t *testing.T) {
	store := useMemory(t)
	api := mdnServer(t)

	out, err := run(t, "fetch-docs", "--type", "html", "--api", api, "--delay", "0s", "--import")
	require.NoError(t, err, out)
	assert.Contains(t, out, "pages imported")

	_, err = run(t, "fetch-docs", "--type", "go", "--api", api)
	assert.ErrorContains(t, err, "no docs profile")
	_, err = run(t, "fetch-docs", "--type", "css", "--replace", "--api", api)
	assert.ErrorContains(t, err, "--import")
	_, err = run(t, "fetch-docs")
	assert.Error(t, err)

	nodes, _ := store.Counts()
	assert.Zero(t, nodes, "no page in the fixture is an html page")
}

func TestRender(t *testing.T) {
	useMemory(t)

	_, err := run(t, "render")
	assert.Error(t, err, "nothing to render in an empty graph")

	_, err = run(t, "process", "--all")
	require.NoError(t, err)

	out, err := run(t, "render", "--format", "svg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<?xml"))

	file := filepath.Join(t.TempDir(), "css.html")
	_, err = run(t, "render", "--tag", "CSS", "-f", "html", "-o", file)
	require.NoError(t, err)
	page, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Knowledge graph · CSS")

	_, err = run(t, "render", "--format", "png")
	assert.ErrorContains(t, err, "unknown format")
}

func TestSnapshot(t *testing.T) {
	useMemory(t)
	_, err := run(t, "process", "--all")
	require.NoError(t, err)

	_, err = run(t, "snapshot")
	assert.Error(t, err)

	dir := filepath.Join(t.TempDir(), "snap")
	out, err := run(t, "snapshot", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "graph.svg")
	for _, name := range []string{"graph.json", "graph.svg", "graph.html"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	_, err = run(t, "snapshot", "--upload")
	assert.ErrorContains(t, err, "no snapshot bucket configured")
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	Table(&buf, []string{"Blog", "Nodes"}, [][]string{{"布局", "3"}, {"flexbox", "12"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "  Blog     Nodes", lines[0])
	assert.Equal(t, "  布局       3", lines[2])
	assert.Equal(t, "  flexbox  12", lines[3])
}
