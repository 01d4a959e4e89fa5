package infer

import (
	"testing"

	"blog-graph/backend/internal/extract"
	"blog-graph/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodesFor(blog *models.Blog, entities []extract.Entity) []models.Node {
	nodes := []models.Node{{ID: blog.NodeID(), Label: blog.Title, Type: models.NodeTypeBlog}}
	for i := range entities {
		nodes = append(nodes, models.Node{ID: entities[i].ID(), Label: entities[i].Text})
	}
	return nodes
}

func TestInfer_ContainsAndCooccurrence(t *testing.T) {
	blog := &models.Blog{Slug: "flexbox", Title: "Flexbox 布局指南", Tag: "CSS"}
	entities := []extract.Entity{
		{Text: "Flexbox", Relevance: 0.9, Frequency: 4},
		{Text: "flex-direction", Relevance: 0.8, Frequency: 2},
		{Text: "Grid", Relevance: 0.1, Frequency: 1},
	}
	text := "Flexbox 包含 flex-direction 属性，用于控制主轴方向。\n" +
		"在 Flexbox 容器里设置 flex-direction 可以改变子元素的排列。"

	edges := New(DefaultOptions()).Infer(blog, nodesFor(blog, entities), entities, text)

	var contains, cooc []models.Edge
	for _, e := range edges {
		if e.Source == blog.NodeID() {
			contains = append(contains, e)
		} else {
			cooc = append(cooc, e)
		}
	}

	require.Len(t, contains, 3)
	for i, e := range contains {
		assert.Equal(t, models.RelContains, e.Type)
		assert.Equal(t, entities[i].ID(), e.Target)
		assert.Equal(t, entities[i].Relevance, e.Weight())
	}

	require.Len(t, cooc, 1, "low-relevance Grid must not pair")
	assert.Equal(t, "entity-flexbox", cooc[0].Source)
	assert.Equal(t, "entity-flex-direction", cooc[0].Target)
	assert.Equal(t, models.RelContains, cooc[0].Type)
	assert.Equal(t, 1.0, cooc[0].Weight())
	assert.Equal(t, "flexbox", cooc[0].Properties.Source)
}

func TestInfer_SingleParagraphIsNotEnough(t *testing.T) {
	blog := &models.Blog{Slug: "react"}
	entities := []extract.Entity{
		{Text: "React", Relevance: 0.9},
		{Text: "Redux", Relevance: 0.7},
	}
	text := "React applications often keep shared state in Redux stores."

	edges := New(DefaultOptions()).Infer(blog, nodesFor(blog, entities), entities, text)
	for _, e := range edges {
		assert.Equal(t, models.RelContains, e.Type)
		assert.Equal(t, blog.NodeID(), e.Source)
	}
}

func TestInfer_NoSelfLoopsOrDanglingEdges(t *testing.T) {
	blog := &models.Blog{Slug: "go"}
	entities := []extract.Entity{
		{Text: "Goroutine", Relevance: 0.9},
		{Text: "goroutine", Relevance: 0.8},
		{Text: "Channel", Relevance: 0.7},
	}
	text := "Each goroutine talks over a Channel in this example program.\n" +
		"A goroutine blocks on a Channel receive until a value arrives."

	// Channel is deliberately missing from the node set.
	nodes := nodesFor(blog, entities[:2])
	edges := New(DefaultOptions()).Infer(blog, nodes, entities, text)

	present := map[string]bool{}
	for _, n := range nodes {
		present[n.ID] = true
	}
	keys := map[string]bool{}
	for _, e := range edges {
		assert.NotEqual(t, e.Source, e.Target)
		assert.True(t, present[e.Source], e.Source)
		assert.True(t, present[e.Target], e.Target)
		assert.False(t, keys[e.Key()], "duplicate edge %s", e.Key())
		keys[e.Key()] = true
	}
}

func TestCooccurrences_WordBoundaries(t *testing.T) {
	entities := []extract.Entity{
		{Text: "Java", Relevance: 0.9},
		{Text: "Maven", Relevance: 0.8},
	}
	text := "JavaScript bundles are unrelated to Maven builds in any way.\n" +
		"JavaScript tooling never reads a Maven pom file at all."

	pairs := New(DefaultOptions()).Cooccurrences(entities, text)
	assert.Empty(t, pairs, "Java must not match inside JavaScript")

	text = "Java projects are usually built with Maven in enterprise teams.\n" +
		"JAVA developers configure MAVEN plugins for every module."
	pairs = New(DefaultOptions()).Cooccurrences(entities, text)
	require.Len(t, pairs, 1)
	assert.Equal(t, 2, pairs[0].Count)
	assert.Equal(t, "Java", pairs[0].A.Text)
}

func TestCooccurrences_ShortParagraphsIgnored(t *testing.T) {
	entities := []extract.Entity{
		{Text: "Vue", Relevance: 0.9},
		{Text: "Vite", Relevance: 0.8},
	}
	text := "Vue and Vite.\nVue with Vite."

	assert.Empty(t, New(DefaultOptions()).Cooccurrences(entities, text))
}

func TestDetectRelationType(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
		text   string
		want   string
	}{
		{"chinese is-a", "Flexbox", "布局方式", "Flexbox 是一种布局方式。", models.RelIsA},
		{"chinese is-a reversed", "布局方式", "Flexbox", "Flexbox 是一种布局方式。", models.RelIsA},
		{"chinese contains", "Flexbox", "flex-direction", "Flexbox 包含 flex-direction 属性", models.RelContains},
		{"chinese uses", "Vue", "Vite", "Vue 项目通常使用 Vite 构建", models.RelUses},
		{"chinese depends", "Next.js", "React", "Next.js 依赖 React", models.RelDependsOn},
		{"english is", "React", "library", "React is a UI library.", models.RelIsA},
		{"english uses", "Kubernetes", "etcd", "Kubernetes uses etcd for state.", models.RelUses},
		{"english depends on", "Gatsby", "GraphQL", "Gatsby depends on GraphQL queries.", models.RelDependsOn},
		{"english contains", "Bundle", "chunks", "The Bundle contains several chunks.", models.RelContains},
		{"across sentences", "React", "library", "React ships often. It is a library.", models.RelRelatedTo},
		{"keyword inside word", "Redis", "cache", "Redis this cache", models.RelRelatedTo},
		{"no keyword", "Go", "Rust", "Go and Rust compile to native code.", models.RelRelatedTo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectRelationType(tt.source, tt.target, tt.text))
		})
	}
}

func TestInfer_RelatedToWhenDetectionDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.DetectRelationType = false

	blog := &models.Blog{Slug: "k8s"}
	entities := []extract.Entity{
		{Text: "Kubernetes", Relevance: 0.9},
		{Text: "etcd", Relevance: 0.8},
	}
	text := "Kubernetes uses etcd to persist every cluster object.\n" +
		"Backing up etcd is the first step of a Kubernetes upgrade."

	edges := New(opts).Infer(blog, nodesFor(blog, entities), entities, text)
	require.Len(t, edges, 3)
	assert.Equal(t, models.RelRelatedTo, edges[2].Type)
}
