package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeIDs(t *testing.T) {
	assert.Equal(t, "blog-flexbox-guide", BlogNodeID("flexbox-guide"))
	assert.Equal(t, "entity-flexbox", EntityNodeID("Flexbox"))
	assert.Equal(t, "entity-virtual-dom", EntityNodeID("  Virtual \t DOM "))
	assert.Equal(t, "entity-flex-direction", EntityNodeID("flex-direction"))
	assert.Equal(t, EntityNodeID("React Hooks"), EntityNodeID("react hooks"))
}

func TestBlog(t *testing.T) {
	b := Blog{Slug: "grid", Tag: ""}
	assert.Equal(t, DefaultCategory, b.Category())
	assert.Equal(t, "/blog/grid", b.URL())
	assert.Equal(t, "blog-grid", b.NodeID())
	assert.NoError(t, b.Validate())

	b.Tag = "CSS"
	assert.Equal(t, "CSS", b.Category())

	assert.Error(t, (&Blog{Slug: " "}).Validate())
	err := (&Blog{Slug: "a/b"}).Validate()
	var invalid ErrInvalidBlog
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "slug", invalid.Field)
}

func TestNodeType_JSON(t *testing.T) {
	data, err := json.Marshal(Node{ID: "blog-x", Type: NodeTypeBlog})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"blog"`)

	for raw, want := range map[string]NodeType{
		`"blog"`:        NodeTypeBlog,
		`"BLOG"`:        NodeTypeBlog,
		`"entity"`:      NodeTypeEntity,
		`"css_concept"`: NodeTypeEntity,
		`""`:            NodeTypeEntity,
	} {
		var got NodeType
		require.NoError(t, json.Unmarshal([]byte(raw), &got), raw)
		assert.Equal(t, want, got, raw)
	}

	var bad NodeType
	assert.Error(t, json.Unmarshal([]byte(`7`), &bad))
}

func TestEdge_Validate(t *testing.T) {
	assert.NoError(t, (&Edge{Source: "a", Target: "b", Type: RelContains}).Validate())
	assert.Error(t, (&Edge{Source: "a", Target: "a"}).Validate())
	assert.Error(t, (&Edge{Source: "", Target: "b"}).Validate())

	e := Edge{Source: "a", Target: "b", Type: RelUses}
	assert.Equal(t, 0.0, e.Weight())
	e.Properties = &EdgeProperties{Weight: 0.5}
	assert.Equal(t, 0.5, e.Weight())
	assert.Equal(t, "a|USES|b", e.Key())
}

func TestGraphData_EmptyEncodesArrays(t *testing.T) {
	data, err := json.Marshal(NewGraphData())
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"relationships":[]}`, string(data))

	g := &GraphData{}
	assert.True(t, g.IsEmpty())
	data, err = json.Marshal(g.Normalize())
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"relationships":[]}`, string(data))
}

func TestImportRequest_Coerce(t *testing.T) {
	req := ImportRequest{
		Type: "css",
		Nodes: []ImportNode{
			{ID: "a", Type: "blog"},
			{ID: "b", Type: "css_concept"},
			{ID: "c"},
		},
	}
	require.NoError(t, req.Validate())
	req.Coerce()
	for _, n := range req.Nodes {
		assert.Equal(t, "css_concept", n.Type)
	}

	untyped := ImportRequest{Nodes: []ImportNode{{ID: "a", Type: "blog"}}}
	untyped.Coerce()
	assert.Equal(t, "blog", untyped.Nodes[0].Type)

	assert.Error(t, (&ImportRequest{Type: "two words"}).Validate())
	assert.Equal(t, "javascript_concept", ConceptType(" JavaScript "))
}
