package snapshot

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/render"
	apperrors "blog-graph/backend/pkg/errors"
)

type fakeBucket struct {
	objects map[string][]byte
	types   map[string]string
	failOn  string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *fakeBucket) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == b.failOn {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.objects[key] = body
	b.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func graphData() *models.GraphData {
	return &models.GraphData{
		Nodes: []models.Node{
			{ID: "blog-flexbox", Label: "Flexbox", Type: models.NodeTypeBlog},
			{ID: "blog-grid", Label: "Grid", Type: models.NodeTypeBlog},
			{ID: "entity-css", Label: "CSS", Type: models.NodeTypeEntity},
		},
		Relationships: []models.Edge{
			{Source: "blog-flexbox", Target: "entity-css", Type: models.RelContains},
			{Source: "blog-grid", Target: "entity-css", Type: models.RelContains},
		},
	}
}

func TestBuild(t *testing.T) {
	a, err := Build(graphData(), "all", render.DefaultSettings(), "Blog graph")
	require.NoError(t, err)
	assert.Equal(t, 3, a.Nodes)
	assert.Equal(t, 2, a.Edges)
	assert.Contains(t, string(a.Files[FileJSON]), `"id": "entity-css"`)
	assert.Contains(t, string(a.Files[FileSVG]), "Blog graph")
	assert.Contains(t, string(a.Files[FileHTML]), "<title>Blog graph</title>")

	_, err = Build(models.NewGraphData(), "tag:none", render.DefaultSettings(), "empty")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeEmpty))
}

func TestPublish(t *testing.T) {
	a, err := Build(graphData(), "all", render.DefaultSettings(), "Blog graph")
	require.NoError(t, err)

	bucket := newFakeBucket()
	p := NewPublisher(bucket, "graph-snapshots", "")
	p.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }

	keys, err := p.Publish(context.Background(), a)
	require.NoError(t, err)
	assert.Len(t, keys, 6)
	assert.Equal(t, a.Files[FileSVG], bucket.objects["graph/20240301T123000Z/graph.svg"])
	assert.Equal(t, a.Files[FileJSON], bucket.objects["graph/latest/graph.json"])
	assert.Equal(t, "image/svg+xml", bucket.types["graph/latest/graph.svg"])

	bucket.failOn = "graph/latest/graph.json"
	keys, err = p.Publish(context.Background(), a)
	assert.ErrorContains(t, err, "access denied")
	assert.Len(t, keys, 3, "keys uploaded before the failure are reported")
}

func TestWriteDir(t *testing.T) {
	a, err := Build(graphData(), "all", render.DefaultSettings(), "Blog graph")
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	written, err := a.WriteDir(dir)
	require.NoError(t, err)
	assert.Len(t, written, 3)

	data, err := os.ReadFile(filepath.Join(dir, FileHTML))
	require.NoError(t, err)
	assert.Equal(t, a.Files[FileHTML], data)
}
