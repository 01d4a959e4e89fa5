// Package snapshot builds static graph artefacts and publishes them to
// S3-compatible storage.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/render"
	"blog-graph/backend/pkg/config"
	"blog-graph/backend/pkg/logger"
)

// Artifact file names
const (
	FileJSON = "graph.json"
	FileSVG  = "graph.svg"
	FileHTML = "graph.html"
)

var contentTypes = map[string]string{
	FileJSON: "application/json",
	FileSVG:  "image/svg+xml",
	FileHTML: "text/html; charset=utf-8",
}

// Artifacts holds the rendered files of one snapshot
type Artifacts struct {
	Scope string
	Files map[string][]byte
	Nodes int
	Edges int
}

// Build renders the sampled graph as JSON, SVG and HTML
func Build(data *models.GraphData, scope string, settings render.Settings, title string) (*Artifacts, error) {
	sim, res, err := render.Prepare(data, scope, settings)
	if err != nil {
		return nil, err
	}

	sampled := models.NewGraphData()
	sampled.Nodes = append(sampled.Nodes, res.Nodes...)
	sampled.Relationships = append(sampled.Relationships, res.Edges...)
	graphJSON, err := json.MarshalIndent(sampled, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}

	var svgBuf bytes.Buffer
	svgOpts := render.DefaultSVGOptions()
	svgOpts.Title = title
	if err := render.SVG(&svgBuf, sim, svgOpts); err != nil {
		return nil, fmt.Errorf("failed to render svg: %w", err)
	}

	var htmlBuf bytes.Buffer
	htmlOpts := render.DefaultHTMLOptions()
	htmlOpts.Title = title
	if err := render.HTML(&htmlBuf, sim, htmlOpts); err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}

	return &Artifacts{
		Scope: scope,
		Files: map[string][]byte{
			FileJSON: graphJSON,
			FileSVG:  svgBuf.Bytes(),
			FileHTML: htmlBuf.Bytes(),
		},
		Nodes: len(res.Nodes),
		Edges: len(res.Edges),
	}, nil
}

// WriteDir stores the artefacts as plain files under dir
func (a *Artifacts) WriteDir(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	var written []string
	for _, name := range []string{FileJSON, FileSVG, FileHTML} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, a.Files[name], 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", p, err)
		}
		written = append(written, p)
	}
	return written, nil
}

// ObjectPutter is the part of the S3 client the publisher needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds a path-style client for any S3-compatible endpoint
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSEndpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.AWSEndpoint))
	}
	if cfg.AWSAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKey,
			cfg.AWSSecretKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// Publisher uploads artefacts under <prefix>/<timestamp>/ and <prefix>/latest/
type Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// NewPublisher creates a Publisher for one bucket
func NewPublisher(client ObjectPutter, bucket, prefix string) *Publisher {
	if prefix == "" {
		prefix = "graph"
	}
	return &Publisher{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
		logger: logger.Named("snapshot"),
	}
}

// Publish uploads every artefact and returns the object keys
func (p *Publisher) Publish(ctx context.Context, a *Artifacts) ([]string, error) {
	stamp := p.now().UTC().Format("20060102T150405Z")
	var keys []string
	for _, dir := range []string{stamp, "latest"} {
		for _, name := range []string{FileJSON, FileSVG, FileHTML} {
			key := path.Join(p.prefix, dir, name)
			_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
				Bucket:      aws.String(p.bucket),
				Key:         aws.String(key),
				Body:        bytes.NewReader(a.Files[name]),
				ContentType: aws.String(contentTypes[name]),
			})
			if err != nil {
				return keys, fmt.Errorf("failed to upload %s to S3: %w", key, err)
			}
			keys = append(keys, key)
		}
	}

	p.logger.Info("Snapshot published",
		zap.String("bucket", p.bucket),
		zap.String("scope", a.Scope),
		zap.String("stamp", stamp),
		zap.Int("nodes", a.Nodes),
		zap.Int("edges", a.Edges),
	)
	return keys, nil
}
