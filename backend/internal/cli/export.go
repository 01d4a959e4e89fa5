package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/render"
	"blog-graph/backend/internal/snapshot"
)

func fetchScope(ctx context.Context, b *backend, tag string) (*models.GraphData, string, string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		data, err := b.store.QueryAll(ctx)
		return data, "all", "Knowledge graph", err
	}
	data, err := b.store.QueryByTag(ctx, tag)
	return data, "tag:" + tag, "Knowledge graph · " + tag, err
}

func renderCmd(opts *rootOptions) *cobra.Command {
	var (
		tag    string
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Lay out the graph and write it as SVG or interactive HTML",
		Example: "  graphctl render --format svg --out graph.svg\n" +
			"  graphctl render --tag CSS --format html --out css.html",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "svg" && format != "html" {
				return fmt.Errorf("unknown format %q, want svg or html", format)
			}

			return withBackend(cmd, opts, false, func(ctx context.Context, b *backend) error {
				data, scope, title, err := fetchScope(ctx, b, tag)
				if err != nil {
					return err
				}
				t := b.tuning()
				sim, res, err := render.Prepare(data, scope, render.SettingsFromTuning(t))
				if err != nil {
					return err
				}

				var buf bytes.Buffer
				if format == "svg" {
					svgOpts := render.DefaultSVGOptions()
					svgOpts.Title = title
					err = render.SVG(&buf, sim, svgOpts)
				} else {
					htmlOpts := render.DefaultHTMLOptions()
					htmlOpts.Title = title
					if t.Viewer.SearchDebounceMs > 0 {
						htmlOpts.SearchDebounceMs = t.Viewer.SearchDebounceMs
					}
					err = render.HTML(&buf, sim, htmlOpts)
				}
				if err != nil {
					return err
				}

				if out == "" || out == "-" {
					_, err := cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s %s (%d nodes, %d links, %d nodes sampled out)\n",
					StatusIcon(true), out, len(res.Nodes), len(res.Edges), res.DroppedNodes)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Only render one blog tag")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "Output format: svg or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func snapshotCmd(opts *rootOptions) *cobra.Command {
	var (
		tag    string
		dir    string
		upload bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Build JSON, SVG and HTML artefacts and store them locally or in S3",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" && !upload {
				return errors.New("give --dir, --upload or both")
			}
			return withBackend(cmd, opts, false, func(ctx context.Context, b *backend) error {
				data, scope, title, err := fetchScope(ctx, b, tag)
				if err != nil {
					return err
				}
				a, err := snapshot.Build(data, scope, render.SettingsFromTuning(b.tuning()), title)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if dir != "" {
					written, err := a.WriteDir(dir)
					if err != nil {
						return err
					}
					for _, p := range written {
						fmt.Fprintf(w, "  %s %s\n", StatusIcon(true), filepath.ToSlash(p))
					}
				}
				if upload {
					if b.services == nil {
						return errors.New("no snapshot bucket configured")
					}
					pub, err := b.services.StartSnapshots(ctx)
					if err != nil {
						return err
					}
					keys, err := pub.Publish(ctx, a)
					for _, k := range keys {
						fmt.Fprintf(w, "  %s s3://%s/%s\n", StatusIcon(true), b.cfg.AWSBucket, k)
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Only snapshot one blog tag")
	cmd.Flags().StringVar(&dir, "dir", "", "Write the artefacts into this directory")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload the artefacts to AWS_BUCKET")
	return cmd
}
