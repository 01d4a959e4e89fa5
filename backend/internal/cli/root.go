// Package cli implements graphctl, the operator command line for the
// knowledge graph: processing, inspection, rendering and snapshots.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"blog-graph/backend/internal/blogsource"
	"blog-graph/backend/internal/graph"
	"blog-graph/backend/internal/services"
	"blog-graph/backend/pkg/config"
	"blog-graph/backend/pkg/logger"
)

var version = "0.3.0"

// backend is what the commands operate on
type backend struct {
	cfg      *config.Config
	services *services.ServiceManager
	store    graph.Store
	source   blogsource.Source
}

func (b *backend) close(ctx context.Context) {
	if b.services != nil {
		_ = b.services.StopAll(ctx)
	}
}

// openBackend connects to Neo4j and, when withSource is set, the blog table.
// Tests replace it with an in-memory backend.
var openBackend = func(ctx context.Context, withSource bool) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	sm := services.NewServiceManager(cfg, logger.Named("services"))

	store, err := sm.StartGraphStore(ctx)
	if err != nil {
		_ = sm.StopAll(ctx)
		return nil, err
	}
	b := &backend{cfg: cfg, services: sm, store: store, source: blogsource.NewStaticSource()}
	if withSource {
		src, err := sm.StartBlogSource(ctx)
		if err != nil {
			b.close(ctx)
			return nil, err
		}
		b.source = src
	}
	return b, nil
}

type rootOptions struct {
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "graphctl",
		Short: "graphctl manages the blog knowledge graph",
		Long: Brand.Sprint("graphctl") + " builds, inspects and renders the blog knowledge graph\n" +
			Subtle.Sprint("Process blogs into Neo4j, list tags, export SVG/HTML views and publish snapshots"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				logger.Logger = zap.NewNop()
				return nil
			}
			return logger.Init("development")
		},
	}
	root.SetVersionTemplate("graphctl {{ .Version }}\n")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Abort after this long")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output")

	root.AddCommand(
		processCmd(opts),
		enqueueCmd(opts),
		importCmd(opts),
		fetchDocsCmd(opts),
		tagsCmd(opts),
		statsCmd(opts),
		removeCmd(opts),
		clearCmd(opts),
		renderCmd(opts),
		snapshotCmd(opts),
	)
	return root
}

// withBackend runs fn against an open backend under the --timeout deadline
func withBackend(cmd *cobra.Command, opts *rootOptions, withSource bool, fn func(ctx context.Context, b *backend) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	b, err := openBackend(ctx, withSource)
	if err != nil {
		return fmt.Errorf("failed to open graph: %w", err)
	}
	defer b.close(context.Background())

	if err := fn(ctx, b); err != nil {
		logger.Get().Debug("Command failed", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), Bad.Sprint("graphctl: ")+err.Error())
		return err
	}
	return nil
}
