package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/pipeline"
	"blog-graph/backend/internal/queue"
	"blog-graph/backend/pkg/config"
)

func processCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "process [slug...]",
		Short: "Extract entities from blogs and write them to the graph",
		Example: "  graphctl process flexbox css-grid\n" +
			"  graphctl process --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("give blog slugs or --all, not both")
			}
			return withBackend(cmd, opts, true, func(ctx context.Context, b *backend) error {
				p := newProcessor(b)
				var results []pipeline.Result
				if all {
					var err error
					if results, err = p.ProcessAll(ctx); err != nil {
						return err
					}
				} else {
					for _, slug := range args {
						res, err := p.ProcessBlog(ctx, slug)
						if err != nil {
							results = append(results, pipeline.Result{Slug: slug, Status: pipeline.StatusError, Error: err.Error()})
							continue
						}
						results = append(results, *res)
					}
				}
				return printResults(cmd, results)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Reprocess every blog in the source")
	return cmd
}

func newProcessor(b *backend) *pipeline.Processor {
	if b.services != nil {
		return b.services.Processor(b.store, b.source)
	}
	return pipeline.NewProcessor(b.store, b.source)
}

func printResults(cmd *cobra.Command, results []pipeline.Result) error {
	out := cmd.OutOrStdout()
	Banner(out, "process")

	failed := 0
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		ok := r.Status == pipeline.StatusSuccess
		if !ok {
			failed++
		}
		rows = append(rows, []string{
			StatusIcon(ok),
			r.Slug,
			strconv.Itoa(r.Nodes),
			strconv.Itoa(r.Relationships),
			r.Error,
		})
	}
	Table(out, []string{" ", "Blog", "Nodes", "Links", "Error"}, rows)

	fmt.Fprintf(out, "\n  %d processed, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d blogs failed", failed, len(results))
	}
	return nil
}

func enqueueCmd(opts *rootOptions) *cobra.Command {
	var event string

	cmd := &cobra.Command{
		Use:   "enqueue <slug...>",
		Short: "Queue blogs for the processing worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, false, func(ctx context.Context, b *backend) error {
				if b.services == nil {
					return errors.New("no processing queue configured")
				}
				pub, err := b.services.Publisher()
				if err != nil {
					return err
				}
				for _, slug := range args {
					if err := pub.Enqueue(ctx, queue.BlogEvent{Slug: slug, Event: event}); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  %s %s queued\n", StatusIcon(true), slug)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&event, "event", queue.EventUpdated, "Event kind: created or updated")
	return cmd
}

func importCmd(opts *rootOptions) *cobra.Command {
	var (
		domain  string
		replace bool
	)

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import curated nodes and relationships from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var req models.ImportRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("invalid import file: %w", err)
			}
			if cmd.Flags().Changed("type") {
				req.Type = domain
			}
			if cmd.Flags().Changed("replace") {
				req.Replace = replace
			}
			if err := req.Validate(); err != nil {
				return err
			}

			return withBackend(cmd, opts, false, func(ctx context.Context, b *backend) error {
				res, err := b.store.Import(ctx, &req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "  %s %d nodes, %d relationships imported\n",
					StatusIcon(true), res.NodesWritten, res.EdgesWritten)
				for _, s := range res.Skipped {
					fmt.Fprintf(out, "  %s %s\n", Warn.Sprint("skipped"), s.Error())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&domain, "type", "", "Domain of the nodes, e.g. css (types become css_concept)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Clear the graph before importing")
	return cmd
}

func tagsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List blog tags present in the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, false, func(ctx context.Context, b *backend) error {
				tags, err := b.store.Tags(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(tags) == 0 {
					fmt.Fprintln(out, "  No tags yet. Run `graphctl process --all` first.")
					return nil
				}
				for _, t := range tags {
					fmt.Fprintf(out, "  %s\n", Info.Sprint(t))
				}
				return nil
			})
		},
	}
}

func statsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count nodes and relationships per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, false, func(ctx context.Context, b *backend) error {
				data, err := b.store.QueryAll(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				Banner(out, "graph statistics")
				fmt.Fprintf(out, "  Nodes:          %d\n", len(data.Nodes))
				fmt.Fprintf(out, "  Relationships:  %d\n\n", len(data.Relationships))

				type counts struct{ blogs, entities int }
				byCategory := map[string]*counts{}
				for _, n := range data.Nodes {
					cat := n.Properties.Category
					if cat == "" {
						cat = models.DefaultCategory
					}
					c := byCategory[cat]
					if c == nil {
						c = &counts{}
						byCategory[cat] = c
					}
					if n.Type == models.NodeTypeBlog {
						c.blogs++
					} else {
						c.entities++
					}
				}
				cats := make([]string, 0, len(byCategory))
				for cat := range byCategory {
					cats = append(cats, cat)
				}
				sort.Strings(cats)

				rows := make([][]string, 0, len(cats))
				for _, cat := range cats {
					c := byCategory[cat]
					rows = append(rows, []string{cat, strconv.Itoa(c.blogs), strconv.Itoa(c.entities)})
				}
				Table(out, []string{"Category", "Blogs", "Entities"}, rows)
				return nil
			})
		},
	}
}

func removeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <slug>",
		Short: "Remove a blog and the entities only it contained",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, false, func(ctx context.Context, b *backend) error {
				res, err := b.store.RemoveBlog(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s removed %s (%d entities, %d co-occurrence links)\n",
					StatusIcon(true), res.BlogID, res.EntitiesRemoved, res.EdgesRemoved)
				return nil
			})
		},
	}
}

func clearCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every graph node and relationship",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the graph without --yes")
			}
			return withBackend(cmd, opts, false, func(ctx context.Context, b *backend) error {
				if err := b.store.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s graph cleared\n", StatusIcon(true))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

// tuning returns the backend's tuning, or the built-in one
func (b *backend) tuning() config.Tuning {
	if b.cfg != nil {
		return b.cfg.Tuning
	}
	return config.DefaultTuning()
}
