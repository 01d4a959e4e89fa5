package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"blog-graph/backend/internal/mdndocs"
	"blog-graph/backend/pkg/logger"
)

func fetchDocsCmd(opts *rootOptions) *cobra.Command {
	var (
		domain   string
		output   string
		locale   string
		baseURL  string
		delay    time.Duration
		doImport bool
		replace  bool
	)

	cmd := &cobra.Command{
		Use:   "fetch-docs --type css|html",
		Short: "Collect MDN reference pages as concept nodes for import",
		Long: "fetch-docs searches MDN for the domain's keywords, keeps one hit per page,\n" +
			"drops pages outside the domain and writes an import file.\n" +
			"With --import the nodes go straight into the graph.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := mdndocs.ProfileFor(domain)
			if err != nil {
				return err
			}
			if replace && !doImport {
				return fmt.Errorf("--replace only applies with --import")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			client := mdndocs.NewClient(logger.Named("mdn"),
				mdndocs.WithBaseURL(baseURL),
				mdndocs.WithLocale(locale),
				mdndocs.WithDelay(delay),
			)
			docs, err := client.Collect(ctx, profile)
			if err != nil {
				return err
			}
			req := client.ImportRequest(profile, docs)

			if doImport {
				req.Replace = replace
				return withBackend(cmd, opts, false, func(ctx context.Context, b *backend) error {
					res, err := b.store.Import(ctx, req)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  %s %d %s pages imported, %d relationships\n",
						StatusIcon(true), res.NodesWritten, profile.Domain, res.EdgesWritten)
					return nil
				})
			}

			if output == "" || output == "-" {
				return writeImportFile(cmd.OutOrStdout(), req)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := writeImportFile(f, req); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s %d pages written to %s\n", StatusIcon(true), len(req.Nodes), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "type", "", "Domain to collect: css or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Import file to write (default stdout)")
	cmd.Flags().StringVar(&locale, "locale", mdndocs.DefaultLocale, "MDN locale")
	cmd.Flags().StringVar(&baseURL, "api", mdndocs.DefaultBaseURL, "MDN API root")
	cmd.Flags().DurationVar(&delay, "delay", time.Second, "Pause between searches")
	cmd.Flags().BoolVar(&doImport, "import", false, "Import into the graph instead of writing a file")
	cmd.Flags().BoolVar(&replace, "replace", false, "Clear the graph before importing")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func writeImportFile(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
