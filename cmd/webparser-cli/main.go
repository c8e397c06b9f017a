package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/webparser/config"
	"github.com/use-agent/webparser/models"
	"github.com/use-agent/webparser/pipeline"
)

var version = "dev"

// service is the part of the pipeline the commands drive.
type service interface {
	ExtractPage(ctx context.Context, pageURL string, opts pipeline.Options) (*models.ExtractionResult, error)
	ExtractTrackingData(ctx context.Context, trackingID string) (*models.TrackingResult, error)
	TrackingIDFromURL(rawURL string) (string, error)
}

// cliOptions holds flags shared by all subcommands.
type cliOptions struct {
	format     string
	outputFile string
	timeout    time.Duration
	verbose    bool
}

func main() {
	root := newRootCmd(func() (service, error) {
		p, _, err := pipeline.Build(config.Load())
		return p, err
	})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(newService func() (service, error)) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:     "webparser-cli",
		Short:   "Extract structured data from web pages",
		Version: version,
		Long: `webparser-cli runs the extraction pipeline locally. Static pages are
fetched directly; pages that need JavaScript are rendered in headless Chromium.
Browser and timeout settings are read from the same WEBPARSER_* environment
variables as the server.`,
		Example: `  # Extract a page as JSON
  webparser-cli extract https://example.com

  # Include the main article as Markdown, write YAML to a file
  webparser-cli extract --content -f yaml -o page.yaml https://go.dev/blog

  # Capture the tracking portal's JSON for a shipment
  webparser-cli track ABC1234567
  webparser-cli track https://www.maersk.com/tracking/ABC1234567`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := render(struct{}{}, opts.format); err != nil {
				return err
			}
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "json", "Output format (json, yaml)")
	root.PersistentFlags().StringVarP(&opts.outputFile, "output", "o", "", "Output file path (default stdout)")
	root.PersistentFlags().DurationVarP(&opts.timeout, "timeout", "t", 3*time.Minute, "Overall time limit")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Log pipeline progress to stderr")

	root.AddCommand(newExtractCmd(opts, newService), newTrackCmd(opts, newService))
	return root
}

func newExtractCmd(opts *cliOptions, newService func() (service, error)) *cobra.Command {
	var includeContent bool

	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract title, meta, headings, paragraphs, links and images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return fmt.Errorf("failed to initialise pipeline: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			result, err := svc.ExtractPage(ctx, normalizeURL(args[0]), pipeline.Options{
				IncludeContent: includeContent,
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts, result)
		},
	}

	cmd.Flags().BoolVarP(&includeContent, "content", "c", false, "Include the main article as Markdown")
	return cmd
}

func newTrackCmd(opts *cliOptions, newService func() (service, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "track <url|tracking-id>",
		Short: "Capture the tracking portal's backend JSON for a shipment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return fmt.Errorf("failed to initialise pipeline: %w", err)
			}

			id := strings.TrimSpace(args[0])
			if strings.Contains(id, "://") {
				if id, err = svc.TrackingIDFromURL(id); err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			result, err := svc.ExtractTrackingData(ctx, id)
			if err != nil {
				return err
			}
			if !result.Captured {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", models.MissMessage)
			}
			return writeOutput(cmd.OutOrStdout(), opts, result)
		},
	}
}

// writeOutput renders v in the selected format to the output file or w.
func writeOutput(w io.Writer, opts *cliOptions, v any) error {
	data, err := render(v, opts.format)
	if err != nil {
		return err
	}

	if opts.outputFile != "" {
		if err := os.WriteFile(opts.outputFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Output written to: %s\n", opts.outputFile)
		return nil
	}

	_, err = w.Write(data)
	return err
}

// normalizeURL adds https:// to bare hosts.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}
