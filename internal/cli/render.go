package cli

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/segmenter/pkg/config"
	errs "github.com/matzehuels/segmenter/pkg/errors"
	"github.com/matzehuels/segmenter/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string   // output file (single format) or base path (several)
	formats  []string // dot, svg, png, pdf
	detailed bool     // op, layer and eligibility details on nodes
	noCache  bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		opts       renderOpts
		formatsStr string
	)

	cmd := &cobra.Command{
		Use:   "render [graph]",
		Short: "Render a graph with its segments drawn as clusters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if len(opts.formats) == 0 {
				opts.formats = []string{formatFromOutput(opts.output)}
			}
			for _, f := range opts.formats {
				if f == pipeline.FormatJSON || f == pipeline.FormatGraph {
					return errs.New(errs.ErrCodeInvalidArgument, "render does not produce %q, use the segment command", f)
				}
			}
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, png, pdf (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show op, layer and eligibility on nodes")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")

	return cmd
}

// formatFromOutput infers the format from the output extension, svg by default.
func formatFromOutput(output string) string {
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	if pipeline.ValidFormats[ext] {
		return ext
	}
	return pipeline.FormatSVG
}

func (c *CLI) runRender(ctx context.Context, path string, cfg *config.Config, opts renderOpts) error {
	def, err := loadGraph(path)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := pipeline.OptionsFromConfig(cfg)
	popts.Graph = def
	popts.Source = path
	popts.Formats = opts.formats
	popts.Detailed = opts.detailed

	spinner := newSpinnerWithContext(ctx, "Rendering "+def.Name+"...")
	spinner.Start()
	result, err := runner.Execute(ctx, popts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.StopWithSuccess("Rendered " + def.Name)
	printRunStats(result.Stats, result.Stats.RenderTime, result.CacheInfo.RenderHit)

	for _, format := range opts.formats {
		if err := writeFile(outputPath(opts.output, path, format, len(opts.formats)), result.Artifacts[format]); err != nil {
			return err
		}
	}
	return nil
}

// outputPath picks the file for one format. A single format uses the output
// flag as is; several formats share its base name.
func outputPath(output, input, format string, count int) string {
	if output != "" && count == 1 {
		return output
	}
	base := output
	if base == "" {
		base = input
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + format
}
