package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/segmenter/pkg/config"
	"github.com/matzehuels/segmenter/pkg/pipeline"
)

// segmentOpts holds the command-line flags for the segment command.
type segmentOpts struct {
	minSize       int      // minimum segment size, 0 keeps the config value
	exclude       []string // node names never placed in a segment
	prefix        string   // device label prefix
	candidates    []string // extra candidate ops on top of the config policy
	output        string   // segments JSON output path
	assign        string   // graph definition output with devices assigned
	browse        bool     // open the interactive segment browser
	noCache       bool     // bypass the result cache
	refresh       bool     // recompute and overwrite cached results
	dropBackEdges bool     // break cycles instead of rejecting the graph
}

// segmentCommand creates the segment command.
func (c *CLI) segmentCommand() *cobra.Command {
	var opts segmentOpts

	cmd := &cobra.Command{
		Use:   "segment [graph]",
		Short: "Partition a graph into accelerator segments",
		Long: `Partition a graph definition (JSON, YAML or TOML) into segments.

Candidate, mandatory, weak and denied ops come from the [policy] section of the
config file; --candidates adds to it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			applySegmentFlags(cmd, cfg, &opts)
			return c.runSegment(cmd.Context(), args[0], cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.minSize, "min-size", 0, "minimum number of nodes per segment (default from config)")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "node names to keep out of segments (comma-separated)")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "device label prefix (default from config)")
	cmd.Flags().StringSliceVar(&opts.candidates, "candidates", nil, "additional candidate ops (comma-separated)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write segments as JSON to this file")
	cmd.Flags().StringVar(&opts.assign, "assign", "", "write the graph with segment devices assigned to this file")
	cmd.Flags().BoolVar(&opts.browse, "browse", false, "browse segments interactively")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if cached")
	cmd.Flags().BoolVar(&opts.dropBackEdges, "drop-back-edges", false, "drop loop back edges instead of rejecting cyclic graphs")

	return cmd
}

// applySegmentFlags overrides the config with the flags the user set.
func applySegmentFlags(cmd *cobra.Command, cfg *config.Config, opts *segmentOpts) {
	flags := cmd.Flags()
	if flags.Changed("min-size") {
		cfg.Segment.MinimumSegmentSize = opts.minSize
	}
	if flags.Changed("exclude") {
		cfg.Segment.ExcludeNodes = opts.exclude
	}
	if flags.Changed("prefix") {
		cfg.Segment.DevicePrefix = opts.prefix
	}
	if len(opts.candidates) > 0 {
		cfg.Policy.CandidateOps = append(cfg.Policy.CandidateOps, opts.candidates...)
	}
}

func (c *CLI) runSegment(ctx context.Context, path string, cfg *config.Config, opts segmentOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

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
	popts.Refresh = opts.refresh
	popts.DropBackEdges = opts.dropBackEdges
	popts.Formats = []string{pipeline.FormatJSON}
	if opts.assign != "" {
		popts.Formats = append(popts.Formats, pipeline.FormatGraph)
	}

	spinner := newSpinnerWithContext(ctx, "Segmenting "+def.Name+"...")
	spinner.Start()
	result, err := runner.Execute(ctx, popts)
	if err != nil {
		spinner.StopWithError("Segmentation failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Segmented %s", def.Name))

	printSegmentSummary(result, popts.MinimumSegmentSize)
	printRunStats(result.Stats, result.Stats.SegmentTime, result.CacheInfo.SegmentHit)

	if len(result.Segments) > 0 && !opts.browse {
		printNewline()
		fmt.Fprintln(stdout, segmentTable(result.Segments))
	}

	if opts.output != "" {
		if err := writeFile(opts.output, result.Artifacts[pipeline.FormatJSON]); err != nil {
			return err
		}
	}
	if opts.assign != "" {
		if err := writeFile(opts.assign, result.Artifacts[pipeline.FormatGraph]); err != nil {
			return err
		}
	}

	if opts.browse && len(result.Segments) > 0 {
		_, err := tea.NewProgram(NewSegmentBrowserModel(result.Segments), tea.WithContext(ctx)).Run()
		return err
	}
	if len(result.Segments) > 0 && !opts.browse {
		printNextStep("Browse interactively", appName+" segment "+path+" --browse")
	}
	return nil
}
