package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/segmenter/pkg/domain"
	"github.com/matzehuels/segmenter/pkg/graphdef"
)

// domainsCommand creates the domains command.
func (c *CLI) domainsCommand() *cobra.Command {
	var (
		kind   string
		device string
		output string
	)

	cmd := &cobra.Command{
		Use:   "domains [graph]",
		Short: "List the regions delimited by domain marker nodes",
		Long: `List the regions of a graph delimited by domain marker nodes (op "Domain")
of the given kind, with the markers feeding and consuming each region.

With --device, every instruction in a region of kind "device" is pinned to that
device; nodes already pinned elsewhere are an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDomains(cmd.Context(), args[0], kind, device, output)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", domain.DeviceKind, "marker kind delimiting the regions")
	cmd.Flags().StringVar(&device, "device", "", "assign this device to every region (kind device only)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the normalized graph to this file (with --device)")

	return cmd
}

func runDomains(ctx context.Context, path, kind, device, output string) error {
	logger := loggerFromContext(ctx)

	def, err := loadGraph(path)
	if err != nil {
		return err
	}
	g, err := graphdef.Build(def, graphdef.BuildOptions{})
	if err != nil {
		return err
	}

	regions, err := domain.Regions(g, kind)
	if err != nil {
		return err
	}
	logger.Debug("found regions", "kind", kind, "count", len(regions))

	printSuccess("%d regions delimited by %q markers", len(regions), kind)
	for i, d := range regions {
		printNewline()
		printKeyValue(fmt.Sprintf("region %d", i), StyleNumber.Render(fmt.Sprintf("%d nodes", len(d.Instructions))))
		printDetail("nodes: %s", joinOrDash(d.Instructions))
		printDetail("enter: %s", joinOrDash(d.EnterDomains))
		printDetail("exit:  %s", joinOrDash(d.ExitDomains))
	}

	if device == "" {
		return nil
	}
	normalized, err := domain.Normalize(g, kind, &domain.DeviceMetadata{Device: device})
	if err != nil {
		return err
	}
	for i, d := range normalized {
		logger.Debug("normalized region", "region", i, "metadata", d.Metadata.String())
	}
	printNewline()
	printSuccess("Assigned %s to all regions", StyleHighlight.Render(device))
	if output == "" {
		return nil
	}
	if err := graphdef.Export(graphdef.FromDAG(g), output); err != nil {
		return err
	}
	printFile(output)
	return nil
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
