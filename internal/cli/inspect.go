package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/uvburn/pkg/classify"
	pkgio "github.com/matzehuels/uvburn/pkg/io"
	"github.com/matzehuels/uvburn/pkg/pipeline"
)

type inspectOpts struct {
	inputOpts
	json   bool   // print the JSON report instead of the summary
	output string // write the JSON report to a file
}

// inspectCommand creates the inspect command, which shows how the lock graph
// would be partitioned without writing any pipenv files.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show how uv.lock packages would be grouped",
		Long: `Show how uv.lock packages would be grouped.

Lists the packages assigned to "default" and "develop" together with the
environment markers they would carry, the orphans that would be omitted,
and the dependency edges that close a cycle.

With --json the full classified graph is printed as JSON (or written to
--output) for use by other tools.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), cmd, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the classified graph as JSON")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the JSON report to a file")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, cmd *cobra.Command, opts *inspectOpts) error {
	in, err := opts.load(ctx)
	if err != nil {
		return err
	}
	popts, err := opts.options(ctx, cmd, in)
	if err != nil {
		return err
	}

	res, err := pipeline.NewRunner(c.Logger).Classify(ctx, in, popts)
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := pkgio.ExportJSON(res, opts.output); err != nil {
			return err
		}
		printSuccess("Wrote classified graph")
		printFile(opts.output)
		return nil
	}
	if opts.json {
		return pkgio.WriteJSON(res, cmd.OutOrStdout())
	}

	printSummary(in, res)
	return nil
}

func printSummary(in pipeline.Input, res *classify.Result) {
	printTitle(in.Project.Metadata.Name)
	printKeyValue("lock", fmt.Sprintf("v%d rev %d", in.Lock.Version, in.Lock.Revision))
	printKeyValue("packages", fmt.Sprintf("%d", res.Graph.NodeCount()))
	printKeyValue("edges", fmt.Sprintf("%d", res.Graph.EdgeCount()))
	printNewline()

	printGroup(classify.GroupDefault, res.Default)
	printGroup(classify.GroupDevelop, res.Develop)

	if len(res.Orphans) > 0 {
		printWarning("%d orphan(s) would be omitted", len(res.Orphans))
		for _, p := range res.Orphans {
			printDetail("%s %s", p.Name, p.Version)
		}
	}
	if len(res.Cycles) > 0 {
		printInfo("%d dependency cycle(s)", len(res.Cycles))
		for _, e := range res.Cycles {
			printDetail("%s %s %s", e.From, iconArrow, e.To)
		}
	}
}

func printGroup(name string, members []classify.Member) {
	printInfo("%s %s", StyleHighlight.Render(name), StyleDim.Render(fmt.Sprintf("(%d)", len(members))))
	for _, m := range members {
		line := StyleValue.Render(m.Name) + " " + StyleNumber.Render(m.Package.Version)
		if m.Marker != "" {
			line += " " + StyleDim.Render("; "+m.Marker)
		}
		fmt.Println("  " + line)
	}
}
