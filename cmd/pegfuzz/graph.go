package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pegfuzz/internal/analysis"
	"pegfuzz/internal/graph"
	"pegfuzz/internal/observ"
	"pegfuzz/internal/trace"
)

var graphCmd = &cobra.Command{
	Use:   "graph [flags] grammar.yaml",
	Short: "Inspect the grammar graph and its analyses",
	Long: `Graph prints the minimal height, depth and size of every grammar symbol,
the symbols that cannot be reached and the height needed to reach every node,
or the whole graph in DOT format.`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	addGraphFlags(graphCmd)
}

func addGraphFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dot", false, "print the graph in DOT format, annotated with the analyses")
}

type symbolRow struct {
	name      string
	kind      string
	height    int
	depth     int
	size      int
	reachable bool
}

func runGraph(cmd *cobra.Command, args []string) error {
	asDot, err := cmd.Flags().GetBool("dot")
	if err != nil {
		return fmt.Errorf("failed to get dot flag: %w", err)
	}

	run := trace.Begin(trace.FromContext(cmd.Context()), trace.ScopeRun, "graph", 0)
	defer run.End("")
	timer := observ.NewTimer()

	_, g, err := loadGrammar(cmd, timer, run, args[0])
	if err != nil {
		return err
	}

	var (
		heights, depths, sizes []int
		reachable              []bool
		minMax                 int
	)
	_ = phase(cmd, timer, run, "analyses", func() (string, error) {
		heights = analysis.MinHeights(g)
		depths = analysis.MinDepths(g)
		sizes = analysis.MinSizes(g)
		reachable = analysis.Reachable(g, true)
		minMax = analysis.MinMaxHeight(g, analysis.ReachableNodes(g, heights))
		return "", nil
	})

	out := cmd.OutOrStdout()
	if asDot {
		note := func(id graph.NodeID) string {
			return fmt.Sprintf("h=%s d=%s", heightString(heights[id]), heightString(depths[id]))
		}
		if err := g.WriteDot(out, note); err != nil {
			return err
		}
		return finishTimings(cmd, timer)
	}

	var rows []symbolRow
	for id := range g.Nodes() {
		n := g.Node(id)
		if n.Kind != graph.Choice || n.Symbol == nil {
			continue
		}
		rows = append(rows, symbolRow{
			name:      n.Symbol.Name,
			kind:      n.Symbol.Kind.String(),
			height:    heights[id],
			depth:     depths[id],
			size:      sizes[id],
			reachable: reachable[id],
		})
	}
	if err := writeSymbolTable(out, rows); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nminimal height to reach every node: %s\n", heightString(minMax))
	if names := unreachableSymbols(g, reachable); len(names) > 0 {
		fmt.Fprintf(out, "unreachable symbols: %v\n", names)
	}
	return finishTimings(cmd, timer)
}

func writeSymbolTable(w io.Writer, rows []symbolRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tKIND\tMIN HEIGHT\tMIN DEPTH\tMIN SIZE\tREACHABLE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", r.name, r.kind,
			heightString(r.height), heightString(r.depth), heightString(r.size), r.reachable)
	}
	return tw.Flush()
}
