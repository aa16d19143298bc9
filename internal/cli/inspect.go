package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Jahawk44/Sun-Research-Tree/internal/document"
	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

// NodeSummary describes one node for inspect.
type NodeSummary struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Unlocked bool    `json:"unlocked"`
	// Ready is true for a locked node whose prerequisites are all unlocked.
	Ready    bool    `json:"ready"`
	Blockers []int64 `json:"blockers,omitempty"`
	HasImage bool    `json:"has_image"`
}

// InspectResult is the output of inspect.
type InspectResult struct {
	Hash        string        `json:"hash"`
	Nodes       []NodeSummary `json:"nodes"`
	Connections int           `json:"connections"`
	Unlocked    int           `json:"unlocked"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <document>",
		Short: "Show nodes and their unlock state",
		Long: `List every node with its position and unlock state.

A locked node is ready when every node with a connection into it is
unlocked; otherwise its blockers are listed. The hash identifies the
document content and matches the hash stored with library revisions.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := opts.openDocument(path)
	if err != nil {
		return formatter.Fail(err)
	}
	defer sess.Close()

	result, err := inspect(sess.Store())
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s %s\n", dim.Sprint("hash"), result.Hash)
	fmt.Fprintf(w, "%d nodes (%d unlocked), %d connections\n\n", len(result.Nodes), result.Unlocked, result.Connections)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPOSITION\tSTATE")
	for _, n := range result.Nodes {
		fmt.Fprintf(tw, "%d\t%s\t%g,%g\t%s\n", n.ID, n.Title, n.X, n.Y, describeState(n))
	}
	return tw.Flush()
}

func inspect(store *tree.Store) (InspectResult, error) {
	hash, err := document.Hash(document.Serialize(store))
	if err != nil {
		return InspectResult{}, err
	}

	result := InspectResult{
		Hash:        hash,
		Nodes:       make([]NodeSummary, 0, store.Len()),
		Connections: store.EdgeLen(),
	}
	for n := range store.Nodes() {
		summary := NodeSummary{
			ID:       int64(n.ID),
			Title:    n.Title,
			X:        n.Position.X,
			Y:        n.Position.Y,
			Unlocked: n.Unlocked,
			HasImage: n.Image != nil,
		}
		if n.Unlocked {
			result.Unlocked++
		} else {
			blockers, err := store.Blockers(n.ID)
			if err != nil {
				return InspectResult{}, err
			}
			summary.Ready = len(blockers) == 0
			for _, b := range blockers {
				summary.Blockers = append(summary.Blockers, int64(b))
			}
		}
		result.Nodes = append(result.Nodes, summary)
	}
	return result, nil
}

func describeState(n NodeSummary) string {
	switch {
	case n.Unlocked:
		return good.Sprint("unlocked")
	case n.Ready:
		return "ready"
	default:
		return fmt.Sprintf("locked (needs %v)", n.Blockers)
	}
}
