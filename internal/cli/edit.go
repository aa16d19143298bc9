package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Jahawk44/Sun-Research-Tree/internal/session"
	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

// EditOptions holds flags shared by commands that rewrite a document.
type EditOptions struct {
	*RootOptions
	DryRun bool // report the outcome without writing the document
}

// UnlockResult is the output of unlock and lock.
type UnlockResult struct {
	Node     int64 `json:"node"`
	Unlocked bool  `json:"unlocked"`
	Changed  bool  `json:"changed"`
}

// AlignResult is the output of align.
type AlignResult struct {
	GridSize float64 `json:"grid_size"`
	Moved    int     `json:"moved"`
	Nodes    int     `json:"nodes"`
}

// NewUnlockCommand creates the unlock command.
func NewUnlockCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "unlock <document> <node-id>",
		Short: "Unlock a node whose prerequisites are unlocked",
		Long: `Unlock a node and write the document back.

Only the node's immediate prerequisites are checked. When one of them is
still locked nothing changes and the command exits with code 1, listing
the blocking nodes. Unlocking an unlocked node succeeds without changes.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnlock(opts, args[0], args[1], cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "check without writing the document")
	return cmd
}

// NewLockCommand creates the lock command.
func NewLockCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lock <document> <node-id>",
		Short: "Lock a node",
		Long: `Lock a node and write the document back.

Locking never cascades: nodes that depend on it keep their state.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLock(opts, args[0], args[1], cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "check without writing the document")
	return cmd
}

// NewAlignCommand creates the align command.
func NewAlignCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}
	var grid float64

	cmd := &cobra.Command{
		Use:   "align <document>",
		Short: "Snap every node to the grid",
		Long: `Move every node to the nearest grid point and write the document back.

The grid size comes from layout.grid_size in the config unless --grid is
given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if grid < 0 {
				return opts.formatter(cmd).Fail(fmt.Errorf("--grid must not be negative, got %v", grid))
			}
			return runAlign(opts, args[0], grid, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report without writing the document")
	cmd.Flags().Float64Var(&grid, "grid", 0, "grid size (default from config)")
	return cmd
}

func parseNodeID(s string) (tree.NodeID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q", s)
	}
	return tree.NodeID(id), nil
}

func runUnlock(opts *EditOptions, path, idArg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	id, err := parseNodeID(idArg)
	if err != nil {
		return formatter.Fail(err)
	}
	sess, err := opts.openDocument(path)
	if err != nil {
		return formatter.Fail(err)
	}
	defer sess.Close()

	pulse, err := sess.AttemptUnlock(id)
	if err != nil {
		if tree.IsPrerequisitesNotMet(err) {
			blockers, _ := sess.Store().Blockers(id)
			if werr := formatter.Error(string(tree.CodeOf(err)), err.Error(), map[string]any{"blockers": blockers}); werr != nil {
				return werr
			}
			return WrapExitError(ExitFailure, string(tree.CodeOf(err)), err)
		}
		return formatter.Fail(err)
	}

	if pulse {
		if err := opts.write(path, sess); err != nil {
			return formatter.Fail(err)
		}
	}

	result := UnlockResult{Node: int64(id), Unlocked: true, Changed: pulse}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if !pulse {
		return formatter.Success(fmt.Sprintf("node %d is already unlocked", id))
	}
	return formatter.Success(fmt.Sprintf("node %d unlocked", id))
}

func runLock(opts *EditOptions, path, idArg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	id, err := parseNodeID(idArg)
	if err != nil {
		return formatter.Fail(err)
	}
	sess, err := opts.openDocument(path)
	if err != nil {
		return formatter.Fail(err)
	}
	defer sess.Close()

	before, ok := sess.Store().Node(id)
	if err := sess.Lock(id); err != nil {
		return formatter.Fail(err)
	}
	changed := ok && before.Unlocked

	if changed {
		if err := opts.write(path, sess); err != nil {
			return formatter.Fail(err)
		}
	}

	result := UnlockResult{Node: int64(id), Unlocked: false, Changed: changed}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if !changed {
		return formatter.Success(fmt.Sprintf("node %d is already locked", id))
	}
	return formatter.Success(fmt.Sprintf("node %d locked", id))
}

func runAlign(opts *EditOptions, path string, grid float64, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var extra []session.Option
	if grid > 0 {
		extra = append(extra, session.WithGridSize(grid))
	} else {
		grid = opts.config().Layout.GridSize
	}
	sess, err := opts.openDocument(path, extra...)
	if err != nil {
		return formatter.Fail(err)
	}
	defer sess.Close()

	store := sess.Store()
	nodes := slices.Collect(store.Nodes())
	sess.SetAlign(true)

	moved := 0
	for _, n := range nodes {
		if sess.Snap(n.Position) == n.Position {
			continue
		}
		if err := sess.MoveNode(n.ID, n.Position); err != nil {
			return formatter.Fail(err)
		}
		moved++
		opts.logger().Debug("node snapped", "node", n.ID, "from", n.Position)
	}

	if moved > 0 {
		if err := opts.write(path, sess); err != nil {
			return formatter.Fail(err)
		}
	}

	result := AlignResult{GridSize: grid, Moved: moved, Nodes: len(nodes)}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("%d of %d node(s) moved to the %g grid", moved, len(nodes), grid))
}

// write saves the session back to path unless this is a dry run.
func (o *EditOptions) write(path string, sess *session.Session) error {
	if o.DryRun {
		o.logger().Info("dry run, document not written", "path", path)
		return nil
	}
	return writeDocumentFile(path, sess.Save())
}
