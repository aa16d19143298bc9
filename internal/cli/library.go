package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Jahawk44/Sun-Research-Tree/internal/document"
	"github.com/Jahawk44/Sun-Research-Tree/internal/store"
)

// LibraryOptions holds flags for commands that use the revision library.
type LibraryOptions struct {
	*RootOptions
	DBPath string // overrides store.path from the config
}

// SaveResult is the output of save.
type SaveResult struct {
	Revision store.Revision `json:"revision"`
	Created  bool           `json:"created"`
}

// CheckoutResult is the output of checkout.
type CheckoutResult struct {
	Revision store.Revision `json:"revision"`
	Path     string         `json:"path"`
}

// HistoryResult is the output of history. Trees is set when no tree name
// was given; Revisions otherwise.
type HistoryResult struct {
	Tree      string           `json:"tree,omitempty"`
	Trees     []string         `json:"trees,omitempty"`
	Revisions []store.Revision `json:"revisions,omitempty"`
}

func addDBFlag(cmd *cobra.Command, opts *LibraryOptions) {
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "library database (default from config store.path)")
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LibraryOptions{RootOptions: rootOpts}
	var treeName, message string

	cmd := &cobra.Command{
		Use:   "save <document>",
		Short: "Archive a document as a new library revision",
		Long: `Store the document as the next revision of a tree in the library.

The tree name defaults to the document file name without its extension.
Saving content identical to the tree's latest revision stores nothing and
reports the existing revision.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(opts, args[0], treeName, message, cmd)
		},
	}
	addDBFlag(cmd, opts)
	cmd.Flags().StringVarP(&treeName, "tree", "t", "", "tree name (default: file name)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "revision message")
	return cmd
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LibraryOptions{RootOptions: rootOpts}
	var revision, output string

	cmd := &cobra.Command{
		Use:   "checkout <tree>",
		Short: "Write a library revision to a document file",
		Long: `Write a stored revision of a tree to a document file.

The latest revision is used unless --revision names one. The output format
follows the file extension (.json, .yaml, .yml).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = document.DefaultFileName
			}
			return runCheckout(opts, args[0], revision, output, cmd)
		},
	}
	addDBFlag(cmd, opts)
	cmd.Flags().StringVarP(&revision, "revision", "r", "", "revision id (default: latest)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default "+document.DefaultFileName+")")
	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LibraryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [tree]",
		Short: "List stored trees or a tree's revisions",
		Long: `Without arguments, list the trees in the library. With a tree name,
list its revisions oldest first.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runHistory(opts, name, cmd)
		},
	}
	addDBFlag(cmd, opts)
	return cmd
}

// openLibrary opens the revision library, creating its directory if
// needed.
func (o *LibraryOptions) openLibrary() (*store.Store, error) {
	path := o.DBPath
	if path == "" {
		path = o.config().Store.Path
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create library directory: %w", err)
	}
	o.logger().Debug("opening library", "path", path)
	return store.Open(path, store.WithLogger(o.logger()))
}

func runSave(opts *LibraryOptions, path, treeName, message string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if treeName == "" {
		base := filepath.Base(path)
		treeName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	// Round-trip through a session so only documents that load are archived.
	sess, err := opts.openDocument(path)
	if err != nil {
		return formatter.Fail(err)
	}
	doc := sess.Save()
	sess.Close()

	lib, err := opts.openLibrary()
	if err != nil {
		return formatter.Fail(err)
	}
	defer lib.Close()

	rev, created, err := lib.SaveRevision(cmd.Context(), treeName, doc, message)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(SaveResult{Revision: rev, Created: created})
	}
	if !created {
		return formatter.Success(fmt.Sprintf("%s unchanged since revision %d (%s)", treeName, rev.Seq, rev.ID))
	}
	return formatter.Success(fmt.Sprintf("saved %s revision %d (%s)", treeName, rev.Seq, rev.ID))
}

func runCheckout(opts *LibraryOptions, treeName, revision, output string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	lib, err := opts.openLibrary()
	if err != nil {
		return formatter.Fail(err)
	}
	defer lib.Close()

	doc, rev, err := lib.LoadRevision(cmd.Context(), treeName, revision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("no revision %q of tree %q", revision, treeName)
			if revision == "" {
				err = fmt.Errorf("tree %q has no revisions", treeName)
			}
		}
		return formatter.Fail(err)
	}

	if err := writeDocumentFile(output, doc); err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(CheckoutResult{Revision: rev, Path: output})
	}
	return formatter.Success(fmt.Sprintf("wrote %s revision %d to %s", treeName, rev.Seq, output))
}

func runHistory(opts *LibraryOptions, treeName string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	lib, err := opts.openLibrary()
	if err != nil {
		return formatter.Fail(err)
	}
	defer lib.Close()

	if treeName == "" {
		trees, err := lib.ListTrees(cmd.Context())
		if err != nil {
			return formatter.Fail(err)
		}
		if formatter.Format == "json" {
			return formatter.Success(HistoryResult{Trees: trees})
		}
		if len(trees) == 0 {
			fmt.Fprintln(formatter.Writer, "No trees stored.")
			return nil
		}
		for _, name := range trees {
			fmt.Fprintln(formatter.Writer, name)
		}
		return nil
	}

	revs, err := lib.ListRevisions(cmd.Context(), treeName)
	if err != nil {
		return formatter.Fail(err)
	}
	if formatter.Format == "json" {
		return formatter.Success(HistoryResult{Tree: treeName, Revisions: revs})
	}
	if len(revs) == 0 {
		fmt.Fprintf(formatter.Writer, "No revisions of %s.\n", treeName)
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tNODES\tCONNECTIONS\tMESSAGE")
	for _, r := range revs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", r.Seq, r.ID, r.Nodes, r.Connections, r.Message)
	}
	return tw.Flush()
}
