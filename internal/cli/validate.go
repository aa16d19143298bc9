package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Jahawk44/Sun-Research-Tree/internal/document"
	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool             `json:"valid"`
	Nodes       int              `json:"nodes"`
	Connections int              `json:"connections"`
	Dropped     int              `json:"dropped,omitempty"`
	Issues      []document.Issue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document>",
		Short: "Check a tree document without changing it",
		Long: `Check a research tree document.

JSON documents are first checked against the document schema, which reports
every problem with its line and column. The document is then decoded and
rebuilt as a tree, which catches duplicate ids, self-loops and connections
to missing nodes (subject to document.dangling in the config).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, doc, readErr := readDocumentFile(path)
	if data == nil {
		return formatter.Fail(readErr)
	}

	if !isYAML(path) {
		if issues := document.Lint(data); len(issues) > 0 {
			formatter.VerboseLog("schema check found %d issue(s)", len(issues))
			return outputValidationIssues(formatter, issues)
		}
	}
	if readErr != nil {
		return formatter.Fail(readErr)
	}

	policy, err := opts.config().DanglingPolicy()
	if err != nil {
		return formatter.Fail(err)
	}
	dropped := 0
	store, err := document.Deserialize(doc,
		document.WithDanglingPolicy(policy),
		document.WithLogger(opts.logger()),
		document.WithDroppedHook(func(c document.ConnectionRecord) {
			dropped++
			formatter.VerboseLog("dropped connection %d -> %d", c.FromID, c.ToID)
		}),
	)
	if err != nil {
		return formatter.Fail(err)
	}

	result := ValidationResult{
		Valid:       true,
		Nodes:       store.Len(),
		Connections: store.EdgeLen(),
		Dropped:     dropped,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	msg := fmt.Sprintf("%s is valid (%d nodes, %d connections)", path, result.Nodes, result.Connections)
	if dropped > 0 {
		msg += fmt.Sprintf(", %d dangling connection(s) dropped", dropped)
	}
	return formatter.Success(msg)
}

// outputValidationIssues reports schema issues. Issues are validation
// failures (exit code 1).
func outputValidationIssues(formatter *OutputFormatter, issues []document.Issue) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))

	if formatter.Format == "json" {
		err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Issues: issues},
			Error: &CLIError{
				Code:    string(tree.CodeMalformedDocument),
				Message: issues[0].String(),
			},
		})
		if err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintf(formatter.Writer, "%s Validation failed\n\n", bad.Sprint("✗"))
	for _, issue := range issues {
		printIssue(formatter.Writer, issue)
	}
	return failure
}

func printIssue(w io.Writer, issue document.Issue) {
	if issue.Line > 0 {
		fmt.Fprintf(w, "%s\n", dim.Sprintf("line %d, column %d", issue.Line, issue.Column))
	}
	fmt.Fprintf(w, "  %s: %s\n\n", issue.Path, issue.Message)
}
