package document

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

const lintFilename = "document.json"

// Issue is one schema violation found by Lint.
type Issue struct {
	// Path is the dotted path of the offending value, e.g. "nodes.0.x".
	Path    string `json:"path"`
	Message string `json:"message"`

	// Line and Column locate the value in the linted input; both are 0
	// when the violation has no position there (a missing field, say).
	Line   int `json:"line"`
	Column int `json:"column"`
}

// String renders the issue as "line:col: path: message".
func (i Issue) String() string {
	var b strings.Builder
	if i.Line > 0 {
		fmt.Fprintf(&b, "%d:%d: ", i.Line, i.Column)
	}
	if i.Path != "" {
		b.WriteString(i.Path)
		b.WriteString(": ")
	}
	b.WriteString(i.Message)
	return b.String()
}

// Lint checks JSON document bytes against the document schema and returns
// every violation. A nil result means the input is well-formed. Lint only
// checks shape; graph rules such as unique ids are left to Deserialize.
func Lint(data []byte) []Issue {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		// The embedded schema is fixed; this only fires on a broken build.
		panic(fmt.Sprintf("document schema: %v", err))
	}

	value := ctx.CompileBytes(data, cue.Filename(lintFilename))
	if err := value.Err(); err != nil {
		return toIssues(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Document")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return toIssues(err)
	}
	return nil
}

func toIssues(err error) []Issue {
	var issues []Issue
	seen := make(map[Issue]bool)
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		issue := Issue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		if pos, ok := inputPosition(e); ok {
			issue.Line = pos.Line()
			issue.Column = pos.Column()
		}
		if seen[issue] {
			continue
		}
		seen[issue] = true
		issues = append(issues, issue)
	}
	return issues
}

// inputPosition returns the first position of e inside the linted input.
func inputPosition(e cueerrors.Error) (token.Pos, bool) {
	for _, pos := range cueerrors.Positions(e) {
		if pos.IsValid() && pos.Filename() == lintFilename {
			return pos, true
		}
	}
	return token.NoPos, false
}
