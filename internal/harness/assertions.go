package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

// TreeState is the part of a tree that assertions inspect. *tree.Store
// implements it.
type TreeState interface {
	Node(id tree.NodeID) (tree.Node, bool)
	Len() int
	EdgeLen() int
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d %s%s\n", ev.Seq, ev.Step, ev.Kind, describeSubject(ev))
		}
	}
	return buf.String()
}

func describeSubject(ev TraceEvent) string {
	switch {
	case ev.Edge != 0:
		return fmt.Sprintf(" edge=%d", ev.Edge)
	case ev.Node != 0:
		return fmt.Sprintf(" node=%d", ev.Node)
	default:
		return ""
	}
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, state TreeState) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result.Trace, a, state); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(trace []TraceEvent, a Assertion, state TreeState) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(trace, a)
	case AssertTraceCount:
		return assertTraceCount(trace, a)
	case AssertNodeState:
		return assertNodeState(state, a)
	case AssertNodeAbsent:
		return assertNodeAbsent(state, a)
	case AssertGraphSize:
		return assertGraphSize(state, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks for a change of the given kind, optionally for
// one node.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Kind == a.Kind && (a.Node == 0 || ev.Node == a.Node) {
			return nil
		}
	}
	expected := a.Kind
	if a.Node != 0 {
		expected = fmt.Sprintf("%s for node %d", a.Kind, a.Node)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the kinds occur in order. Other changes may
// come between them.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Kinds) && ev.Kind == a.Kinds[next] {
			next++
		}
	}
	if next == len(a.Kinds) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("kinds in order: %v", a.Kinds),
		Actual:   fmt.Sprintf("matched %v, then no %s", a.Kinds[:next], a.Kinds[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks the exact number of changes of a kind.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Kind == a.Kind {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s appears %d time(s)", a.Kind, a.Count),
		Actual:   fmt.Sprintf("appears %d time(s)", count),
		Trace:    trace,
	}
}

// assertNodeState compares node attributes (subset match).
func assertNodeState(state TreeState, a Assertion) error {
	n, ok := state.Node(tree.NodeID(a.Node))
	if !ok {
		return &AssertionError{
			Type:     AssertNodeState,
			Expected: fmt.Sprintf("node %d exists", a.Node),
			Actual:   "node not found",
		}
	}

	actual := map[string]any{
		"x":           n.Position.X,
		"y":           n.Position.Y,
		"title":       n.Title,
		"description": n.Description,
		"unlocked":    n.Unlocked,
		"has_image":   n.Image != nil,
		"has_cover":   n.Cover != nil,
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, k := range keys {
		got, known := actual[k]
		if !known {
			return fmt.Errorf("node_state: unknown attribute %q", k)
		}
		if !valuesEqual(a.Expect[k], got) {
			mismatches = append(mismatches, fmt.Sprintf("%s: want %v, got %v", k, a.Expect[k], got))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNodeState,
		Expected: fmt.Sprintf("node %d with %v", a.Node, a.Expect),
		Actual:   strings.Join(mismatches, "; "),
	}
}

func assertNodeAbsent(state TreeState, a Assertion) error {
	if _, ok := state.Node(tree.NodeID(a.Node)); !ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertNodeAbsent,
		Expected: fmt.Sprintf("node %d does not exist", a.Node),
		Actual:   "node found",
	}
}

// assertGraphSize checks node and edge totals.
func assertGraphSize(state TreeState, a Assertion) error {
	var mismatches []string
	if a.Nodes != nil && *a.Nodes != state.Len() {
		mismatches = append(mismatches, fmt.Sprintf("nodes: want %d, got %d", *a.Nodes, state.Len()))
	}
	if a.Edges != nil && *a.Edges != state.EdgeLen() {
		mismatches = append(mismatches, fmt.Sprintf("edges: want %d, got %d", *a.Edges, state.EdgeLen()))
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertGraphSize,
		Expected: "graph size",
		Actual:   strings.Join(mismatches, "; "),
	}
}

// valuesEqual compares a YAML-decoded expectation with an actual value.
// Numbers compare by value regardless of int/float representation.
func valuesEqual(expected, actual any) bool {
	ef, eNum := toFloat(expected)
	af, aNum := toFloat(actual)
	if eNum && aNum {
		return ef == af
	}
	return expected == actual
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
