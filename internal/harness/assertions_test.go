package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jahawk44/Sun-Research-Tree/internal/layout"
	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

// fixture builds a tree with nodes 1 and 2 joined by edge 1, node 1
// unlocked, and returns it with a matching trace.
func fixture(t *testing.T) (*tree.Store, []TraceEvent) {
	t.Helper()
	rec := &tree.Recorder{}
	s := tree.New(tree.WithListener(rec))
	a := s.AddNode(layout.Point{X: 0, Y: 0})
	b := s.AddNode(layout.Point{X: 200, Y: 0})
	_, err := s.AddEdge(a, b)
	require.NoError(t, err)
	_, err = s.Unlock(a)
	require.NoError(t, err)

	var trace []TraceEvent
	for _, c := range rec.Changes() {
		trace = append(trace, newTraceEvent(0, c))
	}
	return s, trace
}

func TestAssertTraceContains(t *testing.T) {
	s, trace := fixture(t)
	result := &Result{Trace: trace}

	assert.Empty(t, EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Kind: "edge_added"},
		{Type: AssertTraceContains, Kind: "unlock_changed", Node: 1},
	}, s))

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Kind: "unlock_changed", Node: 2},
	}, s)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "unlock_changed for node 2")
	assert.Contains(t, failures[0], "Full trace:")
}

func TestAssertTraceOrder(t *testing.T) {
	s, trace := fixture(t)
	result := &Result{Trace: trace}

	assert.Empty(t, EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceOrder, Kinds: []string{"node_added", "edge_added", "unlock_changed"}},
	}, s))

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceOrder, Kinds: []string{"unlock_changed", "edge_added"}},
	}, s)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "then no edge_added")
}

func TestAssertTraceCount(t *testing.T) {
	s, trace := fixture(t)
	result := &Result{Trace: trace}

	assert.Empty(t, EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Kind: "node_added", Count: 2},
		{Type: AssertTraceCount, Kind: "node_removed", Count: 0},
	}, s))

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Kind: "node_added", Count: 3},
	}, s)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "appears 2 time(s)")
}

func TestAssertNodeState(t *testing.T) {
	s, _ := fixture(t)
	result := &Result{}

	assert.Empty(t, EvaluateAssertions(result, []Assertion{
		{Type: AssertNodeState, Node: 2, Expect: map[string]any{
			"x": 200, "y": 0.0, "title": tree.DefaultTitle, "unlocked": false, "has_image": false,
		}},
	}, s))

	tests := []struct {
		name   string
		a      Assertion
		expect string
	}{
		{"mismatch", Assertion{Type: AssertNodeState, Node: 1, Expect: map[string]any{"unlocked": false}}, "unlocked: want false, got true"},
		{"missing node", Assertion{Type: AssertNodeState, Node: 9, Expect: map[string]any{"x": 0}}, "node not found"},
		{"unknown key", Assertion{Type: AssertNodeState, Node: 1, Expect: map[string]any{"color": "red"}}, `unknown attribute "color"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := EvaluateAssertions(result, []Assertion{tt.a}, s)
			require.Len(t, failures, 1)
			assert.Contains(t, failures[0], tt.expect)
		})
	}
}

func TestAssertNodeAbsentAndGraphSize(t *testing.T) {
	s, _ := fixture(t)
	result := &Result{}

	two, one := 2, 1
	assert.Empty(t, EvaluateAssertions(result, []Assertion{
		{Type: AssertNodeAbsent, Node: 3},
		{Type: AssertGraphSize, Nodes: &two, Edges: &one},
		{Type: AssertGraphSize, Edges: &one},
	}, s))

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertNodeAbsent, Node: 1},
		{Type: AssertGraphSize, Nodes: &one},
	}, s)
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "node 1 does not exist")
	assert.Contains(t, failures[1], "graph_size")
}
