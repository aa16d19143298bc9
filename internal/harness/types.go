package harness

import (
	"github.com/Jahawk44/Sun-Research-Tree/internal/document"
	"github.com/Jahawk44/Sun-Research-Tree/internal/layout"
	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

// TraceEvent is one recorded change, tagged with the flow step that
// produced it. Only the fields relevant to Kind are set.
type TraceEvent struct {
	Step     int           `json:"step"`
	Seq      int64         `json:"seq"`
	Kind     string        `json:"kind"`
	Node     int64         `json:"node,omitempty"`
	Edge     int64         `json:"edge,omitempty"`
	From     int64         `json:"from,omitempty"`
	To       int64         `json:"to,omitempty"`
	Position *layout.Point `json:"position,omitempty"`
	Path     string        `json:"path,omitempty"`
	Fields   []string      `json:"fields,omitempty"`
	Unlocked *bool         `json:"unlocked,omitempty"`
	Pulse    bool          `json:"pulse,omitempty"`
}

func newTraceEvent(step int, c tree.Change) TraceEvent {
	ev := TraceEvent{
		Step: step,
		Seq:  c.Seq,
		Kind: c.Kind.String(),
		Node: int64(c.NodeID),
		Edge: int64(c.EdgeID),
		From: int64(c.From),
		To:   int64(c.To),
	}
	switch c.Kind {
	case tree.NodeAdded, tree.NodeMoved:
		pos := c.Position
		ev.Position = &pos
	case tree.EdgeAdded, tree.EdgeGeometryChanged:
		ev.Path = c.Curve.Path()
	case tree.NodeUpdated:
		for _, f := range c.Fields {
			ev.Fields = append(ev.Fields, string(f))
		}
	case tree.UnlockChanged:
		unlocked := c.Unlocked
		ev.Unlocked = &unlocked
		ev.Pulse = c.Pulse
	}
	return ev
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists every change in delivery order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`

	// Final is the tree as it stood after the last step.
	Final document.Document `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
