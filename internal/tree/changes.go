package tree

import "github.com/Jahawk44/Sun-Research-Tree/internal/layout"

// ChangeKind distinguishes notifications sent to the presentation layer.
type ChangeKind int

const (
	NodeAdded ChangeKind = iota + 1
	NodeRemoved
	NodeUpdated
	NodeMoved
	EdgeAdded
	EdgeRemoved
	EdgeGeometryChanged
	UnlockChanged
)

var changeKindNames = map[ChangeKind]string{
	NodeAdded:           "node_added",
	NodeRemoved:         "node_removed",
	NodeUpdated:         "node_updated",
	NodeMoved:           "node_moved",
	EdgeAdded:           "edge_added",
	EdgeRemoved:         "edge_removed",
	EdgeGeometryChanged: "edge_geometry_changed",
	UnlockChanged:       "unlock_changed",
}

// String returns the snake_case name of the kind.
func (k ChangeKind) String() string {
	if name, ok := changeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Change tells the presentation layer what to redraw. Which fields are set
// depends on Kind:
//
//	NodeAdded, NodeMoved      NodeID, Position
//	NodeRemoved               NodeID
//	NodeUpdated               NodeID, Fields
//	EdgeAdded                 EdgeID, From, To, Curve
//	EdgeRemoved               EdgeID, From, To
//	EdgeGeometryChanged       EdgeID, Curve
//	UnlockChanged             NodeID, Unlocked, Pulse
type Change struct {
	// Seq is a logical sequence number, strictly increasing per Store.
	Seq  int64
	Kind ChangeKind

	NodeID   NodeID
	EdgeID   EdgeID
	From     NodeID
	To       NodeID
	Position layout.Point
	Curve    layout.Curve
	Fields   []Field

	Unlocked bool

	// Pulse asks the presentation layer for a transient highlight. Set only
	// when a node goes from locked to unlocked through Unlock.
	Pulse bool
}

// Batch is the set of changes produced by one operation.
type Batch []Change

// Listener receives one Batch per successful mutation.
type Listener interface {
	Apply(Batch)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Batch)

// Apply calls f.
func (f ListenerFunc) Apply(b Batch) { f(b) }

// Recorder is a Listener that keeps every batch it receives.
type Recorder struct {
	Batches []Batch
}

// Apply implements Listener.
func (r *Recorder) Apply(b Batch) {
	r.Batches = append(r.Batches, b)
}

// Changes returns all recorded changes in order.
func (r *Recorder) Changes() []Change {
	var out []Change
	for _, b := range r.Batches {
		out = append(out, b...)
	}
	return out
}

// Last returns the most recent batch, or nil.
func (r *Recorder) Last() Batch {
	if len(r.Batches) == 0 {
		return nil
	}
	return r.Batches[len(r.Batches)-1]
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.Batches = nil
}

// Kinds lists the kinds in the batch, in order.
func (b Batch) Kinds() []ChangeKind {
	kinds := make([]ChangeKind, len(b))
	for i, c := range b {
		kinds[i] = c.Kind
	}
	return kinds
}
