// Package tree owns the authoritative state of a research tree: the set of
// nodes, the prerequisite edges between them, and the unlock state of
// every node.
//
// # Identity
//
// Nodes and edges are identified by integers allocated from monotonic
// counters (see Clock). Ids are never reused within a Store, including after
// deletes. Documents loaded with RestoreNode keep their ids and advance the
// counter past them.
//
// # Consistency
//
// Every mutation either fully succeeds or returns an *Error and leaves the
// store unchanged. Deleting a node deletes every edge that references it in
// the same step. Moving a node refreshes the curve of every incident edge in
// the same step.
//
// # Notifications
//
// Each successful mutation hands exactly one Batch to the registered
// Listener. A batch lists everything the presentation layer must redraw,
// so the renderer never sees a node position that disagrees with the
// geometry of its edges.
//
// # Unlocking
//
// CanUnlock checks immediate predecessors only. Chains of prerequisites are
// gated because each hop must be unlocked in order; no transitive closure is
// computed. Lock never cascades to dependents.
//
// The Store is not safe for concurrent use. It is owned by the goroutine
// that drives the presentation layer.
package tree
