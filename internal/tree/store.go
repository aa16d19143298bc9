package tree

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/Jahawk44/Sun-Research-Tree/internal/layout"
)

// Store is the authoritative set of nodes and edges.
//
// INVARIANTS:
//   - node ids are unique; edge ids are unique
//   - every edge's endpoints exist and differ
//   - incoming/outgoing hold exactly the edges touching each node
//   - nodeOrder/edgeOrder list every live id once, in insertion order
type Store struct {
	nodes     map[NodeID]*Node
	edges     map[EdgeID]*Edge
	nodeOrder []NodeID
	edgeOrder []EdgeID
	incoming  map[NodeID][]EdgeID
	outgoing  map[NodeID][]EdgeID

	nodeIDs *Clock
	edgeIDs *Clock
	seq     *Clock

	geo         layout.GeometryProvider
	curveOffset float64
	listener    Listener
	logger      *slog.Logger

	pending Batch
}

// Option configures a Store.
type Option func(*Store)

// WithGeometry sets the provider used to locate ports when computing edge
// curves. The default is a layout.Box of default size over the store's own
// node positions.
func WithGeometry(geo layout.GeometryProvider) Option {
	return func(s *Store) {
		s.geo = geo
	}
}

// WithNodeSize uses a layout.Box of the given size over the store's node
// positions.
func WithNodeSize(width, height float64) Option {
	return func(s *Store) {
		s.geo = layout.Box{Width: width, Height: height, Positions: s}
	}
}

// WithCurveOffset sets the control point offset of edge curves.
//
// Default: layout.DefaultCurveOffset.
func WithCurveOffset(offset float64) Option {
	return func(s *Store) {
		s.curveOffset = offset
	}
}

// WithListener registers the receiver of change batches.
func WithListener(l Listener) Option {
	return func(s *Store) {
		s.listener = l
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithSequenceStart makes the first change sequence number start+1. A
// store that replaces another continues its numbering this way.
func WithSequenceStart(start int64) Option {
	return func(s *Store) {
		s.seq = NewClockAt(start)
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		nodes:       make(map[NodeID]*Node),
		edges:       make(map[EdgeID]*Edge),
		incoming:    make(map[NodeID][]EdgeID),
		outgoing:    make(map[NodeID][]EdgeID),
		nodeIDs:     NewClock(),
		edgeIDs:     NewClock(),
		seq:         NewClock(),
		curveOffset: layout.DefaultCurveOffset,
	}
	s.geo = layout.NewBox(s)

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SetListener replaces the listener. A nil listener discards batches.
func (s *Store) SetListener(l Listener) {
	s.listener = l
}

// Position implements layout.PositionSource.
func (s *Store) Position(id int64) (layout.Point, bool) {
	n, ok := s.nodes[NodeID(id)]
	if !ok {
		return layout.Point{}, false
	}
	return n.Position, true
}

// AddNode inserts a locked node with default text at pos and returns its id.
func (s *Store) AddNode(pos layout.Point) NodeID {
	id := NodeID(s.nodeIDs.Next())
	s.insertNode(&Node{
		ID:          id,
		Position:    pos,
		Title:       DefaultTitle,
		Description: DefaultDescription,
	})
	s.flush()
	return id
}

// RestoreNode inserts n keeping its id. Later calls to AddNode allocate ids
// above every restored id. A duplicate id fails with MALFORMED_DOCUMENT.
func (s *Store) RestoreNode(n Node) error {
	if _, exists := s.nodes[n.ID]; exists {
		return NewMalformedDocument("duplicate node id %d", n.ID)
	}
	n.Title = norm.NFC.String(n.Title)
	n.Description = norm.NFC.String(n.Description)
	s.nodeIDs.Observe(int64(n.ID))
	s.insertNode(&n)
	s.flush()
	return nil
}

func (s *Store) insertNode(n *Node) {
	s.nodes[n.ID] = n
	s.nodeOrder = append(s.nodeOrder, n.ID)
	s.emit(Change{Kind: NodeAdded, NodeID: n.ID, Position: n.Position})
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id NodeID) (Node, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// HasNode reports whether id exists.
func (s *Store) HasNode(id NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

// UpdateNode applies a partial update of text and image fields.
func (s *Store) UpdateNode(id NodeID, f NodeFields) error {
	n, ok := s.nodes[id]
	if !ok {
		return nodeNotFound(id)
	}
	if f.Empty() {
		return nil
	}

	var fields []Field
	if f.Title != nil {
		n.Title = norm.NFC.String(*f.Title)
		fields = append(fields, FieldTitle)
	}
	if f.Description != nil {
		n.Description = norm.NFC.String(*f.Description)
		fields = append(fields, FieldDescription)
	}
	switch {
	case f.ClearImage:
		n.Image = nil
		n.Cover = nil
		fields = append(fields, FieldImage, FieldCover)
	case f.Image != nil:
		n.Image = f.Image
		n.Cover = f.Cover
		fields = append(fields, FieldImage, FieldCover)
	case f.Cover != nil && n.Image != nil:
		n.Cover = f.Cover
		fields = append(fields, FieldCover)
	}
	if len(fields) == 0 {
		return nil
	}

	s.emit(Change{Kind: NodeUpdated, NodeID: id, Fields: fields})
	s.flush()
	return nil
}

// MoveNode sets the node's position and refreshes every incident edge in
// the same batch.
func (s *Store) MoveNode(id NodeID, pos layout.Point) error {
	n, ok := s.nodes[id]
	if !ok {
		return nodeNotFound(id)
	}
	n.Position = pos
	s.emit(Change{Kind: NodeMoved, NodeID: id, Position: pos})

	for _, eid := range s.outgoing[id] {
		s.refreshEdge(s.edges[eid], true)
	}
	for _, eid := range s.incoming[id] {
		s.refreshEdge(s.edges[eid], true)
	}

	s.flush()
	return nil
}

// DeleteNode removes the node and every edge that references it.
// Edge removals are listed before the node removal in the batch.
func (s *Store) DeleteNode(id NodeID) error {
	if _, ok := s.nodes[id]; !ok {
		return nodeNotFound(id)
	}

	cascade := append(slices.Clone(s.outgoing[id]), s.incoming[id]...)
	for _, eid := range cascade {
		s.removeEdge(eid)
	}

	delete(s.nodes, id)
	delete(s.incoming, id)
	delete(s.outgoing, id)
	s.nodeOrder = slices.DeleteFunc(s.nodeOrder, func(v NodeID) bool { return v == id })
	s.emit(Change{Kind: NodeRemoved, NodeID: id})

	s.logger.Debug("node deleted", "node_id", id, "cascaded_edges", len(cascade))
	s.flush()
	return nil
}

// AddEdge connects from to to and returns the new edge's id.
// Duplicate edges and cycles are accepted.
func (s *Store) AddEdge(from, to NodeID) (EdgeID, error) {
	if from == to {
		return 0, &Error{
			Code:    CodeInvalidEdge,
			Message: fmt.Sprintf("node %d cannot be its own prerequisite", from),
			NodeID:  from,
		}
	}
	if _, ok := s.nodes[from]; !ok {
		return 0, nodeNotFound(from)
	}
	if _, ok := s.nodes[to]; !ok {
		return 0, nodeNotFound(to)
	}

	e := &Edge{ID: EdgeID(s.edgeIDs.Next()), From: from, To: to}
	s.edges[e.ID] = e
	s.edgeOrder = append(s.edgeOrder, e.ID)
	s.outgoing[from] = append(s.outgoing[from], e.ID)
	s.incoming[to] = append(s.incoming[to], e.ID)

	s.refreshEdge(e, false)
	s.emit(Change{Kind: EdgeAdded, EdgeID: e.ID, From: from, To: to, Curve: e.Curve})
	s.flush()
	return e.ID, nil
}

// DeleteEdge removes a single edge.
func (s *Store) DeleteEdge(id EdgeID) error {
	if _, ok := s.edges[id]; !ok {
		return edgeNotFound(id)
	}
	s.removeEdge(id)
	s.flush()
	return nil
}

func (s *Store) removeEdge(id EdgeID) {
	e := s.edges[id]
	delete(s.edges, id)
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(v EdgeID) bool { return v == id })
	s.outgoing[e.From] = slices.DeleteFunc(s.outgoing[e.From], func(v EdgeID) bool { return v == id })
	s.incoming[e.To] = slices.DeleteFunc(s.incoming[e.To], func(v EdgeID) bool { return v == id })
	s.emit(Change{Kind: EdgeRemoved, EdgeID: id, From: e.From, To: e.To})
}

// refreshEdge recomputes e's curve. When the geometry provider cannot place
// a port the previous curve is kept.
func (s *Store) refreshEdge(e *Edge, notify bool) {
	c, err := layout.Refresh(int64(e.From), int64(e.To), s.geo, s.curveOffset)
	if err != nil {
		s.logger.Warn("edge geometry unavailable", "edge_id", e.ID, "error", err)
		return
	}
	e.Curve = c
	if notify {
		s.emit(Change{Kind: EdgeGeometryChanged, EdgeID: e.ID, Curve: c})
	}
}

// RefreshAll recomputes the curve of every edge, for example after the
// presentation layer changes node dimensions.
func (s *Store) RefreshAll() {
	for _, eid := range s.edgeOrder {
		s.refreshEdge(s.edges[eid], true)
	}
	s.flush()
}

// Edge returns a copy of the edge with the given id.
func (s *Store) Edge(id EdgeID) (Edge, bool) {
	e, ok := s.edges[id]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Incoming returns the edges ending at id, in insertion order.
func (s *Store) Incoming(id NodeID) []Edge {
	return s.edgeCopies(s.incoming[id])
}

// Outgoing returns the edges starting at id, in insertion order.
func (s *Store) Outgoing(id NodeID) []Edge {
	return s.edgeCopies(s.outgoing[id])
}

func (s *Store) edgeCopies(ids []EdgeID) []Edge {
	out := make([]Edge, 0, len(ids))
	for _, eid := range ids {
		out = append(out, *s.edges[eid])
	}
	return out
}

// Nodes returns a restartable sequence over a snapshot of the nodes taken
// at the time of the call, in insertion order.
func (s *Store) Nodes() iter.Seq[Node] {
	snap := make([]Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		snap = append(snap, *s.nodes[id])
	}
	return slices.Values(snap)
}

// Edges returns a restartable sequence over a snapshot of the edges taken
// at the time of the call, in insertion order.
func (s *Store) Edges() iter.Seq[Edge] {
	snap := make([]Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		snap = append(snap, *s.edges[id])
	}
	return slices.Values(snap)
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	return len(s.nodes)
}

// EdgeLen returns the number of edges.
func (s *Store) EdgeLen() int {
	return len(s.edges)
}

// Seq returns the sequence number of the last change stamped.
func (s *Store) Seq() int64 {
	return s.seq.Current()
}

// Emit stamps b and delivers it as one batch. It lets a caller that swaps
// whole stores announce the swap in the new store's numbering.
func (s *Store) Emit(b Batch) {
	s.pending = append(s.pending, b...)
	s.flush()
}

// emit queues a change for the current operation's batch.
func (s *Store) emit(c Change) {
	s.pending = append(s.pending, c)
}

// flush stamps and delivers the pending batch.
func (s *Store) flush() {
	if len(s.pending) == 0 {
		return
	}
	batch := s.pending
	s.pending = nil
	for i := range batch {
		batch[i].Seq = s.seq.Next()
	}
	if s.listener != nil {
		s.listener.Apply(batch)
	}
}
