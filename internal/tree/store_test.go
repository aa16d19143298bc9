package tree

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jahawk44/Sun-Research-Tree/internal/layout"
)

// newChain builds nodes 1..n laid out left to right, 200 apart.
func newChain(t *testing.T, n int, opts ...Option) *Store {
	t.Helper()
	s := New(opts...)
	for i := 0; i < n; i++ {
		s.AddNode(layout.Point{X: float64(100 + 200*i), Y: 100})
	}
	return s
}

func edgePairs(s *Store) [][2]NodeID {
	var pairs [][2]NodeID
	for e := range s.Edges() {
		pairs = append(pairs, [2]NodeID{e.From, e.To})
	}
	return pairs
}

func TestAddNode_Defaults(t *testing.T) {
	s := New()

	id := s.AddNode(layout.Point{X: 100, Y: 100})

	n, ok := s.Node(id)
	require.True(t, ok)
	assert.Equal(t, NodeID(1), n.ID)
	assert.Equal(t, layout.Point{X: 100, Y: 100}, n.Position)
	assert.Equal(t, DefaultTitle, n.Title)
	assert.Equal(t, DefaultDescription, n.Description)
	assert.False(t, n.Unlocked)
	assert.Nil(t, n.Image)
}

func TestAddNode_IDsNeverReused(t *testing.T) {
	s := New()
	a := s.AddNode(layout.Point{})
	b := s.AddNode(layout.Point{})
	require.NoError(t, s.DeleteNode(b))

	c := s.AddNode(layout.Point{})

	assert.Equal(t, NodeID(1), a)
	assert.Equal(t, NodeID(3), c)
}

func TestAddDeleteNode_RestoresCounts(t *testing.T) {
	s := newChain(t, 3)
	_, err := s.AddEdge(1, 2)
	require.NoError(t, err)
	nodesBefore, edgesBefore := s.Len(), s.EdgeLen()

	id := s.AddNode(layout.Point{X: 5, Y: 5})
	require.NoError(t, s.DeleteNode(id))

	assert.Equal(t, nodesBefore, s.Len())
	assert.Equal(t, edgesBefore, s.EdgeLen())
}

func TestDeleteNode_CascadesOnlyIncidentEdges(t *testing.T) {
	s := newChain(t, 3)
	for _, p := range [][2]NodeID{{1, 2}, {2, 3}, {1, 3}} {
		_, err := s.AddEdge(p[0], p[1])
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteNode(2))

	assert.Equal(t, [][2]NodeID{{1, 3}}, edgePairs(s))
	assert.Empty(t, s.Outgoing(2))
	assert.Empty(t, s.Incoming(2))
	assert.Len(t, s.Outgoing(1), 1)
	assert.Len(t, s.Incoming(3), 1)
}

func TestDeleteNode_EmitsEdgeRemovalsThenNode(t *testing.T) {
	rec := &Recorder{}
	s := newChain(t, 3, WithListener(rec))
	e1, _ := s.AddEdge(1, 2)
	e2, _ := s.AddEdge(2, 3)
	rec.Reset()

	require.NoError(t, s.DeleteNode(2))

	require.Len(t, rec.Batches, 1)
	batch := rec.Last()
	assert.Equal(t, []ChangeKind{EdgeRemoved, EdgeRemoved, NodeRemoved}, batch.Kinds())
	removed := []EdgeID{batch[0].EdgeID, batch[1].EdgeID}
	assert.ElementsMatch(t, []EdgeID{e1, e2}, removed)
	assert.Equal(t, NodeID(2), batch[2].NodeID)
}

func TestDeleteNode_NotFound(t *testing.T) {
	s := New()
	err := s.DeleteNode(42)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddEdge_SelfLoopRejected(t *testing.T) {
	rec := &Recorder{}
	s := newChain(t, 1, WithListener(rec))
	rec.Reset()

	_, err := s.AddEdge(1, 1)

	require.Error(t, err)
	assert.True(t, IsInvalidEdge(err))
	assert.Equal(t, 0, s.EdgeLen())
	assert.Empty(t, rec.Batches, "failed operations emit nothing")
}

func TestAddEdge_MissingEndpoint(t *testing.T) {
	s := newChain(t, 1)

	_, err := s.AddEdge(1, 7)
	assert.True(t, IsNotFound(err))

	_, err = s.AddEdge(7, 1)
	assert.True(t, IsNotFound(err))

	assert.Equal(t, 0, s.EdgeLen())
}

func TestAddEdge_DuplicatesAndCyclesAccepted(t *testing.T) {
	s := newChain(t, 2)

	a, err := s.AddEdge(1, 2)
	require.NoError(t, err)
	b, err := s.AddEdge(1, 2)
	require.NoError(t, err)
	_, err = s.AddEdge(2, 1)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 3, s.EdgeLen())
}

func TestAddEdge_InitialGeometry(t *testing.T) {
	rec := &Recorder{}
	s := newChain(t, 2, WithListener(rec))

	id, err := s.AddEdge(1, 2)
	require.NoError(t, err)

	e, ok := s.Edge(id)
	require.True(t, ok)
	assert.Equal(t, layout.Point{X: 250, Y: 150}, e.Curve.Start)
	assert.Equal(t, layout.Point{X: 300, Y: 150}, e.Curve.End)
	assert.Equal(t, layout.Point{X: 300, Y: 150}, e.Curve.Control1)
	assert.Equal(t, layout.Point{X: 250, Y: 150}, e.Curve.Control2)

	last := rec.Last()
	require.Len(t, last, 1)
	assert.Equal(t, EdgeAdded, last[0].Kind)
	assert.Equal(t, e.Curve, last[0].Curve)
	assert.Equal(t, NodeID(1), last[0].From)
	assert.Equal(t, NodeID(2), last[0].To)
}

func TestMoveNode_RefreshesIncidentEdgesInOneBatch(t *testing.T) {
	rec := &Recorder{}
	s := newChain(t, 3, WithListener(rec))
	in, _ := s.AddEdge(1, 2)
	out, _ := s.AddEdge(2, 3)
	other, _ := s.AddEdge(1, 3)
	rec.Reset()

	require.NoError(t, s.MoveNode(2, layout.Point{X: 300, Y: 400}))

	require.Len(t, rec.Batches, 1)
	batch := rec.Last()
	assert.Equal(t, []ChangeKind{NodeMoved, EdgeGeometryChanged, EdgeGeometryChanged}, batch.Kinds())

	refreshed := []EdgeID{batch[1].EdgeID, batch[2].EdgeID}
	assert.ElementsMatch(t, []EdgeID{in, out}, refreshed)
	assert.NotContains(t, refreshed, other)

	eIn, _ := s.Edge(in)
	assert.Equal(t, layout.Point{X: 300, Y: 450}, eIn.Curve.End)
	eOut, _ := s.Edge(out)
	assert.Equal(t, layout.Point{X: 450, Y: 450}, eOut.Curve.Start)
}

func TestMoveNode_NotFound(t *testing.T) {
	s := New()
	assert.True(t, IsNotFound(s.MoveNode(3, layout.Point{})))
}

func TestDeleteEdge(t *testing.T) {
	s := newChain(t, 2)
	id, _ := s.AddEdge(1, 2)

	require.NoError(t, s.DeleteEdge(id))
	assert.Equal(t, 0, s.EdgeLen())
	assert.Empty(t, s.Incoming(2))

	err := s.DeleteEdge(id)
	assert.True(t, IsNotFound(err))
}

func TestUpdateNode_PartialFields(t *testing.T) {
	rec := &Recorder{}
	s := newChain(t, 1, WithListener(rec))
	rec.Reset()
	title := "Metallurgy"

	require.NoError(t, s.UpdateNode(1, NodeFields{Title: &title}))

	n, _ := s.Node(1)
	assert.Equal(t, "Metallurgy", n.Title)
	assert.Equal(t, DefaultDescription, n.Description)
	require.Len(t, rec.Batches, 1)
	assert.Equal(t, []Field{FieldTitle}, rec.Last()[0].Fields)
}

func TestUpdateNode_NormalizesText(t *testing.T) {
	s := newChain(t, 1)
	decomposed := "Cafe\u0301"

	require.NoError(t, s.UpdateNode(1, NodeFields{Description: &decomposed}))

	n, _ := s.Node(1)
	assert.Equal(t, "Caf\u00e9", n.Description)
}

func TestUpdateNode_ImageAndClear(t *testing.T) {
	s := newChain(t, 1)
	img := &Image{MediaType: "image/png", Data: []byte{1, 2, 3}}
	cover := &layout.Rect{Width: 10, Height: 5}

	require.NoError(t, s.UpdateNode(1, NodeFields{Image: img, Cover: cover}))
	n, _ := s.Node(1)
	assert.True(t, img.Equal(n.Image))
	assert.Equal(t, cover, n.Cover)

	require.NoError(t, s.UpdateNode(1, NodeFields{ClearImage: true, Image: img}))
	n, _ = s.Node(1)
	assert.Nil(t, n.Image)
	assert.Nil(t, n.Cover)
}

func TestUpdateNode_CoverWithoutImageIgnored(t *testing.T) {
	rec := &Recorder{}
	s := newChain(t, 1, WithListener(rec))
	rec.Reset()
	cover := &layout.Rect{Width: 10, Height: 5}

	require.NoError(t, s.UpdateNode(1, NodeFields{Cover: cover}))
	n, _ := s.Node(1)
	assert.Nil(t, n.Cover)
	assert.Empty(t, rec.Batches)

	title := "Optics"
	require.NoError(t, s.UpdateNode(1, NodeFields{Title: &title, Cover: cover}))
	n, _ = s.Node(1)
	assert.Nil(t, n.Cover)
	require.Len(t, rec.Batches, 1)
	assert.Equal(t, []Field{FieldTitle}, rec.Last()[0].Fields)
}

func TestUpdateNode_EmptyUpdateEmitsNothing(t *testing.T) {
	rec := &Recorder{}
	s := newChain(t, 1, WithListener(rec))
	rec.Reset()

	require.NoError(t, s.UpdateNode(1, NodeFields{}))
	assert.Empty(t, rec.Batches)

	assert.True(t, IsNotFound(s.UpdateNode(9, NodeFields{})))
}

func TestNodes_SnapshotAndRestartable(t *testing.T) {
	s := newChain(t, 3)
	seq := s.Nodes()

	s.AddNode(layout.Point{})
	require.NoError(t, s.DeleteNode(1))

	var first, second []NodeID
	for n := range seq {
		first = append(first, n.ID)
	}
	for n := range seq {
		second = append(second, n.ID)
	}

	assert.Equal(t, []NodeID{1, 2, 3}, first)
	assert.Equal(t, first, second)
}

func TestNodes_CopiesAreIsolated(t *testing.T) {
	s := newChain(t, 1)
	for n := range s.Nodes() {
		n.Title = "mutated"
	}
	n, _ := s.Node(1)
	assert.Equal(t, DefaultTitle, n.Title)
}

func TestRestoreNode_KeepsIDAndAdvancesAllocator(t *testing.T) {
	s := New()

	require.NoError(t, s.RestoreNode(Node{ID: 0, Title: "root"}))
	require.NoError(t, s.RestoreNode(Node{ID: 7, Title: "leaf", Unlocked: true}))

	next := s.AddNode(layout.Point{})
	assert.Equal(t, NodeID(8), next)

	n, ok := s.Node(7)
	require.True(t, ok)
	assert.True(t, n.Unlocked)

	err := s.RestoreNode(Node{ID: 7})
	assert.True(t, IsMalformedDocument(err))
}

func TestWithNodeSize(t *testing.T) {
	s := newChain(t, 2, WithNodeSize(100, 40))
	id, _ := s.AddEdge(1, 2)
	e, _ := s.Edge(id)
	assert.Equal(t, layout.Point{X: 200, Y: 120}, e.Curve.Start)
	assert.Equal(t, layout.Point{X: 300, Y: 120}, e.Curve.End)
}

func TestCustomGeometryFailureKeepsPreviousCurve(t *testing.T) {
	healthy := true
	s2 := New(WithGeometry(layout.GeometryFunc(func(id int64, p layout.Port) (layout.Point, bool) {
		if !healthy {
			return layout.Point{}, false
		}
		return layout.Point{X: float64(id * 10)}, true
	})))
	s2.AddNode(layout.Point{})
	s2.AddNode(layout.Point{})
	id, err := s2.AddEdge(1, 2)
	require.NoError(t, err)
	before, _ := s2.Edge(id)

	healthy = false
	require.NoError(t, s2.MoveNode(1, layout.Point{X: 99}))

	after, _ := s2.Edge(id)
	assert.Equal(t, before.Curve, after.Curve)
}

func TestSeqStrictlyIncreasing(t *testing.T) {
	rec := &Recorder{}
	s := newChain(t, 3, WithListener(rec))
	_, _ = s.AddEdge(1, 2)
	_ = s.MoveNode(1, layout.Point{X: 1})
	_ = s.DeleteNode(2)

	var seqs []int64
	for _, c := range rec.Changes() {
		seqs = append(seqs, c.Seq)
	}
	assert.True(t, slices.IsSorted(seqs))
	assert.Equal(t, int64(1), seqs[0])
	assert.Len(t, slices.Compact(slices.Clone(seqs)), len(seqs))
}

func TestSequenceStartAndEmit(t *testing.T) {
	rec := &Recorder{}
	s := New(WithSequenceStart(40), WithListener(rec))

	s.AddNode(layout.Point{})
	assert.Equal(t, int64(41), rec.Last()[0].Seq)

	s.Emit(Batch{{Kind: NodeRemoved, NodeID: 7}, {Kind: NodeAdded, NodeID: 8}})
	last := rec.Last()
	require.Len(t, last, 2)
	assert.Equal(t, int64(42), last[0].Seq)
	assert.Equal(t, int64(43), last[1].Seq)
	assert.Equal(t, int64(43), s.Seq())

	s.Emit(nil)
	assert.Len(t, rec.Batches, 2, "empty batches are not delivered")
}
