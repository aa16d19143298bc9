package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Jahawk44/Sun-Research-Tree/internal/document"
	"github.com/Jahawk44/Sun-Research-Tree/internal/layout"
	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

var errEmptyImage = errors.New("image has no pixels")

// Session wraps a tree.Store for the presentation layer.
type Session struct {
	store *tree.Store

	align       bool
	gridSize    float64
	nodeWidth   float64
	nodeHeight  float64
	curveOffset float64
	dangling    document.DanglingPolicy

	listener tree.Listener
	logger   *slog.Logger
	decoder  Decoder

	// Image decode tasks. tasks holds the current task per node; a
	// completion whose token no longer matches is stale.
	ctx       context.Context
	cancelAll context.CancelFunc
	tasks     map[tree.NodeID]imageTask
	nextToken uint64
	queue     *completionQueue
	wg        sync.WaitGroup
	closed    bool
}

type imageTask struct {
	token  uint64
	cancel context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithGridSize sets the align-mode grid. Default: layout.DefaultGridSize.
func WithGridSize(size float64) Option {
	return func(s *Session) {
		s.gridSize = size
	}
}

// WithNodeSize sets the node box used for ports and image covers.
// Default: layout.DefaultNodeWidth x layout.DefaultNodeHeight.
func WithNodeSize(width, height float64) Option {
	return func(s *Session) {
		s.nodeWidth = width
		s.nodeHeight = height
	}
}

// WithCurveOffset sets the edge curve control offset.
// Default: layout.DefaultCurveOffset.
func WithCurveOffset(offset float64) Option {
	return func(s *Session) {
		s.curveOffset = offset
	}
}

// WithDanglingPolicy sets how Load treats connections to unknown nodes.
// Default: document.RejectDangling.
func WithDanglingPolicy(p document.DanglingPolicy) Option {
	return func(s *Session) {
		s.dangling = p
	}
}

// WithListener registers the receiver of change batches.
func WithListener(l tree.Listener) Option {
	return func(s *Session) {
		s.listener = l
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithDecoder replaces the image decoder. Default: ConfigDecoder.
func WithDecoder(d Decoder) Option {
	return func(s *Session) {
		s.decoder = d
	}
}

// New creates a session over an empty tree.
func New(opts ...Option) *Session {
	s := &Session{
		gridSize:    layout.DefaultGridSize,
		nodeWidth:   layout.DefaultNodeWidth,
		nodeHeight:  layout.DefaultNodeHeight,
		curveOffset: layout.DefaultCurveOffset,
		decoder:     ConfigDecoder{},
		tasks:       make(map[tree.NodeID]imageTask),
		queue:       newCompletionQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.ctx, s.cancelAll = context.WithCancel(context.Background())
	s.store = tree.New(s.storeOptions(0)...)
	return s
}

func (s *Session) storeOptions(seqStart int64) []tree.Option {
	return []tree.Option{
		tree.WithNodeSize(s.nodeWidth, s.nodeHeight),
		tree.WithCurveOffset(s.curveOffset),
		tree.WithLogger(s.logger),
		tree.WithSequenceStart(seqStart),
	}
}

// Store returns the current store for read access. Load replaces it, so
// callers should not keep the pointer across a Load.
func (s *Session) Store() *tree.Store {
	return s.store
}

// SetListener replaces the listener on this and every later store.
func (s *Session) SetListener(l tree.Listener) {
	s.listener = l
	s.store.SetListener(l)
}

// SetAlign turns align mode on or off. In align mode AddNode and MoveNode
// snap positions to the grid.
func (s *Session) SetAlign(on bool) {
	s.align = on
}

// Align reports whether align mode is on.
func (s *Session) Align() bool {
	return s.align
}

// Snap returns pos snapped to the session grid.
func (s *Session) Snap(pos layout.Point) layout.Point {
	return layout.Snap(pos, s.gridSize)
}

func (s *Session) place(pos layout.Point) layout.Point {
	if s.align {
		return s.Snap(pos)
	}
	return pos
}

// AddNode creates a node at pos.
func (s *Session) AddNode(pos layout.Point) tree.NodeID {
	return s.store.AddNode(s.place(pos))
}

// MoveNode moves a node and its edges.
func (s *Session) MoveNode(id tree.NodeID, pos layout.Point) error {
	return s.store.MoveNode(id, s.place(pos))
}

// DeleteNode removes a node, its edges and any pending image decode.
func (s *Session) DeleteNode(id tree.NodeID) error {
	if err := s.store.DeleteNode(id); err != nil {
		return err
	}
	s.cancelTask(id)
	return nil
}

// AddEdge connects two nodes.
func (s *Session) AddEdge(from, to tree.NodeID) (tree.EdgeID, error) {
	return s.store.AddEdge(from, to)
}

// DeleteEdge removes an edge.
func (s *Session) DeleteEdge(id tree.EdgeID) error {
	return s.store.DeleteEdge(id)
}

// UpdateNode applies a partial update. Setting an image without a cover
// starts a decode that fills the cover in later; clearing or replacing the
// image abandons any decode still running for the node.
func (s *Session) UpdateNode(id tree.NodeID, f tree.NodeFields) error {
	if err := s.store.UpdateNode(id, f); err != nil {
		return err
	}
	switch {
	case f.ClearImage:
		s.cancelTask(id)
	case f.Image != nil && f.Cover == nil:
		s.startDecode(id, f.Image)
	case f.Image != nil:
		s.cancelTask(id)
	}
	return nil
}

// AttachImage parses a data URL and attaches the image to a node. The
// cover crop is applied by a later Pump once decoding finishes.
func (s *Session) AttachImage(id tree.NodeID, dataURL string) error {
	if !s.store.HasNode(id) {
		return &tree.Error{Code: tree.CodeNotFound, Message: fmt.Sprintf("node %d does not exist", id), NodeID: id}
	}
	img, err := document.ParseDataURL(dataURL)
	if err != nil {
		var te *tree.Error
		if errors.As(err, &te) {
			te.NodeID = id
		}
		return err
	}
	return s.UpdateNode(id, tree.NodeFields{Image: img})
}

// AttemptUnlock unlocks a node if its prerequisites are met. pulse is true
// when the node changed state.
func (s *Session) AttemptUnlock(id tree.NodeID) (pulse bool, err error) {
	return s.store.Unlock(id)
}

// Lock locks a node.
func (s *Session) Lock(id tree.NodeID) error {
	return s.store.Lock(id)
}

// Save captures the current tree.
func (s *Session) Save() document.Document {
	return document.Serialize(s.store)
}

// Load replaces the tree with doc. The new store is built completely
// before it replaces the old one; on error the session is unchanged. The
// listener receives one batch removing every old entity and adding every
// new one. Images in doc are decoded again for their covers.
func (s *Session) Load(doc document.Document) error {
	next, err := document.Deserialize(doc,
		document.WithDanglingPolicy(s.dangling),
		document.WithLogger(s.logger),
		document.WithStoreOptions(s.storeOptions(s.store.Seq())...),
	)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	for id := range s.tasks {
		s.cancelTask(id)
	}

	var batch tree.Batch
	for e := range s.store.Edges() {
		batch = append(batch, tree.Change{Kind: tree.EdgeRemoved, EdgeID: e.ID, From: e.From, To: e.To})
	}
	for n := range s.store.Nodes() {
		batch = append(batch, tree.Change{Kind: tree.NodeRemoved, NodeID: n.ID})
	}
	for n := range next.Nodes() {
		batch = append(batch, tree.Change{Kind: tree.NodeAdded, NodeID: n.ID, Position: n.Position})
	}
	for e := range next.Edges() {
		batch = append(batch, tree.Change{Kind: tree.EdgeAdded, EdgeID: e.ID, From: e.From, To: e.To, Curve: e.Curve})
	}

	s.store.SetListener(nil)
	s.store = next
	s.store.SetListener(s.listener)
	s.store.Emit(batch)

	for n := range next.Nodes() {
		if n.Image != nil {
			s.startDecode(n.ID, n.Image)
		}
	}
	s.logger.Info("tree loaded", "nodes", next.Len(), "edges", next.EdgeLen())
	return nil
}

// Pending returns the number of image decodes not yet applied.
func (s *Session) Pending() int {
	return len(s.tasks)
}

// Ready fires when decode completions may be waiting for Pump.
func (s *Session) Ready() <-chan struct{} {
	return s.queue.Wait()
}

// Pump applies every decode completion queued so far and returns how many
// changed the tree. Completions for deleted nodes or superseded tasks are
// discarded. A failed decode removes the image from its node; those
// failures come back joined as INVALID_IMAGE errors.
func (s *Session) Pump() (applied int, err error) {
	var errs []error
	for {
		c, ok := s.queue.TryDequeue()
		if !ok {
			break
		}
		task, current := s.tasks[c.node]
		if !current || task.token != c.token {
			s.logger.Debug("discarding stale image decode", "node_id", c.node)
			continue
		}
		delete(s.tasks, c.node)
		if !s.store.HasNode(c.node) {
			continue
		}

		if c.err != nil {
			s.logger.Warn("image decode failed", "node_id", c.node, "error", c.err)
			if uerr := s.store.UpdateNode(c.node, tree.NodeFields{ClearImage: true}); uerr != nil {
				errs = append(errs, uerr)
				continue
			}
			errs = append(errs, tree.NewInvalidImage(c.node, "node %d: %v", c.node, c.err))
			applied++
			continue
		}

		cover := layout.CoverCrop(float64(c.width), float64(c.height), s.nodeWidth, s.nodeHeight)
		if uerr := s.store.UpdateNode(c.node, tree.NodeFields{Cover: &cover}); uerr != nil {
			errs = append(errs, uerr)
			continue
		}
		applied++
	}
	return applied, errors.Join(errs...)
}

// Drain waits for every pending decode and applies it.
func (s *Session) Drain(ctx context.Context) error {
	var errs []error
	for len(s.tasks) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.queue.Wait():
		}
		if _, err := s.Pump(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close cancels pending decodes and waits for their goroutines to exit.
// The session must not be used afterwards.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancelAll()
	s.wg.Wait()
	clear(s.tasks)
	s.queue.Close()
}

func (s *Session) startDecode(id tree.NodeID, img *tree.Image) {
	if s.closed {
		return
	}
	s.cancelTask(id)

	s.nextToken++
	token := s.nextToken
	ctx, cancel := context.WithCancel(s.ctx)
	s.tasks[id] = imageTask{token: token, cancel: cancel}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		w, h, err := s.decoder.Decode(ctx, img)
		if ctx.Err() != nil {
			return
		}
		s.queue.Enqueue(completion{node: id, token: token, width: w, height: h, err: err})
	}()
}

func (s *Session) cancelTask(id tree.NodeID) {
	task, ok := s.tasks[id]
	if !ok {
		return
	}
	task.cancel()
	delete(s.tasks, id)
}
