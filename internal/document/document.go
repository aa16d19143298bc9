package document

import (
	"fmt"
	"iter"
	"log/slog"

	"github.com/Jahawk44/Sun-Research-Tree/internal/layout"
	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

// DefaultFileName is the name the editor saves documents under.
const DefaultFileName = "research_tree.json"

// Document is the persisted form of a tree.
type Document struct {
	Nodes       []NodeRecord
	Connections []ConnectionRecord
}

// NodeRecord is one persisted node.
type NodeRecord struct {
	ID          int64
	X           float64
	Y           float64
	Title       string
	Description string

	// ImageData is a data URL, or nil when the node has no image.
	ImageData *string

	Unlocked bool
}

// ConnectionRecord is one persisted edge, by endpoint ids.
type ConnectionRecord struct {
	FromID int64
	ToID   int64
}

// Source is what Serialize reads from. *tree.Store implements it.
type Source interface {
	Nodes() iter.Seq[tree.Node]
	Edges() iter.Seq[tree.Edge]
}

// Serialize captures src as a Document. Records follow the source's
// iteration order.
func Serialize(src Source) Document {
	doc := Document{
		Nodes:       []NodeRecord{},
		Connections: []ConnectionRecord{},
	}
	for n := range src.Nodes() {
		rec := NodeRecord{
			ID:          int64(n.ID),
			X:           n.Position.X,
			Y:           n.Position.Y,
			Title:       n.Title,
			Description: n.Description,
			Unlocked:    n.Unlocked,
		}
		if n.Image != nil {
			s := FormatDataURL(n.Image)
			rec.ImageData = &s
		}
		doc.Nodes = append(doc.Nodes, rec)
	}
	for e := range src.Edges() {
		doc.Connections = append(doc.Connections, ConnectionRecord{
			FromID: int64(e.From),
			ToID:   int64(e.To),
		})
	}
	return doc
}

// DanglingPolicy decides what Deserialize does with a connection whose
// endpoint is not among the document's nodes.
type DanglingPolicy int

const (
	// RejectDangling fails the load with DANGLING_EDGE.
	RejectDangling DanglingPolicy = iota

	// DropDangling skips the connection and reports it to the dropped hook.
	DropDangling
)

// String returns the configuration name of the policy.
func (p DanglingPolicy) String() string {
	switch p {
	case RejectDangling:
		return "error"
	case DropDangling:
		return "drop"
	default:
		return fmt.Sprintf("DanglingPolicy(%d)", int(p))
	}
}

// ParseDanglingPolicy parses "error" or "drop". The empty string means
// RejectDangling.
func ParseDanglingPolicy(s string) (DanglingPolicy, error) {
	switch s {
	case "", "error":
		return RejectDangling, nil
	case "drop":
		return DropDangling, nil
	default:
		return 0, fmt.Errorf("unknown dangling policy %q (want \"error\" or \"drop\")", s)
	}
}

type options struct {
	dangling  DanglingPolicy
	onDropped func(ConnectionRecord)
	storeOpts []tree.Option
	logger    *slog.Logger
}

// Option configures Deserialize.
type Option func(*options)

// WithDanglingPolicy sets how unknown connection endpoints are handled.
//
// Default: RejectDangling.
func WithDanglingPolicy(p DanglingPolicy) Option {
	return func(o *options) {
		o.dangling = p
	}
}

// WithDroppedHook is called once per connection skipped under DropDangling.
func WithDroppedHook(fn func(ConnectionRecord)) Option {
	return func(o *options) {
		o.onDropped = fn
	}
}

// WithStoreOptions passes options to the tree.Store being built.
func WithStoreOptions(opts ...tree.Option) Option {
	return func(o *options) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Deserialize builds a new store from doc.
//
// Nodes are restored first, in document order, keeping their ids and
// unlocked flags. Connections follow in document order once every node
// exists, so each edge gets its geometry from final positions. On error no
// store is returned.
func Deserialize(doc Document, opts ...Option) (*tree.Store, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := tree.New(append(o.storeOpts, tree.WithLogger(o.logger))...)

	for i, rec := range doc.Nodes {
		n := tree.Node{
			ID:          tree.NodeID(rec.ID),
			Position:    layout.Point{X: rec.X, Y: rec.Y},
			Title:       rec.Title,
			Description: rec.Description,
			Unlocked:    rec.Unlocked,
		}
		if rec.ImageData != nil && *rec.ImageData != "" {
			img, err := ParseDataURL(*rec.ImageData)
			if err != nil {
				return nil, tree.NewMalformedDocument("nodes[%d]: imageData: %v", i, err)
			}
			n.Image = img
		}
		if err := s.RestoreNode(n); err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
	}

	dropped := 0
	for i, c := range doc.Connections {
		from, to := tree.NodeID(c.FromID), tree.NodeID(c.ToID)
		missing, ok := firstMissing(s, from, to)
		if !ok {
			if o.dangling == RejectDangling {
				return nil, fmt.Errorf("connections[%d]: %w", i, tree.NewDanglingEdge(from, to, missing))
			}
			dropped++
			o.logger.Warn("dropping dangling connection",
				"index", i, "from", c.FromID, "to", c.ToID, "missing", int64(missing))
			if o.onDropped != nil {
				o.onDropped(c)
			}
			continue
		}
		if from == to {
			return nil, tree.NewMalformedDocument("connections[%d]: self-loop on node %d", i, from)
		}
		if _, err := s.AddEdge(from, to); err != nil {
			return nil, fmt.Errorf("connections[%d]: %w", i, err)
		}
	}

	o.logger.Debug("document loaded",
		"nodes", s.Len(), "edges", s.EdgeLen(), "dropped", dropped)
	return s, nil
}

func firstMissing(s *tree.Store, from, to tree.NodeID) (tree.NodeID, bool) {
	if !s.HasNode(from) {
		return from, false
	}
	if !s.HasNode(to) {
		return to, false
	}
	return 0, true
}
