package layout

// Port identifies an attachment point on a node.
type Port int

const (
	// PortInput receives incoming edges (left side of the box).
	PortInput Port = iota + 1
	// PortOutput starts outgoing edges (right side of the box).
	PortOutput
)

// String returns "input" or "output".
func (p Port) String() string {
	switch p {
	case PortInput:
		return "input"
	case PortOutput:
		return "output"
	default:
		return "unknown"
	}
}

// GeometryProvider reports the absolute position of a node's port.
// The second result is false when the node is unknown.
type GeometryProvider interface {
	PortPosition(nodeID int64, port Port) (Point, bool)
}

// GeometryFunc adapts a function to GeometryProvider.
type GeometryFunc func(nodeID int64, port Port) (Point, bool)

// PortPosition calls f.
func (f GeometryFunc) PortPosition(nodeID int64, port Port) (Point, bool) {
	return f(nodeID, port)
}

// PositionSource resolves a node id to the node's top-left position.
type PositionSource interface {
	Position(nodeID int64) (Point, bool)
}

// Default node box dimensions.
const (
	DefaultNodeWidth  = 150
	DefaultNodeHeight = 100
)

// Box is a GeometryProvider for nodes drawn as fixed-size boxes whose
// ports sit at the vertical center of the left and right edges.
type Box struct {
	Width     float64
	Height    float64
	Positions PositionSource
}

// NewBox returns a Box of the default dimensions.
func NewBox(src PositionSource) Box {
	return Box{Width: DefaultNodeWidth, Height: DefaultNodeHeight, Positions: src}
}

// PortPosition implements GeometryProvider.
func (b Box) PortPosition(nodeID int64, port Port) (Point, bool) {
	if b.Positions == nil {
		return Point{}, false
	}
	origin, ok := b.Positions.Position(nodeID)
	if !ok {
		return Point{}, false
	}
	switch port {
	case PortInput:
		return origin.Add(Point{X: 0, Y: b.Height / 2}), true
	case PortOutput:
		return origin.Add(Point{X: b.Width, Y: b.Height / 2}), true
	default:
		return Point{}, false
	}
}
