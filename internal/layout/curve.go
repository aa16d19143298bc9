package layout

import (
	"fmt"
	"strconv"
)

// DefaultCurveOffset is the horizontal distance between an endpoint and
// its control point.
const DefaultCurveOffset = 50

// Curve describes the cubic Bezier drawn for an edge.
//
// Mid is the midpoint of the straight segment Start-End; the presentation
// layer anchors the edge's delete affordance there.
type Curve struct {
	Start    Point `json:"start"`
	Control1 Point `json:"control1"`
	Control2 Point `json:"control2"`
	End      Point `json:"end"`
	Mid      Point `json:"mid"`
}

// CurveFor builds the curve from one port position to another.
// Control points leave from horizontally and arrive horizontally.
func CurveFor(from, to Point, offset float64) Curve {
	return Curve{
		Start:    from,
		Control1: Point{X: from.X + offset, Y: from.Y},
		Control2: Point{X: to.X - offset, Y: to.Y},
		End:      to,
		Mid:      Midpoint(from, to),
	}
}

// Path renders the curve as SVG path data.
func (c Curve) Path() string {
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(c.Start.X), num(c.Start.Y),
		num(c.Control1.X), num(c.Control1.Y),
		num(c.Control2.X), num(c.Control2.Y),
		num(c.End.X), num(c.End.Y),
	)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Refresh recomputes the curve of an edge from the current port positions
// reported by geo: the output port of fromID and the input port of toID.
func Refresh(fromID, toID int64, geo GeometryProvider, offset float64) (Curve, error) {
	start, ok := geo.PortPosition(fromID, PortOutput)
	if !ok {
		return Curve{}, fmt.Errorf("refresh edge %d->%d: no output port for node %d", fromID, toID, fromID)
	}
	end, ok := geo.PortPosition(toID, PortInput)
	if !ok {
		return Curve{}, fmt.Errorf("refresh edge %d->%d: no input port for node %d", fromID, toID, toID)
	}
	return CurveFor(start, end, offset), nil
}
