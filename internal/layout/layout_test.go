package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnap_RoundsToNearestMultiple(t *testing.T) {
	tests := []struct {
		name string
		in   Point
		grid float64
		want Point
	}{
		{"already aligned", Point{100, 150}, 50, Point{100, 150}},
		{"rounds down", Point{112, 174}, 50, Point{100, 150}},
		{"rounds up", Point{126, 176}, 50, Point{150, 200}},
		{"tie rounds up", Point{25, 75}, 50, Point{50, 100}},
		{"negative tie rounds toward zero", Point{-25, -75}, 50, Point{0, -50}},
		{"negative", Point{-130, -60}, 50, Point{-150, -50}},
		{"small grid", Point{13, 7}, 10, Point{10, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Snap(tt.in, tt.grid))
		})
	}
}

func TestSnap_ResultIsMultipleOfGrid(t *testing.T) {
	grids := []float64{1, 10, 25, 50, 64}
	for _, g := range grids {
		for x := -500.0; x <= 500; x += 7.3 {
			p := Snap(Point{X: x, Y: x * 1.7}, g)
			assert.Zero(t, math.Mod(p.X, g), "x=%v grid=%v", x, g)
			assert.Zero(t, math.Mod(p.Y, g), "y=%v grid=%v", x*1.7, g)
		}
	}
}

func TestSnap_NoNegativeZero(t *testing.T) {
	p := Snap(Point{X: -10, Y: -1}, 50)
	assert.False(t, math.Signbit(p.X))
	assert.False(t, math.Signbit(p.Y))
}

func TestSnap_NonPositiveGridIsIdentity(t *testing.T) {
	p := Point{X: 13.5, Y: -2}
	assert.Equal(t, p, Snap(p, 0))
	assert.Equal(t, p, Snap(p, -50))
	assert.Equal(t, p, Snap(p, math.NaN()))
}

func TestCurveFor_ControlPoints(t *testing.T) {
	a := Point{X: 250, Y: 150}
	b := Point{X: 400, Y: 300}

	c := CurveFor(a, b, DefaultCurveOffset)

	assert.Equal(t, a, c.Start)
	assert.Equal(t, b, c.End)
	assert.Equal(t, Point{X: a.X + 50, Y: a.Y}, c.Control1)
	assert.Equal(t, Point{X: b.X - 50, Y: b.Y}, c.Control2)
	assert.Equal(t, Point{X: 325, Y: 225}, c.Mid)
}

func TestCurve_Path(t *testing.T) {
	c := CurveFor(Point{X: 250, Y: 150}, Point{X: 300, Y: 150.5}, 50)
	assert.Equal(t, "M 250 150 C 300 150, 250 150.5, 300 150.5", c.Path())
}

type positions map[int64]Point

func (p positions) Position(id int64) (Point, bool) {
	pt, ok := p[id]
	return pt, ok
}

func TestBox_PortPositions(t *testing.T) {
	box := NewBox(positions{1: {X: 100, Y: 100}})

	in, ok := box.PortPosition(1, PortInput)
	require.True(t, ok)
	assert.Equal(t, Point{X: 100, Y: 150}, in)

	out, ok := box.PortPosition(1, PortOutput)
	require.True(t, ok)
	assert.Equal(t, Point{X: 250, Y: 150}, out)

	_, ok = box.PortPosition(2, PortInput)
	assert.False(t, ok)

	_, ok = Box{}.PortPosition(1, PortInput)
	assert.False(t, ok)
}

func TestRefresh_UsesOutputThenInputPort(t *testing.T) {
	box := NewBox(positions{
		1: {X: 100, Y: 100},
		2: {X: 300, Y: 100},
	})

	c, err := Refresh(1, 2, box, DefaultCurveOffset)
	require.NoError(t, err)

	assert.Equal(t, Point{X: 250, Y: 150}, c.Start)
	assert.Equal(t, Point{X: 300, Y: 150}, c.End)
	assert.Equal(t, Point{X: 300, Y: 150}, c.Control1)
	assert.Equal(t, Point{X: 250, Y: 150}, c.Control2)
	assert.Equal(t, Point{X: 275, Y: 150}, c.Mid)
}

func TestRefresh_MissingNode(t *testing.T) {
	box := NewBox(positions{1: {}})

	_, err := Refresh(1, 9, box, DefaultCurveOffset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node 9")

	_, err = Refresh(9, 1, box, DefaultCurveOffset)
	require.Error(t, err)
}

func TestGeometryFunc(t *testing.T) {
	geo := GeometryFunc(func(id int64, port Port) (Point, bool) {
		return Point{X: float64(id), Y: float64(port)}, true
	})

	c, err := Refresh(3, 4, geo, 10)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 3, Y: float64(PortOutput)}, c.Start)
	assert.Equal(t, Point{X: 4, Y: float64(PortInput)}, c.End)
}

func TestCoverCrop(t *testing.T) {
	tests := []struct {
		name       string
		imgW, imgH float64
		want       Rect
	}{
		{"wider than box", 300, 100, Rect{X: 75, Y: 0, Width: 150, Height: 100}},
		{"taller than box", 150, 300, Rect{X: 0, Y: 100, Width: 150, Height: 100}},
		{"same aspect", 300, 200, Rect{Width: 300, Height: 200}},
		{"degenerate", 0, 10, Rect{Width: 0, Height: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoverCrop(tt.imgW, tt.imgH, DefaultNodeWidth, DefaultNodeHeight)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.Width, got.Width, 1e-9)
			assert.InDelta(t, tt.want.Height, got.Height, 1e-9)
		})
	}
}

func TestPort_String(t *testing.T) {
	assert.Equal(t, "input", PortInput.String())
	assert.Equal(t, "output", PortOutput.String())
	assert.Equal(t, "unknown", Port(0).String())
}
