// Package layout holds the geometry shared by the tree store and the
// presentation layer.
//
// Everything here is a pure function of its inputs:
//   - Snap aligns a proposed node position to the editor grid
//   - CurveFor and Refresh compute the cubic curve drawn for an edge
//   - Box answers port positions for fixed-size node boxes
//   - CoverCrop fits an author image over a node box
//
// Node identifiers are plain int64 values so this package has no
// dependency on the tree package.
package layout
