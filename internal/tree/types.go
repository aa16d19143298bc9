package tree

import (
	"bytes"

	"github.com/Jahawk44/Sun-Research-Tree/internal/layout"
)

// NodeID identifies a node within a Store.
type NodeID int64

// EdgeID identifies an edge within a Store. Edge ids are in-memory handles
// and are not persisted.
type EdgeID int64

// Default text for new nodes.
const (
	DefaultTitle       = "Title"
	DefaultDescription = "Description"
)

// Image is an author-supplied picture attached to a node.
// Images are treated as immutable values once attached.
type Image struct {
	MediaType string
	Data      []byte
}

// Equal reports whether two images carry the same media type and bytes.
// Two nil images are equal.
func (i *Image) Equal(o *Image) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.MediaType == o.MediaType && bytes.Equal(i.Data, o.Data)
}

// Node is one unlockable item in the tree.
type Node struct {
	ID          NodeID
	Position    layout.Point
	Title       string
	Description string
	Image       *Image

	// Cover is the crop of Image drawn over the node box. It is derived
	// from the decoded image and never persisted.
	Cover *layout.Rect

	Unlocked bool
}

// Edge is a directed prerequisite: From must be unlocked before To.
type Edge struct {
	ID    EdgeID
	From  NodeID
	To    NodeID
	Curve layout.Curve
}

// NodeFields is a partial update for UpdateNode. Nil fields are left as they
// are. ClearImage removes the image and cover and takes precedence over
// Image. Setting Image without Cover clears the cover. A Cover alone is
// ignored when the node has no image.
type NodeFields struct {
	Title       *string
	Description *string
	Image       *Image
	ClearImage  bool
	Cover       *layout.Rect
}

// Empty reports whether the update changes nothing.
func (f NodeFields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Image == nil && !f.ClearImage && f.Cover == nil
}

// Field names a node attribute in a NodeUpdated change.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldImage       Field = "image"
	FieldCover       Field = "cover"
)
