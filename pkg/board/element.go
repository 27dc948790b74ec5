// Package board holds the per-room document model: drawing elements,
// the ordered element store, the presence roster, and the cursor map.
//
// Types in this package are not safe for concurrent use on their own.
// The hub serializes all access to a room's state behind the room's
// mutex; board stays free of locking so that invariant lives in exactly
// one place.
package board

// ElementKind discriminates the drawing element variants.
type ElementKind string

const (
	// KindStroke is a freehand stroke: an ordered point sequence.
	// An eraser stroke is a KindStroke with Erase set; it paints the
	// background color instead of Color.
	KindStroke ElementKind = "stroke"

	// KindRect is an axis-aligned rectangle anchored at (X, Y).
	// Width and Height may be negative, meaning the shape extends
	// left or up from the anchor.
	KindRect ElementKind = "rect"

	// KindCircle is a circle centered at (CX, CY).
	KindCircle ElementKind = "circle"
)

// Point is a single coordinate pair on the drawing surface.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Element is one drawn shape, the atomic unit of the shared document.
// The ID is assigned by the originating client and is the
// reconciliation key: a later element with the same ID fully replaces
// the earlier one (last write wins, no field merge).
//
// The server stores and forwards elements exactly as received. Geometry
// and color are never validated here; a malformed payload flows through
// unchanged rather than being rejected.
type Element struct {
	ID          string      `json:"id"`
	Kind        ElementKind `json:"kind"`
	Color       string      `json:"color,omitempty"`
	StrokeWidth float64     `json:"strokeWidth,omitempty"`

	// Stroke payload.
	Points []Point `json:"points,omitempty"`
	Erase  bool    `json:"erase,omitempty"`

	// Rect payload.
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Circle payload.
	CX     float64 `json:"cx,omitempty"`
	CY     float64 `json:"cy,omitempty"`
	Radius float64 `json:"radius,omitempty"`
}
