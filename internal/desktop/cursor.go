package desktop

import (
	"image"
	"sync"
)

// Pointer shape encodings (DXGI_OUTDUPL_POINTER_SHAPE_TYPE).
const (
	ShapeMonochrome  uint32 = 1
	ShapeColor       uint32 = 2
	ShapeMaskedColor uint32 = 4
)

// PointerShapeInfo mirrors DXGI_OUTDUPL_POINTER_SHAPE_INFO.
type PointerShapeInfo struct {
	Type    uint32
	Width   uint32
	Height  uint32
	Pitch   uint32
	HotSpot image.Point
}

// noOutput marks a tracker that no output has updated yet.
const noOutput = ^OutputID(0)

// CursorState is a snapshot of the tracked pointer.
type CursorState struct {
	// Position is in virtual-desktop coordinates relative to the tracker's
	// origin.
	Position image.Point
	Visible  bool
	// Owner is the output that last had a position update accepted.
	Owner OutputID
	// Timestamp is the LastMouseUpdateTime of the accepted update.
	Timestamp int64
	Shape     PointerShapeInfo
}

// PointerReport is one output's view of the pointer taken from frame
// metadata. Position is relative to that output.
type PointerReport struct {
	Position  image.Point
	Visible   bool
	Timestamp int64
}

// CursorTracker keeps pointer position, visibility and shape across frame
// pulls. A tracker may be shared by Capturers on different outputs of the
// same desktop, in which case it arbitrates between their reports.
type CursorTracker struct {
	mu     sync.Mutex
	origin image.Point
	state  CursorState
	shape  []byte // capacity only grows
	shapeN int    // bytes of shape holding the current bitmap
	spare  []byte // fetch target; swapped with shape on success
}

// NewCursorTracker returns a tracker shareable across the given displays.
// Positions are kept relative to the top-left corner of their union.
func NewCursorTracker(displays ...*Display) *CursorTracker {
	var union image.Rectangle
	for i, d := range displays {
		if i == 0 {
			union = d.Bounds()
			continue
		}
		union = union.Union(d.Bounds())
	}
	return &CursorTracker{
		origin: union.Min,
		state:  CursorState{Owner: noOutput},
	}
}

// newPrivateTracker returns a tracker used by a single output, with the
// desktop origin at zero.
func newPrivateTracker(owner OutputID) *CursorTracker {
	return &CursorTracker{state: CursorState{Owner: owner}}
}

// Origin is the virtual-desktop point subtracted from every position.
func (t *CursorTracker) Origin() image.Point {
	return t.origin
}

// State returns a copy of the tracked state.
func (t *CursorTracker) State() CursorState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// accepts applies the update policy. A hide report from an output that
// does not own the cursor is ignored, and so is a show report from another
// output that is older than what is already cached.
func (s *CursorState) accepts(output OutputID, r PointerReport) bool {
	if !r.Visible && s.Owner != output {
		return false
	}
	if r.Visible && s.Visible && s.Owner != output && s.Timestamp > r.Timestamp {
		return false
	}
	return true
}

// Update applies a pointer report from output, whose top-left corner sits
// at outputOrigin on the virtual desktop. It returns whether the report was
// accepted.
func (t *CursorTracker) Update(output OutputID, outputOrigin image.Point, r PointerReport) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.accepts(output, r) {
		return false
	}
	t.state.Position = r.Position.Add(outputOrigin).Sub(t.origin)
	t.state.Owner = output
	t.state.Timestamp = r.Timestamp
	t.state.Visible = r.Visible
	return true
}

// UpdateShape lets fetch fill a buffer of at least size bytes and makes it
// the current shape if fetch succeeds. A failed fetch leaves the previous
// shape intact.
func (t *CursorTracker) UpdateShape(size int, fetch func(buf []byte) (PointerShapeInfo, int, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if want := max(size, len(t.shape)); len(t.spare) < want {
		t.spare = append(t.spare, make([]byte, want-len(t.spare))...)
	}
	info, n, err := fetch(t.spare[:size])
	if err != nil {
		return err
	}
	if n <= 0 || n > size {
		n = size
	}
	t.shape, t.spare = t.spare, t.shape
	t.state.Shape = info
	t.shapeN = n
	return nil
}

// ShapeCapacity returns the current size of the shape buffer.
func (t *CursorTracker) ShapeCapacity() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.shape)
}

// draw composites the tracked cursor onto frame if it is visible. The
// frame belongs to an output whose top-left corner is outputOrigin.
func (t *CursorTracker) draw(f frame, outputOrigin image.Point) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.Visible || t.shapeN == 0 {
		return
	}
	pos := t.state.Position.Add(t.origin).Sub(outputOrigin)
	drawCursor(f, pos, t.shape[:t.shapeN], t.state.Shape)
}
