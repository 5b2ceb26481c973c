package desktop

import (
	"errors"
	"fmt"
	"image"
	"time"
	"unsafe"
)

// maxTimeoutMs is the longest bounded wait; 0xFFFFFFFF means INFINITE to
// AcquireNextFrame and is never passed.
const maxTimeoutMs = 0xFFFFFFFE

// frameState tracks the frame held from the duplication. Any state other
// than idle owes a ReleaseFrame.
type frameState int

const (
	stateIdle frameState = iota
	stateAcquired
	stateExposed
)

// Option configures a Capturer.
type Option func(*Capturer)

// WithCursorTracker makes the Capturer report into, and draw from, a
// tracker shared with Capturers on other outputs.
func WithCursorTracker(t *CursorTracker) Option {
	return func(c *Capturer) {
		c.cursor = t
	}
}

// Capturer pulls frames from one output through DXGI Desktop Duplication.
// It is not safe for concurrent use and holds at most one frame at a time.
type Capturer struct {
	device      owned[Device]
	duplication owned[Duplication]
	surface     owned[Surface] // mapped staging surface on the readback path

	// fastlane is fixed at construction: the desktop image already lives
	// in CPU-mapped memory and no GPU copy is needed.
	fastlane      bool
	desktopMapped bool
	state         frameState
	closed        bool

	trackCursor bool
	cursor      *CursorTracker

	output   OutputID
	name     string
	origin   image.Point
	rotation Rotation

	// Geometry of the exposed buffer, in the surface's native orientation.
	width  int
	height int
	pitch  int
	buf    []byte
	info   FrameInfo
}

// NewCapturer opens a duplication session on d. With trackCursor set, every
// frame returned by Frame has the pointer composited into it.
func NewCapturer(d *Display, trackCursor bool, opts ...Option) (*Capturer, error) {
	if d == nil || d.closed {
		return nil, &Error{Kind: KindInvalidRequest, Op: "NewCapturer", Err: errors.New("display is closed")}
	}

	device, err := d.api.CreateDevice(d.adapter)
	if err != nil {
		log.Warn("D3D11 device creation failed", "display", d.Name(), "error", err)
		return nil, fmt.Errorf("create D3D11 device for %s: %w", d.Name(), err)
	}
	dup, err := d.output.Duplicate(device)
	if err != nil {
		device.Release()
		log.Warn("DuplicateOutput failed", "display", d.Name(), "error", err)
		return nil, fmt.Errorf("duplicate output %s: %w", d.Name(), err)
	}

	desc := dup.Desc()
	c := &Capturer{
		fastlane:    desc.DesktopImageInSystemMemory,
		trackCursor: trackCursor,
		output:      d.id,
		name:        d.Name(),
		origin:      d.Bounds().Min,
		rotation:    d.Rotation(),
		width:       d.Width(),
		height:      d.Height(),
	}
	if c.rotation.swapsAxes() {
		c.width, c.height = c.height, c.width
	}
	c.device.set(device)
	c.duplication.set(dup)
	for _, opt := range opts {
		opt(c)
	}
	if c.cursor == nil {
		c.cursor = newPrivateTracker(d.id)
	}

	log.Info("desktop duplication started",
		"display", c.name,
		"output", c.output,
		"width", c.width,
		"height", c.height,
		"rotation", c.rotation.String(),
		"fastlane", c.fastlane,
		"trackCursor", trackCursor,
	)

	// Prime the pipeline; the first acquire commonly times out.
	_, _ = c.Frame(0)
	return c, nil
}

// Frame releases the previous frame, waits up to timeout for a new one and
// returns its BGRA pixels, Pitch() bytes per row. A zero timeout polls.
//
// The returned slice aliases mapped native memory and is valid only until
// the next call to Frame or Close.
func (c *Capturer) Frame(timeout time.Duration) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	ms, err := timeoutMillis(timeout)
	if err != nil {
		return nil, err
	}

	c.releaseExposed()

	dup, _ := c.duplication.get()
	info, res, err := dup.AcquireNextFrame(ms)
	if err != nil {
		if KindOf(err) == KindSessionInvalidated {
			log.Warn("duplication session invalidated", "display", c.name, "error", err)
		}
		return nil, err
	}
	c.state = stateAcquired
	c.info = info

	if err := c.expose(dup, info, res); err != nil {
		return nil, err
	}
	return c.buf, nil
}

// releaseExposed unmaps whatever the last pull exposed and hands the frame
// back to the duplication. An unreleased frame stalls the session.
func (c *Capturer) releaseExposed() {
	dup, ok := c.duplication.get()
	if !ok {
		return
	}
	if c.desktopMapped {
		_ = dup.UnmapDesktopSurface()
		c.desktopMapped = false
	}
	if s, ok := c.surface.take(); ok {
		_ = s.Unmap()
		s.Release()
	}
	c.buf = nil
	if c.state != stateIdle {
		_ = dup.ReleaseFrame()
	}
	c.state = stateIdle
}

// expose turns an acquired frame into CPU-visible pixels. It takes
// ownership of res.
func (c *Capturer) expose(dup Duplication, info FrameInfo, res Resource) error {
	if c.trackCursor && info.LastMouseUpdateTime != 0 {
		if err := c.updateCursor(dup, info); err != nil {
			res.Release()
			return err
		}
	}

	var rect MappedRect
	if c.fastlane {
		res.Release()
		r, err := dup.MapDesktopSurface()
		if err != nil {
			return err
		}
		c.desktopMapped = true
		rect = r
	} else {
		surface, err := c.readback(res)
		if err != nil {
			return err
		}
		r, err := surface.Map()
		if err != nil {
			surface.Release()
			return err
		}
		c.surface.set(surface)
		rect = r
	}

	if rect.Bits == nil || rect.Pitch < c.width*bytesPerPixel {
		return &Error{Kind: KindUnclassified, Op: "Map", Err: fmt.Errorf("unusable mapping: pitch %d for width %d", rect.Pitch, c.width)}
	}
	c.pitch = rect.Pitch
	c.buf = unsafe.Slice(rect.Bits, c.height*rect.Pitch)

	if c.trackCursor {
		c.cursor.draw(frame{pix: c.buf, width: c.width, height: c.height, pitch: c.pitch}, c.origin)
	}
	c.state = stateExposed
	return nil
}

// readback copies the acquired texture into a CPU-readable staging texture
// and returns its surface view. Only the surface outlives this call.
func (c *Capturer) readback(res Resource) (Surface, error) {
	defer res.Release()

	src, err := res.Texture()
	if err != nil {
		return nil, err
	}
	defer src.Release()

	desc := src.Desc()
	if desc.Format != formatB8G8R8A8 {
		return nil, &Error{Kind: KindUnsupported, Op: "Texture", Err: fmt.Errorf("unexpected DXGI format %d", desc.Format)}
	}
	desc.Usage = usageStaging
	desc.BindFlags = 0
	desc.CPUAccessFlags = cpuAccessRead
	desc.MiscFlags = 0

	device, _ := c.device.get()
	staging, err := device.CreateTexture2D(desc)
	if err != nil {
		return nil, err
	}
	defer staging.Release()
	staging.SetEvictionPriority(evictionPriorityMaximum)

	surface, err := staging.Surface()
	if err != nil {
		return nil, err
	}
	device.CopyResource(staging, src)

	c.width, c.height = int(desc.Width), int(desc.Height)
	return surface, nil
}

func (c *Capturer) updateCursor(dup Duplication, info FrameInfo) error {
	c.cursor.Update(c.output, c.origin, PointerReport{
		Position:  info.PointerPosition,
		Visible:   info.PointerVisible,
		Timestamp: info.LastMouseUpdateTime,
	})
	if info.PointerShapeBufferSize == 0 {
		return nil
	}
	return c.cursor.UpdateShape(int(info.PointerShapeBufferSize), dup.PointerShape)
}

// Close releases the exposed frame, the duplication session and the
// device, in that order. It is safe to call more than once.
func (c *Capturer) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.releaseExposed()
	c.duplication.release()
	c.device.release()
	log.Debug("desktop duplication stopped", "display", c.name)
	return nil
}

// Fastlane reports whether frames are read straight from system memory.
func (c *Capturer) Fastlane() bool { return c.fastlane }

// Width is the pixel width of the exposed buffer.
func (c *Capturer) Width() int { return c.width }

// Height is the number of rows in the exposed buffer.
func (c *Capturer) Height() int { return c.height }

// Pitch is the row stride of the last exposed buffer, in bytes.
func (c *Capturer) Pitch() int { return c.pitch }

// Output returns the identifier of the captured output.
func (c *Capturer) Output() OutputID { return c.output }

// Rotation returns the captured output's rotation.
func (c *Capturer) Rotation() Rotation { return c.rotation }

// LastFrameInfo returns the metadata of the last acquired frame.
func (c *Capturer) LastFrameInfo() FrameInfo { return c.info }

// Cursor returns the tracked pointer state.
func (c *Capturer) Cursor() CursorState { return c.cursor.State() }

func timeoutMillis(d time.Duration) (uint32, error) {
	if d < 0 {
		return 0, &Error{Kind: KindInvalidRequest, Op: "Frame", Err: fmt.Errorf("negative timeout %s", d)}
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	if ms > maxTimeoutMs {
		ms = maxTimeoutMs
	}
	return uint32(ms), nil
}
