package desktop

import (
	"fmt"
	"image"
	"unicode/utf16"
)

// Rotation is the output's DXGI_MODE_ROTATION.
type Rotation uint32

const (
	RotationUnspecified Rotation = iota
	RotationIdentity
	Rotation90
	Rotation180
	Rotation270
)

func (r Rotation) String() string {
	switch r {
	case RotationIdentity:
		return "identity"
	case Rotation90:
		return "rotate90"
	case Rotation180:
		return "rotate180"
	case Rotation270:
		return "rotate270"
	default:
		return "unspecified"
	}
}

// swapsAxes reports whether the native surface is transposed relative to
// the desktop coordinates.
func (r Rotation) swapsAxes() bool {
	return r == Rotation90 || r == Rotation270
}

// OutputID identifies an output within one enumeration pass. It is the
// display's ordinal across all adapters.
type OutputID uint32

// Display is a snapshot of one capturable output. It holds a reference on
// its adapter and on the output's duplication interface until Close.
type Display struct {
	api     API
	id      OutputID
	adapter Adapter
	output  DuplicableOutput
	desc    OutputDesc
	closed  bool
}

// ID returns the output identifier used for cursor ownership.
func (d *Display) ID() OutputID { return d.id }

// Bounds returns the output rectangle in virtual-desktop coordinates.
func (d *Display) Bounds() image.Rectangle { return d.desc.DesktopCoordinates }

// Width returns the output width in pixels.
func (d *Display) Width() int {
	return d.desc.DesktopCoordinates.Max.X - d.desc.DesktopCoordinates.Min.X
}

// Height returns the output height in pixels.
func (d *Display) Height() int {
	return d.desc.DesktopCoordinates.Max.Y - d.desc.DesktopCoordinates.Min.Y
}

func (d *Display) Rotation() Rotation { return d.desc.Rotation }

// Attached reports whether the output is part of the desktop.
func (d *Display) Attached() bool { return d.desc.AttachedToDesktop }

// Name returns the GDI device name, e.g. `\\.\DISPLAY1`.
func (d *Display) Name() string {
	name := d.desc.DeviceName[:]
	for i, c := range name {
		if c == 0 {
			name = name[:i]
			break
		}
	}
	return string(utf16.Decode(name))
}

func (d *Display) String() string {
	return fmt.Sprintf("%s %dx%d@(%d,%d) %s", d.Name(), d.Width(), d.Height(),
		d.desc.DesktopCoordinates.Min.X, d.desc.DesktopCoordinates.Min.Y, d.desc.Rotation)
}

// Close releases the output and this display's adapter reference. The
// adapter itself is freed once every display from it has been closed.
func (d *Display) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.output.Release()
	d.adapter.Release()
}
