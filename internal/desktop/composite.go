package desktop

import "image"

// frame is a BGRA pixel buffer with an explicit row pitch.
type frame struct {
	pix    []byte
	width  int
	height int
	pitch  int
}

// offset returns the byte index of pixel (x, y), or -1 when the pixel or
// any of its four bytes falls outside the buffer.
func (f frame) offset(x, y int) int {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return -1
	}
	i := y*f.pitch + x*bytesPerPixel
	if i+3 >= len(f.pix) {
		return -1
	}
	return i
}

// drawCursor blends a pointer shape into f with its hotspot at pos.
// Unknown shape types leave the frame untouched.
func drawCursor(f frame, pos image.Point, shape []byte, info PointerShapeInfo) {
	width := int(info.Width)
	height := int(info.Height)
	pitch := int(info.Pitch)

	switch info.Type {
	case ShapeColor, ShapeMaskedColor:
	case ShapeMonochrome:
		// AND mask on top, XOR mask below it.
		height /= 2
	default:
		return
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dst := f.offset(pos.X+x-info.HotSpot.X, pos.Y+y-info.HotSpot.Y)
			if dst < 0 {
				continue
			}
			switch info.Type {
			case ShapeColor:
				src := y*pitch + x*bytesPerPixel
				if src+3 < len(shape) {
					blendColor(f.pix[dst:dst+4], shape[src:src+4])
				}
			case ShapeMaskedColor:
				src := y*pitch + x*bytesPerPixel
				if src+3 < len(shape) {
					blendMaskedColor(f.pix[dst:dst+4], shape[src:src+4])
				}
			case ShapeMonochrome:
				and := y*pitch + x/8
				xor := and + height*pitch
				if xor < len(shape) {
					bit := uint(7 - x%8)
					blendMonochrome(f.pix[dst:dst+4], shape[and]>>bit&1, shape[xor]>>bit&1)
				}
			}
		}
	}
}

// blendColor alpha-blends src over dst and makes dst opaque.
func blendColor(dst, src []byte) {
	alpha := uint16(src[3])
	if alpha == 0 {
		return
	}
	for i := 0; i < 3; i++ {
		dst[i] = byte((alpha*uint16(src[i]) + (255-alpha)*uint16(dst[i])) / 255)
	}
	dst[3] = 255
}

// blendMaskedColor copies every nonzero source channel over dst.
func blendMaskedColor(dst, src []byte) {
	if src[3] == 0 {
		return
	}
	for i := 0; i < 3; i++ {
		if src[i] != 0 {
			dst[i] = src[i]
		}
	}
	dst[3] = 255
}

// blendMonochrome applies one AND/XOR mask pair: AND=0,XOR=1 inverts,
// AND=0,XOR=0 paints black, AND=1 keeps the screen.
func blendMonochrome(dst []byte, and, xor byte) {
	if and != 0 {
		return
	}
	for i := 0; i < 3; i++ {
		if xor != 0 {
			dst[i] = 255 - dst[i]
		} else {
			dst[i] = 0
		}
	}
}
