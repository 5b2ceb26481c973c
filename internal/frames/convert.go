package frames

import (
	"fmt"
	"image"
)

// Snapshot is the pool ToRGBA draws from.
var Snapshot ImagePool

// ToRGBA copies a borrowed BGRA frame into a pooled *image.RGBA, swapping
// the red and blue channels. Rows are stepped by pitch, which may exceed
// width*4. Return the image with Snapshot.Put when done.
func ToRGBA(bgra []byte, width, height, pitch int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	rowBytes := width * 4
	if pitch < rowBytes {
		return nil, fmt.Errorf("pitch %d shorter than row of %d bytes", pitch, rowBytes)
	}
	if need := (height-1)*pitch + rowBytes; len(bgra) < need {
		return nil, fmt.Errorf("frame buffer holds %d bytes, need %d", len(bgra), need)
	}

	img := Snapshot.Get(width, height)
	for y := 0; y < height; y++ {
		src := bgra[y*pitch : y*pitch+rowBytes]
		dst := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		for i := 0; i < rowBytes; i += 4 {
			dst[i] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i]
			dst[i+3] = 0xFF
		}
	}
	return img, nil
}

// Crop copies region r out of img into a new image. r must lie within
// img's bounds.
func Crop(img *image.RGBA, r image.Rectangle) (*image.RGBA, error) {
	if r.Empty() || !r.In(img.Bounds()) {
		return nil, fmt.Errorf("region %v out of bounds %v", r, img.Bounds())
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	rowBytes := r.Dx() * 4
	for dy := 0; dy < r.Dy(); dy++ {
		src := img.PixOffset(r.Min.X, r.Min.Y+dy)
		copy(out.Pix[dy*out.Stride:dy*out.Stride+rowBytes], img.Pix[src:src+rowBytes])
	}
	return out, nil
}
