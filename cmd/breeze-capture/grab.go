package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/breeze-rmm/screencap/internal/frames"
	"github.com/spf13/cobra"
)

var (
	grabDisplay  int
	grabOut      string
	grabAttempts int
	grabRegion   string
)

var grabCmd = &cobra.Command{
	Use:   "grab",
	Short: "Capture one frame to a PNG file",
	RunE: func(cmd *cobra.Command, args []string) error {
		var region image.Rectangle
		if grabRegion != "" {
			r, err := parseRegion(grabRegion)
			if err != nil {
				return err
			}
			region = r
		}
		return grab(region)
	},
}

func init() {
	grabCmd.Flags().IntVar(&grabDisplay, "display", 0, "display index (see 'displays')")
	grabCmd.Flags().StringVarP(&grabOut, "out", "o", "", "output file (default <output_dir>/display<N>-<time>.png)")
	grabCmd.Flags().IntVar(&grabAttempts, "attempts", 20, "frame pulls to try before giving up")
	grabCmd.Flags().StringVar(&grabRegion, "region", "", "save only x,y,width,height of the display")
}

// grab saves one frame, cropped to region unless region is empty.
func grab(region image.Rectangle) error {
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	c := s.capturer
	buf, err := nextFrame(c, cfg.FrameTimeout(), grabAttempts)
	if err != nil {
		return err
	}
	img, err := frames.ToRGBA(buf, c.Width(), c.Height(), c.Pitch())
	if err != nil {
		return err
	}
	defer frames.Snapshot.Put(img)

	var out image.Image = img
	if !region.Empty() {
		cropped, err := frames.Crop(img, region)
		if err != nil {
			return err
		}
		out = cropped
	}

	path := grabOut
	if path == "" {
		path = filepath.Join(cfg.OutputDir, snapshotName(int(c.Output()), time.Now()))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	size := out.Bounds().Size()
	log.Info("frame saved", "path", path, "display", s.name(), "width", size.X, "height", size.Y)
	fmt.Println(path)
	return nil
}

// parseRegion reads "x,y,width,height" in display pixels.
func parseRegion(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("region %q: want x,y,width,height", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	if v[0] < 0 || v[1] < 0 || v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("region %q: origin must be non-negative and size positive", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

func snapshotName(output int, t time.Time) string {
	return fmt.Sprintf("display%d-%s.png", output, t.Format("20060102-150405"))
}
