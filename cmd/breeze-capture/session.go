package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/breeze-rmm/screencap/internal/config"
	"github.com/breeze-rmm/screencap/internal/desktop"
)

// session is one Capturer plus the displays it was opened from.
type session struct {
	displays []*desktop.Display
	capturer *desktop.Capturer
	display  *desktop.Display
}

func listDisplays() ([]*desktop.Display, error) {
	api, err := desktop.NativeAPI()
	if err != nil {
		return nil, err
	}
	ds, err := desktop.EnumerateDisplays(api)
	if err != nil {
		return nil, err
	}
	return ds.Collect(), nil
}

func closeDisplays(displays []*desktop.Display) {
	for _, d := range displays {
		d.Close()
	}
}

func openSession(cfg *config.Config) (*session, error) {
	displays, err := listDisplays()
	if err != nil {
		return nil, err
	}
	if cfg.DisplayIndex >= len(displays) {
		closeDisplays(displays)
		return nil, fmt.Errorf("display %d not found (%d available)", cfg.DisplayIndex, len(displays))
	}
	d := displays[cfg.DisplayIndex]

	var opts []desktop.Option
	if cfg.SharedCursor {
		opts = append(opts, desktop.WithCursorTracker(desktop.NewCursorTracker(displays...)))
	}
	c, err := desktop.NewCapturer(d, cfg.TrackCursor, opts...)
	if err != nil {
		closeDisplays(displays)
		return nil, err
	}
	return &session{displays: displays, capturer: c, display: d}, nil
}

func (s *session) name() string {
	return s.display.Name()
}

func (s *session) Close() {
	s.capturer.Close()
	closeDisplays(s.displays)
}

// nextFrame polls until a frame arrives, a non-retryable error occurs, or
// attempts run out. A static desktop yields no frames, so callers pass
// enough attempts to cover a repaint.
func nextFrame(c *desktop.Capturer, timeout time.Duration, attempts int) ([]byte, error) {
	var err error
	for i := 0; i < attempts; i++ {
		var buf []byte
		buf, err = c.Frame(timeout)
		if err == nil {
			return buf, nil
		}
		if !desktop.KindOf(err).Retryable() {
			return nil, err
		}
	}
	if errors.Is(err, desktop.ErrTimedOut) {
		return nil, fmt.Errorf("no desktop update after %d attempts: %w", attempts, err)
	}
	return nil, err
}
