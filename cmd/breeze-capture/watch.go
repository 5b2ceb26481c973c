package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/breeze-rmm/screencap/internal/desktop"
	"github.com/breeze-rmm/screencap/internal/frames"
	"github.com/breeze-rmm/screencap/internal/health"
	"github.com/breeze-rmm/screencap/internal/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	maxReconnects    = 5
	reconnectBackoff = 500 * time.Millisecond
)

var watchFrames int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll frames and report session health",
	Long: `Polls the configured display, counting changed frames and timeouts.
The capture session is rebuilt when the desktop switches or the display
mode changes. Stops after --frames pulls or on Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watch(ctx)
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchFrames, "frames", 0, "number of frame pulls (default from config)")
}

func watch(ctx context.Context) error {
	monitor := health.NewMonitor()
	differ := frames.NewDiffer()

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if s != nil {
			s.Close()
		}
	}()
	logger := logging.WithDisplay(logging.L("watch"), s.name(), uint32(s.capturer.Output()))
	ctx = logging.NewContext(ctx, logger)

	reconnects := 0
	changed := 0
	for pull := 0; pull < cfg.Frames && ctx.Err() == nil; pull++ {
		c := s.capturer
		buf, err := c.Frame(cfg.FrameTimeout())
		monitor.Observe(s.name(), err)

		switch {
		case err == nil:
			if differ.FrameChanged(buf, c.Width(), c.Height(), c.Pitch(), c.LastFrameInfo().AccumulatedFrames) {
				changed++
			}
			if cur := c.Cursor(); cur.Visible {
				logger.Debug("frame", "accumulated", c.LastFrameInfo().AccumulatedFrames, "cursorX", cur.Position.X, "cursorY", cur.Position.Y)
			}
		case desktop.KindOf(err).Retryable():
		case errors.Is(err, desktop.ErrSessionInvalidated):
			if reconnects >= maxReconnects {
				return fmt.Errorf("giving up after %d reconnects: %w", reconnects, err)
			}
			reconnects++
			logger.Warn("rebuilding capture session", "attempt", reconnects, "error", err)
			s.Close()
			s = nil
			if s, err = reopen(ctx, reconnects); err != nil {
				return err
			}
			differ.Reset()
		default:
			return err
		}
	}

	total, skipped := differ.Stats()
	report := struct {
		Pulls      uint64         `yaml:"frames"`
		Changed    int            `yaml:"changed"`
		Unchanged  uint64         `yaml:"unchanged"`
		Reconnects int            `yaml:"reconnects"`
		Overall    health.Status  `yaml:"overall"`
		Sessions   []health.Check `yaml:"sessions"`
	}{total, changed, skipped, reconnects, monitor.Overall(), monitor.All()}
	return yaml.NewEncoder(os.Stdout).Encode(report)
}

// reopen waits out the desktop switch and opens a new session.
func reopen(ctx context.Context, attempt int) (*session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Duration(attempt) * reconnectBackoff):
	}
	s, err := openSession(cfg)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("capture session rebuilt", "attempt", attempt, "fastlane", s.capturer.Fastlane())
	return s, nil
}
