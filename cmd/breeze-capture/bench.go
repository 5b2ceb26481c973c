package main

import (
	"fmt"
	"os"
	"time"

	"github.com/breeze-rmm/screencap/internal/desktop"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
)

const defaultBenchFrames = 1000

var benchFrames = defaultBenchFrames

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Pull frames in a tight loop and report throughput and memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return bench()
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchFrames, "frames", defaultBenchFrames, "number of frame pulls")
}

func rss(p *process.Process) uint64 {
	if p == nil {
		return 0
	}
	mi, err := p.MemoryInfo()
	if err != nil {
		log.Debug("memory info unavailable", "error", err)
		return 0
	}
	return mi.RSS
}

func bench() error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("process stats unavailable", "error", err)
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	c := s.capturer

	before := rss(proc)
	var frames, timeouts, busy int
	start := time.Now()
	for i := 0; i < cfg.Frames; i++ {
		_, err := c.Frame(cfg.FrameTimeout())
		switch desktop.KindOf(err) {
		case desktop.KindTimedOut:
			timeouts++
			continue
		case desktop.KindTemporarilyUnavailable:
			busy++
			continue
		}
		if err != nil {
			return fmt.Errorf("pull %d: %w", i, err)
		}
		frames++
	}
	elapsed := time.Since(start)
	after := rss(proc)

	fmt.Printf("display:   %s (fastlane=%v)\n", s.name(), c.Fastlane())
	fmt.Printf("pulls:     %d in %s\n", cfg.Frames, elapsed.Round(time.Millisecond))
	fmt.Printf("frames:    %d (%.1f/s)\n", frames, float64(frames)/elapsed.Seconds())
	fmt.Printf("timeouts:  %d\n", timeouts)
	fmt.Printf("busy:      %d\n", busy)
	if before > 0 && after > 0 {
		fmt.Printf("rss:       %.1f MB -> %.1f MB (%+.1f MB)\n",
			mb(before), mb(after), mb(after)-mb(before))
	}
	return nil
}

func mb(b uint64) float64 {
	return float64(b) / (1 << 20)
}
