package main

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/breeze-rmm/screencap/internal/desktop"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether this machine can capture the desktop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return yaml.NewEncoder(os.Stdout).Encode(diagnose())
	},
}

type doctorReport struct {
	Version  string        `yaml:"version"`
	Host     hostReport    `yaml:"host"`
	Ready    bool          `yaml:"ready"`
	Problems []string      `yaml:"problems,omitempty"`
	Displays []displayInfo `yaml:"displays,omitempty"`
	Capture  *captureCheck `yaml:"capture,omitempty"`
}

type hostReport struct {
	Hostname string `yaml:"hostname"`
	OS       string `yaml:"os"`
	Platform string `yaml:"platform"`
	Kernel   string `yaml:"kernel"`
	Arch     string `yaml:"arch"`
	CPU      string `yaml:"cpu,omitempty"`
	MemoryMB uint64 `yaml:"memoryMb,omitempty"`
}

type captureCheck struct {
	Display  string `yaml:"display"`
	Fastlane bool   `yaml:"fastlane"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Result   string `yaml:"result"`
}

func diagnose() doctorReport {
	r := doctorReport{Version: version, Host: hostReport{Arch: runtime.GOARCH}}

	if info, err := host.Info(); err == nil {
		r.Host.Hostname = info.Hostname
		r.Host.OS = info.OS
		r.Host.Platform = info.Platform + " " + info.PlatformVersion
		r.Host.Kernel = info.KernelVersion
		if info.OS == "windows" && !supportsDuplication(info.PlatformVersion) {
			r.Problems = append(r.Problems, "desktop duplication needs Windows 8 or later")
		}
	} else {
		log.Warn("host info unavailable", "error", err)
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		r.Host.CPU = cpus[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.Host.MemoryMB = vm.Total / (1 << 20)
	}

	displays, err := listDisplays()
	if err != nil {
		r.Problems = append(r.Problems, err.Error())
		return r
	}
	for _, d := range displays {
		r.Displays = append(r.Displays, describeDisplay(d))
	}
	closeDisplays(displays)
	if len(r.Displays) == 0 {
		r.Problems = append(r.Problems, "no capturable displays found")
		return r
	}

	r.Capture = checkCapture()
	r.Ready = len(r.Problems) == 0
	return r
}

// checkCapture opens the configured display and pulls a single frame.
func checkCapture() *captureCheck {
	s, err := openSession(cfg)
	if err != nil {
		return &captureCheck{Result: err.Error()}
	}
	defer s.Close()

	c := s.capturer
	p := &captureCheck{
		Display:  s.name(),
		Fastlane: c.Fastlane(),
		Width:    c.Width(),
		Height:   c.Height(),
		Result:   "ok",
	}
	if _, err := nextFrame(c, cfg.FrameTimeout(), 10); err != nil {
		switch desktop.KindOf(err) {
		case desktop.KindTimedOut:
			p.Result = "no desktop update during capture check"
		default:
			p.Result = err.Error()
		}
	}
	return p
}

// supportsDuplication reports whether a Windows version string such as
// "6.1.7601 Build 7601" or "10.0.19045 Build 19045" is at least 6.2.
func supportsDuplication(version string) bool {
	words := strings.Fields(version)
	if len(words) == 0 {
		return true
	}
	fields := strings.SplitN(words[0], ".", 3)
	if len(fields) < 2 {
		return true
	}
	major, err1 := strconv.Atoi(fields[0])
	minor, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return true
	}
	return major > 6 || (major == 6 && minor >= 2)
}
