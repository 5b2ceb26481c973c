package config

import (
	"fmt"
	"strings"
	"unicode"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

const (
	maxFrameTimeoutMs = 10000
	maxFrames         = 1000000
)

// ValidationResult separates problems that must stop the program from
// values that were corrected in place.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r ValidationResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// AllErrors returns fatals followed by warnings.
func (r ValidationResult) AllErrors() []error {
	all := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	all = append(all, r.Fatals...)
	all = append(all, r.Warnings...)
	return all
}

// ValidateTiered checks the config. Out-of-range numbers are clamped and
// reported as warnings; values that cannot be corrected are fatal.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	if c.DisplayIndex < 0 {
		r.Fatals = append(r.Fatals, fmt.Errorf("display_index %d must not be negative", c.DisplayIndex))
	}

	if strings.IndexFunc(c.OutputDir, unicode.IsControl) >= 0 {
		r.Fatals = append(r.Fatals, fmt.Errorf("output_dir contains control characters"))
	}
	if strings.IndexFunc(c.LogFile, unicode.IsControl) >= 0 {
		r.Fatals = append(r.Fatals, fmt.Errorf("log_file contains control characters"))
	}

	if c.FrameTimeoutMs < 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("frame_timeout_ms %d is below minimum 0, clamping", c.FrameTimeoutMs))
		c.FrameTimeoutMs = 0
	} else if c.FrameTimeoutMs > maxFrameTimeoutMs {
		r.Warnings = append(r.Warnings, fmt.Errorf("frame_timeout_ms %d exceeds maximum %d, clamping", c.FrameTimeoutMs, maxFrameTimeoutMs))
		c.FrameTimeoutMs = maxFrameTimeoutMs
	}

	if c.Frames < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("frames %d is below minimum 1, clamping", c.Frames))
		c.Frames = 1
	} else if c.Frames > maxFrames {
		r.Warnings = append(r.Warnings, fmt.Errorf("frames %d exceeds maximum %d, clamping", c.Frames, maxFrames))
		c.Frames = maxFrames
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	if c.LogMaxSizeMB < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_max_size_mb %d is below minimum 1, clamping", c.LogMaxSizeMB))
		c.LogMaxSizeMB = 1
	}
	if c.LogMaxBackups < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_max_backups %d is below minimum 1, clamping", c.LogMaxBackups))
		c.LogMaxBackups = 1
	}

	return r
}
