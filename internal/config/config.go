package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DisplayIndex   int    `mapstructure:"display_index" yaml:"display_index"`
	TrackCursor    bool   `mapstructure:"track_cursor" yaml:"track_cursor"`
	FrameTimeoutMs int    `mapstructure:"frame_timeout_ms" yaml:"frame_timeout_ms"`
	Frames         int    `mapstructure:"frames" yaml:"frames"`
	SharedCursor   bool   `mapstructure:"shared_cursor" yaml:"shared_cursor"`
	OutputDir      string `mapstructure:"output_dir" yaml:"output_dir"`

	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat     string `mapstructure:"log_format" yaml:"log_format"`
	LogFile       string `mapstructure:"log_file" yaml:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb" yaml:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups" yaml:"log_max_backups"`
}

func Default() *Config {
	return &Config{
		TrackCursor:    true,
		FrameTimeoutMs: 100,
		Frames:         1,
		OutputDir:      ".",
		LogLevel:       "info",
		LogFormat:      "text",
		LogMaxSizeMB:   10,
		LogMaxBackups:  3,
	}
}

// FrameTimeout is the per-pull wait handed to the capture session.
func (c *Config) FrameTimeout() time.Duration {
	return time.Duration(c.FrameTimeoutMs) * time.Millisecond
}

// Load reads capture.yaml (or cfgFile) and BREEZE_CAPTURE_* environment
// variables over the defaults. A missing config file is not an error.
func Load(cfgFile string) (*Config, error) {
	return load(viper.New(), cfgFile)
}

func load(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := Default()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("capture")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BREEZE_CAPTURE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during
// Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("display_index", cfg.DisplayIndex)
	v.SetDefault("track_cursor", cfg.TrackCursor)
	v.SetDefault("frame_timeout_ms", cfg.FrameTimeoutMs)
	v.SetDefault("frames", cfg.Frames)
	v.SetDefault("shared_cursor", cfg.SharedCursor)
	v.SetDefault("output_dir", cfg.OutputDir)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("log_max_size_mb", cfg.LogMaxSizeMB)
	v.SetDefault("log_max_backups", cfg.LogMaxBackups)
}

// SaveTo writes cfg as yaml to cfgFile, or to capture.yaml in the platform
// config directory when cfgFile is empty.
func SaveTo(cfg *Config, cfgFile string) error {
	v := viper.New()
	v.Set("display_index", cfg.DisplayIndex)
	v.Set("track_cursor", cfg.TrackCursor)
	v.Set("frame_timeout_ms", cfg.FrameTimeoutMs)
	v.Set("frames", cfg.Frames)
	v.Set("shared_cursor", cfg.SharedCursor)
	v.Set("output_dir", cfg.OutputDir)
	v.Set("log_level", cfg.LogLevel)
	v.Set("log_format", cfg.LogFormat)
	v.Set("log_file", cfg.LogFile)
	v.Set("log_max_size_mb", cfg.LogMaxSizeMB)
	v.Set("log_max_backups", cfg.LogMaxBackups)

	path := cfgFile
	if path == "" {
		path = filepath.Join(configDir(), "capture.yaml")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	v.SetConfigType("yaml")
	return v.WriteConfigAs(path)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Breeze")
	case "darwin":
		return "/Library/Application Support/Breeze"
	default:
		return "/etc/breeze"
	}
}
