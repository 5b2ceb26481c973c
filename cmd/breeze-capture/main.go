package main

import (
	"fmt"
	"io"
	"os"

	"github.com/breeze-rmm/screencap/internal/config"
	"github.com/breeze-rmm/screencap/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version  = "0.1.0"
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logFile  io.Closer
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "breeze-capture",
	Short: "Breeze screen capture",
	Long:  `breeze-capture - DXGI desktop duplication frame grabber with cursor compositing`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("breeze-capture v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is capture.yaml in the Breeze config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(displaysCmd)
	rootCmd.AddCommand(grabCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads and validates the config, then points logging at stderr and
// the optional rotating log file.
func setup(cmd *cobra.Command) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result := resolveConfig(cmd, loaded)
	if result.HasFatals() {
		for _, err := range result.AllErrors() {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
		return fmt.Errorf("invalid configuration")
	}
	cfg = loaded

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			return err
		}
		logFile = rw
		out = logging.Tee(os.Stderr, rw)
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, out)

	for _, w := range result.Warnings {
		log.Warn("config validation", "error", w)
	}
	return nil
}

// resolveConfig applies command-line overrides to c and validates the
// result, so flag values are clamped like file and env values.
func resolveConfig(cmd *cobra.Command, c *config.Config) config.ValidationResult {
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	flags := cmd.Flags()
	if flags.Changed("display") {
		c.DisplayIndex, _ = flags.GetInt("display")
	}
	switch {
	case flags.Changed("frames"):
		c.Frames, _ = flags.GetInt("frames")
	case cmd == benchCmd:
		// bench ignores the config's frames, which sizes watch runs.
		c.Frames = benchFrames
	}
	return c.ValidateTiered()
}
