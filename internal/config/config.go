package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/gpu"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/logger"
)

// Config carries runtime options for pcmonitor. Timing and link settings
// are constants in the bridge and device packages, not options.
type Config struct {
	EnableGPU bool
	NvidiaSMI string
	JSON      bool
	TUI       bool
	LogLevel  string
	LogFormat string
	LogFile   string
}

func Default() Config {
	return Config{
		EnableGPU: true,
		NvidiaSMI: gpu.DefaultCommand,
		JSON:      false,
		TUI:       false,
		LogLevel:  "info",
		LogFormat: "text",
		LogFile:   "",
	}
}

// FromFlags applies environment overrides (including a .env file in the
// working directory, if present), then flags, then validates.
func FromFlags(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Default(), fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if v := os.Getenv("PCMON_GPU"); v == "0" {
		cfg.EnableGPU = false
	}
	if v := os.Getenv("PCMON_NVIDIA_SMI"); v != "" {
		cfg.NvidiaSMI = v
	}
	if v := os.Getenv("PCMON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PCMON_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("PCMON_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	fs := pflag.NewFlagSet("pcmonitor", pflag.ContinueOnError)
	fs.BoolVar(&cfg.EnableGPU, "gpu", cfg.EnableGPU, "query the GPU through nvidia-smi")
	fs.StringVar(&cfg.NvidiaSMI, "nvidia-smi", cfg.NvidiaSMI, "path to the nvidia-smi binary")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "print one snapshot and its frame as JSON and exit")
	fs.BoolVar(&cfg.TUI, "tui", cfg.TUI, "show a live status view while streaming")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text|json")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "append logs to this file instead of stderr")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects option combinations that cannot run.
func (c Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.JSON && c.TUI {
		return fmt.Errorf("--json and --tui are mutually exclusive")
	}
	if c.EnableGPU && c.NvidiaSMI == "" {
		return fmt.Errorf("--nvidia-smi must not be empty when --gpu is set")
	}
	return nil
}
