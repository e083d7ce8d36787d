package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hlspack/internal/config"
	"hlspack/internal/logging"
	"hlspack/internal/media/ffprobe"
	"hlspack/internal/services"
	"hlspack/internal/workflow"
)

const defaultEnvFile = ".env"

type commandContext struct {
	configFlag   string
	envFileFlag  string
	logLevelFlag string

	// managerOptions are appended to every workflow manager the CLI builds.
	managerOptions []workflow.Option
	prober         ffprobe.Prober

	envOnce sync.Once
	envErr  error

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

// loadEnv reads --env-file, or ./.env when it exists. Variables already set
// in the environment win.
func (c *commandContext) loadEnv() error {
	c.envOnce.Do(func() {
		path := strings.TrimSpace(c.envFileFlag)
		if path == "" {
			if _, err := os.Stat(defaultEnvFile); err != nil {
				return
			}
			path = defaultEnvFile
		}
		if err := godotenv.Load(path); err != nil {
			c.envErr = services.Wrap(services.ErrConfiguration, "cli", "load env file", path, err)
		}
	})
	return c.envErr
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load config", path, err)
			return
		}
		if level := strings.TrimSpace(c.logLevelFlag); level != "" {
			cfg.Logging.Level = level
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// newLogger builds the CLI logger. With console=false only the log file
// receives records so a terminal progress bar is not interleaved with them.
func (c *commandContext) newLogger(console bool) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if console || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return logging.NewFromConfig(cfg)
	}
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	logFile := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	return logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{logFile},
		ErrorOutputPaths: []string{logFile},
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func requireArg(args []string, name string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", services.Wrap(services.ErrConfiguration, "cli", "arguments", name+" is required", nil)
	}
	return strings.TrimSpace(args[0]), nil
}

var errJobFailed = errors.New("packaging failed")

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
