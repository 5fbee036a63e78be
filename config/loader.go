package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// UserConfigDir is the directory for user-level config, relative to $HOME.
	UserConfigDir = ".config/urcuisine"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger   *slog.Logger
	userPath string
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, userPath: userConfigPath()}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/urcuisine/config.yaml)
// 3. The file at path, when non-empty
//
// A missing user config is ignored; a missing explicit file is an error.
// Command-line flags are merged by the caller on top of the result.
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	if l.userPath != "" {
		if userConfig, err := LoadFromFile(l.userPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", l.userPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", l.userPath), slog.String("error", err.Error()))
		}
	}

	if path != "" {
		explicit, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config", slog.String("path", path))
		config.Merge(explicit)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't
// exist and returns its path.
func (l *Loader) EnsureUserConfig() (string, error) {
	if _, err := os.Stat(l.userPath); err == nil {
		return l.userPath, nil
	}
	if err := DefaultConfig().SaveToFile(l.userPath); err != nil {
		return "", err
	}
	l.logger.Info("Created default user config", slog.String("path", l.userPath))
	return l.userPath, nil
}

func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}
