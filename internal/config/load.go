package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ParseError reports a configuration file that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load builds the configuration: defaults, then the TOML file at path, then
// the environment overlay, then validation. A missing file is not an error;
// an empty path skips the file step entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No file, defaults apply.
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, &ParseError{Path: path, Err: err}
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays the supported environment variables onto cfg.
// GEMINI_API_KEY and GOOGLE_API_KEY are read by the voice layer, not here.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ATTUNE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ATTUNE_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("ATTUNE_ACTION_LOG"); v != "" {
		cfg.Log.ActionLog.Path = v
	}
	if v := os.Getenv("ATTUNE_GEMINI_MODEL"); v != "" {
		cfg.Voice.Gemini.Model = v
	}
}
