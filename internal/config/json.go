package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/xcauth/internal/flagx"
)

// defaultConfigFiles are tried in order when no -c flag is given.
var defaultConfigFiles = []string{"/etc/xcauth.json"}

// Duration accepts either a Go duration string ("10s") or integer
// nanoseconds when unmarshalled from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

// JsonConfig is the on-disk shape of the config file. Absent keys leave
// the corresponding Config field untouched.
type JsonConfig struct {
	URL      string    `json:"url"`
	Secret   string    `json:"secret"`
	LogDir   string    `json:"log"`
	Debug    *bool     `json:"debug"`
	Type     string    `json:"type"`
	Timeout  *Duration `json:"timeout"`
	TokenTTL *Duration `json:"token_ttl"`
	Metrics  *bool     `json:"metrics"`
	Traces   *bool     `json:"traces"`
}

// parseJson loads configuration values from a JSON file into config.
//
// The file is the one named by -c/--config-file; without the flag the
// first existing entry of defaultConfigFiles is used, and a missing
// default file is not an error.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		for _, candidate := range defaultConfigFiles {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	// nothing to load
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	if c.URL != "" {
		config.URL = c.URL
	}
	if c.Secret != "" {
		config.Secret = c.Secret
	}
	if c.LogDir != "" {
		config.LogDir = c.LogDir
	}
	if c.Debug != nil {
		config.Debug = *c.Debug
	}
	if c.Type != "" {
		config.ServerType = c.Type
	}
	if c.Timeout != nil {
		config.Timeout = c.Timeout.Duration
	}
	if c.TokenTTL != nil {
		config.TokenTTL = c.TokenTTL.Duration
	}
	if c.Metrics != nil {
		config.Metrics = *c.Metrics
	}
	if c.Traces != nil {
		config.Traces = *c.Traces
	}
}
