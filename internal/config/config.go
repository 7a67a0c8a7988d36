// Package config handles configuration for xcauth, including defaults,
// a JSON file overlay, environment variables and command-line flags.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/xcauth/internal/common"
	"github.com/dmitrijs2005/xcauth/internal/protocol"
)

// DefaultLogDir matches the ejabberd package layout.
const DefaultLogDir = "/var/log/ejabberd"

// Mode selects what the process does after startup.
type Mode int

const (
	ModeNone Mode = iota
	ModeAuthTest
	ModeIsUserTest
	ModeIssueToken
	ModeServe
)

// Config holds runtime settings for xcauth.
//
// Fields:
//   - URL: cloud endpoint answering auth/isuser requests.
//   - Secret: shared secret. Signs cloud requests (HMAC-SHA1) and verifies tokens (HMAC-SHA256).
//   - LogDir: directory of extauth.log / extauth.err in serve mode.
//   - Debug: log at debug level.
//   - ServerType: "ejabberd" or "prosody"; selects the wire protocol.
//   - AuthTest / IsUserTest / IssueToken: one-shot query arguments.
//   - Timeout: upper bound for a single cloud request.
//   - TokenTTL: lifetime of tokens printed by the issue-token mode.
//   - Metrics / Traces: enable OpenTelemetry file exporters in LogDir.
type Config struct {
	URL         string
	Secret      string
	LogDir      string
	Debug       bool
	ServerType  string
	AuthTest    []string
	IsUserTest  []string
	IssueToken  []string
	Timeout     time.Duration
	TokenTTL    time.Duration
	Metrics     bool
	Traces      bool
	ShowVersion bool
}

// LoadDefaults populates Config with defaults. URL and Secret have none.
func (c *Config) LoadDefaults() {
	c.LogDir = DefaultLogDir
	c.Timeout = 10 * time.Second
	c.TokenTTL = time.Hour
}

// Mode reports the selected mode. -A takes precedence over -I over -T over -t.
func (c *Config) Mode() Mode {
	switch {
	case c.AuthTest != nil:
		return ModeAuthTest
	case c.IsUserTest != nil:
		return ModeIsUserTest
	case c.IssueToken != nil:
		return ModeIssueToken
	case c.ServerType != "":
		return ModeServe
	default:
		return ModeNone
	}
}

// Validate reports configuration errors that must prevent startup.
func (c *Config) Validate() error {
	mode := c.Mode()
	if mode == ModeNone {
		return common.ErrMissingMode
	}
	if c.Secret == "" {
		return common.ErrMissingSecret
	}
	if mode == ModeIssueToken {
		return nil
	}
	if c.URL == "" {
		return common.ErrMissingURL
	}
	if _, err := url.ParseRequestURI(c.URL); err != nil {
		return fmt.Errorf("invalid cloud url %q: %w", c.URL, err)
	}
	if mode == ModeServe {
		if _, err := protocol.ParseServerType(c.ServerType); err != nil {
			return err
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally from flags.
// args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
