package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFile is loaded into the process environment when present. Variables
// already set in the environment are not overridden.
var envFile = ".env"

// parseEnv overlays XCAUTH_* environment variables onto config.
//
//	XCAUTH_URL      cloud endpoint
//	XCAUTH_SECRET   shared secret
//	XCAUTH_LOG      log directory
//	XCAUTH_DEBUG    debug logging (bool)
//	XCAUTH_TYPE     ejabberd | prosody
//	XCAUTH_TIMEOUT  cloud request timeout (duration)
func parseEnv(config *Config) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	if v, ok := os.LookupEnv("XCAUTH_URL"); ok {
		config.URL = v
	}
	if v, ok := os.LookupEnv("XCAUTH_SECRET"); ok {
		config.Secret = v
	}
	if v, ok := os.LookupEnv("XCAUTH_LOG"); ok {
		config.LogDir = v
	}
	if v, ok := os.LookupEnv("XCAUTH_TYPE"); ok {
		config.ServerType = v
	}
	if v, ok := os.LookupEnv("XCAUTH_DEBUG"); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid XCAUTH_DEBUG: %w", err)
		}
		config.Debug = debug
	}
	if v, ok := os.LookupEnv("XCAUTH_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid XCAUTH_TIMEOUT: %w", err)
		}
		config.Timeout = timeout
	}
	return nil
}
