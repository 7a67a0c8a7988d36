package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/xcauth/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short and long forms):
//
//	-u, --url string            cloud endpoint
//	-s, --secret string         shared secret
//	-l, --log string            log directory
//	-d, --debug                 debug logging
//	-t, --type string           ejabberd | prosody; serve stdin until EOF
//	-A, --auth-test U D P       one-shot auth query
//	-I, --isuser-test U D       one-shot isuser query
//	-T, --issue-token U D       print a fresh token
//	    --timeout duration      cloud request timeout
//	    --token-ttl duration    lifetime of issued tokens
//	    --metrics, --traces     OpenTelemetry file exporters
//	-c, --config-file string    JSON config file (handled by parseJson)
//	    --version               print version and exit
//
// Multi-value flags are extracted with flagx.SplitMulti before the
// remaining arguments are handed to the flag package.
func parseFlags(config *Config, args []string) error {
	authTest, args, err := flagx.SplitMulti(args, []string{"A", "auth-test"}, 3)
	if err != nil {
		return err
	}
	isUserTest, args, err := flagx.SplitMulti(args, []string{"I", "isuser-test"}, 2)
	if err != nil {
		return err
	}
	issueToken, args, err := flagx.SplitMulti(args, []string{"T", "issue-token"}, 2)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("xcauth", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	fs.StringVar(&config.URL, "u", config.URL, "base URL")
	fs.StringVar(&config.URL, "url", config.URL, "base URL")
	fs.StringVar(&config.Secret, "s", config.Secret, "secure api token")
	fs.StringVar(&config.Secret, "secret", config.Secret, "secure api token")
	fs.StringVar(&config.LogDir, "l", config.LogDir, "log directory")
	fs.StringVar(&config.LogDir, "log", config.LogDir, "log directory")
	fs.BoolVar(&config.Debug, "d", config.Debug, "enable debug mode")
	fs.BoolVar(&config.Debug, "debug", config.Debug, "enable debug mode")
	fs.StringVar(&config.ServerType, "t", config.ServerType, "XMPP server type (prosody, ejabberd)")
	fs.StringVar(&config.ServerType, "type", config.ServerType, "XMPP server type (prosody, ejabberd)")
	fs.DurationVar(&config.Timeout, "timeout", config.Timeout, "cloud request timeout")
	fs.DurationVar(&config.TokenTTL, "token-ttl", config.TokenTTL, "lifetime of tokens printed by --issue-token")
	fs.BoolVar(&config.Metrics, "metrics", config.Metrics, "write OpenTelemetry metrics to the log directory")
	fs.BoolVar(&config.Traces, "traces", config.Traces, "write OpenTelemetry traces to the log directory")
	fs.BoolVar(&config.ShowVersion, "version", config.ShowVersion, "print version and exit")

	// parsed by parseJson; declared so the flag package accepts it
	var configFile string
	fs.StringVar(&configFile, "c", "", "config file path")
	fs.StringVar(&configFile, "config-file", "", "config file path")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if authTest != nil {
		config.AuthTest = authTest
	}
	if isUserTest != nil {
		config.IsUserTest = isUserTest
	}
	if issueToken != nil {
		config.IssueToken = issueToken
	}
	return nil
}
