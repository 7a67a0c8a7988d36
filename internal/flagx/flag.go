// Package flagx pre-processes command-line arguments before they reach the
// standard flag package: it picks out the config-file flag ahead of the
// full parse and extracts flags that take several values.
//
// Flag names handed to this package are written without dashes; both the
// "-name" and "--name" spellings match, as with the flag package itself.
package flagx

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// flagName returns the bare name of arg and an inline "=value" if present.
// ok is false for arguments that are not flags at all.
func flagName(arg string) (name, value string, inline, ok bool) {
	if len(arg) < 2 || arg[0] != '-' || arg == "--" {
		return "", "", false, false
	}
	name = strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
	if i := strings.IndexByte(name, '='); i >= 0 {
		return name[:i], name[i+1:], true, true
	}
	return name, "", false, true
}

// FilterArgs returns the subset of args made of the allowed flags and their
// values, in order.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      --config-file=conf.json
//
// A separate value is only taken when it does not itself look like a flag.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		name, _, inline, ok := flagName(args[i])
		if !ok {
			continue
		}
		if _, keep := allowed[name]; !keep {
			continue
		}
		filtered = append(filtered, args[i])
		if !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFile extracts the config file path given with -c or --config-file.
// Other arguments are ignored. If the flag is repeated the last one wins;
// if it is absent an empty string is returned.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "c", "", "config file path")
	fs.StringVar(&path, "config-file", "", "config file path")
	_ = fs.Parse(FilterArgs(args, []string{"c", "config-file"}))

	return path
}

// SplitMulti removes every occurrence of a flag taking exactly n values
// (e.g. "-A USER DOMAIN PASSWORD") from args. The values are taken verbatim,
// even when they start with a dash. The last occurrence wins.
//
// It returns the values (nil when the flag is absent) and the remaining
// arguments, or an error when fewer than n values follow the flag.
func SplitMulti(args []string, names []string, n int) (values []string, rest []string, err error) {
	match := make(map[string]struct{}, len(names))
	for _, name := range names {
		match[name] = struct{}{}
	}

	rest = make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		name, _, inline, ok := flagName(args[i])
		if _, hit := match[name]; !ok || !hit {
			rest = append(rest, args[i])
			continue
		}
		if inline {
			return nil, nil, fmt.Errorf("flag %s takes %d separate values", args[i], n)
		}
		if i+n >= len(args) {
			return nil, nil, fmt.Errorf("flag %s needs %d values, got %d", args[i], n, len(args)-i-1)
		}
		values = append(values[:0:0], args[i+1:i+1+n]...)
		i += n
	}

	return values, rest, nil
}
