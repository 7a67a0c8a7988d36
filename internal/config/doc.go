// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) named by -c / --config-file,
//     or /etc/xcauth.json when that file exists.
//  3. Environment (see parseEnv), after loading an optional ./.env file.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Durations are strings like "10s" or integer nanoseconds:
//
//	{
//	  "url": "https://cloud.example.com/apps/ojsxc/ajax/externalApi.php",
//	  "secret": "...",
//	  "log": "/var/log/ejabberd",
//	  "debug": false,
//	  "type": "ejabberd",
//	  "timeout": "10s"
//	}
package config
