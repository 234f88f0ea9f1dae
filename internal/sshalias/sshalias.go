// Package sshalias resolves SSH host aliases from the invoking user's
// ~/.ssh/config, purely for the deploy daemon's informational startup
// banner (it never changes what host the daemon actually talks to).
package sshalias

import (
	"os"
	"path/filepath"

	"github.com/kevinburke/ssh_config"
)

// Resolve looks up hostname, port, and user for alias in the given SSH
// config file path (pass "" to use ~/.ssh/config). Any field ssh_config
// has no opinion on falls back to the alias itself (hostname) or "" (user,
// port), matching ssh_config's own default-to-the-alias behavior.
func Resolve(alias, configPath string) (hostname, port, user string, err error) {
	if configPath == "" {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", "", "", herr
		}
		configPath = filepath.Join(home, ".ssh", "config")
	}

	f, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return alias, "", "", nil
		}
		return "", "", "", err
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return "", "", "", err
	}

	hostname, err = cfg.Get(alias, "HostName")
	if err != nil {
		return "", "", "", err
	}
	if hostname == "" {
		hostname = alias
	}
	port, _ = cfg.Get(alias, "Port")
	user, _ = cfg.Get(alias, "User")
	return hostname, port, user, nil
}

// Describe renders a one-line "alias -> user@host:port" banner for the
// deploy daemon's startup log, omitting user/port when the config has
// nothing to say about them.
func Describe(alias, hostname, port, user string) string {
	target := hostname
	if user != "" {
		target = user + "@" + target
	}
	if port != "" {
		target = target + ":" + port
	}
	return alias + " -> " + target
}
