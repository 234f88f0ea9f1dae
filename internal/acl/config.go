// Package acl parses the per-repository ACL configuration (the
// "acl.readers"/"acl.writers"/"acl.deploy"/"acl.restrictip", "proxy.url",
// and "log.*" keys described in the data model) and implements the CIDR
// based IP restrictor.
package acl

import (
	"os"
	"path/filepath"
	"strings"

	gitconfig "github.com/go-git/go-git/v5/plumbing/format/config"
)

// Config is the parsed ACL/repo configuration for one bare repository.
type Config struct {
	Readers       []string
	Writers       []string
	Deploy        []string
	RestrictIP    string
	ProxyURL      string
	LogJournald   bool
	AdvertisePush bool
	RemoteHereURL string
	RemoteThereURL string
}

// Load reads and parses gitDir/config directly (go-git's native config
// decoder) rather than shelling out to `git config --list`.
func Load(gitDir string) (Config, error) {
	var cfg Config

	f, err := os.Open(filepath.Join(gitDir, "config"))
	if err != nil {
		if os.IsNotExist(err) {
			// A fresh bare repo may not have custom sections yet; that's
			// not an error, just an empty ACL config.
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	raw := gitconfig.New()
	if err := gitconfig.NewDecoder(f).Decode(raw); err != nil {
		return cfg, err
	}

	aclSection := raw.Section("acl")
	cfg.Readers = splitCSV(aclSection.Option("readers"))
	cfg.Writers = splitCSV(aclSection.Option("writers"))
	cfg.Deploy = splitCSV(aclSection.Option("deploy"))
	cfg.RestrictIP = aclSection.Option("restrictip")

	cfg.ProxyURL = raw.Section("proxy").Option("url")

	logSection := raw.Section("log")
	cfg.LogJournald = isTruthy(logSection.Option("journald"))

	cfg.AdvertisePush = isTruthy(raw.Section("receive").Option("advertisePushOptions"))

	remoteSection := raw.Section("remote")
	cfg.RemoteHereURL = remoteSection.Subsection("here").Option("url")
	cfg.RemoteThereURL = remoteSection.Subsection("there").Option("url")

	return cfg, nil
}

// SetAdvertisePush persists receive.advertisePushOptions=true globally (the
// pipeline's option-transport step ensures this before a push with
// client-supplied options runs). "Globally" per the spec means the git
// config search path, not just this repo; callers pass the global config
// path (typically ~/.gitconfig for the service account).
func SetAdvertisePush(globalConfigPath string) error {
	raw := gitconfig.New()

	if f, err := os.Open(globalConfigPath); err == nil {
		decodeErr := gitconfig.NewDecoder(f).Decode(raw)
		f.Close()
		if decodeErr != nil {
			return decodeErr
		}
	}

	raw.Section("receive").SetOption("advertisePushOptions", "true")

	out, err := os.Create(globalConfigPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return gitconfig.NewEncoder(out).Encode(raw)
}

// BootstrapWriters writes acl.writers=key into gitDir/config when no writer
// ACL exists yet — the hook pipeline's self-install bootstrap step.
func BootstrapWriters(gitDir, key string) error {
	path := filepath.Join(gitDir, "config")

	raw := gitconfig.New()
	if f, err := os.Open(path); err == nil {
		decodeErr := gitconfig.NewDecoder(f).Decode(raw)
		f.Close()
		if decodeErr != nil {
			return decodeErr
		}
	}

	raw.Section("acl").SetOption("writers", key)

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	return gitconfig.NewEncoder(out).Encode(raw)
}

// IsMember reports whether key appears in list (set membership lookup).
func IsMember(list []string, key string) bool {
	for _, candidate := range list {
		if candidate == key {
			return true
		}
	}
	return false
}

// CanRead reports read access: reader, writer (write implies read), or
// deploy (deploy implies read) membership.
func (c Config) CanRead(key string) bool {
	return IsMember(c.Readers, key) || IsMember(c.Writers, key) || IsMember(c.Deploy, key)
}

// CanWrite reports write access: writer membership only.
func (c Config) CanWrite(key string) bool {
	return IsMember(c.Writers, key)
}

// CanDeploy reports deploy access: deploy membership only.
func (c Config) CanDeploy(key string) bool {
	return IsMember(c.Deploy, key)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
