// Package deployconfig loads the deploy daemon's optional YAML defaults
// file and merges it with whatever flags were actually given on the
// command line, so a site can pin common settings (build command, max
// delay) without every invocation repeating them.
package deployconfig

import (
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v2"
)

// Config mirrors the deploy daemon's CLI flag set (§4.E). Zero values
// mean "unset" so mergo can tell a flag default apart from an explicit
// override.
type Config struct {
	Branch     string   `yaml:"branch"`
	Chdir      string   `yaml:"chdir"`
	Umask      string   `yaml:"umask"`
	Options    []string `yaml:"options"`
	Build      string   `yaml:"build"`
	FixNasty   bool     `yaml:"fix_nasty"`
	Background bool     `yaml:"background"`
	MaxDelay   int      `yaml:"max_delay"`
}

// Load reads a YAML config file. A missing file is not an error; it just
// yields a zero Config, so sites without one fall through entirely to CLI
// flags.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge overlays cliFlags on top of fileDefaults: any field cliFlags set
// to its zero value falls back to the file's value, and any field
// cliFlags set explicitly wins. mergo.WithOverride makes the override
// argument (cliFlags) win field-by-field rather than only filling
// zero-valued destination fields.
func Merge(fileDefaults, cliFlags Config) (Config, error) {
	merged := fileDefaults
	if err := mergo.Merge(&merged, cliFlags, mergo.WithOverride); err != nil {
		return Config{}, err
	}
	return merged, nil
}
