// Package hookpipeline orchestrates the pre-/git-backend/post- hook
// sequence (§4.C): option transport, the execution state machine, backend
// selection, IPC scratch directory lifecycle, and self-install.
package hookpipeline

import (
	"strconv"
	"strings"
)

// primaryOptionsEnvVar is the dedicated carrier introduced per the §9
// design note / SPEC_FULL §4.C.1 redesign; legacyOptionsEnvVar is the
// original SSH-locale-abusing variable kept for wire compatibility.
const (
	primaryOptionsEnvVar = "GIT_HOOKS_OPTIONS"
	legacyOptionsEnvVar  = "XMODIFIERS"
)

// ParseOptions splits a newline-separated client option list into its
// individual options, preferring the dedicated env var and falling back to
// the legacy one. The real transport is the genuine process environment
// variable sshd forwards via SendEnv/AcceptEnv; argvTokens (the KEY=VAL
// tokens a Standard-mode forced command parses off its own argv) is
// consulted first only because a repo-local wrapper can also set these
// directly as argv tokens, and either source winning is the value a real
// client's -o options must resolve to for the §8 option-transport
// round-trip to hold.
func ParseOptions(argvTokens map[string]string, getenv func(string) string) []string {
	raw := lookupOptionsVar(argvTokens, getenv, primaryOptionsEnvVar)
	if raw == "" {
		raw = lookupOptionsVar(argvTokens, getenv, legacyOptionsEnvVar)
	}
	if raw == "" {
		return nil
	}

	var opts []string
	for _, line := range strings.Split(raw, "\n") {
		if line != "" {
			opts = append(opts, line)
		}
	}
	return opts
}

func lookupOptionsVar(argvTokens map[string]string, getenv func(string) string, name string) string {
	if v := argvTokens[name]; v != "" {
		return v
	}
	if getenv != nil {
		return getenv(name)
	}
	return ""
}

// ParseDebug maps a DEBUG option value to its numeric meaning: "0"/"off"/
// "false"/"" -> 0; a pure decimal -> that integer; anything else -> 1.
func ParseDebug(value string) int {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "off", "false", "":
		return 0
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return 1
}

// DebugFromOptions finds the "DEBUG=<v>" option among opts, if any, and
// returns its parsed value; ok is false when no DEBUG option was present.
func DebugFromOptions(opts []string) (value int, ok bool) {
	for _, opt := range opts {
		if k, v, found := strings.Cut(opt, "="); found && k == "DEBUG" {
			return ParseDebug(v), true
		}
	}
	return 0, false
}

// ExportedOptionVars returns the GIT_OPTION_COUNT and GIT_OPTION_<i>
// environment variables the pipeline exports for opts, in order.
func ExportedOptionVars(opts []string) map[string]string {
	out := map[string]string{
		"GIT_OPTION_COUNT": strconv.Itoa(len(opts)),
	}
	for i, opt := range opts {
		out["GIT_OPTION_"+strconv.Itoa(i)] = opt
	}
	return out
}
