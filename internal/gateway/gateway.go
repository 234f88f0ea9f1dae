// Package gateway implements the access gateway (§4.B): the entry point
// invoked as an SSH forced command or login shell. It parses the original
// command, resolves the target repository, selects a backend handler, and
// re-invokes it.
package gateway

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/hookbot/git-hooks/internal/repohandle"
)

// commandPattern matches "git-<subcommand> <repo-arg>".
var commandPattern = regexp.MustCompile(`^(git-[\w-]+) (.+)$`)

// Mode distinguishes the two invocation surfaces documented in §4.B.
type Mode int

const (
	// ModeStandard: invoked via "command=" forced command; the git
	// command comes from SSH_ORIGINAL_COMMAND and KEY=VAL argv tokens
	// become environment variables.
	ModeStandard Mode = iota
	// ModeAdvanced: invoked as the login shell, argv is exactly "-c <cmd>".
	ModeAdvanced
)

// Invocation is the parsed result of one gateway entry.
type Invocation struct {
	Mode       Mode
	Op         string // e.g. "git-upload-pack"
	RepoArg    string // raw repo argument before quote/.git stripping
	GitDir     string // resolved absolute repository path
	EnvToSet   map[string]string
}

// DetectMode applies the distinguishing rule: argv exactly "-c <cmd>" means
// Advanced mode; anything else is Standard mode.
func DetectMode(argv []string) Mode {
	if len(argv) == 2 && argv[0] == "-c" {
		return ModeAdvanced
	}
	return ModeStandard
}

// ParseCommand extracts the command string for the given mode. In Standard
// mode the command is SSH_ORIGINAL_COMMAND and any remaining argv tokens of
// form KEY=VAL are returned as environment to set (but not yet applied —
// callers decide when). In Advanced mode the command is argv[1] and no
// environment mutation happens.
func ParseCommand(mode Mode, argv []string, sshOriginalCommand string) (command string, envToSet map[string]string, err error) {
	switch mode {
	case ModeAdvanced:
		if len(argv) != 2 {
			return "", nil, fmt.Errorf("advanced mode requires exactly argv = [-c, cmd]")
		}
		return argv[1], nil, nil
	case ModeStandard:
		if sshOriginalCommand == "" {
			return "", nil, fmt.Errorf("no SSH context: SSH_ORIGINAL_COMMAND is empty")
		}
		envToSet = make(map[string]string)
		for _, tok := range argv {
			if k, v, ok := strings.Cut(tok, "="); ok && k != "" {
				envToSet[k] = v
			}
		}
		return sshOriginalCommand, envToSet, nil
	default:
		return "", nil, fmt.Errorf("unknown gateway mode")
	}
}

// ParsedCommand is one validated "git-<op> '<repo>'" command.
type ParsedCommand struct {
	Op      string
	RepoArg string
}

// ValidateCommand matches the command against "^(git-[\w-]+) (.+)$" and
// strips surrounding single quotes and a trailing ".git" from the repo
// argument.
func ValidateCommand(command string) (ParsedCommand, error) {
	matches := commandPattern.FindStringSubmatch(strings.TrimSpace(command))
	if matches == nil {
		return ParsedCommand{}, fmt.Errorf("shell access denied: command %q is not a recognized git operation", command)
	}
	return ParsedCommand{
		Op:      matches[1],
		RepoArg: repohandle.StripDotGit(matches[2]),
	}, nil
}

// HandlerKind names which backend the gateway selected.
type HandlerKind int

const (
	HandlerRepoLocal HandlerKind = iota
	HandlerBundled
	HandlerGitShell
)

// SelectHandler applies the priority order: $GIT_DIR/hooks/git-server (if
// executable) → bundled hooks/git-server (this program's own path) →
// system git-shell.
func SelectHandler(gitDir, bundledSelfPath, systemGitShell string) (path string, kind HandlerKind) {
	repoLocal := gitDir + "/hooks/git-server"
	if isExecutable(repoLocal) {
		return repoLocal, HandlerRepoLocal
	}
	if bundledSelfPath != "" {
		return bundledSelfPath, HandlerBundled
	}
	return systemGitShell, HandlerGitShell
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}

// HandoffCommand builds the re-invocation command line: -c "<op> '<GIT_DIR>'".
func HandoffCommand(op, gitDir string) []string {
	return []string{"-c", fmt.Sprintf("%s '%s'", op, gitDir)}
}
