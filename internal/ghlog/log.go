// Package ghlog is the shared logging sink for every server-side component
// (access gateway, hook pipeline, proxy reconciler). It always writes a
// human-readable line to stderr and, when journald logging is enabled via
// the repository's "log.journald" ACL-config key, mirrors the same line
// into the systemd journal.
package ghlog

import (
	"fmt"
	"os"

	"github.com/coreos/go-systemd/journal"
)

// Logger carries the one piece of state that changes sink behavior: whether
// journald mirroring is enabled for the current repository.
type Logger struct {
	Journald bool
	Prefix   string // e.g. "git-server", "proxy-reconcile"
}

// New returns a Logger for the given prefix with journald mirroring off.
// Call EnableJournald to turn it on once the repo's ACL config is known.
func New(prefix string) *Logger {
	return &Logger{Prefix: prefix}
}

// EnableJournald toggles journald mirroring based on the "log.journald" ACL
// config key (see internal/acl).
func (l *Logger) EnableJournald(enabled bool) {
	l.Journald = enabled
}

// Warn logs a non-fatal error. Returns immediately if err is nil.
func (l *Logger) Warn(context string, err error) {
	if err == nil {
		return
	}
	l.writeLine(fmt.Sprintf("%s: %s: %v", l.Prefix, context, err), journal.PriWarning)
}

// Info logs an informational message, gated by nothing (always printed);
// this package has no verbosity levels.
func (l *Logger) Info(format string, args ...interface{}) {
	l.writeLine(fmt.Sprintf("%s: %s", l.Prefix, fmt.Sprintf(format, args...)), journal.PriInfo)
}

// Fatal logs err (if non-nil) and exits the process with status 1. It never
// returns when err is non-nil.
func (l *Logger) Fatal(context string, err error) {
	if err == nil {
		return
	}
	l.writeLine(fmt.Sprintf("%s: %s: %v", l.Prefix, context, err), journal.PriErr)
	os.Exit(1)
}

func (l *Logger) writeLine(line string, priority journal.Priority) {
	fmt.Fprintln(os.Stderr, line)
	if !l.Journald {
		return
	}
	// journal.Send fails silently (e.g. no systemd on this host) — that's
	// fine, stderr already has the line.
	_ = journal.Send(line, priority, nil)
}
