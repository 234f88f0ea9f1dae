// Package procwatch detects sibling deploy daemon processes via process
// title scanning, since each daemon instance sets argv[0] to a distinctive
// "<script> - <cwd>: <status>" string per §6's process title convention.
package procwatch

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// TitlePrefix builds the "<script> - <cwd>: " prefix a running daemon's
// process title starts with, shared by Peers to recognize siblings
// regardless of their current status suffix.
func TitlePrefix(script, cwd string) string {
	return fmt.Sprintf("%s - %s: ", script, cwd)
}

// PSRunner runs one "ps" invocation with the given flag string and
// returns its stdout. Production uses execPS; tests inject a fake so
// Peers can be exercised without a real process table.
type PSRunner func(flags string) ([]byte, error)

// execPS is the production PSRunner.
func execPS(flags string) ([]byte, error) {
	cmd := exec.Command("ps", flags)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Peers runs `ps` and, for every output line that contains prefix and whose
// PID column is not selfPID, returns that line from prefix onward. Tries "ps fauwwx"
// first (BSD-style wide, forest view) and falls back to "ps auwwx" if
// that flag combination isn't supported, matching what a deploy daemon
// shelling out on both BSD and GNU ps needs to tolerate.
func Peers(run PSRunner, prefix string, selfPID int) ([]string, error) {
	if run == nil {
		run = execPS
	}

	out, err := run("fauwwx")
	if err != nil {
		out, err = run("auwwx")
		if err != nil {
			return nil, fmt.Errorf("procwatch: ps failed: %w", err)
		}
	}

	var peers []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pidStr := fields[1]
		idx := strings.Index(line, prefix)
		if idx == -1 {
			continue
		}
		if pidStr == fmt.Sprint(selfPID) {
			continue
		}
		peers = append(peers, line[idx:])
	}
	return peers, nil
}
