package hookpipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// Phase is one of read or write, selected by the Git subcommand.
type Phase string

const (
	PhaseRead  Phase = "read"
	PhaseWrite Phase = "write"
)

// ClassifyOperation maps the leading token of the client command to a
// phase. Anything else is fatal per §4.C.
func ClassifyOperation(op string) (Phase, error) {
	switch op {
	case "git-upload-pack":
		return PhaseRead, nil
	case "git-receive-pack":
		return PhaseWrite, nil
	default:
		return "", fmt.Errorf("unrecognized git operation %q", op)
	}
}

// IPCDir returns the per-invocation scratch directory path:
// $GIT_DIR/tmp/current-<read|write>-<pid>-io/
func IPCDir(gitDir string, phase Phase, pid int) string {
	return filepath.Join(gitDir, "tmp", fmt.Sprintf("current-%s-%d-io", phase, pid))
}

// CreateIPCDir creates the scratch directory with mode 0700, per the
// lifecycle in the data model.
func CreateIPCDir(path string) error {
	return os.MkdirAll(path, 0700)
}

// CleanupIPC removes everything matching "$IPC*" and then attempts to
// rmdir $GIT_DIR/tmp (only succeeds if empty). Called unless DEBUG is set.
func CleanupIPC(ipcDir, gitDir string) {
	matches, _ := filepath.Glob(ipcDir + "*")
	for _, m := range matches {
		os.RemoveAll(m)
	}
	// rmdir only removes an empty directory; ignore errors (non-empty tmp
	// means other sessions still have scratch dirs in flight).
	os.Remove(filepath.Join(gitDir, "tmp"))
}
