package hookpipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type fakeRunner struct {
	calls []string
	args  map[string][]string // path -> args it was invoked with
	exits map[string]int      // path -> exit code
}

func (f *fakeRunner) Run(path string, args []string, env []string, dir string) (int, error) {
	f.calls = append(f.calls, path)
	if f.args == nil {
		f.args = make(map[string][]string)
	}
	f.args[path] = args
	if code, ok := f.exits[path]; ok {
		return code, nil
	}
	return 0, nil
}

func makeHookDir(t *testing.T, gitDir string, names ...string) {
	t.Helper()
	hooks := filepath.Join(gitDir, "hooks")
	if err := os.MkdirAll(hooks, 0755); err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		p := filepath.Join(hooks, n)
		if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPipelineRunsPreBackendPostInOrder(t *testing.T) {
	gitDir := t.TempDir()
	makeHookDir(t, gitDir, "pre-write", "post-write")

	runner := &fakeRunner{exits: map[string]int{}}
	req := Request{
		GitDir:          gitDir,
		Phase:           PhaseWrite,
		OriginalCommand: "git-receive-pack '" + gitDir + "'",
		PID:             4242,
		SystemGitShell:  "/usr/bin/git-shell",
	}

	result, err := Run(req, runner)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantCalls := []string{
		filepath.Join(gitDir, "hooks", "pre-write"),
		"/usr/bin/git-shell",
		filepath.Join(gitDir, "hooks", "post-write"),
	}
	if len(runner.calls) != len(wantCalls) {
		t.Fatalf("calls = %v, want %v", runner.calls, wantCalls)
	}
	for i, c := range wantCalls {
		if runner.calls[i] != c {
			t.Fatalf("call[%d] = %q, want %q", i, runner.calls[i], c)
		}
	}
	if !result.BackendRan {
		t.Fatal("expected backend to run")
	}
	if result.ExitStatus != 0 {
		t.Fatalf("ExitStatus = %d, want 0", result.ExitStatus)
	}

	// IPC dir should be cleaned up (DEBUG unset) and tmp removed if empty.
	if _, err := os.Stat(result.IPCDir); !os.IsNotExist(err) {
		t.Fatalf("expected IPC dir removed, stat err = %v", err)
	}

	preHookPath := filepath.Join(gitDir, "hooks", "pre-write")
	if got := runner.args[preHookPath]; len(got) != 1 || got[0] != "pre-write" {
		t.Fatalf("pre-hook args = %v, want [pre-write] so an installed proxy-reconcile binary can tell which hook invoked it", got)
	}
	postHookPath := filepath.Join(gitDir, "hooks", "post-write")
	if got := runner.args[postHookPath]; len(got) != 1 || got[0] != "post-write" {
		t.Fatalf("post-hook args = %v, want [post-write]", got)
	}
}

func TestPipelineSkipsBackendWhenPreHookFails(t *testing.T) {
	gitDir := t.TempDir()
	makeHookDir(t, gitDir, "pre-read")
	preHookPath := filepath.Join(gitDir, "hooks", "pre-read")

	runner := &fakeRunner{exits: map[string]int{preHookPath: 13}}
	req := Request{
		GitDir:          gitDir,
		Phase:           PhaseRead,
		OriginalCommand: "git-upload-pack '" + gitDir + "'",
		PID:             99,
		SystemGitShell:  "/usr/bin/git-shell",
	}

	result, err := Run(req, runner)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.BackendRan {
		t.Fatal("backend must not run when pre-hook fails")
	}
	if result.ExitStatus != result.PreExitStatus || result.ExitStatus != 13 {
		t.Fatalf("ExitStatus=%d PreExitStatus=%d, want both 13", result.ExitStatus, result.PreExitStatus)
	}
	for _, c := range runner.calls {
		if c == "/usr/bin/git-shell" {
			t.Fatal("git-shell must not have been invoked")
		}
	}
}

func TestPipelinePostHookCannotChangeExitCode(t *testing.T) {
	gitDir := t.TempDir()
	makeHookDir(t, gitDir, "post-write")
	postHookPath := filepath.Join(gitDir, "hooks", "post-write")

	runner := &fakeRunner{exits: map[string]int{
		postHookPath:     77,
		"/usr/bin/git-shell": 0,
	}}
	req := Request{
		GitDir:          gitDir,
		Phase:           PhaseWrite,
		OriginalCommand: "git-receive-pack '" + gitDir + "'",
		PID:             5,
		SystemGitShell:  "/usr/bin/git-shell",
	}

	result, err := Run(req, runner)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitStatus != 0 {
		t.Fatalf("ExitStatus = %d, want 0 (post-hook must not change it)", result.ExitStatus)
	}
}

func TestPipelinePreservesIPCWhenDebugSet(t *testing.T) {
	gitDir := t.TempDir()
	runner := &fakeRunner{}
	req := Request{
		GitDir:          gitDir,
		Phase:           PhaseRead,
		OriginalCommand: "git-upload-pack '" + gitDir + "'",
		PID:             1,
		Debug:           1,
		SystemGitShell:  "/usr/bin/git-shell",
	}

	result, err := Run(req, runner)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(result.IPCDir); err != nil {
		t.Fatalf("expected IPC dir preserved under DEBUG, stat err = %v", err)
	}
}

func TestClassifyOperation(t *testing.T) {
	phase, err := ClassifyOperation("git-upload-pack")
	if err != nil || phase != PhaseRead {
		t.Fatalf("phase=%v err=%v, want read/nil", phase, err)
	}
	phase, err = ClassifyOperation("git-receive-pack")
	if err != nil || phase != PhaseWrite {
		t.Fatalf("phase=%v err=%v, want write/nil", phase, err)
	}
	if _, err := ClassifyOperation("rm-rf"); err == nil {
		t.Fatal("expected fatal error for unrecognized operation")
	}
}

func TestIPCDirNaming(t *testing.T) {
	got := IPCDir("/srv/git/repo.git", PhaseWrite, 123)
	want := fmt.Sprintf("/srv/git/repo.git/tmp/current-write-123-io")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
