package proxyreconcile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type scriptedRunner struct {
	t       *testing.T
	outputs map[string]string
	calls   []string
}

func (r *scriptedRunner) Run(dir string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	r.calls = append(r.calls, key)
	return r.outputs[key], nil
}

func (r *scriptedRunner) sawCall(substr string) bool {
	for _, c := range r.calls {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

func TestReconcileNoProxyURLIsNoop(t *testing.T) {
	runner := &scriptedRunner{t: t, outputs: map[string]string{}}
	cfg := Config{Runner: runner}
	if err := Reconcile(cfg); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("expected no git calls with no proxy.url configured, got %v", runner.calls)
	}
}

func TestReconcileAlreadyInSyncWritesSentinel(t *testing.T) {
	gitDir := t.TempDir()
	workDir := t.TempDir() // exists, so bootstrap is skipped

	runner := &scriptedRunner{t: t, outputs: map[string]string{
		"remote get-url here":  gitDir,
		"remote get-url there": "ssh://proxy/repo.git",
		"ls-remote here":       "abc123\trefs/heads/main\n",
		"ls-remote there":      "abc123\trefs/heads/main\n",
	}}

	cfg := Config{
		GitDir:   gitDir,
		WorkDir:  workDir,
		ProxyURL: "ssh://proxy/repo.git",
		HookName: "pre-write",
		Runner:   runner,
	}
	if err := Reconcile(cfg); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	listing, present, err := ReadSentinel(gitDir)
	if err != nil {
		t.Fatalf("ReadSentinel: %v", err)
	}
	if !present {
		t.Fatal("expected SYNCED sentinel written when both sides already agree")
	}
	if listing != "branch main abc123\n" {
		t.Fatalf("unexpected sentinel contents: %q", listing)
	}
}

func TestReconcileConsistencyMismatchRemovesWorkdir(t *testing.T) {
	gitDir := t.TempDir()
	workDir := filepath.Join(t.TempDir(), "proxy-work")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		t.Fatal(err)
	}

	runner := &scriptedRunner{t: t, outputs: map[string]string{
		"remote get-url here":  "/some/other/path.git",
		"remote get-url there": "ssh://proxy/repo.git",
	}}

	cfg := Config{
		GitDir:   gitDir,
		WorkDir:  workDir,
		ProxyURL: "ssh://proxy/repo.git",
		HookName: "pre-read",
		Runner:   runner,
	}
	if err := Reconcile(cfg); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatalf("expected workdir removed after proxy mismatch, stat err = %v", err)
	}
}

func TestReconcileHealsRefOnlyOnProxySide(t *testing.T) {
	gitDir := t.TempDir()
	workDir := t.TempDir()

	runner := &scriptedRunner{t: t, outputs: map[string]string{
		"remote get-url here":  gitDir,
		"remote get-url there": "ssh://proxy/repo.git",
		"ls-remote here":       "abc123\trefs/heads/main\n",
		"ls-remote there":      "abc123\trefs/heads/main\ndef456\trefs/tags/v1\n",
	}}

	cfg := Config{
		GitDir:   gitDir,
		WorkDir:  workDir,
		ProxyURL: "ssh://proxy/repo.git",
		HookName: "pre-write", // HookPre: bidirectional heal since SYNCED is absent
		Runner:   runner,
	}
	if err := Reconcile(cfg); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if !runner.sawCall("tag -f v1 def456") {
		t.Fatalf("expected local tag force-update, calls=%v", runner.calls)
	}
	if !runner.sawCall("push --force here refs/tags/v1") {
		t.Fatalf("expected force-push of healed tag to here, calls=%v", runner.calls)
	}
}

func TestReconcilePostReadNeverActs(t *testing.T) {
	gitDir := t.TempDir()
	workDir := t.TempDir()

	runner := &scriptedRunner{t: t, outputs: map[string]string{
		"remote get-url here":  gitDir,
		"remote get-url there": "ssh://proxy/repo.git",
		"ls-remote here":       "abc123\trefs/heads/main\n",
		"ls-remote there":      "def456\trefs/heads/main\n",
	}}

	cfg := Config{
		GitDir:   gitDir,
		WorkDir:  workDir,
		ProxyURL: "ssh://proxy/repo.git",
		HookName: "post-read",
		Runner:   runner,
	}
	if err := Reconcile(cfg); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	for _, c := range runner.calls {
		if strings.HasPrefix(c, "push") || strings.HasPrefix(c, "checkout") || strings.HasPrefix(c, "tag") {
			t.Fatalf("post-read must never mutate refs, but saw call %q", c)
		}
	}
}
