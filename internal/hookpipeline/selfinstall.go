package hookpipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// bundledHookNames are the four hook entry points the installed binary
// handles (§4.D): the proxy reconciler runs as each of these.
var bundledHookNames = []string{"pre-read", "pre-write", "post-read", "post-write"}

// EnsureBundledHooks builds (if not already present) a real hooks
// directory alongside the gateway binary, populated with a symlink to
// proxyReconcilePath under each of the four hook names, so self-install has
// an actual invoker hooks directory to hand a repository rather than a
// bare executable file. Idempotent: existing entries are left alone.
func EnsureBundledHooks(selfPath, proxyReconcilePath string) (string, error) {
	dir := filepath.Join(filepath.Dir(selfPath), "hooks")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating bundled hooks directory: %w", err)
	}
	for _, name := range bundledHookNames {
		link := filepath.Join(dir, name)
		if _, err := os.Lstat(link); err == nil {
			continue
		}
		if err := os.Symlink(proxyReconcilePath, link); err != nil {
			return "", fmt.Errorf("linking %s: %w", name, err)
		}
	}
	return dir, nil
}

// InvokerHooksDirValid reports whether invokerHooksDir — the directory
// self-install is about to hand a repository as its new hooks/ — qualifies
// as the "real hooks directory" precondition: it exists, is an actual
// directory, and is not itself a symlink (which would risk symlinking a
// repo's hooks through to another symlink instead of real hook binaries).
func InvokerHooksDirValid(invokerHooksDir string) bool {
	info, err := os.Lstat(invokerHooksDir)
	if err != nil {
		return false
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return false
	}
	return info.IsDir()
}

// NeedsSelfInstall reports whether the self-install side effect (§4.C)
// should run: the repo has a stock hooks/ directory, and that directory is
// not already a symlink pointing at invokerHooksDir.
func NeedsSelfInstall(gitDir, invokerHooksDir string) (bool, error) {
	hooksPath := filepath.Join(gitDir, "hooks")

	info, err := os.Lstat(hooksPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(hooksPath)
		if err != nil {
			return false, err
		}
		if target == invokerHooksDir {
			return false, nil
		}
		// A symlink to somewhere else: already customized, leave it.
		return false, nil
	}

	if !info.IsDir() {
		return false, nil
	}

	return true, nil
}

// SelfInstall moves the stock hooks/ directory aside to
// hooks.<pid>.PLEASE_DELETE and symlinks invokerHooksDir in its place, as a
// single atomic rename followed by a single atomic symlink creation.
func SelfInstall(gitDir, invokerHooksDir string, pid int) error {
	hooksPath := filepath.Join(gitDir, "hooks")
	asidePath := filepath.Join(gitDir, fmt.Sprintf("hooks.%d.PLEASE_DELETE", pid))

	if err := os.Rename(hooksPath, asidePath); err != nil {
		return fmt.Errorf("moving stock hooks directory aside: %w", err)
	}

	if err := os.Symlink(invokerHooksDir, hooksPath); err != nil {
		// Best-effort: restore the original directory so the repo is not
		// left without any hooks directory at all.
		os.Rename(asidePath, hooksPath)
		return fmt.Errorf("symlinking invoker hooks directory: %w", err)
	}

	return nil
}

// BootstrapIfNoWriters sets acl.writers=key via the supplied setter when no
// writer ACL exists yet — the bootstrap half of self-install.
func BootstrapIfNoWriters(currentWriters []string, key string, setWriters func(key string) error) error {
	if len(currentWriters) > 0 {
		return nil
	}
	return setWriters(key)
}

// selfInstallDeadline bounds how stale a leftover "hooks.<pid>.PLEASE_DELETE"
// directory must be before an operator-facing cleanup tool considers it
// safe to remove; self-install itself never removes these, it only leaves
// them for manual cleanup.
const selfInstallDeadline = 24 * time.Hour

// StaleAsideDirs lists "hooks.*.PLEASE_DELETE" directories under gitDir
// older than selfInstallDeadline, for an operator cleanup pass.
func StaleAsideDirs(gitDir string) ([]string, error) {
	entries, err := os.ReadDir(gitDir)
	if err != nil {
		return nil, err
	}

	var stale []string
	cutoff := time.Now().Add(-selfInstallDeadline)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if ok, _ := filepath.Match("hooks.*.PLEASE_DELETE", name); !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, filepath.Join(gitDir, name))
		}
	}
	return stale, nil
}
