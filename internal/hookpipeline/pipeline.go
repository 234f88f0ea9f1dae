package hookpipeline

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Runner executes one subprocess and reports its exit status. Production
// code uses execRunner; tests inject a fake.
type Runner interface {
	Run(path string, args []string, env []string, dir string) (exitCode int, err error)
}

type execRunner struct{}

// Run shells out via os/exec, mirroring the teacher's subprocess-wait
// pattern (see controller_src/exec.go): every invocation here is a
// blocking wait-for-child, matching the spec's concurrency model.
func (execRunner) Run(path string, args []string, env []string, dir string) (int, error) {
	cmd := exec.Command(path, args...)
	cmd.Env = env
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// DefaultRunner is the production subprocess runner.
var DefaultRunner Runner = execRunner{}

// Request describes one invocation of the pipeline.
type Request struct {
	GitDir            string
	Phase             Phase
	OriginalCommand   string // the full "<op> '<repo>'" client command
	Key               string
	ConnectedEpoch    string
	Options           []string
	Debug             int
	BaseEnv           []string // process environment to extend (os.Environ())
	PID               int
	SystemGitShell    string // fallback backend path
}

// Result is the outcome of one pipeline run.
type Result struct {
	PreExitStatus  int
	BackendRan     bool
	ExitStatus     int
	IPCDir         string
}

// Run executes the pre-hook -> backend -> post-hook state machine
// described in §4.C. There is exactly one start and one terminal state;
// the post-hook can observe but never change the final exit code.
func Run(req Request, runner Runner) (Result, error) {
	ipcDir := IPCDir(req.GitDir, req.Phase, req.PID)
	if err := CreateIPCDir(ipcDir); err != nil {
		return Result{}, fmt.Errorf("creating IPC directory: %w", err)
	}

	baseEnv := buildBaseEnv(req, ipcDir)

	result := Result{IPCDir: ipcDir}

	preHookName := "pre-" + string(req.Phase)
	preHookPath := filepath.Join(req.GitDir, "hooks", preHookName)
	if isExecutable(preHookPath) {
		exitCode, err := runner.Run(preHookPath, []string{preHookName}, baseEnv, req.GitDir)
		if err != nil {
			return result, fmt.Errorf("running pre-%s hook: %w", req.Phase, err)
		}
		result.PreExitStatus = exitCode
	} else {
		result.PreExitStatus = 0
	}

	envWithPre := append(append([]string{}, baseEnv...), fmt.Sprintf("GIT_PRE_EXIT_STATUS=%d", result.PreExitStatus))

	if result.PreExitStatus == 0 {
		backendPath := filepath.Join(req.GitDir, "hooks", "git-shell")
		if !isExecutable(backendPath) {
			backendPath = req.SystemGitShell
		}
		exitCode, err := runner.Run(backendPath, []string{"-c", req.OriginalCommand}, envWithPre, req.GitDir)
		if err != nil {
			return result, fmt.Errorf("running git backend: %w", err)
		}
		result.BackendRan = true
		result.ExitStatus = exitCode
	} else {
		result.ExitStatus = result.PreExitStatus
	}

	envForPost := append(append([]string{}, envWithPre...),
		fmt.Sprintf("GIT_EXIT_STATUS=%d", result.ExitStatus),
		"SSH_ORIGINAL_COMMAND="+req.OriginalCommand,
	)

	postHookName := "post-" + string(req.Phase)
	postHookPath := filepath.Join(req.GitDir, "hooks", postHookName)
	if isExecutable(postHookPath) {
		// The post-hook's own exit status is observed but never allowed
		// to change result.ExitStatus: it is purely advisory.
		if _, err := runner.Run(postHookPath, []string{postHookName}, envForPost, req.GitDir); err != nil {
			return result, fmt.Errorf("running post-%s hook: %w", req.Phase, err)
		}
	}

	if req.Debug == 0 {
		CleanupIPC(ipcDir, req.GitDir)
	}

	return result, nil
}

func buildBaseEnv(req Request, ipcDir string) []string {
	env := append([]string{}, req.BaseEnv...)
	extra := map[string]string{
		"GIT_DIR":             req.GitDir,
		"KEY":                 req.Key,
		"IPC":                 ipcDir,
		"GIT_CONNECTED_EPOCH": req.ConnectedEpoch,
		"DEBUG":               fmt.Sprintf("%d", req.Debug),
	}
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	for k, v := range ExportedOptionVars(req.Options) {
		env = append(env, k+"="+v)
	}
	return env
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}
