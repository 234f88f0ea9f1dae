// Command git-server is the SSH-invoked access gateway (§4.A/4.B): it is
// installed as a forced command or login shell, validates the client's Git
// command, enforces the IP restrictor and ACLs, and hands off to the hook
// pipeline.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/hookbot/git-hooks/internal/acl"
	"github.com/hookbot/git-hooks/internal/gateway"
	"github.com/hookbot/git-hooks/internal/ghlog"
	"github.com/hookbot/git-hooks/internal/hookpipeline"
	"github.com/hookbot/git-hooks/internal/identity"
	"github.com/hookbot/git-hooks/internal/repohandle"
)

const systemGitShell = "/usr/bin/git-shell"

func main() {
	log := ghlog.New("git-server")

	// Side-effect hooks must die immediately on a broken pipe rather than
	// block or retry (§4.C/§5/§6).
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGPIPE)
	go func() {
		<-sigs
		os.Exit(1)
	}()

	os.Exit(run(log))
}

func run(log *ghlog.Logger) int {
	mode := gateway.DetectMode(os.Args[1:])

	command, envTokens, err := gateway.ParseCommand(mode, os.Args[1:], os.Getenv("SSH_ORIGINAL_COMMAND"))
	if err != nil {
		log.Warn("parsing command", err)
		return 1
	}
	for k, v := range envTokens {
		os.Setenv(k, v)
	}

	key := os.Getenv("KEY")
	if key == "" {
		key = identity.UnknownKey
	}
	id := identity.FromEnvironment(key, time.Now())

	parsed, err := gateway.ValidateCommand(command)
	if err != nil {
		fmt.Println(err.Error())
		return 1
	}

	home, err := os.UserHomeDir()
	if err != nil {
		log.Warn("resolving home directory", err)
		return 1
	}

	gitDir, err := repohandle.Resolve(parsed.RepoArg, home)
	if err != nil {
		fmt.Println("git-server: repository not found.")
		return 1
	}

	selfPath, err := os.Executable()
	if err != nil {
		log.Warn("resolving own executable path", err)
		return 1
	}

	if handlerPath, kind := gateway.SelectHandler(gitDir, selfPath, systemGitShell); kind != gateway.HandlerBundled {
		return handoff(log, handlerPath, parsed.Op, gitDir)
	}

	cfg, err := acl.Load(gitDir)
	if err != nil {
		log.Warn("loading repository ACL config", err)
		return 1
	}
	log.Journald = cfg.LogJournald

	if err := acl.CheckIPRestriction(cfg.RestrictIP); err != nil {
		log.Info(err.Error())
		return 1
	}

	phase, err := hookpipeline.ClassifyOperation(parsed.Op)
	if err != nil {
		fmt.Println("git-server: unsupported operation.")
		return 1
	}

	if !authorized(cfg, id.Key, phase) {
		fmt.Println("git-server: access denied.")
		return 1
	}

	if err := hookpipeline.BootstrapIfNoWriters(cfg.Writers, id.Key, func(k string) error {
		return acl.BootstrapWriters(gitDir, k)
	}); err != nil {
		log.Warn("bootstrapping writer ACL", err)
	}

	bundledHooksDir, err := hookpipeline.EnsureBundledHooks(selfPath, filepath.Join(filepath.Dir(selfPath), "proxy-reconcile"))
	if err != nil {
		log.Warn("preparing bundled hooks directory", err)
	} else if hookpipeline.InvokerHooksDirValid(bundledHooksDir) {
		if needs, err := hookpipeline.NeedsSelfInstall(gitDir, bundledHooksDir); err == nil && needs {
			if err := hookpipeline.SelfInstall(gitDir, bundledHooksDir, os.Getpid()); err != nil {
				log.Warn("self-install", err)
			}
		}
	}

	opts := hookpipeline.ParseOptions(envTokens, os.Getenv)
	debug := 0
	if v, ok := hookpipeline.DebugFromOptions(opts); ok {
		debug = v
	} else {
		debug = hookpipeline.ParseDebug(os.Getenv("DEBUG"))
	}

	if phase == hookpipeline.PhaseWrite && len(opts) > 0 {
		if home, err := os.UserHomeDir(); err == nil {
			globalConfig := home + "/.gitconfig"
			if err := acl.SetAdvertisePush(globalConfig); err != nil {
				log.Warn("enabling receive.advertisePushOptions", err)
			}
		}
	}

	req := hookpipeline.Request{
		GitDir:          gitDir,
		Phase:           phase,
		OriginalCommand: fmt.Sprintf("%s '%s'", parsed.Op, gitDir),
		Key:             id.Key,
		ConnectedEpoch:  strconv.FormatInt(id.ConnectedEpoch, 10),
		Options:         opts,
		Debug:           debug,
		BaseEnv:         os.Environ(),
		PID:             os.Getpid(),
		SystemGitShell:  systemGitShell,
	}

	result, err := hookpipeline.Run(req, hookpipeline.DefaultRunner)
	if err != nil {
		log.Warn("pipeline error", err)
		return 1
	}

	return result.ExitStatus
}

// handoff re-invokes a repo-local override or the system git-shell in place
// of this process (§4.B): the selected handler replaces the current process
// image entirely, so its own exit status becomes the SSH session's exit
// status. Only returns (always with a non-zero status) if exec itself
// fails, e.g. the handler binary is missing.
func handoff(log *ghlog.Logger, handlerPath, op, gitDir string) int {
	argv := append([]string{handlerPath}, gateway.HandoffCommand(op, gitDir)...)
	if err := syscall.Exec(handlerPath, argv, os.Environ()); err != nil {
		log.Warn("handing off to selected handler", err)
	}
	return 1
}

// authorized applies the ACL membership rules from the data model: write
// implies read, deploy implies read.
func authorized(cfg acl.Config, key string, phase hookpipeline.Phase) bool {
	switch phase {
	case hookpipeline.PhaseWrite:
		return cfg.CanWrite(key)
	default:
		return cfg.CanRead(key)
	}
}
