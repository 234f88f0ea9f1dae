// Command proxy-reconcile is installed as a repository's pre-read,
// pre-write, post-read, and post-write hook when proxy.url is configured
// (§4.D). It is invoked with the hook name as argv[1] and never fails the
// session it's attached to: every error path is logged and swallowed.
package main

import (
	"os"

	"github.com/hookbot/git-hooks/internal/acl"
	"github.com/hookbot/git-hooks/internal/ghlog"
	"github.com/hookbot/git-hooks/internal/proxyreconcile"
)

func main() {
	log := ghlog.New("proxy-reconcile")

	if len(os.Args) < 2 {
		log.Info("missing hook name argument")
		return
	}
	hookName := os.Args[1]

	gitDir := os.Getenv("GIT_DIR")
	if gitDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Warn("GIT_DIR unset and cwd unavailable", err)
			return
		}
		gitDir = wd
	}

	cfg, err := acl.Load(gitDir)
	if err != nil {
		log.Warn("loading repository config", err)
		return
	}
	log.Journald = cfg.LogJournald

	if cfg.ProxyURL == "" {
		return
	}

	err = proxyreconcile.Reconcile(proxyreconcile.Config{
		GitDir:   gitDir,
		WorkDir:  gitDir + ".workingdir",
		ProxyURL: cfg.ProxyURL,
		HookName: hookName,
		Log:      log,
	})
	if err != nil {
		log.Warn("reconcile", err)
	}
}
