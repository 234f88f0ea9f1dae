// Command git-deploy is the client-side deploy daemon (§4.E): a
// long-lived loop that keeps a working tree tracking a branch, rebuilds on
// change, and backs off or exits according to a fixed pathology catalog
// when git reports trouble.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/hookbot/git-hooks/internal/buildlock"
	"github.com/hookbot/git-hooks/internal/deployconfig"
	"github.com/hookbot/git-hooks/internal/ghlog"
	"github.com/hookbot/git-hooks/internal/pathology"
	"github.com/hookbot/git-hooks/internal/procwatch"
	"github.com/hookbot/git-hooks/internal/sshalias"
)

const defaultMaxDelay = 7200

var optionFlags multiFlag

// multiFlag collects repeated -O flags.
type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

func main() {
	log := ghlog.New("git-deploy")

	branchFlag := flag.String("branch", "", "branch to track")
	chdirFlag := flag.String("chdir", "", "directory to deploy into")
	umaskFlag := flag.String("umask", "", "umask to apply, octal")
	flag.Var(&optionFlags, "O", "option to forward to the server (repeatable)")
	buildFlag := flag.String("build", "", "build command to run after each rebase")
	fixNastyFlag := flag.Bool("fix-nasty", false, "auto-remediate a POSSIBLE...NASTY host key warning")
	backgroundFlag := flag.Bool("background", false, "daemonize after initial checkout")
	maxDelayFlag := flag.Int("max-delay", 0, "maximum seconds the server may hold a push notification (default 7200)")
	configFlag := flag.String("config", "", "optional YAML defaults file")
	flag.Parse()

	branch := *branchFlag
	if branch == "" && flag.NArg() > 0 {
		branch = flag.Arg(0)
	}

	fileDefaults := deployconfig.Config{}
	if *configFlag != "" {
		var err error
		fileDefaults, err = deployconfig.Load(*configFlag)
		if err != nil {
			log.Fatal("loading config file", err)
		}
	}

	cliFlags := deployconfig.Config{
		Branch:     branch,
		Chdir:      *chdirFlag,
		Umask:      *umaskFlag,
		Options:    optionFlags,
		Build:      *buildFlag,
		FixNasty:   *fixNastyFlag,
		Background: *backgroundFlag,
		MaxDelay:   *maxDelayFlag,
	}
	cfg, err := deployconfig.Merge(fileDefaults, cliFlags)
	if err != nil {
		log.Fatal("merging config", err)
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = defaultMaxDelay
	}

	if cfg.Chdir != "" {
		if err := os.Chdir(cfg.Chdir); err != nil {
			log.Fatal("chdir", err)
		}
	}
	if cfg.Umask != "" {
		n, err := strconv.ParseInt(cfg.Umask, 8, 32)
		if err != nil {
			log.Fatal("parsing --umask", err)
		}
		syscall.Umask(int(n))
	}

	if cfg.Branch == "" {
		cfg.Branch, err = resolveBranch()
		if err != nil {
			log.Fatal("resolving branch", err)
		}
	}

	xmodifiers := strings.Join(cfg.Options, "\n")
	if cfg.MaxDelay > 0 {
		xmodifiers = fmt.Sprintf("deploy_patience=%d\n", cfg.MaxDelay) + xmodifiers
	}
	os.Setenv("XMODIFIERS", xmodifiers)
	os.Setenv("GIT_SSH_COMMAND", "ssh -o SendEnv=XMODIFIERS")

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal("getwd", err)
	}

	if err := runGit("checkout", cfg.Branch); err != nil {
		log.Warn("initial checkout failed", err)
	}
	time.Sleep(1 * time.Second)

	if !cfg.Background && term.IsTerminal(int(os.Stdout.Fd())) {
		printStartupSummary(cfg, cwd)
	}

	rebuild(log, cfg)

	if cfg.Background {
		daemonize(log)
	}

	mainLoop(log, cfg, cwd)
}

// resolveBranch implements the fallback in §4.E: parse "git branch -a",
// prefer the "* <name>" current-branch line, and fall back to the first
// branch containing HEAD when detached.
func resolveBranch() (string, error) {
	out, err := exec.Command("git", "branch", "-a").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git branch -a: %w", err)
	}

	var detachedHash string
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "* ") {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(line, "*"))
		if m := detachedHeadRE.FindStringSubmatch(name); m != nil {
			detachedHash = m[1]
			break
		}
		return name, nil
	}

	if detachedHash == "" {
		return "", fmt.Errorf("could not determine current branch from git branch -a")
	}

	out, err = exec.Command("git", "branch", "-a", "--contains", detachedHash).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git branch -a --contains %s: %w", detachedHash, err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "  ") {
			return strings.TrimSpace(line), nil
		}
	}

	return "", fmt.Errorf("detached at %s and no containing branch found", detachedHash)
}

var detachedHeadRE = regexp.MustCompile(`\(HEAD detached at ([0-9a-fA-F]+)\)`)

// printStartupSummary prints a short aligned banner naming the branch,
// working directory, build command, and max-delay before entering the
// main loop, sized to the terminal width. Skipped in --background mode
// or when stdout isn't a TTY, since nothing is there to read it.
func printStartupSummary(cfg deployconfig.Config, cwd string) {
	width := 72
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	host := remoteAlias()
	endpoint := host
	if host != "" {
		home, err := os.UserHomeDir()
		if err == nil {
			if hostname, port, user, err := sshalias.Resolve(host, filepath.Join(home, ".ssh", "config")); err == nil {
				endpoint = sshalias.Describe(host, hostname, port, user)
			}
		}
	}

	rows := []string{
		fmt.Sprintf("branch:     %s", cfg.Branch),
		fmt.Sprintf("cwd:        %s", cwd),
		fmt.Sprintf("build:      %s", cfg.Build),
		fmt.Sprintf("max-delay:  %ds", cfg.MaxDelay),
	}
	if endpoint != "" {
		rows = append(rows, fmt.Sprintf("remote:     %s", endpoint))
	}

	rule := strings.Repeat("-", min(width, 72))
	fmt.Println(rule)
	for _, r := range rows {
		fmt.Println(r)
	}
	fmt.Println(rule)
}

// remoteAlias extracts the host portion of the "origin" remote's URL, for
// informational ~/.ssh/config lookup only.
func remoteAlias() string {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return ""
	}
	url := strings.TrimSpace(string(out))
	if i := strings.Index(url, "@"); i != -1 {
		url = url[i+1:]
	} else if i := strings.Index(url, "://"); i != -1 {
		url = url[i+3:]
	}
	if i := strings.IndexAny(url, ":/"); i != -1 {
		url = url[:i]
	}
	return url
}

func runGit(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// rebuild serializes the build command across every deploy daemon
// pointed at this repo using the non-blocking flock on $GIT_DIR/config.
func rebuild(log *ghlog.Logger, cfg deployconfig.Config) {
	if cfg.Build == "" {
		return
	}
	lock, err := buildlock.Acquire(filepath.Join(".git", "config"))
	if err != nil {
		if err == buildlock.ErrLocked {
			log.Info("build already in progress elsewhere, skipping")
			return
		}
		log.Warn("acquiring build lock", err)
		return
	}
	defer lock.Release()

	parts := strings.Fields(cfg.Build)
	if len(parts) == 0 {
		return
	}
	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		log.Warn("build command failed", err)
	}
}

// daemonize re-execs the current process detached from its controlling
// terminal via Setsid, the Go-idiomatic stand-in for a double fork, and
// exits the parent.
func daemonize(log *ghlog.Logger) {
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		log.Fatal("opening /dev/null", err)
	}

	self, err := os.Executable()
	if err != nil {
		log.Fatal("resolving executable path", err)
	}

	cmd := exec.Command(self, os.Args[1:]...)
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		log.Fatal("backgrounding", err)
	}
	os.Exit(0)
}

func mainLoop(log *ghlog.Logger, cfg deployconfig.Config, cwd string) {
	script := filepath.Base(os.Args[0])
	prefix := procwatch.TitlePrefix(script, cwd)
	selfMTime := selfBinaryMTime()

	for {
		setProcessTitle(prefix + "Waiting for push notification")

		var out strings.Builder
		out.WriteString(runCapture("git", "fetch"))
		out.WriteString(runCapture("git", "checkout", cfg.Branch))
		out.WriteString(runCapture("git", "rebase", "origin/"+cfg.Branch))
		combined := out.String()

		if newMTime := selfBinaryMTime(); newMTime.After(selfMTime) {
			respawn(log)
			return
		}

		result := pathology.Classify(combined)
		switch result.Action {
		case pathology.ActionNasty:
			log.Info("possible host key tampering detected")
			if cfg.FixNasty && result.Host != "" {
				fixNasty(log, result.Host)
			}
			return

		case pathology.ActionDiverged:
			runGit("checkout", cfg.Branch)
			runGit("reset", "--hard", "origin/"+cfg.Branch)
			if hasPeer(prefix) {
				return
			}
			time.Sleep(60 * time.Second)

		case pathology.ActionUnstaged:
			if hasPeer(prefix) {
				return
			}
			time.Sleep(10 * time.Second)

		case pathology.ActionLockCollision:
			if !hasRebaseProcess() {
				os.Remove(result.LockPath)
			} else {
				time.Sleep(60 * time.Second)
			}

		case pathology.ActionStaleRebaseApply:
			stale, _ := pathology.IsStaleRebaseApplyDir(result.RebaseApplyDir)
			if stale && !hasRebaseProcess() {
				os.RemoveAll(result.RebaseApplyDir)
			} else {
				time.Sleep(60 * time.Second)
			}

		case pathology.ActionUnknownFailure:
			runGit("rebase", "--abort")
			log.Info("unrecognized failure, exiting: %s", combined)
			return

		case pathology.ActionUpToDate:
			time.Sleep(pathology.UpToDateSleep())

		case pathology.ActionContinue:
			// recognizable progress output, nothing to do this iteration.
		}

		time.Sleep(1 * time.Second)
		rebuild(log, cfg)
	}
}

func runCapture(name string, args ...string) string {
	cmd := exec.Command(name, args...)
	out, _ := cmd.CombinedOutput()
	return string(out)
}

func respawn(log *ghlog.Logger) {
	self, err := os.Executable()
	if err != nil {
		log.Fatal("resolving executable for respawn", err)
	}
	if err := syscall.Exec(self, os.Args, os.Environ()); err != nil {
		log.Fatal("respawn exec failed", err)
	}
}

// fixNasty evicts the stale host key and re-pins whatever key the host
// presents now. This only runs with --fix-nasty, an explicit opt-in since
// it defeats the protection a host-key mismatch exists to provide.
func fixNasty(log *ghlog.Logger, host string) {
	exec.Command("ssh-keygen", "-R", host).Run()

	out, err := exec.Command("ssh-keyscan", host).Output()
	if err != nil || len(out) == 0 {
		log.Info("ssh-keyscan found nothing for %s during --fix-nasty", host)
		return
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(home, ".ssh", "known_hosts"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(out)
}

func hasPeer(prefix string) bool {
	peers, err := procwatch.Peers(nil, prefix, os.Getpid())
	return err == nil && len(peers) > 0
}

// hasRebaseProcess reports whether a "git rebase" invocation is currently
// running, a coarse substring scan over `ps` output.
func hasRebaseProcess() bool {
	peers, err := procwatch.Peers(nil, "git rebase", -1)
	return err == nil && len(peers) > 0
}

func selfBinaryMTime() time.Time {
	self, err := os.Executable()
	if err != nil {
		return time.Time{}
	}
	info, err := os.Stat(self)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func setProcessTitle(title string) {
	procwatch.SetTitle(title)
}
