package proxyreconcile

import (
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/hookbot/git-hooks/internal/ghlog"
)

// Config bundles everything one Reconcile call needs: where the bare repo
// and its sibling working directory live, the upstream proxy URL, which
// hook invoked the reconciler, and the git runner to use.
type Config struct {
	GitDir   string
	WorkDir  string
	ProxyURL string
	HookName string
	Runner   Runner
	Log      *ghlog.Logger
}

func (c Config) logf(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log.Info(fmt.Sprintf(format, args...))
	}
}

// Reconcile runs one pass of the two-way proxy reconciler (§4.D) and
// always returns nil: every failure mode short-circuits to a no-op or a
// logged skip, because the reconciler must never fail the hook it is
// attached to.
func Reconcile(cfg Config) error {
	if cfg.ProxyURL == "" {
		return nil
	}
	if cfg.Runner == nil {
		cfg.Runner = DefaultRunner
	}

	phase := ClassifyHook(cfg.HookName)

	if _, err := os.Stat(cfg.WorkDir); os.IsNotExist(err) {
		if phase != HookPre {
			return nil
		}
		if err := bootstrap(cfg); err != nil {
			cfg.logf("proxy reconciler bootstrap failed: %v", err)
			return nil
		}
	}

	if err := checkConsistency(cfg); err != nil {
		cfg.logf("%v", err)
		os.RemoveAll(cfg.WorkDir)
		return nil
	}

	hereTips, err := LsRemote(cfg.Runner, cfg.WorkDir, "here")
	if err != nil {
		cfg.logf("ls-remote here: %v", err)
		return nil
	}
	thereTips, err := LsRemote(cfg.Runner, cfg.WorkDir, "there")
	if err != nil {
		cfg.logf("ls-remote there: %v", err)
		return nil
	}

	if hereTips.SortedListing() == thereTips.SortedListing() {
		_ = WriteSentinel(cfg.GitDir, hereTips.SortedListing())
		return nil
	}

	FetchTags(cfg.Runner, cfg.WorkDir, "here")
	FetchTags(cfg.Runner, cfg.WorkDir, "there")

	_, syncedPresent, _ := ReadSentinel(cfg.GitDir)

	for _, ref := range differingRefs(hereTips, thereTips) {
		hereHash, hereExists := hereTips[ref]
		thereHash, thereExists := thereTips[ref]

		c := Decide(phase, syncedPresent, hereExists, thereExists, ref.Kind)
		if c == CaseNoop {
			continue
		}
		if err := executeCase(cfg, c, ref, hereHash, thereHash); err != nil {
			cfg.logf("ref %s %s: %v", ref.Kind, ref.Name, err)
		}
	}

	finalize(cfg)
	return nil
}

// differingRefs returns the sorted union of refs whose tips differ (or
// that exist on only one side) between the two maps, built from the same
// added/removed/moved classification ComputeDiff uses.
func differingRefs(here, there TipMap) []Ref {
	d := ComputeDiff(there, here) // "want" = there, "have" = here
	diffs := append(append(append([]Ref{}, d.Added...), d.Removed...), d.Moved...)

	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].Kind != diffs[j].Kind {
			return diffs[i].Kind < diffs[j].Kind
		}
		return diffs[i].Name < diffs[j].Name
	})
	return diffs
}

func bootstrap(cfg Config) error {
	if err := Clone(cfg.Runner, cfg.GitDir, cfg.WorkDir); err != nil {
		return fmt.Errorf("clone: %w", err)
	}
	if err := RemoteAdd(cfg.Runner, cfg.WorkDir, "there", cfg.ProxyURL); err != nil {
		return fmt.Errorf("remote add there: %w", err)
	}

	keyscanUnknownHost(cfg.ProxyURL)

	if err := Fetch(cfg.Runner, cfg.WorkDir, "there"); err != nil {
		os.RemoveAll(cfg.WorkDir)
		if os.Getenv("SSH_AUTH_SOCK") == "" {
			return fmt.Errorf("fetch there failed and SSH_AUTH_SOCK is unset; is agent forwarding (ForwardAgent) enabled? %w", err)
		}
		return fmt.Errorf("fetch there: %w", err)
	}
	if _, err := LsRemote(cfg.Runner, cfg.WorkDir, "there"); err != nil {
		os.RemoveAll(cfg.WorkDir)
		return fmt.Errorf("ls-remote there: %w", err)
	}
	return nil
}

// keyscanUnknownHost best-effort appends the proxy host's key to
// known_hosts via ssh-keyscan when the proxy URL looks like an SSH URL.
// Failure here is not fatal; the subsequent fetch will surface the real
// problem if the host key genuinely can't be trusted.
func keyscanUnknownHost(proxyURL string) {
	host := sshHostOf(proxyURL)
	if host == "" {
		return
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	knownHosts := home + "/.ssh/known_hosts"
	out, err := exec.Command("ssh-keyscan", host).Output()
	if err != nil || len(out) == 0 {
		return
	}
	f, err := os.OpenFile(knownHosts, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(out)
}

// sshHostOf extracts the host portion of a scp-like or ssh:// proxy URL,
// or "" if it doesn't look like an SSH URL.
func sshHostOf(url string) string {
	if len(url) > 6 && url[:6] == "ssh://" {
		rest := url[6:]
		for i, c := range rest {
			if c == '/' || c == ':' {
				return stripUser(rest[:i])
			}
		}
		return stripUser(rest)
	}
	for i, c := range url {
		if c == ':' {
			return stripUser(url[:i])
		}
		if c == '/' {
			return ""
		}
	}
	return ""
}

func stripUser(hostport string) string {
	for i, c := range hostport {
		if c == '@' {
			return hostport[i+1:]
		}
	}
	return hostport
}

func checkConsistency(cfg Config) error {
	hereURL, err := cfg.Runner.Run(cfg.WorkDir, "remote", "get-url", "here")
	if err != nil {
		return fmt.Errorf("Proxy mismatch: reading remote.here.url: %w", err)
	}
	thereURL, err := cfg.Runner.Run(cfg.WorkDir, "remote", "get-url", "there")
	if err != nil {
		return fmt.Errorf("Proxy mismatch: reading remote.there.url: %w", err)
	}
	if trimNL(hereURL) != cfg.GitDir {
		return fmt.Errorf("Proxy mismatch: remote.here.url changed")
	}
	if trimNL(thereURL) != cfg.ProxyURL {
		return fmt.Errorf("Proxy mismatch: remote.there.url changed")
	}
	return nil
}

func trimNL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func executeCase(cfg Config, c Case, ref Ref, hereHash, thereHash string) error {
	switch c {
	case CaseHealAmbiguous:
		return healAmbiguous(cfg, ref, hereHash, thereHash)
	case CaseHealCreateOnHere:
		return pullToSide(cfg, ref, "there", "here")
	case CaseHealCreateOnThere:
		return pullToSide(cfg, ref, "here", "there")
	case CaseRemoteDeleteLocal:
		return deleteOnSide(cfg, ref, "here")
	case CaseRemoteToLocalTag:
		return forceTag(cfg, ref, thereHash, "here")
	case CaseRemoteToLocalBranch:
		return pullToSide(cfg, ref, "there", "here")
	case CaseLocalDeleteRemote:
		return deleteOnSide(cfg, ref, "there")
	case CaseLocalToRemoteTag:
		return forceTag(cfg, ref, hereHash, "there")
	case CaseLocalToRemoteBranch:
		return pullToSide(cfg, ref, "here", "there")
	case CaseTooDivergent:
		cfg.logf("ref %s %s: too divergent, skipping", ref.Kind, ref.Name)
		return nil
	}
	return nil
}

func healAmbiguous(cfg Config, ref Ref, hereHash, thereHash string) error {
	hereIsAncestor, err := IsAncestor(cfg.WorkDir, hereHash, thereHash)
	if err != nil {
		return fmt.Errorf("ancestry probe: %w", err)
	}
	if hereIsAncestor {
		return pullToSide(cfg, ref, "there", "here")
	}
	thereIsAncestor, err := IsAncestor(cfg.WorkDir, thereHash, hereHash)
	if err != nil {
		return fmt.Errorf("ancestry probe: %w", err)
	}
	if thereIsAncestor {
		return pullToSide(cfg, ref, "here", "there")
	}
	cfg.logf("ref %s %s: too divergent, skipping", ref.Kind, ref.Name)
	return nil
}

// pullToSide brings dst up to src's tip for ref and pushes the result to
// dst. For tags this is a force update; for branches it is a
// checkout/track + rebase-pull + push.
func pullToSide(cfg Config, ref Ref, src, dst string) error {
	if ref.Kind == KindTag {
		tips, err := LsRemote(cfg.Runner, cfg.WorkDir, src)
		if err != nil {
			return err
		}
		hash, ok := tips[ref]
		if !ok {
			return fmt.Errorf("tag %s vanished from %s mid-reconcile", ref.Name, src)
		}
		return forceTag(cfg, ref, hash, dst)
	}

	if err := Checkout(cfg.Runner, cfg.WorkDir, ref.Name); err != nil {
		if err := CheckoutTrack(cfg.Runner, cfg.WorkDir, src, ref.Name); err != nil {
			return fmt.Errorf("checkout %s: %w", ref.Name, err)
		}
	}
	if err := RebasePull(cfg.Runner, cfg.WorkDir, src, ref.Name); err != nil {
		return fmt.Errorf("rebase-pull %s from %s: %w", ref.Name, src, err)
	}
	if err := Push(cfg.Runner, cfg.WorkDir, dst, ref.Name, false); err != nil {
		return fmt.Errorf("push %s to %s: %w", ref.Name, dst, err)
	}
	return nil
}

func forceTag(cfg Config, ref Ref, hash, dst string) error {
	if err := UpdateTagForce(cfg.Runner, cfg.WorkDir, ref.Name, hash); err != nil {
		return fmt.Errorf("update tag %s: %w", ref.Name, err)
	}
	if err := Push(cfg.Runner, cfg.WorkDir, dst, "refs/tags/"+ref.Name, true); err != nil {
		return fmt.Errorf("push tag %s to %s: %w", ref.Name, dst, err)
	}
	return nil
}

func deleteOnSide(cfg Config, ref Ref, dst string) error {
	if ref.Kind == KindBranch {
		DeleteLocalBranch(cfg.Runner, cfg.WorkDir, ref.Name)
	}
	if err := PushDelete(cfg.Runner, cfg.WorkDir, dst, ref.Name); err != nil {
		return fmt.Errorf("push-delete %s on %s: %w", ref.Name, dst, err)
	}
	return nil
}

func finalize(cfg Config) {
	hereTips, err1 := LsRemote(cfg.Runner, cfg.WorkDir, "here")
	thereTips, err2 := LsRemote(cfg.Runner, cfg.WorkDir, "there")
	if err1 != nil || err2 != nil {
		os.Remove(SentinelPath(cfg.GitDir))
		return
	}
	if hereTips.SortedListing() == thereTips.SortedListing() {
		_ = WriteSentinel(cfg.GitDir, hereTips.SortedListing())
	} else {
		os.Remove(SentinelPath(cfg.GitDir))
	}
}
