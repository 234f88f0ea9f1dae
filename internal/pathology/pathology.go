// Package pathology classifies the combined stdout/stderr of one deploy
// daemon iteration (fetch + checkout + rebase) against the fixed pattern
// catalog from §4.E's main loop table: package-level regular expressions
// checked in a fixed priority order by Classify, rather than inline string
// matching scattered through the loop.
package pathology

import "regexp"

// Action names one outcome from the pathology catalog.
type Action string

const (
	// ActionNasty: a "POSSIBLE...SOMEONE...DOING...NASTY" warning from
	// git, usually a host-key mismatch.
	ActionNasty Action = "nasty"
	// ActionDiverged: "Your branch...diverged" — needs a hard reset.
	ActionDiverged Action = "diverged"
	// ActionUnstaged: "You have unstaged changes" in the working tree.
	ActionUnstaged Action = "unstaged"
	// ActionLockCollision: git's own "Unable to create '...': File
	// exists" lock file collision.
	ActionLockCollision Action = "lock_collision"
	// ActionStaleRebaseApply: a leftover .git/rebase-apply directory
	// from a previous rebase that never completed.
	ActionStaleRebaseApply Action = "stale_rebase_apply"
	// ActionUpToDate: "Current branch...is up to date", nothing to do.
	ActionUpToDate Action = "up_to_date"
	// ActionUnknownFailure: none of the known progress markers or
	// pathologies matched; treat as an operator-facing local error.
	ActionUnknownFailure Action = "unknown_failure"
	// ActionContinue: recognizable, benign progress output. Loop
	// continues normally.
	ActionContinue Action = "continue"
)

// Result is the outcome of classifying one iteration's output.
type Result struct {
	Action Action
	// Host is set for ActionNasty when the output names a host.
	Host string
	// LockPath is set for ActionLockCollision.
	LockPath string
	// RebaseApplyDir is set for ActionStaleRebaseApply.
	RebaseApplyDir string
}

var (
	nastyRE          = regexp.MustCompile(`(?s)POSSIBLE.*SOMEONE.*DOING.*NASTY`)
	nastyHostRE      = regexp.MustCompile(`ssh-keygen -R ([^\s'"]+)`)
	divergedRE       = regexp.MustCompile(`(?s)Your branch.*diverged`)
	unstagedRE       = regexp.MustCompile(`You have unstaged changes`)
	lockCollisionRE  = regexp.MustCompile(`fatal: Unable to create '(.+)': File exists\.`)
	staleRebaseRE    = regexp.MustCompile(`(?s)cannot create.*rebase-apply.*please rm -fr (\S*\.git/rebase-apply)`)
	upToDateRE       = regexp.MustCompile(`(?s)Current branch.*is up to date`)
	knownProgressREs = []*regexp.Regexp{
		regexp.MustCompile(`(?i)rewinding head to replay`),
		regexp.MustCompile(`(?i)fast-forward`),
		regexp.MustCompile(`(?i)but expected`),
		regexp.MustCompile(`(?i)Unpacking objects`),
		regexp.MustCompile(`(?i)Cannot rebase`),
		regexp.MustCompile(`(?i)ecent commit`),
	}
)

// Classify matches output against the pathology catalog in the table's
// priority order and returns the first match. If nothing in the catalog
// matches and none of the known-benign progress markers appear either,
// it returns ActionUnknownFailure. Otherwise (recognizable but benign
// progress text) it returns ActionContinue.
func Classify(output string) Result {
	if m := nastyRE.FindString(output); m != "" {
		host := ""
		if hm := nastyHostRE.FindStringSubmatch(output); hm != nil {
			host = hm[1]
		}
		return Result{Action: ActionNasty, Host: host}
	}
	if divergedRE.MatchString(output) {
		return Result{Action: ActionDiverged}
	}
	if unstagedRE.MatchString(output) {
		return Result{Action: ActionUnstaged}
	}
	if m := lockCollisionRE.FindStringSubmatch(output); m != nil {
		return Result{Action: ActionLockCollision, LockPath: m[1]}
	}
	if m := staleRebaseRE.FindStringSubmatch(output); m != nil {
		return Result{Action: ActionStaleRebaseApply, RebaseApplyDir: m[1]}
	}
	if upToDateRE.MatchString(output) {
		return Result{Action: ActionUpToDate}
	}

	for _, re := range knownProgressREs {
		if re.MatchString(output) {
			return Result{Action: ActionContinue}
		}
	}
	return Result{Action: ActionUnknownFailure}
}
