package proxyreconcile

// HookPhase classifies which of the four reconciler-invoking hooks is
// currently running, collapsing pre-read and pre-write into one case since
// the directional policy table treats them identically.
type HookPhase int

const (
	HookPre HookPhase = iota
	HookPostWrite
	HookPostRead
	HookOther
)

// ClassifyHook maps a hook name (argv[1] of the reconciler binary) to its
// HookPhase.
func ClassifyHook(hookName string) HookPhase {
	switch hookName {
	case "pre-read", "pre-write":
		return HookPre
	case "post-write":
		return HookPostWrite
	case "post-read":
		return HookPostRead
	default:
		return HookOther
	}
}

// Case names one branch of the (phase, SYNCED sentinel, ref existence)
// directional policy table.
type Case int

const (
	// CaseNoop means this ref needs no action this run.
	CaseNoop Case = iota
	// CaseHealAmbiguous means both sides have the ref and it differs: the
	// caller must probe ancestry to decide which side is stale.
	CaseHealAmbiguous
	// CaseHealCreateOnHere means only "there" has the ref: create it here.
	CaseHealCreateOnHere
	// CaseHealCreateOnThere means only "here" has the ref: create it there.
	CaseHealCreateOnThere
	// CaseRemoteDeleteLocal means the ref is gone on "there": delete it
	// locally and push-delete it to "here".
	CaseRemoteDeleteLocal
	// CaseRemoteToLocalTag means a tag moved on "there": force it locally
	// and force-push it to "here".
	CaseRemoteToLocalTag
	// CaseRemoteToLocalBranch means a branch moved on "there": track,
	// rebase-pull from "there", push to "here".
	CaseRemoteToLocalBranch
	// CaseLocalDeleteRemote means the ref is gone on "here": push-delete
	// it to "there".
	CaseLocalDeleteRemote
	// CaseLocalToRemoteTag means a tag moved on "here": force-push it to
	// "there".
	CaseLocalToRemoteTag
	// CaseLocalToRemoteBranch means a branch moved on "here": push it to
	// "there".
	CaseLocalToRemoteBranch
	// CaseTooDivergent means neither side is an ancestor of the other:
	// log and skip.
	CaseTooDivergent
)

// Decide resolves the directional policy table for one differing ref.
// hereExists/thereExists report whether the ref currently has a tip on
// that remote at all (false for CaseHealAmbiguous's callers, which already
// know both exist).
func Decide(hook HookPhase, syncedPresent bool, hereExists, thereExists bool, kind RefKind) Case {
	switch hook {
	case HookPre:
		if !syncedPresent {
			switch {
			case hereExists && thereExists:
				return CaseHealAmbiguous
			case thereExists:
				return CaseHealCreateOnHere
			case hereExists:
				return CaseHealCreateOnThere
			default:
				return CaseNoop
			}
		}
		// SYNCED present: remote -> local.
		switch {
		case !thereExists:
			return CaseRemoteDeleteLocal
		case kind == KindTag:
			return CaseRemoteToLocalTag
		default:
			return CaseRemoteToLocalBranch
		}

	case HookPostWrite:
		if !syncedPresent {
			return CaseNoop
		}
		// SYNCED present: local -> remote, mirror image of the pre policy.
		switch {
		case !hereExists:
			return CaseLocalDeleteRemote
		case kind == KindTag:
			return CaseLocalToRemoteTag
		default:
			return CaseLocalToRemoteBranch
		}

	default: // HookPostRead, HookOther
		return CaseNoop
	}
}
