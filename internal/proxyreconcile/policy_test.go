package proxyreconcile

import "testing"

func TestClassifyHook(t *testing.T) {
	cases := map[string]HookPhase{
		"pre-read":   HookPre,
		"pre-write":  HookPre,
		"post-write": HookPostWrite,
		"post-read":  HookPostRead,
		"update":     HookOther,
	}
	for name, want := range cases {
		if got := ClassifyHook(name); got != want {
			t.Errorf("ClassifyHook(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDecidePreSyncedAbsentBothExist(t *testing.T) {
	if got := Decide(HookPre, false, true, true, KindBranch); got != CaseHealAmbiguous {
		t.Fatalf("got %v, want CaseHealAmbiguous", got)
	}
}

func TestDecidePreSyncedAbsentOnlyThere(t *testing.T) {
	if got := Decide(HookPre, false, false, true, KindBranch); got != CaseHealCreateOnHere {
		t.Fatalf("got %v, want CaseHealCreateOnHere", got)
	}
}

func TestDecidePreSyncedAbsentOnlyHere(t *testing.T) {
	if got := Decide(HookPre, false, true, false, KindTag); got != CaseHealCreateOnThere {
		t.Fatalf("got %v, want CaseHealCreateOnThere", got)
	}
}

func TestDecidePreSyncedPresentRemoteMissing(t *testing.T) {
	if got := Decide(HookPre, true, true, false, KindBranch); got != CaseRemoteDeleteLocal {
		t.Fatalf("got %v, want CaseRemoteDeleteLocal", got)
	}
}

func TestDecidePreSyncedPresentTagMove(t *testing.T) {
	if got := Decide(HookPre, true, true, true, KindTag); got != CaseRemoteToLocalTag {
		t.Fatalf("got %v, want CaseRemoteToLocalTag", got)
	}
}

func TestDecidePreSyncedPresentBranchMove(t *testing.T) {
	if got := Decide(HookPre, true, true, true, KindBranch); got != CaseRemoteToLocalBranch {
		t.Fatalf("got %v, want CaseRemoteToLocalBranch", got)
	}
}

func TestDecidePostWriteSyncedAbsentIsNoop(t *testing.T) {
	if got := Decide(HookPostWrite, false, true, true, KindBranch); got != CaseNoop {
		t.Fatalf("got %v, want CaseNoop", got)
	}
}

func TestDecidePostWriteSyncedPresentLocalMissing(t *testing.T) {
	if got := Decide(HookPostWrite, true, false, true, KindBranch); got != CaseLocalDeleteRemote {
		t.Fatalf("got %v, want CaseLocalDeleteRemote", got)
	}
}

func TestDecidePostWriteSyncedPresentTagMove(t *testing.T) {
	if got := Decide(HookPostWrite, true, true, true, KindTag); got != CaseLocalToRemoteTag {
		t.Fatalf("got %v, want CaseLocalToRemoteTag", got)
	}
}

func TestDecidePostWriteSyncedPresentBranchMove(t *testing.T) {
	if got := Decide(HookPostWrite, true, true, true, KindBranch); got != CaseLocalToRemoteBranch {
		t.Fatalf("got %v, want CaseLocalToRemoteBranch", got)
	}
}

func TestDecidePostReadAlwaysNoop(t *testing.T) {
	if got := Decide(HookPostRead, true, true, true, KindBranch); got != CaseNoop {
		t.Fatalf("got %v, want CaseNoop", got)
	}
	if got := Decide(HookPostRead, false, false, true, KindTag); got != CaseNoop {
		t.Fatalf("got %v, want CaseNoop", got)
	}
}
