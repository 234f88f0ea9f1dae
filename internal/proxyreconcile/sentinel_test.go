package proxyreconcile

import "testing"

func TestSentinelRoundTrip(t *testing.T) {
	gitDir := t.TempDir()

	if _, present, err := ReadSentinel(gitDir); err != nil || present {
		t.Fatalf("present=%v err=%v, want absent/nil on first read", present, err)
	}

	listing := "branch main aaa\ntag v1 bbb\n"
	if err := WriteSentinel(gitDir, listing); err != nil {
		t.Fatalf("WriteSentinel: %v", err)
	}

	got, present, err := ReadSentinel(gitDir)
	if err != nil {
		t.Fatalf("ReadSentinel: %v", err)
	}
	if !present {
		t.Fatal("expected sentinel present after write")
	}
	if got != listing {
		t.Fatalf("got %q, want %q", got, listing)
	}
}
