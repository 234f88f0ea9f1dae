package procwatch

import (
	"os"
	"strings"
	"testing"
)

func TestSetTitleOverwritesArgvBytesInPlace(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	// A long argv[0] gives SetTitle room to write into; the test only
	// asserts on the bytes it actually owns, not on any real ps output.
	os.Args = []string{strings.Repeat("x", 64)}

	SetTitle("worker - /srv/repo.git: deploying")

	got := os.Args[0]
	if !strings.HasPrefix(got, "worker - /srv/repo.git: deploying") {
		t.Fatalf("argv[0] = %q, want prefix %q", got, "worker - /srv/repo.git: deploying")
	}
	if got[len("worker - /srv/repo.git: deploying")] != 0 {
		t.Fatalf("expected NUL padding after the written title")
	}
}

func TestSetTitleTruncatesToOriginalArgvLength(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	os.Args = []string{strings.Repeat("x", 4)}

	SetTitle("this title is far longer than the available argv space")

	if len(os.Args[0]) != 4 {
		t.Fatalf("argv[0] length changed from 4 to %d", len(os.Args[0]))
	}
}
