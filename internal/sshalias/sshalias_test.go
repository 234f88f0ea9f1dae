package sshalias

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	content := "Host deploy-box\n  HostName deploy.internal.example\n  Port 2222\n  User git\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	hostname, port, user, err := Resolve("deploy-box", path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if hostname != "deploy.internal.example" {
		t.Fatalf("hostname = %q", hostname)
	}
	if port != "2222" {
		t.Fatalf("port = %q", port)
	}
	if user != "git" {
		t.Fatalf("user = %q", user)
	}
}

func TestResolveMissingConfigFallsBackToAlias(t *testing.T) {
	hostname, port, user, err := Resolve("some-alias", filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if hostname != "some-alias" || port != "" || user != "" {
		t.Fatalf("got %q %q %q, want alias fallback", hostname, port, user)
	}
}

func TestDescribe(t *testing.T) {
	got := Describe("deploy-box", "deploy.internal.example", "2222", "git")
	want := "deploy-box -> git@deploy.internal.example:2222"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDescribeNoUserOrPort(t *testing.T) {
	got := Describe("deploy-box", "deploy.internal.example", "", "")
	want := "deploy-box -> deploy.internal.example"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
