package acl

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `[acl]
	readers = alice,bob
	writers = alice
	deploy = carol
	restrictip = 10.0.0.0/8
[proxy]
	url = ssh://up.example.org/repo.git
[log]
	journald = true
[remote "here"]
	url = /srv/git/repo.git
[remote "there"]
	url = ssh://up.example.org/repo.git
`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config"), []byte(sampleConfig), 0644); err != nil {
		t.Fatalf("writing sample config: %v", err)
	}
	return dir
}

func TestLoadParsesAllKeys(t *testing.T) {
	dir := writeSampleConfig(t)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !IsMember(cfg.Readers, "alice") || !IsMember(cfg.Readers, "bob") {
		t.Fatalf("readers = %v, want alice,bob", cfg.Readers)
	}
	if !IsMember(cfg.Writers, "alice") {
		t.Fatalf("writers = %v, want alice", cfg.Writers)
	}
	if !IsMember(cfg.Deploy, "carol") {
		t.Fatalf("deploy = %v, want carol", cfg.Deploy)
	}
	if cfg.RestrictIP != "10.0.0.0/8" {
		t.Fatalf("RestrictIP = %q", cfg.RestrictIP)
	}
	if cfg.ProxyURL != "ssh://up.example.org/repo.git" {
		t.Fatalf("ProxyURL = %q", cfg.ProxyURL)
	}
	if !cfg.LogJournald {
		t.Fatal("expected LogJournald = true")
	}
	if cfg.RemoteHereURL != "/srv/git/repo.git" {
		t.Fatalf("RemoteHereURL = %q", cfg.RemoteHereURL)
	}
	if cfg.RemoteThereURL != "ssh://up.example.org/repo.git" {
		t.Fatalf("RemoteThereURL = %q", cfg.RemoteThereURL)
	}
}

func TestLoadMissingConfigIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error for missing config: %v", err)
	}
	if len(cfg.Readers) != 0 || cfg.ProxyURL != "" {
		t.Fatalf("expected zero-value config, got %+v", cfg)
	}
}

func TestWriteThenAccessInvariants(t *testing.T) {
	cfg := Config{Writers: []string{"alice"}, Deploy: []string{"alice"}}

	if !cfg.CanWrite("alice") {
		t.Fatal("expected alice to have write access")
	}
	if !cfg.CanRead("alice") {
		t.Fatal("write implies read")
	}
	if !cfg.CanDeploy("alice") {
		t.Fatal("expected alice to have deploy access")
	}
	if cfg.CanWrite("bob") || cfg.CanRead("bob") {
		t.Fatal("bob should have no access")
	}
}

func TestBootstrapWriters(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config"), []byte("[core]\n\tbare = true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := BootstrapWriters(dir, "alice"); err != nil {
		t.Fatalf("BootstrapWriters: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after bootstrap: %v", err)
	}
	if !IsMember(cfg.Writers, "alice") {
		t.Fatalf("writers = %v, want alice", cfg.Writers)
	}
}
