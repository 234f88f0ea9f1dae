package identity

import (
	"testing"
	"time"
)

func TestFromEnvironmentPrefersSSHConnection(t *testing.T) {
	t.Setenv("SSH_CONNECTION", "10.0.0.5 54321 10.0.0.1 22")
	t.Setenv("SSH_CLIENT", "") // should be ignored since SSH_CONNECTION is set

	now := time.Unix(1700000000, 0)
	tup := FromEnvironment("alice", now)

	if tup.Key != "alice" {
		t.Fatalf("Key = %q, want alice", tup.Key)
	}
	if tup.ClientIP != "10.0.0.5" || tup.ClientPort != "54321" {
		t.Fatalf("client endpoint = %s:%s, want 10.0.0.5:54321", tup.ClientIP, tup.ClientPort)
	}
	if tup.ServerIP != "10.0.0.1" || tup.ServerPort != "22" {
		t.Fatalf("server endpoint = %s:%s, want 10.0.0.1:22", tup.ServerIP, tup.ServerPort)
	}
	if tup.ConnectedEpoch != 1700000000 {
		t.Fatalf("ConnectedEpoch = %d, want 1700000000", tup.ConnectedEpoch)
	}
}

func TestFromEnvironmentFallsBackToSSHClient(t *testing.T) {
	t.Setenv("SSH_CONNECTION", "")
	t.Setenv("SSH_CLIENT", "192.168.1.9 4242 22")

	tup := FromEnvironment("", time.Now())
	if tup.Key != UnknownKey {
		t.Fatalf("Key = %q, want fallback %q", tup.Key, UnknownKey)
	}
	if tup.ClientIP != "192.168.1.9" {
		t.Fatalf("ClientIP = %q, want 192.168.1.9", tup.ClientIP)
	}
}

func TestHasSSHContext(t *testing.T) {
	t.Setenv("SSH_CLIENT", "")
	t.Setenv("SSH_CONNECTION", "")
	if HasSSHContext() {
		t.Fatal("expected no SSH context")
	}

	t.Setenv("SSH_CLIENT", "1.2.3.4 1 2")
	if !HasSSHContext() {
		t.Fatal("expected SSH context from SSH_CLIENT")
	}
}

func TestClientIPFromEnv(t *testing.T) {
	t.Setenv("SSH_CLIENT", "203.0.113.9 1234 22")
	t.Setenv("SSH_CONNECTION", "")

	ip, err := ClientIPFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ip != "203.0.113.9" {
		t.Fatalf("ip = %q, want 203.0.113.9", ip)
	}

	t.Setenv("SSH_CLIENT", "")
	if _, err := ClientIPFromEnv(); err == nil {
		t.Fatal("expected error with no SSH context")
	}
}
