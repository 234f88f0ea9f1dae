// Package identity constructs the immutable per-connection identity tuple
// described in the data model: the caller's KEY plus the four SSH
// connection endpoints and the epoch the connection started.
package identity

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// UnknownKey is the KEY value used when no identity was supplied.
const UnknownKey = "UNKNOWN"

// Tuple is the identity of one SSH-invoked session. Once constructed it
// must not be mutated for the life of the connection.
type Tuple struct {
	Key            string
	ClientIP       string
	ClientPort     string
	ServerIP       string
	ServerPort     string
	ConnectedEpoch int64
}

// FromEnvironment builds a Tuple from the process environment at connection
// start. key is the KEY value resolved by the caller (forced-command
// argument or user environment); pass "" to fall back to UnknownKey.
//
// SSH_CLIENT has the form "client-ip client-port server-port" in most
// sshd configurations but some document it as "client-ip client-port
// server-ip server-port"; SSH_CONNECTION always has all four fields in
// "client-ip client-port server-ip server-port" order. SSH_CONNECTION is
// preferred when present since it is unambiguous.
func FromEnvironment(key string, now time.Time) Tuple {
	if key == "" {
		key = UnknownKey
	}

	t := Tuple{
		Key:            key,
		ConnectedEpoch: now.Unix(),
	}

	if conn := os.Getenv("SSH_CONNECTION"); conn != "" {
		fields := strings.Fields(conn)
		if len(fields) >= 4 {
			t.ClientIP = fields[0]
			t.ClientPort = fields[1]
			t.ServerIP = fields[2]
			t.ServerPort = fields[3]
			return t
		}
	}

	if client := os.Getenv("SSH_CLIENT"); client != "" {
		fields := strings.Fields(client)
		if len(fields) >= 1 {
			t.ClientIP = fields[0]
		}
		if len(fields) >= 2 {
			t.ClientPort = fields[1]
		}
		if len(fields) >= 3 {
			t.ServerPort = fields[2]
		}
	}

	return t
}

// HasSSHContext reports whether SSH_CLIENT or SSH_CONNECTION is present in
// the environment — the precondition for every server-side component.
func HasSSHContext() bool {
	return os.Getenv("SSH_CLIENT") != "" || os.Getenv("SSH_CONNECTION") != ""
}

// ClientIPFromEnv returns just the client IP portion used by the IP
// restrictor, preferring SSH_CLIENT (the field the spec names explicitly)
// and falling back to SSH_CONNECTION.
func ClientIPFromEnv() (string, error) {
	if client := os.Getenv("SSH_CLIENT"); client != "" {
		fields := strings.Fields(client)
		if len(fields) == 0 {
			return "", fmt.Errorf("SSH_CLIENT is set but empty")
		}
		return fields[0], nil
	}
	if conn := os.Getenv("SSH_CONNECTION"); conn != "" {
		fields := strings.Fields(conn)
		if len(fields) == 0 {
			return "", fmt.Errorf("SSH_CONNECTION is set but empty")
		}
		return fields[0], nil
	}
	return "", fmt.Errorf("no SSH context in environment")
}

// String renders the tuple for debug logging.
func (t Tuple) String() string {
	return fmt.Sprintf("KEY=%s client=%s:%s server=%s:%s epoch=%s",
		t.Key, t.ClientIP, t.ClientPort, t.ServerIP, t.ServerPort,
		strconv.FormatInt(t.ConnectedEpoch, 10))
}
