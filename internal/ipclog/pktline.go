// Package ipclog parses the optional diagnostic files a pipeline session
// leaves behind in its IPC scratch directory ($IPC): pushinfo.log (ref
// records) and log.trace (a strace-like read/write capture), reconstructing
// an approximate client<->server byte stream for post-* hooks that want to
// inspect what was pushed or fetched.
package ipclog

import (
	"strconv"
	"strings"
)

// StripPktLine removes one Git pkt-line length prefix (4 hex digits) from
// the front of line and returns the payload. Flush ("0000"), delimiter
// ("0001"), and response-end ("0002") packets have no payload and return
// "". Lines that don't parse as a pkt-line are returned unchanged, since
// log.trace interleaves plain text with raw protocol bytes.
func StripPktLine(line string) string {
	if len(line) < 4 {
		return line
	}
	n, err := strconv.ParseInt(line[:4], 16, 32)
	if err != nil {
		return line
	}
	if n <= 2 {
		return ""
	}
	if int(n) < 4 || int(n) > len(line) {
		return line
	}
	return line[4:n]
}

// StripAllPktLines splits a concatenated run of pkt-lines (as they appear
// packed together in a single read()/write() payload) into their
// individual payloads.
func StripAllPktLines(blob string) []string {
	var out []string
	for len(blob) > 0 {
		if len(blob) < 4 {
			out = append(out, blob)
			break
		}
		n, err := strconv.ParseInt(blob[:4], 16, 32)
		if err != nil {
			out = append(out, blob)
			break
		}
		if n == 0 {
			blob = blob[4:]
			continue
		}
		if int(n) < 4 || int(n) > len(blob) {
			out = append(out, blob)
			break
		}
		out = append(out, blob[4:n])
		blob = blob[n:]
	}
	return out
}

// ExtractTokens scans a pkt-line payload for the want/have/agent tokens
// the upload-pack and receive-pack negotiation phases exchange.
func ExtractTokens(payload string) (want, have, agent string) {
	fields := strings.Fields(payload)
	for i, f := range fields {
		switch {
		case f == "want" && i+1 < len(fields):
			want = fields[i+1]
		case f == "have" && i+1 < len(fields):
			have = fields[i+1]
		case strings.HasPrefix(f, "agent="):
			agent = strings.TrimPrefix(f, "agent=")
		}
	}
	return want, have, agent
}
