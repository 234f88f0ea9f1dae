package ipclog

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// StreamEvent is one read()/write() call sniffed out of log.trace, with
// its pkt-line framing already stripped from the captured payload.
type StreamEvent struct {
	FD      int // 0 for read, 1 or 2 for write
	Payload string
	Want    string
	Have    string
	Agent   string
}

// Trace is the parsed contents of one log.trace file.
type Trace struct {
	Events    []StreamEvent
	ExitCode  int
	HasExit   bool
	Synthetic bool // true if this doesn't look like a real strace capture
}

var (
	readLineRE  = regexp.MustCompile(`^read\(0,\s*"(.*)",\s*\d+\)\s*=\s*\d+`)
	writeLineRE = regexp.MustCompile(`^write\((1|2),\s*"(.*)",\s*\d+\)\s*=\s*\d+`)
	exitLineRE  = regexp.MustCompile(`^\+\+\+ exited with (\d+) \+\+\+`)
	execveRE    = regexp.MustCompile(`^execve\(`)
)

// ParseTrace reads a log.trace file and extracts its read/write payloads,
// pkt-line-stripped and scanned for want/have/agent tokens, plus the
// terminal exit status line when present.
//
// Synthetic is set when the file contains no execve(...) line: a real
// strace-style capture always opens with the traced command's execve,
// so a file missing one is either hand-written or produced by a fallback
// debug dump rather than an actual trace.
func ParseTrace(path string) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return Trace{}, err
	}
	defer f.Close()

	tr := Trace{Synthetic: true}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if execveRE.MatchString(line) {
			tr.Synthetic = false
			continue
		}

		if m := exitLineRE.FindStringSubmatch(line); m != nil {
			code, err := strconv.Atoi(m[1])
			if err == nil {
				tr.ExitCode = code
				tr.HasExit = true
			}
			continue
		}

		if m := readLineRE.FindStringSubmatch(line); m != nil {
			payload := unescapeC(m[1])
			tr.Events = append(tr.Events, eventFromPayload(0, payload))
			continue
		}

		if m := writeLineRE.FindStringSubmatch(line); m != nil {
			fd, _ := strconv.Atoi(m[1])
			payload := unescapeC(m[2])
			tr.Events = append(tr.Events, eventFromPayload(fd, payload))
			continue
		}
	}

	return tr, scanner.Err()
}

func eventFromPayload(fd int, raw string) StreamEvent {
	ev := StreamEvent{FD: fd, Payload: raw}
	for _, pkt := range StripAllPktLines(raw) {
		want, have, agent := ExtractTokens(pkt)
		if want != "" {
			ev.Want = want
		}
		if have != "" {
			ev.Have = have
		}
		if agent != "" {
			ev.Agent = agent
		}
	}
	return ev
}

// unescapeC undoes the subset of C-string escaping strace uses in its
// quoted read()/write() arguments: \n, \t, \\, \".
func unescapeC(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 't':
				b.WriteByte('\t')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case '"':
				b.WriteByte('"')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
