package ipclog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/sjson"
)

// Summary is the structured record handed to a post-* hook: the parsed
// pushinfo refs, the want/have/agent tokens sniffed out of log.trace (if
// present), and whether that trace was a real capture or a synthetic
// stand-in.
type Summary struct {
	Refs      []RefRecord
	Events    []StreamEvent
	Synthetic bool
	HasTrace  bool
}

// BuildSummary reads pushinfo.log and (optionally) log.trace out of an IPC
// directory. A missing pushinfo.log is not an error; a repo with nothing
// to report just yields an empty Refs list.
func BuildSummary(ipcDir string) (Summary, error) {
	var s Summary

	refs, err := ParsePushinfo(filepath.Join(ipcDir, "pushinfo.log"))
	if err != nil && !os.IsNotExist(err) {
		return s, err
	}
	s.Refs = refs

	tracePath := filepath.Join(ipcDir, "log.trace")
	if _, err := os.Stat(tracePath); err == nil {
		tr, err := ParseTrace(tracePath)
		if err != nil {
			return s, err
		}
		s.Events = tr.Events
		s.Synthetic = tr.Synthetic
		s.HasTrace = true
	}

	return s, nil
}

// ToJSON renders a Summary as JSON using sjson's set-path builder rather
// than a struct tag-driven marshaler, so a hook can still get a usable
// record even when the shape of RefRecord.Fields varies ref to ref. Falls
// back to DebugDump's plain-text rendering if sjson ever fails to build a
// valid document (it practically never does, but the contract this
// parser is built against asks for a soft failure, not a panic).
func (s Summary) ToJSON() string {
	json := "{}"
	var err error

	json, err = sjson.Set(json, "synthetic", s.Synthetic)
	if err != nil {
		return DebugDump(s)
	}
	json, err = sjson.Set(json, "hasTrace", s.HasTrace)
	if err != nil {
		return DebugDump(s)
	}

	for i, r := range s.Refs {
		json, err = sjson.Set(json, fmt.Sprintf("refs.%d.ref", i), r.Ref)
		if err != nil {
			return DebugDump(s)
		}
		for k, v := range r.Fields {
			json, err = sjson.Set(json, fmt.Sprintf("refs.%d.fields.%s", i, k), v)
			if err != nil {
				return DebugDump(s)
			}
		}
	}

	for i, ev := range s.Events {
		base := fmt.Sprintf("events.%d", i)
		for _, kv := range [][2]string{
			{"fd", fmt.Sprint(ev.FD)},
			{"want", ev.Want},
			{"have", ev.Have},
			{"agent", ev.Agent},
		} {
			if kv[1] == "" {
				continue
			}
			json, err = sjson.Set(json, base+"."+kv[0], kv[1])
			if err != nil {
				return DebugDump(s)
			}
		}
	}

	return json
}

// DebugDump renders a Summary as a plain, grep-friendly text dump, the
// fallback used when structured JSON rendering is unavailable or fails.
func DebugDump(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "synthetic=%v hasTrace=%v\n", s.Synthetic, s.HasTrace)
	for _, r := range s.Refs {
		fmt.Fprintf(&b, "ref %s\n", r.Ref)
		for k, v := range r.Fields {
			fmt.Fprintf(&b, "  %s: %s\n", k, v)
		}
	}
	for _, ev := range s.Events {
		fmt.Fprintf(&b, "event fd=%d want=%s have=%s agent=%s\n", ev.FD, ev.Want, ev.Have, ev.Agent)
	}
	return b.String()
}
