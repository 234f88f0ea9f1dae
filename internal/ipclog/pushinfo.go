package ipclog

import (
	"bufio"
	"os"
	"strings"
)

// RefRecord is one entry from pushinfo.log: the pushed/fetched ref's name
// plus whatever indented key/value fields followed it (old/new sha,
// force-update flag, and similar), as loosely structured as the log file
// itself.
type RefRecord struct {
	Ref    string
	Fields map[string]string
}

// ParsePushinfo reads a pushinfo.log file: newline-delimited indented ref
// records, with a blank line separating each ref. The first unindented
// line of a record is the ref name; subsequent "key: value" lines (which
// are indented) become Fields.
func ParsePushinfo(path string) ([]RefRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []RefRecord
	var cur *RefRecord

	flush := func() {
		if cur != nil {
			records = append(records, *cur)
			cur = nil
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			flush()
			cur = &RefRecord{Ref: strings.TrimSpace(line), Fields: map[string]string{}}
			continue
		}
		if cur == nil {
			continue
		}
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		cur.Fields[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	flush()

	return records, scanner.Err()
}
