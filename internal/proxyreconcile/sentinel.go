package proxyreconcile

import (
	"os"
	"path/filepath"
)

// sentinelName is the file under $GIT_DIR that records the last tip
// listing both sides agreed on, per §4.D / §9's design note.
const sentinelName = "SYNCED"

// SentinelPath returns the path to the SYNCED sentinel under gitDir.
func SentinelPath(gitDir string) string {
	return filepath.Join(gitDir, sentinelName)
}

// ReadSentinel returns the contents of the SYNCED sentinel, or ("", false)
// if it does not exist yet (first run).
func ReadSentinel(gitDir string) (string, bool, error) {
	data, err := os.ReadFile(SentinelPath(gitDir))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// WriteSentinel persists listing via a write-to-temp-then-rename so a
// crash mid-write never leaves a half-written SYNCED file behind.
func WriteSentinel(gitDir, listing string) error {
	path := SentinelPath(gitDir)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, []byte(listing), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
