package pathology

import (
	"math/rand"
	"os"
	"time"
)

// staleRebaseApplyAge is how old a leftover rebase-apply directory must be
// before it's considered abandoned rather than mid-flight.
const staleRebaseApplyAge = 1 * time.Hour

// IsStaleRebaseApplyDir reports whether the rebase-apply directory at path
// is old enough to be considered abandoned.
func IsStaleRebaseApplyDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return time.Since(info.ModTime()) > staleRebaseApplyAge, nil
}

// UpToDateSleep returns the catalog's "Current branch...is up to date"
// backoff: a flat 5 seconds plus a uniform random jitter of 0-54 seconds,
// so many deploy daemons polling the same proxy don't all wake in
// lockstep.
func UpToDateSleep() time.Duration {
	return 5*time.Second + time.Duration(rand.Intn(55))*time.Second
}
