package procwatch

import (
	"os"
	"unsafe"
)

// SetTitle overwrites the process's own argv bytes in place so tools like
// `ps` report title instead of the original command line. This is the
// standard (if unsafe) Go technique for process-title rewriting on Linux —
// the runtime keeps os.Args pointing directly at the kernel's argv buffer
// rather than a private copy, so writing through it is visible to anyone
// reading /proc/<pid>/cmdline. The stdlib has no portable API for this, and
// no third-party title-rewriting library is available in this module's
// dependency set, hence reaching for the same unsafe pointer trick
// packages like gospt/gotitle use rather than leaving it unimplemented.
//
// title is truncated to the combined byte length of the original argv,
// the same ceiling C's setproctitle has, since that's all the space the
// kernel gave this process for its command line; writing past it would
// stomp adjacent envp storage.
func SetTitle(title string) {
	if len(os.Args) == 0 || len(os.Args[0]) == 0 {
		return
	}

	total := 0
	for _, a := range os.Args {
		total += len(a)
	}
	if total == 0 {
		return
	}

	buf := unsafe.Slice(unsafe.StringData(os.Args[0]), total)
	n := copy(buf, title)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
}
