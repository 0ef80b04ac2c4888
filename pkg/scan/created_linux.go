package scan

import (
	"os"
	"syscall"
	"time"
)

// createdTime approximates creation time on Linux using the inode change
// time. Linux exposes birth time only through statx, which is not worth a
// cgo or raw-syscall dependency for a best-effort field.
func createdTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return info.ModTime()
}
