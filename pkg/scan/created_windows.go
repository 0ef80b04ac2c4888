package scan

import (
	"os"
	"syscall"
	"time"
)

// createdTime returns the file creation time from the Win32 attribute data.
func createdTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return time.Unix(0, st.CreationTime.Nanoseconds())
	}
	return info.ModTime()
}
