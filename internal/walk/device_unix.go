//go:build unix

package walk

import (
	"os"
	"syscall"
)

// deviceID returns the device id backing path, used to detect mount
// boundaries. ok is false if the platform's stat call fails.
func deviceID(path string) (id uint64, ok bool) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, false
	}
	stat, isStat := info.Sys().(*syscall.Stat_t)
	if !isStat {
		return 0, false
	}
	return uint64(stat.Dev), true
}
