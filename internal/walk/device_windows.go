//go:build windows

package walk

import (
	"syscall"
)

// deviceID returns the volume serial number backing path, the Windows
// analogue of a Unix device id, used to detect mount/drive boundaries. ok
// is false if the handle or file-information query fails.
func deviceID(path string) (id uint64, ok bool) {
	p, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return 0, false
	}
	handle, err := syscall.CreateFile(
		p,
		0,
		syscall.FILE_SHARE_READ|syscall.FILE_SHARE_WRITE|syscall.FILE_SHARE_DELETE,
		nil,
		syscall.OPEN_EXISTING,
		syscall.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return 0, false
	}
	defer syscall.CloseHandle(handle)

	var info syscall.ByHandleFileInformation
	if err := syscall.GetFileInformationByHandle(handle, &info); err != nil {
		return 0, false
	}
	return uint64(info.VolumeSerialNumber), true
}
