// Package volume probes the mount and drive metadata of a scan root, so the
// fileset can record which volume it came from and whether the root itself
// is a mount point.
package volume

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Metadata describes the drive or volume backing a scan root. Fields are
// empty when the platform or filesystem does not expose the information.
type Metadata struct {
	ID     string // volume UUID, when resolvable via /dev/disk/by-uuid
	Label  string // volume label, when resolvable via /dev/disk/by-label
	FSType string // filesystem type reported by the mount table
}

// Mount describes one entry of the mount table relevant to path resolution.
type Mount struct {
	Point  string
	FSType string
	Source string
}

// ProbeForPath returns the drive metadata for the mount that best matches
// path. On non-Linux platforms it returns a zero Metadata.
func ProbeForPath(path string) Metadata {
	if runtime.GOOS != "linux" {
		return Metadata{}
	}
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		canonical = path
	}
	mount, ok := bestMountForPath(canonical)
	if !ok {
		return Metadata{}
	}
	var id, label string
	if strings.HasPrefix(mount.Source, "/dev/") {
		devPath, err := filepath.EvalSymlinks(mount.Source)
		if err != nil {
			devPath = mount.Source
		}
		id, _ = findDiskID(devPath, "/dev/disk/by-uuid")
		label, _ = findDiskID(devPath, "/dev/disk/by-label")
	}
	return Metadata{ID: id, Label: label, FSType: mount.FSType}
}

// IsMountPoint reports whether path is itself the mount point of some
// filesystem (as opposed to a directory somewhere inside one). Used when
// recording fileset metadata, to note whether a scan root was itself a
// mounted volume.
func IsMountPoint(path string) bool {
	if runtime.GOOS != "linux" {
		return false
	}
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		canonical = path
	}
	mount, ok := bestMountForPath(canonical)
	if !ok {
		return false
	}
	return filepath.Clean(mount.Point) == filepath.Clean(canonical)
}

func bestMountForPath(path string) (Mount, bool) {
	data, err := os.ReadFile("/proc/self/mountinfo")
	if err != nil {
		return Mount{}, false
	}
	var best Mount
	found := false
	for _, line := range strings.Split(string(data), "\n") {
		m, ok := parseMountinfoLine(line)
		if !ok {
			continue
		}
		if !withinMount(path, m.Point) {
			continue
		}
		if !found || len(m.Point) > len(best.Point) {
			best = m
			found = true
		}
	}
	return best, found
}

func withinMount(path, mountPoint string) bool {
	if mountPoint == "/" {
		return true
	}
	return path == mountPoint || strings.HasPrefix(path, mountPoint+string(filepath.Separator))
}

// parseMountinfoLine parses one line of /proc/self/mountinfo, the Linux
// mount table format documented in proc(5). Fields before " - " are a
// variable-length list whose 5th entry (index 4) is the mount point;
// fields after " - " begin with the filesystem type and mount source.
func parseMountinfoLine(line string) (Mount, bool) {
	left, right, ok := strings.Cut(line, " - ")
	if !ok {
		return Mount{}, false
	}
	leftFields := strings.Fields(left)
	if len(leftFields) < 5 {
		return Mount{}, false
	}
	rightFields := strings.Fields(right)
	m := Mount{Point: unescapeMountinfo(leftFields[4])}
	if len(rightFields) > 0 {
		m.FSType = rightFields[0]
	}
	if len(rightFields) > 1 {
		m.Source = rightFields[1]
	}
	return m, true
}

func unescapeMountinfo(s string) string {
	r := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return r.Replace(s)
}

func findDiskID(dev, dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		linkPath := filepath.Join(dir, entry.Name())
		target, err := filepath.EvalSymlinks(linkPath)
		if err != nil {
			target = linkPath
		}
		if target == dev {
			return entry.Name(), true
		}
	}
	return "", false
}

// HostOSVersion returns a human-readable host OS description. On Linux it
// reads /etc/os-release's PRETTY_NAME; elsewhere it falls back to GOOS.
func HostOSVersion() string {
	if runtime.GOOS == "linux" {
		if data, err := os.ReadFile("/etc/os-release"); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				name, value, ok := strings.Cut(line, "=")
				if !ok || name != "PRETTY_NAME" {
					continue
				}
				return strings.Trim(value, `"`)
			}
		}
	}
	return runtime.GOOS
}
