package system

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/frederic-klein/yapi/internal/dist"
)

var osReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

func probe() (dist.System, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return dist.System{}, fmt.Errorf("reading machine name: %w", err)
	}
	arch := unix.ByteSliceToString(uts.Machine[:])

	var lastErr error
	for _, path := range osReleasePaths {
		f, err := os.Open(path)
		if err != nil {
			lastErr = err
			continue
		}
		fields, err := parseOSRelease(f)
		f.Close()
		if err != nil {
			return dist.System{}, fmt.Errorf("reading %s: %w", path, err)
		}
		return linuxSystem(fields, arch)
	}
	return dist.System{}, fmt.Errorf("reading release database: %w", lastErr)
}
