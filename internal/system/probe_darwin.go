package system

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/frederic-klein/yapi/internal/dist"
)

func probe() (dist.System, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return dist.System{}, fmt.Errorf("reading machine name: %w", err)
	}

	version, err := unix.Sysctl("kern.osproductversion")
	if err != nil {
		return dist.System{}, fmt.Errorf("reading mac version: %w", err)
	}
	major, err := parseMajor(version)
	if err != nil {
		return dist.System{}, err
	}

	return dist.System{
		Platform: dist.PlatformMac,
		Arch:     unix.ByteSliceToString(uts.Machine[:]),
		OS:       dist.OS{Name: dist.PlatformMac, MajorVersion: major},
	}, nil
}
