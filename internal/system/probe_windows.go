package system

import (
	"runtime"
	"strings"

	"golang.org/x/sys/windows"

	"github.com/frederic-klein/yapi/internal/dist"
)

func probe() (dist.System, error) {
	info := windows.RtlGetVersion()

	return dist.System{
		Platform: dist.PlatformWindows,
		Arch:     windowsArch(runtime.GOARCH),
		OS:       dist.OS{Name: dist.PlatformWindows, MajorVersion: int(info.MajorVersion)},
	}, nil
}

// windowsArch maps GOARCH to the machine names Windows reports.
func windowsArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "AMD64"
	case "386":
		return "x86"
	default:
		return strings.ToUpper(goarch)
	}
}
