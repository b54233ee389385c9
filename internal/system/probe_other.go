//go:build !linux && !darwin && !windows

package system

import (
	"runtime"

	"github.com/frederic-klein/yapi/internal/dist"
	"github.com/frederic-klein/yapi/internal/errors"
)

func probe() (dist.System, error) {
	return dist.System{}, errors.New(errors.ErrCodeUnsupportedPlatform, "unsupported platform: %s", runtime.GOOS)
}
