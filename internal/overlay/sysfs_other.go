//go:build !linux

package overlay

import (
	"github.com/wfunc/fod-bridge/internal/errors"
)

// SysfsOpener 非Linux平台上打开总是失败
func SysfsOpener(path string) Opener {
	return func() (Source, error) {
		return nil, errors.New(errors.ErrNotImplemented, "sysfs overlay source: "+path)
	}
}
