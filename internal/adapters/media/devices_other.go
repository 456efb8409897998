//go:build !linux

package media

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
)

var _ core.MediaSource = (*DeviceSource)(nil)

// DeviceSource has no capture drivers outside Linux.
type DeviceSource struct{}

func NewDeviceSource(Config) (*DeviceSource, error) { return &DeviceSource{}, nil }

func (*DeviceSource) GetUserMedia(context.Context) (core.LocalStream, error) {
	return nil, fmt.Errorf("%w: no capture drivers on %s", domain.ErrDeviceUnavailable, runtime.GOOS)
}
