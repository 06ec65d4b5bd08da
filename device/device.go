// Package device defines the boundary to a pose tracking device: a source of raw frames that
// must report ready before it is read.
package device

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/logging"
)

// Readiness polling defaults.
const (
	DefaultReadyTimeout = 4 * time.Second
	ReadyPollInterval   = 100 * time.Millisecond
)

// ErrNotReady is returned when a device does not become ready in time.
var ErrNotReady = errors.New("device did not become ready")

// A Device produces raw frames one at a time. NextFrame returns io.EOF once the device has no
// more frames. Frames are complete for the device's rig and carry their elapsed time.
type Device interface {
	Name() string
	Kind() frame.Kind
	Ready(ctx context.Context) (bool, error)
	NextFrame(ctx context.Context) (*frame.Frame, error)
	Close(ctx context.Context) error
}

// WaitForReady polls dev every ReadyPollInterval until it reports ready, timeout elapses or
// ctx is done. A timeout of zero uses DefaultReadyTimeout. A nil clk uses the wall clock.
func WaitForReady(ctx context.Context, dev Device, timeout time.Duration, clk clock.Clock, logger logging.Logger) error {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	if clk == nil {
		clk = clock.New()
	}
	ticker := clk.Ticker(ReadyPollInterval)
	defer ticker.Stop()
	timer := clk.Timer(timeout)
	defer timer.Stop()

	polls := 0
	for {
		polls++
		ready, err := dev.Ready(ctx)
		if err != nil {
			return errors.Wrapf(err, "cannot check whether %q is ready", dev.Name())
		}
		if ready {
			logger.Debugw("device ready", "device", dev.Name(), "polls", polls)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return errors.Wrapf(ErrNotReady, "%q after %s", dev.Name(), timeout)
		case <-ticker.C:
		}
	}
}
