// Package timing holds the cancellable sleep used at every suspend point
// and the float-seconds type used in settings and sequence files.
package timing

import (
	"context"
	"fmt"
	"time"
)

// Seconds is a duration written as fractional seconds (0.08, 1.5, 20)
type Seconds float64

// Duration converts to time.Duration
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

func (s Seconds) String() string {
	return fmt.Sprintf("%gs", float64(s))
}

// FromDuration converts a time.Duration to Seconds
func FromDuration(d time.Duration) Seconds {
	return Seconds(d.Seconds())
}

// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
