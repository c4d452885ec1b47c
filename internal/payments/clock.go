package payments

import (
	"context"
	"time"
)

// Clock abstracts time for the confirmation poll so the gate's transition
// logic can be driven without real delays in tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for the duration or until the context is cancelled, in
	// which case it returns the context error.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock returns a Clock backed by real time.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
