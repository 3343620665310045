package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/prilive-com/strmbot/internal/resilience"
)

var _ resilience.Sleeper = (*FakeSleeper)(nil)

// FakeSleeper records retry waits instead of sleeping.
// A cancelled context is reported and not recorded.
type FakeSleeper struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (f *FakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, d)
	return nil
}

// Calls returns the recorded waits in order.
func (f *FakeSleeper) Calls() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.calls...)
}

func (f *FakeSleeper) CallCount() int { return len(f.Calls()) }

// CallAt returns wait i, or 0 if there is none.
func (f *FakeSleeper) CallAt(i int) time.Duration {
	calls := f.Calls()
	if i < 0 || i >= len(calls) {
		return 0
	}
	return calls[i]
}

// LastCall returns the latest wait, or 0.
func (f *FakeSleeper) LastCall() time.Duration {
	return f.CallAt(f.CallCount() - 1)
}
