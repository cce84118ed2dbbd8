package scheduler

import (
	"context"
	"sync"
	"time"

	"NoteAnalytics/internal/ports"
)

// Interval triggers a job on a fixed period. The first trigger fires one
// full period after Start so a manual sync at boot is not duplicated.
type Interval struct {
	every time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

var _ ports.Scheduler = (*Interval)(nil)

// NewInterval builds a scheduler firing every given duration.
func NewInterval(every time.Duration) *Interval {
	return &Interval{every: every}
}

// Start begins ticking in a background goroutine. Calling Start again while
// running, or after Stop, does nothing.
func (i *Interval) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stop != nil || i.stopped {
		return nil
	}

	// The goroutine selects on this local capture; the field is only for
	// Stop to close, so the loop never races a field rewrite.
	stop := make(chan struct{})
	i.stop = stop

	go func() {
		ticker := time.NewTicker(i.every)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				// A pending tick can win the select against a closed stop
				// channel; re-check before running the job.
				select {
				case <-ctx.Done():
					return
				case <-stop:
					return
				default:
				}
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine. Safe to call concurrently with Start and
// more than once.
func (i *Interval) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stopped {
		return nil
	}
	i.stopped = true
	if i.stop != nil {
		close(i.stop)
	}
	return nil
}
