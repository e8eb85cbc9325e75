package framework

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"
)

// ErrStopLoop can be returned by a Controller to end the loop normally.
var ErrStopLoop = errors.New("stop loop")

// Loop runs Controllers one after another, forever, in a single goroutine.
// It is the main loop of a device program: nothing in an iteration runs
// concurrently with anything else in the loop.
type Loop struct {
	// Interval is the minimum duration of an iteration, 0 for none.
	Interval time.Duration
	// Controllers are run in order in each iteration.
	Controllers []Controller
}

// NewLoop creates a Loop.
func NewLoop(ctls ...Controller) *Loop {
	return &Loop{Controllers: ctls}
}

// Add adds controllers to the loop.
func (l *Loop) Add(ctls ...Controller) *Loop {
	l.Controllers = append(l.Controllers, ctls...)
	return l
}

// Every sets the iteration interval.
func (l *Loop) Every(interval time.Duration) *Loop {
	l.Interval = interval
	return l
}

// Run implements Runnable. The first Controller error ends the loop.
func (l *Loop) Run(ctx context.Context) error {
	for {
		start := time.Now()
		for _, ctl := range l.Controllers {
			if err := ctl.Control(ctx); err != nil {
				if err == ErrStopLoop {
					return nil
				}
				return err
			}
		}
		wait := l.Interval - time.Since(start)
		if wait <= 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail(ctx context.Context) {
	if err := l.Run(ctx); err != nil && err != context.Canceled {
		glog.Fatalf("loop error: %v", err)
	}
}
