package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Aggregate())
	errs.Add(nil, errors.New("a"))
	require.EqualError(t, errs.Aggregate(), "a")
	errs.Add(errors.New("b"))
	require.EqualError(t, errs.Aggregate(), "2 errors: a; b")
}

func TestLoop(t *testing.T) {
	var order []string
	n := 0
	loop := NewLoop(
		ControlFunc(func(context.Context) error {
			order = append(order, "read")
			return nil
		}),
		ControlFunc(func(context.Context) error {
			order = append(order, "write")
			if n++; n == 3 {
				return ErrStopLoop
			}
			return nil
		}),
	)
	require.NoError(t, loop.Run(context.Background()))
	require.Equal(t, []string{"read", "write", "read", "write", "read", "write"}, order)
}

func TestLoopError(t *testing.T) {
	loop := NewLoop(ControlFunc(func(context.Context) error {
		return errors.New("unplugged")
	}))
	require.EqualError(t, loop.Run(context.Background()), "unplugged")
}

func TestLoopCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop(ControlFunc(func(context.Context) error {
		cancel()
		return nil
	})).Every(time.Hour)
	require.Equal(t, context.Canceled, loop.Run(ctx))
}

func TestRunner(t *testing.T) {
	r := NewRunner()
	r.Go(
		NamedRun("ok", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		NamedRun("bad", RunFunc(func(context.Context) error {
			return errors.New("failed")
		})),
	)
	require.EqualError(t, r.WaitAny(), "bad: failed")
}

func TestRunWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	cancelled := false
	go cancel()
	err := RunWithContextCancel(ctx, func() {
		cancelled = true
		close(block)
	}, func() error {
		<-block
		return nil
	})
	require.Equal(t, context.Canceled, err)
	require.True(t, cancelled)
}
