// Package framework provides the runtime scaffolding shared by the device
// and host programs.
package framework

import (
	"context"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Controller is one step of a control loop iteration.
type Controller interface {
	Control(context.Context) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(context.Context) error

// Control implements Controller.
func (f ControlFunc) Control(ctx context.Context) error {
	return f(ctx)
}
