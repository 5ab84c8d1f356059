package host

import "context"

// Application is the capability the host drives through its lifecycle.
//
// Both methods receive a context that is canceled when shutdown is
// requested. Returning an error from Initialize crashes the host before Run
// is called. Run should return once its work is done or the context is
// canceled; returning ctx.Err() after cancellation is a normal stop.
type Application interface {
	Initialize(ctx context.Context, env Environment) error
	Run(ctx context.Context, env Environment) error
}

// ApplicationFuncs adapts plain functions to Application.
// A nil InitializeFunc does nothing. A nil RunFunc blocks until shutdown is
// requested.
type ApplicationFuncs struct {
	InitializeFunc func(ctx context.Context, env Environment) error
	RunFunc        func(ctx context.Context, env Environment) error
}

// Initialize calls InitializeFunc.
func (f ApplicationFuncs) Initialize(ctx context.Context, env Environment) error {
	if f.InitializeFunc == nil {
		return nil
	}
	return f.InitializeFunc(ctx, env)
}

// Run calls RunFunc.
func (f ApplicationFuncs) Run(ctx context.Context, env Environment) error {
	if f.RunFunc == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.RunFunc(ctx, env)
}
