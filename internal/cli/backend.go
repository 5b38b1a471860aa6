package cli

import (
	"context"

	"github.com/kocahmet1/ultrasat-progress/internal/app"
	"github.com/kocahmet1/ultrasat-progress/internal/jobs/recompute"
	"github.com/kocahmet1/ultrasat-progress/internal/services"
)

// Backend is what the commands drive. The production implementation wraps
// app.App; tests substitute a fake.
type Backend interface {
	Normalize(ctx context.Context, dryRun bool) (services.NormalizeSummary, error)
	Recompute(ctx context.Context, mode recompute.Mode) (recompute.Summary, error)
	Serve(ctx context.Context) error
	Close()
}

// Opener builds a Backend for one command invocation.
type Opener func(ctx context.Context, component string) (Backend, error)

// OpenApp wires the full application against the configured store.
func OpenApp(ctx context.Context, component string) (Backend, error) {
	a, err := app.New(ctx, component)
	if err != nil {
		return nil, err
	}
	return appBackend{a: a}, nil
}

type appBackend struct {
	a *app.App
}

func (b appBackend) Normalize(ctx context.Context, dryRun bool) (services.NormalizeSummary, error) {
	return b.a.Services.Normalizer.Run(ctx, dryRun)
}

func (b appBackend) Recompute(ctx context.Context, mode recompute.Mode) (recompute.Summary, error) {
	return b.a.Services.Orchestrator.Run(ctx, mode)
}

func (b appBackend) Serve(ctx context.Context) error { return b.a.Serve(ctx) }

func (b appBackend) Close() { b.a.Close() }
