package kernel

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// RunTicks advances every CPU's dispatcher loop by n ticks each, running all
// per-CPU loops concurrently under a single errgroup (spec §4.E: "Per-CPU.
// Holds the scheduler lock across the entire loop body"). Concurrent Step
// calls still serialize on k.mu — this captures the shape of independent
// per-CPU dispatcher loops racing to acquire the one global lock, not actual
// parallel mutation of scheduler state (spec §5: "all scheduler data ...
// live under one global spinlock"). Returns the first error encountered, or
// ctx.Err() if ctx is cancelled before n ticks elapse on every CPU.
func (k *Kernel) RunTicks(ctx context.Context, n int64) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, cpu := range k.cpus {
		cpu := cpu
		g.Go(func() error {
			for i := int64(0); i < n; i++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				cpu.Step(1)
			}
			return nil
		})
	}
	return g.Wait()
}

// TickSource paces a CPU's dispatcher loop at a wall-clock rate, standing in
// for the out-of-scope hardware periodic timer interrupt that in a real
// kernel drives yieldable/yield (spec §6 collaborator: "tick_counter", §4.E
// step 1's "enable interrupts briefly... to allow at least one interrupt").
type TickSource struct {
	lim *rate.Limiter
}

// NewTickSource returns a TickSource firing at hz ticks per second.
func NewTickSource(hz float64) *TickSource {
	return &TickSource{lim: rate.NewLimiter(rate.Limit(hz), 1)}
}

// Run drives cpu.Step(1) at the configured rate until ctx is done
// (cancelled or past its deadline), then returns ctx.Err().
func (ts *TickSource) Run(ctx context.Context, cpu *CPU) error {
	for {
		r := ts.lim.Reserve()
		t := time.NewTimer(r.Delay())
		select {
		case <-ctx.Done():
			t.Stop()
			r.Cancel()
			return ctx.Err()
		case <-t.C:
		}
		cpu.Step(1)
	}
}
