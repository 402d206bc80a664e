package kernel

// CPU is one simulated per-CPU dispatcher loop (spec §4.E). A real
// implementation runs this as an infinite loop on bare metal; Step exposes
// one iteration so tests and cmd/kerneld's tick source can drive it
// explicitly, matching spec's description of the loop body rather than its
// packaging as an unbounded for{}.
type CPU struct {
	id            int
	k             *Kernel
	current       *Process
	currentThread int
	keep          bool
}

// ID returns the CPU's simulated identifier.
func (c *CPU) ID() int { return c.id }

// Current returns the process this CPU ran in its last Step, or nil if that
// Step found nothing runnable or the process it ran is no longer RUNNABLE.
func (c *CPU) Current() *Process {
	c.k.mu.Lock()
	defer c.k.mu.Unlock()
	return c.current
}

// Step runs one dispatcher iteration (spec §4.E): pick a victim (reusing
// the previous one if it is still RUNNABLE and the last policy verdict was
// KEEP), run it for `ticks` simulated ticks, and apply the post-slice
// policy update. Step always advances the kernel's tick counter by `ticks`,
// whether or not anything was runnable (spec step 3: "credit the MLFQ
// aggregate a virtual-time tick" when idle, so a long-idle system does not
// let MLFQ accumulate arrears).
func (c *CPU) Step(ticks int64) {
	k := c.k
	k.mu.Lock()
	defer k.mu.Unlock()

	var victim *Process
	var tidx int
	var fromCtx *Context
	if c.current != nil {
		fromCtx = &c.current.Threads[c.currentThread].Ctx
	}

	reuse := c.keep && c.current != nil && c.current.Runnable()
	if reuse {
		victim = c.current
		tidx = c.currentThread
		if victim.Threads[tidx].State != ThreadRunnable {
			// The previously running thread suspended (slept/exited) but a
			// sibling in the same process is runnable: switch in-process
			// (spec §4.B next_thread) rather than falling through to a full
			// stride/MLFQ reselection.
			if ni, ok := victim.nextThread(tidx); ok {
				tidx = ni
			} else {
				reuse = false
			}
		}
	}
	if !reuse {
		idx := k.stride.next(k.mlfq.hasRunnable)
		switch {
		case idx < 0:
			// Nothing runnable anywhere: credit the aggregate so it does not
			// starve relative to idle stride participants, and still
			// advance the clock so boost keeps firing.
			k.stride.updatePass(0)
			k.tick += ticks
			c.current = nil
			c.maybeBoost()
			return
		case idx == 0:
			sel, ok := k.mlfq.next()
			if !ok {
				k.tick += ticks
				c.current = nil
				c.maybeBoost()
				return
			}
			victim, tidx = sel.Proc, sel.Thread
		default:
			victim = k.stride.Slots[idx].Proc
			ti, ok := victim.firstRunnableThread()
			if !ok {
				k.tick += ticks
				c.current = nil
				c.maybeBoost()
				return
			}
			tidx = ti
		}
		victim.Sched.Start = k.tick
	}

	c.current, c.currentThread = victim, tidx
	victim.CurThread = tidx
	victim.Threads[tidx].State = ThreadRunning

	contextSwitch(fromCtx, &victim.Threads[tidx].Ctx)

	k.tick += ticks
	victim.Sched.Elapsed += ticks

	if victim.Killed && victim.state == ProcRunnable {
		// A killed process exits on its way back to user mode (see kill).
		k.exit(victim)
	}
	dead := victim.state != ProcRunnable
	verdict := k.mlfq.update(victim, k.stride, dead, k.tick)
	if !dead {
		victim.Threads[tidx].State = ThreadRunnable
	}
	c.keep = !dead && verdict == updateKeep
	if dead {
		c.current = nil
	}

	c.maybeBoost()
}

// maybeBoost implements spec §4.E step 5: run boost once the tick counter
// crosses the next boundary.
func (c *CPU) maybeBoost() {
	k := c.k
	if k.tick-k.mlfq.lastBoostAt >= k.mlfq.boostInterval() {
		k.mlfq.boost(k.fatal)
		k.mlfq.lastBoostAt = k.tick
	}
}

// CPUs returns the kernel's simulated per-CPU dispatchers.
func (k *Kernel) CPUs() []*CPU { return k.cpus }
