package kernel

// mlfqLevel is one priority level: a fixed-size array of process slots plus
// a round-robin cursor remembered across invocations (spec §3, §4.D).
type mlfqLevel struct {
	Procs     [NPROC]*Process
	iterstate int
	q         int64
	expire    int64
}

// MLFQ is the K-level multi-level feedback queue scheduler (spec §4.D).
type MLFQ struct {
	Levels      [K]mlfqLevel
	lastBoostAt int64
}

func newMLFQ(cfg Config) *MLFQ {
	m := &MLFQ{}
	for i := 0; i < K; i++ {
		m.Levels[i].q = cfg.Quanta[i]
		m.Levels[i].expire = cfg.Expire[i]
	}
	return m
}

// boostInterval is expire[K-1] (spec §4.D: "a periodic boost interval
// equals expire[K-1]").
func (m *MLFQ) boostInterval() int64 {
	return m.Levels[K-1].expire
}

// admit places a newly allocated process at level 0 with elapsed=0 (spec
// §4.D Admission). Caller must hold the scheduler lock.
func (m *MLFQ) admit(p *Process) {
	p.Sched.Level = 0
	p.Sched.Elapsed = 0
	m.place(p, 0)
}

// place inserts p into the first free slot of the given level and reports
// whether it found one; if the level is full it returns false and leaves p
// unplaced. admit ignores the result; boost reports a false result as an
// invariant violation.
func (m *MLFQ) place(p *Process, level int) bool {
	lv := &m.Levels[level]
	for i := range lv.Procs {
		if lv.Procs[i] == nil {
			lv.Procs[i] = p
			p.Sched.Level = level
			p.Sched.Index = i
			return true
		}
	}
	return false
}

// remove takes p out of whichever MLFQ slot it occupies.
func (m *MLFQ) remove(p *Process) {
	if p.Sched.Level < 0 || p.Sched.Level >= K {
		return
	}
	lv := &m.Levels[p.Sched.Level]
	if p.Sched.Index >= 0 && p.Sched.Index < len(lv.Procs) && lv.Procs[p.Sched.Index] == p {
		lv.Procs[p.Sched.Index] = nil
	}
}

// selected is what mlfqNext returns: the chosen process and the thread
// index within it the dispatcher should run.
type selected struct {
	Proc   *Process
	Thread int
}

// next implements spec §4.D mlfq_next: starting at level 0, scan circularly
// from the level's cursor for the first process with a RUNNABLE thread; on
// success advance the cursor past it. Falls through levels 1, 2 on miss. The
// cursor must advance exactly once per successful selection (spec §5), so
// callers that only need to know whether something is runnable must use
// hasRunnable instead of discarding this call's result.
func (m *MLFQ) next() (selected, bool) {
	for lvl := 0; lvl < K; lvl++ {
		lv := &m.Levels[lvl]
		n := len(lv.Procs)
		for off := 0; off < n; off++ {
			i := (lv.iterstate + off) % n
			p := lv.Procs[i]
			if p == nil || p.state != ProcRunnable {
				continue
			}
			for ti := range p.Threads {
				if p.Threads[ti].State == ThreadRunnable {
					lv.iterstate = (i + 1) % n
					return selected{Proc: p, Thread: ti}, true
				}
			}
		}
	}
	return selected{}, false
}

// hasRunnable reports whether any MLFQ-resident process has a RUNNABLE
// thread, without touching any level's cursor. Used by the stride layer's
// "is the aggregate slot runnable?" probe (dispatch.go), which must not
// consume a selection that the dispatcher's real mlfq.next() call still
// needs to make.
func (m *MLFQ) hasRunnable() bool {
	for lvl := 0; lvl < K; lvl++ {
		for _, p := range m.Levels[lvl].Procs {
			if p == nil || p.state != ProcRunnable {
				continue
			}
			for ti := range p.Threads {
				if p.Threads[ti].State == ThreadRunnable {
					return true
				}
			}
		}
	}
	return false
}

// updateResult is mlfq_update's verdict: whether the dispatcher should keep
// running the same process (policy took no action this slice) or move on.
type updateResult int

const (
	updateKeep updateResult = iota
	updateNext
)

// update implements spec §4.D mlfq_update, run after a time slice
// completes; now is the current tick and p.Sched.Start the tick the slice
// began at (the dispatcher has already folded the elapsed ticks into
// p.Sched.Elapsed before calling this). stride is passed in so this can
// delegate pass accounting for both stride participants and the MLFQ
// aggregate (slot 0), matching spec's "Otherwise update the MLFQ
// aggregate's stride pass as well."
func (m *MLFQ) update(p *Process, stride *Stride, dead bool, now int64) updateResult {
	if dead || p.Killed {
		return updateNext
	}
	if p.Sched.Level < 0 {
		stride.updatePass(p.Sched.Index)
		if now-p.Sched.Start >= strideQuantum {
			return updateNext
		}
		return updateKeep
	}

	stride.updatePass(0)

	lvl := p.Sched.Level
	lv := &m.Levels[lvl]
	if p.Sched.Elapsed >= lv.expire && lvl+1 < K {
		m.remove(p)
		p.Sched.Elapsed = 0
		m.place(p, lvl+1)
		return updateNext
	}
	if now-p.Sched.Start >= lv.q {
		return updateNext
	}
	return updateKeep
}

// boost implements spec §4.D Boost: every boostInterval ticks, relocate
// every process at level >= 1 to level 0 with elapsed=0, preserving
// allocation order. A full level 0 after boost is an InvariantViolation
// (spec §9: "boost must not be scheduled while level 0 could overflow").
func (m *MLFQ) boost(fatal func(string)) {
	var moving []*Process
	for lvl := 1; lvl < K; lvl++ {
		lv := &m.Levels[lvl]
		for i := range lv.Procs {
			if lv.Procs[i] != nil {
				moving = append(moving, lv.Procs[i])
				lv.Procs[i] = nil
			}
		}
	}

	free := 0
	for i := range m.Levels[0].Procs {
		if m.Levels[0].Procs[i] == nil {
			free++
		}
	}
	if len(moving) > free {
		fatal("mlfq boost: level 0 would overflow")
		return
	}

	for _, p := range moving {
		p.Sched.Elapsed = 0
		if !m.place(p, 0) {
			fatal("mlfq boost: level 0 placement failed")
			return
		}
	}
}

// strideQuantum is the fixed slice length for stride participants, used by
// update to end a stride slice and by yieldable; stride scheduling itself
// has no notion of a
// per-participant quantum (pass accounting is continuous), so this mirrors
// the shortest MLFQ quantum to keep stride participants just as responsive.
const strideQuantum = 5

// yieldable implements spec §4.D's yieldable predicate: whether a timer
// interrupt should force a reschedule of p, given the current slice
// duration in ticks. For MLFQ participants the level's own quantum is used.
func (m *MLFQ) yieldable(p *Process, sliceDuration int64) bool {
	if p.Sched.Level < 0 {
		return sliceDuration >= strideQuantum
	}
	return sliceDuration >= m.Levels[p.Sched.Level].q
}
