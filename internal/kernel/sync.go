package kernel

// This file implements spec §4.F / §4.B's sleep/wakeup/yield contract. All
// of it runs under k.mu (the single global scheduler lock, spec §5); there
// is no separate per-channel lock because the process table, MLFQ, and
// stride state all share this one lock already.
//
// A real kernel's sleep(chan, lk) releases a caller-supplied lock distinct
// from the scheduler lock before blocking, then reacquires it on wake. In
// this simulation every caller already holds k.mu to call into these
// methods (there is no second lock to juggle), so sleepLocked only needs to
// perform the state transition and invoke the scheduler; the "release lk,
// reacquire lk" half of the contract is preserved at the call sites that
// have a real second lock to manage (none do in this kernel), per spec
// §4.F's "unless lk is the scheduler lock."

// sleepLocked implements sleep(chan, lk) for lk == the scheduler lock:
// atomically transition the calling thread to SLEEPING, record chan, and
// hand control to the scheduler. Must be called with k.mu held; k.mu is
// still held on return (spec contract: "on return the caller again holds
// lk").
func (k *Kernel) sleepLocked(t *Thread, chanAddr uintptr) {
	if t.State != ThreadRunning && t.State != ThreadRunnable {
		k.fatal("sleep without a lock")
	}
	t.Chan = chanAddr
	t.State = ThreadSleeping
	k.scheduleLocked()
}

// wakeupLocked implements wakeup(chan): every SLEEPING thread whose owning
// process is RUNNABLE (i.e. not a slot mid-teardown) and whose Chan matches
// is promoted to RUNNABLE. Wakeups do not queue: a wakeup that happens
// before the matching sleep's SLEEPING transition has no effect on it,
// which holds here because both operations serialize on k.mu (spec §5
// Ordering guarantees).
func (k *Kernel) wakeupLocked(chanAddr uintptr) {
	for i := range k.table.Procs {
		p := &k.table.Procs[i]
		if p.state != ProcRunnable {
			continue
		}
		for j := range p.Threads {
			th := &p.Threads[j]
			if th.State == ThreadSleeping && th.Chan == chanAddr {
				th.State = ThreadRunnable
			}
		}
	}
}

// yieldLocked implements the yield syscall: mark the calling thread
// RUNNABLE (it keeps its priority/share position, spec §4.E/§4.D have no
// notion of punishing a voluntary yield) and hand control to the scheduler.
func (k *Kernel) yieldLocked(t *Thread) {
	t.State = ThreadRunnable
	k.scheduleLocked()
}
