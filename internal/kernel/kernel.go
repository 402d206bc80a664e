package kernel

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Kernel owns the process table, the MLFQ, the stride layer, and the set of
// per-CPU dispatchers, all guarded by one mutex (mu), matching spec §5's
// "all scheduler data ... live under one global spinlock (ptable.lock)".
// This is the Go-idiomatic rendering of that global: rather than package
// globals, a single owning struct hands out short-lived mutable access
// under the lock (spec §9 design note).
type Kernel struct {
	mu sync.Mutex

	cfg    Config
	table  ProcessTable
	mlfq   *MLFQ
	stride *Stride
	init   *Process

	tick int64

	cpus []*CPU

	log *logrus.Entry
}

// New constructs a Kernel with the given config and number of simulated
// CPUs. It does not yet have an init process; call Boot to create one.
func New(cfg Config, ncpu int, log *logrus.Entry) *Kernel {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	k := &Kernel{
		cfg:    cfg,
		mlfq:   newMLFQ(cfg),
		stride: newStride(cfg),
		log:    log,
	}
	for i := 0; i < ncpu; i++ {
		k.cpus = append(k.cpus, &CPU{id: i, k: k})
	}
	return k
}

// Boot allocates the init process (pid 1, its own parent) and returns it.
func (k *Kernel) Boot(name string) (*Process, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	p, err := k.alloc()
	if err != nil {
		return nil, err
	}
	p.Name = name
	p.Parent = p
	p.state = ProcRunnable
	p.Threads[0].State = ThreadRunnable
	k.init = p
	k.log.WithField("pid", p.PID).Info("init process booted")
	return p, nil
}

// fatal implements spec §7's InvariantViolation: never surfaced to
// userspace, logged and halts.
func (k *Kernel) fatal(msg string) {
	k.log.WithField("tick", k.tick).Fatal("invariant violation: " + msg)
}

// scheduleLocked is the "enter the scheduler, do not return" hand-off
// point used by sleep/exit/thread_exit/yield/next_thread (spec §4.B,
// §4.F). In a real kernel this swaps the CPU's context back to the
// dispatcher loop's own stack; in this simulation the dispatcher loop
// re-evaluates all process/thread state on every Step regardless of how it
// got here, so there is nothing further to do once the state transition
// above is visible under k.mu.
func (k *Kernel) scheduleLocked() {}

// Fork implements the fork syscall (spec §6): parent is the calling
// process.
func (k *Kernel) Fork(parent *Process) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.fork(parent)
}

// Exit implements the exit syscall (spec §6).
func (k *Kernel) Exit(p *Process) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.exit(p)
}

// Wait implements the wait syscall (spec §6). callerThread is the thread
// making the call, used as the blocking thread if no zombie child exists
// yet.
func (k *Kernel) Wait(caller *Process, callerThread *Thread) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.wait(caller, callerThread)
}

// Kill implements the kill syscall (spec §6).
func (k *Kernel) Kill(pid int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.kill(pid)
}

// Yield implements the yield syscall (spec §6).
func (k *Kernel) Yield(t *Thread) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.yieldLocked(t)
}

// GetLevel implements the getlev syscall (spec §6): current MLFQ level, or
// -1 if the process is stride-scheduled.
func (k *Kernel) GetLevel(p *Process) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return p.Sched.Level
}

// SetCPUShare implements the set_cpu_share syscall (spec §6): percent of
// MAXTICKET to reserve for p via the stride layer.
func (k *Kernel) SetCPUShare(p *Process, percent int64) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if percent <= 0 {
		return ErrShareRefused
	}
	usage := k.cfg.MAXTICKET * percent / 100
	wasStride := p.Sched.Level < 0
	if wasStride {
		// p already holds a stride slot: return its old reservation to
		// slot 0 before admitting the new one, or the old slot leaks
		// (still active, still owning tickets) and totalReserved() drifts
		// above what is actually accounted for.
		k.stride.delete(p)
	} else {
		k.mlfq.remove(p)
	}
	if err := k.stride.append(p, usage); err != nil {
		// Roll back: p must remain schedulable somewhere.
		k.mlfq.admit(p)
		return err
	}
	k.log.WithFields(logrus.Fields{"pid": p.PID, "percent": percent}).Info("cpu share admitted")
	return nil
}

// ThreadCreate implements thread_create (spec §6).
func (k *Kernel) ThreadCreate(p *Process, start uintptr, arg uintptr) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return p.threadCreate(start, arg)
}

// ThreadExit implements thread_exit (spec §6).
func (k *Kernel) ThreadExit(p *Process, t *Thread, retval uintptr) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.threadExit(p, t, retval)
}

// ThreadJoin implements thread_join (spec §6).
func (k *Kernel) ThreadJoin(p *Process, tid int, caller *Thread) (uintptr, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.threadJoin(p, tid, caller)
}

// Sleep implements the sleep(chan) primitive for callers already holding
// the scheduler lock only implicitly (i.e. regular syscall callers, not
// internal code already under k.mu).
func (k *Kernel) Sleep(t *Thread, chanAddr uintptr) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.sleepLocked(t, chanAddr)
}

// Wakeup implements the wakeup(chan) primitive.
func (k *Kernel) Wakeup(chanAddr uintptr) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.wakeupLocked(chanAddr)
}

// StrideTicket returns p's admitted ticket weight, or 0 if p is not a
// stride participant.
func (k *Kernel) StrideTicket(p *Process) int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	if p.Sched.Level >= 0 {
		return 0
	}
	return k.stride.Slots[p.Sched.Index].Ticket
}

// MaxTicket returns the configured MAXTICKET.
func (k *Kernel) MaxTicket() int64 {
	return k.cfg.MAXTICKET
}

// Lookup returns the live process with the given pid, or nil. Used by
// callers (REPL, syscall shims) that only have a pid in hand and need the
// *Process handle the Kernel's other methods expect.
func (k *Kernel) Lookup(pid int) *Process {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.table.Procs {
		p := &k.table.Procs[i]
		if p.state != ProcUnused && p.PID == pid {
			return p
		}
	}
	return nil
}

// Tick returns the current simulated tick counter.
func (k *Kernel) Tick() int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tick
}
