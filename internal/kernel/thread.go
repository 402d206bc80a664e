package kernel

// ThreadState is a thread's lifecycle state (spec §3).
type ThreadState int

const (
	ThreadUnused ThreadState = iota
	ThreadEmbryo
	ThreadRunnable
	ThreadRunning
	ThreadSleeping
	ThreadZombie
)

func (s ThreadState) String() string {
	switch s {
	case ThreadUnused:
		return "UNUSED"
	case ThreadEmbryo:
		return "EMBRYO"
	case ThreadRunnable:
		return "RUNNABLE"
	case ThreadRunning:
		return "RUNNING"
	case ThreadSleeping:
		return "SLEEPING"
	case ThreadZombie:
		return "ZOMBIE"
	default:
		return "?"
	}
}

// TrapFrame stands in for the hardware trap frame the out-of-scope trap
// dispatcher saves and restores. Only the fields the scheduler itself needs
// to touch are modeled: the instruction pointer a newly created thread
// resumes at, and the kernel-stack pointer the trap path uses to find its
// way back into the kernel on the next trap.
type TrapFrame struct {
	InstructionPointer uintptr
	KernelStackTop     uintptr
}

// Context stands in for the saved callee-saved register set that
// context_switch swaps between threads. ResumePoint is the address the
// thread resumes executing at; for an EMBRYO thread this is the bootstrap
// that releases the scheduler lock (see threadBootstrapAddr in mm.go).
type Context struct {
	ResumePoint uintptr
}

// Thread is one kernel thread inside a Process's thread pool (spec §3, §4.B).
type Thread struct {
	TID   int
	State ThreadState

	// KernelStack is the base address of this thread's kernel stack.
	// Indexed identically to the owning process's thread slot, and cached
	// across create/destroy cycles at that index (spec §5: "kernel-stack
	// slots... remain valid until the enclosing process is reaped").
	KernelStack uintptr

	Ctx       Context
	Trap      *TrapFrame
	Chan      uintptr // sleep channel this thread is waiting on, if SLEEPING
	RetVal    uintptr // thread_exit's retval, read by thread_join

	// userStack is the cached user-stack base for this thread's slot index.
	// Present once allocated, reused by later thread_create calls at the
	// same index (spec §4.B, §5).
	userStack uintptr
	hasStack  bool
}

// tidAllocator hands out monotonically increasing thread identifiers within
// one process. tid is only compared for equality within a process (by
// thread_join), and monotonic ids avoid ever reusing a tid while a stale
// reference to it might still be live in a caller's hand.
type tidAllocator struct {
	next int
}

func (a *tidAllocator) alloc() int {
	a.next++
	return a.next
}

// threadCreate implements spec §4.B thread_create. Must be called with
// k.mu held (the process table / scheduler lock).
func (p *Process) threadCreate(start uintptr, arg uintptr) (int, error) {
	idx := -1
	for i := range p.Threads {
		if p.Threads[i].State == ThreadUnused {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, ErrOutOfSlots
	}

	t := &p.Threads[idx]
	if t.KernelStack == 0 {
		stack, err := allocKernelStack()
		if err != nil {
			return 0, ErrOutOfMemory
		}
		t.KernelStack = stack
	}

	if !t.hasStack {
		ustack, err := growUserStack(p)
		if err != nil {
			return 0, ErrOutOfMemory
		}
		t.userStack = ustack
		t.hasStack = true
	}

	cur := &p.Threads[p.CurThread]
	trap := *cur.Trap // inherit segment registers / flags from the caller
	trap.InstructionPointer = start
	t.Trap = &trap

	writeUserStackArgs(t.userStack, arg)

	t.Ctx = Context{ResumePoint: threadBootstrapAddr}
	t.TID = p.tids.alloc()
	t.State = ThreadRunnable
	t.Chan = 0
	t.RetVal = 0

	return t.TID, nil
}

// threadExit implements spec §4.B thread_exit + epilogue. Must be called
// with k.mu held.
func (k *Kernel) threadExit(p *Process, t *Thread, retval uintptr) {
	t.RetVal = retval
	t.State = ThreadZombie
	k.wakeupLocked(uintptr(t.TID))
	// Control returns to the dispatcher (see Kernel.scheduleLocked); thread_exit
	// never returns to its caller (spec §4.B).
}

// threadJoin implements spec §4.B thread_join. Blocks the calling thread on
// channel tid until the target reaches ZOMBIE, then releases its slot while
// keeping its stacks cached for reuse at the same index.
func (k *Kernel) threadJoin(p *Process, tid int, caller *Thread) (uintptr, error) {
	for {
		idx, ok := p.findThread(tid)
		if !ok {
			return 0, ErrNotFound
		}
		target := &p.Threads[idx]
		if target.State == ThreadZombie {
			ret := target.RetVal
			target.State = ThreadUnused
			target.Trap = nil
			target.Chan = 0
			target.RetVal = 0
			// KernelStack and userStack/hasStack are intentionally left
			// set: they are cached for the next thread_create at idx.
			return ret, nil
		}
		if p.Killed {
			return 0, ErrKilled
		}
		k.sleepLocked(caller, uintptr(tid))
	}
}

// findThread returns the slot index of the thread with the given tid, if
// any non-UNUSED slot holds it.
func (p *Process) findThread(tid int) (int, bool) {
	for i := range p.Threads {
		if p.Threads[i].State != ThreadUnused && p.Threads[i].TID == tid {
			return i, true
		}
	}
	return 0, false
}

// nextThread implements spec §4.B next_thread: in-process round-robin
// switch to another RUNNABLE thread in the same process, without touching
// the address space. Returns false when no other thread can run and the
// caller should fall through to the CPU scheduler.
func (p *Process) nextThread(cur int) (int, bool) {
	n := len(p.Threads)
	for off := 1; off <= n; off++ {
		i := (cur + off) % n
		if i == cur {
			continue
		}
		if p.Threads[i].State == ThreadRunnable {
			return i, true
		}
	}
	return cur, false
}
