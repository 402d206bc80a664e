package kernel

// ProcState is a process's lifecycle state (spec §3).
type ProcState int

const (
	ProcUnused ProcState = iota
	ProcEmbryo
	ProcRunnable
	ProcZombie
)

func (s ProcState) String() string {
	switch s {
	case ProcUnused:
		return "UNUSED"
	case ProcEmbryo:
		return "EMBRYO"
	case ProcRunnable:
		return "RUNNABLE"
	case ProcZombie:
		return "ZOMBIE"
	default:
		return "?"
	}
}

// SchedInfo is the per-process scheduler bookkeeping record referenced by
// both the MLFQ and the stride layer (spec §3).
type SchedInfo struct {
	// Level is the MLFQ level the process sits at, or -1 if the process is
	// a stride participant (spec §3 invariant).
	Level int
	// Index is either the slot within queue[Level] (MLFQ) or the slot
	// within the stride arrays (stride), depending on Level.
	Index int
	// Elapsed is the cumulative run time (ticks) at the current MLFQ
	// level since the last demotion or boost.
	Elapsed int64
	// Start is the tick at which the current slice began.
	Start int64
}

// Process is one process-table slot (spec §3).
type Process struct {
	PID    int
	Name   string
	AS     *AddressSpace
	Size   uintptr
	Parent *Process
	Killed bool

	Threads   [NTHREAD]Thread
	CurThread int
	tids      tidAllocator

	Cwd string

	Sched SchedInfo

	state ProcState
}

// StateOf reports the process's lifecycle state.
func (p *Process) StateOf() ProcState { return p.state }

// Runnable reports whether the dispatcher may schedule p: spec §3, "a
// process is runnable by the dispatcher iff at least one of its threads is
// RUNNABLE."
func (p *Process) Runnable() bool {
	if p.state != ProcRunnable {
		return false
	}
	for i := range p.Threads {
		if p.Threads[i].State == ThreadRunnable {
			return true
		}
	}
	return false
}

// firstRunnableThread returns the index of the first RUNNABLE thread in p.
func (p *Process) firstRunnableThread() (int, bool) {
	for i := range p.Threads {
		if p.Threads[i].State == ThreadRunnable {
			return i, true
		}
	}
	return 0, false
}

// ProcessTable is the fixed-size array of process slots guarded by one
// global scheduler lock (spec §4.A). Kernel embeds it; the lock itself
// lives on Kernel so that MLFQ/stride state and the process table share
// exactly one mutex, matching spec §5's "all scheduler data ... live under
// one global spinlock."
type ProcessTable struct {
	Procs  [NPROC]Process
	lastPID int
}

// alloc implements spec §4.A alloc(). Caller must hold k.mu.
func (k *Kernel) alloc() (*Process, error) {
	var slot *Process
	for i := range k.table.Procs {
		if k.table.Procs[i].state == ProcUnused {
			slot = &k.table.Procs[i]
			break
		}
	}
	if slot == nil {
		return nil, ErrOutOfSlots
	}

	as, err := setupAddressSpace()
	if err != nil {
		return nil, ErrOutOfMemory
	}
	kstack, err := allocKernelStack()
	if err != nil {
		freeAddressSpace(as)
		return nil, ErrOutOfMemory
	}

	k.table.lastPID++
	*slot = Process{
		PID:   k.table.lastPID,
		AS:    as,
		state: ProcEmbryo,
	}
	slot.Threads[0] = Thread{
		State:       ThreadEmbryo,
		KernelStack: kstack,
		Trap:        &TrapFrame{KernelStackTop: kstack + KSTACKSIZE},
		Ctx:         Context{ResumePoint: threadBootstrapAddr},
	}
	slot.Threads[0].TID = slot.tids.alloc()
	slot.Sched = SchedInfo{Level: 0}
	k.mlfq.admit(slot)
	return slot, nil
}

// fork implements spec §4.A fork(). The child's thread 0 is built from the
// parent's current thread, parent.Threads[parent.CurThread].
func (k *Kernel) fork(parent *Process) (int, error) {
	child, err := k.alloc()
	if err != nil {
		return -1, err
	}

	as, err := copyAddressSpace(parent.AS)
	if err != nil {
		k.freeProcLocked(child)
		return -1, ErrOutOfMemory
	}
	child.AS = as
	child.Size = parent.Size
	child.Name = parent.Name
	child.Parent = parent
	child.Cwd = parent.Cwd

	parentCur := &parent.Threads[parent.CurThread]
	childTrap := *parentCur.Trap
	child.Threads[0].Trap = &childTrap
	child.Threads[0].Trap.InstructionPointer = parentCur.Trap.InstructionPointer
	// Child's return value is 0 (spec §4.A).
	child.Threads[0].RetVal = 0

	// Swap invariant: the parent's active thread's user-stack slot moves to
	// index 0, so the child's thread 0 (copied from the parent's active
	// thread) corresponds to the same user stack (spec §4.A, §8 scenario 6).
	child.Threads[0].userStack = parentCur.userStack
	child.Threads[0].hasStack = parentCur.hasStack

	child.state = ProcRunnable
	child.Threads[0].State = ThreadRunnable
	for i := range child.Threads {
		if i == 0 {
			continue
		}
		child.Threads[i].State = ThreadUnused
	}

	return child.PID, nil
}

// exit implements spec §4.A exit(). Never returns to the caller in a real
// kernel; here it performs the state transition and scheduler hand-off and
// the caller (a dispatcher's simulated thread driver) must immediately stop
// running this process's code.
func (k *Kernel) exit(p *Process) {
	if p == k.init {
		k.fatal("exit of init")
	}

	// Reparent children to init (k.init), waking init if a reparented
	// child is already ZOMBIE (spec §4.A).
	for i := range k.table.Procs {
		c := &k.table.Procs[i]
		if c.state != ProcUnused && c.Parent == p {
			c.Parent = k.init
			if c.state == ProcZombie {
				k.wakeupLocked(procChan(k.init))
			}
		}
	}

	p.state = ProcZombie
	for i := range p.Threads {
		if p.Threads[i].State != ThreadUnused {
			p.Threads[i].State = ThreadZombie
		}
	}

	if p.Sched.Level >= 0 {
		k.mlfq.remove(p)
	} else {
		k.stride.delete(p)
	}

	k.wakeupLocked(procChan(p.Parent))
}

// wait implements spec §4.A wait(). caller blocks on itself as its
// sleep-channel; callerThread is the calling thread (for sleepLocked).
func (k *Kernel) wait(caller *Process, callerThread *Thread) (int, error) {
	for {
		found := false
		for i := range k.table.Procs {
			c := &k.table.Procs[i]
			// init is its own parent (see Boot) but not its own child.
			if c.state == ProcUnused || c == caller || c.Parent != caller {
				continue
			}
			found = true
			if c.state == ProcZombie {
				pid := c.PID
				k.freeProcLocked(c)
				return pid, nil
			}
		}
		if !found {
			return -1, ErrNoChildren
		}
		if caller.Killed {
			return -1, ErrKilled
		}
		k.sleepLocked(callerThread, procChan(caller))
	}
}

// freeProcLocked releases a reaped ZOMBIE process's resources and resets
// its slot to UNUSED (spec §4.A wait(), §3 lifecycle).
func (k *Kernel) freeProcLocked(p *Process) {
	for i := range p.Threads {
		if p.Threads[i].KernelStack != 0 {
			freeKernelStack(p.Threads[i].KernelStack)
		}
		p.Threads[i] = Thread{}
	}
	freeAddressSpace(p.AS)
	*p = Process{state: ProcUnused}
}

// kill implements spec §4.A kill(pid). Asynchronous: only flips Killed and
// promotes SLEEPING threads, actual teardown happens when the target next
// returns to user mode (simulated here by the dispatcher observing Killed
// and driving the process to exit).
func (k *Kernel) kill(pid int) error {
	for i := range k.table.Procs {
		p := &k.table.Procs[i]
		if p.state != ProcUnused && p.PID == pid {
			p.Killed = true
			for j := range p.Threads {
				if p.Threads[j].State == ThreadSleeping {
					p.Threads[j].State = ThreadRunnable
				}
			}
			return nil
		}
	}
	return ErrNotFound
}

// procChan returns the stable address used as wait's sleep-channel: the
// parent process's own address (spec §5: "parent process address for
// wait").
func procChan(p *Process) uintptr {
	return uintptrOf(p)
}
