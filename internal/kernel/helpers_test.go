package kernel

// mkRunnableProcess builds a minimal Process that Process.Runnable() and
// Stride.next() will treat as a live, schedulable participant, without going
// through Kernel.alloc (used by the stride and MLFQ unit tests that don't
// need a whole process table).
func mkRunnableProcess() *Process {
	p := &Process{state: ProcRunnable}
	p.Threads[0].State = ThreadRunnable
	return p
}
