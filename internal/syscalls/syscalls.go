// Package syscalls implements the external interface table of spec.md §6,
// translating kernel-internal results to the -1-on-error convention at the
// syscall boundary (spec §7 policy: "all recoverable errors surface as a -1
// integer result"). Handler signatures are modeled directly on
// pkg/sentry/syscalls/linux/sys_sched.go's
// func(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error),
// simplified: this kernel has no trap dispatcher, so callers pass the
// calling Process/Thread explicitly instead of a *Task handle that resolves
// them internally.
package syscalls

import (
	"github.com/gokernel/schedcore/internal/kernel"
	"github.com/gokernel/schedcore/internal/syscallabi"
)

// Caller bundles the process and thread a syscall is made on behalf of,
// standing in for gvisor's *kernel.Task.
type Caller struct {
	Proc   *kernel.Process
	Thread *kernel.Thread
}

// Fork implements the fork syscall.
func Fork(k *kernel.Kernel, c Caller) int64 {
	pid, err := k.Fork(c.Proc)
	if err != nil {
		return -1
	}
	return int64(pid)
}

// Exit implements the exit syscall. Does not return in a real kernel; here
// it performs the state transition and the caller must stop driving c.Proc.
func Exit(k *kernel.Kernel, c Caller) {
	k.Exit(c.Proc)
}

// Wait implements the wait syscall.
func Wait(k *kernel.Kernel, c Caller) int64 {
	pid, err := k.Wait(c.Proc, c.Thread)
	if err != nil {
		return -1
	}
	return int64(pid)
}

// Kill implements the kill syscall. args[0] is the target pid.
func Kill(k *kernel.Kernel, args syscallabi.Arguments) int64 {
	if err := k.Kill(int(args[0].Int())); err != nil {
		return -1
	}
	return 0
}

// Yield implements the yield syscall.
func Yield(k *kernel.Kernel, c Caller) int64 {
	k.Yield(c.Thread)
	return 0
}

// GetLev implements the getlev syscall.
func GetLev(k *kernel.Kernel, c Caller) int64 {
	if c.Proc == nil {
		return -1
	}
	return int64(k.GetLevel(c.Proc))
}

// SetCPUShare implements the set_cpu_share syscall. args[0] is the percent.
func SetCPUShare(k *kernel.Kernel, c Caller, args syscallabi.Arguments) int64 {
	if err := k.SetCPUShare(c.Proc, args[0].Int()); err != nil {
		return -1
	}
	return 0
}

// ThreadCreate implements the thread_create syscall. args[0] is the start
// address, args[1] the argument passed to the new thread; the new tid is
// written to outTID (spec §6: "out tid, result 0"), matching ThreadJoin's
// outRetval out-parameter convention.
func ThreadCreate(k *kernel.Kernel, c Caller, args syscallabi.Arguments, outTID *int) int64 {
	tid, err := k.ThreadCreate(c.Proc, args[0].Pointer(), args[1].Pointer())
	if err != nil {
		return -1
	}
	if outTID != nil {
		*outTID = tid
	}
	return 0
}

// ThreadExit implements the thread_exit syscall. args[0] is the return
// value. Does not return in a real kernel.
func ThreadExit(k *kernel.Kernel, c Caller, args syscallabi.Arguments) {
	k.ThreadExit(c.Proc, c.Thread, args[0].Pointer())
}

// ThreadJoin implements the thread_join syscall. args[0] is the target tid;
// the return value is written to outRetval (standing in for a copy-out to
// the caller's user-space out-pointer).
func ThreadJoin(k *kernel.Kernel, c Caller, args syscallabi.Arguments, outRetval *uintptr) int64 {
	ret, err := k.ThreadJoin(c.Proc, int(args[0].Int()), c.Thread)
	if err != nil {
		return -1
	}
	if outRetval != nil {
		*outRetval = ret
	}
	return 0
}
