package syscalls

import (
	"testing"

	"github.com/gokernel/schedcore/internal/kernel"
	"github.com/gokernel/schedcore/internal/syscallabi"
)

func bootTestKernel(t *testing.T) (*kernel.Kernel, *kernel.Process) {
	t.Helper()
	k := kernel.New(kernel.DefaultConfig(), 1, nil)
	init, err := k.Boot("init")
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	return k, init
}

func TestForkExitWaitSyscallBoundary(t *testing.T) {
	k, init := bootTestKernel(t)
	caller := Caller{Proc: init, Thread: &init.Threads[0]}

	pid := Fork(k, caller)
	if pid < 0 {
		t.Fatalf("Fork returned %d, want a valid pid", pid)
	}

	child := k.Lookup(int(pid))
	Exit(k, Caller{Proc: child})

	reaped := Wait(k, caller)
	if reaped != pid {
		t.Fatalf("Wait returned %d, want %d", reaped, pid)
	}

	// No children left: Wait surfaces the error as -1 at the syscall
	// boundary (spec §7).
	if got := Wait(k, caller); got != -1 {
		t.Fatalf("Wait with no children returned %d, want -1", got)
	}
}

func TestKillUnknownPidReturnsMinusOne(t *testing.T) {
	k, _ := bootTestKernel(t)
	var args syscallabi.Arguments
	args[0] = syscallabi.Arg(999999)
	if got := Kill(k, args); got != -1 {
		t.Fatalf("Kill(unknown pid) = %d, want -1", got)
	}
}

func TestGetLevNilProcessReturnsMinusOne(t *testing.T) {
	k, _ := bootTestKernel(t)
	if got := GetLev(k, Caller{}); got != -1 {
		t.Fatalf("GetLev(nil proc) = %d, want -1", got)
	}
}

func TestSetCPUShareSyscallBoundary(t *testing.T) {
	k, init := bootTestKernel(t)
	pid := Fork(k, Caller{Proc: init})
	child := k.Lookup(int(pid))

	var args syscallabi.Arguments
	args[0] = syscallabi.Arg(20)
	if got := SetCPUShare(k, Caller{Proc: child}, args); got != 0 {
		t.Fatalf("SetCPUShare(20%%) = %d, want 0", got)
	}

	// A second reservation that would exceed MAXSTRIDE comes back as -1.
	pid2 := Fork(k, Caller{Proc: init})
	child2 := k.Lookup(int(pid2))
	args[0] = syscallabi.Arg(90)
	if got := SetCPUShare(k, Caller{Proc: child2}, args); got != -1 {
		t.Fatalf("SetCPUShare(90%%) over budget = %d, want -1", got)
	}
}

func TestThreadCreateJoinSyscallBoundary(t *testing.T) {
	k, init := bootTestKernel(t)
	caller := Caller{Proc: init, Thread: &init.Threads[0]}

	var createArgs syscallabi.Arguments
	createArgs[0] = syscallabi.Arg(0x1000)
	createArgs[1] = syscallabi.Arg(0)
	var tid int
	if got := ThreadCreate(k, caller, createArgs, &tid); got != 0 {
		t.Fatalf("ThreadCreate result = %d, want 0", got)
	}
	if tid == 0 {
		t.Fatalf("outTID not populated")
	}

	// Exit the new thread directly through the kernel API (ThreadExit has
	// no syscalls.go return value to key off, since it never returns to its
	// caller in a real kernel) before joining it below.
	for i := range init.Threads {
		if init.Threads[i].TID == tid {
			k.ThreadExit(init, &init.Threads[i], 0x55)
			break
		}
	}

	var joinArgs syscallabi.Arguments
	joinArgs[0] = syscallabi.Arg(tid)
	var retval uintptr
	if got := ThreadJoin(k, caller, joinArgs, &retval); got != 0 {
		t.Fatalf("ThreadJoin = %d, want 0", got)
	}
	if retval != 0x55 {
		t.Fatalf("retval = %#x, want 0x55", retval)
	}

	// Unknown tid surfaces as -1.
	joinArgs[0] = syscallabi.Arg(999999)
	if got := ThreadJoin(k, caller, joinArgs, &retval); got != -1 {
		t.Fatalf("ThreadJoin(unknown tid) = %d, want -1", got)
	}
}
