// Package syscallabi defines the calling convention the syscall layer uses
// to reach into the kernel, grounded on pkg/sentry/arch/arch.go's
// SyscallArguments (simplified to this kernel's needs: no real machine
// registers to marshal, just the handful of scalar/pointer arguments each
// of spec.md §6's syscalls takes).
package syscallabi

// Arg is one syscall argument slot, wide enough to hold either an integer
// or a pointer-shaped value.
type Arg uintptr

// Int returns the argument interpreted as a signed integer.
func (a Arg) Int() int64 { return int64(a) }

// Pointer returns the argument interpreted as an opaque address (e.g. an
// out-parameter's location).
func (a Arg) Pointer() uintptr { return uintptr(a) }

// Arguments is the fixed-size argument vector passed to a syscall handler,
// mirroring arch.SyscallArguments's role in the teacher pack.
type Arguments [6]Arg
