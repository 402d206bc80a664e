package kernel

import "errors"

// Recoverable error kinds surfaced to the syscall boundary as -1 (see
// internal/syscalls). InvariantViolation is deliberately not part of this
// set: it never returns to a caller, it halts the kernel (see Kernel.fatal).
var (
	// ErrOutOfSlots is returned when no free process or thread slot remains.
	ErrOutOfSlots = errors.New("kernel: out of slots")

	// ErrOutOfMemory is returned when a stack or address-space allocation
	// fails. Partially initialized state is rolled back to UNUSED before
	// this is returned.
	ErrOutOfMemory = errors.New("kernel: out of memory")

	// ErrShareRefused is returned when a stride admission request is
	// non-positive or would exceed MAXSTRIDE.
	ErrShareRefused = errors.New("kernel: share refused")

	// ErrNotFound is returned when a kill or thread_join target does not
	// exist.
	ErrNotFound = errors.New("kernel: not found")

	// ErrNoChildren is returned by wait when the caller has no children.
	ErrNoChildren = errors.New("kernel: no children")

	// ErrKilled is returned by wait when the caller was killed while
	// waiting.
	ErrKilled = errors.New("kernel: killed")
)
