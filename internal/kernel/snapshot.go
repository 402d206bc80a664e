package kernel

import "github.com/mohae/deepcopy"

// ProcSnapshot is a read-only view of one process slot, suitable for
// cmd/schedctl's ps-style dump (SPEC_FULL.md §C) without holding the
// scheduler lock while formatting output.
type ProcSnapshot struct {
	PID     int
	Name    string
	State   string
	Level   int
	Index   int
	Elapsed int64
	Ticket  int64
	Pass    Pass
	Killed  bool
}

// Snapshot returns the live process table's visible state as of the call.
// The scheduler lock is held only long enough to read the fields below,
// never while formatting or writing to a client connection.
func (k *Kernel) Snapshot() []ProcSnapshot {
	k.mu.Lock()
	defer k.mu.Unlock()

	out := make([]ProcSnapshot, 0, NPROC)
	for i := range k.table.Procs {
		p := &k.table.Procs[i]
		if p.state == ProcUnused {
			continue
		}
		snap := ProcSnapshot{
			PID:     p.PID,
			Name:    p.Name,
			State:   p.state.String(),
			Level:   p.Sched.Level,
			Index:   p.Sched.Index,
			Elapsed: p.Sched.Elapsed,
			Killed:  p.Killed,
		}
		if p.Sched.Level < 0 && p.Sched.Index >= 0 && p.Sched.Index < len(k.stride.Slots) {
			snap.Ticket = k.stride.Slots[p.Sched.Index].Ticket
			snap.Pass = k.stride.Slots[p.Sched.Index].Pass
		}
		out = append(out, snap)
	}
	return out
}

// DebugSnapshot returns a deep copy of every exported ProcSnapshot field
// plus the raw stride slot array, for cmd/schedctl's verbose (-v) dump via
// go-spew. It exists as a separate, heavier call from Snapshot so that the
// common ps path never pays for a reflective deep copy of state that is
// already a plain value copy.
func (k *Kernel) DebugSnapshot() (procs []ProcSnapshot, stride [NPROC]StrideSlot) {
	procs = k.Snapshot()
	k.mu.Lock()
	stride = deepcopy.Copy(k.stride.Slots).([NPROC]StrideSlot)
	k.mu.Unlock()
	return procs, stride
}
