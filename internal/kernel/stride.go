package kernel

// Pass is a fixed-point virtual-time accumulator (spec §9 design note:
// "Fixed-point with a 32-bit fractional part covers the required dynamic
// range without saving FPU context at every switch"). The low 32 bits
// (passScale = 1<<32) are fractional.
type Pass int64

const passScale = 1 << 32

func newPass(v int64) Pass { return Pass(v * passScale) }

// StrideSlot is one participant in the stride meta-scheduler (spec §4.C).
// Slot 0 is always the MLFQ aggregate; it is identified by its index, and
// its Proc is nil.
type StrideSlot struct {
	Ticket int64
	Pass   Pass
	// Proc is nil for the MLFQ aggregate slot (slot 0) and for inactive
	// slots; otherwise it is the owning stride participant.
	Proc   *Process
	active bool
}

// Stride is the fixed-size stride meta-scheduler state (spec §3, §4.C).
type Stride struct {
	Slots [NPROC]StrideSlot
	cfg   Config
}

func newStride(cfg Config) *Stride {
	s := &Stride{cfg: cfg}
	s.Slots[0] = StrideSlot{Ticket: cfg.MAXTICKET, active: true}
	for i := 1; i < len(s.Slots); i++ {
		s.Slots[i] = StrideSlot{Ticket: 0, Pass: -1}
	}
	return s
}

// totalReserved returns sum(ticket[i] for i>0), the invariant bounded by
// MAXSTRIDE.
func (s *Stride) totalReserved() int64 {
	var total int64
	for i := 1; i < len(s.Slots); i++ {
		if s.Slots[i].active {
			total += s.Slots[i].Ticket
		}
	}
	return total
}

// minActivePass returns the minimum pass across all active slots, used to
// seed a newly admitted participant (spec §4.C: "neither starve nor gain
// arrears").
func (s *Stride) minActivePass() Pass {
	min := s.Slots[0].Pass
	first := true
	for i := range s.Slots {
		if !s.Slots[i].active {
			continue
		}
		if first || s.Slots[i].Pass < min {
			min = s.Slots[i].Pass
			first = false
		}
	}
	return min
}

// append implements spec §4.C stride_append: admits p at the given usage
// (ticket count), moving tickets from slot 0. Returns ErrShareRefused if
// usage is non-positive or would exceed MAXSTRIDE, or ErrOutOfSlots if no
// free stride slot exists.
func (s *Stride) append(p *Process, usage int64) error {
	if usage <= 0 {
		return ErrShareRefused
	}
	if s.totalReserved()+usage > s.cfg.MAXSTRIDE {
		return ErrShareRefused
	}

	idx := -1
	for i := 1; i < len(s.Slots); i++ {
		if !s.Slots[i].active {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrOutOfSlots
	}

	seed := s.minActivePass()

	s.Slots[0].Ticket -= usage
	s.Slots[idx] = StrideSlot{
		Ticket: usage,
		Pass:   seed,
		Proc:   p,
		active: true,
	}

	p.Sched.Level = -1
	p.Sched.Index = idx
	return nil
}

// delete implements spec §4.C stride_delete: returns p's tickets to slot 0
// and invalidates its slot.
func (s *Stride) delete(p *Process) {
	idx := p.Sched.Index
	if idx <= 0 || idx >= len(s.Slots) || !s.Slots[idx].active || s.Slots[idx].Proc != p {
		return
	}
	s.Slots[0].Ticket += s.Slots[idx].Ticket
	s.Slots[idx] = StrideSlot{Ticket: 0, Pass: -1}
	p.Sched.Level = 0
	p.Sched.Index = 0
}

// updatePass implements spec §4.C's pass update: after a completed slice,
// increments the serviced slot's pass by MAXTICKET/ticket, rescaling every
// active slot if the result would exceed MAXPASS.
func (s *Stride) updatePass(index int) {
	slot := &s.Slots[index]
	if slot.Ticket <= 0 {
		return
	}
	delta := Pass(s.cfg.MAXTICKET) * passScale / Pass(slot.Ticket)
	next := slot.Pass + delta
	if int64(next) > s.cfg.MAXPASS {
		shrink := Pass(s.cfg.MAXPASS - s.cfg.SCALEPASS)
		for i := range s.Slots {
			if s.Slots[i].active || i == 0 {
				s.Slots[i].Pass -= shrink
			}
		}
		next = slot.Pass + delta
	}
	slot.Pass = next
}

// next implements spec §4.C selection: the active, runnable slot with the
// smallest pass, slot 0 (the MLFQ aggregate) participating equally while
// mlfqHasRunnable reports a runnable MLFQ process and skipped otherwise.
// Returns the chosen slot index, or -1 if no slot is runnable; ties break
// toward the lower index. Spec §9 notes
// one source file's stride_next overwrote the iterator instead of tracking
// the running minimum — this implementation tracks the minimum directly.
func (s *Stride) next(mlfqHasRunnable func() bool) int {
	best := -1
	var bestPass Pass
	for i := range s.Slots {
		if i == 0 {
			if !mlfqHasRunnable() {
				continue
			}
		} else if !s.Slots[i].active || !s.Slots[i].Proc.Runnable() {
			continue
		}
		if best < 0 || s.Slots[i].Pass < bestPass {
			best = i
			bestPass = s.Slots[i].Pass
		}
	}
	return best
}
