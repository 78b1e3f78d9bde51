package tasks

import "sort"

type Kind string

const (
	KindCustomerLeave Kind = "CUSTOMER_LEAVE"
	KindCustomerSpawn Kind = "CUSTOMER_SPAWN"
	KindCrateReady    Kind = "CRATE_READY"
)

// Task is a deferred state-machine step. The scheduler never runs anything itself;
// the owner pulls due tasks once per tick and advances its state.
type Task struct {
	ID      uint64
	Kind    Kind
	Target  string // entity/customer/station id the step applies to
	DueTick uint64
}

// Scheduler is a deadline queue keyed by tick. It is owned by the single sim loop
// and is not safe for concurrent use.
type Scheduler struct {
	next    uint64
	pending []Task
}

func NewScheduler() *Scheduler { return &Scheduler{} }

// At schedules a task and returns its id.
func (s *Scheduler) At(due uint64, kind Kind, target string) uint64 {
	s.next++
	s.pending = append(s.pending, Task{ID: s.next, Kind: kind, Target: target, DueTick: due})
	return s.next
}

// Cancel removes a pending task. Returns false if it already fired or never existed.
func (s *Scheduler) Cancel(id uint64) bool {
	for i, t := range s.pending {
		if t.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Due removes and returns every task whose deadline is <= now, ordered by
// (DueTick, ID) so replays see the same order.
func (s *Scheduler) Due(now uint64) []Task {
	var due []Task
	keep := s.pending[:0]
	for _, t := range s.pending {
		if t.DueTick <= now {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	s.pending = keep
	sort.Slice(due, func(i, j int) bool {
		if due[i].DueTick != due[j].DueTick {
			return due[i].DueTick < due[j].DueTick
		}
		return due[i].ID < due[j].ID
	})
	return due
}

// Pending returns a copy of the pending tasks (ordered by id) for snapshots.
func (s *Scheduler) Pending() []Task {
	out := append([]Task(nil), s.pending...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NextID is the id counter, persisted alongside Pending.
func (s *Scheduler) NextID() uint64 { return s.next }

// Restore replaces the scheduler state from a snapshot.
func (s *Scheduler) Restore(next uint64, pending []Task) {
	s.next = next
	s.pending = append(s.pending[:0], pending...)
}

func (s *Scheduler) Len() int { return len(s.pending) }
