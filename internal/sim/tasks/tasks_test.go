package tasks

import "testing"

func TestScheduler_DueOrder(t *testing.T) {
	s := NewScheduler()
	a := s.At(10, KindCustomerLeave, "C1")
	b := s.At(5, KindCrateReady, "crate_1")
	c := s.At(10, KindCustomerSpawn, "")
	s.At(20, KindCrateReady, "crate_2")

	if got := s.Due(4); len(got) != 0 {
		t.Fatalf("early due: %+v", got)
	}
	got := s.Due(10)
	if len(got) != 3 || got[0].ID != b || got[1].ID != a || got[2].ID != c {
		t.Fatalf("due order = %+v", got)
	}
	if s.Len() != 1 {
		t.Fatalf("pending = %d", s.Len())
	}
	if again := s.Due(10); len(again) != 0 {
		t.Fatalf("tasks fired twice: %+v", again)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	s := NewScheduler()
	id := s.At(3, KindCustomerLeave, "C1")
	if !s.Cancel(id) {
		t.Fatalf("cancel pending task failed")
	}
	if s.Cancel(id) {
		t.Fatalf("cancel twice succeeded")
	}
	if got := s.Due(100); len(got) != 0 {
		t.Fatalf("cancelled task fired")
	}
}

func TestScheduler_Restore(t *testing.T) {
	s := NewScheduler()
	s.At(7, KindCrateReady, "crate_1")
	s.At(3, KindCustomerLeave, "C1")

	r := NewScheduler()
	r.Restore(s.NextID(), s.Pending())
	if r.NextID() != 2 || r.Len() != 2 {
		t.Fatalf("restored next=%d len=%d", r.NextID(), r.Len())
	}
	if id := r.At(9, KindCustomerSpawn, ""); id != 3 {
		t.Fatalf("id after restore = %d", id)
	}
	got := r.Due(7)
	if len(got) != 2 || got[0].Target != "C1" || got[1].Target != "crate_1" {
		t.Fatalf("restored due = %+v", got)
	}
}
