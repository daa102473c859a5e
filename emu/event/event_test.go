package event

import "testing"

func TestAddFiresAfterCycles(t *testing.T) {
	q := NewQueue()
	fired := false
	q.Add("dev", func(iarg int) { fired = true }, 3, 0)
	q.Advance(2)
	if fired {
		t.Fatalf("fired too early")
	}
	q.Advance(1)
	if !fired {
		t.Fatalf("did not fire at deadline")
	}
}

func TestAddZeroCyclesFiresImmediately(t *testing.T) {
	q := NewQueue()
	fired := false
	q.Add("dev", func(iarg int) { fired = true }, 0, 0)
	if !fired {
		t.Fatalf("zero-cycle event should fire synchronously")
	}
}

func TestOrderingAcrossMultipleEntries(t *testing.T) {
	q := NewQueue()
	var order []int
	q.Add("a", func(iarg int) { order = append(order, iarg) }, 5, 1)
	q.Add("b", func(iarg int) { order = append(order, iarg) }, 2, 2)
	q.Add("c", func(iarg int) { order = append(order, iarg) }, 8, 3)
	q.Advance(10)
	want := []int{2, 1, 3}
	if len(order) != len(want) {
		t.Fatalf("got %v want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v want %v", order, want)
		}
	}
}

func TestCancelRemovesEntry(t *testing.T) {
	q := NewQueue()
	fired := false
	q.Add("dev", func(iarg int) { fired = true }, 3, 7)
	q.Cancel("dev", 7)
	q.Advance(10)
	if fired {
		t.Fatalf("canceled event fired")
	}
}

func TestPending(t *testing.T) {
	q := NewQueue()
	if q.Pending() {
		t.Fatalf("empty queue should not be pending")
	}
	q.Add("dev", func(int) {}, 1, 0)
	if !q.Pending() {
		t.Fatalf("queue with entry should be pending")
	}
}
