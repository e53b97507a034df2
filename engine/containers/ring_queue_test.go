package containers

import "testing"

func TestRingQueueWrapsAround(t *testing.T) {
	rq := NewRingQueue[int](3)
	if _, err := rq.Dequeue(); err == nil {
		t.Error("dequeue from empty queue succeeded")
	}
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatal(err)
		}
	}
	if err := rq.Enqueue(4); err == nil {
		t.Error("enqueue into full queue succeeded")
	}
	for round := 0; round < 5; round++ {
		v, err := rq.Dequeue()
		if err != nil {
			t.Fatal(err)
		}
		if err := rq.Enqueue(v + 3); err != nil {
			t.Fatal(err)
		}
		if head, _ := rq.Peek(); head != v+1 {
			t.Errorf("round %d: head = %d, want %d", round, head, v+1)
		}
	}
	if rq.Len() != 3 || !rq.IsFull() {
		t.Errorf("len = %d", rq.Len())
	}
}
