package frames

import (
	"testing"

	"github.com/cockroachdb/errors"
)

// gpu completes submissions in order; waiting on a fence drains the queue up to it.
type gpu struct {
	pending []submission
	maxSeen int
}

type submission struct {
	fence *fakeFence
	image uint32
}

type fakeFence struct {
	gpu      *gpu
	signaled bool
	waits    int
	resets   int
}

func (f *fakeFence) Wait() error {
	f.waits++
	for !f.signaled {
		if len(f.gpu.pending) == 0 {
			return errors.New("deadlock: waiting on a fence nothing will signal")
		}
		f.gpu.completeOne()
	}
	return nil
}

func (f *fakeFence) Reset() error {
	f.resets++
	f.signaled = false
	return nil
}

func (g *gpu) submit(f *fakeFence, image uint32) {
	g.pending = append(g.pending, submission{fence: f, image: image})
	if len(g.pending) > g.maxSeen {
		g.maxSeen = len(g.pending)
	}
}

func (g *gpu) completeOne() {
	g.pending[0].fence.signaled = true
	g.pending = g.pending[1:]
}

func (g *gpu) unsignaled(fences []*fakeFence) int {
	n := 0
	for _, f := range fences {
		if !f.signaled {
			n++
		}
	}
	return n
}

func newTracker(t *testing.T, g *gpu, slots, images int) (*InFlightTracker, []*fakeFence) {
	t.Helper()
	fences := make([]*fakeFence, slots)
	generic := make([]Fence, slots)
	for i := range fences {
		// Slot fences start signaled so the first frame does not wait.
		fences[i] = &fakeFence{gpu: g, signaled: true}
		generic[i] = fences[i]
	}
	tr, err := NewInFlightTracker(generic, images)
	if err != nil {
		t.Fatal(err)
	}
	return tr, fences
}

func TestBoundedInFlight(t *testing.T) {
	acquireOrders := map[string]func(k int) uint32{
		"rotating":  func(k int) uint32 { return uint32(k % 3) },
		"irregular": func(k int) uint32 { return uint32((k*7 + k/5) % 3) },
		"sticky":    func(k int) uint32 { return uint32((k / 4) % 3) },
	}
	for name, next := range acquireOrders {
		t.Run(name, func(t *testing.T) {
			g := &gpu{}
			tr, fences := newTracker(t, g, 2, 3)

			for k := 0; k < 300; k++ {
				if err := tr.WaitForSlot(); err != nil {
					t.Fatalf("frame %d: %v", k, err)
				}
				img := next(k)
				fence, err := tr.ClaimImage(img)
				if err != nil {
					t.Fatalf("frame %d: %v", k, err)
				}
				for _, p := range g.pending {
					if p.image == img {
						t.Fatalf("frame %d: image %d claimed while still being rendered", k, img)
					}
				}
				if fence != Fence(fences[tr.Slot()]) || tr.ImageFence(img) != fence {
					t.Fatalf("frame %d: image not aliased to the active slot fence", k)
				}
				g.submit(fence.(*fakeFence), img)
				if n := g.unsignaled(fences); n > 2 {
					t.Fatalf("frame %d: %d fences unsignaled", k, n)
				}
				// The GPU keeps up only every third frame.
				if k%3 == 0 && len(g.pending) > 0 {
					g.completeOne()
				}
				tr.Advance()
			}
			if g.maxSeen > 2 {
				t.Errorf("%d frames were in flight at once", g.maxSeen)
			}
		})
	}
}

func TestClaimImageWaitsOnPriorOwner(t *testing.T) {
	g := &gpu{}
	tr, fences := newTracker(t, g, 2, 3)

	f0, err := tr.ClaimImage(1)
	if err != nil {
		t.Fatal(err)
	}
	g.submit(f0.(*fakeFence), 1)
	tr.Advance()

	if tr.Slot() != 1 {
		t.Fatalf("slot = %d", tr.Slot())
	}
	if _, err := tr.ClaimImage(1); err != nil {
		t.Fatal(err)
	}
	if fences[0].waits != 1 {
		t.Errorf("slot 0 fence waited %d times, want 1", fences[0].waits)
	}
	if !fences[0].signaled {
		t.Error("prior frame on image 1 did not complete before reuse")
	}
	if tr.ImageFence(1) != Fence(fences[1]) {
		t.Error("image 1 should now alias slot 1")
	}
	if fences[1].resets != 1 {
		t.Errorf("slot 1 fence reset %d times", fences[1].resets)
	}

	tr.Advance()
	if tr.Slot() != 0 {
		t.Errorf("slot did not wrap, got %d", tr.Slot())
	}
}

func TestTrackerRejectsBadInput(t *testing.T) {
	if _, err := NewInFlightTracker(nil, 3); err == nil {
		t.Error("expected error without slots")
	}
	g := &gpu{}
	fence := &fakeFence{gpu: g, signaled: true}
	if _, err := NewInFlightTracker([]Fence{fence}, 0); err == nil {
		t.Error("expected error without images")
	}
	tr, _ := newTracker(t, g, 2, 2)
	if _, err := tr.ClaimImage(2); !errors.IsAssertionFailure(err) {
		t.Errorf("out of range image: %v", err)
	}
	if tr.ImageFence(0) != nil {
		t.Error("images must start without an owner")
	}
}
