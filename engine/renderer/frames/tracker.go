// Package frames tracks which fences guard which frame slots and swapchain images.
package frames

import (
	"github.com/cockroachdb/errors"
)

// Fence is a GPU-to-CPU completion signal.
type Fence interface {
	// Wait blocks until the fence is signaled.
	Wait() error
	// Reset returns the fence to the unsignaled state.
	Reset() error
}

// InFlightTracker owns one fence per frame slot and an alias table mapping each
// swapchain image to the slot fence of the frame currently rendering into it.
// An alias is non-nil only while some in-flight frame uses the image.
type InFlightTracker struct {
	slots          []Fence
	imagesInFlight []Fence
	current        int
}

func NewInFlightTracker(slotFences []Fence, imageCount int) (*InFlightTracker, error) {
	if len(slotFences) == 0 {
		return nil, errors.New("in-flight tracker needs at least one frame slot")
	}
	if imageCount <= 0 {
		return nil, errors.Newf("invalid swapchain image count %d", imageCount)
	}
	return &InFlightTracker{
		slots:          slotFences,
		imagesInFlight: make([]Fence, imageCount),
	}, nil
}

// Slot is the index of the active frame slot.
func (t *InFlightTracker) Slot() int {
	return t.current
}

func (t *InFlightTracker) SlotCount() int {
	return len(t.slots)
}

// WaitForSlot blocks until the GPU finished the last frame submitted on the active slot.
func (t *InFlightTracker) WaitForSlot() error {
	return errors.Wrapf(t.slots[t.current].Wait(), "waiting on frame slot %d", t.current)
}

// ClaimImage makes the active slot the owner of imageIndex. If an older frame is still
// rendering into that image, it waits for it first. The returned fence is reset and
// must be signaled by the submission.
func (t *InFlightTracker) ClaimImage(imageIndex uint32) (Fence, error) {
	if int(imageIndex) >= len(t.imagesInFlight) {
		return nil, errors.AssertionFailedf("image index %d out of range (%d images)", imageIndex, len(t.imagesInFlight))
	}
	if prior := t.imagesInFlight[imageIndex]; prior != nil {
		if err := prior.Wait(); err != nil {
			return nil, errors.Wrapf(err, "waiting on image %d", imageIndex)
		}
	}
	fence := t.slots[t.current]
	t.imagesInFlight[imageIndex] = fence
	if err := fence.Reset(); err != nil {
		return nil, errors.Wrapf(err, "resetting frame slot %d fence", t.current)
	}
	return fence, nil
}

// Advance moves to the next frame slot.
func (t *InFlightTracker) Advance() {
	t.current = (t.current + 1) % len(t.slots)
}

// ImageFence returns the fence aliasing imageIndex, or nil.
func (t *InFlightTracker) ImageFence(imageIndex uint32) Fence {
	return t.imagesInFlight[imageIndex]
}
