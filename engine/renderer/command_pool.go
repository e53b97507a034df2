package renderer

import (
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

// allocateCommandBuffers takes one primary buffer per frame slot from the device's
// graphics pool. Buffers are reset implicitly each time recording begins.
func (r *Renderer[C]) allocateCommandBuffers() error {
	buffers, err := r.device.AllocateCommandBuffers(MaxFramesInFlight)
	if err != nil {
		return core.ConfigurationError(err, "failed to allocate command buffers")
	}
	if len(buffers) != MaxFramesInFlight {
		r.device.FreeCommandBuffers(buffers)
		return core.ConfigurationError(nil, "allocated %d command buffers, expected %d", len(buffers), MaxFramesInFlight)
	}
	r.commandBuffers = buffers
	r.allocatedImageCount = r.swapChain.ImageCount()
	core.LogDebug("allocated %d command buffers for %d swapchain images", len(buffers), r.allocatedImageCount)
	return nil
}

func (r *Renderer[C]) freeCommandBuffers() {
	if len(r.commandBuffers) == 0 {
		return
	}
	r.device.FreeCommandBuffers(r.commandBuffers)
	r.commandBuffers = nil
	r.allocatedImageCount = 0
}
