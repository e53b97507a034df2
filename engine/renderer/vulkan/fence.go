package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

// Fence wraps a VkFence and caches its signaled state so waits on an already
// signaled fence skip the driver call.
type Fence struct {
	device     *Device
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device *Device, createSignaled bool) (*Fence, error) {
	fence := &Fence{
		device:     device,
		IsSignaled: createSignaled,
	}
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var handle vk.Fence
	if err := ResultError("vkCreateFence", vk.CreateFence(device.LogicalDevice, &fenceCreateInfo, device.context.Allocator, &handle)); err != nil {
		return nil, core.ConfigurationError(err, "failed to create fence")
	}
	fence.Handle = handle
	return fence, nil
}

func (f *Fence) Destroy() {
	if f.Handle != vk.NullFence {
		vk.DestroyFence(f.device.LogicalDevice, f.Handle, f.device.context.Allocator)
		f.Handle = vk.NullFence
	}
	f.IsSignaled = false
}

// Wait blocks with no timeout until the fence is signaled.
func (f *Fence) Wait() error {
	if f.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(f.device.LogicalDevice, 1, []vk.Fence{f.Handle}, vk.True, math.MaxUint64)
	if err := ResultError("vkWaitForFences", result); err != nil {
		return err
	}
	if result == vk.Timeout {
		core.LogWarn("fence wait timed out")
		return nil
	}
	f.IsSignaled = true
	return nil
}

// Reset returns a signaled fence to the unsignaled state.
func (f *Fence) Reset() error {
	if !f.IsSignaled {
		return nil
	}
	if err := ResultError("vkResetFences", vk.ResetFences(f.device.LogicalDevice, 1, []vk.Fence{f.Handle})); err != nil {
		return err
	}
	f.IsSignaled = false
	return nil
}
