package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

// Buffer is a VkBuffer bound to its own allocation.
type Buffer struct {
	device *Device
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  vk.BufferUsageFlags

	memoryFlags vk.MemoryPropertyFlags
}

func NewBuffer(device *Device, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*Buffer, error) {
	if size == 0 {
		return nil, errors.New("cannot create a zero-sized buffer")
	}
	b := &Buffer{
		device:      device,
		Size:        size,
		Usage:       usage,
		memoryFlags: memoryFlags,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := ResultError("vkCreateBuffer", vk.CreateBuffer(device.LogicalDevice, &bufferInfo, device.context.Allocator, &handle)); err != nil {
		return nil, err
	}
	b.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.LogicalDevice, b.Handle, &requirements)
	requirements.Deref()

	memoryType, err := device.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		b.Destroy()
		return nil, err
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if err := ResultError("vkAllocateMemory", vk.AllocateMemory(device.LogicalDevice, &allocateInfo, device.context.Allocator, &memory)); err != nil {
		b.Destroy()
		return nil, err
	}
	b.Memory = memory

	if err := ResultError("vkBindBufferMemory", vk.BindBufferMemory(device.LogicalDevice, b.Handle, b.Memory, 0)); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

// LoadData copies data into a host-visible buffer at offset.
func (b *Buffer) LoadData(offset uint64, data []byte) error {
	if b.memoryFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
		return errors.AssertionFailedf("buffer memory is not host visible")
	}
	if offset+uint64(len(data)) > b.Size {
		return errors.AssertionFailedf("write of %d bytes at %d overflows buffer of %d", len(data), offset, b.Size)
	}
	var mapped unsafe.Pointer
	if err := ResultError("vkMapMemory", vk.MapMemory(b.device.LogicalDevice, b.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &mapped)); err != nil {
		return err
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(b.device.LogicalDevice, b.Memory)
	return nil
}

// CopyTo records a one-shot copy into dest and waits for it to finish on queue.
func (b *Buffer) CopyTo(pool vk.CommandPool, queue vk.Queue, dest *Buffer, size uint64) error {
	cb, err := AllocateAndBeginSingleUse(b.device, pool)
	if err != nil {
		return err
	}
	vk.CmdCopyBuffer(cb.Handle, b.Handle, dest.Handle, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
	return cb.EndSingleUse(b.device, pool, queue)
}

func (b *Buffer) Destroy() {
	if b.Memory != nil {
		vk.FreeMemory(b.device.LogicalDevice, b.Memory, b.device.context.Allocator)
		b.Memory = nil
	}
	if b.Handle != nil {
		vk.DestroyBuffer(b.device.LogicalDevice, b.Handle, b.device.context.Allocator)
		b.Handle = nil
	}
	b.Size = 0
}

// uploadDeviceLocal stages data through a host-visible buffer into a new
// device-local buffer with the given usage.
func uploadDeviceLocal(device *Device, data []byte, usage vk.BufferUsageFlags) (*Buffer, error) {
	size := uint64(len(data))
	staging, err := NewBuffer(device, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, errors.Wrap(err, "creating staging buffer")
	}
	defer staging.Destroy()
	if err := staging.LoadData(0, data); err != nil {
		return nil, err
	}

	target, err := NewBuffer(device, size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, errors.Wrap(err, "creating device local buffer")
	}
	if err := staging.CopyTo(device.GraphicsCommandPool, device.GraphicsQueue, target, size); err != nil {
		target.Destroy()
		return nil, errors.Wrap(err, "copying staging buffer")
	}
	core.LogDebug("uploaded %d bytes to device local memory", size)
	return target, nil
}
