package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

// Device owns the physical device choice, the logical device, its queues and the
// graphics command pool.
type Device struct {
	context *Context

	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
}

type physicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
}

type queueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

func (q queueFamilyInfo) complete(req physicalDeviceRequirements) bool {
	return (!req.Graphics || q.GraphicsFamilyIndex >= 0) &&
		(!req.Present || q.PresentFamilyIndex >= 0)
}

func NewDevice(context *Context) (*Device, error) {
	d := &Device{context: context}
	if err := d.selectPhysicalDevice(); err != nil {
		return nil, err
	}
	if !d.detectDepthFormat() {
		return nil, core.ConfigurationError(nil, "failed to find a supported depth format")
	}
	if err := d.createLogicalDevice(); err != nil {
		d.Destroy()
		return nil, err
	}
	return d, nil
}

func (d *Device) selectPhysicalDevice() error {
	var count uint32
	if err := ResultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(d.context.Instance, &count, nil)); err != nil {
		return core.ConfigurationError(err, "failed to enumerate physical devices")
	}
	if count == 0 {
		return core.ConfigurationError(nil, "no devices which support Vulkan were found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := ResultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(d.context.Instance, &count, devices)); err != nil {
		return core.ConfigurationError(err, "failed to enumerate physical devices")
	}

	requirements := physicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	// Discrete GPUs win over anything else that meets the requirements.
	selected := -1
	var selectedQueues queueFamilyInfo
	for i, candidate := range devices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(candidate, &properties)
		properties.Deref()

		queues, ok := d.meetsRequirements(candidate, &properties, requirements)
		if !ok {
			continue
		}
		if selected < 0 || properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			selected = i
			selectedQueues = queues
			d.Properties = properties
		}
		if properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			break
		}
	}
	if selected < 0 {
		return core.ConfigurationError(nil, "no physical devices were found which meet the requirements")
	}

	d.PhysicalDevice = devices[selected]
	d.GraphicsQueueIndex = uint32(selectedQueues.GraphicsFamilyIndex)
	d.PresentQueueIndex = uint32(selectedQueues.PresentFamilyIndex)
	vk.GetPhysicalDeviceFeatures(d.PhysicalDevice, &d.Features)
	d.Features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(d.PhysicalDevice, &d.Memory)
	d.Memory.Deref()

	d.logSelection()
	return nil
}

func (d *Device) logSelection() {
	core.LogInfo("Selected device: '%s'.", cString(d.Properties.DeviceName[:]))
	switch d.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(d.Properties.DriverVersion).Major(),
		vk.Version(d.Properties.DriverVersion).Minor(),
		vk.Version(d.Properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(d.Properties.ApiVersion).Major(),
		vk.Version(d.Properties.ApiVersion).Minor(),
		vk.Version(d.Properties.ApiVersion).Patch(),
	)
	for j := 0; j < int(d.Memory.MemoryHeapCount); j++ {
		heap := d.Memory.MemoryHeaps[j]
		heap.Deref()
		sizeGib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", sizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", sizeGib)
		}
	}
}

func (d *Device) meetsRequirements(device vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties, requirements physicalDeviceRequirements) (queueFamilyInfo, bool) {
	queues := queueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}
	name := cString(properties.DeviceName[:])

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, families)

	for i := range families {
		families[i].Deref()
		if queues.GraphicsFamilyIndex < 0 && vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			queues.GraphicsFamilyIndex = int32(i)
		}
		var supportsPresent vk.Bool32
		if err := ResultError("vkGetPhysicalDeviceSurfaceSupport", vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), d.context.Surface, &supportsPresent)); err != nil {
			core.LogWarn("%s: %s", name, err)
			return queues, false
		}
		// Prefer a family that does both.
		if supportsPresent == vk.True && (queues.PresentFamilyIndex < 0 || queues.GraphicsFamilyIndex == int32(i)) {
			queues.PresentFamilyIndex = int32(i)
		}
	}

	if !queues.complete(requirements) {
		core.LogInfo("Device '%s' lacks required queues, skipping.", name)
		return queues, false
	}
	core.LogDebug("Graphics Family Index: %d", queues.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", queues.PresentFamilyIndex)

	support, err := QuerySwapchainSupport(device, d.context.Surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present on '%s', skipping device.", name)
		return queues, false
	}

	available, err := deviceExtensions(device)
	if err != nil {
		core.LogWarn("%s: %s", name, err)
		return queues, false
	}
	for _, required := range requirements.DeviceExtensionNames {
		if _, ok := available[required]; !ok {
			core.LogInfo("Required extension not found: '%s', skipping device.", required)
			return queues, false
		}
	}
	return queues, true
}

func deviceExtensions(device vk.PhysicalDevice) (map[string]struct{}, error) {
	var count uint32
	if err := ResultError("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(device, "", &count, nil)); err != nil {
		return nil, err
	}
	properties := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if err := ResultError("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(device, "", &count, properties)); err != nil {
			return nil, err
		}
	}
	names := make(map[string]struct{}, count)
	for i := range properties {
		properties[i].Deref()
		names[cString(properties[i].ExtensionName[:])] = struct{}{}
	}
	return names, nil
}

func (d *Device) createLogicalDevice() error {
	core.LogInfo("Creating logical device...")

	// Do not create additional queues for shared indices.
	indices := []uint32{d.GraphicsQueueIndex}
	if d.PresentQueueIndex != d.GraphicsQueueIndex {
		indices = append(indices, d.PresentQueueIndex)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	available, err := deviceExtensions(d.PhysicalDevice)
	if err != nil {
		return core.ConfigurationError(err, "failed to enumerate device extensions")
	}
	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if _, ok := available[portabilitySubsetExtension]; ok {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensionNames = append(extensionNames, portabilitySubsetExtension)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logical vk.Device
	if err := ResultError("vkCreateDevice", vk.CreateDevice(d.PhysicalDevice, &deviceCreateInfo, d.context.Allocator, &logical)); err != nil {
		return core.ConfigurationError(err, "failed to create logical device")
	}
	d.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	var graphics, present vk.Queue
	vk.GetDeviceQueue(d.LogicalDevice, d.GraphicsQueueIndex, 0, &graphics)
	vk.GetDeviceQueue(d.LogicalDevice, d.PresentQueueIndex, 0, &present)
	d.GraphicsQueue = graphics
	d.PresentQueue = present
	core.LogInfo("Queues obtained.")

	// Buffers are re-begun every frame, which needs the per-buffer reset flag.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit),
	}
	var pool vk.CommandPool
	if err := ResultError("vkCreateCommandPool", vk.CreateCommandPool(d.LogicalDevice, &poolCreateInfo, d.context.Allocator, &pool)); err != nil {
		return core.ConfigurationError(err, "failed to create graphics command pool")
	}
	d.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")
	return nil
}

// Destroy releases the command pool and the logical device. Physical devices are
// not destroyed.
func (d *Device) Destroy() {
	d.GraphicsQueue = nil
	d.PresentQueue = nil

	if d.GraphicsCommandPool != nil {
		core.LogInfo("Destroying command pools...")
		vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, d.context.Allocator)
		d.GraphicsCommandPool = nil
	}
	if d.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(d.LogicalDevice, d.context.Allocator)
		d.LogicalDevice = nil
	}
	d.PhysicalDevice = nil
}

// WaitIdle blocks until every queue on the device has drained.
func (d *Device) WaitIdle() error {
	return ResultError("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.LogicalDevice))
}

// AllocateCommandBuffers allocates count primary buffers from the graphics pool.
func (d *Device) AllocateCommandBuffers(count int) ([]*CommandBuffer, error) {
	buffers := make([]*CommandBuffer, 0, count)
	for i := 0; i < count; i++ {
		cb, err := NewCommandBuffer(d, d.GraphicsCommandPool, true)
		if err != nil {
			d.FreeCommandBuffers(buffers)
			return nil, errors.Wrapf(err, "allocating command buffer %d of %d", i+1, count)
		}
		buffers = append(buffers, cb)
	}
	return buffers, nil
}

func (d *Device) FreeCommandBuffers(buffers []*CommandBuffer) {
	for _, cb := range buffers {
		cb.Free(d, d.GraphicsCommandPool)
	}
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has all
// of propertyFlags.
func (d *Device) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		memoryType := d.Memory.MemoryTypes[i]
		memoryType.Deref()
		if typeFilter&(1<<i) != 0 && memoryType.PropertyFlags&propertyFlags == propertyFlags {
			return i, nil
		}
	}
	return 0, core.ConfigurationError(nil, "unable to find suitable memory type (filter %#x, flags %#x)", typeFilter, uint32(propertyFlags))
}

func (d *Device) detectDepthFormat() bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(d.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if properties.LinearTilingFeatures&flags == flags || properties.OptimalTilingFeatures&flags == flags {
			d.DepthFormat = candidate
			return true
		}
	}
	d.DepthFormat = vk.FormatUndefined
	return false
}
