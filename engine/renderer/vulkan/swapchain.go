package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/core"
	"github.com/spaghettifunk/vulkanmc/engine/renderer"
	"github.com/spaghettifunk/vulkanmc/engine/renderer/frames"
)

// SwapChain owns the presentable images and everything sized by them: views, depth
// images, framebuffers, the render pass, and the per-frame-slot semaphores and fences.
type SwapChain struct {
	context *Context
	device  *Device

	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	DepthFormat vk.Format
	PresentMode vk.PresentMode
	extent      vk.Extent2D

	Images           []vk.Image
	Views            []vk.ImageView
	DepthAttachments []*Image
	Framebuffers     []*Framebuffer
	Renderpass       *Renderpass

	imageAvailableSemaphores []vk.Semaphore
	renderFinishedSemaphores []vk.Semaphore
	inFlightFences           []*Fence
	tracker                  *frames.InFlightTracker
}

// NewSwapChainFactory adapts NewSwapChain to the renderer's factory signature.
func NewSwapChainFactory(context *Context) renderer.SwapChainFactory[*CommandBuffer] {
	return func(extent renderer.Extent, previous renderer.SwapChain[*CommandBuffer]) (renderer.SwapChain[*CommandBuffer], error) {
		var old *SwapChain
		if previous != nil {
			var ok bool
			if old, ok = previous.(*SwapChain); !ok {
				return nil, errors.AssertionFailedf("previous swapchain has unexpected type %T", previous)
			}
		}
		sc, err := NewSwapChain(context, extent, old)
		if err != nil {
			return nil, err
		}
		return sc, nil
	}
}

// NewSwapChain builds a chain for extent. previous, when set, is handed to the driver
// so it can recycle resources; it stays owned by the caller and is never rendered to
// through the new chain.
func NewSwapChain(context *Context, extent renderer.Extent, previous *SwapChain) (*SwapChain, error) {
	sc := &SwapChain{
		context:     context,
		device:      context.Device,
		DepthFormat: context.Device.DepthFormat,
	}
	if err := sc.createSwapchain(extent, previous); err != nil {
		sc.Destroy()
		return nil, err
	}
	if err := sc.createImageViews(); err != nil {
		sc.Destroy()
		return nil, err
	}
	rp, err := NewRenderpass(sc.device, sc.ImageFormat.Format, sc.DepthFormat)
	if err != nil {
		sc.Destroy()
		return nil, err
	}
	sc.Renderpass = rp
	if err := sc.createDepthResources(); err != nil {
		sc.Destroy()
		return nil, err
	}
	if err := sc.createFramebuffers(); err != nil {
		sc.Destroy()
		return nil, err
	}
	if err := sc.createSyncObjects(); err != nil {
		sc.Destroy()
		return nil, err
	}
	core.LogInfo("Swapchain created successfully.")
	return sc, nil
}

func (sc *SwapChain) createSwapchain(extent renderer.Extent, previous *SwapChain) error {
	support, err := QuerySwapchainSupport(sc.device.PhysicalDevice, sc.context.Surface)
	if err != nil {
		return core.ConfigurationError(err, "failed to query swapchain support")
	}
	format, err := chooseSurfaceFormat(support.Formats)
	if err != nil {
		return err
	}
	sc.ImageFormat = format
	sc.PresentMode = choosePresentMode(support.PresentModes, sc.context.PreferMailbox)
	sc.extent = chooseExtent(support.Capabilities, extent.Width, extent.Height)
	imageCount := chooseImageCount(support.Capabilities)

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          sc.context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      sc.ImageFormat.Format,
		ImageColorSpace:  sc.ImageFormat.ColorSpace,
		ImageExtent:      sc.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      sc.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     nil,
	}
	if sc.device.GraphicsQueueIndex != sc.device.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{sc.device.GraphicsQueueIndex, sc.device.PresentQueueIndex}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}
	if previous != nil {
		createInfo.OldSwapchain = previous.Handle
	}

	var handle vk.Swapchain
	if err := ResultError("vkCreateSwapchain", vk.CreateSwapchain(sc.device.LogicalDevice, &createInfo, sc.context.Allocator, &handle)); err != nil {
		return core.ConfigurationError(err, "failed to create swapchain")
	}
	sc.Handle = handle

	var count uint32
	if err := ResultError("vkGetSwapchainImages", vk.GetSwapchainImages(sc.device.LogicalDevice, sc.Handle, &count, nil)); err != nil {
		return core.ConfigurationError(err, "failed to get swapchain images")
	}
	sc.Images = make([]vk.Image, count)
	if err := ResultError("vkGetSwapchainImages", vk.GetSwapchainImages(sc.device.LogicalDevice, sc.Handle, &count, sc.Images)); err != nil {
		return core.ConfigurationError(err, "failed to get swapchain images")
	}
	core.LogDebug("swapchain: %dx%d, %d images (asked for %d)", sc.extent.Width, sc.extent.Height, count, imageCount)
	return nil
}

// Only views are created here; the images belong to the swapchain.
func (sc *SwapChain) createImageViews() error {
	sc.Views = make([]vk.ImageView, 0, len(sc.Images))
	for _, image := range sc.Images {
		view, err := createImageView(sc.device, image, sc.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		sc.Views = append(sc.Views, view)
	}
	return nil
}

func (sc *SwapChain) createDepthResources() error {
	sc.DepthAttachments = make([]*Image, 0, len(sc.Images))
	for range sc.Images {
		depth, err := NewImage(
			sc.device,
			vk.ImageType2d,
			sc.extent.Width,
			sc.extent.Height,
			sc.DepthFormat,
			vk.ImageTilingOptimal,
			vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			true,
			vk.ImageAspectFlags(vk.ImageAspectDepthBit))
		if err != nil {
			return err
		}
		sc.DepthAttachments = append(sc.DepthAttachments, depth)
	}
	return nil
}

func (sc *SwapChain) createFramebuffers() error {
	sc.Framebuffers = make([]*Framebuffer, 0, len(sc.Images))
	for i := range sc.Images {
		attachments := []vk.ImageView{sc.Views[i], sc.DepthAttachments[i].View}
		fb, err := NewFramebuffer(sc.device, sc.Renderpass, sc.extent.Width, sc.extent.Height, attachments)
		if err != nil {
			return err
		}
		sc.Framebuffers = append(sc.Framebuffers, fb)
	}
	return nil
}

func (sc *SwapChain) createSyncObjects() error {
	sc.imageAvailableSemaphores = make([]vk.Semaphore, 0, renderer.MaxFramesInFlight)
	sc.renderFinishedSemaphores = make([]vk.Semaphore, 0, renderer.MaxFramesInFlight)
	sc.inFlightFences = make([]*Fence, 0, renderer.MaxFramesInFlight)
	slots := make([]frames.Fence, 0, renderer.MaxFramesInFlight)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := 0; i < renderer.MaxFramesInFlight; i++ {
		var available, finished vk.Semaphore
		if err := ResultError("vkCreateSemaphore", vk.CreateSemaphore(sc.device.LogicalDevice, &semaphoreCreateInfo, sc.context.Allocator, &available)); err != nil {
			return core.ConfigurationError(err, "failed to create image available semaphore")
		}
		sc.imageAvailableSemaphores = append(sc.imageAvailableSemaphores, available)
		if err := ResultError("vkCreateSemaphore", vk.CreateSemaphore(sc.device.LogicalDevice, &semaphoreCreateInfo, sc.context.Allocator, &finished)); err != nil {
			return core.ConfigurationError(err, "failed to create render finished semaphore")
		}
		sc.renderFinishedSemaphores = append(sc.renderFinishedSemaphores, finished)

		// Created signaled so the first wait on each slot returns at once.
		fence, err := NewFence(sc.device, true)
		if err != nil {
			return err
		}
		sc.inFlightFences = append(sc.inFlightFences, fence)
		slots = append(slots, fence)
	}

	tracker, err := frames.NewInFlightTracker(slots, len(sc.Images))
	if err != nil {
		return core.ConfigurationError(err, "failed to set up frame tracking")
	}
	sc.tracker = tracker
	return nil
}

// AcquireNextImage waits for the active slot's previous frame, then asks the
// presentation engine for an image.
func (sc *SwapChain) AcquireNextImage() (uint32, renderer.Status, error) {
	if err := sc.tracker.WaitForSlot(); err != nil {
		return 0, renderer.StatusSuccess, err
	}
	var imageIndex uint32
	result := vk.AcquireNextImage(
		sc.device.LogicalDevice,
		sc.Handle,
		math.MaxUint64,
		sc.imageAvailableSemaphores[sc.tracker.Slot()],
		vk.NullFence,
		&imageIndex)
	switch result {
	case vk.Success:
		return imageIndex, renderer.StatusSuccess, nil
	case vk.Suboptimal:
		return imageIndex, renderer.StatusSuboptimal, nil
	case vk.ErrorOutOfDate:
		return 0, renderer.StatusOutOfDate, nil
	default:
		return 0, renderer.StatusSuccess, ResultError("vkAcquireNextImage", result)
	}
}

// SubmitCommandBuffers submits buffers for imageIndex and presents it. The
// submission waits on image availability before color output and signals render
// completion, which the present waits on.
func (sc *SwapChain) SubmitCommandBuffers(buffers []*CommandBuffer, imageIndex uint32) (renderer.Status, error) {
	slot := sc.tracker.Slot()
	claimed, err := sc.tracker.ClaimImage(imageIndex)
	if err != nil {
		return renderer.StatusSuccess, err
	}
	fence := claimed.(*Fence)

	handles := make([]vk.CommandBuffer, len(buffers))
	for i, cb := range buffers {
		handles[i] = cb.Handle
	}
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{sc.imageAvailableSemaphores[slot]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   uint32(len(handles)),
		PCommandBuffers:      handles,
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sc.renderFinishedSemaphores[slot]},
	}
	if err := ResultError("vkQueueSubmit", vk.QueueSubmit(sc.device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle)); err != nil {
		return renderer.StatusSuccess, err
	}
	for _, cb := range buffers {
		cb.UpdateSubmitted()
	}
	sc.tracker.Advance()

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sc.renderFinishedSemaphores[slot]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	switch result := vk.QueuePresent(sc.device.PresentQueue, &presentInfo); result {
	case vk.Success:
		return renderer.StatusSuccess, nil
	case vk.Suboptimal:
		return renderer.StatusSuboptimal, nil
	case vk.ErrorOutOfDate:
		return renderer.StatusOutOfDate, nil
	default:
		return renderer.StatusSuccess, ResultError("vkQueuePresent", result)
	}
}

func (sc *SwapChain) BeginRenderPass(cb *CommandBuffer, imageIndex uint32, clear renderer.ClearValues) {
	sc.Renderpass.Begin(cb, sc.Framebuffers[imageIndex], sc.extent, clear)
}

// CompareSwapFormats reports whether other uses the same color and depth formats.
func (sc *SwapChain) CompareSwapFormats(other renderer.SwapChain[*CommandBuffer]) bool {
	o, ok := other.(*SwapChain)
	if !ok || o == nil {
		return false
	}
	return o.ImageFormat.Format == sc.ImageFormat.Format && o.DepthFormat == sc.DepthFormat
}

func (sc *SwapChain) Extent() renderer.Extent {
	return renderer.Extent{Width: sc.extent.Width, Height: sc.extent.Height}
}

func (sc *SwapChain) ImageCount() int {
	return len(sc.Images)
}

// Destroy releases everything the chain owns. The device must be idle.
func (sc *SwapChain) Destroy() {
	logical := sc.device.LogicalDevice
	allocator := sc.context.Allocator

	for _, s := range sc.imageAvailableSemaphores {
		vk.DestroySemaphore(logical, s, allocator)
	}
	sc.imageAvailableSemaphores = nil
	for _, s := range sc.renderFinishedSemaphores {
		vk.DestroySemaphore(logical, s, allocator)
	}
	sc.renderFinishedSemaphores = nil
	for _, f := range sc.inFlightFences {
		f.Destroy()
	}
	sc.inFlightFences = nil
	sc.tracker = nil

	for _, fb := range sc.Framebuffers {
		fb.Destroy()
	}
	sc.Framebuffers = nil
	for _, depth := range sc.DepthAttachments {
		depth.Destroy()
	}
	sc.DepthAttachments = nil
	if sc.Renderpass != nil {
		sc.Renderpass.Destroy()
		sc.Renderpass = nil
	}
	for _, view := range sc.Views {
		vk.DestroyImageView(logical, view, allocator)
	}
	sc.Views = nil
	sc.Images = nil

	if sc.Handle != nil {
		vk.DestroySwapchain(logical, sc.Handle, allocator)
		sc.Handle = nil
	}
}
