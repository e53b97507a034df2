package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

// Clear values for every swapchain render pass: near-black, farthest depth.
var defaultClearValues = ClearValues{
	Color:   [4]float32{0.01, 0.01, 0.01, 1.0},
	Depth:   1.0,
	Stencil: 0,
}

// Renderer sequences acquire, record, submit and present, and owns the swapchain
// recreation policy. It is driven from a single goroutine.
type Renderer[C Recordable] struct {
	window       Window
	device       Device[C]
	newSwapChain SwapChainFactory[C]

	swapChain SwapChain[C]

	commandBuffers []C
	// Image count of the chain the command buffers were allocated against.
	allocatedImageCount int

	currentImageIndex uint32
	currentFrameIndex int
	isFrameStarted    bool

	recreations int
}

// New builds the first swapchain and allocates one command buffer per frame slot.
func New[C Recordable](window Window, device Device[C], factory SwapChainFactory[C]) (*Renderer[C], error) {
	r := &Renderer[C]{
		window:       window,
		device:       device,
		newSwapChain: factory,
	}
	if err := r.recreateSwapChain(); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.allocateCommandBuffers(); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

// Destroy frees the command buffers and the swapchain. The device must be idle.
func (r *Renderer[C]) Destroy() {
	r.freeCommandBuffers()
	if r.swapChain != nil {
		r.swapChain.Destroy()
		r.swapChain = nil
	}
}

func (r *Renderer[C]) IsFrameInProgress() bool {
	return r.isFrameStarted
}

func (r *Renderer[C]) FrameIndex() int {
	return r.currentFrameIndex
}

func (r *Renderer[C]) SwapChain() SwapChain[C] {
	return r.swapChain
}

// Recreations counts swapchain rebuilds after the first one.
func (r *Renderer[C]) Recreations() int {
	return r.recreations
}

func (r *Renderer[C]) AspectRatio() float32 {
	return r.swapChain.Extent().AspectRatio()
}

// CurrentCommandBuffer returns the buffer being recorded for the frame in progress.
func (r *Renderer[C]) CurrentCommandBuffer() (C, error) {
	if !r.isFrameStarted {
		var zero C
		return zero, core.InvariantViolation("cannot get command buffer when frame not in progress")
	}
	return r.commandBuffers[r.currentFrameIndex], nil
}

// BeginFrame acquires the next image and begins recording. ok is false when the
// swapchain was stale and has been recreated; the caller must skip this tick.
func (r *Renderer[C]) BeginFrame() (buffer C, ok bool, err error) {
	if r.isFrameStarted {
		return buffer, false, core.InvariantViolation("can't call BeginFrame while already in progress")
	}

	imageIndex, status, err := r.swapChain.AcquireNextImage()
	if err != nil {
		return buffer, false, errors.Wrap(err, "failed to acquire swap chain image")
	}
	if status == StatusOutOfDate {
		core.LogDebug("swapchain stale on acquire, recreating")
		if err := r.recreateSwapChain(); err != nil {
			return buffer, false, err
		}
		return buffer, false, nil
	}
	r.currentImageIndex = imageIndex
	r.isFrameStarted = true

	buffer = r.commandBuffers[r.currentFrameIndex]
	if err := buffer.Begin(); err != nil {
		return buffer, false, errors.Wrap(err, "failed to begin recording command buffer")
	}
	return buffer, true, nil
}

// EndFrame finishes recording, submits and presents. The swapchain is recreated
// after presenting when it reported stale or suboptimal, or the window was resized.
func (r *Renderer[C]) EndFrame() error {
	if !r.isFrameStarted {
		return core.InvariantViolation("can't call EndFrame while frame is not in progress")
	}
	buffer := r.commandBuffers[r.currentFrameIndex]
	if err := buffer.End(); err != nil {
		return errors.Wrap(err, "failed to record command buffer")
	}

	status, err := r.swapChain.SubmitCommandBuffers([]C{buffer}, r.currentImageIndex)
	if err != nil {
		return errors.Wrap(err, "failed to present swap chain image")
	}
	if status == StatusOutOfDate || status == StatusSuboptimal || r.window.WasResized() {
		core.LogDebug("recreating swapchain after present (status %s)", status)
		r.window.ResetResized()
		if err := r.recreateSwapChain(); err != nil {
			return err
		}
	}

	r.isFrameStarted = false
	r.currentFrameIndex = (r.currentFrameIndex + 1) % MaxFramesInFlight
	return nil
}

// BeginSwapChainRenderPass begins the render pass on the acquired image and sets
// viewport and scissor to the full extent.
func (r *Renderer[C]) BeginSwapChainRenderPass(buffer C) error {
	if !r.isFrameStarted {
		return core.InvariantViolation("can't call BeginSwapChainRenderPass if frame is not in progress")
	}
	if buffer != r.commandBuffers[r.currentFrameIndex] {
		return core.InvariantViolation("can't begin render pass on command buffer from a different frame")
	}

	extent := r.swapChain.Extent()
	r.swapChain.BeginRenderPass(buffer, r.currentImageIndex, defaultClearValues)
	buffer.SetViewport(Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	buffer.SetScissor(Rect2D{Extent: extent})
	return nil
}

func (r *Renderer[C]) EndSwapChainRenderPass(buffer C) error {
	if !r.isFrameStarted {
		return core.InvariantViolation("can't call EndSwapChainRenderPass if frame is not in progress")
	}
	if buffer != r.commandBuffers[r.currentFrameIndex] {
		return core.InvariantViolation("can't end render pass on command buffer from a different frame")
	}
	buffer.EndRenderPass()
	return nil
}

// recreateSwapChain blocks while the window has no area, waits for the device to
// go idle, then replaces the chain. The new chain is built against the old one,
// which is destroyed afterwards.
func (r *Renderer[C]) recreateSwapChain() error {
	extent := r.window.Extent()
	for extent.IsZero() {
		r.window.WaitEvents()
		extent = r.window.Extent()
	}

	if err := r.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "failed to wait for device idle before swapchain recreation")
	}

	old := r.swapChain
	next, err := r.newSwapChain(extent, old)
	if err != nil {
		return core.ConfigurationError(err, "failed to create swap chain")
	}
	r.swapChain = next
	if old == nil {
		core.LogInfo("swapchain created: %dx%d, %d images", extent.Width, extent.Height, next.ImageCount())
		return nil
	}

	r.recreations++
	sameFormats := old.CompareSwapFormats(next)
	old.Destroy()
	if !sameFormats {
		return core.ConfigurationError(nil, "swap chain image or depth format has changed")
	}
	core.LogInfo("swapchain recreated: %dx%d, %d images", extent.Width, extent.Height, next.ImageCount())

	if next.ImageCount() != r.allocatedImageCount {
		r.freeCommandBuffers()
		return r.allocateCommandBuffers()
	}
	return nil
}
