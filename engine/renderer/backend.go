package renderer

// MaxFramesInFlight is the number of frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

// Status is the outcome of an acquire or present call that did not hard-fail.
type Status int

const (
	StatusSuccess Status = iota
	// The chain still works but no longer matches the surface exactly.
	StatusSuboptimal
	// The chain can no longer be used and must be recreated.
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out-of-date"
	default:
		return "unknown"
	}
}

type Extent struct {
	Width  uint32
	Height uint32
}

func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// AspectRatio is width over height; zero for a degenerate extent.
func (e Extent) AspectRatio() float32 {
	if e.IsZero() {
		return 0
	}
	return float32(e.Width) / float32(e.Height)
}

type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

type Rect2D struct {
	X, Y   int32
	Extent Extent
}

// ClearValues are applied to the color and depth attachments when a swapchain
// render pass begins.
type ClearValues struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

// CommandBuffer is the subset of recording operations the renderer drives itself.
// Draw calls are issued by render systems against the concrete type.
type CommandBuffer interface {
	Begin() error
	End() error
	EndRenderPass()
	SetViewport(viewport Viewport)
	SetScissor(scissor Rect2D)
}

// Recordable constrains the renderer's command buffer type parameter; buffers are
// compared by identity to catch mismatched begin/end calls.
type Recordable interface {
	comparable
	CommandBuffer
}

// Window is the windowing collaborator.
type Window interface {
	Extent() Extent
	ShouldClose() bool
	WasResized() bool
	ResetResized()
	// WaitEvents blocks until the platform delivers at least one event.
	WaitEvents()
}

// Device is the part of the logical device the renderer needs: an idle wait and
// primary command buffers from the graphics command pool.
type Device[C Recordable] interface {
	WaitIdle() error
	AllocateCommandBuffers(count int) ([]C, error)
	FreeCommandBuffers(buffers []C)
}

// SwapChain owns the presentable images, their framebuffers, the render pass and the
// per-frame-slot synchronization primitives.
type SwapChain[C Recordable] interface {
	// AcquireNextImage waits on the current frame slot and returns the next image.
	// Hard failures are returned as errors.
	AcquireNextImage() (uint32, Status, error)
	// SubmitCommandBuffers submits the recorded buffers for imageIndex and presents it.
	SubmitCommandBuffers(buffers []C, imageIndex uint32) (Status, error)
	// BeginRenderPass begins this chain's render pass on the framebuffer of imageIndex.
	BeginRenderPass(buffer C, imageIndex uint32, clear ClearValues)
	// CompareSwapFormats reports whether color and depth formats match other's.
	CompareSwapFormats(other SwapChain[C]) bool
	Extent() Extent
	ImageCount() int
	Destroy()
}

// SwapChainFactory builds a chain for extent. previous is nil on first creation;
// otherwise it is the live chain the new one replaces.
type SwapChainFactory[C Recordable] func(extent Extent, previous SwapChain[C]) (SwapChain[C], error)
