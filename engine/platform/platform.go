package platform

import (
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/config"
	"github.com/spaghettifunk/vulkanmc/engine/core"
	"github.com/spaghettifunk/vulkanmc/engine/renderer"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the window and turns its callbacks into input state and engine
// events. All methods must be called from the main goroutine.
type Platform struct {
	Window *glfw.Window

	events *core.EventBus
	input  *core.Input

	framebufferResized bool
	onRefresh          func()
}

func New(events *core.EventBus, input *core.Input) *Platform {
	return &Platform{
		events: events,
		input:  input,
	}
}

// Startup initializes glfw and opens a resizable window without a client API
// so a Vulkan surface can be created for it.
func (p *Platform) Startup(cfg config.WindowConfig) error {
	if err := glfw.Init(); err != nil {
		return core.ConfigurationError(err, "failed to initialize glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return core.ConfigurationError(nil, "glfw reports no vulkan loader")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return core.ConfigurationError(err, "failed to create window")
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetRefreshCallback(p.refreshCallback)
	p.Window.SetPos(cfg.X, cfg.Y)
	p.Window.Show()

	core.LogInfo("window %q opened at %dx%d", cfg.Title, cfg.Width, cfg.Height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// Extent is the framebuffer size in pixels, which may differ from the window
// size on high density displays. It is zero while minimized.
func (p *Platform) Extent() renderer.Extent {
	w, h := p.Window.GetFramebufferSize()
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return renderer.Extent{Width: uint32(w), Height: uint32(h)}
}

func (p *Platform) ShouldClose() bool {
	return p.Window.ShouldClose()
}

func (p *Platform) RequestClose() {
	p.Window.SetShouldClose(true)
}

func (p *Platform) WasResized() bool {
	return p.framebufferResized
}

func (p *Platform) ResetResized() {
	p.framebufferResized = false
}

func (p *Platform) WaitEvents() {
	glfw.WaitEvents()
}

func (p *Platform) PollEvents() {
	glfw.PollEvents()
}

// SetRefreshHandler registers fn to run when the OS asks for a redraw, which
// happens while a live resize blocks the event loop. Pass nil to clear it.
func (p *Platform) SetRefreshHandler(fn func()) {
	p.onRefresh = fn
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "glfwCreateWindowSurface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyUnknown || p.input == nil {
		return
	}
	switch action {
	case glfw.Press:
		p.input.ProcessKey(core.KeyCode(key), true)
	case glfw.Release:
		p.input.ProcessKey(core.KeyCode(key), false)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.framebufferResized = true
	if p.events == nil {
		return
	}
	var context core.EventContext
	context.Data.U32[0] = uint32(width)
	context.Data.U32[1] = uint32(height)
	p.events.Fire(core.EVENT_CODE_RESIZED, p, context)
}

func (p *Platform) refreshCallback(w *glfw.Window) {
	if p.onRefresh != nil {
		p.onRefresh()
	}
}
