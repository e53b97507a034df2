package engine

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vulkanmc/engine/assets"
	"github.com/spaghettifunk/vulkanmc/engine/config"
	"github.com/spaghettifunk/vulkanmc/engine/core"
	"github.com/spaghettifunk/vulkanmc/engine/platform"
	"github.com/spaghettifunk/vulkanmc/engine/renderer"
	"github.com/spaghettifunk/vulkanmc/engine/renderer/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/scene"
	"github.com/spaghettifunk/vulkanmc/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Physics never advances by more than this in one tick, so a stall (window
// drag, breakpoint) doesn't fling bodies across the screen.
const maxPhysicsStep = 0.1

type Engine struct {
	currentStage Stage
	config       *config.Config
	configPath   string

	events       *core.EventBus
	input        *core.Input
	platform     *platform.Platform
	assetManager *assets.AssetManager

	context      *vulkan.Context
	renderer     *renderer.Renderer[*vulkan.CommandBuffer]
	renderSystem *systems.RenderSystem
	physics      *systems.PhysicsSystem
	camera       *systems.Camera2D
	world        *scene.World

	clock    *core.Clock
	metrics  *core.Metrics
	lastTime float64

	isSuspended bool
	// Set while a frame is being drawn; the refresh callback may fire from
	// inside event processing and must not start a second frame.
	isDrawing  bool
	refreshErr error
}

// New builds the engine around cfg. configPath is watched for physics changes.
func New(cfg *config.Config, configPath string) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	events := core.NewEventBus()
	input := core.NewInput(events)

	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageBooting,
		config:       cfg,
		configPath:   configPath,
		events:       events,
		input:        input,
		platform:     platform.New(events, input),
		assetManager: am,
		physics:      systems.NewPhysicsSystem(cfg.Physics),
		camera:       systems.NewCamera2D(),
		world:        scene.NewWorld(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Initialize opens the window, brings up Vulkan, loads the shaders and
// populates the scene.
func (e *Engine) Initialize(ctx context.Context) error {
	e.currentStage = EngineStageInitializing

	if err := core.SetLogLevel(e.config.Log.Level); err != nil {
		return err
	}

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_KEY_RELEASED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.platform.Startup(e.config.Window); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(e.config.Shaders.Dir); err != nil {
		return core.ConfigurationError(err, "failed to index shaders")
	}
	if e.configPath != "" {
		if err := e.assetManager.WatchFile(e.configPath); err != nil {
			core.LogWarn("config hot reload disabled: %s", err)
		}
	}

	vctx, err := vulkan.NewContext(e.platform, vulkan.ContextConfig{
		AppName:       e.config.Window.Title,
		Validation:    e.config.Renderer.Validation,
		PreferMailbox: e.config.Renderer.PreferMailbox,
	})
	if err != nil {
		return err
	}
	e.context = vctx

	r, err := renderer.New[*vulkan.CommandBuffer](e.platform, vctx.Device, vulkan.NewSwapChainFactory(vctx))
	if err != nil {
		return err
	}
	e.renderer = r

	if err := e.createRenderSystem(ctx); err != nil {
		return err
	}

	if err := scene.Populate(e.world, e.config.Scene); err != nil {
		return core.ConfigurationError(err, "failed to populate scene")
	}
	if err := e.renderSystem.Preload(e.world); err != nil {
		return core.ConfigurationError(err, "failed to upload meshes")
	}

	e.platform.SetRefreshHandler(e.onRefresh)

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized: %d entities", e.world.Len())
	return nil
}

func (e *Engine) shaderPaths() []string {
	return []string{
		filepath.Join(e.config.Shaders.Dir, e.config.Shaders.Vertex),
		filepath.Join(e.config.Shaders.Dir, e.config.Shaders.Fragment),
	}
}

// createRenderSystem loads both shader stages and builds the pipeline against
// the current swapchain's render pass. An existing render system is replaced
// only once the new one is ready.
func (e *Engine) createRenderSystem(ctx context.Context) error {
	stages, err := e.assetManager.LoadShaderStages(ctx, e.shaderPaths()...)
	if err != nil {
		return core.ConfigurationError(err, "failed to load shaders")
	}
	sc, ok := e.renderer.SwapChain().(*vulkan.SwapChain)
	if !ok {
		return core.InvariantViolation("renderer swapchain has unexpected type %T", e.renderer.SwapChain())
	}
	rs, err := systems.NewRenderSystem(e.context.Device, sc.Renderpass, systems.ShaderCode{
		Vertex:   stages[0],
		Fragment: stages[1],
	})
	if err != nil {
		return err
	}
	if e.renderSystem != nil {
		if err := e.context.Device.WaitIdle(); err != nil {
			rs.Destroy()
			return err
		}
		e.renderSystem.Destroy()
	}
	e.renderSystem = rs
	return nil
}

// Run drives the tick loop until the window closes or ctx is cancelled.
// Cancellation is only observed between ticks.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return core.InvariantViolation("engine must be initialized before Run, stage is %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var runErr error
	for !e.platform.ShouldClose() {
		if err := ctx.Err(); err != nil {
			core.LogInfo("shutdown requested: %s", err)
			break
		}
		if e.isSuspended {
			// Nothing to draw while minimized; sleep until the platform wakes us.
			e.platform.WaitEvents()
		} else {
			e.platform.PollEvents()
		}
		if err := e.tick(ctx); err != nil {
			runErr = err
			break
		}
	}

	// The CPU waits until all GPU operations have completed.
	if err := e.context.Device.WaitIdle(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (e *Engine) tick(ctx context.Context) error {
	if e.refreshErr != nil {
		return errors.Wrap(e.refreshErr, "drawing during window refresh")
	}

	e.clock.Update()
	now := e.clock.Elapsed()
	delta := now - e.lastTime
	e.lastTime = now

	e.drainAssetChanges(ctx)

	step := delta
	if step > maxPhysicsStep {
		step = maxPhysicsStep
	}
	e.physics.Update(e.world, float32(step))

	if !e.isSuspended {
		if err := e.drawFrame(); err != nil {
			return err
		}
	}

	// Input state is copied last so the next tick sees this tick's keys as previous.
	e.input.Update()

	e.clock.Update()
	if e.metrics.Update(e.clock.Elapsed() - now) {
		fps, frameTime := e.metrics.Frame()
		core.LogDebug("%.0f fps, %.2f ms/frame, %d swapchain recreations", fps, frameTime, e.renderer.Recreations())
	}
	return nil
}

// drawFrame records and presents one frame. A stale swapchain is recreated by
// the renderer and the frame is skipped.
func (e *Engine) drawFrame() error {
	if e.isDrawing {
		return nil
	}
	e.isDrawing = true
	defer func() { e.isDrawing = false }()

	cb, ok, err := e.renderer.BeginFrame()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	e.camera.SetAspectRatio(e.renderer.AspectRatio())

	if err := e.renderer.BeginSwapChainRenderPass(cb); err != nil {
		return err
	}
	if err := e.renderSystem.RenderEntities(cb, e.world, e.camera); err != nil {
		return err
	}
	if err := e.renderer.EndSwapChainRenderPass(cb); err != nil {
		return err
	}
	return e.renderer.EndFrame()
}

// onRefresh keeps the window drawn while the OS blocks the event loop during a
// live resize. Errors are reported by the next tick.
func (e *Engine) onRefresh() {
	if e.currentStage != EngineStageRunning || e.refreshErr != nil {
		return
	}
	if err := e.drawFrame(); err != nil {
		e.refreshErr = err
	}
}

func (e *Engine) drainAssetChanges(ctx context.Context) {
	for {
		select {
		case change, ok := <-e.assetManager.Changes():
			if !ok {
				return
			}
			e.onAssetChanged(ctx, change)
		default:
			return
		}
	}
}

// Shutdown releases everything in reverse creation order. It is safe to call
// after a failed Initialize.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.platform.SetRefreshHandler(nil)

	if e.context != nil && e.context.Device != nil {
		if err := e.context.Device.WaitIdle(); err != nil {
			core.LogError("wait idle before shutdown: %s", err)
		}
	}
	if e.renderSystem != nil {
		e.renderSystem.Destroy()
		e.renderSystem = nil
	}
	if e.renderer != nil {
		e.renderer.Destroy()
		e.renderer = nil
	}
	if e.context != nil {
		e.context.Destroy()
		e.context = nil
	}
	if err := e.assetManager.Shutdown(); err != nil {
		core.LogError("asset manager shutdown: %s", err)
	}
	e.events.Shutdown()
	if e.platform.Window != nil {
		return e.platform.Shutdown()
	}
	return nil
}
