package engine

import (
	"context"
	"path/filepath"

	"github.com/spaghettifunk/vulkanmc/engine/assets"
	"github.com/spaghettifunk/vulkanmc/engine/config"
	"github.com/spaghettifunk/vulkanmc/engine/core"
	"github.com/spaghettifunk/vulkanmc/engine/resources"
	"github.com/spaghettifunk/vulkanmc/engine/scene"
)

// Key bindings:
//
//	Escape, Q  close the window
//	Space      pause or resume physics
//	R          respawn the scene from the configured seed
func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	if code != core.EVENT_CODE_KEY_PRESSED {
		return false
	}
	switch core.KeyCode(data.Data.I32[0]) {
	case core.KEY_ESCAPE, core.KEY_Q:
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		// Block anything else from processing this.
		return true
	case core.KEY_SPACE:
		e.physics.TogglePause()
		core.LogInfo("physics paused: %t", e.physics.Paused())
		return true
	case core.KEY_R:
		e.respawn()
		return true
	}
	return false
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.platform.RequestClose()
		return true
	}
	return false
}

// onResized tracks minimization. Swapchain recreation itself is driven by the
// renderer through the window's resized flag.
func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	width := data.Data.U32[0]
	height := data.Data.U32[1]
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		if !e.isSuspended {
			core.LogInfo("Window minimized, suspending application.")
			e.isSuspended = true
		}
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	return false
}

func (e *Engine) respawn() {
	world := scene.NewWorld()
	if err := scene.Populate(world, e.config.Scene); err != nil {
		core.LogError("respawn failed: %s", err)
		return
	}
	e.world = world
	core.LogInfo("scene respawned")
}

// onAssetChanged applies edits made while running: the physics table of the
// config file and the shader binaries.
func (e *Engine) onAssetChanged(ctx context.Context, change assets.Change) {
	if change.Op != assets.ChangeWritten {
		core.LogWarn("asset %s was removed", change.Path)
		return
	}
	var ctxEvent core.EventContext
	e.events.Fire(core.EVENT_CODE_ASSET_CHANGED, change.Path, ctxEvent)

	switch change.Type {
	case resources.ResourceTypeConfig:
		if !samePath(change.Path, e.configPath) {
			return
		}
		physics, err := config.LoadPhysics(e.configPath, e.physics.Config())
		if err != nil {
			core.LogWarn("ignoring config change: %s", err)
			return
		}
		e.physics.SetConfig(physics)
		e.config.Physics = physics
		core.LogInfo("physics config reloaded: %+v", physics)

	case resources.ResourceTypeShader:
		for _, p := range e.shaderPaths() {
			if samePath(change.Path, p) {
				if err := e.createRenderSystem(ctx); err != nil {
					core.LogWarn("keeping previous pipeline, shader reload failed: %s", err)
					return
				}
				core.LogInfo("shaders reloaded after change to %s", change.Path)
				return
			}
		}
	}
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
