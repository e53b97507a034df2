package systems

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/core"
	"github.com/spaghettifunk/vulkanmc/engine/renderer/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/scene"
)

// PushConstantData mirrors the shader's push constant block:
//
//	mat2 transform; vec3 color; vec2 offset;
//
// A mat2 is two 8-byte columns, the vec3 starts at 16 and the vec2 is aligned
// to 32 after the vec3's padding.
type PushConstantData struct {
	Transform [4]float32
	Color     [3]float32
	_         float32
	Offset    [2]float32
}

const pushConstantSize = uint32(unsafe.Sizeof(PushConstantData{}))

// RenderSystem records the draw calls for every entity into a command buffer
// whose render pass has already begun.
type RenderSystem struct {
	device   *vulkan.Device
	pipeline *vulkan.Pipeline
	models   map[string]*vulkan.Model
}

// ShaderCode is a SPIR-V module per pipeline stage.
type ShaderCode struct {
	Vertex   []uint32
	Fragment []uint32
}

// NewRenderSystem builds the pipeline against renderpass. Any compatible render
// pass may be used for drawing later, so the system survives swapchain
// recreation as long as formats don't change.
func NewRenderSystem(device *vulkan.Device, renderpass *vulkan.Renderpass, shaders ShaderCode) (*RenderSystem, error) {
	rs := &RenderSystem{
		device: device,
		models: make(map[string]*vulkan.Model),
	}
	if err := rs.createPipeline(renderpass, shaders); err != nil {
		return nil, err
	}
	return rs, nil
}

func (rs *RenderSystem) createPipeline(renderpass *vulkan.Renderpass, shaders ShaderCode) error {
	vert, err := vulkan.NewShaderModule(rs.device, shaders.Vertex, vk.ShaderStageVertexBit)
	if err != nil {
		return core.ConfigurationError(err, "failed to create vertex shader module")
	}
	defer vert.Destroy()
	frag, err := vulkan.NewShaderModule(rs.device, shaders.Fragment, vk.ShaderStageFragmentBit)
	if err != nil {
		return core.ConfigurationError(err, "failed to create fragment shader module")
	}
	defer frag.Destroy()

	attributes := []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   scene.VertexPositionOffset,
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   scene.VertexColorOffset,
		},
	}
	pipeline, err := vulkan.NewGraphicsPipeline(rs.device, vulkan.PipelineConfig{
		Renderpass:       renderpass,
		Stride:           scene.VertexStride,
		Attributes:       attributes,
		Stages:           []vk.PipelineShaderStageCreateInfo{vert.StageCreateInfo(), frag.StageCreateInfo()},
		PushConstantSize: pushConstantSize,
		CullMode:         vk.CullModeNone,
		DepthTest:        true,
	})
	if err != nil {
		return core.ConfigurationError(err, "failed to create graphics pipeline")
	}
	rs.pipeline = pipeline
	return nil
}

// model returns the uploaded vertex buffer for the entity's mesh, creating it on
// first use.
func (rs *RenderSystem) model(e *scene.Entity) (*vulkan.Model, error) {
	key := scene.MeshKey(e.Archetype, e.Shape)
	if m, ok := rs.models[key]; ok {
		return m, nil
	}
	vertices, err := scene.BuildMesh(e.Archetype, e.Shape)
	if err != nil {
		return nil, err
	}
	m, err := vulkan.NewModel(rs.device, scene.VertexBytes(vertices), uint32(len(vertices)))
	if err != nil {
		return nil, errors.Wrapf(err, "uploading mesh %s", key)
	}
	rs.models[key] = m
	core.LogDebug("uploaded mesh %s (%d vertices)", key, len(vertices))
	return m, nil
}

// Preload uploads every mesh used by the world so the first frame doesn't
// stall on transfers.
func (rs *RenderSystem) Preload(world *scene.World) error {
	var err error
	world.Each(func(e *scene.Entity) {
		if err == nil {
			_, err = rs.model(e)
		}
	})
	return err
}

// RenderEntities binds the pipeline and draws each entity with its transform
// and color as push constants.
func (rs *RenderSystem) RenderEntities(cb *vulkan.CommandBuffer, world *scene.World, camera *Camera2D) error {
	rs.pipeline.Bind(cb)

	var bound *vulkan.Model
	for _, archetype := range scene.Archetypes {
		for _, e := range world.View(archetype) {
			m, err := rs.model(e)
			if err != nil {
				return err
			}
			push := buildPushConstants(e, camera)
			rs.pipeline.PushConstants(cb, unsafe.Pointer(&push), pushConstantSize)
			if m != bound {
				m.Bind(cb)
				bound = m
			}
			m.Draw(cb)
		}
	}
	return nil
}

func buildPushConstants(e *scene.Entity, camera *Camera2D) PushConstantData {
	transform, offset := camera.Apply(e.Transform.Mat2(), e.Transform.Translation)
	return PushConstantData{
		Transform: transform,
		Color:     e.Color,
		Offset:    offset,
	}
}

// Destroy releases the models and the pipeline. The device must be idle.
func (rs *RenderSystem) Destroy() {
	for key, m := range rs.models {
		m.Destroy()
		delete(rs.models, key)
	}
	if rs.pipeline != nil {
		rs.pipeline.Destroy()
		rs.pipeline = nil
	}
}
