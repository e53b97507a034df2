package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

// maxPushConstantSize is the minimum every implementation guarantees.
const maxPushConstantSize = 128

// Pipeline holds a graphics pipeline and its layout.
type Pipeline struct {
	device *Device
	Handle vk.Pipeline
	// The pipeline layout.
	PipelineLayout vk.PipelineLayout

	pushConstantStages vk.ShaderStageFlags
}

type PipelineConfig struct {
	// Renderpass the pipeline is compatible with.
	Renderpass *Renderpass
	// Size of one vertex in bytes.
	Stride     uint32
	Attributes []vk.VertexInputAttributeDescription
	Stages     []vk.PipelineShaderStageCreateInfo
	// Push constant block size in bytes, visible to vertex and fragment stages.
	PushConstantSize uint32
	CullMode         vk.CullModeFlagBits
	IsWireframe      bool
	DepthTest        bool
}

// NewGraphicsPipeline builds a triangle-list pipeline. Viewport and scissor are
// dynamic so the pipeline survives swapchain recreation.
func NewGraphicsPipeline(device *Device, config PipelineConfig) (*Pipeline, error) {
	if config.Renderpass == nil || config.Renderpass.Handle == nil {
		return nil, errors.AssertionFailedf("pipeline needs a render pass")
	}
	if config.PushConstantSize > maxPushConstantSize || config.PushConstantSize%4 != 0 {
		return nil, core.ConfigurationError(nil, "push constant size %d must be a multiple of 4 no larger than %d", config.PushConstantSize, maxPushConstantSize)
	}
	p := &Pipeline{
		device:             device,
		pushConstantStages: vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}

	// Counts only; the values are set per frame.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(config.CullMode),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
	}
	if config.IsWireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthWriteEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    config.Stride,
		InputRate: vk.VertexInputRateVertex,
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	if config.PushConstantSize > 0 {
		pipelineLayoutCreateInfo.PushConstantRangeCount = 1
		pipelineLayoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: p.pushConstantStages,
			Offset:     0,
			Size:       config.PushConstantSize,
		}}
	}

	var layout vk.PipelineLayout
	if err := ResultError("vkCreatePipelineLayout", vk.CreatePipelineLayout(device.LogicalDevice, &pipelineLayoutCreateInfo, device.context.Allocator, &layout)); err != nil {
		return nil, core.ConfigurationError(err, "failed to create pipeline layout")
	}
	p.PipelineLayout = layout

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              p.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := ResultError("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
		device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		device.context.Allocator,
		pipelines)); err != nil {
		p.Destroy()
		return nil, core.ConfigurationError(err, "failed to create graphics pipeline")
	}
	p.Handle = pipelines[0]

	core.LogDebug("Graphics pipeline created!")
	return p, nil
}

func (p *Pipeline) Bind(cb *CommandBuffer) {
	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointGraphics, p.Handle)
}

// PushConstants uploads size bytes at data into the push constant block.
func (p *Pipeline) PushConstants(cb *CommandBuffer, data unsafe.Pointer, size uint32) {
	vk.CmdPushConstants(cb.Handle, p.PipelineLayout, p.pushConstantStages, 0, size, data)
}

func (p *Pipeline) Destroy() {
	if p.Handle != nil {
		vk.DestroyPipeline(p.device.LogicalDevice, p.Handle, p.device.context.Allocator)
		p.Handle = nil
	}
	if p.PipelineLayout != nil {
		vk.DestroyPipelineLayout(p.device.LogicalDevice, p.PipelineLayout, p.device.context.Allocator)
		p.PipelineLayout = nil
	}
}
