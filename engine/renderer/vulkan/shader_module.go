package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

// ShaderModule is one compiled SPIR-V stage.
type ShaderModule struct {
	device *Device
	Handle vk.ShaderModule
	Stage  vk.ShaderStageFlagBits
}

// NewShaderModule wraps SPIR-V code, given as 32-bit words, for stage.
func NewShaderModule(device *Device, code []uint32, stage vk.ShaderStageFlagBits) (*ShaderModule, error) {
	if len(code) == 0 {
		return nil, errors.New("empty shader code")
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}
	var handle vk.ShaderModule
	if err := ResultError("vkCreateShaderModule", vk.CreateShaderModule(device.LogicalDevice, &createInfo, device.context.Allocator, &handle)); err != nil {
		return nil, core.ConfigurationError(err, "failed to create shader module")
	}
	return &ShaderModule{
		device: device,
		Handle: handle,
		Stage:  stage,
	}, nil
}

// StageCreateInfo describes the module as a pipeline stage with entry point main.
func (s *ShaderModule) StageCreateInfo() vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  s.Stage,
		Module: s.Handle,
		PName:  VulkanSafeString("main"),
	}
}

func (s *ShaderModule) Destroy() {
	if s.Handle != nil {
		vk.DestroyShaderModule(s.device.LogicalDevice, s.Handle, s.device.context.Allocator)
		s.Handle = nil
	}
}
