package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

type Framebuffer struct {
	device      *Device
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *Renderpass
}

func NewFramebuffer(device *Device, renderpass *Renderpass, width, height uint32, attachments []vk.ImageView) (*Framebuffer, error) {
	fb := &Framebuffer{
		device:      device,
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(fb.Attachments)),
		PAttachments:    fb.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var handle vk.Framebuffer
	if err := ResultError("vkCreateFramebuffer", vk.CreateFramebuffer(device.LogicalDevice, &createInfo, device.context.Allocator, &handle)); err != nil {
		return nil, core.ConfigurationError(err, "failed to create framebuffer")
	}
	fb.Handle = handle
	return fb, nil
}

func (fb *Framebuffer) Destroy() {
	if fb.Handle != nil {
		vk.DestroyFramebuffer(fb.device.LogicalDevice, fb.Handle, fb.device.context.Allocator)
		fb.Handle = nil
	}
	fb.Attachments = nil
	fb.Renderpass = nil
}
