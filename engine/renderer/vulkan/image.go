package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

// Image is a device image with its own memory and an optional view.
type Image struct {
	device *Device
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
}

func NewImage(
	device *Device,
	imageType vk.ImageType,
	width, height uint32,
	format vk.Format,
	tiling vk.ImageTiling,
	usage vk.ImageUsageFlags,
	memoryFlags vk.MemoryPropertyFlags,
	createView bool,
	viewAspectFlags vk.ImageAspectFlags,
) (*Image, error) {
	img := &Image{
		device: device,
		Width:  width,
		Height: height,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: imageType,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	var handle vk.Image
	if err := ResultError("vkCreateImage", vk.CreateImage(device.LogicalDevice, &imageCreateInfo, device.context.Allocator, &handle)); err != nil {
		return nil, core.ConfigurationError(err, "failed to create image")
	}
	img.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device.LogicalDevice, img.Handle, &requirements)
	requirements.Deref()

	memoryType, err := device.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		img.Destroy()
		return nil, err
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if err := ResultError("vkAllocateMemory", vk.AllocateMemory(device.LogicalDevice, &allocateInfo, device.context.Allocator, &memory)); err != nil {
		img.Destroy()
		return nil, core.ConfigurationError(err, "failed to allocate image memory")
	}
	img.Memory = memory

	if err := ResultError("vkBindImageMemory", vk.BindImageMemory(device.LogicalDevice, img.Handle, img.Memory, 0)); err != nil {
		img.Destroy()
		return nil, core.ConfigurationError(err, "failed to bind image memory")
	}

	if createView {
		if err := img.createView(format, viewAspectFlags); err != nil {
			img.Destroy()
			return nil, err
		}
	}
	return img, nil
}

func (img *Image) createView(format vk.Format, aspectFlags vk.ImageAspectFlags) error {
	view, err := createImageView(img.device, img.Handle, format, aspectFlags)
	if err != nil {
		return err
	}
	img.View = view
	return nil
}

func createImageView(device *Device, image vk.Image, format vk.Format, aspectFlags vk.ImageAspectFlags) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := ResultError("vkCreateImageView", vk.CreateImageView(device.LogicalDevice, &viewCreateInfo, device.context.Allocator, &view)); err != nil {
		return nil, core.ConfigurationError(err, "failed to create image view")
	}
	return view, nil
}

func (img *Image) Destroy() {
	if img.View != nil {
		vk.DestroyImageView(img.device.LogicalDevice, img.View, img.device.context.Allocator)
		img.View = nil
	}
	if img.Memory != nil {
		vk.FreeMemory(img.device.LogicalDevice, img.Memory, img.device.context.Allocator)
		img.Memory = nil
	}
	if img.Handle != nil {
		vk.DestroyImage(img.device.LogicalDevice, img.Handle, img.device.context.Allocator)
		img.Handle = nil
	}
}
