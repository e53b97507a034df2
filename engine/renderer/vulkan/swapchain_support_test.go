package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
)

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	tests := []struct {
		name    string
		formats []vk.SurfaceFormat
		want    vk.SurfaceFormat
	}{
		{"preferred present", []vk.SurfaceFormat{other, preferred}, preferred},
		{"fallback to first", []vk.SurfaceFormat{other}, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chooseSurfaceFormat(tt.formats)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := chooseSurfaceFormat(nil); err == nil {
		t.Error("expected an error without formats")
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		name          string
		modes         []vk.PresentMode
		preferMailbox bool
		want          vk.PresentMode
	}{
		{"mailbox available", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}, true, vk.PresentModeMailbox},
		{"mailbox missing", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, true, vk.PresentModeFifo},
		{"mailbox not wanted", []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeFifo}, false, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := choosePresentMode(tt.modes, tt.preferMailbox); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChooseExtent(t *testing.T) {
	fixed := vk.SurfaceCapabilities{
		CurrentExtent: vk.Extent2D{Width: 640, Height: 480},
	}
	if got := chooseExtent(fixed, 800, 800); got != (vk.Extent2D{Width: 640, Height: 480}) {
		t.Errorf("fixed extent: got %+v", got)
	}

	free := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: vk.Extent2D{Width: 1000, Height: 700},
	}
	tests := []struct {
		w, h uint32
		want vk.Extent2D
	}{
		{800, 600, vk.Extent2D{Width: 800, Height: 600}},
		{50, 2000, vk.Extent2D{Width: 100, Height: 700}},
		{4000, 10, vk.Extent2D{Width: 1000, Height: 100}},
	}
	for _, tt := range tests {
		if got := chooseExtent(free, tt.w, tt.h); got != tt.want {
			t.Errorf("chooseExtent(%d, %d) = %+v, want %+v", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max uint32
		want     uint32
	}{
		{2, 0, 3},
		{2, 8, 3},
		{3, 3, 3},
		{1, 2, 2},
	}
	for _, tt := range tests {
		caps := vk.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
		if got := chooseImageCount(caps); got != tt.want {
			t.Errorf("min %d max %d: got %d, want %d", tt.min, tt.max, got, tt.want)
		}
	}
}

func TestResultError(t *testing.T) {
	if err := ResultError("vkQueuePresent", vk.Suboptimal); err != nil {
		t.Errorf("suboptimal is not an error: %v", err)
	}
	err := ResultError("vkQueuePresent", vk.ErrorOutOfDate)
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); got != "vkQueuePresent failed with VK_ERROR_OUT_OF_DATE_KHR The surface changed and the swapchain must be recreated" {
		t.Errorf("unexpected message %q", got)
	}
	if ResultString(vk.Result(-12345), true) != "VkResult(-12345)" {
		t.Errorf("unknown results should print their code")
	}
}
