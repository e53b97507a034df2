package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// SurfaceProvider is the windowing side of instance and surface creation.
type SurfaceProvider interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

type ContextConfig struct {
	AppName string
	// Enable the Khronos validation layer and route its reports into the log.
	Validation bool
	// Prefer mailbox presentation over FIFO when the surface supports it.
	PreferMailbox bool
}

// Context owns the instance, the debug callback, the surface and the device. It
// lives for the whole process and is destroyed last.
type Context struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface
	Device    *Device

	PreferMailbox bool

	validation     bool
	debugMessenger vk.DebugReportCallback
}

func NewContext(surfaces SurfaceProvider, cfg ContextConfig) (*Context, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, core.ConfigurationError(nil, "GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return nil, core.ConfigurationError(err, "failed to initialize vulkan loader")
	}

	c := &Context{
		Allocator:     nil,
		PreferMailbox: cfg.PreferMailbox,
		validation:    cfg.Validation,
	}
	if err := c.createInstance(surfaces, cfg.AppName); err != nil {
		return nil, err
	}

	if c.validation {
		if err := c.createDebugMessenger(); err != nil {
			c.Destroy()
			return nil, err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := surfaces.CreateSurface(c.Instance)
	if err != nil {
		c.Destroy()
		return nil, core.ConfigurationError(err, "vulkan surface creation failed")
	}
	c.Surface = surface
	core.LogDebug("Vulkan surface created.")

	device, err := NewDevice(c)
	if err != nil {
		c.Destroy()
		return nil, err
	}
	c.Device = device

	core.LogInfo("Vulkan context initialized successfully.")
	return c, nil
}

func (c *Context) createInstance(surfaces SurfaceProvider, appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("VulkanMC"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := appendUnique(nil, "VK_KHR_surface")
	for _, name := range surfaces.RequiredInstanceExtensions() {
		extensions = appendUnique(extensions, name)
	}
	if runtime.GOOS == "darwin" {
		extensions = appendUnique(extensions, "VK_KHR_portability_enumeration")
		extensions = appendUnique(extensions, "VK_KHR_get_physical_device_properties2")
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if c.validation {
		ok, err := validationLayerAvailable()
		if err != nil {
			return err
		}
		if ok {
			layers = []string{validationLayerName}
			extensions = appendUnique(extensions, vk.ExtDebugReportExtensionName)
			core.LogInfo("Validation layers enabled.")
		} else {
			core.LogWarn("Validation requested but %s is not installed; continuing without it.", validationLayerName)
			c.validation = false
		}
	}

	for _, name := range extensions {
		core.LogDebug("Required extension: %s", name)
	}

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := ResultError("vkCreateInstance", vk.CreateInstance(&createInfo, c.Allocator, &instance)); err != nil {
		return core.ConfigurationError(err, "failed in creating the Vulkan instance")
	}
	c.Instance = instance
	if err := vk.InitInstance(c.Instance); err != nil {
		return core.ConfigurationError(err, "failed to load instance functions")
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func validationLayerAvailable() (bool, error) {
	var count uint32
	if err := ResultError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return false, err
	}
	available := make([]vk.LayerProperties, count)
	if err := ResultError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, available)); err != nil {
		return false, err
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].LayerName[:]) == validationLayerName {
			return true, nil
		}
	}
	return false, nil
}

func (c *Context) createDebugMessenger() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(c.Instance, &debugCreateInfo, c.Allocator, &dbg)); err != nil {
		return errors.Wrap(err, "vkCreateDebugReportCallback")
	}
	c.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

// Destroy tears down in reverse creation order. Everything built on the device must
// already be gone.
func (c *Context) Destroy() {
	if c.Device != nil {
		core.LogDebug("Destroying Vulkan device...")
		c.Device.Destroy()
		c.Device = nil
	}

	if c.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(c.Instance, c.Surface, c.Allocator)
		c.Surface = vk.NullSurface
	}

	if c.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(c.Instance, c.debugMessenger, c.Allocator)
		c.debugMessenger = vk.NullDebugReportCallback
	}

	if c.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(c.Instance, c.Allocator)
		c.Instance = nil
	}
}

func appendUnique(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
