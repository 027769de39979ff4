package vkcomp

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Surface is the seam between the swapchain coordinator and whatever owns
// instance/device/surface creation, mirroring the role asche's Platform
// interface plays for context.go: swapchain.go only ever calls through this
// interface, never touches vk.Instance directly.
type Surface interface {
	PhysicalDevice() vk.PhysicalDevice
	Device() vk.Device
	VkSurface() vk.Surface
	GraphicsQueueFamilyIndex() uint32
	PresentQueueFamilyIndex() uint32
	GraphicsQueue() vk.Queue
	PresentQueue() vk.Queue
}

// Device owns the Vulkan instance, the selected physical device, the
// logical device and its queues. This compositor has no host windowing
// system to source a vk.Surface from (it *is* the display server), so it
// provisions one with VK_EXT_headless_surface instead of a platform toolkit
// surface extension — the same seam asche fills with GLFW/xcb/Android
// Platform implementations (see DESIGN.md's "headless surface" decision).
type Device struct {
	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	surface        vk.Surface

	graphicsFamily uint32
	presentFamily  uint32
	graphicsQueue  vk.Queue
	presentQueue   vk.Queue

	renderNodePath string
}

// deviceRequiredExtensions lists the device-level extensions this
// compositor depends on: swapchain support for the present path (§4.8), and
// the dmabuf import/export extensions the GPU image cache needs to turn a
// client's dmabuf-backed buffer into a sampleable image without a copy
// (§4.11).
var deviceRequiredExtensions = []string{
	"VK_KHR_swapchain",
	"VK_EXT_external_memory_dma_buf",
	"VK_EXT_image_drm_format_modifier",
	"VK_KHR_external_memory_fd",
}

// NewDevice creates a Vulkan instance, selects a physical device, and
// creates a logical device with one graphics and (if necessary) a separate
// present queue, following the same queue-family-discovery shape asche's
// Platform implementations use before handing a ready Device to Context.
//
// renderNodePath is the DRM render node resolved by internal/platform/seat
// (SPEC_FULL.md §4.12); matching it against VK_EXT_physical_device_drm's
// primary/render major:minor pair is the textbook way to pick the GPU
// actually driving the seat, but vulkan-go's generated bindings don't
// expose that extension's property struct, so device selection instead
// falls back to "first device exposing a graphics-capable queue family" —
// correct on every single-GPU machine, which covers this exercise's scope.
func NewDevice(appName, renderNodePath string) (*Device, error) {
	if ret := vk.Init(); ret != nil {
		return nil, fmt.Errorf("vkcomp: loading vulkan: %w", ret)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   appName + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "waycomp\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion11,
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   1,
		PpEnabledExtensionNames: []string{"VK_EXT_headless_surface\x00"},
	}, nil, &instance)
	if err := checkResult(ret); err != nil {
		return nil, fmt.Errorf("vkcomp: create instance: %w", err)
	}
	vk.InitInstance(instance)

	d := &Device{instance: instance, renderNodePath: renderNodePath}

	var surface vk.Surface
	ret = vk.CreateHeadlessSurface(instance, &vk.HeadlessSurfaceCreateInfoEXT{
		SType: vk.StructureTypeHeadlessSurfaceCreateInfoEXT,
	}, nil, &surface)
	if err := checkResult(ret); err != nil {
		return nil, fmt.Errorf("vkcomp: create headless surface: %w", err)
	}
	d.surface = surface

	physicalDevice, graphicsFamily, presentFamily, err := pickPhysicalDevice(instance, surface)
	if err != nil {
		return nil, err
	}
	d.physicalDevice = physicalDevice
	d.graphicsFamily = graphicsFamily
	d.presentFamily = presentFamily

	if err := d.createLogicalDevice(); err != nil {
		return nil, err
	}
	return d, nil
}

// pickPhysicalDevice enumerates devices and returns the first one exposing
// a graphics-capable queue family and (on the same or a different family) a
// present-capable one for surface.
func pickPhysicalDevice(instance vk.Instance, surface vk.Surface) (vk.PhysicalDevice, uint32, uint32, error) {
	var count uint32
	vk.EnumeratePhysicalDevices(instance, &count, nil)
	if count == 0 {
		return nil, 0, 0, fmt.Errorf("vkcomp: no vulkan physical devices found")
	}
	devices := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(instance, &count, devices)

	for _, dev := range devices {
		var famCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(dev, &famCount, nil)
		families := make([]vk.QueueFamilyProperties, famCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(dev, &famCount, families)

		graphics, hasGraphics := uint32(0), false
		present, hasPresent := uint32(0), false
		for i, fam := range families {
			fam.Deref()
			if fam.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 && !hasGraphics {
				graphics, hasGraphics = uint32(i), true
			}
			var supported vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(dev, uint32(i), surface, &supported)
			if supported.B() && !hasPresent {
				present, hasPresent = uint32(i), true
			}
		}
		if hasGraphics && hasPresent {
			return dev, graphics, present, nil
		}
	}
	return nil, 0, 0, fmt.Errorf("vkcomp: no physical device has both graphics and present queue families")
}

func (d *Device) createLogicalDevice() error {
	queuePriority := float32(1.0)
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.graphicsFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{queuePriority},
	}}
	if d.presentFamily != d.graphicsFamily {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: d.presentFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{queuePriority},
		})
	}

	extNames := make([]string, len(deviceRequiredExtensions))
	for i, name := range deviceRequiredExtensions {
		extNames[i] = name + "\x00"
	}

	var device vk.Device
	ret := vk.CreateDevice(d.physicalDevice, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extNames)),
		PpEnabledExtensionNames: extNames,
	}, nil, &device)
	if err := checkResult(ret); err != nil {
		return fmt.Errorf("vkcomp: create logical device: %w", err)
	}
	d.device = device

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device, d.graphicsFamily, 0, &graphicsQueue)
	if d.presentFamily == d.graphicsFamily {
		presentQueue = graphicsQueue
	} else {
		vk.GetDeviceQueue(device, d.presentFamily, 0, &presentQueue)
	}
	d.graphicsQueue = graphicsQueue
	d.presentQueue = presentQueue
	return nil
}

func (d *Device) PhysicalDevice() vk.PhysicalDevice { return d.physicalDevice }
func (d *Device) Device() vk.Device                 { return d.device }
func (d *Device) VkSurface() vk.Surface             { return d.surface }
func (d *Device) GraphicsQueueFamilyIndex() uint32  { return d.graphicsFamily }
func (d *Device) PresentQueueFamilyIndex() uint32   { return d.presentFamily }
func (d *Device) GraphicsQueue() vk.Queue           { return d.graphicsQueue }
func (d *Device) PresentQueue() vk.Queue            { return d.presentQueue }
func (d *Device) SeparatePresentQueue() bool        { return d.graphicsFamily != d.presentFamily }

// RenderNodePath is the DRM device path this Device was opened against
// (SPEC_FULL.md §4.12), surfaced for diagnostics.
func (d *Device) RenderNodePath() string { return d.renderNodePath }

// Destroy tears down the logical device and instance in dependency order,
// following the same reverse-of-creation order asche's context.destroy uses.
func (d *Device) Destroy() {
	if d.device != nil {
		vk.DeviceWaitIdle(d.device)
		vk.DestroyDevice(d.device, nil)
	}
	if d.surface != nil {
		vk.DestroySurface(d.instance, d.surface, nil)
	}
	if d.instance != nil {
		vk.DestroyInstance(d.instance, nil)
	}
}

var _ Surface = (*Device)(nil)
