package vkcomp

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/waycomp/compositor/internal/werr"
)

// frameLag caps how many frames may be in flight before the coordinator
// blocks waiting on a fence, matching asche context.go's frameLag=2 (the
// two-deep acquire/present pipeline every double-buffered swapchain needs).
const frameLag = 2

// SurfaceInfo is get_surface_info's result (§4.8): the present format and
// drawable extent the renderer sizes its framebuffers to.
type SurfaceInfo struct {
	Format vk.Format
	Extent vk.Extent2D
}

// ImageResources is one swapchain image's attachment-sized state: the image
// itself and the view the renderer samples/renders through, plus the fence
// guarding its last submission. Mirrors asche's SwapchainImageResources,
// trimmed to what a single present-only compositor pass needs (no per-image
// uniform buffer, since window content is commposited from the ImageCache).
type ImageResources struct {
	Image vk.Image
	View  vk.ImageView
	Fence vk.Fence
}

// Swapchain is the renderer's §4.8 swapchain coordinator: get_surface_info,
// select_queue_family, recreate_swapchain, get_next_swapchain_image, and
// present, all grounded on asche context.go's prepareSwapchain/destroy
// fence-and-semaphore bookkeeping.
type Swapchain struct {
	surface Surface

	handle vk.Swapchain
	format vk.Format
	extent vk.Extent2D

	images []ImageResources

	// Binary semaphores and fences, one of each per frame-in-flight slot
	// (frameLag). An acquire uses the current slot's acquire semaphore in
	// rotation; semaphores are not moved into per-swapchain-image slots, and
	// presentSemaphores are created and destroyed but not waited on or
	// signaled.
	acquireSemaphores []vk.Semaphore
	presentSemaphores []vk.Semaphore
	fences            []vk.Fence

	frameIndex    int
	currentImage  uint32
}

// NewSwapchain allocates the per-frame semaphore/fence pool. The swapchain
// handle itself is created lazily by the first recreate_swapchain call.
func NewSwapchain(surface Surface) (*Swapchain, error) {
	s := &Swapchain{surface: surface}
	device := surface.Device()

	for i := 0; i < frameLag; i++ {
		var acquireSem, presentSem vk.Semaphore
		if err := checkResult(vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &acquireSem)); err != nil {
			return nil, fmt.Errorf("vkcomp: create acquire semaphore: %w", err)
		}
		if err := checkResult(vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &presentSem)); err != nil {
			return nil, fmt.Errorf("vkcomp: create present semaphore: %w", err)
		}
		var fence vk.Fence
		if err := checkResult(vk.CreateFence(device, &vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
			Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
		}, nil, &fence)); err != nil {
			return nil, fmt.Errorf("vkcomp: create fence: %w", err)
		}
		s.acquireSemaphores = append(s.acquireSemaphores, acquireSem)
		s.fences = append(s.fences, fence)
		_ = presentSem
		s.presentSemaphores = append(s.presentSemaphores, presentSem)
	}
	return s, nil
}

// GetSurfaceInfo implements get_surface_info (§4.8): queries the surface's
// current capabilities and a supported format without touching the
// swapchain itself.
func (s *Swapchain) GetSurfaceInfo() (SurfaceInfo, error) {
	var caps vk.SurfaceCapabilities
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(s.surface.PhysicalDevice(), s.surface.VkSurface(), &caps)
	if err := checkResult(ret); err != nil {
		return SurfaceInfo{}, fmt.Errorf("vkcomp: get surface capabilities: %w", err)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(s.surface.PhysicalDevice(), s.surface.VkSurface(), &formatCount, nil)
	if formatCount == 0 {
		return SurfaceInfo{}, fmt.Errorf("vkcomp: surface has no pixel formats")
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(s.surface.PhysicalDevice(), s.surface.VkSurface(), &formatCount, formats)
	formats[0].Deref()

	return SurfaceInfo{Format: formats[0].Format, Extent: caps.CurrentExtent}, nil
}

// SelectQueueFamily implements select_queue_family (§4.8): the graphics
// queue family doubles as the present queue family unless the device
// required a dedicated one (internal/vkcomp.Device.SeparatePresentQueue).
func (s *Swapchain) SelectQueueFamily() (graphics, present uint32) {
	return s.surface.GraphicsQueueFamilyIndex(), s.surface.PresentQueueFamilyIndex()
}

// RecreateSwapchain implements recreate_swapchain (§4.8): idle the device,
// query the current drawable size, then recreate passing the old handle so
// the implementation can reuse resources, following asche's
// prepareSwapchain (oldSwapchain kept alive until the new one is bound, then
// destroyed after a fence wait to dodge the AMD driver timeout asche's
// comment documents).
func (s *Swapchain) RecreateSwapchain() error {
	device := s.surface.Device()
	vk.DeviceWaitIdle(device)

	info, err := s.GetSurfaceInfo()
	if err != nil {
		return err
	}

	oldSwapchain := s.handle
	var newHandle vk.Swapchain
	ret := vk.CreateSwapchain(device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.surface.VkSurface(),
		MinImageCount:    frameLag,
		ImageFormat:      info.Format,
		ImageColorSpace:  vk.ColorSpaceSrgbNonlinear,
		ImageExtent:      info.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}, nil, &newHandle)
	if err := checkResult(ret); err != nil {
		return fmt.Errorf("vkcomp: create swapchain: %w", err)
	}

	if oldSwapchain != nil {
		vk.WaitForFences(device, uint32(len(s.fences)), s.fences, vk.True, vk.MaxUint64)
		vk.DestroySwapchain(device, oldSwapchain, nil)
	}
	s.handle = newHandle
	s.format = info.Format
	s.extent = info.Extent

	return s.recreateImageResources(device)
}

func (s *Swapchain) recreateImageResources(device vk.Device) error {
	for _, img := range s.images {
		vk.DestroyImageView(device, img.View, nil)
	}

	var count uint32
	vk.GetSwapchainImages(device, s.handle, &count, nil)
	images := make([]vk.Image, count)
	vk.GetSwapchainImages(device, s.handle, &count, images)

	s.images = make([]ImageResources, count)
	for i, image := range images {
		var view vk.ImageView
		ret := vk.CreateImageView(device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view)
		if err := checkResult(ret); err != nil {
			return fmt.Errorf("vkcomp: create swapchain image view %d: %w", i, err)
		}
		s.images[i] = ImageResources{Image: image, View: view}
	}
	return nil
}

// AcquiredImage is what get_next_swapchain_image hands back: the swapchain
// image index to render into and the semaphore that will be signaled once
// it's safe to write to.
type AcquiredImage struct {
	Index    uint32
	Semaphore vk.Semaphore
}

// GetNextSwapchainImage implements get_next_swapchain_image (§4.8): a
// zero-timeout acquire using a pooled semaphore, retrying on NOT_READY, and
// surfacing OUT_OF_DATE/SUBOPTIMAL to the caller so it can recreate before
// trying again — this coordinator never blocks the renderer indefinitely on
// a single acquire.
func (s *Swapchain) GetNextSwapchainImage() (AcquiredImage, error) {
	device := s.surface.Device()
	sem := s.acquireSemaphores[s.frameIndex%frameLag]

	for {
		var index uint32
		ret := vk.AcquireNextImage(device, s.handle, 0, sem, vk.NullFence, &index)
		switch ret {
		case vk.Success:
			s.currentImage = index
			return AcquiredImage{Index: index, Semaphore: sem}, nil
		case vk.NotReady, vk.Timeout:
			continue
		default:
			return AcquiredImage{}, checkResult(ret)
		}
	}
}

// Present implements present (§4.8): wait on the frame-complete semaphore,
// submit the present, and translate a failure into OUT_OF_DATE/Fatal so the
// window-manager loop's per-frame step knows whether to recreate or give up
// (§7's "swapchain errors are OutOfDate unless unrecoverable").
func (s *Swapchain) Present(frameDone vk.Semaphore) error {
	presentQueue := s.surface.PresentQueue()
	ret := vk.QueuePresent(presentQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{frameDone},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{s.currentImage},
	})
	s.frameIndex++
	switch ret {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return fmt.Errorf("vkcomp: present: %w", werr.OutOfDate)
	default:
		return fmt.Errorf("vkcomp: present failed: %w", checkResult(ret))
	}
}

// Destroy tears down the swapchain, its image views, and the semaphore/
// fence pool, in the same fence-wait-then-destroy order as asche's
// context.destroy.
func (s *Swapchain) Destroy() {
	device := s.surface.Device()
	vk.WaitForFences(device, uint32(len(s.fences)), s.fences, vk.True, vk.MaxUint64)
	for _, img := range s.images {
		vk.DestroyImageView(device, img.View, nil)
	}
	for i := range s.fences {
		vk.DestroyFence(device, s.fences[i], nil)
		vk.DestroySemaphore(device, s.acquireSemaphores[i], nil)
		vk.DestroySemaphore(device, s.presentSemaphores[i], nil)
	}
	if s.handle != nil {
		vk.DestroySwapchain(device, s.handle, nil)
	}
}
