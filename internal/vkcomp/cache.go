package vkcomp

import (
	"github.com/rs/zerolog"

	vk "github.com/vulkan-go/vulkan"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

// Decoration holds a toplevel's renderer-local SSD elements (§4.7 step 3's
// "add titlebar + button subsurfaces"): geometry only, composited as
// colored quads over the client's image rather than client-visible
// surfaces of their own. updateGeometry recomputes the rects every frame
// since they depend on the current output size.
type Decoration struct {
	TitleBar geom.Rect
	Button   geom.Rect
}

// ImageCache holds the one GPU-resident Image per live window (§4.11). It is
// owned exclusively by the renderer's execution context (spec.md §5); the
// protocol side never reads or writes it directly, only through WmTasks
// carried across the Hemisphere.
type ImageCache struct {
	device      vk.Device
	images      map[atmosphere.WindowID]Image
	decorations map[atmosphere.WindowID]*Decoration
	log         zerolog.Logger
}

// NewImageCache creates an empty cache bound to device, whose lifetime must
// outlive the cache (every stored Image was allocated from it).
func NewImageCache(device vk.Device, log zerolog.Logger) *ImageCache {
	return &ImageCache{
		device:      device,
		images:      make(map[atmosphere.WindowID]Image),
		decorations: make(map[atmosphere.WindowID]*Decoration),
		log:         log.With().Str("component", "vkcomp.cache").Logger(),
	}
}

// CreateDecoration allocates w's SSD titlebar+button record, a no-op if one
// already exists. Driven by TaskNewToplevel (§4.7 step 3's create path).
func (c *ImageCache) CreateDecoration(w atmosphere.WindowID) {
	if _, ok := c.decorations[w]; ok {
		return
	}
	c.decorations[w] = &Decoration{}
}

// Decoration returns w's SSD record, if it has one (only toplevels do).
func (c *ImageCache) Decoration(w atmosphere.WindowID) (*Decoration, bool) {
	d, ok := c.decorations[w]
	return d, ok
}

// Get returns the cached Image for w, if any content has been committed yet.
func (c *ImageCache) Get(w atmosphere.WindowID) (Image, bool) {
	img, ok := c.images[w]
	return img, ok
}

// Apply drains one WmTask against the cache (§4.7 step 3's content-update
// cases). Structural tasks (new window, reorder, subsurface placement,
// cursor) are handled by wm.go and cursor.go instead — this only owns the
// pixel-content lifecycle.
func (c *ImageCache) Apply(physicalDevice vk.PhysicalDevice, task atmosphere.WmTask) {
	switch task.Kind {
	case atmosphere.TaskUpdateContentsFromMem:
		c.applyMem(physicalDevice, task.Window, task.Mem)
	case atmosphere.TaskUpdateContentsFromDmabuf:
		c.applyDmabuf(physicalDevice, task.Window, task.Dmabuf)
	case atmosphere.TaskCloseWindow:
		c.Evict(task.Window)
	}
}

func (c *ImageCache) applyMem(physicalDevice vk.PhysicalDevice, w atmosphere.WindowID, mem *atmosphere.MemContents) {
	if mem == nil {
		return
	}
	img, err := newCPUImage(c.device, physicalDevice, mem)
	if err != nil {
		c.log.Error().Err(err).Uint32("window", uint32(w)).Msg("upload cpu image failed")
		mem.Release()
		return
	}
	if err := uploadCPUImage(c.device, img.stagingMem, mem); err != nil {
		c.log.Error().Err(err).Uint32("window", uint32(w)).Msg("map staging buffer failed")
		img.destroy(c.device)
		mem.Release()
		return
	}
	c.replace(w, img)
}

func (c *ImageCache) applyDmabuf(physicalDevice vk.PhysicalDevice, w atmosphere.WindowID, dmabuf *atmosphere.DmabufContents) {
	if dmabuf == nil {
		return
	}
	img, err := importDmabufImage(c.device, physicalDevice, dmabuf)
	if err != nil {
		c.log.Error().Err(err).Uint32("window", uint32(w)).Msg("import dmabuf image failed")
		dmabuf.Release()
		return
	}
	c.replace(w, img)
}

// replace installs img as w's cached image, releasing whatever was there
// before (§4.11: a window holds at most one live Image).
func (c *ImageCache) replace(w atmosphere.WindowID, img Image) {
	if old, ok := c.images[w]; ok {
		old.Release()
		old.destroy(c.device)
	}
	c.images[w] = img
}

// Evict destroys and forgets w's cached image, called on TaskCloseWindow and
// during the §4.7 step 9 dead-window reap.
func (c *ImageCache) Evict(w atmosphere.WindowID) {
	if img, ok := c.images[w]; ok {
		img.Release()
		img.destroy(c.device)
		delete(c.images, w)
	}
	delete(c.decorations, w)
}

// newCPUImage allocates the device image and its staging buffer for mem's
// dimensions, without yet copying pixel data (the caller uploads separately
// via uploadCPUImage once the staging memory is created).
func newCPUImage(device vk.Device, physicalDevice vk.PhysicalDevice, mem *atmosphere.MemContents) (*cpuImage, error) {
	format := vk.FormatR8g8b8a8Unorm

	var image vk.Image
	ret := vk.CreateImage(device, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  uint32(mem.Width),
			Height: uint32(mem.Height),
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &image)
	if err := checkResult(ret); err != nil {
		return nil, err
	}

	var view vk.ImageView
	ret = vk.CreateImageView(device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view)
	if err := checkResult(ret); err != nil {
		vk.DestroyImage(device, image, nil)
		return nil, err
	}

	size := vk.DeviceSize(len(mem.Pixels))
	var stagingBuf vk.Buffer
	ret = vk.CreateBuffer(device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &stagingBuf)
	if err := checkResult(ret); err != nil {
		vk.DestroyImageView(device, view, nil)
		vk.DestroyImage(device, image, nil)
		return nil, err
	}

	imageMem, err := allocateAndBindImage(device, physicalDevice, image, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyBuffer(device, stagingBuf, nil)
		vk.DestroyImageView(device, view, nil)
		vk.DestroyImage(device, image, nil)
		return nil, err
	}

	stagingMem, err := allocateAndBindBuffer(device, physicalDevice, stagingBuf, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		vk.FreeMemory(device, imageMem, nil)
		vk.DestroyBuffer(device, stagingBuf, nil)
		vk.DestroyImageView(device, view, nil)
		vk.DestroyImage(device, image, nil)
		return nil, err
	}

	return &cpuImage{
		image:      image,
		view:       view,
		memory:     imageMem,
		stagingBuf: stagingBuf,
		stagingMem: stagingMem,
		width:      mem.Width,
		height:     mem.Height,
		release:    mem.Release,
	}, nil
}

// allocateAndBindImage allocates memory matching image's requirements and
// the requested properties, then binds it.
func allocateAndBindImage(device vk.Device, physicalDevice vk.PhysicalDevice, image vk.Image, props vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, image, &reqs)
	reqs.Deref()

	typeIndex, err := findMemoryType(physicalDevice, reqs.MemoryTypeBits, props)
	if err != nil {
		return nil, err
	}
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	if err := checkResult(ret); err != nil {
		return nil, err
	}
	vk.BindImageMemory(device, image, mem, 0)
	return mem, nil
}

// allocateAndBindBuffer is allocateAndBindImage's buffer-side twin.
func allocateAndBindBuffer(device vk.Device, physicalDevice vk.PhysicalDevice, buf vk.Buffer, props vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buf, &reqs)
	reqs.Deref()

	typeIndex, err := findMemoryType(physicalDevice, reqs.MemoryTypeBits, props)
	if err != nil {
		return nil, err
	}
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	if err := checkResult(ret); err != nil {
		return nil, err
	}
	vk.BindBufferMemory(device, buf, mem, 0)
	return mem, nil
}
