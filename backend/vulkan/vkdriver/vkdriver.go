// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package vkdriver implements vulkan.Driver with vulkan-go and registers
// the Vulkan backend. It requires cgo.
package vkdriver

import (
	"fmt"
	"math"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/backend"
	"github.com/gogpu/samplelib/backend/vulkan"
	"github.com/gogpu/samplelib/internal/swapchain"
)

func init() {
	backend.Register(samplelib.APIVulkan, func() samplelib.APIContext { return vulkan.New(New()) })
}

// Driver is the vulkan-go driver.
type Driver struct {
	instance vk.Instance
	pd       vk.PhysicalDevice
	device   vk.Device
	queue    vk.Queue
	family   uint32
}

var _ vulkan.Driver = (*Driver)(nil)

// New returns an unloaded driver.
func New() *Driver { return &Driver{} }

// Load installs the window's vkGetInstanceProcAddr, or opens the system
// loader when procAddr is 0.
func (d *Driver) Load(procAddr uintptr) error {
	if procAddr != 0 {
		vk.SetGetInstanceProcAddr(unsafe.Pointer(procAddr))
	} else if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return fmt.Errorf("%w: vulkan loader: %w", samplelib.ErrLibraryLoad, err)
	}
	if err := vk.Init(); err != nil {
		return fmt.Errorf("%w: %w", samplelib.ErrLibraryLoad, err)
	}
	return nil
}

func (d *Driver) InstanceLayers() []string {
	var n uint32
	if vk.EnumerateInstanceLayerProperties(&n, nil) != vk.Success || n == 0 {
		return nil
	}
	props := make([]vk.LayerProperties, n)
	vk.EnumerateInstanceLayerProperties(&n, props)
	names := make([]string, 0, n)
	for _, p := range props[:n] {
		p.Deref()
		names = append(names, vk.ToString(p.LayerName[:]))
	}
	return names
}

func (d *Driver) InstanceExtensions() []string {
	var n uint32
	if vk.EnumerateInstanceExtensionProperties("", &n, nil) != vk.Success || n == 0 {
		return nil
	}
	props := make([]vk.ExtensionProperties, n)
	vk.EnumerateInstanceExtensionProperties("", &n, props)
	return extensionNames(props[:n])
}

func (d *Driver) CreateInstance(desc vulkan.InstanceDesc) (uintptr, error) {
	info := vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   cstr(desc.AppName),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        cstr("samplelib"),
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.MakeVersion(1, 1, 0),
		},
		EnabledLayerCount:       uint32(len(desc.Layers)),
		PpEnabledLayerNames:     cstrs(desc.Layers),
		EnabledExtensionCount:   uint32(len(desc.Extensions)),
		PpEnabledExtensionNames: cstrs(desc.Extensions),
	}
	for _, e := range desc.Extensions {
		if e == vulkan.PortabilityEnumeration {
			info.Flags = vk.InstanceCreateFlags(0x00000001) // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		}
	}
	var inst vk.Instance
	if err := vk.Error(vk.CreateInstance(&info, nil, &inst)); err != nil {
		return 0, err
	}
	if err := vk.InitInstance(inst); err != nil {
		vk.DestroyInstance(inst, nil)
		return 0, err
	}
	d.instance = inst
	return uintptr(unsafe.Pointer(inst)), nil
}

func (d *Driver) PhysicalDevices() ([]vulkan.PhysicalDevice, error) {
	var n uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(d.instance, &n, nil)); err != nil {
		return nil, err
	}
	handles := make([]vk.PhysicalDevice, n)
	if err := vk.Error(vk.EnumeratePhysicalDevices(d.instance, &n, handles)); err != nil {
		return nil, err
	}
	out := make([]vulkan.PhysicalDevice, 0, n)
	for i, h := range handles[:n] {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(h, &props)
		props.Deref()
		out = append(out, vulkan.PhysicalDevice{
			Index:          i,
			Name:           vk.ToString(props.DeviceName[:]),
			Type:           deviceType(props.DeviceType),
			VendorID:       props.VendorID,
			DeviceID:       props.DeviceID,
			Layers:         deviceLayers(h),
			Extensions:     deviceExtensions(h),
			GraphicsFamily: graphicsFamily(h),
			Handle:         h,
		})
	}
	return out, nil
}

func (d *Driver) PresentSupport(pd vulkan.PhysicalDevice, family int, surface uintptr) bool {
	var ok vk.Bool32
	res := vk.GetPhysicalDeviceSurfaceSupport(pd.Handle.(vk.PhysicalDevice), uint32(family), vk.SurfaceFromPointer(surface), &ok)
	return res == vk.Success && ok == vk.True
}

func (d *Driver) CreateDevice(pd vulkan.PhysicalDevice, desc vulkan.DeviceDesc) error {
	h := pd.Handle.(vk.PhysicalDevice)
	info := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(desc.QueueFamily),
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		}},
		EnabledLayerCount:       uint32(len(desc.Layers)),
		PpEnabledLayerNames:     cstrs(desc.Layers),
		EnabledExtensionCount:   uint32(len(desc.Extensions)),
		PpEnabledExtensionNames: cstrs(desc.Extensions),
	}
	var dev vk.Device
	if err := vk.Error(vk.CreateDevice(h, &info, nil, &dev)); err != nil {
		return err
	}
	var q vk.Queue
	vk.GetDeviceQueue(dev, uint32(desc.QueueFamily), 0, &q)
	d.pd, d.device, d.queue, d.family = h, dev, q, uint32(desc.QueueFamily)
	return nil
}

func (d *Driver) SurfaceCaps(surface uintptr) (vulkan.SurfaceCaps, error) {
	s := vk.SurfaceFromPointer(surface)
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(d.pd, s, &caps)); err != nil {
		return vulkan.SurfaceCaps{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	out := vulkan.SurfaceCaps{
		Extents: swapchain.SurfaceExtents{
			Current: samplelib.Size{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
			Min:     samplelib.Size{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
			Max:     samplelib.Size{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		},
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
	}

	var n uint32
	vk.GetPhysicalDeviceSurfaceFormats(d.pd, s, &n, nil)
	formats := make([]vk.SurfaceFormat, n)
	vk.GetPhysicalDeviceSurfaceFormats(d.pd, s, &n, formats)
	for _, f := range formats[:n] {
		f.Deref()
		if f.ColorSpace != vk.ColorSpaceSrgbNonlinear {
			continue
		}
		if tf, ok := fromVkFormat(f.Format); ok {
			out.Formats = append(out.Formats, tf)
		}
	}

	vk.GetPhysicalDeviceSurfacePresentModes(d.pd, s, &n, nil)
	modes := make([]vk.PresentMode, n)
	vk.GetPhysicalDeviceSurfacePresentModes(d.pd, s, &n, modes)
	for _, m := range modes[:n] {
		out.PresentModes = append(out.PresentModes, fromVkPresentMode(m))
	}
	return out, nil
}

func (d *Driver) CreateSwapChain(desc vulkan.SwapChainDesc) (vulkan.SwapChain, error) {
	sc, err := newSwapChain(d, desc)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (d *Driver) CreateTexture(size samplelib.Size, format gputypes.TextureFormat) (swapchain.Image, error) {
	vf, ok := toVkFormat(format)
	if !ok {
		return swapchain.Image{}, fmt.Errorf("format %v has no Vulkan equivalent", format)
	}
	usage := vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit | vk.ImageUsageTransferSrcBit
	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        vf,
		Extent:        vk.Extent3D{Width: size.Width, Height: size.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var img vk.Image
	if err := vk.Error(vk.CreateImage(d.device, &info, nil, &img)); err != nil {
		return swapchain.Image{}, fmt.Errorf("vkCreateImage %v: %w", size, err)
	}
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, img, &req)
	req.Deref()
	typ, ok := d.memoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if !ok {
		vk.DestroyImage(d.device, img, nil)
		return swapchain.Image{}, fmt.Errorf("no device-local memory type for %v image", size)
	}
	var mem vk.DeviceMemory
	alloc := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typ,
	}
	if err := vk.Error(vk.AllocateMemory(d.device, &alloc, nil, &mem)); err != nil {
		vk.DestroyImage(d.device, img, nil)
		return swapchain.Image{}, fmt.Errorf("vkAllocateMemory: %w", err)
	}
	if err := vk.Error(vk.BindImageMemory(d.device, img, mem, 0)); err != nil {
		vk.FreeMemory(d.device, mem, nil)
		vk.DestroyImage(d.device, img, nil)
		return swapchain.Image{}, fmt.Errorf("vkBindImageMemory: %w", err)
	}
	view, err := d.createView(img, vf)
	if err != nil {
		vk.FreeMemory(d.device, mem, nil)
		vk.DestroyImage(d.device, img, nil)
		return swapchain.Image{}, err
	}
	dev := d.device
	return swapchain.Image{
		Native: img,
		View:   view,
		Release: func() {
			vk.DestroyImageView(dev, view, nil)
			vk.DestroyImage(dev, img, nil)
			vk.FreeMemory(dev, mem, nil)
		},
	}, nil
}

func (d *Driver) memoryType(bits uint32, want vk.MemoryPropertyFlags) (uint32, bool) {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.pd, &props)
	props.Deref()
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		t := props.MemoryTypes[i]
		t.Deref()
		if bits&(1<<i) != 0 && t.PropertyFlags&want == want {
			return i, true
		}
	}
	return 0, false
}

func (d *Driver) createView(img vk.Image, format vk.Format) (vk.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(d.device, &info, nil, &view)); err != nil {
		return nil, fmt.Errorf("vkCreateImageView: %w", err)
	}
	return view, nil
}

func (d *Driver) DestroySurface(surface uintptr) {
	if d.instance != nil && surface != 0 {
		vk.DestroySurface(d.instance, vk.SurfaceFromPointer(surface), nil)
	}
}

func (d *Driver) WaitIdle() error {
	if d.device == nil {
		return nil
	}
	return result(vk.DeviceWaitIdle(d.device))
}

// Release destroys the device and the instance.
func (d *Driver) Release() {
	if d.device != nil {
		vk.DeviceWaitIdle(d.device)
		vk.DestroyDevice(d.device, nil)
		d.device, d.queue = nil, nil
	}
	if d.instance != nil {
		vk.DestroyInstance(d.instance, nil)
		d.instance = nil
	}
}

// result maps a VkResult onto the context errors.
func result(res vk.Result) error {
	switch res {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return vulkan.ErrSuboptimal
	case vk.ErrorOutOfDate:
		return fmt.Errorf("%w: %w", samplelib.ErrOutOfDate, vk.Error(res))
	case vk.ErrorDeviceLost, vk.ErrorSurfaceLost:
		return fmt.Errorf("%w: %w", samplelib.ErrDeviceLost, vk.Error(res))
	default:
		return vk.Error(res)
	}
}

func deviceType(t vk.PhysicalDeviceType) gputypes.DeviceType {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return gputypes.DeviceTypeIntegratedGPU
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return gputypes.DeviceTypeDiscreteGPU
	case vk.PhysicalDeviceTypeVirtualGpu:
		return gputypes.DeviceTypeVirtualGPU
	case vk.PhysicalDeviceTypeCpu:
		return gputypes.DeviceTypeCPU
	default:
		return gputypes.DeviceTypeOther
	}
}

func graphicsFamily(pd vk.PhysicalDevice) int {
	var n uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &n, nil)
	families := make([]vk.QueueFamilyProperties, n)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &n, families)
	for i, f := range families[:n] {
		f.Deref()
		if f.QueueCount > 0 && f.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return i
		}
	}
	return -1
}

func deviceLayers(pd vk.PhysicalDevice) []string {
	var n uint32
	if vk.EnumerateDeviceLayerProperties(pd, &n, nil) != vk.Success || n == 0 {
		return nil
	}
	props := make([]vk.LayerProperties, n)
	vk.EnumerateDeviceLayerProperties(pd, &n, props)
	names := make([]string, 0, n)
	for _, p := range props[:n] {
		p.Deref()
		names = append(names, vk.ToString(p.LayerName[:]))
	}
	return names
}

func deviceExtensions(pd vk.PhysicalDevice) []string {
	var n uint32
	if vk.EnumerateDeviceExtensionProperties(pd, "", &n, nil) != vk.Success || n == 0 {
		return nil
	}
	props := make([]vk.ExtensionProperties, n)
	vk.EnumerateDeviceExtensionProperties(pd, "", &n, props)
	return extensionNames(props[:n])
}

func extensionNames(props []vk.ExtensionProperties) []string {
	names := make([]string, 0, len(props))
	for _, p := range props {
		p.Deref()
		names = append(names, vk.ToString(p.ExtensionName[:]))
	}
	return names
}

// cstr and cstrs null-terminate names for the C API.
func cstr(s string) string { return s + "\x00" }

func cstrs(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = cstr(n)
	}
	return out
}

var formatTable = []struct {
	tf gputypes.TextureFormat
	vf vk.Format
}{
	{gputypes.TextureFormatRGBA8Unorm, vk.FormatR8g8b8a8Unorm},
	{gputypes.TextureFormatRGBA8UnormSrgb, vk.FormatR8g8b8a8Srgb},
	{gputypes.TextureFormatBGRA8Unorm, vk.FormatB8g8r8a8Unorm},
	{gputypes.TextureFormatBGRA8UnormSrgb, vk.FormatB8g8r8a8Srgb},
	{gputypes.TextureFormatRGBA16Float, vk.FormatR16g16b16a16Sfloat},
	{gputypes.TextureFormatRGB10A2Unorm, vk.FormatA2b10g10r10UnormPack32},
}

func toVkFormat(f gputypes.TextureFormat) (vk.Format, bool) {
	for _, m := range formatTable {
		if m.tf == f {
			return m.vf, true
		}
	}
	return vk.FormatUndefined, false
}

func fromVkFormat(f vk.Format) (gputypes.TextureFormat, bool) {
	for _, m := range formatTable {
		if m.vf == f {
			return m.tf, true
		}
	}
	return gputypes.TextureFormatUndefined, false
}

func toVkPresentMode(m gputypes.PresentMode) vk.PresentMode {
	switch m {
	case gputypes.PresentModeImmediate:
		return vk.PresentModeImmediate
	case gputypes.PresentModeMailbox:
		return vk.PresentModeMailbox
	case gputypes.PresentModeFifoRelaxed:
		return vk.PresentModeFifoRelaxed
	default:
		return vk.PresentModeFifo
	}
}

func fromVkPresentMode(m vk.PresentMode) gputypes.PresentMode {
	switch m {
	case vk.PresentModeImmediate:
		return gputypes.PresentModeImmediate
	case vk.PresentModeMailbox:
		return gputypes.PresentModeMailbox
	case vk.PresentModeFifoRelaxed:
		return gputypes.PresentModeFifoRelaxed
	default:
		return gputypes.PresentModeFifo
	}
}

// noTimeout is the acquire and fence timeout.
const noTimeout = math.MaxUint64
