package desktop

import "image"

// The interfaces below are the thin seam between the capture engine and
// the DXGI/D3D11 COM objects. Each one wraps exactly one native interface
// pointer; Release drops that pointer's reference. Errors are *Error values
// produced by statusError.

// API creates the root native objects.
type API interface {
	// CreateFactory returns an IDXGIFactory1.
	CreateFactory() (Factory, error)
	// CreateDevice creates a D3D11 device and immediate context bound to
	// the given adapter.
	CreateDevice(adapter Adapter) (Device, error)
}

// Factory wraps IDXGIFactory1.
type Factory interface {
	// EnumAdapter returns the adapter at index, or an error carrying
	// DXGI_ERROR_NOT_FOUND past the last one.
	EnumAdapter(index uint32) (Adapter, error)
	Release()
}

// Adapter wraps IDXGIAdapter1.
type Adapter interface {
	EnumOutput(index uint32) (Output, error)
	AddRef()
	Release()
}

// Output wraps IDXGIOutput.
type Output interface {
	Desc() (OutputDesc, error)
	// Duplicable queries the IDXGIOutput1 interface needed for desktop
	// duplication.
	Duplicable() (DuplicableOutput, error)
	Release()
}

// DuplicableOutput wraps IDXGIOutput1.
type DuplicableOutput interface {
	Duplicate(device Device) (Duplication, error)
	Release()
}

// Device wraps an ID3D11Device and its immediate ID3D11DeviceContext.
// Release drops the context first, then the device.
type Device interface {
	CreateTexture2D(desc TextureDesc) (Texture, error)
	// CopyResource copies src into dst on the immediate context.
	CopyResource(dst, src Texture)
	Release()
}

// Duplication wraps IDXGIOutputDuplication.
type Duplication interface {
	Desc() DuplicationDesc
	// AcquireNextFrame waits up to timeoutMs for a new desktop image.
	AcquireNextFrame(timeoutMs uint32) (FrameInfo, Resource, error)
	ReleaseFrame() error
	MapDesktopSurface() (MappedRect, error)
	UnmapDesktopSurface() error
	// PointerShape copies the current pointer shape into buf and returns
	// its metadata plus the number of bytes written.
	PointerShape(buf []byte) (PointerShapeInfo, int, error)
	Release()
}

// Resource wraps the IDXGIResource handed out by AcquireNextFrame.
type Resource interface {
	// Texture queries the ID3D11Texture2D behind the frame.
	Texture() (Texture, error)
	Release()
}

// Texture wraps ID3D11Texture2D.
type Texture interface {
	Desc() TextureDesc
	SetEvictionPriority(priority uint32)
	// Surface queries the IDXGISurface view of the texture.
	Surface() (Surface, error)
	Release()
}

// Surface wraps IDXGISurface.
type Surface interface {
	Map() (MappedRect, error)
	Unmap() error
	Release()
}

// OutputDesc mirrors DXGI_OUTPUT_DESC.
type OutputDesc struct {
	DeviceName         [32]uint16
	DesktopCoordinates image.Rectangle
	AttachedToDesktop  bool
	Rotation           Rotation
}

// DuplicationDesc mirrors the parts of DXGI_OUTDUPL_DESC the engine uses.
type DuplicationDesc struct {
	Width, Height              int
	Rotation                   Rotation
	DesktopImageInSystemMemory bool
}

// FrameInfo mirrors DXGI_OUTDUPL_FRAME_INFO.
type FrameInfo struct {
	LastPresentTime        int64
	LastMouseUpdateTime    int64
	AccumulatedFrames      uint32
	PointerPosition        image.Point
	PointerVisible         bool
	PointerShapeBufferSize uint32
}

// MappedRect is a CPU view of a mapped surface. Bits points at the first
// row; rows are Pitch bytes apart.
type MappedRect struct {
	Pitch int
	Bits  *byte
}

// TextureDesc mirrors D3D11_TEXTURE2D_DESC.
type TextureDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

// D3D11/DXGI constants shared by the engine and the native binding.
const (
	usageStaging            = 3          // D3D11_USAGE_STAGING
	cpuAccessRead           = 0x20000    // D3D11_CPU_ACCESS_READ
	evictionPriorityMaximum = 0xC8000000 // DXGI_RESOURCE_PRIORITY_MAXIMUM
	formatB8G8R8A8          = 87
	bytesPerPixel           = 4
)
