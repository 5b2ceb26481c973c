//go:build windows

package desktop

import (
	"errors"
	"image"
	"unsafe"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

var (
	d3d11DLL = windows.NewLazySystemDLL("d3d11.dll")
	dxgiDLL  = windows.NewLazySystemDLL("dxgi.dll")

	procD3D11CreateDevice  = d3d11DLL.NewProc("D3D11CreateDevice")
	procCreateDXGIFactory1 = dxgiDLL.NewProc("CreateDXGIFactory1")
)

const (
	d3dDriverTypeUnknown = 0 // required when an adapter is passed
	d3d11SDKVersion      = 7
	dxgiMapRead          = 1

	// DXGI/D3D11 COM vtable indices
	dxgiFactory1EnumAdapters1    = 12 // IDXGIFactory1 (after IDXGIObject and IDXGIFactory)
	dxgiAdapterEnumOutputs       = 7  // IDXGIAdapter
	dxgiOutputGetDesc            = 7  // IDXGIOutput
	dxgiOutput1DuplicateOutput   = 22 // IDXGIOutput1
	dxgiDuplGetDesc              = 7  // IDXGIOutputDuplication
	dxgiDuplAcquireNextFrame     = 8
	dxgiDuplGetFramePointerShape = 11
	dxgiDuplMapDesktopSurface    = 12
	dxgiDuplUnMapDesktopSurface  = 13
	dxgiDuplReleaseFrame         = 14
	dxgiSurfaceMap               = 9  // IDXGISurface (after IDXGIDeviceSubObject)
	dxgiSurfaceUnmap             = 10
	d3d11DeviceCreateTexture2D   = 5  // ID3D11Device
	d3d11ResourceSetEvictionPrio = 8  // ID3D11Resource (after ID3D11DeviceChild)
	d3d11Texture2DGetDesc        = 10 // ID3D11Texture2D
	d3d11CtxCopyResource         = 47 // ID3D11DeviceContext
)

// COM interface IDs.
var (
	iidIDXGIFactory1   = ole.NewGUID("{770aae78-f26f-4dba-a829-253c83d1b387}")
	iidIDXGIOutput1    = ole.NewGUID("{00cddea8-939b-4b83-a340-a685226666cc}")
	iidID3D11Texture2D = ole.NewGUID("{6f15aaf2-d208-4e89-9ab4-489535d34f9c}")
	iidIDXGISurface    = ole.NewGUID("{cafcb56c-6ac3-4889-bf47-9e23bbd260ec}")
)

// dxgiOutputDesc matches DXGI_OUTPUT_DESC.
type dxgiOutputDesc struct {
	DeviceName        [32]uint16
	Left              int32
	Top               int32
	Right             int32
	Bottom            int32
	AttachedToDesktop int32
	Rotation          uint32
	Monitor           uintptr
}

type dxgiRational struct {
	Numerator   uint32
	Denominator uint32
}

// dxgiModeDesc matches DXGI_MODE_DESC.
type dxgiModeDesc struct {
	Width            uint32
	Height           uint32
	RefreshRate      dxgiRational
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

// dxgiOutDuplDesc matches DXGI_OUTDUPL_DESC.
type dxgiOutDuplDesc struct {
	ModeDesc                   dxgiModeDesc
	Rotation                   uint32
	DesktopImageInSystemMemory int32 // BOOL
}

// dxgiOutDuplFrameInfo matches DXGI_OUTDUPL_FRAME_INFO.
type dxgiOutDuplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPositionX          int32
	PointerPositionY          int32
	PointerVisible            int32
	TotalMetadataBufferSize   uint32
	PointerShapeBufferSize    uint32
}

// dxgiPointerShapeInfo matches DXGI_OUTDUPL_POINTER_SHAPE_INFO.
type dxgiPointerShapeInfo struct {
	Type     uint32
	Width    uint32
	Height   uint32
	Pitch    uint32
	HotSpotX int32
	HotSpotY int32
}

// dxgiMappedRect matches DXGI_MAPPED_RECT.
type dxgiMappedRect struct {
	Pitch int32
	PBits uintptr
}

// NativeAPI returns the DXGI/D3D11 binding.
func NativeAPI() (API, error) {
	if err := procCreateDXGIFactory1.Find(); err != nil {
		return nil, &Error{Kind: KindUnsupported, Op: "CreateDXGIFactory1", Err: err}
	}
	if err := procD3D11CreateDevice.Find(); err != nil {
		return nil, &Error{Kind: KindUnsupported, Op: "D3D11CreateDevice", Err: err}
	}
	return nativeAPI{}, nil
}

type nativeAPI struct{}

func (nativeAPI) CreateFactory() (Factory, error) {
	var factory uintptr
	hr, _, _ := procCreateDXGIFactory1.Call(
		uintptr(unsafe.Pointer(iidIDXGIFactory1)),
		uintptr(unsafe.Pointer(&factory)),
	)
	if err := statusError("CreateDXGIFactory1", uint32(hr)); err != nil {
		return nil, err
	}
	return &nativeFactory{comObject{factory}}, nil
}

func (nativeAPI) CreateDevice(adapter Adapter) (Device, error) {
	a, ok := adapter.(*nativeAdapter)
	if !ok {
		return nil, &Error{Kind: KindInvalidRequest, Op: "D3D11CreateDevice", Err: errors.New("adapter is not native")}
	}
	var device, context uintptr
	var actualLevel uint32
	hr, _, _ := procD3D11CreateDevice.Call(
		a.ptr,                                 // pAdapter
		uintptr(d3dDriverTypeUnknown),         // DriverType
		0,                                     // Software
		0,                                     // Flags
		0,                                     // pFeatureLevels (defaults)
		0,                                     // FeatureLevels count
		uintptr(d3d11SDKVersion),              // SDKVersion
		uintptr(unsafe.Pointer(&device)),      // ppDevice
		uintptr(unsafe.Pointer(&actualLevel)), // pFeatureLevel
		uintptr(unsafe.Pointer(&context)),     // ppImmediateContext
	)
	if err := statusError("D3D11CreateDevice", uint32(hr)); err != nil {
		return nil, err
	}
	return &nativeDevice{device: device, context: context}, nil
}

type nativeFactory struct{ comObject }

func (f *nativeFactory) EnumAdapter(index uint32) (Adapter, error) {
	var adapter uintptr
	hr := comCall(f.ptr, dxgiFactory1EnumAdapters1, uintptr(index), uintptr(unsafe.Pointer(&adapter)))
	if err := statusError("EnumAdapters1", hr); err != nil {
		return nil, err
	}
	return &nativeAdapter{comObject{adapter}}, nil
}

// nativeAdapter is shared by every Display enumerated from it; each holder
// owns one COM reference, so Release must not clear the pointer.
type nativeAdapter struct{ comObject }

func (a *nativeAdapter) EnumOutput(index uint32) (Output, error) {
	var output uintptr
	hr := comCall(a.ptr, dxgiAdapterEnumOutputs, uintptr(index), uintptr(unsafe.Pointer(&output)))
	if err := statusError("EnumOutputs", hr); err != nil {
		return nil, err
	}
	return &nativeOutput{comObject{output}}, nil
}

func (a *nativeAdapter) AddRef() { comAddRef(a.ptr) }

func (a *nativeAdapter) Release() { comRelease(a.ptr) }

type nativeOutput struct{ comObject }

func (o *nativeOutput) Desc() (OutputDesc, error) {
	var d dxgiOutputDesc
	hr := comCall(o.ptr, dxgiOutputGetDesc, uintptr(unsafe.Pointer(&d)))
	if err := statusError("IDXGIOutput::GetDesc", hr); err != nil {
		return OutputDesc{}, err
	}
	return OutputDesc{
		DeviceName:         d.DeviceName,
		DesktopCoordinates: image.Rect(int(d.Left), int(d.Top), int(d.Right), int(d.Bottom)),
		AttachedToDesktop:  d.AttachedToDesktop != 0,
		Rotation:           Rotation(d.Rotation),
	}, nil
}

func (o *nativeOutput) Duplicable() (DuplicableOutput, error) {
	out1, err := comQuery(o.ptr, iidIDXGIOutput1, "QueryInterface IDXGIOutput1")
	if err != nil {
		return nil, err
	}
	return &nativeOutput1{comObject{out1}}, nil
}

type nativeOutput1 struct{ comObject }

func (o *nativeOutput1) Duplicate(device Device) (Duplication, error) {
	dev, ok := device.(*nativeDevice)
	if !ok {
		return nil, &Error{Kind: KindInvalidRequest, Op: "DuplicateOutput", Err: errors.New("device is not native")}
	}
	var dup uintptr
	hr := comCall(o.ptr, dxgiOutput1DuplicateOutput, dev.device, uintptr(unsafe.Pointer(&dup)))
	if err := statusError("DuplicateOutput", hr); err != nil {
		return nil, err
	}
	return &nativeDuplication{comObject{dup}}, nil
}

type nativeDevice struct {
	device  uintptr // ID3D11Device
	context uintptr // ID3D11DeviceContext
}

func (d *nativeDevice) CreateTexture2D(desc TextureDesc) (Texture, error) {
	var tex uintptr
	hr := comCall(d.device, d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)),
		0, // pInitialData
		uintptr(unsafe.Pointer(&tex)),
	)
	if err := statusError("CreateTexture2D", hr); err != nil {
		return nil, err
	}
	return &nativeTexture{comObject{tex}}, nil
}

// CopyResource is void; failures surface on the following Map.
func (d *nativeDevice) CopyResource(dst, src Texture) {
	dt, ok1 := dst.(*nativeTexture)
	st, ok2 := src.(*nativeTexture)
	if !ok1 || !ok2 {
		return
	}
	comCallVoid(d.context, d3d11CtxCopyResource, dt.ptr, st.ptr)
}

func (d *nativeDevice) Release() {
	comRelease(d.context)
	comRelease(d.device)
	d.context, d.device = 0, 0
}

type nativeDuplication struct{ comObject }

func (d *nativeDuplication) Desc() DuplicationDesc {
	var desc dxgiOutDuplDesc
	comCallVoid(d.ptr, dxgiDuplGetDesc, uintptr(unsafe.Pointer(&desc)))
	return DuplicationDesc{
		Width:                      int(desc.ModeDesc.Width),
		Height:                     int(desc.ModeDesc.Height),
		Rotation:                   Rotation(desc.Rotation),
		DesktopImageInSystemMemory: desc.DesktopImageInSystemMemory != 0,
	}
}

func (d *nativeDuplication) AcquireNextFrame(timeoutMs uint32) (FrameInfo, Resource, error) {
	var fi dxgiOutDuplFrameInfo
	var resource uintptr
	hr := comCall(d.ptr, dxgiDuplAcquireNextFrame,
		uintptr(timeoutMs),
		uintptr(unsafe.Pointer(&fi)),
		uintptr(unsafe.Pointer(&resource)),
	)
	if err := statusError("AcquireNextFrame", hr); err != nil {
		return FrameInfo{}, nil, err
	}
	return FrameInfo{
		LastPresentTime:        fi.LastPresentTime,
		LastMouseUpdateTime:    fi.LastMouseUpdateTime,
		AccumulatedFrames:      fi.AccumulatedFrames,
		PointerPosition:        image.Pt(int(fi.PointerPositionX), int(fi.PointerPositionY)),
		PointerVisible:         fi.PointerVisible != 0,
		PointerShapeBufferSize: fi.PointerShapeBufferSize,
	}, &nativeResource{comObject{resource}}, nil
}

func (d *nativeDuplication) ReleaseFrame() error {
	return statusError("ReleaseFrame", comCall(d.ptr, dxgiDuplReleaseFrame))
}

func (d *nativeDuplication) MapDesktopSurface() (MappedRect, error) {
	var r dxgiMappedRect
	hr := comCall(d.ptr, dxgiDuplMapDesktopSurface, uintptr(unsafe.Pointer(&r)))
	if err := statusError("MapDesktopSurface", hr); err != nil {
		return MappedRect{}, err
	}
	return mappedRect(r), nil
}

func (d *nativeDuplication) UnmapDesktopSurface() error {
	return statusError("UnMapDesktopSurface", comCall(d.ptr, dxgiDuplUnMapDesktopSurface))
}

func (d *nativeDuplication) PointerShape(buf []byte) (PointerShapeInfo, int, error) {
	if len(buf) == 0 {
		return PointerShapeInfo{}, 0, &Error{Kind: KindInvalidRequest, Op: "GetFramePointerShape", Err: errors.New("empty buffer")}
	}
	var required uint32
	var si dxgiPointerShapeInfo
	hr := comCall(d.ptr, dxgiDuplGetFramePointerShape,
		uintptr(len(buf)),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&required)),
		uintptr(unsafe.Pointer(&si)),
	)
	if err := statusError("GetFramePointerShape", hr); err != nil {
		return PointerShapeInfo{}, 0, err
	}
	return PointerShapeInfo{
		Type:    si.Type,
		Width:   si.Width,
		Height:  si.Height,
		Pitch:   si.Pitch,
		HotSpot: image.Pt(int(si.HotSpotX), int(si.HotSpotY)),
	}, int(required), nil
}

type nativeResource struct{ comObject }

func (r *nativeResource) Texture() (Texture, error) {
	tex, err := comQuery(r.ptr, iidID3D11Texture2D, "QueryInterface ID3D11Texture2D")
	if err != nil {
		return nil, err
	}
	return &nativeTexture{comObject{tex}}, nil
}

type nativeTexture struct{ comObject }

func (t *nativeTexture) Desc() TextureDesc {
	var desc TextureDesc
	comCallVoid(t.ptr, d3d11Texture2DGetDesc, uintptr(unsafe.Pointer(&desc)))
	return desc
}

func (t *nativeTexture) SetEvictionPriority(priority uint32) {
	comCallVoid(t.ptr, d3d11ResourceSetEvictionPrio, uintptr(priority))
}

func (t *nativeTexture) Surface() (Surface, error) {
	s, err := comQuery(t.ptr, iidIDXGISurface, "QueryInterface IDXGISurface")
	if err != nil {
		return nil, err
	}
	return &nativeSurface{comObject{s}}, nil
}

type nativeSurface struct{ comObject }

func (s *nativeSurface) Map() (MappedRect, error) {
	var r dxgiMappedRect
	hr := comCall(s.ptr, dxgiSurfaceMap, uintptr(unsafe.Pointer(&r)), dxgiMapRead)
	if err := statusError("IDXGISurface::Map", hr); err != nil {
		return MappedRect{}, err
	}
	return mappedRect(r), nil
}

func (s *nativeSurface) Unmap() error {
	return statusError("IDXGISurface::Unmap", comCall(s.ptr, dxgiSurfaceUnmap))
}

func mappedRect(r dxgiMappedRect) MappedRect {
	return MappedRect{
		Pitch: int(r.Pitch),
		Bits:  (*byte)(unsafe.Pointer(r.PBits)),
	}
}
