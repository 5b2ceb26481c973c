package desktop

import (
	"fmt"
	"image"
	"sort"
	"testing"
	"unicode/utf16"
)

// The fake backend below stands in for DXGI/D3D11. Every object it hands
// out is reference counted so tests can assert that the engine releases
// exactly what it acquires.

type fakeObj struct {
	api  *fakeAPI
	name string
	refs int
}

func (o *fakeObj) AddRef() { o.refs++ }

func (o *fakeObj) Release() {
	o.refs--
	if o.refs < 0 {
		o.api.overReleased = append(o.api.overReleased, o.name)
	}
}

type fakeOutputSpec struct {
	name     string
	rect     image.Rectangle
	rotation Rotation
	enumErr  error
	descErr  error
	dupErr   error
}

type fakeAdapterSpec struct {
	enumErr error
	outputs []fakeOutputSpec
}

type fakeAPI struct {
	adapters []fakeAdapterSpec

	factoryErr   error
	deviceErr    error
	duplicateErr error
	stagingErr   error

	// Native desktop surface.
	fastlane     bool
	width        int
	height       int
	pitch        int
	stagingPitch int
	format       uint32
	desktop      []byte

	pending     int
	alwaysNew   bool
	acquireErr  error
	info        FrameInfo
	lastTimeout uint32
	acquires    int

	shape      []byte
	shapeInfo  PointerShapeInfo
	shapeErr   error
	shapeCalls int

	copies       int
	lastStaging  *fakeTexture
	objects      []*fakeObj
	overReleased []string
	violations   []string
}

func newFakeAPI(adapters ...fakeAdapterSpec) *fakeAPI {
	return &fakeAPI{adapters: adapters, format: formatB8G8R8A8}
}

// newCaptureAPI builds one adapter with an output per rect. The native
// surface matches the first rect, with padded rows and a pixel pattern of
// B=x, G=y, R=0x80.
func newCaptureAPI(rects ...image.Rectangle) *fakeAPI {
	var outputs []fakeOutputSpec
	for i, r := range rects {
		outputs = append(outputs, fakeOutputSpec{
			name:     fmt.Sprintf(`\\.\DISPLAY%d`, i+1),
			rect:     r,
			rotation: RotationIdentity,
		})
	}
	a := newFakeAPI(fakeAdapterSpec{outputs: outputs})
	a.width, a.height = rects[0].Dx(), rects[0].Dy()
	a.pitch = a.width*bytesPerPixel + 32
	a.stagingPitch = a.width*bytesPerPixel + 64
	a.fillDesktop()
	return a
}

func (a *fakeAPI) fillDesktop() {
	a.desktop = make([]byte, a.height*a.pitch)
	for y := 0; y < a.height; y++ {
		for x := 0; x < a.width; x++ {
			i := y*a.pitch + x*bytesPerPixel
			a.desktop[i] = byte(x)
			a.desktop[i+1] = byte(y)
			a.desktop[i+2] = 0x80
			a.desktop[i+3] = 0xFF
		}
		for i := y*a.pitch + a.width*bytesPerPixel; i < (y+1)*a.pitch; i++ {
			a.desktop[i] = 0xEE
		}
	}
}

func (a *fakeAPI) track(name string) *fakeObj {
	o := &fakeObj{api: a, name: name, refs: 1}
	a.objects = append(a.objects, o)
	return o
}

func (a *fakeAPI) violate(format string, args ...any) {
	a.violations = append(a.violations, fmt.Sprintf(format, args...))
}

func (a *fakeAPI) live() []string {
	var names []string
	for _, o := range a.objects {
		if o.refs > 0 {
			names = append(names, o.name)
		}
	}
	sort.Strings(names)
	return names
}

func (a *fakeAPI) liveCount(name string) int {
	n := 0
	for _, o := range a.objects {
		if o.name == name && o.refs > 0 {
			n++
		}
	}
	return n
}

func (a *fakeAPI) find(name string) *fakeObj {
	for _, o := range a.objects {
		if o.name == name {
			return o
		}
	}
	return nil
}

// checkClean fails the test if any native object is still referenced,
// was released too often, or saw a protocol violation.
func (a *fakeAPI) checkClean(t *testing.T) {
	t.Helper()
	if live := a.live(); len(live) > 0 {
		t.Fatalf("leaked native objects: %v", live)
	}
	if len(a.overReleased) > 0 {
		t.Fatalf("over-released native objects: %v", a.overReleased)
	}
	if len(a.violations) > 0 {
		t.Fatalf("protocol violations: %v", a.violations)
	}
}

func (a *fakeAPI) CreateFactory() (Factory, error) {
	if a.factoryErr != nil {
		return nil, a.factoryErr
	}
	return &fakeFactory{a.track("factory")}, nil
}

func (a *fakeAPI) CreateDevice(adapter Adapter) (Device, error) {
	if ad, ok := adapter.(*fakeAdapter); !ok || ad.refs <= 0 {
		a.violate("device created on a released adapter")
	}
	if a.deviceErr != nil {
		return nil, a.deviceErr
	}
	return &fakeDevice{a.track("device")}, nil
}

type fakeFactory struct{ *fakeObj }

func (f *fakeFactory) EnumAdapter(index uint32) (Adapter, error) {
	if int(index) >= len(f.api.adapters) {
		return nil, statusError("EnumAdapters1", dxgiErrNotFound)
	}
	def := f.api.adapters[index]
	if def.enumErr != nil {
		return nil, def.enumErr
	}
	return &fakeAdapter{fakeObj: f.api.track(fmt.Sprintf("adapter%d", index)), def: def}, nil
}

type fakeAdapter struct {
	*fakeObj
	def fakeAdapterSpec
}

func (ad *fakeAdapter) EnumOutput(index uint32) (Output, error) {
	if int(index) >= len(ad.def.outputs) {
		return nil, statusError("EnumOutputs", dxgiErrNotFound)
	}
	def := ad.def.outputs[index]
	if def.enumErr != nil {
		return nil, def.enumErr
	}
	return &fakeOutput{fakeObj: ad.api.track("output"), def: def}, nil
}

type fakeOutput struct {
	*fakeObj
	def fakeOutputSpec
}

func (o *fakeOutput) Desc() (OutputDesc, error) {
	if o.def.descErr != nil {
		return OutputDesc{}, o.def.descErr
	}
	desc := OutputDesc{
		DesktopCoordinates: o.def.rect,
		AttachedToDesktop:  true,
		Rotation:           o.def.rotation,
	}
	copy(desc.DeviceName[:], utf16.Encode([]rune(o.def.name)))
	return desc, nil
}

func (o *fakeOutput) Duplicable() (DuplicableOutput, error) {
	if o.def.dupErr != nil {
		return nil, o.def.dupErr
	}
	return &fakeOutput1{o.api.track("output1")}, nil
}

type fakeOutput1 struct{ *fakeObj }

func (o *fakeOutput1) Duplicate(device Device) (Duplication, error) {
	if d, ok := device.(*fakeDevice); !ok || d.refs <= 0 {
		o.api.violate("duplicate on a released device")
	}
	if o.api.duplicateErr != nil {
		return nil, o.api.duplicateErr
	}
	return &fakeDuplication{fakeObj: o.api.track("duplication")}, nil
}

type fakeDevice struct{ *fakeObj }

func (d *fakeDevice) CreateTexture2D(desc TextureDesc) (Texture, error) {
	if d.api.stagingErr != nil {
		return nil, d.api.stagingErr
	}
	if desc.Usage != usageStaging || desc.CPUAccessFlags != cpuAccessRead || desc.BindFlags != 0 || desc.MiscFlags != 0 {
		d.api.violate("texture is not a CPU-readable staging texture: %+v", desc)
	}
	if prev := d.api.lastStaging; prev != nil && prev.priority != evictionPriorityMaximum {
		d.api.violate("staging texture left at eviction priority %#x", prev.priority)
	}
	tex := &fakeTexture{
		fakeObj: d.api.track("staging"),
		desc:    desc,
		pitch:   d.api.stagingPitch,
		pix:     make([]byte, int(desc.Height)*d.api.stagingPitch),
	}
	d.api.lastStaging = tex
	return tex, nil
}

func (d *fakeDevice) CopyResource(dst, src Texture) {
	dt, st := dst.(*fakeTexture), src.(*fakeTexture)
	if dt.refs <= 0 || st.refs <= 0 {
		d.api.violate("CopyResource on a released texture")
		return
	}
	row := int(st.desc.Width) * bytesPerPixel
	for y := 0; y < int(st.desc.Height); y++ {
		copy(dt.pix[y*dt.pitch:y*dt.pitch+row], st.pix[y*st.pitch:y*st.pitch+row])
	}
	d.api.copies++
}

type fakeDuplication struct {
	*fakeObj
	held   bool
	mapped bool
}

func (d *fakeDuplication) Desc() DuplicationDesc {
	return DuplicationDesc{
		Width:                      d.api.width,
		Height:                     d.api.height,
		DesktopImageInSystemMemory: d.api.fastlane,
	}
}

func (d *fakeDuplication) AcquireNextFrame(timeoutMs uint32) (FrameInfo, Resource, error) {
	a := d.api
	a.lastTimeout = timeoutMs
	a.acquires++
	if d.held {
		a.violate("AcquireNextFrame with a frame still held")
		return FrameInfo{}, nil, statusError("AcquireNextFrame", dxgiErrInvalidCall)
	}
	if a.acquireErr != nil {
		return FrameInfo{}, nil, a.acquireErr
	}
	if !a.alwaysNew {
		if a.pending == 0 {
			return FrameInfo{}, nil, statusError("AcquireNextFrame", dxgiErrWaitTimeout)
		}
		a.pending--
	}
	d.held = true
	return a.info, &fakeResource{a.track("resource")}, nil
}

func (d *fakeDuplication) ReleaseFrame() error {
	if !d.held {
		d.api.violate("ReleaseFrame without a held frame")
		return statusError("ReleaseFrame", dxgiErrInvalidCall)
	}
	d.held = false
	return nil
}

func (d *fakeDuplication) MapDesktopSurface() (MappedRect, error) {
	if !d.api.fastlane {
		return MappedRect{}, statusError("MapDesktopSurface", dxgiErrUnsupported)
	}
	if !d.held || d.mapped {
		d.api.violate("MapDesktopSurface held=%v mapped=%v", d.held, d.mapped)
	}
	d.mapped = true
	return MappedRect{Pitch: d.api.pitch, Bits: &d.api.desktop[0]}, nil
}

func (d *fakeDuplication) UnmapDesktopSurface() error {
	if !d.mapped {
		d.api.violate("UnMapDesktopSurface without a mapping")
	}
	d.mapped = false
	return nil
}

func (d *fakeDuplication) PointerShape(buf []byte) (PointerShapeInfo, int, error) {
	a := d.api
	a.shapeCalls++
	if a.shapeErr != nil {
		return PointerShapeInfo{}, 0, a.shapeErr
	}
	if len(buf) < len(a.shape) {
		return PointerShapeInfo{}, 0, statusError("GetFramePointerShape", hrInvalidArg)
	}
	return a.shapeInfo, copy(buf, a.shape), nil
}

func (d *fakeDuplication) Release() {
	if d.held || d.mapped {
		d.api.violate("duplication released with a frame outstanding")
	}
	d.fakeObj.Release()
}

type fakeResource struct{ *fakeObj }

func (r *fakeResource) Texture() (Texture, error) {
	a := r.api
	return &fakeTexture{
		fakeObj: a.track("frameTexture"),
		desc: TextureDesc{
			Width:       uint32(a.width),
			Height:      uint32(a.height),
			MipLevels:   1,
			ArraySize:   1,
			Format:      a.format,
			SampleCount: 1,
			BindFlags:   0x20,  // D3D11_BIND_RENDER_TARGET
			MiscFlags:   0x200, // D3D11_RESOURCE_MISC_GDI_COMPATIBLE
		},
		pitch: a.pitch,
		pix:   a.desktop,
	}, nil
}

type fakeTexture struct {
	*fakeObj
	desc     TextureDesc
	pitch    int
	pix      []byte
	priority uint32
}

func (t *fakeTexture) Desc() TextureDesc { return t.desc }

func (t *fakeTexture) SetEvictionPriority(priority uint32) { t.priority = priority }

// Surface holds a reference on the texture, like the COM view it stands in
// for.
func (t *fakeTexture) Surface() (Surface, error) {
	t.AddRef()
	return &fakeSurface{fakeObj: t.api.track("surface"), tex: t}, nil
}

type fakeSurface struct {
	*fakeObj
	tex    *fakeTexture
	mapped bool
}

func (s *fakeSurface) Map() (MappedRect, error) {
	if s.mapped {
		s.api.violate("surface mapped twice")
	}
	s.mapped = true
	return MappedRect{Pitch: s.tex.pitch, Bits: &s.tex.pix[0]}, nil
}

func (s *fakeSurface) Unmap() error {
	if !s.mapped {
		s.api.violate("surface unmapped without a mapping")
	}
	s.mapped = false
	return nil
}

func (s *fakeSurface) Release() {
	if s.mapped {
		s.api.violate("surface released while mapped")
	}
	s.fakeObj.Release()
	if s.refs == 0 {
		s.tex.Release()
	}
}

func closeAll(displays []*Display) {
	for _, d := range displays {
		d.Close()
	}
}

// openCapturer enumerates a's displays and opens a Capturer on the one at
// index. The returned func closes the Capturer and every display.
func openCapturer(t *testing.T, a *fakeAPI, index int, trackCursor bool, opts ...Option) (*Capturer, []*Display, func()) {
	t.Helper()
	ds, err := EnumerateDisplays(a)
	if err != nil {
		t.Fatalf("EnumerateDisplays: %v", err)
	}
	displays := ds.Collect()
	if len(displays) <= index {
		closeAll(displays)
		t.Fatalf("got %d displays, want more than %d", len(displays), index)
	}
	c, err := NewCapturer(displays[index], trackCursor, opts...)
	if err != nil {
		closeAll(displays)
		t.Fatalf("NewCapturer: %v", err)
	}
	return c, displays, func() {
		c.Close()
		closeAll(displays)
	}
}
