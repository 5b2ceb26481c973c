package desktop

import (
	"errors"
	"image"
	"testing"
)

func outputs(rects ...image.Rectangle) []fakeOutputSpec {
	var specs []fakeOutputSpec
	for _, r := range rects {
		specs = append(specs, fakeOutputSpec{name: `\\.\DISPLAY`, rect: r})
	}
	return specs
}

func TestEnumerateCountsAcrossAdapters(t *testing.T) {
	a := newFakeAPI(
		fakeAdapterSpec{outputs: outputs(image.Rect(0, 0, 1920, 1080), image.Rect(1920, 0, 3200, 1024))},
		fakeAdapterSpec{},
		fakeAdapterSpec{outputs: outputs(image.Rect(-1280, 0, 0, 1024))},
	)

	ds, err := EnumerateDisplays(a)
	if err != nil {
		t.Fatalf("EnumerateDisplays: %v", err)
	}
	displays := ds.Collect()
	if len(displays) != 3 {
		t.Fatalf("got %d displays, want 3", len(displays))
	}

	wantSize := [][2]int{{1920, 1080}, {1280, 1024}, {1280, 1024}}
	for i, d := range displays {
		if d.ID() != OutputID(i) {
			t.Errorf("display %d has id %d", i, d.ID())
		}
		if d.Width() <= 0 || d.Height() <= 0 {
			t.Errorf("display %d has empty size %dx%d", i, d.Width(), d.Height())
		}
		if d.Width() != wantSize[i][0] || d.Height() != wantSize[i][1] {
			t.Errorf("display %d size %dx%d, want %v", i, d.Width(), d.Height(), wantSize[i])
		}
		if d.Width() != d.Bounds().Dx() || d.Height() != d.Bounds().Dy() {
			t.Errorf("display %d size disagrees with bounds %v", i, d.Bounds())
		}
	}

	if _, ok := ds.Next(); ok {
		t.Fatal("finished enumeration yielded another display")
	}
	closeAll(displays)
	a.checkClean(t)
}

func TestEnumerateSharesAdapterReference(t *testing.T) {
	a := newFakeAPI(fakeAdapterSpec{outputs: outputs(image.Rect(0, 0, 800, 600), image.Rect(800, 0, 1600, 600))})

	ds, err := EnumerateDisplays(a)
	if err != nil {
		t.Fatalf("EnumerateDisplays: %v", err)
	}
	displays := ds.Collect()
	adapter := a.find("adapter0")
	if adapter == nil || adapter.refs != 2 {
		t.Fatalf("adapter refs after enumeration = %+v, want 2", adapter)
	}

	displays[0].Close()
	displays[0].Close()
	if adapter.refs != 1 {
		t.Fatalf("adapter refs after one close = %d, want 1", adapter.refs)
	}
	displays[1].Close()
	a.checkClean(t)
}

func TestEnumerateAbandonsAdapterOnOutputFailure(t *testing.T) {
	bad := outputs(image.Rect(0, 0, 10, 10), image.Rect(10, 0, 20, 10), image.Rect(20, 0, 30, 10))
	bad[1].dupErr = statusError("QueryInterface", hrNoInterface)

	descFail := outputs(image.Rect(0, 0, 10, 10), image.Rect(10, 0, 20, 10))
	descFail[0].descErr = statusError("GetDesc", 0x80004005)

	a := newFakeAPI(
		fakeAdapterSpec{outputs: bad},
		fakeAdapterSpec{outputs: descFail},
		fakeAdapterSpec{outputs: outputs(image.Rect(0, 0, 10, 10))},
	)

	ds, err := EnumerateDisplays(a)
	if err != nil {
		t.Fatalf("EnumerateDisplays: %v", err)
	}
	displays := ds.Collect()
	// adapter0 yields its first output only, adapter1 nothing, adapter2 one.
	if len(displays) != 2 {
		t.Fatalf("got %d displays, want 2", len(displays))
	}
	if displays[1].ID() != 1 {
		t.Fatalf("second display id = %d, want 1", displays[1].ID())
	}
	closeAll(displays)
	a.checkClean(t)
}

func TestEnumerateStopsOnAdapterFailure(t *testing.T) {
	a := newFakeAPI(
		fakeAdapterSpec{outputs: outputs(image.Rect(0, 0, 10, 10))},
		fakeAdapterSpec{enumErr: statusError("EnumAdapters1", hrAccessDenied)},
		fakeAdapterSpec{outputs: outputs(image.Rect(0, 0, 10, 10))},
	)

	ds, err := EnumerateDisplays(a)
	if err != nil {
		t.Fatalf("EnumerateDisplays: %v", err)
	}
	displays := ds.Collect()
	if len(displays) != 1 {
		t.Fatalf("got %d displays, want 1", len(displays))
	}
	closeAll(displays)
	a.checkClean(t)
}

func TestEnumerateNoAdapters(t *testing.T) {
	a := newFakeAPI()
	ds, err := EnumerateDisplays(a)
	if err != nil {
		t.Fatalf("EnumerateDisplays: %v", err)
	}
	if d, ok := ds.Next(); ok || d != nil {
		t.Fatal("expected empty enumeration")
	}
	ds.Close()
	a.checkClean(t)
}

func TestEnumerateFactoryFailure(t *testing.T) {
	a := newFakeAPI()
	a.factoryErr = statusError("CreateDXGIFactory1", hrAccessDenied)
	if _, err := EnumerateDisplays(a); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("got %v, want permission denied", err)
	}
}

func TestEnumerateEarlyBreak(t *testing.T) {
	a := newFakeAPI(fakeAdapterSpec{outputs: outputs(image.Rect(0, 0, 10, 10), image.Rect(10, 0, 20, 10))})

	ds, err := EnumerateDisplays(a)
	if err != nil {
		t.Fatalf("EnumerateDisplays: %v", err)
	}
	var first *Display
	for d := range ds.All() {
		first = d
		break
	}
	ds.Close()
	ds.Close()
	if first == nil {
		t.Fatal("expected one display")
	}
	first.Close()
	a.checkClean(t)
}

func TestDisplayDescription(t *testing.T) {
	a := newFakeAPI(fakeAdapterSpec{outputs: []fakeOutputSpec{{
		name:     `\\.\DISPLAY2`,
		rect:     image.Rect(-1080, -200, 0, 1720),
		rotation: Rotation90,
	}}})

	ds, err := EnumerateDisplays(a)
	if err != nil {
		t.Fatalf("EnumerateDisplays: %v", err)
	}
	displays := ds.Collect()
	defer closeAll(displays)

	d := displays[0]
	if d.Name() != `\\.\DISPLAY2` {
		t.Fatalf("Name() = %q", d.Name())
	}
	if d.Rotation() != Rotation90 || d.Rotation().String() != "rotate90" {
		t.Fatalf("Rotation() = %v", d.Rotation())
	}
	if d.Width() != 1080 || d.Height() != 1920 {
		t.Fatalf("size = %dx%d", d.Width(), d.Height())
	}
	if !d.Attached() {
		t.Fatal("expected attached output")
	}
	if got := d.String(); got != `\\.\DISPLAY2 1080x1920@(-1080,-200) rotate90` {
		t.Fatalf("String() = %q", got)
	}
}
