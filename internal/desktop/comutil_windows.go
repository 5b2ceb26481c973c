//go:build windows

package desktop

import (
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
)

// COM vtable calling helpers. Interface pointers are kept as uintptr and
// methods are reached through their fixed vtable slots.

// IUnknown / IDXGIObject / ID3D11DeviceChild slots.
const (
	vtblQueryInterface = 0
)

// comVtblFn resolves a COM vtable function pointer by index.
func comVtblFn(obj uintptr, idx int) uintptr {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// comCall invokes the vtable method at idx and returns its raw HRESULT.
func comCall(obj uintptr, idx int, args ...uintptr) uint32 {
	allArgs := make([]uintptr, 0, 1+len(args))
	allArgs = append(allArgs, obj)
	allArgs = append(allArgs, args...)
	ret, _, _ := syscall.SyscallN(comVtblFn(obj, idx), allArgs...)
	return uint32(ret)
}

// comCallVoid invokes a vtable method that has no HRESULT.
func comCallVoid(obj uintptr, idx int, args ...uintptr) {
	_ = comCall(obj, idx, args...)
}

func comUnknown(obj uintptr) *ole.IUnknown {
	return (*ole.IUnknown)(unsafe.Pointer(obj))
}

// comRelease calls IUnknown::Release.
func comRelease(obj uintptr) {
	if obj != 0 {
		comUnknown(obj).Release()
	}
}

// comAddRef calls IUnknown::AddRef.
func comAddRef(obj uintptr) {
	if obj != 0 {
		comUnknown(obj).AddRef()
	}
}

// comQuery calls IUnknown::QueryInterface. The out pointer is only read
// after the call reports success.
func comQuery(obj uintptr, iid *ole.GUID, op string) (uintptr, error) {
	var out uintptr
	hr := comCall(obj, vtblQueryInterface,
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&out)),
	)
	if err := statusError(op, hr); err != nil {
		return 0, err
	}
	return out, nil
}

// comObject is the shared Release for every wrapper.
type comObject struct {
	ptr uintptr
}

func (o *comObject) Release() {
	comRelease(o.ptr)
	o.ptr = 0
}
