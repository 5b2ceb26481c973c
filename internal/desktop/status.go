package desktop

import (
	"github.com/go-ole/go-ole"
)

// HRESULT values returned by DXGI and D3D11.
const (
	hrAccessDenied               uint32 = 0x80070005 // E_ACCESSDENIED
	hrInvalidArg                 uint32 = 0x80070057 // E_INVALIDARG
	hrNoInterface                uint32 = 0x80004002 // E_NOINTERFACE
	hrNotImpl                    uint32 = 0x80004001 // E_NOTIMPL
	dxgiErrInvalidCall           uint32 = 0x887A0001
	dxgiErrNotFound              uint32 = 0x887A0002
	dxgiErrUnsupported           uint32 = 0x887A0004
	dxgiErrDeviceRemoved         uint32 = 0x887A0005
	dxgiErrDeviceHung            uint32 = 0x887A0006
	dxgiErrDeviceReset           uint32 = 0x887A0007
	dxgiErrWasStillDrawing       uint32 = 0x887A000A
	dxgiErrNotCurrentlyAvailable uint32 = 0x887A0022
	dxgiErrAccessLost            uint32 = 0x887A0026
	dxgiErrWaitTimeout           uint32 = 0x887A0027
	dxgiErrSessionDisconnected   uint32 = 0x887A0028
)

// failed reports whether hr has the severity bit set.
func failed(hr uint32) bool {
	return int32(hr) < 0
}

// classify maps an HRESULT onto the closed set of error kinds.
func classify(hr uint32) ErrorKind {
	switch hr {
	case dxgiErrAccessLost, dxgiErrSessionDisconnected, dxgiErrDeviceRemoved, dxgiErrDeviceReset, dxgiErrDeviceHung:
		return KindSessionInvalidated
	case dxgiErrWaitTimeout:
		return KindTimedOut
	case dxgiErrInvalidCall, hrInvalidArg:
		return KindInvalidRequest
	case hrAccessDenied:
		return KindPermissionDenied
	case dxgiErrUnsupported, hrNoInterface, hrNotImpl:
		return KindUnsupported
	case dxgiErrNotCurrentlyAvailable, dxgiErrWasStillDrawing:
		return KindTemporarilyUnavailable
	default:
		return KindUnclassified
	}
}

// statusError converts the HRESULT of the named call into an error, or
// nil when the call succeeded.
func statusError(op string, hr uint32) error {
	if !failed(hr) {
		return nil
	}
	return &Error{
		Kind: classify(hr),
		Op:   op,
		Code: hr,
		Err:  ole.NewError(uintptr(hr)),
	}
}

// isNotFound reports whether err is the end-of-enumeration status.
func isNotFound(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == dxgiErrNotFound
}
