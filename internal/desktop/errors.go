package desktop

import (
	"errors"
	"fmt"
)

// ErrorKind is the semantic class of a capture failure. Callers decide
// between retrying, rebuilding the Capturer, or giving up based on it.
type ErrorKind int

const (
	// KindUnclassified covers every failure without a better mapping.
	// Treat it as potentially fatal.
	KindUnclassified ErrorKind = iota
	// KindSessionInvalidated means the duplication session is gone (mode
	// change, lock screen, session switch). Rebuild the Capturer.
	KindSessionInvalidated
	// KindTimedOut means no new frame arrived within the requested wait.
	KindTimedOut
	// KindInvalidRequest means the call or its arguments were malformed.
	KindInvalidRequest
	// KindPermissionDenied means the platform refused access.
	KindPermissionDenied
	// KindUnsupported means the requested configuration is not supported.
	KindUnsupported
	// KindTemporarilyUnavailable means the resource is busy; retry later.
	KindTemporarilyUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindSessionInvalidated:
		return "session invalidated"
	case KindTimedOut:
		return "timed out"
	case KindInvalidRequest:
		return "invalid request"
	case KindPermissionDenied:
		return "permission denied"
	case KindUnsupported:
		return "unsupported"
	case KindTemporarilyUnavailable:
		return "temporarily unavailable"
	default:
		return "unclassified"
	}
}

// Retryable reports whether the same Capturer may be polled again.
func (k ErrorKind) Retryable() bool {
	return k == KindTimedOut || k == KindTemporarilyUnavailable
}

// Error is a classified platform failure.
type Error struct {
	Kind ErrorKind
	// Op names the native call that failed, e.g. "AcquireNextFrame".
	Op string
	// Code is the raw HRESULT, zero when the failure did not come from
	// the platform.
	Code uint32
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(" (0x%08X)", e.Code)
	}
	if e.Err != nil {
		if s := e.Err.Error(); s != "" {
			msg += ": " + s
		}
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when the target carries no
// operation or code, which is how the Err* sentinels are built.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Code == 0 && t.Err == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

// Sentinels for errors.Is checks.
var (
	ErrSessionInvalidated     = &Error{Kind: KindSessionInvalidated}
	ErrTimedOut               = &Error{Kind: KindTimedOut}
	ErrInvalidRequest         = &Error{Kind: KindInvalidRequest}
	ErrPermissionDenied       = &Error{Kind: KindPermissionDenied}
	ErrUnsupported            = &Error{Kind: KindUnsupported}
	ErrTemporarilyUnavailable = &Error{Kind: KindTemporarilyUnavailable}
	ErrUnclassified           = &Error{Kind: KindUnclassified}
)

// ErrUnsupportedPlatform is returned by NativeAPI on platforms without
// DXGI Desktop Duplication.
var ErrUnsupportedPlatform = &Error{Kind: KindUnsupported, Op: "NativeAPI", Err: errors.New("desktop duplication requires windows")}

// ErrClosed is returned when a Capturer is used after Close.
var ErrClosed = &Error{Kind: KindInvalidRequest, Op: "Frame", Err: errors.New("capturer is closed")}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnclassified when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}
