package desktop

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-ole/go-ole"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		hr   uint32
		want ErrorKind
	}{
		{dxgiErrAccessLost, KindSessionInvalidated},
		{dxgiErrSessionDisconnected, KindSessionInvalidated},
		{dxgiErrDeviceRemoved, KindSessionInvalidated},
		{dxgiErrDeviceReset, KindSessionInvalidated},
		{dxgiErrWaitTimeout, KindTimedOut},
		{dxgiErrInvalidCall, KindInvalidRequest},
		{hrInvalidArg, KindInvalidRequest},
		{hrAccessDenied, KindPermissionDenied},
		{dxgiErrUnsupported, KindUnsupported},
		{hrNoInterface, KindUnsupported},
		{dxgiErrNotCurrentlyAvailable, KindTemporarilyUnavailable},
		{dxgiErrWasStillDrawing, KindTemporarilyUnavailable},
		{0x80004005, KindUnclassified}, // E_FAIL
		{dxgiErrNotFound, KindUnclassified},
	}
	for _, tc := range cases {
		if got := classify(tc.hr); got != tc.want {
			t.Errorf("classify(0x%08X) = %s, want %s", tc.hr, got, tc.want)
		}
	}
}

func TestStatusErrorSuccessCodes(t *testing.T) {
	for _, hr := range []uint32{0, 1, 0x087A0001} {
		if err := statusError("Op", hr); err != nil {
			t.Fatalf("statusError(0x%08X) = %v, want nil", hr, err)
		}
	}
}

func TestStatusErrorCarriesCode(t *testing.T) {
	err := statusError("AcquireNextFrame", dxgiErrWaitTimeout)

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if e.Op != "AcquireNextFrame" || e.Code != dxgiErrWaitTimeout || e.Kind != KindTimedOut {
		t.Fatalf("unexpected error fields: %+v", e)
	}
	if !strings.Contains(err.Error(), "AcquireNextFrame: timed out (0x887A0027)") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	var oe *ole.OleError
	if !errors.As(err, &oe) {
		t.Fatal("expected wrapped ole.OleError")
	}
	if oe.Code() != uintptr(dxgiErrWaitTimeout) {
		t.Fatalf("ole code = 0x%X", oe.Code())
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("pull frame: %w", statusError("AcquireNextFrame", dxgiErrAccessLost))
	if !errors.Is(err, ErrSessionInvalidated) {
		t.Fatal("expected ErrSessionInvalidated to match")
	}
	if errors.Is(err, ErrTimedOut) {
		t.Fatal("ErrTimedOut must not match a lost session")
	}
	if KindOf(err) != KindSessionInvalidated {
		t.Fatalf("KindOf = %s", KindOf(err))
	}
	if KindOf(errors.New("plain")) != KindUnclassified {
		t.Fatal("plain errors are unclassified")
	}
	if !errors.Is(ErrClosed, ErrInvalidRequest) {
		t.Fatal("ErrClosed should be an invalid request")
	}
	if errors.Is(ErrInvalidRequest, ErrClosed) {
		t.Fatal("a bare sentinel must not match ErrClosed")
	}
}

func TestRetryable(t *testing.T) {
	retry := map[ErrorKind]bool{
		KindTimedOut:               true,
		KindTemporarilyUnavailable: true,
		KindSessionInvalidated:     false,
		KindInvalidRequest:         false,
		KindPermissionDenied:       false,
		KindUnsupported:            false,
		KindUnclassified:           false,
	}
	for k, want := range retry {
		if k.Retryable() != want {
			t.Errorf("%s.Retryable() = %v", k, !want)
		}
	}
}

func TestTimeoutMillis(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want uint32
	}{
		{0, 0},
		{time.Nanosecond, 1},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 2},
		{2 * time.Second, 2000},
		{time.Duration(1<<62 - 1), maxTimeoutMs},
	}
	for _, tc := range cases {
		got, err := timeoutMillis(tc.in)
		if err != nil {
			t.Fatalf("timeoutMillis(%s): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("timeoutMillis(%s) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if _, err := timeoutMillis(-time.Millisecond); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("negative timeout: got %v", err)
	}
}
