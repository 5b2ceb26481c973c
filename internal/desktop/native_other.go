//go:build !windows

package desktop

// NativeAPI is only available on Windows.
func NativeAPI() (API, error) {
	return nil, ErrUnsupportedPlatform
}
