//go:build !windows

package desktop

// Acquire always fails off Windows.
func Acquire() (*Session, error) {
	return nil, &SessionError{Op: "acquire", Err: ErrUnsupportedPlatform}
}
