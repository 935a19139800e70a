package backend

// unavailableError signals that no real compute runtime was compiled into
// this binary (missing 'yzma' build tag).
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing compute runtime.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
