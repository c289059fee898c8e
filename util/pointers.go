package util

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}

// ValueOr returns *p, or fallback when p is nil. Optional settings use it to
// keep the current value for any bound the caller left unset.
func ValueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
