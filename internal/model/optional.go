package model

// Ptr returns a pointer to v. Optional profile fields are nil when absent.
func Ptr[T any](v T) *T { return &v }

// ValueOr dereferences p, or returns def when p is nil.
func ValueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
