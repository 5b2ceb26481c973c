package desktop

type releaser interface {
	Release()
}

// owned holds at most one native object and releases it at most once.
// Releasing an empty slot is a no-op.
type owned[T releaser] struct {
	v  T
	ok bool
}

func (o *owned[T]) set(v T) {
	o.release()
	o.v, o.ok = v, true
}

func (o *owned[T]) get() (T, bool) {
	return o.v, o.ok
}

// take hands ownership to the caller and empties the slot.
func (o *owned[T]) take() (T, bool) {
	v, ok := o.v, o.ok
	var zero T
	o.v, o.ok = zero, false
	return v, ok
}

func (o *owned[T]) release() {
	if v, ok := o.take(); ok {
		v.Release()
	}
}
