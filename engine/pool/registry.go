package pool

// Handle is a stable index into a Registry's slot arena. A handle stays valid until the
// record it names is erased; the slot may then be reused by a later insertion.
type Handle int32

// InvalidHandle is returned for unknown names.
const InvalidHandle Handle = -1

type registrySlot[T any] struct {
	name   string
	record T
	refs   int
	live   bool
}

// Registry is a reference-counted name to record map backed by a dense slot arena.
// Acquiring a known name only bumps its count; a record is erased when its count drops to zero.
// Iteration follows slot order, which is the order offsets are laid out in.
type Registry[T any] struct {
	slots []registrySlot[T]
	index map[string]Handle
	free  []Handle
}

// NewRegistry creates an empty Registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{index: make(map[string]Handle)}
}

// Acquire inserts record under name with a count of one, or increments the count of an
// existing entry and ignores record.
//
// Parameters:
//   - name: the registry key
//   - record: the record stored when name is new
//
// Returns:
//   - Handle: the entry's handle
//   - bool: true when the entry was inserted rather than incremented
func (r *Registry[T]) Acquire(name string, record T) (Handle, bool) {
	if h, ok := r.index[name]; ok {
		r.slots[h].refs++
		return h, false
	}

	var h Handle
	if n := len(r.free); n > 0 {
		h = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		h = Handle(len(r.slots))
		r.slots = append(r.slots, registrySlot[T]{})
	}
	r.slots[h] = registrySlot[T]{name: name, record: record, refs: 1, live: true}
	r.index[name] = h
	return h, true
}

// Release decrements the count of name and erases the entry when it reaches zero.
// Releasing an unknown name is a no-op, so counts never go negative.
//
// Returns:
//   - erased: true when this call removed the entry
//   - known: false when name was not registered
func (r *Registry[T]) Release(name string) (erased, known bool) {
	h, ok := r.index[name]
	if !ok {
		return false, false
	}
	s := &r.slots[h]
	s.refs--
	if s.refs > 0 {
		return false, true
	}
	*s = registrySlot[T]{}
	delete(r.index, name)
	r.free = append(r.free, h)
	return true, true
}

// Get returns the record stored under name.
func (r *Registry[T]) Get(name string) (T, bool) {
	h, ok := r.index[name]
	if !ok {
		var zero T
		return zero, false
	}
	return r.slots[h].record, true
}

// Handle returns the handle for name, or InvalidHandle.
func (r *Registry[T]) Handle(name string) Handle {
	if h, ok := r.index[name]; ok {
		return h
	}
	return InvalidHandle
}

// RefCount returns the count for name; zero when unknown.
func (r *Registry[T]) RefCount(name string) int {
	if h, ok := r.index[name]; ok {
		return r.slots[h].refs
	}
	return 0
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int {
	return len(r.index)
}

// Each calls fn for every live entry in slot order until fn returns false.
func (r *Registry[T]) Each(fn func(name string, record T) bool) {
	for i := range r.slots {
		s := &r.slots[i]
		if !s.live {
			continue
		}
		if !fn(s.name, s.record) {
			return
		}
	}
}
