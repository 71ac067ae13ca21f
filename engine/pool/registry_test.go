package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(r *Registry[int]) []string {
	var out []string
	r.Each(func(name string, _ int) bool {
		out = append(out, name)
		return true
	})
	return out
}

func TestRegistryRefCounting(t *testing.T) {
	r := NewRegistry[int]()

	h, inserted := r.Acquire("a", 1)
	assert.True(t, inserted)
	h2, inserted := r.Acquire("a", 2)
	assert.False(t, inserted)
	assert.Equal(t, h, h2)
	assert.Equal(t, 2, r.RefCount("a"))

	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v, "second acquire keeps the original record")

	erased, known := r.Release("a")
	assert.False(t, erased)
	assert.True(t, known)
	erased, _ = r.Release("a")
	assert.True(t, erased)
	assert.Equal(t, 0, r.RefCount("a"))
	assert.Equal(t, InvalidHandle, r.Handle("a"))

	_, known = r.Release("a")
	assert.False(t, known)
	assert.Equal(t, 0, r.RefCount("a"))
	assert.Zero(t, r.Len())
}

func TestRegistrySlotReuseAndOrder(t *testing.T) {
	r := NewRegistry[int]()
	r.Acquire("a", 1)
	r.Acquire("b", 2)
	r.Acquire("c", 3)
	r.Release("a")

	assert.Equal(t, []string{"b", "c"}, names(r))

	h, _ := r.Acquire("d", 4)
	assert.Equal(t, Handle(0), h, "freed slot is reused")
	assert.Equal(t, []string{"d", "b", "c"}, names(r))
	assert.Equal(t, 3, r.Len())

	var first []string
	r.Each(func(name string, _ int) bool {
		first = append(first, name)
		return false
	})
	assert.Equal(t, []string{"d"}, first)
}
