package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageIDKinds(t *testing.T) {
	temp := NewTemporaryID()
	assert.True(t, temp.IsTemporary())
	assert.False(t, temp.IsPersisted())

	_, ok := temp.ServerID()
	assert.False(t, ok)

	persisted := NewPersistedID(42)
	assert.True(t, persisted.IsPersisted())
	id, ok := persisted.ServerID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestMessageIDEquality(t *testing.T) {
	a := NewTemporaryID()
	b := NewTemporaryID()

	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b), "temporary ids are unique within a session")

	p1 := NewPersistedID(7)
	p2 := NewPersistedID(7)
	assert.True(t, p1.Equal(p2))

	// A temporary id never compares equal to a persisted one, whatever the
	// underlying values.
	assert.False(t, a.Equal(p1))
	assert.False(t, p1.Equal(a))
}

func TestMessageIDString(t *testing.T) {
	assert.Equal(t, "42", NewPersistedID(42).String())
	assert.NotEmpty(t, NewTemporaryID().String())
}
