package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmerResolvesAndClears(t *testing.T) {
	c := NewConfirmer()

	result, err := c.Request("delete_chat", "Férias")
	require.NoError(t, err)
	require.NotNil(t, c.Pending())

	c.Resolve(true)
	assert.True(t, <-result)
	assert.Nil(t, c.Pending())
}

func TestConfirmerCancelAndSingleSlot(t *testing.T) {
	c := NewConfirmer()

	result, err := c.Request("delete_chat", "Reembolso")
	require.NoError(t, err)

	_, err = c.Request("delete_chat", "Outra")
	assert.ErrorIs(t, err, ErrConfirmationPending)

	c.Resolve(false)
	assert.False(t, <-result)

	// The slot is free again after resolution.
	_, err = c.Request("rename_chat", "Reembolso")
	require.NoError(t, err)
}
