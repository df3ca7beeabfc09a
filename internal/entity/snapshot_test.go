package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotKeepsValueOnFailure(t *testing.T) {
	var fail bool
	n := 0
	snap := NewSnapshot("dashboard", func(context.Context) (int, error) {
		if fail {
			return 0, errors.New("gateway down")
		}
		n++
		return n, nil
	})

	_, ok := snap.Value()
	assert.False(t, ok)
	assert.Equal(t, Idle, snap.Status())

	require.NoError(t, snap.Load(context.Background()))
	v, ok := snap.Value()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	fail = true
	require.Error(t, snap.Load(context.Background()))
	assert.Equal(t, Failed, snap.Status())
	assert.Equal(t, "gateway down", snap.ErrorMessage())
	v, _ = snap.Value()
	assert.Equal(t, 1, v)

	fail = false
	require.NoError(t, snap.Load(context.Background()))
	v, _ = snap.Value()
	assert.Equal(t, 2, v)
	assert.Empty(t, snap.ErrorMessage())
}
