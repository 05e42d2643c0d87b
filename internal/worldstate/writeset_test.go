package worldstate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeKey(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		attrs    []string
		expected string
	}{
		{
			name:     "single attribute",
			prefix:   "balance",
			attrs:    []string{"alice"},
			expected: "balance\x00alice",
		},
		{
			name:     "no attributes",
			prefix:   "totalSupply",
			attrs:    nil,
			expected: "totalSupply",
		},
		{
			name:     "multiple attributes",
			prefix:   "balance",
			attrs:    []string{"org1", "alice"},
			expected: "balance\x00org1\x00alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompositeKey(tt.prefix, tt.attrs...))
		})
	}
}

func TestMemStateMissingKey(t *testing.T) {
	ctx := context.Background()
	state := NewMemState()

	value, err := state.GetState(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestWriteSetReadsOwnWrites(t *testing.T) {
	ctx := context.Background()
	state := NewMemState()
	require.NoError(t, state.PutState(ctx, "a", []byte("1")))

	ws := NewWriteSet(state)

	// Falls through to backing state
	value, err := ws.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), value)

	// Buffered write shadows the backing value
	require.NoError(t, ws.PutState(ctx, "a", []byte("2")))
	value, err = ws.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), value)

	// Backing state untouched before commit
	value, err = state.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), value)
}

func TestWriteSetCommit(t *testing.T) {
	ctx := context.Background()
	state := NewMemState()
	ws := NewWriteSet(state)

	require.NoError(t, ws.PutState(ctx, "a", []byte("1")))
	require.NoError(t, ws.PutState(ctx, "b", []byte("2")))
	require.NoError(t, ws.PutState(ctx, "a", []byte("3"))) // overwrite keeps order

	writes := ws.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, "a", writes[0].Key)
	assert.Equal(t, []byte("3"), writes[0].Value)
	assert.Equal(t, "b", writes[1].Key)

	require.NoError(t, ws.Commit(ctx))

	value, err := state.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), value)
	value, err = state.GetState(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), value)
}

func TestWriteSetDiscard(t *testing.T) {
	ctx := context.Background()
	state := NewMemState()
	ws := NewWriteSet(state)

	require.NoError(t, ws.PutState(ctx, "a", []byte("1")))
	ws.Discard()

	require.NoError(t, ws.Commit(ctx))
	assert.Equal(t, 0, state.Len())
}
