package worldstate

import (
	"context"
)

// WriteSet buffers the writes of a single contract invocation. Reads are
// served from the buffer first and fall through to the backing state, so an
// invocation observes its own uncommitted writes. Nothing reaches the
// backing state until Commit; a failed invocation discards the buffer and
// leaves no partial state.
type WriteSet struct {
	backing WorldState
	writes  map[string][]byte
	order   []string
}

// NewWriteSet creates a write-set over the given backing state
func NewWriteSet(backing WorldState) *WriteSet {
	return &WriteSet{
		backing: backing,
		writes:  make(map[string][]byte),
	}
}

func (ws *WriteSet) GetState(ctx context.Context, key string) ([]byte, error) {
	if value, ok := ws.writes[key]; ok {
		out := make([]byte, len(value))
		copy(out, value)
		return out, nil
	}
	return ws.backing.GetState(ctx, key)
}

func (ws *WriteSet) PutState(_ context.Context, key string, value []byte) error {
	if _, ok := ws.writes[key]; !ok {
		ws.order = append(ws.order, key)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	ws.writes[key] = stored
	return nil
}

// Writes returns the buffered writes in first-write order
func (ws *WriteSet) Writes() []Write {
	out := make([]Write, 0, len(ws.order))
	for _, key := range ws.order {
		out = append(out, Write{Key: key, Value: ws.writes[key]})
	}
	return out
}

// Commit applies the buffered writes to the backing state. When the backing
// state supports batch application the writes land as one unit; otherwise
// they are applied sequentially, which is only safe under the runtime's
// serialized execution.
func (ws *WriteSet) Commit(ctx context.Context) error {
	writes := ws.Writes()
	if len(writes) == 0 {
		return nil
	}

	if bw, ok := ws.backing.(BatchWriter); ok {
		return bw.PutStates(ctx, writes)
	}

	for _, w := range writes {
		if err := ws.backing.PutState(ctx, w.Key, w.Value); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops the buffered writes
func (ws *WriteSet) Discard() {
	ws.writes = make(map[string][]byte)
	ws.order = nil
}
