package worldstate

import (
	"context"
	"strings"
)

// compositeKeySep namespaces composite keys; it cannot appear in owner ids.
const compositeKeySep = "\x00"

// WorldState is the key-value store a contract invocation reads and writes.
// A missing key yields a nil value and no error; absence semantics are the
// contract's concern.
type WorldState interface {
	GetState(ctx context.Context, key string) ([]byte, error)
	PutState(ctx context.Context, key string, value []byte) error
}

// Write is a single buffered world-state write.
type Write struct {
	Key   string
	Value []byte
}

// BatchWriter is implemented by world states that can apply a set of writes
// as one unit. The store-backed state uses a single database transaction;
// this is the commit boundary that makes paired balance writes atomic.
type BatchWriter interface {
	PutStates(ctx context.Context, writes []Write) error
}

// CompositeKey builds a namespaced key from an object type prefix and
// attribute segments.
func CompositeKey(prefix string, attrs ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, attr := range attrs {
		b.WriteString(compositeKeySep)
		b.WriteString(attr)
	}
	return b.String()
}
