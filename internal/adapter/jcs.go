package adapter

import "github.com/gowebpki/jcs"

// JCS canonicalizes JSON per RFC 8785. Event payloads are canonicalized so
// independent executions of the same transaction produce byte-identical
// payloads.
type JCS interface {
	Transform(data []byte) ([]byte, error)
}

// RealJCS implements JCS using the gowebpki/jcs package
type RealJCS struct{}

// NewJCS creates a new real JCS implementation
func NewJCS() JCS {
	return &RealJCS{}
}

func (j *RealJCS) Transform(data []byte) ([]byte, error) {
	return jcs.Transform(data)
}
