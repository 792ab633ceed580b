package driver

import "io"

// Port defines the byte-stream transport interface for the UART link.
// Reads are short polls: a read that hits the transport's timeout returns
// n=0 with a nil error, so callers loop against their own deadline.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}
