package profile

import "context"

// Store writes profile records. There is deliberately no read operation:
// nothing in this service consumes a record after it is written.
type Store interface {
	Put(ctx context.Context, record Record) error
}
