// Package lock serializes mutations per key.
package lock

import "context"

// Locker grants exclusive access to a key. Lock blocks until the key is free
// or ctx is done; the returned func releases it and is safe to call twice.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ProjectKey is the lock key for a project id.
func ProjectKey(id string) string { return "project:" + id }
