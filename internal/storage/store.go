// Package storage persists the social store's collections as JSON payloads keyed by a stable name.
//
// Each key holds one whole collection (a JSON array) together with a revision counter.
// Writes are compare-and-swap on that revision so a writer that read a stale collection
// is rejected instead of silently overwriting a newer one.
package storage

import (
	"context"
	"errors"
)

// Collection keys shared with the rest of the app. The names are part of the on-device contract.
const (
	KeyLikedPosts     = "likedPosts"
	KeySavedPosts     = "savedPosts"
	KeyComments       = "comments"
	KeyNotifications  = "notifications"
	KeyFollowingUsers = "followingUsers"
)

var (
	// ErrNotFound indicates that the key has never been written.
	ErrNotFound = errors.New("storage: key not found")
	// ErrRevisionConflict indicates that the stored revision differs from the expected one.
	ErrRevisionConflict = errors.New("storage: revision conflict")
	// ErrInvalidKey indicates an empty collection key.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Record is a stored payload and the revision it was written at.
type Record struct {
	Payload  []byte
	Revision int64
}

// Store reads and writes whole collections.
//
// Write succeeds only when the current revision equals expectedRevision; zero means the key
// must not exist yet. It returns the new revision.
type Store interface {
	Read(ctx context.Context, key string) (Record, error)
	Write(ctx context.Context, key string, payload []byte, expectedRevision int64) (int64, error)
	Close() error
}
