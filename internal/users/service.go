package users

import (
	"errors"
	"sync"
)

// ErrInvalidIdentity indicates the identity did not contain a usable id or username.
var ErrInvalidIdentity = errors.New("users: invalid identity")

// DirectoryConfig describes the local user and the identities known up front.
type DirectoryConfig struct {
	Current Identity
	Known   []Identity
}

// Directory resolves user ids to identities. The local user stands in for the absent auth layer.
type Directory struct {
	current Identity
	cache   sync.Map
}

// NewDirectory validates the current identity and seeds the cache.
func NewDirectory(cfg DirectoryConfig) (*Directory, error) {
	current := clean(cfg.Current)
	if !current.Valid() {
		return nil, ErrInvalidIdentity
	}
	if current.DisplayName == "" {
		current.DisplayName = current.Username
	}
	directory := &Directory{current: current}
	for _, identity := range cfg.Known {
		_ = directory.Remember(identity)
	}
	directory.cache.Store(current.ID, current)
	return directory, nil
}

// Current returns the local user's identity.
func (d *Directory) Current() Identity {
	return d.current
}

// CurrentUserID returns the local user's id.
func (d *Directory) CurrentUserID() string {
	return d.current.ID
}

// IsCurrent reports whether id belongs to the local user.
func (d *Directory) IsCurrent(id string) bool {
	return normalize(id) == d.current.ID
}

// Lookup returns the cached identity for id.
func (d *Directory) Lookup(id string) (Identity, bool) {
	cached, ok := d.cache.Load(normalize(id))
	if !ok {
		return Identity{}, false
	}
	identity, ok := cached.(Identity)
	return identity, ok
}

// Remember caches an identity supplied by a screen. The local user cannot be overwritten.
func (d *Directory) Remember(identity Identity) error {
	identity = clean(identity)
	if !identity.Valid() {
		return ErrInvalidIdentity
	}
	if identity.ID == d.current.ID {
		return nil
	}
	if identity.DisplayName == "" {
		identity.DisplayName = identity.Username
	}
	d.cache.Store(identity.ID, identity)
	return nil
}

func clean(identity Identity) Identity {
	return Identity{
		ID:           normalize(identity.ID),
		Username:     normalize(identity.Username),
		DisplayName:  normalize(identity.DisplayName),
		ProfilePhoto: normalize(identity.ProfilePhoto),
	}
}
