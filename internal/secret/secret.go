// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package secret persists the session cookie header between runs. Exactly
// one named entry is managed per store.
package secret

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound means no entry is stored. Callers treat it as "logged out",
// never as a failure.
var ErrNotFound = errors.New("secret: no entry")

// Store is durable storage for one credential entry.
type Store interface {
	// Get returns the stored value or ErrNotFound.
	Get() (string, error)
	// Set replaces the stored value.
	Set(value string) error
	// Delete removes the entry. Deleting an absent entry is not an error.
	Delete() error
}

// Backend names accepted by Open.
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

// OpenOptions selects and configures a backend.
type OpenOptions struct {
	Backend      string
	File         string
	IdentityFile string
}

// Open returns the store for opts.Backend.
func Open(opts OpenOptions) (Store, error) {
	switch opts.Backend {
	case BackendKeyring, "":
		return NewKeyringStore(DefaultService, DefaultAccount), nil
	case BackendFile:
		return NewFileStore(opts.File, opts.IdentityFile)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, oops.Code("SECRET_BACKEND").
			With("backend", opts.Backend).
			Errorf("unknown secret backend %q", opts.Backend)
	}
}
