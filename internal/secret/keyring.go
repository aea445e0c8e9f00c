// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package secret

import (
	"errors"

	"github.com/samber/oops"
	"github.com/zalando/go-keyring"
)

// Keychain entry used by default.
const (
	DefaultService = "vfriends"
	DefaultAccount = "vrchat_auth_cookies"
)

// KeyringStore keeps the entry in the OS credential store.
type KeyringStore struct {
	service string
	account string
}

// NewKeyringStore creates a store for the given service/account pair.
func NewKeyringStore(service, account string) *KeyringStore {
	return &KeyringStore{service: service, account: account}
}

// Get implements Store.
func (s *KeyringStore) Get() (string, error) {
	value, err := keyring.Get(s.service, s.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", oops.Code("SECRET_KEYRING_GET").With("service", s.service).Wrap(err)
	}
	return value, nil
}

// Set implements Store.
func (s *KeyringStore) Set(value string) error {
	if err := keyring.Set(s.service, s.account, value); err != nil {
		return oops.Code("SECRET_KEYRING_SET").With("service", s.service).Wrap(err)
	}
	return nil
}

// Delete implements Store.
func (s *KeyringStore) Delete() error {
	err := keyring.Delete(s.service, s.account)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return oops.Code("SECRET_KEYRING_DELETE").With("service", s.service).Wrap(err)
}
