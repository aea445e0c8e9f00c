// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package secret

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"filippo.io/age"
	"github.com/google/renameio/v2"
	"github.com/samber/oops"

	"github.com/vfriends/vfriends/internal/xdg"
)

// FileStore seals the entry with age to a local X25519 identity. The
// identity is generated on the first Set and reused afterwards.
type FileStore struct {
	path         string
	identityPath string

	mu sync.Mutex
}

// NewFileStore creates a store sealing to identityPath and writing path.
func NewFileStore(path, identityPath string) (*FileStore, error) {
	if path == "" || identityPath == "" {
		return nil, oops.Code("SECRET_FILE_CONFIG").Errorf("file store requires both a data path and an identity path")
	}
	return &FileStore{path: path, identityPath: identityPath}, nil
}

// Get implements Store.
func (s *FileStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", oops.Code("SECRET_FILE_READ").With("path", s.path).Wrap(err)
	}

	identity, err := s.loadIdentity()
	if err != nil {
		return "", err
	}

	reader, err := age.Decrypt(bytes.NewReader(sealed), identity)
	if err != nil {
		return "", oops.Code("SECRET_FILE_DECRYPT").With("path", s.path).Wrap(err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return "", oops.Code("SECRET_FILE_DECRYPT").With("path", s.path).Wrap(err)
	}
	return string(plaintext), nil
}

// Set implements Store.
func (s *FileStore) Set(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.loadIdentity()
	if errors.Is(err, ErrNotFound) {
		identity, err = s.createIdentity()
	}
	if err != nil {
		return err
	}

	var sealed bytes.Buffer
	w, err := age.Encrypt(&sealed, identity.Recipient())
	if err != nil {
		return oops.Code("SECRET_FILE_ENCRYPT").Wrap(err)
	}
	if _, err := io.WriteString(w, value); err != nil {
		return oops.Code("SECRET_FILE_ENCRYPT").Wrap(err)
	}
	if err := w.Close(); err != nil {
		return oops.Code("SECRET_FILE_ENCRYPT").Wrap(err)
	}

	if err := xdg.EnsureDir(filepath.Dir(s.path)); err != nil {
		return oops.Code("SECRET_FILE_WRITE").With("path", s.path).Wrap(err)
	}
	if err := renameio.WriteFile(s.path, sealed.Bytes(), 0o600); err != nil {
		return oops.Code("SECRET_FILE_WRITE").With("path", s.path).Wrap(err)
	}
	return nil
}

// Delete implements Store. The identity is kept.
func (s *FileStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("SECRET_FILE_DELETE").With("path", s.path).Wrap(err)
	}
	return nil
}

func (s *FileStore) loadIdentity() (*age.X25519Identity, error) {
	data, err := os.ReadFile(s.identityPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("SECRET_IDENTITY_READ").With("path", s.identityPath).Wrap(err)
	}
	identity, err := age.ParseX25519Identity(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, oops.Code("SECRET_IDENTITY_PARSE").With("path", s.identityPath).Wrap(err)
	}
	return identity, nil
}

func (s *FileStore) createIdentity() (*age.X25519Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, oops.Code("SECRET_IDENTITY_CREATE").Wrap(err)
	}
	if err := xdg.EnsureDir(filepath.Dir(s.identityPath)); err != nil {
		return nil, oops.Code("SECRET_IDENTITY_CREATE").With("path", s.identityPath).Wrap(err)
	}
	if err := renameio.WriteFile(s.identityPath, []byte(identity.String()+"\n"), 0o600); err != nil {
		return nil, oops.Code("SECRET_IDENTITY_CREATE").With("path", s.identityPath).Wrap(err)
	}
	return identity, nil
}
