// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package settings

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"

	"github.com/vfriends/vfriends/internal/xdg"
	"github.com/vfriends/vfriends/pkg/errutil"
)

// Store holds the current settings snapshot for one file.
type Store struct {
	path   string
	logger *slog.Logger
	group  singleflight.Group

	mu      sync.RWMutex
	current *Settings
}

// NewStore creates a store for path. Nothing is read until the first
// Snapshot or Reload.
func NewStore(path string) (*Store, error) {
	return NewStoreWithLogger(path, slog.New(slog.DiscardHandler))
}

// NewStoreWithLogger creates a store with a custom logger.
func NewStoreWithLogger(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, oops.Errorf("settings path is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Store{path: path, logger: logger}, nil
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a copy of the current settings, loading them first if
// needed. Concurrent first loads share one read of the file. A file that
// cannot be parsed yields the defaults.
func (s *Store) Snapshot(ctx context.Context) (*Settings, error) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if current != nil {
		return current.Clone(), nil
	}

	if err := s.Reload(ctx); err != nil {
		if oopsErr, ok := oops.AsOops(err); !ok || oopsErr.Code() != "SETTINGS_PARSE" {
			return nil, err
		}
		errutil.LogWarn(s.logger, "settings file unreadable, using defaults", err)
		s.mu.Lock()
		if s.current == nil {
			s.current = Default()
		}
		s.mu.Unlock()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone(), nil
}

// Reload re-reads the file. On error the previous snapshot is kept.
func (s *Store) Reload(ctx context.Context) error {
	ch := s.group.DoChan("load", func() (any, error) {
		loaded, err := s.read()
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.current = loaded
		s.mu.Unlock()
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) read() (*Settings, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, oops.Code("SETTINGS_READ").With("path", s.path).Wrap(err)
	}
	loaded, err := Decode(data, s.logger)
	if err != nil {
		return nil, oops.With("path", s.path).Wrap(err)
	}
	return loaded, nil
}

// UpdateFriend applies p to the friend's preferences (starting from an
// enabled entry when none exists) and saves the file.
func (s *Store) UpdateFriend(ctx context.Context, id string, p FriendPatch) (FriendSettings, error) {
	if id == "" {
		return FriendSettings{}, oops.Code("SETTINGS_FRIEND_ID").Errorf("friend id is required")
	}
	var updated FriendSettings
	err := s.update(ctx, func(next *Settings) {
		current, ok := next.Friends[id]
		if !ok {
			current = FriendSettings{Enabled: true}
		}
		updated = p.Apply(current)
		next.Friends[id] = updated
	})
	return updated, err
}

// UpdateDefaults applies p to the default template and sound and saves the
// file.
func (s *Store) UpdateDefaults(ctx context.Context, p DefaultsPatch) (*Settings, error) {
	var updated *Settings
	err := s.update(ctx, func(next *Settings) {
		if p.Message != nil {
			next.DefaultMessage = *p.Message
		}
		if p.Sound != nil {
			next.DefaultSound = normalize(*p.Sound)
		}
		updated = next.Clone()
	})
	return updated, err
}

// update swaps in the mutated snapshot before writing it. A failed write is
// returned but the in-memory change stays in effect.
func (s *Store) update(ctx context.Context, mutate func(*Settings)) error {
	if _, err := s.Snapshot(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	next := s.current.Clone()
	mutate(next)
	s.current = next
	data, err := Encode(next)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.write(data)
}

func (s *Store) write(data []byte) error {
	if err := xdg.EnsureDir(filepath.Dir(s.path)); err != nil {
		return oops.Code("SETTINGS_WRITE").With("path", s.path).Wrap(err)
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return oops.Code("SETTINGS_WRITE").With("path", s.path).Wrap(err)
	}
	return nil
}

// Watch reloads the snapshot whenever the file changes, until ctx is
// cancelled. The parent directory is watched so that atomic replacements
// and late creation are seen. Reload failures keep the previous snapshot.
func (s *Store) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := xdg.EnsureDir(dir); err != nil {
		return oops.Code("SETTINGS_WATCH").With("dir", dir).Wrap(err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return oops.Code("SETTINGS_WATCH").Wrap(err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return oops.Code("SETTINGS_WATCH").With("dir", dir).Wrap(err)
	}

	name := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) {
				continue
			}
			if err := s.Reload(ctx); err != nil {
				errutil.LogWarn(s.logger, "settings reload failed, keeping previous", err)
				continue
			}
			s.logger.Info("settings reloaded", "path", s.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			errutil.LogWarn(s.logger, "settings watcher error", err)
		}
	}
}
