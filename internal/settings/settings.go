// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package settings stores notification preferences: the default message
// template and sound, and per-friend overrides.
package settings

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"maps"
	"strings"

	"github.com/samber/oops"
	"github.com/tidwall/jsonc"
)

// DefaultMessage is the template used when nothing else is configured.
const DefaultMessage = "{name} is online"

// Settings is an immutable snapshot of the preferences.
type Settings struct {
	DefaultMessage string                    `json:"defaultMessage"`
	DefaultSound   string                    `json:"defaultSound,omitempty"`
	Friends        map[string]FriendSettings `json:"friendSettings"`
}

// FriendSettings are the preferences for one friend. Empty override
// strings mean "use the default".
type FriendSettings struct {
	Enabled         bool   `json:"enabled"`
	UseOverride     bool   `json:"useOverride"`
	MessageOverride string `json:"messageOverride,omitempty"`
	SoundOverride   string `json:"soundOverride,omitempty"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{
		DefaultMessage: DefaultMessage,
		Friends:        map[string]FriendSettings{},
	}
}

// Friend returns the preferences for id, if any were saved.
func (s *Settings) Friend(id string) (FriendSettings, bool) {
	f, ok := s.Friends[id]
	return f, ok
}

// Clone returns a deep copy of s.
func (s *Settings) Clone() *Settings {
	c := *s
	c.Friends = maps.Clone(s.Friends)
	if c.Friends == nil {
		c.Friends = map[string]FriendSettings{}
	}
	return &c
}

// FriendPatch changes selected fields of a friend's preferences. Override
// strings are trimmed and an empty value clears the override.
type FriendPatch struct {
	Enabled         *bool   `json:"enabled,omitempty"`
	UseOverride     *bool   `json:"useOverride,omitempty"`
	MessageOverride *string `json:"messageOverride,omitempty"`
	SoundOverride   *string `json:"soundOverride,omitempty"`
}

// Apply returns f with the patch applied.
func (p FriendPatch) Apply(f FriendSettings) FriendSettings {
	if p.Enabled != nil {
		f.Enabled = *p.Enabled
	}
	if p.UseOverride != nil {
		f.UseOverride = *p.UseOverride
	}
	if p.MessageOverride != nil {
		f.MessageOverride = normalize(*p.MessageOverride)
	}
	if p.SoundOverride != nil {
		f.SoundOverride = normalize(*p.SoundOverride)
	}
	return f
}

// DefaultsPatch changes the default template or sound. The template is kept
// verbatim; the sound is trimmed and an empty value clears it.
type DefaultsPatch struct {
	Message *string `json:"message,omitempty"`
	Sound   *string `json:"sound,omitempty"`
}

func normalize(s string) string {
	return strings.TrimSpace(s)
}

// fileFormat is the on-disk shape. Friend entries are decoded one by one so
// that legacy boolean entries and bad entries do not fail the whole file.
type fileFormat struct {
	DefaultMessage *string                    `json:"defaultMessage"`
	DefaultSound   string                     `json:"defaultSound"`
	Friends        map[string]json.RawMessage `json:"friendSettings"`
}

type friendFormat struct {
	Enabled         *bool  `json:"enabled"`
	UseOverride     bool   `json:"useOverride"`
	MessageOverride string `json:"messageOverride"`
	SoundOverride   string `json:"soundOverride"`
}

// Decode parses a settings document. Comments and trailing commas are
// tolerated. A friend entry may be an object or, in older files, a bare
// boolean meaning "enabled"; anything else is skipped with a warning.
func Decode(data []byte, logger *slog.Logger) (*Settings, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Default(), nil
	}

	var raw fileFormat
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, oops.Code("SETTINGS_PARSE").Wrap(err)
	}

	s := Default()
	if raw.DefaultMessage != nil {
		s.DefaultMessage = *raw.DefaultMessage
	}
	s.DefaultSound = normalize(raw.DefaultSound)

	for id, entry := range raw.Friends {
		f, ok := decodeFriend(entry)
		if !ok {
			logger.Warn("ignoring malformed friend settings", "friend_id", id)
			continue
		}
		s.Friends[id] = f
	}
	return s, nil
}

func decodeFriend(entry json.RawMessage) (FriendSettings, bool) {
	var enabled bool
	if err := json.Unmarshal(entry, &enabled); err == nil {
		return FriendSettings{Enabled: enabled}, true
	}

	var f friendFormat
	if err := json.Unmarshal(entry, &f); err != nil {
		return FriendSettings{}, false
	}
	out := FriendSettings{
		Enabled:         true,
		UseOverride:     f.UseOverride,
		MessageOverride: normalize(f.MessageOverride),
		SoundOverride:   normalize(f.SoundOverride),
	}
	if f.Enabled != nil {
		out.Enabled = *f.Enabled
	}
	return out, true
}

// Encode renders s as indented JSON.
func Encode(s *Settings) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, oops.Code("SETTINGS_ENCODE").Wrap(err)
	}
	return append(data, '\n'), nil
}
