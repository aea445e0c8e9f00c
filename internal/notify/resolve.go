// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package notify turns friend-online events into desktop notifications.
package notify

import (
	"context"
	"strings"

	"github.com/samber/oops"

	"github.com/vfriends/vfriends/internal/settings"
)

// Placeholders replaced with the friend's display name.
var placeholders = []string{"{name}", "{displayName}", "%s"}

// Defaults are the message template and sound used when a friend has no
// override.
type Defaults struct {
	Message string
	Sound   string
}

// FriendPreference is one friend's notification preference.
type FriendPreference struct {
	Enabled         bool
	UseOverride     bool
	MessageOverride string
	SoundOverride   string
}

// Result is what to show and play. Empty fields mean "none".
type Result struct {
	Message string
	Sound   string
}

// Resolve decides whether and how to notify for a friend. A nil pref means
// the friend has no saved preference. It reports false when the friend's
// notifications are disabled.
func Resolve(displayName string, defaults Defaults, pref *FriendPreference) (Result, bool) {
	template, sound := defaults.Message, defaults.Sound

	if pref != nil {
		if !pref.Enabled {
			return Result{}, false
		}
		if pref.UseOverride {
			if m := strings.TrimSpace(pref.MessageOverride); m != "" {
				template = pref.MessageOverride
			}
			if s := strings.TrimSpace(pref.SoundOverride); s != "" {
				sound = s
			}
		}
	}

	return Result{Message: Format(template, displayName), Sound: sound}, true
}

// Format trims template and substitutes every placeholder with
// displayName. A blank template formats to "".
func Format(template, displayName string) string {
	msg := strings.TrimSpace(template)
	if msg == "" {
		return ""
	}
	for _, p := range placeholders {
		msg = strings.ReplaceAll(msg, p, displayName)
	}
	return msg
}

// PreferenceSource provides the settings in effect.
type PreferenceSource interface {
	Snapshot(ctx context.Context) (*settings.Settings, error)
}

// Resolver applies Resolve against a PreferenceSource.
type Resolver struct {
	source PreferenceSource
}

// NewResolver creates a Resolver.
func NewResolver(source PreferenceSource) (*Resolver, error) {
	if source == nil {
		return nil, oops.Errorf("preference source is required")
	}
	return &Resolver{source: source}, nil
}

// Resolve looks up the friend's preference by id. An empty friendID only
// ever gets the defaults.
func (r *Resolver) Resolve(ctx context.Context, friendID, displayName string) (Result, bool, error) {
	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		return Result{}, false, oops.Code("NOTIFY_PREFERENCES").Wrap(err)
	}

	defaults := Defaults{Message: snap.DefaultMessage, Sound: snap.DefaultSound}
	var pref *FriendPreference
	if friendID != "" {
		if f, ok := snap.Friend(friendID); ok {
			pref = &FriendPreference{
				Enabled:         f.Enabled,
				UseOverride:     f.UseOverride,
				MessageOverride: f.MessageOverride,
				SoundOverride:   f.SoundOverride,
			}
		}
	}

	res, ok := Resolve(displayName, defaults, pref)
	return res, ok, nil
}
