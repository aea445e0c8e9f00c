// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package event

import (
	"encoding/json"
	"strings"

	"github.com/samber/oops"
)

type envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// iconPaths are checked in order; the first non-empty string wins.
var iconPaths = [][]string{
	{"user", "profilePicOverride"},
	{"user", "userIcon"},
	{"user", "currentAvatarImageUrl"},
	{"user", "currentAvatarThumbnailImageUrl"},
	{"profilePicOverride"},
	{"userIcon"},
	{"currentAvatarImageUrl"},
	{"currentAvatarThumbnailImageUrl"},
}

// Parse decodes a {"type","content"} envelope. Content may be an object or a
// JSON-encoded string holding one.
func Parse(payload string) (Event, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, oops.Code("EVENT_PARSE").Wrap(err)
	}
	if strings.TrimSpace(env.Type) == "" {
		return nil, oops.Code("EVENT_PARSE").Errorf("envelope has no type")
	}

	content, err := decodeContent(env.Content)
	if err != nil {
		return nil, oops.Code("EVENT_PARSE").With("type", env.Type).Wrap(err)
	}

	if env.Type == KindFriendOnline {
		return friendOnline(content), nil
	}
	return Other{Type: env.Type, Content: content}, nil
}

// Classify is Parse without the error.
func Classify(payload string) (Event, bool) {
	ev, err := Parse(payload)
	if err != nil {
		return nil, false
	}
	return ev, true
}

func decodeContent(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var content any
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, err
	}
	s, ok := content.(string)
	if !ok {
		return content, nil
	}
	// A string that is not itself JSON stays a string.
	var inner any
	if err := json.Unmarshal([]byte(s), &inner); err != nil {
		return s, nil
	}
	return inner, nil
}

func friendOnline(content any) FriendOnline {
	ev := FriendOnline{
		UserID:      firstString(content, []string{"userId"}, []string{"user", "id"}),
		DisplayName: firstString(content, []string{"user", "displayName"}, []string{"displayName"}),
		ImageURL:    firstString(content, iconPaths...),
		Platform:    firstString(content, []string{"platform"}),
		Location:    firstString(content, []string{"location"}),
	}
	if ev.DisplayName == "" {
		ev.DisplayName = DefaultDisplayName
	}
	return ev
}

func firstString(content any, paths ...[]string) string {
	for _, path := range paths {
		if s := stringAt(content, path); s != "" {
			return s
		}
	}
	return ""
}

func stringAt(content any, path []string) string {
	cur := content
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[key]
	}
	s, _ := cur.(string)
	return s
}
