// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package event classifies raw pipeline payloads into typed events.
package event

// KindFriendOnline is the pipeline type for a friend coming online.
const KindFriendOnline = "friend-online"

// DefaultDisplayName is used when a friend-online payload names nobody.
const DefaultDisplayName = "Friend"

// Event is a classified pipeline payload: either FriendOnline or Other.
type Event interface {
	Kind() string
	sealed()
}

// FriendOnline reports that a friend came online.
type FriendOnline struct {
	// UserID is empty when the payload carries none.
	UserID      string
	DisplayName string
	// ImageURL is the first non-empty icon candidate, or empty.
	ImageURL string
	Platform string
	Location string
}

// Kind implements Event.
func (FriendOnline) Kind() string { return KindFriendOnline }

func (FriendOnline) sealed() {}

// Other is any event kind without dedicated handling. Content is the decoded
// JSON content, with string-encoded content unwrapped when it parses.
type Other struct {
	Type    string
	Content any
}

// Kind implements Event.
func (o Other) Kind() string { return o.Type }

func (Other) sealed() {}
