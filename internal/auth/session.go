// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package auth

import (
	"context"

	"github.com/vfriends/vfriends/internal/vrchat"
)

// APIClient is the remote API surface one session needs. Each session gets
// its own client so a reset discards credentials and cookies together.
type APIClient interface {
	SetCredentials(username, password string)
	ClearCredentials()
	HasCredentials() bool
	CookieHeader() string
	UserAgent() string
	CurrentUser(ctx context.Context) (*vrchat.CurrentUserResult, error)
	VerifyTOTP(ctx context.Context, code string) error
	VerifyEmailOTP(ctx context.Context, code string) error
	VerifyRecoveryCode(ctx context.Context, code string) error
}

// ClientFactory builds a client whose cookie jar is seeded from
// cookieHeader ("" for a clean session).
type ClientFactory func(cookieHeader string) (APIClient, error)

// session is the mutable state guarded by Manager.mu.
type session struct {
	client           APIClient
	pendingTwoFactor bool
	user             *User
}

// State is a read-only snapshot of the session.
type State struct {
	PendingTwoFactor bool
	HasCredentials   bool
	HasCookie        bool
	User             *User
}

// Authenticated reports whether a login has completed.
func (s State) Authenticated() bool {
	return s.User != nil
}

func toUser(u *vrchat.User) *User {
	if u == nil {
		return nil
	}
	return &User{ID: u.ID, DisplayName: u.DisplayName, Username: u.Username}
}
