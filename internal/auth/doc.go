// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package auth owns the single login session of the process.
//
// # Session
//
// The session holds the API client (credentials in flight plus the cookie
// jar) and the pending-second-factor flag. It is only touched through
// Manager, which holds its lock for the shortest possible span and never
// across a network call. Every write after a network call re-reads the
// current session, so a Logout that lands mid-login resets state the login
// then continues on rather than being overwritten by a stale copy.
//
// # Outcomes
//
// Every Manager operation emits its result as an Outcome through the
// configured Emitter before returning it. An operation emits at most one
// Started followed by exactly one terminal outcome (Success, Failure or
// TwoFactorRequired). Logout emits LoggedOut.
//
// # Login flow
//
//	Anonymous -> AwaitingPrimary -> Authenticated
//	                             -> AwaitingTwoFactor -> Authenticated
//	                                                  -> AwaitingTwoFactor (chained challenge)
//	                                                  -> Anonymous (reset)
package auth
