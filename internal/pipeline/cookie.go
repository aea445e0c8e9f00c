// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package pipeline

import "strings"

// tokenCookieNames are the cookie names that carry the pipeline auth token.
var tokenCookieNames = []string{"auth", "authtoken", "auth_token"}

// AuthTokenFromCookieHeader extracts the auth token from a Cookie header
// such as "auth=authcookie_x; twoFactorAuth=y". Names match
// case-insensitively and surrounding quotes are stripped. Empty values are
// skipped.
func AuthTokenFromCookieHeader(header string) (string, bool) {
	for _, entry := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || !isTokenCookie(strings.TrimSpace(name)) {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if value != "" {
			return value, true
		}
	}
	return "", false
}

func isTokenCookie(name string) bool {
	for _, n := range tokenCookieNames {
		if strings.EqualFold(name, n) {
			return true
		}
	}
	return false
}
