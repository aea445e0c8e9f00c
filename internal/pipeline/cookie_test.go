// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthTokenFromCookieHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{name: "auth cookie", header: "auth=authcookie_123; twoFactorAuth=tfa", want: "authcookie_123", wantOK: true},
		{name: "auth not first", header: "twoFactorAuth=tfa; auth=authcookie_123", want: "authcookie_123", wantOK: true},
		{name: "authToken name", header: "authToken=tok", want: "tok", wantOK: true},
		{name: "auth_token name", header: "auth_token=tok", want: "tok", wantOK: true},
		{name: "case insensitive", header: "AUTH=tok", want: "tok", wantOK: true},
		{name: "quoted value", header: `auth="tok"`, want: "tok", wantOK: true},
		{name: "padded entry", header: "  auth = tok  ;x=y", want: "tok", wantOK: true},
		{name: "value with equals", header: "auth=a=b", want: "a=b", wantOK: true},
		{name: "empty value skipped", header: "auth=; authToken=tok", want: "tok", wantOK: true},
		{name: "no token cookie", header: "twoFactorAuth=tfa", wantOK: false},
		{name: "prefix name is not a match", header: "authorization=tok", wantOK: false},
		{name: "bare name", header: "auth", wantOK: false},
		{name: "empty header", header: "", wantOK: false},
		{name: "whitespace header", header: "   ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AuthTokenFromCookieHeader(tt.header)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
