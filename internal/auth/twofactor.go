// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package auth

import (
	"context"

	"github.com/samber/oops"
)

// TwoFactorMethod selects the verification call for a second-factor code.
type TwoFactorMethod string

// Supported second-factor methods, named as the API reports them.
const (
	MethodTOTP         TwoFactorMethod = "totp"
	MethodEmailOTP     TwoFactorMethod = "emailOtp"
	MethodRecoveryCode TwoFactorMethod = "otp"
)

// ParseTwoFactorMethod accepts exactly the names the API uses. Anything
// else is an error, never silently ignored.
func ParseTwoFactorMethod(s string) (TwoFactorMethod, error) {
	switch m := TwoFactorMethod(s); m {
	case MethodTOTP, MethodEmailOTP, MethodRecoveryCode:
		return m, nil
	default:
		return "", oops.Code("AUTH_2FA_METHOD").
			With("method", s).
			Public(msgUnsupportedMethod).
			Errorf("unsupported 2FA method %q", s)
	}
}

func (m TwoFactorMethod) verify(ctx context.Context, client APIClient, code string) error {
	switch m {
	case MethodTOTP:
		return client.VerifyTOTP(ctx, code)
	case MethodEmailOTP:
		return client.VerifyEmailOTP(ctx, code)
	case MethodRecoveryCode:
		return client.VerifyRecoveryCode(ctx, code)
	default:
		return oops.Code("AUTH_2FA_METHOD").With("method", string(m)).Public(msgUnsupportedMethod).
			Errorf("unsupported 2FA method %q", string(m))
	}
}
