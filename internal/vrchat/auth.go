// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package vrchat

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/samber/oops"
)

// Authentication endpoints.
const (
	pathCurrentUser = "/auth/user"
	pathVerifyTOTP  = "/auth/twofactorauth/totp/verify"
	pathVerifyEmail = "/auth/twofactorauth/emailotp/verify"
	pathVerifyOTP   = "/auth/twofactorauth/otp/verify"
)

// CurrentUser probes GET /auth/user. The response is either the account or
// a {"requiresTwoFactorAuth": [...]} challenge.
func (c *Client) CurrentUser(ctx context.Context) (*CurrentUserResult, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, pathCurrentUser, nil, nil, &raw); err != nil {
		return nil, err
	}

	var challenge struct {
		RequiresTwoFactorAuth []string `json:"requiresTwoFactorAuth"`
	}
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return nil, oops.Code("VRCHAT_DECODE").With("path", pathCurrentUser).Wrap(err)
	}
	if challenge.RequiresTwoFactorAuth != nil {
		return &CurrentUserResult{TwoFactorMethods: challenge.RequiresTwoFactorAuth}, nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, oops.Code("VRCHAT_DECODE").With("path", pathCurrentUser).Wrap(err)
	}
	return &CurrentUserResult{User: &user}, nil
}

// VerifyTOTP submits an authenticator app code.
func (c *Client) VerifyTOTP(ctx context.Context, code string) error {
	return c.verify(ctx, pathVerifyTOTP, code)
}

// VerifyEmailOTP submits a code sent by email.
func (c *Client) VerifyEmailOTP(ctx context.Context, code string) error {
	return c.verify(ctx, pathVerifyEmail, code)
}

// VerifyRecoveryCode submits a one-time recovery code.
func (c *Client) VerifyRecoveryCode(ctx context.Context, code string) error {
	return c.verify(ctx, pathVerifyOTP, code)
}

func (c *Client) verify(ctx context.Context, path, code string) error {
	var result struct {
		Verified *bool `json:"verified"`
	}
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"code": code}, &result); err != nil {
		return err
	}
	if result.Verified != nil && !*result.Verified {
		return oops.Code("VRCHAT_2FA_REJECTED").
			With("path", path).
			Public("2FA code was not accepted").
			Errorf("verification returned verified=false")
	}
	return nil
}
