// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/vfriends/vfriends/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("AUTH_LOCK").Errorf("lock failed")
	errutil.AssertErrorCode(t, err, "AUTH_LOCK")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("status", 401).Errorf("unauthorized")
	errutil.AssertErrorContext(t, err, "status", 401)
}

func TestAssertPublicMessage(t *testing.T) {
	err := oops.Public("Please enter your 2FA code").Errorf("no pending session")
	errutil.AssertPublicMessage(t, err, "Please enter your 2FA code")
}
