// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package errutil

import "errors"

type publicError interface {
	Public() string
}

// PublicMessage returns the first non-empty user-facing message found in the
// error chain, falling back to err.Error(). Nil yields "".
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if p, ok := e.(publicError); ok {
			if msg := p.Public(); msg != "" {
				return msg
			}
		}
	}
	return err.Error()
}
