// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package auth

// OutcomeType tags an Outcome.
type OutcomeType string

// Outcome types, serialized in camelCase under "type".
const (
	OutcomeStarted           OutcomeType = "started"
	OutcomeTwoFactorRequired OutcomeType = "twoFactorRequired"
	OutcomeSuccess           OutcomeType = "success"
	OutcomeFailure           OutcomeType = "failure"
	OutcomeLoggedOut         OutcomeType = "loggedOut"
)

// Action names which step a Started outcome begins.
type Action string

// Actions carried by Started outcomes.
const (
	ActionCredentials Action = "credentials"
	ActionTwoFactor   Action = "twoFactor"
)

// User is the authenticated account as reported to listeners.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username,omitempty"`
}

// Outcome is the only externally observable result of an auth operation.
// Which fields are set depends on Type.
type Outcome struct {
	Type    OutcomeType `json:"type"`
	Action  Action      `json:"action,omitempty"`
	Methods []string    `json:"methods,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	User    *User       `json:"user,omitempty"`
}

// Terminal reports whether o ends an auth operation.
func (o Outcome) Terminal() bool {
	switch o.Type {
	case OutcomeSuccess, OutcomeFailure, OutcomeTwoFactorRequired, OutcomeLoggedOut:
		return true
	default:
		return false
	}
}

func started(action Action) Outcome {
	return Outcome{Type: OutcomeStarted, Action: action}
}

func twoFactorRequired(methods []string, message string) Outcome {
	return Outcome{Type: OutcomeTwoFactorRequired, Methods: methods, Message: message}
}

func success(user *User) Outcome {
	return Outcome{Type: OutcomeSuccess, User: user}
}

func failure(message, code string) Outcome {
	return Outcome{Type: OutcomeFailure, Message: message, Code: code}
}

// Emitter receives every Outcome a Manager produces.
type Emitter interface {
	Emit(Outcome)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Outcome)

// Emit implements Emitter.
func (f EmitterFunc) Emit(o Outcome) { f(o) }
