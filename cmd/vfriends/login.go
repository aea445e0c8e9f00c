// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/vfriends/vfriends/internal/auth"
)

const maxCodeAttempts = 3

// loginConfig holds configuration for the login command.
type loginConfig struct {
	username string
	method   string
}

func newLoginCmd(deps *Deps) *cobra.Command {
	cfg := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Long: `Sign in with a username and password, answering a two-factor challenge
when one is required. The session cookie is saved so later commands and
"vfriends run" start without asking again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoginWithDeps(cmd.Context(), cmd, cfg, deps)
		},
	}

	cmd.Flags().StringVar(&cfg.username, "username", "", "account username or email (prompted when empty)")
	cmd.Flags().StringVar(&cfg.method, "method", "", "2FA method: totp, emailOtp or otp (default: first offered)")

	return cmd
}

func runLoginWithDeps(ctx context.Context, cmd *cobra.Command, cfg *loginConfig, deps *Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps = deps.withDefaults()

	_, a, err := setupApp(cmd, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	prompter := deps.PrompterFactory(cmd)
	username := cfg.username
	if username == "" {
		if username, err = prompter.Prompt("Username: "); err != nil {
			return err
		}
	}
	password, err := prompter.PromptSecret("Password: ")
	if err != nil {
		return err
	}

	outcome := a.BeginLogin(ctx, username, password)
	var method string
	attempts := 0
	for {
		switch outcome.Type {
		case auth.OutcomeSuccess:
			cmd.Printf("Logged in as %s\n", outcome.User.DisplayName)
			return nil
		case auth.OutcomeTwoFactorRequired:
			method = chooseMethod(cfg.method, outcome.Methods)
			if method == "" {
				return oops.Code("LOGIN_FAILED").
					With("methods", outcome.Methods).
					Errorf("no usable 2FA method offered")
			}
			attempts = 0
			cmd.PrintErrln(outcome.Message)
		case auth.OutcomeFailure:
			if method == "" || attempts >= maxCodeAttempts || !a.State().PendingTwoFactor {
				return oops.Code("LOGIN_FAILED").With("code", outcome.Code).Errorf("%s", outcome.Message)
			}
			cmd.PrintErrln(outcome.Message)
		default:
			return oops.Code("LOGIN_FAILED").Errorf("unexpected auth outcome %q", outcome.Type)
		}

		code, err := prompter.PromptSecret(fmt.Sprintf("2FA code (%s): ", method))
		if err != nil {
			return err
		}
		attempts++
		outcome = a.VerifyTwoFactor(ctx, code, method)
	}
}

// chooseMethod picks the 2FA method to answer. An explicit choice must be
// offered; otherwise the first offered method wins, with recovery codes
// used only when nothing else is available.
func chooseMethod(requested string, offered []string) string {
	if requested != "" {
		if len(offered) == 0 || slices.Contains(offered, requested) {
			return requested
		}
		return ""
	}
	for _, m := range offered {
		if m != string(auth.MethodRecoveryCode) {
			return m
		}
	}
	if len(offered) > 0 {
		return offered[0]
	}
	return ""
}
