// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package main

import (
	"github.com/spf13/cobra"
)

func newLogoutCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Long:  `Stop any event stream and delete the saved session cookie. Safe to run when not logged in.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, a, err := setupApp(cmd, deps.withDefaults())
			if err != nil {
				return err
			}
			defer a.Close()

			a.Logout()
			cmd.Println("Logged out")
			return nil
		},
	}
}
