// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// SessionStatus describes the saved session.
type SessionStatus struct {
	LoggedIn    bool   `json:"logged_in"`
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Username    string `json:"username,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

func newStatusCmd(deps *Deps) *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a saved session is valid",
		Long:  `Check the saved session cookie against the API and report the signed-in account.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatusWithDeps(cmd.Context(), cmd, cfg, deps)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatusWithDeps(ctx context.Context, cmd *cobra.Command, cfg *statusConfig, deps *Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, a, err := setupApp(cmd, deps.withDefaults())
	if err != nil {
		return err
	}
	defer a.Close()

	var status SessionStatus
	if user := a.RestoreSession(ctx); user != nil {
		status = SessionStatus{
			LoggedIn:    true,
			UserID:      user.ID,
			DisplayName: user.DisplayName,
			Username:    user.Username,
		}
	}

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return oops.Code("STATUS_ENCODE").Wrap(err)
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Print(formatStatusTable(status))
	return nil
}

// formatStatusTable renders status as aligned key/value rows.
func formatStatusTable(status SessionStatus) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	if !status.LoggedIn {
		_, _ = fmt.Fprintln(w, "SESSION\tlogged out")
		_ = w.Flush()
		return sb.String()
	}
	_, _ = fmt.Fprintln(w, "SESSION\tlogged in")
	_, _ = fmt.Fprintf(w, "USER\t%s\n", status.DisplayName)
	_, _ = fmt.Fprintf(w, "ID\t%s\n", status.UserID)
	if status.Username != "" {
		_, _ = fmt.Fprintf(w, "USERNAME\t%s\n", status.Username)
	}
	_ = w.Flush()
	return sb.String()
}
