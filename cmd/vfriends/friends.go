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

	"github.com/vfriends/vfriends/internal/vrchat"
)

// friendsConfig holds configuration for the friends command.
type friendsConfig struct {
	jsonOutput bool
}

func newFriendsCmd(deps *Deps) *cobra.Command {
	cfg := &friendsConfig{}

	cmd := &cobra.Command{
		Use:   "friends",
		Short: "List friends",
		Long:  `List every friend of the signed-in account, online friends first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFriendsWithDeps(cmd.Context(), cmd, cfg, deps)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output friends as JSON")

	return cmd
}

func runFriendsWithDeps(ctx context.Context, cmd *cobra.Command, cfg *friendsConfig, deps *Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, a, err := setupApp(cmd, deps.withDefaults())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := requireSession(ctx, a); err != nil {
		return err
	}
	list, err := a.FetchFriends(ctx)
	if err != nil {
		return err
	}

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return oops.Code("FRIENDS_ENCODE").Wrap(err)
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Print(formatFriendsTable(list))
	return nil
}

// requireSession restores the saved session or fails with a hint to log in.
func requireSession(ctx context.Context, a Application) error {
	if a.RestoreSession(ctx) == nil {
		return oops.Code("NOT_LOGGED_IN").Errorf("not logged in; run 'vfriends login' first")
	}
	return nil
}

// formatFriendsTable renders friends as an aligned table.
func formatFriendsTable(list []vrchat.Friend) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSTATUS\tLOCATION\tID")
	for _, f := range list {
		status := f.Status
		if status == "" {
			status = "-"
		}
		location := f.Location
		if location == "" {
			location = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.DisplayName, status, location, f.ID)
	}
	_ = w.Flush()
	return sb.String()
}
