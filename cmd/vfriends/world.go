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

// worldConfig holds configuration for the world command.
type worldConfig struct {
	jsonOutput bool
}

func newWorldCmd(deps *Deps) *cobra.Command {
	cfg := &worldConfig{}

	cmd := &cobra.Command{
		Use:   "world <world-id | location>",
		Short: "Show a world",
		Long: `Look up a world by id. A friend's location such as "wrld_123:456~private"
is accepted and the instance part ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorldWithDeps(cmd.Context(), cmd, cfg, deps, args[0])
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output the world as JSON")

	return cmd
}

func runWorldWithDeps(ctx context.Context, cmd *cobra.Command, cfg *worldConfig, deps *Deps, location string) error {
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
	world, err := a.FetchWorld(ctx, worldID(location))
	if err != nil {
		return err
	}

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(world, "", "  ")
		if err != nil {
			return oops.Code("WORLD_ENCODE").Wrap(err)
		}
		cmd.Println(string(data))
		return nil
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "NAME\t%s\n", world.Name)
	_, _ = fmt.Fprintf(w, "ID\t%s\n", world.ID)
	if world.AuthorName != "" {
		_, _ = fmt.Fprintf(w, "AUTHOR\t%s\n", world.AuthorName)
	}
	_, _ = fmt.Fprintf(w, "CAPACITY\t%d\n", world.Capacity)
	_ = w.Flush()
	cmd.Print(sb.String())
	return nil
}

// worldID strips the instance suffix from a location.
func worldID(location string) string {
	id, _, _ := strings.Cut(strings.TrimSpace(location), ":")
	return id
}
