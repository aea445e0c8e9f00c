// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vfriends/vfriends/internal/settings"
	"github.com/vfriends/vfriends/internal/xdg"
)

func newSettingsCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "View or change notification preferences",
		Long: `View or change the default notification message and sound, and the
per-friend overrides. Changes are picked up by a running "vfriends run".`,
	}

	cmd.AddCommand(newSettingsShowCmd(deps))
	cmd.AddCommand(newSettingsFriendCmd(deps))
	cmd.AddCommand(newSettingsDefaultsCmd(deps))

	return cmd
}

func newSettingsShowCmd(deps *Deps) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openSettings(cmd, deps)
			if err != nil {
				return err
			}
			snap, err := store.Snapshot(commandContext(cmd))
			if err != nil {
				return err
			}
			if jsonOutput {
				data, err := settings.Encode(snap)
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}
			cmd.Print(formatSettings(snap))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the preferences file as JSON")

	return cmd
}

func newSettingsFriendCmd(deps *Deps) *cobra.Command {
	var (
		enabled     bool
		useOverride bool
		message     string
		sound       string
	)

	cmd := &cobra.Command{
		Use:   "friend <user-id>",
		Short: "Change one friend's preferences",
		Long: `Change one friend's preferences. Only the flags given are changed; an
empty --message or --sound clears that override.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch settings.FriendPatch
			flags := cmd.Flags()
			if flags.Changed("enabled") {
				patch.Enabled = &enabled
			}
			if flags.Changed("override") {
				patch.UseOverride = &useOverride
			}
			if flags.Changed("message") {
				patch.MessageOverride = &message
			}
			if flags.Changed("sound") {
				patch.SoundOverride = &sound
			}

			store, err := openSettings(cmd, deps)
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			updated, err := store.UpdateFriend(commandContext(cmd), id, patch)
			if err != nil {
				return err
			}
			cmd.Print(formatFriend(id, updated))
			return nil
		},
	}

	cmd.Flags().BoolVar(&enabled, "enabled", true, "notify when this friend comes online")
	cmd.Flags().BoolVar(&useOverride, "override", false, "use this friend's message and sound instead of the defaults")
	cmd.Flags().StringVar(&message, "message", "", "message template; {name} is replaced by the display name")
	cmd.Flags().StringVar(&sound, "sound", "", "sound to play")

	return cmd
}

func newSettingsDefaultsCmd(deps *Deps) *cobra.Command {
	var message, sound string

	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Change the default message and sound",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch settings.DefaultsPatch
			if cmd.Flags().Changed("message") {
				patch.Message = &message
			}
			if cmd.Flags().Changed("sound") {
				patch.Sound = &sound
			}

			store, err := openSettings(cmd, deps)
			if err != nil {
				return err
			}
			updated, err := store.UpdateDefaults(commandContext(cmd), patch)
			if err != nil {
				return err
			}
			cmd.Print(formatSettings(updated))
			return nil
		},
	}

	cmd.Flags().StringVar(&message, "message", "", "default message template; {name} is replaced by the display name")
	cmd.Flags().StringVar(&sound, "sound", "", "default sound (empty clears it)")

	return cmd
}

func openSettings(cmd *cobra.Command, deps *Deps) (*settings.Store, error) {
	cfg, err := deps.withDefaults().ConfigLoader(cmd)
	if err != nil {
		return nil, err
	}
	path := cfg.Settings.File
	if path == "" {
		path = xdg.SettingsFile()
	}
	return settings.NewStoreWithLogger(path, newLogger(cmd, cfg))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// formatSettings renders the defaults followed by one row per friend,
// sorted by id.
func formatSettings(s *settings.Settings) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "DEFAULT MESSAGE\t%s\n", s.DefaultMessage)
	_, _ = fmt.Fprintf(w, "DEFAULT SOUND\t%s\n", dash(s.DefaultSound))
	_ = w.Flush()

	if len(s.Friends) == 0 {
		return sb.String()
	}
	sb.WriteString("\n")
	w = tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FRIEND\tENABLED\tOVERRIDE\tMESSAGE\tSOUND")
	for _, id := range slices.Sorted(maps.Keys(s.Friends)) {
		f := s.Friends[id]
		_, _ = fmt.Fprintf(w, "%s\t%t\t%t\t%s\t%s\n",
			id, f.Enabled, f.UseOverride, dash(f.MessageOverride), dash(f.SoundOverride))
	}
	_ = w.Flush()
	return sb.String()
}

func formatFriend(id string, f settings.FriendSettings) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "FRIEND\t%s\n", id)
	_, _ = fmt.Fprintf(w, "ENABLED\t%t\n", f.Enabled)
	_, _ = fmt.Fprintf(w, "OVERRIDE\t%t\n", f.UseOverride)
	_, _ = fmt.Fprintf(w, "MESSAGE\t%s\n", dash(f.MessageOverride))
	_, _ = fmt.Fprintf(w, "SOUND\t%s\n", dash(f.SoundOverride))
	_ = w.Flush()
	return sb.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
