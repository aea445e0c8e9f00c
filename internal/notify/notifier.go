// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/samber/oops"
)

// Notification is a rendered friend-online notification.
type Notification struct {
	ID          string
	UserID      string
	DisplayName string
	Title       string
	Body        string
	Sound       string
	// IconPath is a local file, or empty.
	IconPath string
}

// Notifier shows a notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "friend online",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"display_name", n.DisplayName,
		"title", n.Title,
		"body", n.Body,
		"sound", n.Sound,
		"icon", n.IconPath)
	return nil
}

// CommandNotifier runs an external program per notification, for example
// "notify-send --app-name=vfriends". The title and body are appended as the
// last two arguments; every field is also exported as a VFRIENDS_*
// environment variable.
type CommandNotifier struct {
	Command string
}

// Notify implements Notifier.
func (c CommandNotifier) Notify(ctx context.Context, n Notification) error {
	fields := strings.Fields(c.Command)
	if len(fields) == 0 {
		return oops.Code("NOTIFY_COMMAND").Errorf("notification command is empty")
	}

	args := append(fields[1:], n.Title, n.Body)
	cmd := exec.CommandContext(ctx, fields[0], args...)
	cmd.Env = append(os.Environ(),
		"VFRIENDS_NOTIFICATION_ID="+n.ID,
		"VFRIENDS_USER_ID="+n.UserID,
		"VFRIENDS_DISPLAY_NAME="+n.DisplayName,
		"VFRIENDS_TITLE="+n.Title,
		"VFRIENDS_BODY="+n.Body,
		"VFRIENDS_SOUND="+n.Sound,
		"VFRIENDS_ICON="+n.IconPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return oops.Code("NOTIFY_COMMAND").
			With("command", fields[0]).
			With("output", strings.TrimSpace(string(out))).
			Wrap(err)
	}
	return nil
}

// MultiNotifier fans a notification out to every notifier and joins their
// errors.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
