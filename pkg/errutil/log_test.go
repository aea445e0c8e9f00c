// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfriends/vfriends/pkg/errutil"
)

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("PIPELINE_DIAL").
		With("url", "wss://example.invalid").
		Errorf("dial failed")

	errutil.LogError(logger, "connect failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "connect failed", logEntry["msg"])
	assert.Equal(t, "PIPELINE_DIAL", logEntry["code"])
	assert.Contains(t, logEntry["context"], "url")
}

func TestLogWarn_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogWarn(logger, "keychain write failed", errors.New("locked"))

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "WARN", logEntry["level"])
	assert.Equal(t, "locked", logEntry["error"])
	assert.NotContains(t, logEntry, "code")
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: "boom"},
		{
			name: "oops public",
			err:  oops.Code("X").Public("Please try again").Errorf("internal detail"),
			want: "Please try again",
		},
		{
			name: "wrapped public",
			err:  fmt.Errorf("outer: %w", oops.Public("inner public").Errorf("detail")),
			want: "inner public",
		},
		{
			name: "oops without public",
			err:  oops.Code("X").Errorf("detail only"),
			want: "detail only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errutil.PublicMessage(tt.err))
		})
	}
}
