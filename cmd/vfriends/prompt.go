// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Prompter asks the user for input.
type Prompter interface {
	// Prompt reads one echoed line.
	Prompt(label string) (string, error)
	// PromptSecret reads one line without echo when attached to a terminal.
	PromptSecret(label string) (string, error)
}

// terminalPrompter reads from the command's input. Secrets are read with
// echo disabled when the input is a terminal.
type terminalPrompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newTerminalPrompter(cmd *cobra.Command) Prompter {
	in := cmd.InOrStdin()
	return &terminalPrompter{in: in, out: cmd.ErrOrStderr(), reader: bufio.NewReader(in)}
}

func (p *terminalPrompter) Prompt(label string) (string, error) {
	_, _ = fmt.Fprint(p.out, label)
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", oops.Code("PROMPT_READ").Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *terminalPrompter) PromptSecret(label string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // Fd fits in int on supported platforms
		return p.Prompt(label)
	}
	_, _ = fmt.Fprint(p.out, label)
	secret, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // Fd fits in int on supported platforms
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", oops.Code("PROMPT_READ").Wrap(err)
	}
	return string(secret), nil
}
