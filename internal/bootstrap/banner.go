// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bootstrap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// =============================================================================
// BANNER
// =============================================================================

// ProductLine is printed under the logo.
const ProductLine = "SAGE - Secure Agent for GPU Export"

var logo = []string{
	":::====  :::===   :::===== :::=====",
	":::     :::  === :::       :::     ",
	" =====  ======== === ===== ======  ",
	"    === ===  === ===   === ===     ",
	"======  ===  ===  =======  ========",
}

const bannerIndent = "             "

// PrintBanner writes the startup banner with the given version.
func PrintBanner(w io.Writer, version string) {
	var sb strings.Builder
	sb.WriteString("\n\n")
	for _, line := range logo {
		sb.WriteString(bannerIndent + line + "\n")
	}
	sb.WriteString("\n\n")
	sb.WriteString(bannerIndent + ProductLine + "\n")
	if version != "" {
		sb.WriteString(centerUnder(ProductLine, "Version "+version) + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 64) + "\n")
	io.WriteString(w, sb.String())
}

func centerUnder(above, text string) string {
	pad := (len(above) - len(text)) / 2
	if pad < 0 {
		pad = 0
	}
	return bannerIndent + strings.Repeat(" ", pad) + text
}

// =============================================================================
// KEYPRESS
// =============================================================================

const (
	// ContinuePrompt is shown before the TUI opens.
	ContinuePrompt = "Press any key to continue."

	// ExitPrompt is shown after a fatal bootstrap error.
	ExitPrompt = "Press Enter to exit..."
)

// WaitForKeypress prints prompt and blocks until the user presses a key.
// A terminal is switched to raw mode for a single byte; any other reader
// is consumed up to the next newline. EOF counts as a keypress.
func WaitForKeypress(in io.Reader, out io.Writer, prompt string) error {
	if prompt != "" && out != nil {
		fmt.Fprintf(out, "\n%s\n", prompt)
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("enter raw mode: %w", err)
		}
		defer term.Restore(fd, state)

		buf := make([]byte, 1)
		if _, err := f.Read(buf); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}

	_, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
