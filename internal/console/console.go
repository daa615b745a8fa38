// Copyright (c) Microsoft. All rights reserved.

// Package console writes role-colored lines for the interactive samples.
package console

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset    = "\033[0m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiBlue     = "\033[34m"
	ansiCyan     = "\033[36m"
	ansiDarkGray = "\033[90m"
)

const defaultWidth = 80

// Console writes colored lines. Color is dropped when the writer is not a
// terminal.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
	width int
}

// New returns a Console writing to w.
func New(w io.Writer) *Console {
	c := &Console{w: w, width: defaultWidth}
	if f, ok := w.(*os.File); ok {
		c.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 1 {
		c.width = cols
	}
	return c
}

// Stdout returns a Console on standard output.
func Stdout() *Console { return New(os.Stdout) }

// Discard returns a Console that writes nothing.
func Discard() *Console { return New(io.Discard) }

// WithColor forces color on or off.
func (c *Console) WithColor(on bool) *Console {
	c.color = on
	return c
}

func (c *Console) UserLine(s string)      { c.line(ansiGreen, s) }
func (c *Console) AssistantLine(s string) { c.line(ansiCyan, s) }
func (c *Console) SystemLine(s string)    { c.line(ansiYellow, s) }

// PrimaryLine writes important log information.
func (c *Console) PrimaryLine(s string) { c.line(ansiBlue, s) }

// SecondaryLine writes less important log information.
func (c *Console) SecondaryLine(s string) { c.line(ansiDarkGray, s) }

// Prompt writes s in the user color without a line break.
func (c *Console) Prompt(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.color {
		fmt.Fprint(c.w, ansiGreen+s+ansiReset)
		return
	}
	fmt.Fprint(c.w, s)
}

// EmptyLine writes a blank line.
func (c *Console) EmptyLine() { c.line("", "") }

// Divider writes a dashed rule surrounded by blank lines.
func (c *Console) Divider() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w)
	c.writeLocked(ansiDarkGray, strings.Repeat("-", c.width-1))
	fmt.Fprintln(c.w)
}

// Write implements io.Writer so the console can receive tool call lines.
// Each write is shown as a secondary line.
func (c *Console) Write(p []byte) (int, error) {
	c.line(ansiDarkGray, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func (c *Console) line(color, s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeLocked(color, s)
}

func (c *Console) writeLocked(color, s string) {
	if c.color && color != "" {
		fmt.Fprintln(c.w, color+s+ansiReset)
		return
	}
	fmt.Fprintln(c.w, s)
}
