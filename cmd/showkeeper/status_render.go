package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusColors = map[statusKind]text.Colors{
	statusInfo:  {text.FgCyan, text.Bold},
	statusOK:    {text.FgGreen},
	statusWarn:  {text.FgYellow},
	statusError: {text.FgRed, text.Bold},
}

func paint(message string, kind statusKind, colorize bool) string {
	if !colorize || message == "" {
		return message
	}
	return statusColors[kind].Sprint(message)
}

// writeSection prints title underlined to its own width.
func writeSection(w io.Writer, title string, colorize bool) {
	title = strings.TrimSpace(title)
	fmt.Fprintln(w, paint(title, statusInfo, colorize))
	fmt.Fprintln(w, paint(strings.Repeat("─", utf8.RuneCountInString(title)), statusInfo, colorize))
}

// shouldColorize is true for terminals unless NO_COLOR is set.
func shouldColorize(w io.Writer) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
