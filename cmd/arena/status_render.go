package main

import (
	"fmt"
	"io"
	"os"
	"strings"

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

const statusLabelWidth = 20

type statusStyle struct {
	badge  string
	colors text.Colors
}

var statusStyles = map[statusKind]statusStyle{
	statusInfo:  {badge: "INFO", colors: text.Colors{text.FgBlue}},
	statusOK:    {badge: "OK", colors: text.Colors{text.FgGreen}},
	statusWarn:  {badge: "WARN", colors: text.Colors{text.FgYellow}},
	statusError: {badge: "ERROR", colors: text.Colors{text.FgRed, text.Bold}},
}

var headerColors = text.Colors{text.FgBlue, text.Bold}

// renderStatusLine formats "  label:   [BADGE] message" with the label padded
// so badges line up across a block of lines.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style, ok := statusStyles[kind]
	if !ok {
		style = statusStyles[statusInfo]
	}
	status := "[" + style.badge + "]"
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", status)
	if colorize {
		return style.colors.Sprint(line)
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	if colorize {
		return []string{headerColors.Sprint(line), headerColors.Sprint(rule)}
	}
	return []string{line, rule}
}

// shouldColorize reports whether writer is a terminal. NO_COLOR turns colour
// off everywhere.
func shouldColorize(writer io.Writer) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
