package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/sml/codec"
	"github.com/wippyai/sml/config"
)

var (
	offsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	tagStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	lengthStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	payloadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	markerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD580"))
)

// painter applies styles only when color output is on.
type painter bool

func (p painter) render(s lipgloss.Style, text string) string {
	if !p {
		return text
	}
	return s.Render(text)
}

func (e *env) painter() painter {
	switch e.cfg.Output.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if e.stdout != os.Stdout {
		return false
	}
	return painter(term.IsTerminal(int(os.Stdout.Fd())))
}

func runDump(e *env, args []string) error {
	fs := newFlags("dump")
	var (
		input = fs.StringP("input", "i", "", "SML file to read (default stdin)")
		raw   = fs.Bool("raw", false, "Read a bare payload using the configured codec parameters")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := e.readInput(*input)
	if err != nil {
		return err
	}

	p := e.painter()
	var b strings.Builder
	_, err = e.decodeValues(data, *raw, func(ev codec.Event) {
		b.WriteString(formatEvent(p, ev))
		b.WriteByte('\n')
	})
	// Fields read before a failure are still shown.
	if _, werr := fmt.Fprint(e.stdout, b.String()); werr != nil && err == nil {
		err = werr
	}
	return err
}

// formatEvent renders one wire field as offset, width, label, bits and
// meaning, indented by nesting depth.
func formatEvent(p painter, ev codec.Event) string {
	style := payloadStyle
	switch ev.Label {
	case "tag":
		style = tagStyle
	case "length", "class", "count":
		style = lengthStyle
	case "sign", "presence", "precision", "mode", "header":
		style = markerStyle
	}

	var b strings.Builder
	b.WriteString(p.render(offsetStyle, fmt.Sprintf("%6d +%-3d", ev.Offset, ev.Width)))
	b.WriteString(strings.Repeat("  ", ev.Depth+1))
	b.WriteString(p.render(style, fmt.Sprintf("%-9s", ev.Label)))
	b.WriteByte(' ')
	if bits := eventBits(ev); bits != "" {
		b.WriteString(bits)
		b.WriteByte(' ')
	}
	b.WriteString(ev.Text)
	return b.String()
}

// eventBits renders the raw field bits when they fit the event.
func eventBits(ev codec.Event) string {
	if ev.Width <= 0 || ev.Width > 64 || ev.Label == "header" {
		return ""
	}
	s := strconv.FormatUint(ev.Raw, 2)
	if pad := ev.Width - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	return s
}
