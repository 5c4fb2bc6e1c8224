package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/codec"
	"github.com/wippyai/sml/header"
	"github.com/wippyai/sml/transcode"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// inspectKinds are the primitive types offered for encoding.
var inspectKinds = []string{
	"bool", "char",
	"u8", "u16", "u32", "u64", "u128",
	"i8", "i16", "i32", "i64", "i128",
	"f32", "f64",
}

type modelState int

const (
	stateSelectKind modelState = iota
	stateInputValue
	stateShowResult
)

type inspectModel struct {
	err      error
	opts     []codec.Option
	result   inspectResult
	input    textinput.Model
	selected int
	state    modelState
}

type inspectResult struct {
	value  string
	bits   string
	slot   header.Slot
	width  uint8
	fields []codec.Event
}

type encodedMsg struct {
	err    error
	result inspectResult
}

func newInspectModel(opts []codec.Option) *inspectModel {
	return &inspectModel{opts: opts, state: stateSelectKind}
}

func (m *inspectModel) Init() tea.Cmd {
	return nil
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputValue {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectKind && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectKind && m.selected < len(inspectKinds)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectKind:
				m.prepareInput()
				m.state = stateInputValue
				return m, textinput.Blink

			case stateInputValue:
				return m, m.encode(inspectKinds[m.selected], m.input.Value())

			case stateShowResult:
				m.state = stateSelectKind
				m.result = inspectResult{}
				m.err = nil
			}

		case "esc":
			switch m.state {
			case stateInputValue, stateShowResult:
				m.state = stateSelectKind
				m.result = inspectResult{}
				m.err = nil
			}
		}

	case encodedMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputValue {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *inspectModel) prepareInput() {
	ti := textinput.New()
	ti.Placeholder = inspectKinds[m.selected]
	ti.Prompt = "value: "
	ti.Width = 40
	ti.Focus()
	m.input = ti
}

// encode builds the value from text and encodes it self-describing with
// tracing on.
func (m *inspectModel) encode(kind, text string) tea.Cmd {
	opts := m.opts
	return func() tea.Msg {
		v, err := transcode.Node{Type: kind, Value: text}.ToValue()
		if err != nil {
			return encodedMsg{err: err}
		}
		var res inspectResult
		trace := codec.WithTrace(func(ev codec.Event) {
			res.fields = append(res.fields, ev)
		})

		var buf bytes.Buffer
		w := channel.NewWriter(&buf)
		enc, err := codec.NewEncoder(w, append(append([]codec.Option{}, opts...), trace)...)
		if err != nil {
			return encodedMsg{err: err}
		}
		if err := enc.Encode(v); err != nil {
			return encodedMsg{err: err}
		}
		n := w.Position()
		if err := w.Close(); err != nil {
			return encodedMsg{err: err}
		}

		res.slot, res.width, err = header.MinWidth(v)
		if err != nil {
			return encodedMsg{err: err}
		}
		res.value = v.String()
		res.bits = channel.FormatBits(buf.Bytes(), n)
		return encodedMsg{result: res}
	}
}

func (m *inspectModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("SML Inspector"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectKind:
		b.WriteString("Select a type to encode:\n\n")
		for i, k := range inspectKinds {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + k))
			} else {
				b.WriteString("  " + kindStyle.Render(k))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInputValue:
		fmt.Fprintf(&b, "Encoding %s\n\n", kindStyle.Render(inspectKinds[m.selected]))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter encode • esc back"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			m.writeResult(&b)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *inspectModel) writeResult(b *strings.Builder) {
	r := m.result
	fmt.Fprintf(b, "%s\n\n", kindStyle.Render(r.value))
	b.WriteString(resultStyle.Render(r.bits))
	b.WriteString("\n\n")
	for _, ev := range r.fields {
		b.WriteString(formatEvent(true, ev))
		b.WriteByte('\n')
	}
	fmt.Fprintf(b, "\nschema-elided: %d of %d bits in slot %s\n", r.width, r.slot.Native(), r.slot)
}

func runInspect(e *env, args []string) error {
	fs := newFlags("inspect")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts, err := e.cfg.CodecOptions()
	if err != nil {
		return err
	}
	p := tea.NewProgram(newInspectModel(opts), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
