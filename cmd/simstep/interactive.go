package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/simbridge/runtime"
)

type interactiveModel struct {
	err      error
	bridge   *runtime.Bridge
	info     *runtime.ModuleInfo
	module   string
	result   string
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

// Input fields, in display order.
var fieldNames = []string{"doubles", "ints", "strings", "doubles out", "ints out"}

const (
	fieldDoubles = iota
	fieldInts
	fieldStrings
	fieldDoublesOut
	fieldIntsOut
)

func newInteractiveModel(b *runtime.Bridge, module string) *interactiveModel {
	return &interactiveModel{
		bridge: b,
		module: module,
		state:  stateSelectFunc,
	}
}

type loadedMsg struct {
	err  error
	info *runtime.ModuleInfo
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	info, err := m.bridge.Describe(context.Background(), m.module)
	return loadedMsg{info: info, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.info != nil && m.selected < len(m.info.Functions)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if m.info == nil || len(m.info.Functions) == 0 {
					return m, nil
				}
				m.prepareInputs()
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.info = msg.info

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	m.inputs = make([]textinput.Model, len(fieldNames))
	for i, name := range fieldNames {
		ti := textinput.New()
		ti.Prompt = fmt.Sprintf("%-12s", name+":")
		ti.Width = 40
		switch i {
		case fieldDoublesOut, fieldIntsOut:
			ti.Placeholder = "0"
		default:
			ti.Placeholder = "comma separated"
		}
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

// callFunction runs one exchange. Errors are shown, not fatal.
func (m *interactiveModel) callFunction() tea.Msg {
	fn := m.info.Functions[m.selected]
	req, err := m.request(fn.Name)
	if err != nil {
		return callResultMsg{err: err}
	}
	if err := m.bridge.Exchange(context.Background(), req); err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: fmt.Sprintf("doubles %s\nints    %s",
		formatDoubles(req.DoublesOut), formatInts(req.IntsOut))}
}

func (m *interactiveModel) request(function string) (*runtime.Request, error) {
	doubles, err := parseDoubles(m.inputs[fieldDoubles].Value())
	if err != nil {
		return nil, err
	}
	ints, err := parseInts(m.inputs[fieldInts].Value())
	if err != nil {
		return nil, err
	}
	nd, err := parseCount(m.inputs[fieldDoublesOut].Value())
	if err != nil {
		return nil, err
	}
	ni, err := parseCount(m.inputs[fieldIntsOut].Value())
	if err != nil {
		return nil, err
	}
	return &runtime.Request{
		Module:     m.module,
		Function:   function,
		Doubles:    doubles,
		Ints:       ints,
		Strings:    parseStrings(m.inputs[fieldStrings].Value()),
		DoublesOut: make([]float64, nd),
		IntsOut:    make([]int32, ni),
	}, nil
}

func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("output count %q: must be a non-negative integer", s)
	}
	return n, nil
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.info == nil {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("simstep"))
	b.WriteString(" ")
	b.WriteString(m.info.Name)
	b.WriteString(" ")
	b.WriteString(helpStyle.Render(m.info.Origin))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.info.Functions) == 0 {
			b.WriteString("No callable exports.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.info.Functions {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatFunc(f)))
			} else {
				b.WriteString("  " + formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.info.Functions[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.Name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.info.Functions[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatFunc(f runtime.FunctionInfo) string {
	s := funcStyle.Render(f.Name) + "(" + typeStyle.Render(formatCore(f.Params)) + ")"
	if len(f.Results) > 0 {
		s += " -> " + typeStyle.Render(formatCore(f.Results))
	}
	if f.WIT != "" {
		s += "  " + helpStyle.Render(f.WIT)
	}
	return s
}

func runInteractive(b *runtime.Bridge, module string) error {
	p := tea.NewProgram(newInteractiveModel(b, module), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
