package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/simbridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E7D5B")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E7D5B"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// textReporter writes one tab separated line per row as rows arrive.
type textReporter struct {
	w   io.Writer
	err error
}

func (r *textReporter) Row(row Row) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, "%d\t%s\t%s\t%s\t%s\n",
		row.Step, formatFloat(row.Time), row.Label, formatDoubles(row.Doubles), formatInts(row.Ints))
}

func (r *textReporter) Flush() error {
	return r.err
}

// tableReporter collects rows and renders them as a styled table.
type tableReporter struct {
	w    io.Writer
	rows [][]string
}

func (r *tableReporter) Row(row Row) {
	r.rows = append(r.rows, []string{
		strconv.Itoa(row.Step), formatFloat(row.Time), row.Label, formatDoubles(row.Doubles), formatInts(row.Ints),
	})
}

func (r *tableReporter) Flush() error {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(typeStyle).
		Headers("STEP", "TIME", "EXCHANGE", "DOUBLES", "INTS").
		Rows(r.rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(r.w, t.Render())
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatDoubles(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatInts(vals []int32) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(int(v))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatCore(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return strings.Join(names, ", ")
}

// writeListing prints the callable exports of a module.
func writeListing(w io.Writer, info *runtime.ModuleInfo, styled bool) error {
	render := func(s lipgloss.Style, text string) string {
		if styled {
			return s.Render(text)
		}
		return text
	}

	if _, err := fmt.Fprintf(w, "%s %s\n\n", render(titleStyle, info.Name), info.Origin); err != nil {
		return err
	}
	for _, fn := range info.Functions {
		line := fmt.Sprintf("  %s(%s) -> (%s)",
			render(funcStyle, fn.Name),
			render(typeStyle, formatCore(fn.Params)),
			render(typeStyle, formatCore(fn.Results)))
		if fn.WIT != "" {
			line += "  " + render(helpStyle, fn.WIT)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
