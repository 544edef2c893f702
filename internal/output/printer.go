// Package output renders status lines, generated messages and tables on the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/temirov/commizard/internal/types"
)

const (
	errorPrefix   = "Error: "
	warningPrefix = "Warning: "

	clearScreenSequence = "\033[2J\033[H"

	modelNameHeader      = "Name"
	parameterSizeHeader  = "Parameter Size"
	modelTableTitle      = "Installed models"
	successColor         = lipgloss.Color("2")
	errorColor           = lipgloss.Color("1")
	warningColor         = lipgloss.Color("3")
	generatedColor       = lipgloss.Color("4")
	tableHeaderColor     = lipgloss.Color("5")
	tableVerticalPadding = 1
)

// Options configures a Printer.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Color  bool
}

// Printer writes user facing output. Errors go to the error stream, everything
// else to the standard stream.
type Printer struct {
	stdout        io.Writer
	stderr        io.Writer
	renderer      *lipgloss.Renderer
	errorRenderer *lipgloss.Renderer
}

// NewPrinter builds a Printer. Colour is used only when requested and the
// destination is a terminal.
func NewPrinter(options Options) *Printer {
	stdout := options.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := options.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Printer{
		stdout:        stdout,
		stderr:        stderr,
		renderer:      newRenderer(stdout, options.Color),
		errorRenderer: newRenderer(stderr, options.Color),
	}
}

func newRenderer(writer io.Writer, color bool) *lipgloss.Renderer {
	renderer := lipgloss.NewRenderer(writer)
	if !color || !isTerminal(writer) {
		renderer.SetColorProfile(termenv.Ascii)
	}
	return renderer
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// Success prints message in green.
func (printer *Printer) Success(message string) {
	printer.println(printer.stdout, renderLines(printer.renderer.NewStyle().Foreground(successColor), message))
}

// Error prints message prefixed with "Error: " in bold red on the error stream.
func (printer *Printer) Error(message string) {
	style := printer.errorRenderer.NewStyle().Foreground(errorColor).Bold(true)
	printer.println(printer.stderr, renderLines(style, errorPrefix+message))
}

// Warning prints message prefixed with "Warning: " in yellow.
func (printer *Printer) Warning(message string) {
	printer.println(printer.stdout, renderLines(printer.renderer.NewStyle().Foreground(warningColor), warningPrefix+message))
}

// Generated prints a generated commit message in blue.
func (printer *Printer) Generated(message string) {
	printer.println(printer.stdout, renderLines(printer.renderer.NewStyle().Foreground(generatedColor), message))
}

// Plain prints message without styling.
func (printer *Printer) Plain(message string) {
	printer.println(printer.stdout, message)
}

// Clear wipes the terminal and moves the cursor home.
func (printer *Printer) Clear() {
	_, _ = io.WriteString(printer.stdout, clearScreenSequence)
}

// ModelTable prints the installed models with their parameter sizes.
func (printer *Printer) ModelTable(models []types.ModelInfo) {
	headerStyle := printer.renderer.NewStyle().Bold(true).Foreground(tableHeaderColor).Padding(0, 1).Align(lipgloss.Center)
	cellStyle := printer.renderer.NewStyle().Padding(0, 1).Align(lipgloss.Center)
	modelTable := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(modelNameHeader, parameterSizeHeader).
		StyleFunc(func(row, column int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, model := range models {
		modelTable.Row(model.Name, model.ParameterSize)
	}
	title := printer.renderer.NewStyle().Bold(true).Render(modelTableTitle)
	block := lipgloss.JoinVertical(lipgloss.Center, title, modelTable.String())
	padded := printer.renderer.NewStyle().Padding(tableVerticalPadding, 1).Render(block)
	printer.println(printer.stdout, padded)
}

// StreamSink returns a function that writes streamed chunks verbatim.
func (printer *Printer) StreamSink() func(chunk string) {
	return func(chunk string) {
		_, _ = io.WriteString(printer.stdout, chunk)
	}
}

// EndStream terminates the line left open by a streamed generation.
func (printer *Printer) EndStream() {
	printer.println(printer.stdout, "")
}

// renderLines styles every line on its own so multi-line text is not padded
// to a block.
func renderLines(style lipgloss.Style, text string) string {
	style = style.TabWidth(lipgloss.NoTabConversion)
	lines := strings.Split(text, "\n")
	for index, line := range lines {
		if line == "" {
			continue
		}
		lines[index] = style.Render(line)
	}
	return strings.Join(lines, "\n")
}

func (printer *Printer) println(writer io.Writer, text string) {
	_, _ = fmt.Fprintln(writer, text)
}
