package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const bannerText = `
 ██████╗ ██████╗ ███╗   ███╗███╗   ███╗██╗███████╗ █████╗ ██████╗ ██████╗
██╔════╝██╔═══██╗████╗ ████║████╗ ████║██║╚══███╔╝██╔══██╗██╔══██╗██╔══██╗
██║     ██║   ██║██╔████╔██║██╔████╔██║██║  ███╔╝ ███████║██████╔╝██║  ██║
██║     ██║   ██║██║╚██╔╝██║██║╚██╔╝██║██║ ███╔╝  ██╔══██║██╔══██╗██║  ██║
╚██████╗╚██████╔╝██║ ╚═╝ ██║██║ ╚═╝ ██║██║███████╗██║  ██║██║  ██║██████╔╝
 ╚═════╝ ╚═════╝ ╚═╝     ╚═╝╚═╝     ╚═╝╚═╝╚══════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝
`

type rgb struct {
	red   int
	green int
	blue  int
}

var (
	bannerStartColor    = rgb{red: 0x53, green: 0x51, blue: 0x47}
	bannerEndColor      = rgb{red: 0x8f, green: 0x00, blue: 0xff}
	bannerFallbackColor = lipgloss.Color("5")
)

// Banner prints the welcome banner. Terminals with 256 colours or more get a
// horizontal gradient, others a single bold colour.
func (printer *Printer) Banner() {
	profile := printer.renderer.ColorProfile()
	if profile == termenv.TrueColor || profile == termenv.ANSI256 {
		printer.println(printer.stdout, printer.gradient(bannerText))
		return
	}
	printer.println(printer.stdout, printer.renderer.NewStyle().Bold(true).Foreground(bannerFallbackColor).Render(bannerText))
}

func (printer *Printer) gradient(text string) string {
	lines := strings.Split(text, "\n")
	runeLines := make([][]rune, len(lines))
	columns := 0
	for index, line := range lines {
		runeLines[index] = []rune(line)
		columns = max(columns, len(runeLines[index]))
	}
	if columns == 0 {
		return text
	}

	rendered := make([]string, len(lines))
	for index, line := range runeLines {
		var builder strings.Builder
		for column, character := range line {
			style := printer.renderer.NewStyle().Foreground(lipgloss.Color(interpolate(column, columns)))
			builder.WriteString(style.Render(string(character)))
		}
		rendered[index] = builder.String()
	}
	return strings.Join(rendered, "\n")
}

func interpolate(column, columns int) string {
	channel := func(start, end int) int {
		return start + (end-start)*column/columns
	}
	return fmt.Sprintf("#%02x%02x%02x",
		channel(bannerStartColor.red, bannerEndColor.red),
		channel(bannerStartColor.green, bannerEndColor.green),
		channel(bannerStartColor.blue, bannerEndColor.blue),
	)
}
