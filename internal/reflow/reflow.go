// Package reflow wraps a live token stream into fixed-width lines without
// splitting words, carrying partial input between calls.
package reflow

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// DefaultWidth is the column limit used for streamed generations.
const DefaultWidth = 70

const (
	newlineUnit = "\n"
	spaceUnit   = " "
)

// State is the reflow position carried between calls for one stream.
// CurrentLineLength is the display width already committed to the unterminated
// output line. PendingPartial is the trailing unit that the next token may
// still extend.
type State struct {
	PendingPartial    string
	CurrentLineLength int
}

// Reflow appends token to the pending partial and places every complete unit.
// The returned chunks concatenate to the output for this call; the returned
// state must be passed to the next call.
func Reflow(token string, state State, width int) ([]string, State) {
	units := splitUnits(state.PendingPartial + token)
	lineLength := state.CurrentLineLength
	var emitted []string
	for _, unit := range units[:len(units)-1] {
		if unit == "" {
			continue
		}
		emitted, lineLength = place(unit, lineLength, width, emitted)
	}
	return emitted, State{PendingPartial: units[len(units)-1], CurrentLineLength: lineLength}
}

// Flush places the pending partial at the end of a stream.
func Flush(state State, width int) ([]string, State) {
	if state.PendingPartial == "" {
		return nil, state
	}
	emitted, lineLength := place(state.PendingPartial, state.CurrentLineLength, width, nil)
	return emitted, State{CurrentLineLength: lineLength}
}

// Wrap reflows a complete text and removes trailing whitespace from every line.
func Wrap(text string, width int) string {
	emitted, state := Reflow(text, State{}, width)
	tail, _ := Flush(state, width)
	joined := strings.Join(append(emitted, tail...), "")
	lines := strings.Split(joined, newlineUnit)
	for index, line := range lines {
		lines[index] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.Join(lines, newlineUnit)
}

func place(unit string, lineLength int, width int, emitted []string) ([]string, int) {
	if unit == newlineUnit {
		return append(emitted, newlineUnit), 0
	}
	unitWidth := displayWidth(unit)
	if lineLength+unitWidth <= width {
		if unit == spaceUnit && lineLength+1 == width {
			return append(emitted, newlineUnit), 0
		}
		return append(emitted, unit), lineLength + unitWidth
	}
	emitted = breakBeforeOverflow(emitted, lineLength)
	if isWhitespace(unit) {
		return emitted, 0
	}
	return append(emitted, unit), unitWidth
}

// breakBeforeOverflow ends the current line before a unit that does not fit.
// A line that is still empty is not ended, so a word wider than the whole line
// starts at column zero without a blank line above it.
func breakBeforeOverflow(emitted []string, lineLength int) []string {
	if lineLength == 0 {
		return emitted
	}
	return append(emitted, newlineUnit)
}

// splitUnits alternates words and whitespace runs, starting and ending with a
// word that may be empty. A newline is always a run of its own.
func splitUnits(text string) []string {
	units := make([]string, 0, 8)
	wordStart := 0
	index := 0
	for index < len(text) {
		character, size := utf8.DecodeRuneInString(text[index:])
		if !unicode.IsSpace(character) {
			index += size
			continue
		}
		units = append(units, text[wordStart:index])
		runEnd := index + size
		if character != '\n' {
			for runEnd < len(text) {
				next, nextSize := utf8.DecodeRuneInString(text[runEnd:])
				if next == '\n' || !unicode.IsSpace(next) {
					break
				}
				runEnd += nextSize
			}
		}
		units = append(units, text[index:runEnd])
		index = runEnd
		wordStart = index
	}
	return append(units, text[wordStart:])
}

func displayWidth(unit string) int {
	total := 0
	for _, character := range unit {
		if unicode.IsSpace(character) {
			total++
			continue
		}
		total += runewidth.RuneWidth(character)
	}
	return total
}

func isWhitespace(unit string) bool {
	return strings.TrimSpace(unit) == ""
}
