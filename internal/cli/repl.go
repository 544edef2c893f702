package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/temirov/commizard/internal/utils"
)

const (
	promptText      = utils.ApplicationDisplayName + "> "
	goodbyeMessage  = "Goodbye!"
	interruptedBye  = "\n" + goodbyeMessage
	readFailureForm = "read command: %w"
)

// lineReader reads one line of user input. *liner.State satisfies it.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// newTerminalReader opens an interactive line editor on the terminal.
func newTerminalReader() lineReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return state
}

// runCommandLoop reads commands until exit, end of input or an interrupt.
func runCommandLoop(ctx context.Context, reader lineReader, currentSession *session) error {
	for {
		if ctx.Err() != nil {
			currentSession.printer.Plain(interruptedBye)
			return nil
		}
		input, promptErr := reader.Prompt(promptText)
		if promptErr != nil {
			if errors.Is(promptErr, io.EOF) || errors.Is(promptErr, liner.ErrPromptAborted) {
				currentSession.printer.Plain(interruptedBye)
				return nil
			}
			return fmt.Errorf(readFailureForm, promptErr)
		}
		input = strings.TrimSpace(input)
		switch input {
		case "":
			continue
		case exitCommandName, quitCommandName:
			currentSession.printer.Plain(goodbyeMessage)
			return nil
		}
		reader.AppendHistory(input)
		currentSession.dispatch(ctx, input)
	}
}
