package llm

import (
	"encoding/json"
	"strings"
)

const (
	commentPrefix = ":"
	dataPrefix    = "data:"
	doneSentinel  = "[DONE]"

	choicesField      = "choices"
	deltaField        = "delta"
	contentField      = "content"
	finishReasonField = "finish_reason"

	decodeFailureMessage = "Couldn't decode JSON response"
	invalidOutputMessage = "Couldn't find response from JSON: Invalid output"
)

type frameKind int

const (
	// frameSkip covers comments and blank separator lines.
	frameSkip frameKind = iota
	// frameUnrecognized is a line without the data prefix.
	frameUnrecognized
	// frameTerminal is a choice carrying no delta. A delta without content is
	// also accepted as terminal when the choice names a finish_reason, which
	// OpenAI compatible servers send on their last chunk; elsewhere a missing
	// content is invalid output.
	frameTerminal
	frameContent
	frameDone
	frameFailure
)

type frame struct {
	kind    frameKind
	content string
	message string
}

func parseFrame(line string) frame {
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, commentPrefix) {
		return frame{kind: frameSkip}
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return frame{kind: frameUnrecognized}
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if data == doneSentinel {
		return frame{kind: frameDone}
	}
	var decoded any
	if decodeErr := json.Unmarshal([]byte(data), &decoded); decodeErr != nil {
		return frame{kind: frameFailure, message: decodeFailureMessage}
	}
	return extractDelta(decoded)
}

// extractDelta reads choices[0].delta.content from a decoded chunk.
func extractDelta(decoded any) frame {
	invalid := frame{kind: frameFailure, message: invalidOutputMessage}
	chunk, isObject := decoded.(map[string]any)
	if !isObject {
		return invalid
	}
	choices, isList := chunk[choicesField].([]any)
	if !isList || len(choices) == 0 {
		return invalid
	}
	choice, isObject := choices[0].(map[string]any)
	if !isObject {
		return invalid
	}
	rawDelta, hasDelta := choice[deltaField]
	if !hasDelta {
		return frame{kind: frameTerminal}
	}
	delta, isObject := rawDelta.(map[string]any)
	if !isObject {
		return invalid
	}
	content, isString := delta[contentField].(string)
	if !isString {
		if choice[finishReasonField] != nil {
			return frame{kind: frameTerminal}
		}
		return invalid
	}
	return frame{kind: frameContent, content: content}
}
