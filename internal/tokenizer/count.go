package tokenizer

import (
	"errors"
	"unicode/utf8"
)

// PromptEstimate captures the outcome of counting a prompt.
type PromptEstimate struct {
	Tokens    int
	Limit     int
	Counted   bool
	Exceeding bool
}

// EstimatePrompt counts the tokens in prompt and compares them with limit.
// A non-positive limit disables the comparison. Invalid UTF-8 is left uncounted.
func EstimatePrompt(counter Counter, prompt string, limit int) (PromptEstimate, error) {
	if counter == nil {
		return PromptEstimate{}, errors.New("nil tokenizer counter")
	}
	estimate := PromptEstimate{Limit: limit}
	if !utf8.ValidString(prompt) {
		return estimate, nil
	}
	tokens, err := counter.CountString(prompt)
	if err != nil {
		return PromptEstimate{}, err
	}
	estimate.Tokens = tokens
	estimate.Counted = true
	estimate.Exceeding = limit > 0 && tokens > limit
	return estimate, nil
}
