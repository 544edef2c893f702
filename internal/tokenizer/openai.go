package tokenizer

import (
	"errors"

	"github.com/pkoukk/tiktoken-go"
)

var errMissingEncoding = errors.New("tokenizer encoding is not initialized")

// openAICounter counts tokens with a tiktoken byte pair encoding.
type openAICounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (counter openAICounter) Name() string {
	return counter.name
}

// CountString allows no special tokens, so text such as <|endoftext|> inside a
// diff is counted as ordinary text.
func (counter openAICounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errMissingEncoding
	}
	return len(counter.encoding.Encode(input, nil, nil)), nil
}
