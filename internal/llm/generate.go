package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/temirov/commizard/internal/reflow"
	"github.com/temirov/commizard/internal/transport"
	"github.com/temirov/commizard/internal/types"
)

const (
	noModelSelectedMessage = "No model selected. You must use the start command to specify which model to use before generating.\n" +
		"Example: start model_name"

	messageField = "message"

	// GenerationPrompt precedes the diff sent to the model.
	GenerationPrompt = "You are writing a git commit message for the changes below.\n" +
		"Start with a summary line of at most 50 characters written in the imperative mood.\n" +
		"Leave one blank line, then explain what changed and why in plain sentences.\n" +
		"Reply with the commit message only, without code fences or commentary.\n\n" +
		"Changes:\n"
)

// Sink receives every reflowed chunk of a streamed generation as it is produced.
type Sink func(chunk string)

// Generate requests a complete chat completion for prompt.
func (provider *Provider) Generate(ctx context.Context, prompt string) (int, string) {
	modelName, selected := provider.register.SelectedModel()
	if !selected {
		return types.StatusFailure, noModelSelectedMessage
	}
	result, executeErr := provider.client.Execute(ctx, http.MethodPost, provider.endpoint(chatCompletionsPath), transport.Options{
		JSON:     newChatRequest(modelName, prompt, false),
		Timeouts: &provider.config.GenerateTimeouts,
	})
	if executeErr != nil {
		return types.StatusFailure, executeErr.Error()
	}
	if result.IsError() {
		return types.StatusFailure, result.ErrorMessage()
	}
	if result.StatusCode != http.StatusOK {
		return result.StatusCode, transport.StatusErrorMessage(result.StatusCode)
	}
	content, found := completionContent(result.Payload)
	if !found {
		provider.logger.Warn("completion without message content", zap.String("model", modelName))
		return types.StatusFailure, invalidOutputMessage
	}
	return types.StatusSuccess, content
}

// StreamGenerate streams a chat completion for prompt. Each fragment is reflowed
// to the configured width and forwarded to sink; the raw fragments are
// accumulated into the returned text.
func (provider *Provider) StreamGenerate(ctx context.Context, prompt string, sink Sink) (int, string) {
	modelName, selected := provider.register.SelectedModel()
	if !selected {
		return types.StatusFailure, noModelSelectedMessage
	}
	if sink == nil {
		sink = func(string) {}
	}
	session := provider.client.Open(ctx, http.MethodPost, provider.endpoint(chatCompletionsPath), transport.Options{
		JSON: newChatRequest(modelName, prompt, true),
	})
	defer session.Close()
	if openErr := session.Err(); openErr != nil {
		return types.StatusFailure, openErr.Error()
	}

	width := provider.config.StreamWidth
	state := reflow.State{}
	var accumulated strings.Builder
	forward := func(chunks []string) {
		for _, chunk := range chunks {
			sink(chunk)
		}
	}

streamLoop:
	for line, lineErr := range session.Lines() {
		if lineErr != nil {
			return types.StatusFailure, lineErr.Error()
		}
		parsed := parseFrame(line)
		switch parsed.kind {
		case frameSkip:
		case frameUnrecognized:
			provider.logger.Debug("skipping stream line without data prefix", zap.String("line", line))
		case frameTerminal:
			provider.logger.Debug("terminal stream frame", zap.String("line", line))
		case frameDone:
			break streamLoop
		case frameFailure:
			provider.logger.Debug("invalid stream frame", zap.String("line", line), zap.String("reason", parsed.message))
			return types.StatusFailure, parsed.message
		case frameContent:
			accumulated.WriteString(parsed.content)
			var emitted []string
			emitted, state = reflow.Reflow(parsed.content, state, width)
			forward(emitted)
		}
	}
	tail, _ := reflow.Flush(state, width)
	forward(tail)
	return types.StatusSuccess, accumulated.String()
}

func newChatRequest(modelName string, prompt string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: stream,
	}
}

// completionContent reads choices[0].message.content from a buffered completion.
func completionContent(payload transport.Payload) (string, bool) {
	completion, isObject := payload.Object()
	if !isObject {
		return "", false
	}
	choices, isList := completion[choicesField].([]any)
	if !isList || len(choices) == 0 {
		return "", false
	}
	choice, isObject := choices[0].(map[string]any)
	if !isObject {
		return "", false
	}
	message, isObject := choice[messageField].(map[string]any)
	if !isObject {
		return "", false
	}
	content, isString := message[contentField].(string)
	return content, isString
}
