package transport

import (
	"fmt"
	"net/http"
)

const (
	connectionFailureMessage = "can't connect to the server"
	httpFailureMessage       = "HTTP error occurred"
	redirectFailureMessage   = "too many redirects"
	timeoutFailureMessage    = "the request timed out"
	requestFailureMessage    = "There was an ambiguous error"

	streamConnectionFailureMessage = "Cannot connect to the server"
	streamHTTPFailureMessage       = "HTTP error occurred"
	streamRedirectFailureMessage   = "Too many redirects"
	streamTimeoutFailureMessage    = "request timed out"
	streamRequestFailureMessage    = "There was an ambiguous error"
	connectionClosedMessage        = "The server closed the connection before the full response was received."

	serviceUnavailableMessageFormat = "Error %d: Service Unavailable - Ollama service is not responding.\n" +
		"Please do let the dev team know if this keeps happening.\n"
	clientErrorMessageFormat = "Error %d: Client Error - This appears to be a configuration or request issue.\n" +
		"Suggestions:\n" +
		"  • Verify your request parameters and model name\n" +
		"  • Check Ollama documentation: https://github.com/ollama/ollama/blob/main/docs/api.md\n" +
		"  • Review your commizard configuration"
	internalServerErrorMessageFormat = "Error %d: Internal Server Error - Ollama encountered an unexpected error.\n" +
		"Suggestions:\n" +
		"  • The model may have run out of memory (RAM/VRAM)\n" +
		"  • Try restarting Ollama: ollama serve\n" +
		"  • Check Ollama logs for detailed error information\n" +
		"  • Consider using a smaller model if resources are limited"
	serverErrorMessageFormat = "Error %d: Server Error - This appears to be an issue with the Ollama service.\n" +
		"Suggestions:\n" +
		"  • Try restarting Ollama: ollama serve\n" +
		"  • Check Ollama logs for more information\n" +
		"  • Wait a moment and try again"
	unexpectedResponseMessageFormat = "Error %d: Unexpected response.\n" +
		"Check the Ollama documentation or server logs for more details."
)

var transportFailureMessages = map[FailureKind]string{
	FailureConnection: connectionFailureMessage,
	FailureHTTP:       httpFailureMessage,
	FailureRedirect:   redirectFailureMessage,
	FailureTimeout:    timeoutFailureMessage,
	FailureRequest:    requestFailureMessage,
}

var streamFailureMessages = map[FailureKind]string{
	FailureConnection: streamConnectionFailureMessage,
	FailureHTTP:       streamHTTPFailureMessage,
	FailureRedirect:   streamRedirectFailureMessage,
	FailureTimeout:    streamTimeoutFailureMessage,
	FailureRequest:    streamRequestFailureMessage,
}

// TransportErrorMessage returns the fixed message for a negative sentinel code.
// Non-negative codes carry no transport failure and yield an empty string.
func TransportErrorMessage(sentinel int) string {
	kind := FailureKindFromCode(sentinel)
	if kind == FailureNone {
		return ""
	}
	return transportFailureMessages[kind]
}

// StreamErrorMessage returns the message a streaming session reports for a failure kind.
func StreamErrorMessage(kind FailureKind) string {
	if kind == FailureNone {
		return ""
	}
	message, known := streamFailureMessages[kind]
	if !known {
		return streamRequestFailureMessage
	}
	return message
}

// StatusErrorMessage explains an HTTP status code that is not a success.
func StatusErrorMessage(code int) string {
	switch {
	case code == http.StatusServiceUnavailable:
		return fmt.Sprintf(serviceUnavailableMessageFormat, code)
	case code == http.StatusInternalServerError:
		return fmt.Sprintf(internalServerErrorMessageFormat, code)
	case code >= 400 && code <= 499:
		return fmt.Sprintf(clientErrorMessageFormat, code)
	case code >= 500 && code <= 599:
		return fmt.Sprintf(serverErrorMessageFormat, code)
	default:
		return fmt.Sprintf(unexpectedResponseMessageFormat, code)
	}
}
