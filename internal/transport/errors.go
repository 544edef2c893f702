package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

const (
	dialOperation          = "dial"
	malformedResponseToken = "malformed HTTP"
)

var (
	errTooManyRedirects = errors.New("stopped after too many redirects")

	// ErrConnectionClosed marks a stream the server cut off before the response completed.
	ErrConnectionClosed = errors.New("connection closed before full response received")
)

// MethodError reports an HTTP verb outside the supported set.
type MethodError struct {
	Method string
}

func (methodError MethodError) Error() string {
	return fmt.Sprintf("%s is not a valid method.", methodError.Method)
}

// StreamError is the single error type a streaming session reports.
type StreamError struct {
	Message    string
	StatusCode int
	Cause      error
}

func (streamError *StreamError) Error() string {
	return streamError.Message
}

func (streamError *StreamError) Unwrap() error {
	return streamError.Cause
}

func newStreamFailure(kind FailureKind, cause error) *StreamError {
	return &StreamError{Message: StreamErrorMessage(kind), Cause: cause}
}

func newStatusStreamError(statusCode int) *StreamError {
	return &StreamError{Message: StatusErrorMessage(statusCode), StatusCode: statusCode}
}

// classifyFailure maps an error raised while performing a request onto a failure
// kind. Families are checked in order: connection, HTTP, redirect, timeout, generic.
func classifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case isConnectionFailure(err):
		return FailureConnection
	case isProtocolFailure(err):
		return FailureHTTP
	case errors.Is(err, errTooManyRedirects):
		return FailureRedirect
	case isTimeout(err):
		return FailureTimeout
	default:
		return FailureRequest
	}
}

// classifyStreamFailure maps an error raised while consuming an open stream.
func classifyStreamFailure(err error) *StreamError {
	if isTruncation(err) {
		return &StreamError{
			Message: connectionClosedMessage,
			Cause:   fmt.Errorf("%w: %w", ErrConnectionClosed, err),
		}
	}
	if isTimeout(err) {
		return newStreamFailure(FailureTimeout, err)
	}
	return newStreamFailure(FailureRequest, err)
}

func isConnectionFailure(err error) bool {
	var operationError *net.OpError
	if errors.As(err, &operationError) && operationError.Op == dialOperation {
		return true
	}
	var dnsError *net.DNSError
	if errors.As(err, &dnsError) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func isProtocolFailure(err error) bool {
	var recordHeaderError tls.RecordHeaderError
	if errors.As(err, &recordHeaderError) {
		return true
	}
	if errors.Is(err, http.ErrSchemeMismatch) {
		return true
	}
	return strings.Contains(err.Error(), malformedResponseToken)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	for current := err; current != nil; current = errors.Unwrap(current) {
		if timeoutError, ok := current.(interface{ Timeout() bool }); ok && timeoutError.Timeout() {
			return true
		}
	}
	return false
}

func isTruncation(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE)
}
