package transport

import (
	"bufio"
	"context"
	"io"
	"iter"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	defaultStreamConnectTimeout = 500 * time.Millisecond
	defaultStreamReadTimeout    = 5 * time.Second
	defaultEncoding             = "utf-8"
	charsetParameter            = "charset"
	maxStreamLineBytes          = 1 << 20
	initialStreamBufferBytes    = 64 << 10
	mimeTypeEventStream         = "text/event-stream"
	lineTerminator              = '\n'
	carriageReturn              = "\r"
)

// DefaultStreamOptions holds the options a streaming session starts from.
func DefaultStreamOptions() Options {
	return Options{
		Headers: map[string]string{headerAccept: mimeTypeEventStream},
		Timeouts: &Timeouts{
			Connect: defaultStreamConnectTimeout,
			Read:    defaultStreamReadTimeout,
		},
	}
}

// Session owns one open streaming response. Close releases it exactly once.
type Session struct {
	response  *http.Response
	err       *StreamError
	encoding  string
	logger    *zap.Logger
	closeOnce sync.Once
	closeErr  error
}

// Open starts a streaming request. Failures are recorded on the session and
// reported by Err and by the first iteration of Lines.
func (client *Client) Open(ctx context.Context, method string, url string, options Options) *Session {
	session := &Session{encoding: defaultEncoding, logger: client.logger}
	normalizedMethod, methodErr := normalizeMethod(method)
	if methodErr != nil {
		session.err = &StreamError{Message: methodErr.Error(), Cause: methodErr}
		return session
	}
	merged := options.withDefaults(DefaultStreamOptions())
	response, requestErr := client.send(ctx, normalizedMethod, url, merged)
	if requestErr != nil {
		kind := classifyFailure(requestErr)
		client.logger.Debug("stream open failed",
			zap.String("url", url),
			zap.Int("sentinel", kind.Code()),
			zap.Error(requestErr),
		)
		session.err = newStreamFailure(kind, requestErr)
		return session
	}
	if response.StatusCode != http.StatusOK {
		client.logger.Debug("stream rejected", zap.String("url", url), zap.Int("status", response.StatusCode))
		response.Body.Close()
		session.err = newStatusStreamError(response.StatusCode)
		return session
	}
	if charset := responseCharset(response); charset != "" {
		session.encoding = charset
	}
	session.response = response
	return session
}

// Err returns the failure recorded while opening the session.
func (session *Session) Err() error {
	if session.err == nil {
		return nil
	}
	return session.err
}

// Encoding reports the charset used to decode lines.
func (session *Session) Encoding() string {
	return session.encoding
}

// Close releases the underlying connection. Calling it again, or on a session
// without a connection, does nothing.
func (session *Session) Close() error {
	session.closeOnce.Do(func() {
		if session.response == nil {
			return
		}
		session.closeErr = session.response.Body.Close()
	})
	return session.closeErr
}

// Lines yields decoded lines without their terminators. A session that failed
// to open yields its error immediately. A connection cut mid-response yields a
// StreamError wrapping ErrConnectionClosed, and any unterminated text received
// before the cut is discarded. An unterminated final line is yielded only when
// the body ends cleanly. The session is closed when the sequence ends,
// including when the caller stops early.
func (session *Session) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if session.err != nil {
			yield("", session.err)
			return
		}
		if session.response == nil {
			return
		}
		defer session.Close()

		reader := bufio.NewReaderSize(session.decodedBody(), initialStreamBufferBytes)
		for {
			line, readErr := reader.ReadString(lineTerminator)
			if readErr == nil && len(line) > maxStreamLineBytes {
				readErr = bufio.ErrTooLong
			}
			switch {
			case readErr == nil:
				if !yield(trimLineTerminator(line), nil) {
					return
				}
			case readErr == io.EOF:
				if line != "" {
					yield(trimLineTerminator(line), nil)
				}
				return
			default:
				streamErr := classifyStreamFailure(readErr)
				session.logger.Debug("stream interrupted",
					zap.String("message", streamErr.Message),
					zap.Int("discarded_bytes", len(line)),
					zap.Error(readErr),
				)
				yield("", streamErr)
				return
			}
		}
	}
}

func trimLineTerminator(line string) string {
	return strings.TrimSuffix(strings.TrimSuffix(line, string(lineTerminator)), carriageReturn)
}

func (session *Session) decodedBody() io.Reader {
	body := io.Reader(session.response.Body)
	if strings.EqualFold(session.encoding, defaultEncoding) {
		return body
	}
	encoding, lookupErr := htmlindex.Get(session.encoding)
	if lookupErr != nil {
		session.logger.Debug("unknown stream charset", zap.String("charset", session.encoding))
		return body
	}
	return encoding.NewDecoder().Reader(body)
}

func responseCharset(response *http.Response) string {
	contentType := response.Header.Get(headerContentType)
	if contentType == "" {
		return ""
	}
	_, parameters, parseErr := mime.ParseMediaType(contentType)
	if parseErr != nil {
		return ""
	}
	return strings.TrimSpace(parameters[charsetParameter])
}
