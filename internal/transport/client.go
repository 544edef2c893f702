package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerUserAgent   = "User-Agent"
	mimeTypeJSON      = "application/json"
	userAgentValue    = "commizard"
	maxRedirects      = 30
)

var supportedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
}

// Timeouts bounds connection setup and the wait for each read. Zero disables a bound.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
}

// Options configures one request. Nil fields are filled from defaults.
type Options struct {
	JSON     any
	Body     []byte
	Headers  map[string]string
	Timeouts *Timeouts
}

func (options Options) withDefaults(defaults Options) Options {
	merged := options
	if merged.JSON == nil && merged.Body == nil {
		merged.JSON = defaults.JSON
		merged.Body = defaults.Body
	}
	if merged.Timeouts == nil && defaults.Timeouts != nil {
		timeouts := *defaults.Timeouts
		merged.Timeouts = &timeouts
	}
	if len(defaults.Headers) > 0 {
		headers := make(map[string]string, len(defaults.Headers)+len(options.Headers))
		for name, value := range defaults.Headers {
			headers[name] = value
		}
		for name, value := range options.Headers {
			headers[name] = value
		}
		merged.Headers = headers
	}
	return merged
}

// Client performs buffered and streaming calls. Each call dials its own connection.
type Client struct {
	logger *zap.Logger
}

// NewClient returns a Client logging through the provided logger or a no-op logger when nil.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{logger: logger}
}

// Execute performs one request and buffers the whole response. Transport failures
// are reported through the Result; the error is only set for an unsupported method.
func (client *Client) Execute(ctx context.Context, method string, url string, options Options) (Result, error) {
	normalizedMethod, methodErr := normalizeMethod(method)
	if methodErr != nil {
		return Result{}, methodErr
	}
	response, requestErr := client.send(ctx, normalizedMethod, url, options)
	if requestErr != nil {
		return client.failure(normalizedMethod, url, requestErr), nil
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return client.failure(normalizedMethod, url, readErr), nil
	}
	client.logger.Debug("response received",
		zap.String("method", normalizedMethod),
		zap.String("url", url),
		zap.Int("status", response.StatusCode),
	)
	return Result{Payload: decodePayload(body), StatusCode: response.StatusCode}, nil
}

func (client *Client) failure(method string, url string, err error) Result {
	kind := classifyFailure(err)
	client.logger.Debug("request failed",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("sentinel", kind.Code()),
		zap.Error(err),
	)
	return failedResult(kind)
}

func (client *Client) send(ctx context.Context, method string, url string, options Options) (*http.Response, error) {
	request, buildErr := buildRequest(ctx, method, url, options)
	if buildErr != nil {
		return nil, buildErr
	}
	client.logger.Debug("dispatching request", zap.String("method", method), zap.String("url", url))
	return newHTTPClient(options.Timeouts).Do(request)
}

func buildRequest(ctx context.Context, method string, url string, options Options) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var body io.Reader
	isJSON := false
	switch {
	case options.JSON != nil:
		encoded, encodeErr := json.Marshal(options.JSON)
		if encodeErr != nil {
			return nil, fmt.Errorf("encode request body: %w", encodeErr)
		}
		body = bytes.NewReader(encoded)
		isJSON = true
	case options.Body != nil:
		body = bytes.NewReader(options.Body)
	}
	request, requestErr := http.NewRequestWithContext(ctx, method, url, body)
	if requestErr != nil {
		return nil, fmt.Errorf("build request: %w", requestErr)
	}
	request.Header.Set(headerUserAgent, userAgentValue)
	if isJSON {
		request.Header.Set(headerContentType, mimeTypeJSON)
	}
	for name, value := range options.Headers {
		request.Header.Set(name, value)
	}
	return request, nil
}

func newHTTPClient(timeouts *Timeouts) *http.Client {
	var bounds Timeouts
	if timeouts != nil {
		bounds = *timeouts
	}
	dialer := &net.Dialer{Timeout: bounds.Connect}
	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
		DialContext: func(ctx context.Context, network string, address string) (net.Conn, error) {
			connection, dialErr := dialer.DialContext(ctx, network, address)
			if dialErr != nil {
				return nil, dialErr
			}
			return &deadlineConn{Conn: connection, readTimeout: bounds.Read}, nil
		},
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(request *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}
}

// deadlineConn re-arms the read deadline before every read, bounding the idle
// time between received bytes rather than the total response time.
type deadlineConn struct {
	net.Conn
	readTimeout time.Duration
}

func (connection *deadlineConn) Read(buffer []byte) (int, error) {
	if connection.readTimeout > 0 {
		if deadlineErr := connection.Conn.SetReadDeadline(time.Now().Add(connection.readTimeout)); deadlineErr != nil {
			return 0, deadlineErr
		}
	}
	return connection.Conn.Read(buffer)
}

func normalizeMethod(method string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(method))
	if _, supported := supportedMethods[normalized]; !supported {
		return "", MethodError{Method: normalized}
	}
	return normalized, nil
}

func decodePayload(body []byte) Payload {
	var decoded any
	if decodeErr := json.Unmarshal(body, &decoded); decodeErr != nil {
		return NewTextPayload(string(body))
	}
	return NewJSONPayload(decoded)
}
