// Package llm drives an Ollama compatible inference server: model selection,
// loading and unloading, single-shot and streamed commit message generation.
package llm

import (
	"maps"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/commizard/internal/reflow"
	"github.com/temirov/commizard/internal/transport"
)

const (
	// DefaultBaseURL is the address of a local Ollama server.
	DefaultBaseURL = "http://127.0.0.1:11434/"

	chatCompletionsPath = "v1/chat/completions"
	generatePath        = "api/generate"
	tagsPath            = "api/tags"
	versionPath         = "api/version"

	// KeepAliveField is the unload payload key telling the server how long to keep a model resident.
	KeepAliveField = "keep_alive"

	loadConnectTimeout      = 300 * time.Millisecond
	loadReadTimeout         = 600 * time.Second
	defaultProbeTimeout     = 300 * time.Millisecond
	defaultGenerateConnect  = 500 * time.Millisecond
	defaultGenerateReadWait = 600 * time.Second
	unloadConnectTimeout    = 300 * time.Millisecond
	defaultUnloadReadWait   = 5 * time.Second
)

// Config describes how a Provider reaches the server.
type Config struct {
	BaseURL          string
	StreamWidth      int
	GenerateTimeouts transport.Timeouts
	ProbeTimeout     time.Duration
	// UnloadTimeout bounds the wait for the server to answer an unload request.
	UnloadTimeout time.Duration
	// UnloadPayload is merged into the unload request next to the model name.
	UnloadPayload map[string]any
}

// DefaultConfig returns the configuration for a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		StreamWidth: reflow.DefaultWidth,
		GenerateTimeouts: transport.Timeouts{
			Connect: defaultGenerateConnect,
			Read:    defaultGenerateReadWait,
		},
		ProbeTimeout:  defaultProbeTimeout,
		UnloadTimeout: defaultUnloadReadWait,
		UnloadPayload: map[string]any{KeepAliveField: 0},
	}
}

// Provider composes the HTTP clients, the reflow engine and the model register.
type Provider struct {
	config         Config
	client         *transport.Client
	register       *Register
	logger         *zap.Logger
	lifecycleMutex sync.Mutex
}

// NewProvider wires a provider. Nil dependencies are replaced with defaults.
func NewProvider(config Config, client *transport.Client, register *Register, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = transport.NewClient(logger)
	}
	if register == nil {
		register = NewRegister()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.StreamWidth <= 0 {
		config.StreamWidth = reflow.DefaultWidth
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = defaultProbeTimeout
	}
	if config.UnloadTimeout <= 0 {
		config.UnloadTimeout = defaultUnloadReadWait
	}
	config.UnloadPayload = maps.Clone(config.UnloadPayload)
	return &Provider{config: config, client: client, register: register, logger: logger}
}

// Register exposes the model register shared with the command loop.
func (provider *Provider) Register() *Register {
	return provider.register
}

// BaseURL reports the server address requests are sent to.
func (provider *Provider) BaseURL() string {
	return provider.config.BaseURL
}

// UnloadTimeout reports how long an unload request may wait for the server.
func (provider *Provider) UnloadTimeout() time.Duration {
	return provider.config.UnloadTimeout
}

func (provider *Provider) endpoint(path string) string {
	return strings.TrimRight(provider.config.BaseURL, "/") + "/" + path
}
