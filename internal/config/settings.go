package config

import "time"

const (
	DefaultURL                 = "http://127.0.0.1:11434/"
	DefaultStreamWidth         = 70
	DefaultWrapWidth           = 72
	DefaultTokenModel          = "gpt-4o"
	DefaultTokenWarnLimit      = 8192
	DefaultProbeTimeout        = 300 * time.Millisecond
	DefaultGenerateReadTimeout = 600 * time.Second
	DefaultUnloadKeepAlive     = 0
	DefaultUnloadTimeout       = 5 * time.Second
)

// Settings is the fully resolved configuration used at runtime.
type Settings struct {
	URL                 string
	Color               bool
	Banner              bool
	Stream              bool
	StreamWidth         int
	WrapWidth           int
	TokenModel          string
	TokenWarnLimit      int
	ProbeTimeout        time.Duration
	GenerateReadTimeout time.Duration
	UnloadKeepAlive     int
	UnloadTimeout       time.Duration
}

// DefaultSettings returns the settings used when no source declares a value.
func DefaultSettings() Settings {
	return Settings{
		URL:                 DefaultURL,
		Color:               true,
		Banner:              true,
		Stream:              true,
		StreamWidth:         DefaultStreamWidth,
		WrapWidth:           DefaultWrapWidth,
		TokenModel:          DefaultTokenModel,
		TokenWarnLimit:      DefaultTokenWarnLimit,
		ProbeTimeout:        DefaultProbeTimeout,
		GenerateReadTimeout: DefaultGenerateReadTimeout,
		UnloadKeepAlive:     DefaultUnloadKeepAlive,
		UnloadTimeout:       DefaultUnloadTimeout,
	}
}

// Resolve fills every value the configuration leaves unset with its default.
// Non-positive widths and timeouts fall back to defaults as well.
func (config ApplicationConfiguration) Resolve() Settings {
	settings := DefaultSettings()
	if config.URL != "" {
		settings.URL = config.URL
	}
	if config.Color != nil {
		settings.Color = *config.Color
	}
	if config.Banner != nil {
		settings.Banner = *config.Banner
	}
	if config.Stream != nil {
		settings.Stream = *config.Stream
	}
	if config.StreamWidth != nil && *config.StreamWidth > 0 {
		settings.StreamWidth = *config.StreamWidth
	}
	if config.WrapWidth != nil && *config.WrapWidth > 0 {
		settings.WrapWidth = *config.WrapWidth
	}
	if config.Tokens.Model != "" {
		settings.TokenModel = config.Tokens.Model
	}
	if config.Tokens.WarnLimit != nil {
		settings.TokenWarnLimit = *config.Tokens.WarnLimit
	}
	if config.Timeouts.Probe != nil && *config.Timeouts.Probe > 0 {
		settings.ProbeTimeout = *config.Timeouts.Probe
	}
	if config.Timeouts.GenerateRead != nil && *config.Timeouts.GenerateRead > 0 {
		settings.GenerateReadTimeout = *config.Timeouts.GenerateRead
	}
	if config.Unload.KeepAlive != nil {
		settings.UnloadKeepAlive = *config.Unload.KeepAlive
	}
	if config.Unload.Timeout != nil && *config.Unload.Timeout > 0 {
		settings.UnloadTimeout = *config.Unload.Timeout
	}
	return settings
}
