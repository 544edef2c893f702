package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/temirov/commizard/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	configurationDirectoryPermissions = 0o755
	configurationFilePermissions      = 0o600
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
	HomeDirectory    string
}

type renderedConfiguration struct {
	URL         string           `yaml:"url"`
	Color       bool             `yaml:"color"`
	Banner      bool             `yaml:"banner"`
	Stream      bool             `yaml:"stream"`
	StreamWidth int              `yaml:"stream_width"`
	WrapWidth   int              `yaml:"wrap_width"`
	Tokens      renderedTokens   `yaml:"tokens"`
	Timeouts    renderedTimeouts `yaml:"timeouts"`
	Unload      renderedUnload   `yaml:"unload"`
}

type renderedTokens struct {
	Model     string `yaml:"model"`
	WarnLimit int    `yaml:"warn_limit"`
}

type renderedTimeouts struct {
	Probe        string `yaml:"probe"`
	GenerateRead string `yaml:"generate_read"`
}

type renderedUnload struct {
	KeepAlive int    `yaml:"keep_alive"`
	Timeout   string `yaml:"timeout"`
}

// RenderConfiguration encodes settings in the configuration file format.
func RenderConfiguration(settings Settings) ([]byte, error) {
	document := renderedConfiguration{
		URL:         settings.URL,
		Color:       settings.Color,
		Banner:      settings.Banner,
		Stream:      settings.Stream,
		StreamWidth: settings.StreamWidth,
		WrapWidth:   settings.WrapWidth,
		Tokens:      renderedTokens{Model: settings.TokenModel, WarnLimit: settings.TokenWarnLimit},
		Timeouts: renderedTimeouts{
			Probe:        settings.ProbeTimeout.String(),
			GenerateRead: settings.GenerateReadTimeout.String(),
		},
		Unload: renderedUnload{KeepAlive: settings.UnloadKeepAlive, Timeout: settings.UnloadTimeout.String()},
	}
	encoded, encodeErr := yaml.Marshal(document)
	if encodeErr != nil {
		return nil, fmt.Errorf("encode configuration: %w", encodeErr)
	}
	return encoded, nil
}

// InitializeConfiguration writes the default configuration to the requested target.
func InitializeConfiguration(options InitOptions) (string, error) {
	target := options.Target
	if target == "" {
		target = InitTargetLocal
	}
	var destinationPath string
	switch target {
	case InitTargetLocal:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		destinationPath = filepath.Join(workingDirectory, utils.LocalConfigFileName)
	case InitTargetGlobal:
		homeDirectory := options.HomeDirectory
		if homeDirectory == "" {
			resolved, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home directory for configuration: %w", err)
			}
			homeDirectory = resolved
		}
		configurationDirectory := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName)
		if err := os.MkdirAll(configurationDirectory, configurationDirectoryPermissions); err != nil {
			return "", fmt.Errorf("create configuration directory %s: %w", configurationDirectory, err)
		}
		destinationPath = filepath.Join(configurationDirectory, utils.GlobalConfigFileName)
	default:
		return "", fmt.Errorf("unsupported init target %q", target)
	}

	if _, err := os.Stat(destinationPath); err == nil {
		if !options.Force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, err)
	}

	content, renderErr := RenderConfiguration(DefaultSettings())
	if renderErr != nil {
		return "", renderErr
	}
	if err := os.WriteFile(destinationPath, content, configurationFilePermissions); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}

	return destinationPath, nil
}
