package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/temirov/commizard/internal/utils"
)

const environmentKeySeparator = "_"

// environmentKeys lists every configuration key that may be overridden from the environment.
var environmentKeys = []string{
	"url",
	"color",
	"banner",
	"stream",
	"stream_width",
	"wrap_width",
	"tokens.model",
	"tokens.warn_limit",
	"timeouts.probe",
	"timeouts.generate_read",
	"unload.keep_alive",
	"unload.timeout",
}

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
	HomeDirectory    string
	SkipEnvironment  bool
}

// ApplicationConfiguration mirrors the configuration file. Unset values stay nil
// so that later sources only override what they actually declare.
type ApplicationConfiguration struct {
	URL         string               `mapstructure:"url"`
	Color       *bool                `mapstructure:"color"`
	Banner      *bool                `mapstructure:"banner"`
	Stream      *bool                `mapstructure:"stream"`
	StreamWidth *int                 `mapstructure:"stream_width"`
	WrapWidth   *int                 `mapstructure:"wrap_width"`
	Tokens      TokenConfiguration   `mapstructure:"tokens"`
	Timeouts    TimeoutConfiguration `mapstructure:"timeouts"`
	Unload      UnloadConfiguration  `mapstructure:"unload"`
}

// TokenConfiguration controls the prompt size estimate.
type TokenConfiguration struct {
	Model     string `mapstructure:"model"`
	WarnLimit *int   `mapstructure:"warn_limit"`
}

// TimeoutConfiguration bounds the startup probe and single-shot generation.
type TimeoutConfiguration struct {
	Probe        *time.Duration `mapstructure:"probe"`
	GenerateRead *time.Duration `mapstructure:"generate_read"`
}

// UnloadConfiguration shapes the request that releases a model on exit.
type UnloadConfiguration struct {
	KeepAlive *int           `mapstructure:"keep_alive"`
	Timeout   *time.Duration `mapstructure:"timeout"`
}

// LoadApplicationConfiguration merges the global file, the local or explicit
// file and the environment, in that order.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	homeDirectory := options.HomeDirectory
	if homeDirectory == "" {
		homeDirectory, _ = os.UserHomeDir()
	}
	if homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if options.ExplicitFilePath != "" {
		if _, statErr := os.Stat(localPath); statErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("configuration file %s: %w", localPath, statErr)
		}
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	if !options.SkipEnvironment {
		environmentConfig, environmentErr := loadEnvironmentConfiguration()
		if environmentErr != nil {
			return ApplicationConfiguration{}, environmentErr
		}
		merged = merged.Merge(environmentConfig)
	}
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.LocalConfigFileName)
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath
	}
	return filepath.Join(workingDirectory, explicitPath)
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

func loadEnvironmentConfiguration() (ApplicationConfiguration, error) {
	reader := viper.New()
	reader.SetEnvPrefix(utils.EnvironmentPrefix)
	reader.SetEnvKeyReplacer(strings.NewReplacer(".", environmentKeySeparator))
	for _, key := range environmentKeys {
		if bindErr := reader.BindEnv(key); bindErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("bind environment for %s: %w", key, bindErr)
		}
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode environment configuration: %w", decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.URL != "" {
		result.URL = override.URL
	}
	if override.Color != nil {
		result.Color = clonePointer(override.Color)
	}
	if override.Banner != nil {
		result.Banner = clonePointer(override.Banner)
	}
	if override.Stream != nil {
		result.Stream = clonePointer(override.Stream)
	}
	if override.StreamWidth != nil {
		result.StreamWidth = clonePointer(override.StreamWidth)
	}
	if override.WrapWidth != nil {
		result.WrapWidth = clonePointer(override.WrapWidth)
	}
	result.Tokens = result.Tokens.merge(override.Tokens)
	result.Timeouts = result.Timeouts.merge(override.Timeouts)
	result.Unload = result.Unload.merge(override.Unload)
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Model != "" {
		result.Model = override.Model
	}
	if override.WarnLimit != nil {
		result.WarnLimit = clonePointer(override.WarnLimit)
	}
	return result
}

func (config TimeoutConfiguration) merge(override TimeoutConfiguration) TimeoutConfiguration {
	result := config
	if override.Probe != nil {
		result.Probe = clonePointer(override.Probe)
	}
	if override.GenerateRead != nil {
		result.GenerateRead = clonePointer(override.GenerateRead)
	}
	return result
}

func (config UnloadConfiguration) merge(override UnloadConfiguration) UnloadConfiguration {
	result := config
	if override.KeepAlive != nil {
		result.KeepAlive = clonePointer(override.KeepAlive)
	}
	if override.Timeout != nil {
		result.Timeout = clonePointer(override.Timeout)
	}
	return result
}

func clonePointer[Value any](value *Value) *Value {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
