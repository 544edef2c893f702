package utils

const (
	// ApplicationName is the executable name.
	ApplicationName = "commizard"
	// ApplicationDisplayName is the name shown in the banner, prompt and version output.
	ApplicationDisplayName = "CommiZard"
	// LocalConfigFileName is read from the working directory.
	LocalConfigFileName = ".commizard.yaml"
	// GlobalConfigFileName is read from GlobalConfigDirectoryName under the home directory.
	GlobalConfigFileName = "config.yaml"
	// GlobalConfigDirectoryName holds the global configuration under the home directory.
	GlobalConfigDirectoryName = ".commizard"
	// EnvironmentPrefix prefixes environment variables that override configuration.
	EnvironmentPrefix = "COMMIZARD"
)

const (
	// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes a fatal command tree failure.
	ApplicationExecutionFailedMessage = "application execution failed"
)
