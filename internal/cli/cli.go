// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/commizard/internal/config"
	"github.com/temirov/commizard/internal/git"
	"github.com/temirov/commizard/internal/llm"
	"github.com/temirov/commizard/internal/output"
	"github.com/temirov/commizard/internal/services/clipboard"
	"github.com/temirov/commizard/internal/tokenizer"
	"github.com/temirov/commizard/internal/transport"
	"github.com/temirov/commizard/internal/types"
	"github.com/temirov/commizard/internal/utils"
)

const (
	urlFlagName          = "url"
	colorFlagName        = "color"
	bannerFlagName       = "banner"
	streamFlagName       = "stream"
	configFlagName       = "config"
	verboseFlagName      = "verbose"
	versionFlagName      = "version"
	globalFlagName       = "global"
	forceFlagName        = "force"
	versionFlagShorthand = "v"
	rootUse              = utils.ApplicationName
	rootShortDescription = "Commit writing wizard"
	rootLongDescription  = `CommiZard writes git commit messages with a local language model.
It reads the current git diff, asks an Ollama compatible server for a message and lets you copy or commit the result.
Run it inside a git work tree and type help at the prompt to list the available commands.`
	initUse                   = "init"
	initShortDescription      = "write the default configuration file"
	initLongDescription       = `Write the default configuration to .commizard.yaml in the working directory, or to ~/.commizard/config.yaml with --global.`
	urlFlagDescription        = "base URL of the inference server"
	colorFlagDescription      = "colorize output"
	noColorFlagDescription    = "don't colorize output"
	bannerFlagDescription     = "show the welcome banner"
	noBannerFlagDescription   = "disable the ASCII welcome banner"
	streamFlagDescription     = "stream the generated message as it is produced"
	noStreamFlagDescription   = "print the generated message once it is complete"
	configFlagDescription     = "path to a configuration file used instead of .commizard.yaml"
	verboseFlagDescription    = "log debug information to stderr"
	versionFlagDescription    = "show version information"
	globalFlagDescription     = "write the global configuration instead of the local one"
	forceFlagDescription      = "overwrite an existing configuration file"
	configurationWrittenForm  = "Configuration written to %s"
	workingDirectoryErrorForm = "unable to determine working directory: %w"
)

// ExitError carries a process exit code for failures already reported to the user.
type ExitError struct {
	Code int
}

func (err ExitError) Error() string {
	return fmt.Sprintf("exit status %d", err.Code)
}

// rootOptions collects the root command flags.
type rootOptions struct {
	url         string
	configPath  string
	verbose     bool
	showVersion bool
	color       toggleFlag
	banner      toggleFlag
	stream      toggleFlag
}

// applyTo overrides settings with every flag given on the command line.
func (options rootOptions) applyTo(settings config.Settings) config.Settings {
	if options.url != "" {
		settings.URL = options.url
	}
	options.color.apply(&settings.Color)
	options.banner.apply(&settings.Banner)
	options.stream.apply(&settings.Stream)
	return settings
}

// Execute runs the commizard application with the process arguments.
func Execute(ctx context.Context, logger *zap.Logger, level zap.AtomicLevel) error {
	rootCommand := createRootCommand(logger, level)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// createRootCommand builds the root Cobra command.
func createRootCommand(logger *zap.Logger, level zap.AtomicLevel) *cobra.Command {
	if logger == nil {
		logger = zap.NewNop()
	}
	var options rootOptions

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if options.showVersion {
				_, err := fmt.Fprintln(command.OutOrStdout(), utils.VersionLine())
				return err
			}
			if options.verbose {
				level.SetLevel(zapcore.DebugLevel)
			}
			settings, settingsErr := resolveSettings(options)
			if settingsErr != nil {
				return settingsErr
			}
			return runInteractive(command.Context(), command, settings, logger)
		},
	}
	flagSet := rootCommand.Flags()
	flagSet.StringVar(&options.url, urlFlagName, "", urlFlagDescription)
	flagSet.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	flagSet.BoolVar(&options.verbose, verboseFlagName, false, verboseFlagDescription)
	flagSet.BoolVarP(&options.showVersion, versionFlagName, versionFlagShorthand, false, versionFlagDescription)
	registerToggleFlag(flagSet, &options.color, colorFlagName, colorFlagDescription, noColorFlagDescription)
	registerToggleFlag(flagSet, &options.banner, bannerFlagName, bannerFlagDescription, noBannerFlagDescription)
	registerToggleFlag(flagSet, &options.stream, streamFlagName, streamFlagDescription, noStreamFlagDescription)

	rootCommand.AddCommand(createInitCommand())
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand() *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:          initUse,
		Short:        initShortDescription,
		Long:         initLongDescription,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, err := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(command.OutOrStdout(), configurationWrittenForm+"\n", path)
			return err
		},
	}
	initCommand.Flags().BoolVar(&global, globalFlagName, false, globalFlagDescription)
	initCommand.Flags().BoolVar(&force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

// resolveSettings merges configuration files, the environment and flags.
func resolveSettings(options rootOptions) (config.Settings, error) {
	workingDirectory, err := os.Getwd()
	if err != nil {
		return config.Settings{}, fmt.Errorf(workingDirectoryErrorForm, err)
	}
	configuration, loadErr := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configPath,
	})
	if loadErr != nil {
		return config.Settings{}, loadErr
	}
	return options.applyTo(configuration.Resolve()), nil
}

// newProvider builds the inference server provider described by settings.
func newProvider(settings config.Settings, logger *zap.Logger) *llm.Provider {
	providerConfig := llm.DefaultConfig()
	providerConfig.BaseURL = settings.URL
	providerConfig.StreamWidth = settings.StreamWidth
	providerConfig.GenerateTimeouts.Read = settings.GenerateReadTimeout
	providerConfig.ProbeTimeout = settings.ProbeTimeout
	providerConfig.UnloadTimeout = settings.UnloadTimeout
	providerConfig.UnloadPayload[llm.KeepAliveField] = settings.UnloadKeepAlive
	return llm.NewProvider(providerConfig, transport.NewClient(logger), llm.NewRegister(), logger)
}

func newTokenCounter(settings config.Settings) func() (tokenizer.Counter, error) {
	return func() (tokenizer.Counter, error) {
		counter, _, err := tokenizer.NewCounter(tokenizer.Config{Model: settings.TokenModel})
		return counter, err
	}
}

// runInteractive performs the startup checks, then runs the command loop and
// releases the selected model when it ends.
func runInteractive(ctx context.Context, command *cobra.Command, settings config.Settings, logger *zap.Logger) error {
	printer := output.NewPrinter(output.Options{
		Stdout: command.OutOrStdout(),
		Stderr: command.ErrOrStderr(),
		Color:  settings.Color,
	})
	currentSession := newSession(
		newProvider(settings, logger),
		git.NewRepository(""),
		clipboard.NewService(),
		printer,
		settings,
		logger,
		newTokenCounter(settings),
	)
	if !prepareSession(ctx, currentSession, git.IsInstalled) {
		return ExitError{Code: types.StatusFailure}
	}

	reader := newTerminalReader()
	loopErr := runCommandLoop(ctx, reader, currentSession)
	closeErr := reader.Close()
	currentSession.unloadOnExit(context.WithoutCancel(ctx))
	return errors.Join(loopErr, closeErr)
}
