package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/commizard/internal/config"
	"github.com/temirov/commizard/internal/git"
	"github.com/temirov/commizard/internal/llm"
	"github.com/temirov/commizard/internal/output"
	"github.com/temirov/commizard/internal/reflow"
	"github.com/temirov/commizard/internal/services/clipboard"
	"github.com/temirov/commizard/internal/tokenizer"
	"github.com/temirov/commizard/internal/types"
)

const (
	startCommandName    = "start"
	listCommandName     = "list"
	genCommandName      = "gen"
	generateCommandName = "generate"
	copyCommandName     = "cp"
	commitCommandName   = "commit"
	helpCommandName     = "help"
	clsCommandName      = "cls"
	clearCommandName    = "clear"
	exitCommandName     = "exit"
	quitCommandName     = "quit"

	noCommitMessageWarning    = "No commit message detected. Skipping."
	noGeneratedMessageWarning = "No generated message found. Please run 'generate' first."
	copiedMessage             = "Copied to clipboard."
	missingModelError         = "Please specify a model."
	modelNotFoundFormat       = "%s Not found."
	listUnavailableError      = "failed to list available local AI models. Is ollama running?"
	noModelsWarning           = "No local AI models found."
	noChangesWarning          = "No changes to the repository."
	diffFailedFormat          = "failed to read the git diff: %v"
	unstagedChangesWarning    = "Nothing is staged. The message describes unstaged changes; stage them with git add before running commit."
	unknownCommandFormat      = "Unknown command: %s. Type help to see the available commands."
	unknownHelpTopicFormat    = "No help available for %s."
	tokenLimitWarningFormat   = "The prompt is about %d tokens, above the configured limit of %d. The model may not see the whole diff."

	generalHelp = `
The following commands are available:

  start             Select a model to generate for you.
  list              List all available models.
  gen               Generate a new commit message.
  cp                Copy the last generated message to the clipboard.
  commit            Commit the last generated message.
  cls  | clear      Clear the terminal screen.
  exit | quit       Exit the program.

To view help for a command, type help, followed by a space, and the
command's name.
`
)

var commandHelp = map[string]string{
	startCommandName:    "Usage: start <model>\n\nSelects the model to generate commit messages with.",
	listCommandName:     "Usage: list\n\nLists all installed models.",
	genCommandName:      "Usage: gen\n\nGenerates a commit message from the current Git diff.",
	generateCommandName: "Usage: gen\n\nGenerates a commit message from the current Git diff.",
	copyCommandName:     "Usage: cp\n\nCopies the last generated message to the clipboard.",
	commitCommandName:   "Usage: commit\n\nCommits using the last generated message.",
	clsCommandName:      "Usage: cls | clear\n\nClears the terminal screen.",
	clearCommandName:    "Usage: cls | clear\n\nClears the terminal screen.",
	exitCommandName:     "Usage: exit | quit\n\nExits the program.",
	quitCommandName:     "Usage: exit | quit\n\nExits the program.",
}

// repository is the part of git the command loop needs.
type repository interface {
	IsInsideWorkingTree(ctx context.Context) bool
	CleanDiff(ctx context.Context) (git.Diff, error)
	Commit(ctx context.Context, message string) (int, string)
}

type commandHandler func(ctx context.Context, arguments []string)

// session holds the state of one interactive run.
type session struct {
	provider    *llm.Provider
	repository  repository
	copier      clipboard.Copier
	printer     *output.Printer
	settings    config.Settings
	logger      *zap.Logger
	newCounter  func() (tokenizer.Counter, error)
	counter     tokenizer.Counter
	lastMessage string
	handlers    map[string]commandHandler
}

func newSession(provider *llm.Provider, repository repository, copier clipboard.Copier, printer *output.Printer, settings config.Settings, logger *zap.Logger, newCounter func() (tokenizer.Counter, error)) *session {
	if logger == nil {
		logger = zap.NewNop()
	}
	currentSession := &session{
		provider:   provider,
		repository: repository,
		copier:     copier,
		printer:    printer,
		settings:   settings,
		logger:     logger,
		newCounter: newCounter,
	}
	currentSession.handlers = map[string]commandHandler{
		commitCommandName:   currentSession.commit,
		helpCommandName:     currentSession.help,
		copyCommandName:     currentSession.copy,
		startCommandName:    currentSession.start,
		listCommandName:     currentSession.list,
		genCommandName:      currentSession.generate,
		generateCommandName: currentSession.generate,
		clearCommandName:    currentSession.clear,
		clsCommandName:      currentSession.clear,
	}
	return currentSession
}

// dispatch runs the command named by the first word of input. It returns
// StatusFailure when no such command exists.
func (currentSession *session) dispatch(ctx context.Context, input string) int {
	words := strings.Fields(input)
	if len(words) == 0 {
		return types.StatusSuccess
	}
	handler, known := currentSession.handlers[words[0]]
	if !known {
		currentSession.printer.Error(fmt.Sprintf(unknownCommandFormat, words[0]))
		return types.StatusFailure
	}
	handler(ctx, words[1:])
	return types.StatusSuccess
}

func (currentSession *session) commit(ctx context.Context, arguments []string) {
	if currentSession.lastMessage == "" {
		currentSession.printer.Warning(noCommitMessageWarning)
		return
	}
	code, message := currentSession.repository.Commit(ctx, currentSession.lastMessage)
	if code == types.StatusSuccess {
		currentSession.printer.Success(message)
		return
	}
	currentSession.printer.Warning(message)
}

func (currentSession *session) help(ctx context.Context, arguments []string) {
	if len(arguments) == 0 {
		currentSession.printer.Plain(generalHelp)
		return
	}
	text, known := commandHelp[arguments[0]]
	if !known {
		currentSession.printer.Error(fmt.Sprintf(unknownHelpTopicFormat, arguments[0]))
		return
	}
	currentSession.printer.Plain(text)
}

func (currentSession *session) copy(ctx context.Context, arguments []string) {
	if currentSession.lastMessage == "" {
		currentSession.printer.Warning(noGeneratedMessageWarning)
		return
	}
	if err := currentSession.copier.Copy(currentSession.lastMessage); err != nil {
		currentSession.printer.Error(err.Error())
		return
	}
	currentSession.printer.Success(copiedMessage)
}

func (currentSession *session) start(ctx context.Context, arguments []string) {
	register := currentSession.provider.Register()
	if _, initialized := register.AvailableModels(); !initialized {
		currentSession.provider.InitModelList(ctx)
	}
	if len(arguments) == 0 {
		currentSession.printer.Error(missingModelError)
		return
	}
	modelName := arguments[0]
	if availableModels, _ := register.AvailableModels(); len(availableModels) > 0 && !slices.Contains(availableModels, modelName) {
		currentSession.printer.Error(fmt.Sprintf(modelNotFoundFormat, modelName))
		return
	}
	code, message := currentSession.provider.Select(ctx, modelName)
	if code == types.StatusSuccess {
		currentSession.printer.Success(message)
		return
	}
	currentSession.printer.Error(message)
}

func (currentSession *session) list(ctx context.Context, arguments []string) {
	models, listed := currentSession.provider.InitModelList(ctx)
	if !listed {
		currentSession.printer.Error(listUnavailableError)
		return
	}
	if len(models) == 0 {
		currentSession.printer.Warning(noModelsWarning)
		return
	}
	currentSession.printer.ModelTable(models)
}

func (currentSession *session) generate(ctx context.Context, arguments []string) {
	diff, diffErr := currentSession.repository.CleanDiff(ctx)
	if diffErr != nil {
		currentSession.printer.Error(fmt.Sprintf(diffFailedFormat, diffErr))
		return
	}
	if diff.Text == "" {
		currentSession.printer.Warning(noChangesWarning)
		return
	}
	if !diff.Staged {
		currentSession.printer.Warning(unstagedChangesWarning)
	}
	prompt := llm.GenerationPrompt + diff.Text
	currentSession.warnAboutPromptSize(prompt)

	if currentSession.settings.Stream {
		currentSession.generateStreaming(ctx, prompt)
		return
	}
	code, response := currentSession.provider.Generate(ctx, prompt)
	if code != types.StatusSuccess {
		currentSession.printer.Error(response)
		return
	}
	wrapped := reflow.Wrap(response, currentSession.settings.WrapWidth)
	currentSession.lastMessage = wrapped
	currentSession.printer.Generated(wrapped)
}

func (currentSession *session) generateStreaming(ctx context.Context, prompt string) {
	streamed := false
	sink := currentSession.printer.StreamSink()
	code, response := currentSession.provider.StreamGenerate(ctx, prompt, func(chunk string) {
		streamed = true
		sink(chunk)
	})
	if streamed {
		currentSession.printer.EndStream()
	}
	if code != types.StatusSuccess {
		currentSession.printer.Error(response)
		return
	}
	currentSession.lastMessage = reflow.Wrap(response, currentSession.settings.WrapWidth)
}

func (currentSession *session) clear(ctx context.Context, arguments []string) {
	currentSession.printer.Clear()
}

// warnAboutPromptSize logs the prompt's token estimate and warns when it
// exceeds the configured limit. Estimation problems never block generation.
func (currentSession *session) warnAboutPromptSize(prompt string) {
	if currentSession.counter == nil && currentSession.newCounter != nil {
		counter, counterErr := currentSession.newCounter()
		if counterErr != nil {
			currentSession.logger.Debug("token counter unavailable", zap.Error(counterErr))
			currentSession.newCounter = nil
			return
		}
		currentSession.counter = counter
	}
	if currentSession.counter == nil {
		return
	}
	estimate, estimateErr := tokenizer.EstimatePrompt(currentSession.counter, prompt, currentSession.settings.TokenWarnLimit)
	if estimateErr != nil {
		currentSession.logger.Debug("token estimate failed", zap.Error(estimateErr))
		return
	}
	currentSession.logger.Debug("prompt token estimate",
		zap.String("tokenizer", currentSession.counter.Name()),
		zap.Int("tokens", estimate.Tokens),
		zap.Int("limit", estimate.Limit),
	)
	if estimate.Exceeding {
		currentSession.printer.Warning(fmt.Sprintf(tokenLimitWarningFormat, estimate.Tokens, estimate.Limit))
	}
}

// unloadOnExit releases the selected model so the server can free its memory.
func (currentSession *session) unloadOnExit(ctx context.Context) {
	code, message := currentSession.provider.Unload(ctx)
	if code != types.StatusSuccess {
		currentSession.printer.Warning(message)
		return
	}
	if message != "" {
		currentSession.logger.Debug("model released", zap.String("message", message))
	}
}
