package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/commizard/internal/llm"
)

const (
	gitNotInstalledError         = "git not installed"
	notInsideWorkTreeError       = "not inside work tree"
	localAIUnavailableWarning    = "local AI not available"
	unsupportedServerWarningForm = "the server reports version %s; versions before %s do not serve the chat completions endpoint."
)

// environmentReport is what the startup probes learned.
type environmentReport struct {
	gitInstalled bool
	server       llm.ProbeResult
}

// probeEnvironment checks git and the inference server concurrently. The
// probes share nothing and both always complete.
func probeEnvironment(ctx context.Context, provider *llm.Provider, gitInstalled func() bool) environmentReport {
	var report environmentReport
	group, groupContext := errgroup.WithContext(ctx)
	group.Go(func() error {
		report.gitInstalled = gitInstalled()
		return nil
	})
	group.Go(func() error {
		report.server = provider.Probe(groupContext)
		return nil
	})
	_ = group.Wait()
	return report
}

// prepareSession runs the startup checks. It returns false when the command
// loop cannot run.
func prepareSession(ctx context.Context, currentSession *session, gitInstalled func() bool) bool {
	report := probeEnvironment(ctx, currentSession.provider, gitInstalled)
	currentSession.logger.Debug("startup probes finished",
		zap.Bool("git", report.gitInstalled),
		zap.Bool("server", report.server.Reachable),
		zap.String("server_version", report.server.Version),
	)

	if !report.gitInstalled {
		currentSession.printer.Error(gitNotInstalledError)
		return false
	}
	if !currentSession.repository.IsInsideWorkingTree(ctx) {
		currentSession.printer.Error(notInsideWorkTreeError)
		return false
	}

	if currentSession.settings.Banner {
		currentSession.printer.Banner()
	}

	switch {
	case !report.server.Reachable:
		currentSession.printer.Warning(localAIUnavailableWarning)
	case !report.server.Supported:
		currentSession.printer.Warning(fmt.Sprintf(unsupportedServerWarningForm, report.server.Version, llm.MinimumServerVersion))
	}
	return true
}
