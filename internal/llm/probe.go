package llm

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/temirov/commizard/internal/transport"
)

// MinimumServerVersion is the first Ollama release serving the chat completions endpoint.
const MinimumServerVersion = "v0.1.24"

const versionField = "version"

// ProbeResult describes what the reachability probe learned about the server.
type ProbeResult struct {
	Reachable bool
	Version   string
	// Supported is false only when the server reports a valid version older than MinimumServerVersion.
	Supported bool
}

// Probe checks whether an inference server answers on the version endpoint.
func (provider *Provider) Probe(ctx context.Context) ProbeResult {
	result, executeErr := provider.client.Execute(ctx, http.MethodGet, provider.endpoint(versionPath), transport.Options{
		Timeouts: &transport.Timeouts{Connect: provider.config.ProbeTimeout, Read: provider.config.ProbeTimeout},
	})
	if executeErr != nil || result.IsError() || result.StatusCode != http.StatusOK {
		provider.logger.Debug("server probe failed", zap.Int("code", result.Code()))
		return ProbeResult{}
	}
	response, isObject := result.Payload.Object()
	if !isObject {
		return ProbeResult{}
	}
	version, hasVersion := response[versionField].(string)
	if !hasVersion {
		return ProbeResult{}
	}
	return ProbeResult{Reachable: true, Version: version, Supported: isSupportedVersion(version)}
}

func isSupportedVersion(version string) bool {
	canonical := version
	if len(canonical) == 0 || canonical[0] != 'v' {
		canonical = "v" + canonical
	}
	if !semver.IsValid(canonical) {
		return true
	}
	return semver.Compare(canonical, MinimumServerVersion) >= 0
}
