package llm

import (
	"context"
	"fmt"
	"maps"
	"net/http"

	"go.uber.org/zap"

	"github.com/temirov/commizard/internal/transport"
	"github.com/temirov/commizard/internal/types"
)

const (
	modelField         = "model"
	modelsField        = "models"
	nameField          = "name"
	detailsField       = "details"
	parameterSizeField = "parameter_size"
	doneReasonField    = "done_reason"
	doneReasonLoad     = "load"

	modelLoadedMessageFormat   = "%s loaded."
	modelUnloadedMessageFormat = "%s unloaded."
	loadFailureMessageFormat   = "failed to load %s: %s"
	unknownLoadProblemMessage  = "There was an unknown problem loading the model.\n Please report this issue."
)

// ListLocal returns the models installed on the server in server order. The
// boolean is false when the server could not be asked or answered without a
// model list.
func (provider *Provider) ListLocal(ctx context.Context) ([]types.ModelInfo, bool) {
	result, executeErr := provider.client.Execute(ctx, http.MethodGet, provider.endpoint(tagsPath), transport.Options{})
	if executeErr != nil || result.IsError() || result.StatusCode != http.StatusOK {
		provider.logger.Debug("model listing failed", zap.Int("code", result.Code()), zap.Error(executeErr))
		return nil, false
	}
	listing, isObject := result.Payload.Object()
	if !isObject {
		return nil, false
	}
	entries, isList := listing[modelsField].([]any)
	if !isList {
		return nil, false
	}
	models := make([]types.ModelInfo, 0, len(entries))
	for _, rawEntry := range entries {
		entry, isEntry := rawEntry.(map[string]any)
		if !isEntry {
			continue
		}
		name, _ := entry[nameField].(string)
		modelInfo := types.ModelInfo{Name: name}
		if details, hasDetails := entry[detailsField].(map[string]any); hasDetails {
			modelInfo.ParameterSize, _ = details[parameterSizeField].(string)
		}
		models = append(models, modelInfo)
	}
	return models, true
}

// InitModelList refreshes the register's model names from the server and
// returns the listing. A failed listing leaves the register as it was.
func (provider *Provider) InitModelList(ctx context.Context) ([]types.ModelInfo, bool) {
	models, listed := provider.ListLocal(ctx)
	if !listed {
		return nil, false
	}
	modelNames := make([]string, 0, len(models))
	for _, modelInfo := range models {
		modelNames = append(modelNames, modelInfo.Name)
	}
	provider.register.setAvailableModels(modelNames)
	provider.logger.Debug("model list refreshed", zap.Strings("models", modelNames))
	return models, true
}

// RequestLoad asks the server to load modelName into memory. Loading may take
// minutes, so the read timeout is generous.
func (provider *Provider) RequestLoad(ctx context.Context, modelName string) transport.Result {
	result, _ := provider.client.Execute(ctx, http.MethodPost, provider.endpoint(generatePath), transport.Options{
		JSON:     map[string]any{modelField: modelName},
		Timeouts: &transport.Timeouts{Connect: loadConnectTimeout, Read: loadReadTimeout},
	})
	return result
}

// Select loads modelName and makes it the model used for generation.
func (provider *Provider) Select(ctx context.Context, modelName string) (int, string) {
	provider.lifecycleMutex.Lock()
	defer provider.lifecycleMutex.Unlock()

	result := provider.RequestLoad(ctx, modelName)
	if result.IsError() {
		return types.StatusFailure, fmt.Sprintf(loadFailureMessageFormat, modelName, result.ErrorMessage())
	}
	if result.StatusCode != http.StatusOK {
		return types.StatusFailure, transport.StatusErrorMessage(result.StatusCode)
	}
	response, _ := result.Payload.Object()
	if doneReason, _ := response[doneReasonField].(string); doneReason != doneReasonLoad {
		provider.logger.Debug("unexpected load response", zap.String("model", modelName), zap.Any("response", response))
		return types.StatusFailure, unknownLoadProblemMessage
	}
	provider.register.setSelectedModel(modelName)
	provider.logger.Debug("model selected", zap.String("model", modelName))
	return types.StatusSuccess, fmt.Sprintf(modelLoadedMessageFormat, modelName)
}

// Unload asks the server to release the selected model. Without a selection it
// does nothing and reports success with an empty message. The selection is
// cleared only when the server accepted the request.
func (provider *Provider) Unload(ctx context.Context) (int, string) {
	provider.lifecycleMutex.Lock()
	defer provider.lifecycleMutex.Unlock()

	modelName, selected := provider.register.SelectedModel()
	if !selected {
		return types.StatusSuccess, ""
	}
	payload := maps.Clone(provider.config.UnloadPayload)
	if payload == nil {
		payload = map[string]any{}
	}
	payload[modelField] = modelName
	result, _ := provider.client.Execute(ctx, http.MethodPost, provider.endpoint(generatePath), transport.Options{
		JSON:     payload,
		Timeouts: &transport.Timeouts{Connect: unloadConnectTimeout, Read: provider.config.UnloadTimeout},
	})
	if result.IsError() {
		return types.StatusFailure, result.ErrorMessage()
	}
	if result.StatusCode != http.StatusOK {
		return types.StatusFailure, transport.StatusErrorMessage(result.StatusCode)
	}
	provider.register.clearSelectedModel()
	provider.logger.Debug("model unloaded", zap.String("model", modelName))
	return types.StatusSuccess, fmt.Sprintf(modelUnloadedMessageFormat, modelName)
}
