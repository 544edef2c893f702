package llm

import (
	"context"
	"net/http"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/temirov/commizard/internal/transport"
	"github.com/temirov/commizard/internal/types"
)

func TestListLocal(t *testing.T) {
	testCases := []struct {
		name           string
		status         int
		body           string
		expectedListed bool
		expectedModels []types.ModelInfo
	}{
		{
			name:   "models keep server order",
			status: http.StatusOK,
			body: `{"models":[` +
				`{"name":"model1","details":{"family":"bacon","parameter_size":"5b"}},` +
				`{"name":"model2","details":{"happy":false,"parameter_size":"135m"}},` +
				`{"name":"model1","details":{"parameter_size":"5b"}}]}`,
			expectedListed: true,
			expectedModels: []types.ModelInfo{
				{Name: "model1", ParameterSize: "5b"},
				{Name: "model2", ParameterSize: "135m"},
				{Name: "model1", ParameterSize: "5b"},
			},
		},
		{
			name:           "missing details",
			status:         http.StatusOK,
			body:           `{"models":[{"name":"bare"}]}`,
			expectedListed: true,
			expectedModels: []types.ModelInfo{{Name: "bare"}},
		},
		{name: "no models", status: http.StatusOK, body: `{"models":[]}`, expectedListed: true, expectedModels: []types.ModelInfo{}},
		{name: "no models key", status: http.StatusOK, body: `{}`},
		{name: "json null", status: http.StatusOK, body: `null`},
		{name: "text", status: http.StatusOK, body: "hello"},
		{name: "server error", status: http.StatusInternalServerError, body: `{"models":[]}`},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			server := newFakeServer(t, respondWith(testCase.status, testCase.body))
			models, listed := newTestProvider(server.URL+"/").ListLocal(context.Background())
			if listed != testCase.expectedListed {
				t.Fatalf("expected listed %t, got %t", testCase.expectedListed, listed)
			}
			if !reflect.DeepEqual(models, testCase.expectedModels) {
				t.Fatalf("expected %#v, got %#v", testCase.expectedModels, models)
			}
			requests := server.recorded()
			if len(requests) != 1 || requests[0].method != http.MethodGet || requests[0].path != "/api/tags" {
				t.Fatalf("unexpected requests %#v", requests)
			}
		})
	}
}

func TestListLocalUnreachable(t *testing.T) {
	if models, listed := newTestProvider(closedBaseURL(t)).ListLocal(context.Background()); listed || models != nil {
		t.Fatalf("expected no listing, got %#v", models)
	}
}

func TestInitModelListKeepsPreviousListOnFailure(t *testing.T) {
	var available atomic.Bool
	server := newFakeServer(t, func(writer http.ResponseWriter, request *http.Request) {
		if !available.Load() {
			respondWith(http.StatusServiceUnavailable, "")(writer, request)
			return
		}
		respondWith(http.StatusOK, `{"models":[{"name":"gpt-1","details":{"parameter_size":"10b"}},{"name":"gpt-2"}]}`)(writer, request)
	})
	provider := newTestProvider(server.URL + "/")

	available.Store(false)
	provider.InitModelList(context.Background())
	if _, initialized := provider.Register().AvailableModels(); initialized {
		t.Fatalf("expected a failed listing to leave the register uninitialized")
	}

	available.Store(true)
	provider.InitModelList(context.Background())
	models, initialized := provider.Register().AvailableModels()
	if !initialized || !reflect.DeepEqual(models, []string{"gpt-1", "gpt-2"}) {
		t.Fatalf("unexpected model names %#v", models)
	}

	available.Store(false)
	provider.InitModelList(context.Background())
	if again, _ := provider.Register().AvailableModels(); !reflect.DeepEqual(again, models) {
		t.Fatalf("expected the populated list to survive a failed refresh, got %#v", again)
	}
}

func TestRequestLoadSendsModelName(t *testing.T) {
	server := newFakeServer(t, respondWith(http.StatusOK, `{"done_reason":"load"}`))
	result := newTestProvider(server.URL+"/").RequestLoad(context.Background(), "gpt")
	if result.IsError() || result.StatusCode != http.StatusOK {
		t.Fatalf("unexpected result %#v", result)
	}
	requests := server.recorded()
	if len(requests) != 1 {
		t.Fatalf("expected one request, got %d", len(requests))
	}
	if requests[0].method != http.MethodPost || requests[0].path != "/api/generate" {
		t.Fatalf("unexpected request %s %s", requests[0].method, requests[0].path)
	}
	if !reflect.DeepEqual(requests[0].body, map[string]any{"model": "gpt"}) {
		t.Fatalf("expected only the model name, got %#v", requests[0].body)
	}
}

func TestSelect(t *testing.T) {
	testCases := []struct {
		name             string
		modelName        string
		status           int
		body             string
		unreachable      bool
		expectedCode     int
		expectedMessage  string
		expectedSelected bool
	}{
		{
			name:            "transport failure",
			modelName:       "gpt",
			unreachable:     true,
			expectedCode:    1,
			expectedMessage: "failed to load gpt: can't connect to the server",
		},
		{
			name:            "not found",
			modelName:       "llama",
			status:          http.StatusNotFound,
			body:            "404",
			expectedCode:    1,
			expectedMessage: transport.StatusErrorMessage(404),
		},
		{
			name:             "loaded",
			modelName:        "modelX",
			status:           http.StatusOK,
			body:             `{"model":"modelX","done":true,"done_reason":"load"}`,
			expectedMessage:  "modelX loaded.",
			expectedSelected: true,
		},
		{
			name:            "unexpected done reason",
			modelName:       "modelX",
			status:          http.StatusOK,
			body:            `{"done_reason":"spooky"}`,
			expectedCode:    1,
			expectedMessage: "There was an unknown problem loading the model.\n Please report this issue.",
		},
		{
			name:            "text body",
			modelName:       "fara",
			status:          http.StatusOK,
			body:            "loaded",
			expectedCode:    1,
			expectedMessage: unknownLoadProblemMessage,
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			baseURL := closedBaseURL(t)
			if !testCase.unreachable {
				baseURL = newFakeServer(t, respondWith(testCase.status, testCase.body)).URL + "/"
			}
			provider := newTestProvider(baseURL)
			code, message := provider.Select(context.Background(), testCase.modelName)
			if code != testCase.expectedCode || message != testCase.expectedMessage {
				t.Fatalf("expected (%d, %q), got (%d, %q)", testCase.expectedCode, testCase.expectedMessage, code, message)
			}
			selectedModel, selected := provider.Register().SelectedModel()
			if selected != testCase.expectedSelected {
				t.Fatalf("expected selected %t, got %t", testCase.expectedSelected, selected)
			}
			if selected && selectedModel != testCase.modelName {
				t.Fatalf("expected %q selected, got %q", testCase.modelName, selectedModel)
			}
		})
	}
}

func TestSelectKeepsPreviousModelOnFailure(t *testing.T) {
	server := newFakeServer(t, respondWith(http.StatusOK, `{"done_reason":"spooky"}`))
	provider := newTestProvider(server.URL + "/")
	provider.register.setSelectedModel("previous")
	if code, _ := provider.Select(context.Background(), "next"); code != 1 {
		t.Fatalf("expected failure")
	}
	if selectedModel, _ := provider.Register().SelectedModel(); selectedModel != "previous" {
		t.Fatalf("expected the previous selection to survive, got %q", selectedModel)
	}
}

func TestUnload(t *testing.T) {
	testCases := []struct {
		name             string
		initialModel     string
		status           int
		expectedCode     int
		expectedMessage  string
		expectedRequests int
		expectedSelected string
	}{
		{name: "nothing selected", status: http.StatusOK},
		{
			name:             "unload succeeds",
			initialModel:     "llama3",
			status:           http.StatusOK,
			expectedMessage:  "llama3 unloaded.",
			expectedRequests: 1,
		},
		{
			name:             "unload fails",
			initialModel:     "mistral",
			status:           http.StatusInternalServerError,
			expectedCode:     1,
			expectedMessage:  transport.StatusErrorMessage(500),
			expectedRequests: 1,
			expectedSelected: "mistral",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			server := newFakeServer(t, respondWith(testCase.status, `{"done_reason":"unload"}`))
			provider := newTestProvider(server.URL + "/")
			if testCase.initialModel != "" {
				provider.register.setSelectedModel(testCase.initialModel)
			}
			code, message := provider.Unload(context.Background())
			if code != testCase.expectedCode || message != testCase.expectedMessage {
				t.Fatalf("expected (%d, %q), got (%d, %q)", testCase.expectedCode, testCase.expectedMessage, code, message)
			}
			requests := server.recorded()
			if len(requests) != testCase.expectedRequests {
				t.Fatalf("expected %d requests, got %d", testCase.expectedRequests, len(requests))
			}
			if len(requests) == 1 {
				expectedBody := map[string]any{"model": testCase.initialModel, "keep_alive": float64(0)}
				if requests[0].path != "/api/generate" || !reflect.DeepEqual(requests[0].body, expectedBody) {
					t.Fatalf("unexpected unload request %s %#v", requests[0].path, requests[0].body)
				}
			}
			if selectedModel, _ := provider.Register().SelectedModel(); selectedModel != testCase.expectedSelected {
				t.Fatalf("expected selection %q, got %q", testCase.expectedSelected, selectedModel)
			}
		})
	}
}

func TestUnloadTransportFailureKeepsSelection(t *testing.T) {
	provider := newTestProvider(closedBaseURL(t))
	provider.register.setSelectedModel("mistral")
	code, message := provider.Unload(context.Background())
	if code != 1 || message != "can't connect to the server" {
		t.Fatalf("unexpected outcome (%d, %q)", code, message)
	}
	if selectedModel, _ := provider.Register().SelectedModel(); selectedModel != "mistral" {
		t.Fatalf("expected the selection to survive, got %q", selectedModel)
	}
}

func TestUnloadGivesUpOnStalledServer(t *testing.T) {
	released := make(chan struct{})
	server := newFakeServer(t, func(writer http.ResponseWriter, request *http.Request) {
		select {
		case <-request.Context().Done():
		case <-released:
		}
	})
	t.Cleanup(func() { close(released) })

	config := DefaultConfig()
	config.BaseURL = server.URL + "/"
	config.UnloadTimeout = 100 * time.Millisecond
	provider := NewProvider(config, nil, nil, nil)
	provider.register.setSelectedModel("mistral")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	started := time.Now()
	code, message := provider.Unload(context.WithoutCancel(cancelled))
	if elapsed := time.Since(started); elapsed > 3*time.Second {
		t.Fatalf("expected unload to give up quickly, took %v", elapsed)
	}
	if code != 1 || message != transport.TransportErrorMessage(transport.FailureTimeout.Code()) {
		t.Fatalf("expected a timeout failure, got (%d, %q)", code, message)
	}
	if selectedModel, _ := provider.Register().SelectedModel(); selectedModel != "mistral" {
		t.Fatalf("expected the selection to survive, got %q", selectedModel)
	}
}

func TestProbe(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		expected ProbeResult
	}{
		{name: "current server", status: http.StatusOK, body: `{"version":"0.5.7"}`, expected: ProbeResult{Reachable: true, Version: "0.5.7", Supported: true}},
		{name: "old server", status: http.StatusOK, body: `{"version":"0.1.20"}`, expected: ProbeResult{Reachable: true, Version: "0.1.20"}},
		{name: "unparsable version", status: http.StatusOK, body: `{"version":"dev"}`, expected: ProbeResult{Reachable: true, Version: "dev", Supported: true}},
		{name: "no version", status: http.StatusOK, body: `{"status":"ok"}`},
		{name: "not json", status: http.StatusOK, body: "Ollama is running"},
		{name: "not found", status: http.StatusNotFound, body: `{"version":"0.5.7"}`},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			server := newFakeServer(t, respondWith(testCase.status, testCase.body))
			if result := newTestProvider(server.URL + "/").Probe(context.Background()); result != testCase.expected {
				t.Fatalf("expected %+v, got %+v", testCase.expected, result)
			}
		})
	}
	if result := newTestProvider(closedBaseURL(t)).Probe(context.Background()); result.Reachable {
		t.Fatalf("expected an unreachable server")
	}
}
