package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/temirov/commizard/internal/config"
	"github.com/temirov/commizard/internal/git"
	"github.com/temirov/commizard/internal/output"
	"github.com/temirov/commizard/internal/tokenizer"
	"github.com/temirov/commizard/internal/types"
)

const (
	testModelName     = "llama3:8b"
	tagsResponse      = `{"models":[{"name":"llama3:8b","details":{"parameter_size":"8.0B"}},{"name":"qwen2.5-coder:1.5b","details":{"parameter_size":"1.5B"}}]}`
	emptyTagsResponse = `{"models":[]}`
	loadedResponse    = `{"model":"llama3:8b","done":true,"done_reason":"load"}`
)

type serverRoutes map[string]http.HandlerFunc

type recordedCall struct {
	path string
	body map[string]any
}

type fakeInferenceServer struct {
	*httptest.Server
	mutex sync.Mutex
	calls []recordedCall
}

func newFakeInferenceServer(t *testing.T, routes serverRoutes) *fakeInferenceServer {
	t.Helper()
	server := &fakeInferenceServer{}
	server.Server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(request.Body).Decode(&body)
		server.mutex.Lock()
		server.calls = append(server.calls, recordedCall{path: request.URL.Path, body: body})
		server.mutex.Unlock()
		handler, known := routes[request.URL.Path]
		if !known {
			http.NotFound(writer, request)
			return
		}
		handler(writer, request)
	}))
	t.Cleanup(server.Close)
	return server
}

func (server *fakeInferenceServer) recorded() []recordedCall {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return append([]recordedCall(nil), server.calls...)
}

func jsonResponse(status int, body string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(status)
		fmt.Fprint(writer, body)
	}
}

func eventStream(lines ...string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		flusher := writer.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(writer, "%s\n\n", line)
			flusher.Flush()
		}
	}
}

func contentFrame(content string) string {
	encoded, _ := json.Marshal(content)
	return fmt.Sprintf(`data: {"choices":[{"index":0,"delta":{"content":%s},"finish_reason":null}]}`, encoded)
}

func chatCompletion(content string) string {
	encoded, _ := json.Marshal(content)
	return fmt.Sprintf(`{"choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, encoded)
}

func closedServerURL(t *testing.T) string {
	t.Helper()
	listener, listenErr := net.Listen("tcp", "127.0.0.1:0")
	if listenErr != nil {
		t.Fatalf("listen: %v", listenErr)
	}
	address := listener.Addr().String()
	listener.Close()
	return "http://" + address + "/"
}

type fakeRepository struct {
	insideWorkTree bool
	diff           string
	unstaged       bool
	diffErr        error
	commitCode     int
	commitOutput   string
	committed      []string
}

func (repository *fakeRepository) IsInsideWorkingTree(ctx context.Context) bool {
	return repository.insideWorkTree
}

func (repository *fakeRepository) CleanDiff(ctx context.Context) (git.Diff, error) {
	if repository.diffErr != nil {
		return git.Diff{}, repository.diffErr
	}
	return git.Diff{Text: repository.diff, Staged: !repository.unstaged}, nil
}

func (repository *fakeRepository) Commit(ctx context.Context, message string) (int, string) {
	repository.committed = append(repository.committed, message)
	return repository.commitCode, repository.commitOutput
}

type fakeCopier struct {
	copied []string
	err    error
}

func (copier *fakeCopier) Copy(text string) error {
	if copier.err != nil {
		return copier.err
	}
	copier.copied = append(copier.copied, text)
	return nil
}

type runeCounter struct{}

func (runeCounter) Name() string { return "runes" }

func (runeCounter) CountString(input string) (int, error) { return len([]rune(input)), nil }

type sessionFixture struct {
	session    *session
	stdout     *bytes.Buffer
	stderr     *bytes.Buffer
	repository *fakeRepository
	copier     *fakeCopier
}

func testSettings(baseURL string) config.Settings {
	settings := config.DefaultSettings()
	settings.URL = baseURL
	settings.Banner = false
	settings.Color = false
	settings.TokenWarnLimit = 0
	return settings
}

func newSessionFixture(settings config.Settings, repository *fakeRepository) sessionFixture {
	if repository == nil {
		repository = &fakeRepository{insideWorkTree: true}
	}
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	copier := &fakeCopier{}
	printer := output.NewPrinter(output.Options{Stdout: stdout, Stderr: stderr, Color: settings.Color})
	currentSession := newSession(
		newProvider(settings, nil),
		repository,
		copier,
		printer,
		settings,
		nil,
		func() (tokenizer.Counter, error) { return runeCounter{}, nil },
	)
	return sessionFixture{session: currentSession, stdout: stdout, stderr: stderr, repository: repository, copier: copier}
}

func selectTestModel(t *testing.T, fixture sessionFixture) {
	t.Helper()
	if code, message := fixture.session.provider.Select(context.Background(), testModelName); code != types.StatusSuccess {
		t.Fatalf("select %s: %d %s", testModelName, code, message)
	}
	fixture.stdout.Reset()
}

var errScriptExhausted = errors.New("script exhausted")
