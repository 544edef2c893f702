package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/commizard/internal/config"
)

func TestRootOptionsApplyTo(t *testing.T) {
	t.Parallel()
	defaults := config.DefaultSettings()

	untouched := rootOptions{}.applyTo(defaults)
	if untouched != defaults {
		t.Fatalf("expected settings without flags to stay unchanged, got %+v", untouched)
	}

	overridden := rootOptions{
		url:    "http://remote:11434/",
		color:  toggleFlag{value: false, set: true},
		stream: toggleFlag{value: false, set: true},
	}.applyTo(defaults)
	if overridden.URL != "http://remote:11434/" || overridden.Color || overridden.Stream {
		t.Fatalf("expected flags to override settings, got %+v", overridden)
	}
	if overridden.Banner != defaults.Banner {
		t.Fatalf("expected banner to keep its configured value")
	}
}

func TestRootCommandPrintsVersion(t *testing.T) {
	t.Parallel()
	rootCommand := createRootCommand(nil, zap.NewAtomicLevel())
	var stdout bytes.Buffer
	rootCommand.SetOut(&stdout)
	rootCommand.SetArgs([]string{"-v"})
	if err := rootCommand.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "CommiZard ") {
		t.Fatalf("unexpected version output %q", stdout.String())
	}
}

func TestRootCommandRejectsArguments(t *testing.T) {
	t.Parallel()
	rootCommand := createRootCommand(nil, zap.NewAtomicLevel())
	rootCommand.SetOut(&bytes.Buffer{})
	rootCommand.SetErr(&bytes.Buffer{})
	rootCommand.SetArgs([]string{"--unknown-flag"})
	if err := rootCommand.Execute(); err == nil {
		t.Fatalf("expected an error for an unknown flag")
	}
}

func TestInitCommandWritesConfiguration(t *testing.T) {
	workingDirectory := t.TempDir()
	t.Chdir(workingDirectory)

	rootCommand := createRootCommand(nil, zap.NewAtomicLevel())
	var stdout bytes.Buffer
	rootCommand.SetOut(&stdout)
	rootCommand.SetArgs([]string{"init"})
	if err := rootCommand.Execute(); err != nil {
		t.Fatalf("execute init: %v", err)
	}
	expectedPath := filepath.Join(workingDirectory, ".commizard.yaml")
	if _, statErr := os.Stat(expectedPath); statErr != nil {
		t.Fatalf("expected configuration at %s: %v", expectedPath, statErr)
	}
	if !strings.Contains(stdout.String(), "Configuration written to ") {
		t.Fatalf("unexpected init output %q", stdout.String())
	}

	second := createRootCommand(nil, zap.NewAtomicLevel())
	second.SetOut(&bytes.Buffer{})
	second.SetArgs([]string{"init"})
	if err := second.Execute(); err == nil {
		t.Fatalf("expected init to refuse overwriting without --force")
	}

	forced := createRootCommand(nil, zap.NewAtomicLevel())
	forced.SetOut(&bytes.Buffer{})
	forced.SetArgs([]string{"init", "--force"})
	if err := forced.Execute(); err != nil {
		t.Fatalf("expected --force to overwrite: %v", err)
	}
}

func TestNewProviderUsesSettings(t *testing.T) {
	t.Parallel()
	settings := config.DefaultSettings()
	settings.URL = "http://remote:11434/"
	settings.UnloadTimeout = 2 * time.Second
	provider := newProvider(settings, nil)
	if provider.BaseURL() != "http://remote:11434/" {
		t.Fatalf("unexpected base URL %q", provider.BaseURL())
	}
	if provider.UnloadTimeout() != 2*time.Second {
		t.Fatalf("expected the configured unload timeout, got %v", provider.UnloadTimeout())
	}
}
