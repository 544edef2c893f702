package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/temirov/commizard/internal/types"
)

func TestCleanDiffDropsIndexLines(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{
			name:     "index_line_removed",
			input:    "diff --git a/a.txt b/a.txt\nindex 83db48f..bf269f4 100644\n--- a/a.txt\n+++ b/a.txt\n@@ -1 +1 @@\n-old\n+new\n",
			expected: "diff --git a/a.txt b/a.txt\n--- a/a.txt\n+++ b/a.txt\n@@ -1 +1 @@\n-old\n+new",
		},
		{
			name:     "content_mentioning_index_kept",
			input:    "+index := 0\n",
			expected: "+index := 0",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if actual := cleanDiff(testCase.input); actual != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, actual)
			}
		})
	}
}

func initRepository(t *testing.T) string {
	t.Helper()
	if !IsInstalled() {
		t.Skip("git is not installed")
	}
	directory := t.TempDir()
	for _, arguments := range [][]string{
		{"init", "--quiet"},
		{"config", "user.name", "Test User"},
		{"config", "user.email", "test@example.com"},
		{"config", "commit.gpgsign", "false"},
	} {
		command := exec.Command("git", arguments...)
		command.Dir = directory
		if output, err := command.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", arguments, err, output)
		}
	}
	return directory
}

func writeFile(t *testing.T, directory, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(directory, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRepositoryWorkflow(t *testing.T) {
	directory := initRepository(t)
	repository := NewRepository(directory)
	ctx := context.Background()

	if !repository.IsInsideWorkingTree(ctx) {
		t.Fatalf("expected %s to be a work tree", directory)
	}

	diff, err := repository.CleanDiff(ctx)
	if err != nil {
		t.Fatalf("CleanDiff error: %v", err)
	}
	if diff.Text != "" {
		t.Fatalf("expected empty diff in a fresh repository, got %q", diff.Text)
	}

	writeFile(t, directory, "notes.txt", "first\n")
	add := exec.Command("git", "add", "notes.txt")
	add.Dir = directory
	if output, addErr := add.CombinedOutput(); addErr != nil {
		t.Fatalf("git add: %v\n%s", addErr, output)
	}

	diff, err = repository.CleanDiff(ctx)
	if err != nil {
		t.Fatalf("CleanDiff error: %v", err)
	}
	if !diff.Staged || !strings.Contains(diff.Text, "+first") {
		t.Fatalf("expected staged change in diff, got %+v", diff)
	}
	if strings.Contains(diff.Text, "\nindex ") {
		t.Fatalf("expected index lines to be removed, got %q", diff.Text)
	}

	code, message := repository.Commit(ctx, "feat: add notes\n\nFirst entry.")
	if code != types.StatusSuccess {
		t.Fatalf("expected commit to succeed, got %d %q", code, message)
	}
	if !strings.Contains(message, "feat: add notes") {
		t.Fatalf("expected commit summary in output, got %q", message)
	}

	writeFile(t, directory, "notes.txt", "first\nsecond\n")
	diff, err = repository.CleanDiff(ctx)
	if err != nil {
		t.Fatalf("CleanDiff error: %v", err)
	}
	if diff.Staged || !strings.Contains(diff.Text, "+second") {
		t.Fatalf("expected unstaged change when nothing is staged, got %+v", diff)
	}

	code, message = repository.Commit(ctx, "chore: nothing staged")
	if code != types.StatusFailure {
		t.Fatalf("expected commit without staged changes to fail, got %d %q", code, message)
	}
	if message == "" {
		t.Fatalf("expected git to explain the failure")
	}
}

func TestIsInsideWorkingTreeOutsideRepository(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git is not installed")
	}
	directory := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(directory))
	if NewRepository(directory).IsInsideWorkingTree(context.Background()) {
		t.Fatalf("expected %s to be outside any work tree", directory)
	}
}
