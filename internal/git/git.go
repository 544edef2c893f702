// Package git runs the git command line tool on behalf of the command loop.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/temirov/commizard/internal/types"
)

const (
	executableName    = "git"
	indexLinePrefix   = "index "
	insideWorkTreeOut = "true"
)

var diffArguments = []string{"--no-pager", "diff", "--no-color", "--no-ext-diff"}

// IsInstalled reports whether a git executable is reachable through PATH.
func IsInstalled() bool {
	_, err := exec.LookPath(executableName)
	return err == nil
}

// Repository runs git commands inside Directory. An empty Directory means the
// process working directory.
type Repository struct {
	Directory string
}

// NewRepository returns a Repository rooted at directory.
func NewRepository(directory string) *Repository {
	return &Repository{Directory: directory}
}

// IsInsideWorkingTree reports whether Directory belongs to a git work tree.
func (repository *Repository) IsInsideWorkingTree(ctx context.Context) bool {
	output, err := repository.run(ctx, nil, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(output) == insideWorkTreeOut
}

// Diff is a cleaned diff and where it came from.
type Diff struct {
	Text string
	// Staged is false when the text describes working tree changes that a
	// commit would not include.
	Staged bool
}

// CleanDiff returns the staged changes, or the unstaged ones when nothing is
// staged, with the index hash lines removed.
func (repository *Repository) CleanDiff(ctx context.Context) (Diff, error) {
	staged, err := repository.run(ctx, nil, append(diffArguments, "--staged")...)
	if err != nil {
		return Diff{}, err
	}
	if strings.TrimSpace(staged) != "" {
		return Diff{Text: cleanDiff(staged), Staged: true}, nil
	}
	unstaged, unstagedErr := repository.run(ctx, nil, diffArguments...)
	if unstagedErr != nil {
		return Diff{}, unstagedErr
	}
	return Diff{Text: cleanDiff(unstaged)}, nil
}

// Commit records the staged changes with message as the commit message. The
// returned text is git's own report, trimmed.
func (repository *Repository) Commit(ctx context.Context, message string) (int, string) {
	output, err := repository.run(ctx, strings.NewReader(message), "commit", "--file", "-")
	if err != nil {
		var commandErr *commandError
		if errors.As(err, &commandErr) && commandErr.output != "" {
			return types.StatusFailure, commandErr.output
		}
		return types.StatusFailure, err.Error()
	}
	return types.StatusSuccess, strings.TrimSpace(output)
}

func cleanDiff(diff string) string {
	if diff == "" {
		return ""
	}
	lines := strings.Split(diff, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, indexLinePrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

type commandError struct {
	arguments []string
	output    string
	cause     error
}

func (err *commandError) Error() string {
	return fmt.Sprintf("git %s failed: %v", strings.Join(err.arguments, " "), err.cause)
}

func (err *commandError) Unwrap() error {
	return err.cause
}

func (repository *Repository) run(ctx context.Context, stdin *strings.Reader, arguments ...string) (string, error) {
	command := exec.CommandContext(ctx, executableName, arguments...)
	command.Dir = repository.Directory
	if stdin != nil {
		command.Stdin = stdin
	}
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		report := strings.TrimSpace(strings.Join([]string{stdout.String(), stderr.String()}, "\n"))
		return "", &commandError{arguments: arguments, output: report, cause: err}
	}
	return stdout.String(), nil
}
