// Package support holds the godog step definitions for the CLI features.
package support

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/datpeek/cmd/datpeek/cmd"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastArgs   []string
	LastOutput string
	LastStderr string
	LastError  error

	// Test environment
	PreviousDir string
	TempDir     string

	CreatedFiles []string
}

// NewTestContext creates a scratch directory and makes it the working
// directory, so scenarios can name entries by relative path.
func NewTestContext() (*TestContext, error) {
	previous, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	tempDir, err := os.MkdirTemp("", "datpeek-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	if err := os.Chdir(tempDir); err != nil {
		return nil, fmt.Errorf("failed to enter temp directory: %w", err)
	}
	return &TestContext{PreviousDir: previous, TempDir: tempDir}, nil
}

// Cleanup restores the working directory and removes the scratch directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if err := os.Chdir(testCtx.PreviousDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to restore working directory: %w", err))
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	return errors.Join(errs...)
}

// writeFile creates name (relative to the scratch directory) with data.
func (testCtx *TestContext) writeFile(name string, data []byte) error {
	path := filepath.Join(testCtx.TempDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	testCtx.CreatedFiles = append(testCtx.CreatedFiles, path)
	return nil
}

// runCommand executes datpeek in-process with a fresh command tree. Media
// capabilities are forced on so results do not depend on installed players.
func (testCtx *TestContext) runCommand(args []string) {
	root := cmd.NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--force-capability", "audio,midi,video"}, args...))

	testCtx.LastArgs = args
	testCtx.LastError = root.Execute()
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
}
