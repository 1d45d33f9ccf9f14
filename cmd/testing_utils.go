// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test environments,
// feeding stdin and capturing output.
package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/lockbox/internal/configs"
	"github.com/PolarWolf314/lockbox/internal/secrets"
)

// setupTestEnvironment points lockbox at temporary config and data
// directories and changes into a temporary working directory, which it returns.
// The config uses the minimum KDF cost to keep tests fast.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	originalSettings := configs.UserLockboxSettings

	root := t.TempDir()
	workDir := filepath.Join(root, "work")
	if err := os.MkdirAll(workDir, 0700); err != nil {
		t.Fatalf("Failed to create work directory: %v", err)
	}
	if err := os.Chdir(workDir); err != nil {
		t.Fatalf("Failed to change to work directory: %v", err)
	}

	configs.UserLockboxSettings = &configs.Settings{
		ConfigPath: filepath.Join(root, "config", "config.toml"),
		DataDir:    filepath.Join(root, "data"),
		Username:   "testuser",
	}

	config := configs.DefaultConfig()
	config.Crypto.KDFIterations = secrets.MinPBKDF2Iterations
	if err := configs.SaveConfig(configs.UserLockboxSettings.ConfigPath, config); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
		configs.UserLockboxSettings = originalSettings
		ResetGlobalState()
	})

	return workDir
}

// runCLI runs the root command with args, feeding stdin when it is not empty,
// and returns the combined output.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	ResetGlobalState()

	if stdin != "" {
		restore := feedStdin(t, stdin)
		defer restore()
	}

	RootCmd.SetArgs(args)
	return captureOutput(RootCmd.Execute)
}

// feedStdin replaces os.Stdin with a pipe holding content.
func feedStdin(t *testing.T, content string) func() {
	t.Helper()

	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create stdin pipe: %v", err)
	}
	if _, err := writer.WriteString(content); err != nil {
		t.Fatalf("Failed to write stdin: %v", err)
	}
	writer.Close()

	original := os.Stdin
	os.Stdin = reader
	return func() {
		os.Stdin = original
		reader.Close()
	}
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	outputChan := make(chan string, 2)

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}
