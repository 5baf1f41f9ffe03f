package functional

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
)

// mailDir is where the file mail backend writes, relative to the home.
const mailDir = "mail"

// aCleanEnvironment writes a config that delivers mail to files so
// scenarios can inspect notifications.
func aCleanEnvironment(ctx context.Context) (context.Context, error) {
	state := getState(ctx)
	if state == nil {
		return ctx, fmt.Errorf("no test state; is the Before hook running?")
	}
	conf := fmt.Sprintf(`[typosquat]
emails = ["security@example.com"]

[mail]
backend = "file"
dir = %q
`, filepath.ToSlash(filepath.Join(state.homeDir, mailDir)))
	return ctx, os.WriteFile(filepath.Join(state.homeDir, "config.toml"), []byte(conf), 0o600)
}

func aConfigFile(ctx context.Context, doc *godog.DocString) (context.Context, error) {
	state := getState(ctx)
	content := strings.ReplaceAll(doc.Content, "$HOME", filepath.ToSlash(state.homeDir))
	return ctx, os.WriteFile(filepath.Join(state.homeDir, "config.toml"), []byte(content), 0o600)
}

func aPackageList(ctx context.Context, name string, doc *godog.DocString) (context.Context, error) {
	state := getState(ctx)
	return ctx, os.WriteFile(filepath.Join(state.homeDir, name), []byte(doc.Content), 0o644)
}

func theEnvironmentVariableIs(ctx context.Context, key, value string) (context.Context, error) {
	state := getState(ctx)
	state.env = append(state.env, key+"="+value)
	return ctx, nil
}

// iRun executes a command string, replacing "squatwatch" with the test
// binary path. Commands run in the scenario's home directory.
func iRun(ctx context.Context, command string) (context.Context, error) {
	state := getState(ctx)
	if state == nil {
		return ctx, fmt.Errorf("no test state; is the Before hook running?")
	}

	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "squatwatch" {
		args[0] = state.binPath
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = state.homeDir
	cmd.Env = append(os.Environ(),
		"SQUATWATCH_HOME="+state.homeDir,
		"SQUATWATCH_CONFIG=",
		"SQUATWATCH_DATABASE=",
		"NO_COLOR=1",
	)
	cmd.Env = append(cmd.Env, state.env...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	state.stdout = stdout.String()
	state.stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		state.exitCode = 0
	case errors.As(err, &exitErr):
		state.exitCode = exitErr.ExitCode()
	default:
		return ctx, fmt.Errorf("command execution failed: %w", err)
	}
	return ctx, nil
}

func theExitCodeIs(ctx context.Context, expected int) error {
	state := getState(ctx)
	if state.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nstdout: %s\nstderr: %s",
			expected, state.exitCode, state.stdout, state.stderr)
	}
	return nil
}

func theExitCodeIsNot(ctx context.Context, notExpected int) error {
	state := getState(ctx)
	if state.exitCode == notExpected {
		return fmt.Errorf("expected exit code to not be %d\nstdout: %s\nstderr: %s",
			notExpected, state.stdout, state.stderr)
	}
	return nil
}

func theOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	if strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout not to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theErrorOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

func theErrorOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	if strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr not to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

func theFileExists(ctx context.Context, path string) error {
	state := getState(ctx)
	fullPath := filepath.Join(state.homeDir, path)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("expected file %q to exist", fullPath)
	}
	return nil
}

func theFileDoesNotExist(ctx context.Context, path string) error {
	state := getState(ctx)
	fullPath := filepath.Join(state.homeDir, path)
	if _, err := os.Stat(fullPath); err == nil {
		return fmt.Errorf("expected file %q not to exist", fullPath)
	}
	return nil
}

func spooled(state *testState) ([]string, error) {
	return filepath.Glob(filepath.Join(state.homeDir, mailDir, "*.eml"))
}

func theMailSpoolHolds(ctx context.Context, expected int) error {
	state := getState(ctx)
	files, err := spooled(state)
	if err != nil {
		return err
	}
	if len(files) != expected {
		return fmt.Errorf("expected %d message(s) in the mail spool, found %d", expected, len(files))
	}
	return nil
}

func aMessageToMentions(ctx context.Context, recipient, text string) error {
	state := getState(ctx)
	files, err := spooled(state)
	if err != nil {
		return err
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		msg := string(data)
		if strings.Contains(msg, "To: "+recipient) && strings.Contains(msg, text) {
			return nil
		}
	}
	return fmt.Errorf("no message to %s mentions %q (%d message(s) spooled)", recipient, text, len(files))
}

func noMessageMentions(ctx context.Context, text string) error {
	state := getState(ctx)
	files, err := spooled(state)
	if err != nil {
		return err
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if strings.Contains(string(data), text) {
			return fmt.Errorf("%s mentions %q:\n%s", filepath.Base(f), text, data)
		}
	}
	return nil
}
