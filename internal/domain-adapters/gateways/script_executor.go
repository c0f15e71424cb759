package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

// ScriptExecutor runs external tools for recipes
type ScriptExecutor struct {
	defaultTimeout time.Duration
	output         io.Writer
	logger         interfaces.Logger
}

// NewScriptExecutor creates a new script executor. When output is non-nil
// the tool output is streamed to it as well as captured.
func NewScriptExecutor(output io.Writer, logger interfaces.Logger) *ScriptExecutor {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ScriptExecutor{
		defaultTimeout: 60 * time.Minute,
		output:         output,
		logger:         logger,
	}
}

// ExecuteScriptConfig contains configuration for executing a shell script.
type ExecuteScriptConfig struct {
	Script      string
	WorkingDir  string
	Env         map[string]string
	Timeout     time.Duration
	Description string
}

// ExecuteCommandConfig contains configuration for executing a program directly.
type ExecuteCommandConfig struct {
	Name        string
	Args        []string
	WorkingDir  string
	Env         map[string]string
	Timeout     time.Duration
	Description string
}

// ExecuteResult contains the result of script execution
type ExecuteResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Err converts a failed result into an error carrying the exit code and stderr
func (r *ExecuteResult) Err(what string) error {
	if r.Success {
		return nil
	}
	cause := r.Error
	if cause == nil {
		cause = errors.New("command failed")
	}
	return fmt.Errorf("%s failed (exit %d): %w\nStderr: %s", what, r.ExitCode, cause, tail(r.Stderr, 40))
}

// ExecuteScript runs a shell script with the given configuration
func (se *ScriptExecutor) ExecuteScript(ctx context.Context, config ExecuteScriptConfig) *ExecuteResult {
	return se.ExecuteCommand(ctx, ExecuteCommandConfig{
		Name:        "/bin/sh",
		Args:        []string{"-c", config.Script},
		WorkingDir:  config.WorkingDir,
		Env:         config.Env,
		Timeout:     config.Timeout,
		Description: config.Description,
	})
}

// ExecuteCommand runs a program with arguments, without a shell
func (se *ScriptExecutor) ExecuteCommand(ctx context.Context, config ExecuteCommandConfig) *ExecuteResult {
	startTime := time.Now()
	result := &ExecuteResult{}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = se.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: Command execution is intentional and controlled by the recipe
	cmd := exec.CommandContext(execCtx, config.Name, config.Args...)
	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}
	cmd.Env = mergeEnv(os.Environ(), config.Env)

	var stdout, stderr bytes.Buffer
	if se.output != nil {
		cmd.Stdout = io.MultiWriter(&stdout, se.output)
		cmd.Stderr = io.MultiWriter(&stderr, se.output)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	description := config.Description
	if description == "" {
		description = strings.Join(append([]string{config.Name}, config.Args...), " ")
	}
	se.logger.Info("executing", interfaces.F("command", description), interfaces.F("dir", config.WorkingDir))

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		//nolint:gocritic // ifElseChain: checking different error types, not suitable for switch
		if execCtx.Err() == context.DeadlineExceeded {
			result.Error = fmt.Errorf("execution timeout after %v", timeout)
			result.ExitCode = -1
		} else if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		return result
	}

	se.logger.Debug("finished", interfaces.F("command", description), interfaces.F("duration", result.Duration))
	result.Success = true
	result.ExitCode = 0
	return result
}

// mergeEnv overlays extra onto base; later keys replace earlier ones
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, override := extra[key]; override {
			continue
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// tail returns the last n lines of s
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
