// Package sandbox executes user-supplied code for CODE nodes using the
// yaegi Go interpreter.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/fluxion-io/fluxion/pkg/protocol"
)

const languageGo = "go"

// entrypoint the interpreted snippet must define:
// func Run(input map[string]any) (any, error)
const entrypoint = "Run"

// Runner interprets Go snippets. Each Run gets a fresh interpreter, so
// snippets cannot observe each other's state.
type Runner struct {
	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run evaluates the snippet and calls its Run function with the
// interpolated inputs. Timeouts and snippet panics are reported as
// failed results, not as errors.
//
// The interpreter cannot be preempted; a timed-out snippet keeps its
// goroutine until it returns on its own. The timeout bounds how long
// the workflow run waits, not the snippet itself.
func (r *Runner) Run(ctx context.Context, code, language string, inputs map[string]any, timeout time.Duration) (*protocol.RunResult, error) {
	if language != "" && language != languageGo {
		return &protocol.RunResult{
			Success: false,
			Error:   fmt.Sprintf("unsupported language %q", language),
		}, nil
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	type evalOutcome struct {
		output any
		logs   []string
		err    error
	}

	outcomeCh := make(chan evalOutcome, 1)

	go func() {
		output, logs, err := r.eval(code, inputs)
		outcomeCh <- evalOutcome{output: output, logs: logs, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-outcomeCh:
		if outcome.err != nil {
			return &protocol.RunResult{
				Success: false,
				Logs:    outcome.logs,
				Error:   outcome.err.Error(),
			}, nil
		}

		return &protocol.RunResult{
			Success: true,
			Output:  outcome.output,
			Logs:    outcome.logs,
		}, nil

	case <-timer.C:
		return &protocol.RunResult{
			Success: false,
			Error:   fmt.Sprintf("code execution timed out after %s", timeout),
		}, nil

	case <-ctx.Done():
		return &protocol.RunResult{
			Success: false,
			Error:   fmt.Sprintf("code execution aborted: %v", ctx.Err()),
		}, nil
	}
}

func (r *Runner) eval(code string, inputs map[string]any) (output any, logs []string, err error) {
	var stdout bytes.Buffer

	defer func() {
		logs = captureLogs(&stdout)

		if rec := recover(); rec != nil {
			output = nil
			err = fmt.Errorf("code panicked: %v", rec)
		}
	}()

	interpreter := interp.New(interp.Options{
		Stdout: &stdout,
		Stderr: &stdout,
	})

	if err := interpreter.Use(stdlib.Symbols); err != nil {
		return nil, nil, fmt.Errorf("failed to load interpreter symbols: %w", err)
	}

	if _, err := interpreter.Eval(code); err != nil {
		return nil, nil, fmt.Errorf("failed to interpret code: %w", err)
	}

	fnValue, err := interpreter.Eval(entrypoint)
	if err != nil {
		return nil, nil, fmt.Errorf("code must define %s(input map[string]any) (any, error): %w", entrypoint, err)
	}

	fn, ok := fnValue.Interface().(func(map[string]any) (any, error))
	if !ok {
		return nil, nil, invokeByReflection(fnValue.Interface(), inputs)
	}

	result, runErr := fn(inputs)
	if runErr != nil {
		return nil, nil, fmt.Errorf("code returned error: %w", runErr)
	}

	return result, nil, nil
}

// invokeByReflection reports a usable signature mismatch message.
func invokeByReflection(fn any, _ map[string]any) error {
	return fmt.Errorf("%s has signature %s, want func(map[string]any) (any, error)",
		entrypoint, reflect.TypeOf(fn))
}

func captureLogs(buf *bytes.Buffer) []string {
	text := strings.TrimRight(buf.String(), "\n")
	if text == "" {
		return nil
	}

	return strings.Split(text, "\n")
}
