// Package reason generates plans and review lessons by shelling out to a
// local LLM CLI. The reasoner is deliberately a subprocess: the binary carries
// no API keys and the operator swaps models by changing one config value.
package reason

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/otherjamesbrown/mycroft/pkg/logging"
)

// Reasoner produces free-form text for a prompt.
type Reasoner interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DefaultTimeout bounds one reasoner invocation.
const DefaultTimeout = 120 * time.Second

// DefaultModel is used when config leaves the model unset.
const DefaultModel = "claude-sonnet-4-20250514"

// Subprocess invokes the `claude` CLI in print mode.
type Subprocess struct {
	binary  string
	model   string
	timeout time.Duration
	logger  logging.Logger
}

// SubprocessOption configures the subprocess reasoner.
type SubprocessOption func(*Subprocess)

// WithBinary overrides the CLI binary name.
func WithBinary(path string) SubprocessOption {
	return func(s *Subprocess) {
		s.binary = path
	}
}

// WithTimeout overrides the per-invocation timeout.
func WithTimeout(d time.Duration) SubprocessOption {
	return func(s *Subprocess) {
		s.timeout = d
	}
}

// WithLogger attaches a logger for invocation diagnostics.
func WithLogger(l logging.Logger) SubprocessOption {
	return func(s *Subprocess) {
		s.logger = l
	}
}

// NewSubprocess creates a subprocess reasoner for the given model.
func NewSubprocess(model string, opts ...SubprocessOption) *Subprocess {
	if model == "" {
		model = DefaultModel
	}
	s := &Subprocess{
		binary:  "claude",
		model:   model,
		timeout: DefaultTimeout,
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate runs the CLI with the prompt and returns its stdout.
func (s *Subprocess) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, s.binary, "--print", "--model", s.model, prompt)
	out, err := cmd.Output()

	if ctx.Err() == context.DeadlineExceeded {
		s.logger.Warn("reasoner timed out",
			logging.F("model", s.model),
			logging.F("timeout", s.timeout.String()))
		return "", fmt.Errorf("reasoner timed out after %s: %w", s.timeout, context.DeadlineExceeded)
	}
	if err != nil {
		var stderr string
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(ee.Stderr))
		}
		s.logger.Warn("reasoner invocation failed",
			logging.F("model", s.model),
			logging.Err(err),
			logging.F("stderr", stderr))
		if stderr != "" {
			return "", fmt.Errorf("reasoner failed: %s: %w", stderr, err)
		}
		return "", fmt.Errorf("reasoner failed: %w", err)
	}

	response := string(out)
	if strings.TrimSpace(response) == "" {
		return "", fmt.Errorf("reasoner returned empty content")
	}

	s.logger.Debug("reasoner responded",
		logging.F("model", s.model),
		logging.F("duration", time.Since(start).String()),
		logging.F("bytes", len(response)))
	return response, nil
}

// FallbackPlan is the plan body used when the reasoner is unavailable. It
// routes the item to a human instead of dropping it.
func FallbackPlan(err error) string {
	reason := "automatic plan generation failed"
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		reason = "plan generation timed out"
	case strings.Contains(err.Error(), "executable file not found"):
		reason = "reasoner CLI not found"
	}
	return fmt.Sprintf("## Analysis\nCould not generate a plan: %s. Manual review required.\n\n## Requires Approval\n- [ ] Manual review needed\n", reason)
}

var _ Reasoner = (*Subprocess)(nil)
