package engine

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/afero"

	"github.com/toneshift/toneshift/logger"
)

// CommandConfig configures the adapter for a local model-runner binary
// (an `ollama run <model>` style CLI).
type CommandConfig struct {
	Enabled   bool
	Binary    string
	ModelName string
	// ModelPath, when set, is the model asset checked for readiness.
	ModelPath string
}

// CommandEngine shells out to a local model runner. It only produces free text,
// so callers get Structured=false responses.
type CommandEngine struct {
	cfg      *CommandConfig
	fs       afero.Fs
	lookPath func(file string) (string, error)
	logger   logger.Logger
}

func NewCommandEngine(cfg *CommandConfig, fsys afero.Fs, l logger.Logger) *CommandEngine {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &CommandEngine{
		cfg:      cfg,
		fs:       fsys,
		lookPath: exec.LookPath,
		logger:   l,
	}
}

// Probe checks the runner binary is installed and the model asset is provisioned.
func (e *CommandEngine) Probe(ctx context.Context) Availability {
	if !e.cfg.Enabled {
		return Unavailable(ReasonDisabled)
	}
	if _, err := e.lookPath(e.cfg.Binary); err != nil {
		e.logger.WithField("binary", e.cfg.Binary).Warn("model runner binary not found")
		return Unavailable(ReasonDeviceIneligible)
	}
	if e.cfg.ModelPath != "" {
		if _, err := e.fs.Stat(e.cfg.ModelPath); err != nil {
			return Unavailable(ReasonNotReady)
		}
	}
	return Available()
}

func (e *CommandEngine) NewSession(ctx context.Context, instructions string) (Session, error) {
	if strings.TrimSpace(instructions) == "" {
		return nil, ErrEmptyInstructions
	}
	return &commandSession{engine: e, instructions: instructions}, nil
}

type commandSession struct {
	engine       *CommandEngine
	instructions string
}

func (s *commandSession) Respond(ctx context.Context, prompt string) (Response, error) {
	e := s.engine
	cmd := exec.CommandContext(ctx, e.cfg.Binary, "run", e.cfg.ModelName)
	cmd.Stdin = strings.NewReader(s.instructions + "\n\n" + prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if strings.Contains(strings.ToLower(detail), "context") {
			return Response{}, fmt.Errorf("%w: %s", ErrContextExceeded, detail)
		}
		if detail == "" {
			return Response{}, fmt.Errorf("model runner failed: %w", err)
		}
		return Response{}, fmt.Errorf("model runner failed: %s", detail)
	}

	return Response{Text: strings.TrimSpace(stdout.String())}, nil
}

func (s *commandSession) Close() error {
	return nil
}
