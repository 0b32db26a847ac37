package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/toneshift/toneshift/logger"
)

// defaultFormalityScore is used when the engine returns free text only and no
// structured score is available. A fixed midpoint placeholder, not a scoring
// algorithm.
const defaultFormalityScore = 5

// State is a snapshot of the orchestrator's observable state. After any
// completed rewrite exactly one of Result and Err is set.
type State struct {
	Processing bool
	Result     *GenerationResult
	Err        *ToneError
}

// StatePublisher receives a snapshot on every state transition so the
// presentation layer can rebind progressively.
type StatePublisher interface {
	PublishState(s State)
}

type DefaultStatePublisher struct{}

func (DefaultStatePublisher) PublishState(s State) {}

// Orchestrator issues exactly one generation call per user action and maps
// engine results and failures into the application-facing state. All state
// mutations happen under one mutex; the engine call is the only blocking point.
type Orchestrator struct {
	sessions  *SessionManager
	publisher StatePublisher
	logger    logger.Logger

	mu         sync.Mutex
	processing bool
	result     *GenerationResult
	err        *ToneError
}

func NewOrchestrator(sessions *SessionManager, pub StatePublisher, l logger.Logger) *Orchestrator {
	if pub == nil {
		pub = DefaultStatePublisher{}
	}
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Orchestrator{
		sessions:  sessions,
		publisher: pub,
		logger:    l,
	}
}

// Initialize brings the engine session up, recording a classified error in the
// observable state on failure so the UI can explain the degraded mode.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if err := o.sessions.Initialize(ctx); err != nil {
		toneErr := classifyInitError(err)
		o.mu.Lock()
		o.result = nil
		o.err = toneErr
		o.publishLocked()
		o.mu.Unlock()
		o.logger.WithField("error", err).Error("engine initialization failed")
		return toneErr
	}
	return nil
}

// Generate runs one rewrite. The outcome lands in the observable state, not
// the return value; the only errors returned here are the call rejections
// ErrEmptyInput and ErrBusy, which leave all state untouched.
func (o *Orchestrator) Generate(ctx context.Context, input string, rc RequestContext) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}

	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return ErrBusy
	}
	// Entering Processing clears the previous result set immediately, so a
	// stale result is never visible alongside an in-flight request.
	o.processing = true
	o.result = nil
	o.err = nil
	o.publishLocked()
	o.mu.Unlock()

	session := o.sessions.Session()
	if session == nil {
		o.fail(&ToneError{
			Kind:    SessionNotInitialized,
			Message: "The rewriting engine was not initialized. Relaunch the app to retry.",
		})
		return nil
	}

	prompt := BuildPrompt(input, rc)
	o.logger.Debug(fmt.Sprintf("dispatching rewrite, style=%s audience=%s", rc.Style, rc.Audience))

	resp, err := session.Respond(ctx, prompt)
	if err != nil {
		toneErr := classifyEngineError(err)
		o.logger.WithField("error", err).Error(fmt.Sprintf("rewrite failed: %s", toneErr.Kind))
		o.fail(toneErr)
		return nil
	}

	score := resp.FormalityScore
	if !resp.Structured {
		score = defaultFormalityScore
	}
	result := NewGenerationResult(rc, resp.Text, score)

	o.mu.Lock()
	o.result = result
	o.err = nil
	o.processing = false
	o.publishLocked()
	o.mu.Unlock()
	o.logger.Info(fmt.Sprintf("rewrite completed, %d words", result.WordCount))
	return nil
}

// Snapshot returns the current observable state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return State{Processing: o.processing, Result: o.result, Err: o.err}
}

// ClearError acknowledges the live error so the UI dismisses it exactly once.
func (o *Orchestrator) ClearError() {
	o.mu.Lock()
	if o.err != nil {
		o.err = nil
		o.publishLocked()
	}
	o.mu.Unlock()
}

// Close tears down the owned engine session.
func (o *Orchestrator) Close() error {
	return o.sessions.Close()
}

func (o *Orchestrator) fail(toneErr *ToneError) {
	o.mu.Lock()
	o.result = nil
	o.err = toneErr
	o.processing = false
	o.publishLocked()
	o.mu.Unlock()
}

func (o *Orchestrator) publishLocked() {
	o.publisher.PublishState(State{Processing: o.processing, Result: o.result, Err: o.err})
}
