package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/toneshift/toneshift/engine"
	"github.com/toneshift/toneshift/logger"
)

// MockEngine is a mock implementation of the engine
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Probe(ctx context.Context) engine.Availability {
	args := m.Called(ctx)
	return args.Get(0).(engine.Availability)
}

func (m *MockEngine) NewSession(ctx context.Context, instructions string) (engine.Session, error) {
	args := m.Called(ctx, instructions)
	if s := args.Get(0); s != nil {
		return s.(engine.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSession is a mock implementation of an engine session
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Respond(ctx context.Context, prompt string) (engine.Response, error) {
	args := m.Called(ctx, prompt)
	return args.Get(0).(engine.Response), args.Error(1)
}

func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

// recordingPublisher collects every published snapshot.
type recordingPublisher struct {
	mu     sync.Mutex
	states []State
}

func (p *recordingPublisher) PublishState(s State) {
	p.mu.Lock()
	p.states = append(p.states, s)
	p.mu.Unlock()
}

func (p *recordingPublisher) all() []State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]State{}, p.states...)
}

func initializedOrchestrator(t *testing.T, session engine.Session, pub StatePublisher) *Orchestrator {
	t.Helper()
	mockEngine := new(MockEngine)
	mockEngine.On("Probe", mock.Anything).Return(engine.Available()).Once()
	mockEngine.On("NewSession", mock.Anything, Instructions).Return(session, nil).Once()

	o := NewOrchestrator(NewSessionManager(mockEngine, logger.NewNullLogger()), pub, logger.NewNullLogger())
	assert.NoError(t, o.Initialize(context.Background()))
	return o
}

func TestGenerateSuccess(t *testing.T) {
	mockSession := new(MockSession)
	mockSession.On("Respond", mock.Anything, mock.AnythingOfType("string")).
		Return(engine.Response{Text: "We are working through an unexpected delay on the project.", FormalityScore: 7, Structured: true}, nil).Once()

	pub := &recordingPublisher{}
	o := initializedOrchestrator(t, mockSession, pub)

	rc := RequestContext{Style: StyleDiplomatic, Audience: AudienceClient}
	err := o.Generate(context.Background(), "The project is delayed", rc)
	assert.NoError(t, err)

	s := o.Snapshot()
	assert.False(t, s.Processing)
	assert.Nil(t, s.Err)
	if assert.NotNil(t, s.Result) {
		assert.Equal(t, StyleDiplomatic, s.Result.Style)
		assert.Equal(t, AudienceClient, s.Result.Audience)
		assert.Equal(t, 7, s.Result.FormalityScore)
		assert.Equal(t, CountWords(s.Result.Text), s.Result.WordCount)
		assert.NotEmpty(t, s.Result.ID)
	}

	// Every published snapshot keeps result and error mutually exclusive.
	for _, published := range pub.all() {
		assert.False(t, published.Result != nil && published.Err != nil)
	}
	mockSession.AssertExpectations(t)
}

func TestGenerateEmptyInputRejectedBeforeAnyTransition(t *testing.T) {
	mockSession := new(MockSession)
	pub := &recordingPublisher{}
	o := initializedOrchestrator(t, mockSession, pub)
	published := len(pub.all())

	err := o.Generate(context.Background(), "   ", RequestContext{Style: StyleFormal, Audience: AudiencePeer})
	assert.ErrorIs(t, err, ErrEmptyInput)

	s := o.Snapshot()
	assert.False(t, s.Processing)
	assert.Nil(t, s.Result)
	assert.Nil(t, s.Err)
	assert.Equal(t, published, len(pub.all()), "rejected call must not publish state")
	mockSession.AssertNotCalled(t, "Respond", mock.Anything, mock.Anything)
}

func TestGenerateWithoutSessionFailsFast(t *testing.T) {
	mockEngine := new(MockEngine)
	o := NewOrchestrator(NewSessionManager(mockEngine, nil), nil, nil)

	err := o.Generate(context.Background(), "hello there", RequestContext{Style: StyleCasual, Audience: AudienceTeam})
	assert.NoError(t, err)

	s := o.Snapshot()
	assert.False(t, s.Processing)
	assert.Nil(t, s.Result)
	if assert.NotNil(t, s.Err) {
		assert.Equal(t, SessionNotInitialized, s.Err.Kind)
	}
	// No lazy initialization: the engine is never touched.
	mockEngine.AssertNotCalled(t, "Probe", mock.Anything)
	mockEngine.AssertNotCalled(t, "NewSession", mock.Anything, mock.Anything)
}

func TestGenerateContextExceededClearsPreviousResult(t *testing.T) {
	mockSession := new(MockSession)
	mockSession.On("Respond", mock.Anything, mock.AnythingOfType("string")).
		Return(engine.Response{Text: "A fine first answer.", FormalityScore: 6, Structured: true}, nil).Once()
	mockSession.On("Respond", mock.Anything, mock.AnythingOfType("string")).
		Return(engine.Response{}, fmt.Errorf("%w: 6000 tokens requested", engine.ErrContextExceeded)).Once()

	o := initializedOrchestrator(t, mockSession, &recordingPublisher{})
	rc := RequestContext{Style: StyleDirect, Audience: AudienceExecutive}

	assert.NoError(t, o.Generate(context.Background(), "first message", rc))
	assert.NotNil(t, o.Snapshot().Result)

	assert.NoError(t, o.Generate(context.Background(), "second, far too large message", rc))

	s := o.Snapshot()
	assert.False(t, s.Processing)
	assert.Nil(t, s.Result, "previous result must not survive a failure")
	if assert.NotNil(t, s.Err) {
		assert.Equal(t, InputTooLarge, s.Err.Kind)
		assert.Contains(t, s.Err.Message, "Shorten")
	}
	mockSession.AssertExpectations(t)
}

func TestGenerateUnstructuredResponseGetsPlaceholderScore(t *testing.T) {
	mockSession := new(MockSession)
	mockSession.On("Respond", mock.Anything, mock.AnythingOfType("string")).
		Return(engine.Response{Text: "plain text reply"}, nil).Once()

	o := initializedOrchestrator(t, mockSession, nil)
	assert.NoError(t, o.Generate(context.Background(), "hi", RequestContext{Style: StyleCasual, Audience: AudiencePeer}))

	s := o.Snapshot()
	if assert.NotNil(t, s.Result) {
		assert.Equal(t, defaultFormalityScore, s.Result.FormalityScore)
	}
}

// blockingSession parks Respond until released, to hold the orchestrator in
// the processing state.
type blockingSession struct {
	release  chan struct{}
	response engine.Response
}

func (s *blockingSession) Respond(ctx context.Context, prompt string) (engine.Response, error) {
	<-s.release
	return s.response, nil
}

func (s *blockingSession) Close() error { return nil }

func TestGenerateRejectsWhileBusy(t *testing.T) {
	session := &blockingSession{
		release:  make(chan struct{}),
		response: engine.Response{Text: "done", FormalityScore: 5, Structured: true},
	}
	o := initializedOrchestrator(t, session, nil)
	rc := RequestContext{Style: StyleFormal, Audience: AudiencePublic}

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- o.Generate(context.Background(), "first", rc)
	}()

	// Wait until the first call is observably in flight.
	assert.Eventually(t, func() bool {
		return o.Snapshot().Processing
	}, time.Second, 5*time.Millisecond)

	err := o.Generate(context.Background(), "second", rc)
	assert.ErrorIs(t, err, ErrBusy)

	close(session.release)
	assert.NoError(t, <-firstDone)

	s := o.Snapshot()
	assert.False(t, s.Processing)
	assert.Nil(t, s.Err)
	if assert.NotNil(t, s.Result) {
		assert.Equal(t, "done", s.Result.Text)
	}
}

func TestClearErrorDismissesExactlyOnce(t *testing.T) {
	mockSession := new(MockSession)
	mockSession.On("Respond", mock.Anything, mock.AnythingOfType("string")).
		Return(engine.Response{}, errors.New("engine hiccup")).Once()

	pub := &recordingPublisher{}
	o := initializedOrchestrator(t, mockSession, pub)
	assert.NoError(t, o.Generate(context.Background(), "hi", RequestContext{Style: StyleFormal, Audience: AudiencePeer}))
	assert.NotNil(t, o.Snapshot().Err)

	o.ClearError()
	assert.Nil(t, o.Snapshot().Err)

	published := len(pub.all())
	o.ClearError()
	assert.Equal(t, published, len(pub.all()), "clearing an absent error must not publish")
}

func TestInitializeUnavailableGatesGeneration(t *testing.T) {
	mockEngine := new(MockEngine)
	mockEngine.On("Probe", mock.Anything).Return(engine.Unavailable(engine.ReasonDeviceIneligible))

	o := NewOrchestrator(NewSessionManager(mockEngine, nil), nil, nil)

	err := o.Initialize(context.Background())
	assert.Error(t, err)

	s := o.Snapshot()
	if assert.NotNil(t, s.Err) {
		assert.Equal(t, CapabilityUnavailable, s.Err.Kind)
		assert.Contains(t, s.Err.Message, "device")
	}
	mockEngine.AssertNotCalled(t, "NewSession", mock.Anything, mock.Anything)

	// A later generate fails with the gated error, it does not crash or probe.
	assert.NoError(t, o.Generate(context.Background(), "hello", RequestContext{Style: StyleFormal, Audience: AudiencePeer}))
	s = o.Snapshot()
	if assert.NotNil(t, s.Err) {
		assert.Equal(t, SessionNotInitialized, s.Err.Kind)
	}
	assert.Nil(t, s.Result)
}

func TestInitializeConstructionFailure(t *testing.T) {
	mockEngine := new(MockEngine)
	mockEngine.On("Probe", mock.Anything).Return(engine.Available()).Once()
	mockEngine.On("NewSession", mock.Anything, Instructions).Return(nil, errors.New("engine fault")).Once()

	o := NewOrchestrator(NewSessionManager(mockEngine, nil), nil, nil)
	err := o.Initialize(context.Background())
	assert.Error(t, err)

	s := o.Snapshot()
	if assert.NotNil(t, s.Err) {
		assert.Equal(t, GenerationFailed, s.Err.Kind)
	}
	mockEngine.AssertExpectations(t)
}
