package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/toneshift/toneshift/engine"
)

func TestSessionManagerInitializeOnce(t *testing.T) {
	mockEngine := new(MockEngine)
	mockSession := new(MockSession)
	mockEngine.On("Probe", mock.Anything).Return(engine.Available()).Once()
	mockEngine.On("NewSession", mock.Anything, Instructions).Return(mockSession, nil).Once()

	m := NewSessionManager(mockEngine, nil)
	assert.Nil(t, m.Session())

	assert.NoError(t, m.Initialize(context.Background()))
	assert.NotNil(t, m.Session())

	// A second call reuses the session, no fresh probe.
	assert.NoError(t, m.Initialize(context.Background()))
	mockEngine.AssertNumberOfCalls(t, "Probe", 1)
	mockEngine.AssertNumberOfCalls(t, "NewSession", 1)
}

func TestSessionManagerProbesFreshAfterClose(t *testing.T) {
	mockEngine := new(MockEngine)
	mockSession := new(MockSession)
	mockSession.On("Close").Return(nil).Once()
	mockEngine.On("Probe", mock.Anything).Return(engine.Available()).Twice()
	mockEngine.On("NewSession", mock.Anything, Instructions).Return(mockSession, nil).Twice()

	m := NewSessionManager(mockEngine, nil)
	assert.NoError(t, m.Initialize(context.Background()))
	assert.NoError(t, m.Close())
	assert.Nil(t, m.Session())

	assert.NoError(t, m.Initialize(context.Background()))
	mockEngine.AssertNumberOfCalls(t, "Probe", 2)
}

func TestSessionManagerUnavailableNeverConstructs(t *testing.T) {
	reasons := []engine.Reason{
		engine.ReasonDeviceIneligible,
		engine.ReasonDisabled,
		engine.ReasonNotReady,
		engine.ReasonOther,
	}
	for _, reason := range reasons {
		mockEngine := new(MockEngine)
		mockEngine.On("Probe", mock.Anything).Return(engine.Unavailable(reason)).Once()

		m := NewSessionManager(mockEngine, nil)
		err := m.Initialize(context.Background())

		unavailable := &UnavailableError{}
		assert.ErrorAs(t, err, &unavailable)
		assert.Equal(t, reason, unavailable.Availability.Reason)
		assert.Nil(t, m.Session())
		mockEngine.AssertNotCalled(t, "NewSession", mock.Anything, mock.Anything)
	}
}

func TestSessionManagerConstructionFailure(t *testing.T) {
	mockEngine := new(MockEngine)
	mockEngine.On("Probe", mock.Anything).Return(engine.Available()).Once()
	mockEngine.On("NewSession", mock.Anything, Instructions).Return(nil, errors.New("asset corrupt")).Once()

	m := NewSessionManager(mockEngine, nil)
	err := m.Initialize(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "construct session")
	assert.Nil(t, m.Session())
}
