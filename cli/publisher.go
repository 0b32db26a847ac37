package cli

import (
	"github.com/toneshift/toneshift/core"
	"github.com/toneshift/toneshift/logger"
)

type CliStatePublisher struct {
	stateChan chan core.State
	logger    logger.Logger
}

func NewCliStatePublisher(logger logger.Logger) *CliStatePublisher {
	return &CliStatePublisher{
		stateChan: make(chan core.State, 100), // Buffer size of 100
		logger:    logger,
	}
}

func (p *CliStatePublisher) PublishState(s core.State) {
	select {
	case p.stateChan <- s:
		p.logger.Debug("Successfully published state snapshot")
	default:
		p.logger.Warn("Failed to publish state snapshot. Channel full.")
	}
}
