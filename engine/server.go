package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	tellm "github.com/santiagomed/tellm/sdk"
	"github.com/sashabaranov/go-openai"

	"github.com/toneshift/toneshift/logger"
)

// ServerConfig configures the adapter for a local OpenAI-compatible server
// (llama.cpp, LM Studio and friends expose this API on localhost).
type ServerConfig struct {
	Enabled   bool
	BaseURL   string
	APIKey    string
	ModelName string
	BatchID   string
	TellmURL  string
}

// ServerEngine drives a local OpenAI-compatible inference server. It supports
// guided output: responses are requested as a JSON object carrying the rewritten
// text and a formality score.
type ServerEngine struct {
	client      *openai.Client
	cfg         *ServerConfig
	tellmClient *tellm.Client
	logger      logger.Logger
}

func NewServerEngine(cfg *ServerConfig, l logger.Logger) *ServerEngine {
	if l == nil {
		l = logger.NewNullLogger()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &ServerEngine{
		client:      openai.NewClientWithConfig(clientCfg),
		cfg:         cfg,
		tellmClient: tellm.NewClient(cfg.TellmURL),
		logger:      l,
	}
}

// Probe checks that the server is reachable and serves the configured model.
func (e *ServerEngine) Probe(ctx context.Context) Availability {
	if !e.cfg.Enabled {
		return Unavailable(ReasonDisabled)
	}
	models, err := e.client.ListModels(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Unknown()
		}
		e.logger.WithField("error", err).Warn("inference server unreachable")
		return Unavailable(ReasonNotReady)
	}
	if len(models.Models) == 0 {
		return Unavailable(ReasonDeviceIneligible)
	}
	if e.cfg.ModelName != "" && !hasModel(models, e.cfg.ModelName) {
		// The server is up but the model asset is not loaded yet.
		return Unavailable(ReasonNotReady)
	}
	return Available()
}

func hasModel(list openai.ModelsList, name string) bool {
	for _, m := range list.Models {
		if m.ID == name {
			return true
		}
	}
	return false
}

func (e *ServerEngine) NewSession(ctx context.Context, instructions string) (Session, error) {
	if strings.TrimSpace(instructions) == "" {
		return nil, ErrEmptyInstructions
	}
	return &serverSession{engine: e, instructions: instructions}, nil
}

type serverSession struct {
	engine       *ServerEngine
	instructions string
}

// schemaDirective asks the server for the guided-output shape. The orchestrator
// still validates whatever comes back; servers do not enforce this reliably.
const schemaDirective = `Respond with a single JSON object of the form {"text": "<the rewritten message>", "formality_score": <integer 1-10>} and nothing else.`

type structuredReply struct {
	Text           string `json:"text"`
	FormalityScore int    `json:"formality_score"`
}

func (s *serverSession) Respond(ctx context.Context, prompt string) (Response, error) {
	resp, err := s.engine.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.engine.cfg.ModelName,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: s.instructions + "\n\n" + schemaDirective,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		},
	)
	if err != nil {
		return Response{}, classifyServerError(err)
	}

	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices returned from inference server")
	}
	raw := resp.Choices[0].Message.Content

	usage := resp.Usage
	logErr := s.engine.tellmClient.Log(s.engine.cfg.BatchID, prompt, raw, s.engine.cfg.ModelName, usage.PromptTokens, usage.CompletionTokens)
	if logErr != nil {
		s.engine.logger.WithField("warning", logErr).Warn("failed to log to tellm")
	}

	return parseStructured(raw), nil
}

func (s *serverSession) Close() error {
	return nil
}

// parseStructured coerces the server's output into a Response. Servers that
// ignore the schema directive fall back to free text.
func parseStructured(raw string) Response {
	var reply structuredReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil || reply.Text == "" {
		return Response{Text: strings.TrimSpace(raw)}
	}
	return Response{
		Text:           strings.TrimSpace(reply.Text),
		FormalityScore: reply.FormalityScore,
		Structured:     true,
	}
}

func classifyServerError(err error) error {
	e := &openai.APIError{}
	if errors.As(err, &e) {
		if isContextLength(e) {
			return fmt.Errorf("%w: %s", ErrContextExceeded, e.Message)
		}
		switch e.HTTPStatusCode {
		case 401:
			return fmt.Errorf("unauthorized: inference server rejected credentials")
		case 429:
			return fmt.Errorf("inference server overloaded")
		case 500:
			return fmt.Errorf("inference server error: %s", e.Message)
		default:
			return fmt.Errorf("inference server API error: %v", e)
		}
	}
	return fmt.Errorf("inference request failed: %w", err)
}

func isContextLength(e *openai.APIError) bool {
	if code, ok := e.Code.(string); ok && code == "context_length_exceeded" {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "context length") || strings.Contains(msg, "context window")
}
