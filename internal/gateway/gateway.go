// Package gateway sends a chat transcript to the hosted inference API and
// reports the outcome as a Completion value instead of an error.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"llamachat-backend/internal/config"
	"llamachat-backend/internal/model"
	"llamachat-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 1024

	// ErrorMarker prefixes the assistant text that replaces a failed completion.
	ErrorMarker = "❌ Error: "
)

type Request struct {
	Model       string
	Transcript  []model.Message
	Temperature float32
	MaxTokens   int
}

type GatewayError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Completion is either Content or Err, never both.
type Completion struct {
	Content string
	Err     *GatewayError
}

func (c Completion) Failed() bool {
	return c.Err != nil
}

// Text is what gets stored as the assistant turn.
func (c Completion) Text() string {
	if c.Err != nil {
		return ErrorMarker + c.Err.Message
	}
	return c.Content
}

type Gateway interface {
	Complete(ctx context.Context, req Request) Completion
}

// ModelFactory builds the chat model on first use.
type ModelFactory func(ctx context.Context) (einoModel.BaseChatModel, error)

type EinoGateway struct {
	factory   ModelFactory
	mu        sync.Mutex
	chatModel einoModel.BaseChatModel
}

// NewEinoGateway does not contact the provider; a missing API key is reported
// by the first Complete call.
func NewEinoGateway(cfg config.LLMConfig) *EinoGateway {
	return NewEinoGatewayWithFactory(func(ctx context.Context) (einoModel.BaseChatModel, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key is not configured for provider %q", cfg.Provider)
		}
		return model.NewChatModel(ctx, cfg)
	})
}

func NewEinoGatewayWithFactory(factory ModelFactory) *EinoGateway {
	return &EinoGateway{factory: factory}
}

func (g *EinoGateway) model(ctx context.Context) (einoModel.BaseChatModel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.chatModel != nil {
		return g.chatModel, nil
	}
	m, err := g.factory(ctx)
	if err != nil {
		return nil, err
	}
	g.chatModel = m
	return m, nil
}

func (g *EinoGateway) Complete(ctx context.Context, req Request) Completion {
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	start := time.Now()
	completion := g.complete(ctx, req)

	entry := logger.WithFields(logrus.Fields{
		"model":       req.Model,
		"turns":       len(req.Transcript),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if completion.Failed() {
		entry.WithError(completion.Err).Warn("completion failed")
	} else {
		entry.Info("completion done")
	}
	return completion
}

func (g *EinoGateway) complete(ctx context.Context, req Request) Completion {
	chatModel, err := g.model(ctx)
	if err != nil {
		return Completion{Err: &GatewayError{Message: err.Error(), Err: err}}
	}

	resp, err := chatModel.Generate(ctx, toSchemaMessages(req.Transcript),
		einoModel.WithModel(req.Model),
		einoModel.WithTemperature(req.Temperature),
		einoModel.WithMaxTokens(req.MaxTokens),
	)
	if err != nil {
		return Completion{Err: newGatewayError(err)}
	}
	if resp == nil {
		return Completion{Err: &GatewayError{Message: "empty response from model"}}
	}
	return Completion{Content: resp.Content}
}

func toSchemaMessages(transcript []model.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(transcript))
	for _, msg := range transcript {
		role := schema.User
		if msg.Role == model.RoleAssistant {
			role = schema.Assistant
		}
		out = append(out, &schema.Message{Role: role, Content: msg.Content})
	}
	return out
}

func newGatewayError(err error) *GatewayError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &GatewayError{Message: apiErr.Message, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &GatewayError{Message: err.Error(), StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &GatewayError{Message: err.Error(), Err: err}
}
