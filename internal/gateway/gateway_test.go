package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"llamachat-backend/internal/config"
	"llamachat-backend/internal/model"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatModel struct {
	reply    string
	err      error
	calls    int
	messages []*schema.Message
	options  *einoModel.Options
}

func (m *stubChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	m.calls++
	m.messages = input
	m.options = einoModel.GetCommonOptions(&einoModel.Options{}, opts...)
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *stubChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func gatewayFor(m einoModel.BaseChatModel) *EinoGateway {
	return NewEinoGatewayWithFactory(func(ctx context.Context) (einoModel.BaseChatModel, error) {
		return m, nil
	})
}

func TestCompleteSuccess(t *testing.T) {
	stub := &stubChatModel{reply: "Hi!"}
	g := gatewayFor(stub)

	c := g.Complete(context.Background(), Request{
		Model: "llama3-70b-8192",
		Transcript: []model.Message{
			{Role: model.RoleUser, Content: "Hello"},
			{Role: model.RoleAssistant, Content: "Hey"},
			{Role: model.RoleUser, Content: "How are you?"},
		},
	})

	require.False(t, c.Failed())
	assert.Equal(t, "Hi!", c.Content)
	assert.Equal(t, "Hi!", c.Text())

	require.Len(t, stub.messages, 3)
	assert.Equal(t, schema.User, stub.messages[0].Role)
	assert.Equal(t, schema.Assistant, stub.messages[1].Role)
	assert.Equal(t, "How are you?", stub.messages[2].Content)

	require.NotNil(t, stub.options.Model)
	assert.Equal(t, "llama3-70b-8192", *stub.options.Model)
	require.NotNil(t, stub.options.Temperature)
	assert.InDelta(t, DefaultTemperature, *stub.options.Temperature, 1e-6)
	require.NotNil(t, stub.options.MaxTokens)
	assert.Equal(t, DefaultMaxTokens, *stub.options.MaxTokens)
}

func TestCompleteFailureBecomesMarker(t *testing.T) {
	g := gatewayFor(&stubChatModel{err: errors.New("rate limited")})

	c := g.Complete(context.Background(), Request{Model: "llama3-8b-8192"})

	require.True(t, c.Failed())
	assert.Empty(t, c.Content)
	assert.Equal(t, "❌ Error: rate limited", c.Text())
	assert.Contains(t, c.Err.Error(), "rate limited")
}

func TestModelBuiltOnce(t *testing.T) {
	builds := 0
	stub := &stubChatModel{reply: "ok"}
	g := NewEinoGatewayWithFactory(func(ctx context.Context) (einoModel.BaseChatModel, error) {
		builds++
		return stub, nil
	})

	g.Complete(context.Background(), Request{})
	g.Complete(context.Background(), Request{})

	assert.Equal(t, 1, builds)
	assert.Equal(t, 2, stub.calls)
}

func TestMissingAPIKeySurfacesOnFirstCall(t *testing.T) {
	g := NewEinoGateway(config.LLMConfig{Provider: config.ProviderGroq, DefaultModel: "llama3-8b-8192"})

	c := g.Complete(context.Background(), Request{Model: "llama3-8b-8192"})

	require.True(t, c.Failed())
	assert.Contains(t, c.Text(), ErrorMarker)
	assert.Contains(t, c.Text(), "API key")
}

func TestGroqAPIErrorKeepsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_exceeded"}}`))
	}))
	defer server.Close()

	g := NewEinoGateway(config.LLMConfig{
		Provider:     config.ProviderGroq,
		APIKey:       "test-key",
		BaseURL:      server.URL,
		Models:       []string{"llama3-8b-8192"},
		DefaultModel: "llama3-8b-8192",
		Timeout:      5 * time.Second,
	})

	c := g.Complete(context.Background(), Request{
		Model:      "llama3-8b-8192",
		Transcript: []model.Message{{Role: model.RoleUser, Content: "hi"}},
	})

	require.True(t, c.Failed())
	assert.Equal(t, "rate limited", c.Err.Message)
	assert.Equal(t, http.StatusTooManyRequests, c.Err.StatusCode)
	assert.Equal(t, "❌ Error: rate limited", c.Text())
}

func TestGatewayErrorFormatting(t *testing.T) {
	inner := errors.New("boom")
	e := &GatewayError{Message: "boom", StatusCode: 500, Err: inner}

	assert.Equal(t, "boom (status 500)", e.Error())
	assert.ErrorIs(t, e, inner)
	assert.Equal(t, "boom", (&GatewayError{Message: "boom"}).Error())
}
