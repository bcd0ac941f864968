package model

import (
	"context"
	"fmt"
	"net/http"

	"llamachat-backend/internal/config"
	"llamachat-backend/internal/utils"
	"llamachat-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
)

// NewChatModel 根据 provider 创建对话模型
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (einoModel.BaseChatModel, error) {
	httpClient := newHTTPClient(cfg)

	switch cfg.Provider {
	case config.ProviderGroq, config.ProviderOpenAI, "":
		logger.Infof("Using %s model: %s, BaseURL: %s", providerName(cfg.Provider), cfg.DefaultModel, cfg.BaseURL)
		return newOpenAIChatModel(cfg, httpClient), nil
	case config.ProviderQwen:
		return createQwenModel(ctx, cfg, httpClient)
	case config.ProviderDoubao:
		return createDoubaoModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
}

func providerName(provider string) string {
	if provider == "" {
		return config.ProviderGroq
	}
	return provider
}

func newHTTPClient(cfg config.LLMConfig) *http.Client {
	httpClient := utils.NewHTTPClient(cfg.Timeout)
	httpClient.Transport = NewDebugTransport(httpClient.Transport, cfg.DebugRequest)
	return httpClient
}

func createQwenModel(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (einoModel.BaseChatModel, error) {
	logger.Infof("Using Qwen model: %s, BaseURL: %s", cfg.DefaultModel, cfg.BaseURL)

	maxTokens := cfg.MaxTokens
	temperature := cfg.Temperature

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.DefaultModel,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Timeout:     cfg.Timeout,
		HTTPClient:  httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qwen model: %w", err)
	}
	return chatModel, nil
}

func createDoubaoModel(ctx context.Context, cfg config.LLMConfig) (einoModel.BaseChatModel, error) {
	logger.Infof("Using Doubao model: %s", cfg.DefaultModel)

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey: cfg.APIKey,
		Model:  cfg.DefaultModel,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create doubao model: %w", err)
	}
	return chatModel, nil
}
