package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"llamachat-backend/internal/config"
	"llamachat-backend/internal/gateway"
	"llamachat-backend/internal/model"
	"llamachat-backend/internal/session"
	"llamachat-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownModel = errors.New("model is not in the allowed list")
	ErrEmptyMessage = errors.New("message must not be empty")
)

type SendResult struct {
	ChatID    string
	Title     string
	Model     string
	Created   bool
	User      model.Message
	Assistant model.Message
	Failed    bool
}

// ChatService drives one conversation turn at a time against a single
// session store. Mutating calls are serialized so a turn's user and assistant
// messages always land in the same chat.
type ChatService struct {
	mu      sync.Mutex
	store   *session.Store
	gateway gateway.Gateway
	llm     config.LLMConfig
}

func NewChatService(store *session.Store, gw gateway.Gateway, llm config.LLMConfig) *ChatService {
	return &ChatService{
		store:   store,
		gateway: gw,
		llm:     llm,
	}
}

// ResolveModel maps an empty name to the default model and rejects names
// outside the allow-list.
func (s *ChatService) ResolveModel(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.llm.DefaultModel
	}
	if !s.llm.AllowsModel(name) {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return name, nil
}

// SendMessage appends the user turn, asks the gateway for a reply and saves the
// chat. If no chat is active one is created first. A failed completion is
// stored as an assistant turn carrying the error marker; it is not an error.
func (s *ChatService) SendMessage(ctx context.Context, modelName, content string) (*SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	resolved, err := s.ResolveModel(modelName)
	if err != nil {
		return nil, err
	}

	chatID, created, err := s.store.EnsureActive()
	if err != nil {
		return nil, fmt.Errorf("failed to open chat: %w", err)
	}
	if created {
		logger.WithFields(logrus.Fields{"chat_id": chatID}).Info("chat created for incoming message")
	}

	userMsg := model.Message{Role: model.RoleUser, Content: content}
	if err := s.store.AppendMessage(userMsg.Role, userMsg.Content); err != nil {
		return nil, fmt.Errorf("failed to append user message: %w", err)
	}

	completion := s.gateway.Complete(ctx, gateway.Request{
		Model:       resolved,
		Transcript:  s.store.ActiveMessages(),
		Temperature: s.llm.Temperature,
		MaxTokens:   s.llm.MaxTokens,
	})

	assistantMsg := model.Message{Role: model.RoleAssistant, Content: completion.Text()}
	if err := s.store.AppendMessage(assistantMsg.Role, assistantMsg.Content); err != nil {
		return nil, fmt.Errorf("failed to append assistant message: %w", err)
	}
	if err := s.store.SaveActive(); err != nil {
		return nil, fmt.Errorf("failed to save chat: %w", err)
	}

	chat, err := s.store.Chat(chatID)
	if err != nil {
		return nil, err
	}

	return &SendResult{
		ChatID:    chatID,
		Title:     chat.Title,
		Model:     resolved,
		Created:   created,
		User:      userMsg,
		Assistant: assistantMsg,
		Failed:    completion.Failed(),
	}, nil
}

// NewChat saves the chat being left before creating the new one.
func (s *ChatService) NewChat() (*model.ChatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveActive(); err != nil {
		return nil, fmt.Errorf("failed to save current chat: %w", err)
	}
	id, err := s.store.CreateChat()
	if err != nil {
		return nil, err
	}
	return s.store.Chat(id)
}

func (s *ChatService) SwitchChat(chatID string) (*model.ChatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SwitchChat(chatID); err != nil {
		return nil, err
	}
	chat, ok := s.store.ActiveChat()
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, chatID)
	}
	return chat, nil
}

func (s *ChatService) DeleteChat(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.DeleteChat(chatID)
}

func (s *ChatService) RenameChat(chatID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.RenameChat(chatID, strings.TrimSpace(title))
}

func (s *ChatService) ClearChats() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Clear()
}

func (s *ChatService) ListChats() ([]model.ChatRecord, error) {
	return s.store.ListChatsByRecency()
}

// ActiveChat returns the active chat with its unsaved buffer, or false.
func (s *ChatService) ActiveChat() (*model.ChatRecord, bool) {
	return s.store.ActiveChat()
}

func (s *ChatService) ActiveChatID() string {
	id, _ := s.store.ActiveChatID()
	return id
}

func (s *ChatService) Models() model.ModelsResponse {
	models := make([]string, len(s.llm.Models))
	copy(models, s.llm.Models)
	return model.ModelsResponse{Models: models, Default: s.llm.DefaultModel}
}
