package storage

import (
	"fmt"
	"sync"

	"llamachat-backend/internal/model"
)

type MemoryStorage struct {
	chats map[string]*model.ChatRecord
	order []string
	mu    sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		chats: make(map[string]*model.ChatRecord),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chats = make(map[string]*model.ChatRecord)
	m.order = nil
	return nil
}

func (m *MemoryStorage) CreateChat(chat *model.ChatRecord) error {
	if chat == nil || chat.ID == "" {
		return fmt.Errorf("%w: chat id is required", ErrInvalidData)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.chats[chat.ID]; exists {
		return ErrChatExists
	}

	m.chats[chat.ID] = chat.Clone()
	m.order = append(m.order, chat.ID)
	return nil
}

func (m *MemoryStorage) GetChat(chatID string) (*model.ChatRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chat, exists := m.chats[chatID]
	if !exists {
		return nil, ErrChatNotFound
	}

	return chat.Clone(), nil
}

func (m *MemoryStorage) UpdateChat(chat *model.ChatRecord) error {
	if chat == nil {
		return fmt.Errorf("%w: nil chat", ErrInvalidData)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.chats[chat.ID]; !exists {
		return ErrChatNotFound
	}

	m.chats[chat.ID] = chat.Clone()
	return nil
}

func (m *MemoryStorage) DeleteChat(chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.chats[chatID]; !exists {
		return ErrChatNotFound
	}

	delete(m.chats, chatID)
	for i, id := range m.order {
		if id == chatID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStorage) ListChats() ([]*model.ChatRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chats := make([]*model.ChatRecord, 0, len(m.order))
	for _, id := range m.order {
		chats = append(chats, m.chats[id].Clone())
	}

	return chats, nil
}
