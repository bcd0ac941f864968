// Package session keeps the set of chats for one user and the working buffer of
// the chat that is currently active.
//
// The buffer is an edit copy: AppendMessage only touches the buffer, and stored
// history changes only when SaveActive (or SwitchChat, which saves first) runs.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"llamachat-backend/internal/model"
	"llamachat-backend/internal/storage"
	"llamachat-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound     = errors.New("chat not found")
	ErrInvalidState = errors.New("no active chat")
	ErrInvalidRole  = errors.New("invalid message role")
	ErrInvalidTitle = errors.New("title must not be empty")
)

type Option func(*Store)

// WithClock overrides time.Now for CreatedAt/LastUpdated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

type Store struct {
	mu       sync.Mutex
	chats    storage.Storage
	activeID string
	buffer   []model.Message
	now      func() time.Time
	newID    func() string
}

func NewStore(chats storage.Storage, opts ...Option) *Store {
	s := &Store{
		chats:  chats,
		buffer: []model.Message{},
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateChat inserts an empty chat and makes it active. The previous buffer is
// dropped, so callers that want to keep it must SaveActive first.
func (s *Store) CreateChat() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createChatLocked()
}

func (s *Store) createChatLocked() (string, error) {
	now := s.now()
	chat := &model.ChatRecord{
		ID:          s.newID(),
		Title:       model.DefaultChatTitle,
		Messages:    []model.Message{},
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := s.chats.CreateChat(chat); err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}

	s.activeID = chat.ID
	s.buffer = []model.Message{}

	logger.WithFields(logrus.Fields{"chat_id": chat.ID}).Debug("chat created")
	return chat.ID, nil
}

// EnsureActive returns the active chat id, creating a chat if none is active.
func (s *Store) EnsureActive() (id string, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID != "" {
		return s.activeID, false, nil
	}
	id, err = s.createChatLocked()
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *Store) AppendMessage(role model.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return ErrInvalidState
	}
	s.buffer = append(s.buffer, model.Message{Role: role, Content: content})
	return nil
}

// SaveActive writes the buffer into the active chat. It is a no-op when no chat
// is active.
func (s *Store) SaveActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveActiveLocked()
}

func (s *Store) saveActiveLocked() error {
	if s.activeID == "" {
		return nil
	}

	chat, err := s.chats.GetChat(s.activeID)
	if err != nil {
		return s.wrapLookup(s.activeID, err)
	}

	chat.Messages = model.CopyMessages(s.buffer)

	// LastUpdated never moves backwards, even if the clock does.
	now := s.now()
	if now.Before(chat.LastUpdated) {
		now = chat.LastUpdated
	}
	chat.LastUpdated = now

	if chat.Title == model.DefaultChatTitle {
		if title, ok := DeriveTitle(s.buffer); ok {
			chat.Title = title
		}
	}

	if err := s.chats.UpdateChat(chat); err != nil {
		return s.wrapLookup(chat.ID, err)
	}
	return nil
}

// SwitchChat saves the chat being left, then loads a copy of chatID's history
// into the buffer.
func (s *Store) SwitchChat(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.chats.GetChat(chatID); err != nil {
		return s.wrapLookup(chatID, err)
	}

	if err := s.saveActiveLocked(); err != nil {
		return err
	}

	chat, err := s.chats.GetChat(chatID)
	if err != nil {
		return s.wrapLookup(chatID, err)
	}

	s.activeID = chat.ID
	s.buffer = model.CopyMessages(chat.Messages)

	logger.WithFields(logrus.Fields{"chat_id": chat.ID, "messages": len(chat.Messages)}).Debug("chat activated")
	return nil
}

// DeleteChat removes chatID if present. Unsaved buffer contents of a deleted
// active chat are discarded.
func (s *Store) DeleteChat(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.chats.DeleteChat(chatID); err != nil && !errors.Is(err, storage.ErrChatNotFound) {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	if s.activeID == chatID {
		s.activeID = ""
		s.buffer = []model.Message{}
	}

	logger.WithFields(logrus.Fields{"chat_id": chatID}).Debug("chat deleted")
	return nil
}

// Clear deletes every chat and resets the active pointer.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats, err := s.chats.ListChats()
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}
	for _, chat := range chats {
		if err := s.chats.DeleteChat(chat.ID); err != nil && !errors.Is(err, storage.ErrChatNotFound) {
			return fmt.Errorf("failed to delete chat %s: %w", chat.ID, err)
		}
	}

	s.activeID = ""
	s.buffer = []model.Message{}
	return nil
}

// RenameChat sets an explicit title. Automatic derivation only replaces the
// default title, so it never overrides a rename.
func (s *Store) RenameChat(chatID, title string) error {
	if title == "" {
		return ErrInvalidTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.chats.GetChat(chatID)
	if err != nil {
		return s.wrapLookup(chatID, err)
	}

	chat.Title = title
	if now := s.now(); now.After(chat.LastUpdated) {
		chat.LastUpdated = now
	}

	if err := s.chats.UpdateChat(chat); err != nil {
		return s.wrapLookup(chatID, err)
	}
	return nil
}

// ListChatsByRecency orders chats by LastUpdated, newest first. Chats with equal
// timestamps keep creation order.
func (s *Store) ListChatsByRecency() ([]model.ChatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats, err := s.chats.ListChats()
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].LastUpdated.After(chats[j].LastUpdated)
	})

	out := make([]model.ChatRecord, len(chats))
	for i, chat := range chats {
		out[i] = *chat
	}
	return out, nil
}

func (s *Store) ActiveChatID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeID, s.activeID != ""
}

// ActiveMessages returns a copy of the working buffer.
func (s *Store) ActiveMessages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.CopyMessages(s.buffer)
}

// ActiveChat returns the stored record of the active chat with Messages
// replaced by the current buffer.
func (s *Store) ActiveChat() (*model.ChatRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return nil, false
	}
	chat, err := s.chats.GetChat(s.activeID)
	if err != nil {
		return nil, false
	}
	chat.Messages = model.CopyMessages(s.buffer)
	return chat, true
}

func (s *Store) Chat(chatID string) (*model.ChatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.chats.GetChat(chatID)
	if err != nil {
		return nil, s.wrapLookup(chatID, err)
	}
	return chat, nil
}

func (s *Store) wrapLookup(chatID string, err error) error {
	if errors.Is(err, storage.ErrChatNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, chatID)
	}
	return err
}
