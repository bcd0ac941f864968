package model

import "time"

type ChatResponse struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	User      Message   `json:"user"`
	Assistant Message   `json:"assistant"`
	Failed    bool      `json:"failed"` // 网关调用失败，assistant 内容为错误标记
	Timestamp time.Time `json:"timestamp"`
}

type SessionResponse struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
	MessageCount int       `json:"message_count"`
	Active       bool      `json:"active"`
}

type ActiveSessionResponse struct {
	SessionID string    `json:"session_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Messages  []Message `json:"messages"`
}

type ModelsResponse struct {
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

// NewSessionResponse builds the list-view shape of a chat record.
func NewSessionResponse(chat ChatRecord, activeID string) SessionResponse {
	return SessionResponse{
		SessionID:    chat.ID,
		Title:        chat.Title,
		CreatedAt:    chat.CreatedAt,
		LastUpdated:  chat.LastUpdated,
		MessageCount: len(chat.Messages),
		Active:       chat.ID == activeID,
	}
}
