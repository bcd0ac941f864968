package storage

import (
	"llamachat-backend/internal/model"
)

// Storage 保存 chat id -> ChatRecord 的映射，仅在进程生命周期内有效
type Storage interface {
	// 会话管理；返回值均为副本
	CreateChat(chat *model.ChatRecord) error
	GetChat(chatID string) (*model.ChatRecord, error)
	UpdateChat(chat *model.ChatRecord) error
	DeleteChat(chatID string) error
	// ListChats 按插入顺序返回
	ListChats() ([]*model.ChatRecord, error)

	// 存储管理
	Init() error
	Close() error
}
