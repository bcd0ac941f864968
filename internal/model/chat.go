package model

import "time"

// DefaultChatTitle 标题哨兵值，首条用户消息保存后被替换
const DefaultChatTitle = "New Chat"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ChatRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Messages    []Message `json:"messages"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// Clone returns a deep copy; stored history never aliases a caller's slice.
func (c *ChatRecord) Clone() *ChatRecord {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = CopyMessages(c.Messages)
	return &out
}

func CopyMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}
