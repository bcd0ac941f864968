package session

import "llamachat-backend/internal/model"

const (
	maxTitleRunes = 50
	titleEllipsis = "..."
)

// DeriveTitle builds a chat title from the first user message. It reports false
// when there is no user message or the first one is empty.
func DeriveTitle(messages []model.Message) (string, bool) {
	for _, msg := range messages {
		if msg.Role != model.RoleUser {
			continue
		}
		if msg.Content == "" {
			return "", false
		}
		runes := []rune(msg.Content)
		if len(runes) > maxTitleRunes {
			return string(runes[:maxTitleRunes]) + titleEllipsis, true
		}
		return msg.Content, true
	}
	return "", false
}
