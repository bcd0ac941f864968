package handler

import (
	"errors"
	"net/http"
	"time"

	"llamachat-backend/internal/model"
	"llamachat-backend/internal/service"
	"llamachat-backend/internal/session"
	"llamachat-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Register 挂载 /api/chat 下的所有路由
func (h *ChatHandler) Register(api *gin.RouterGroup) {
	chat := api.Group("/chat")
	{
		chat.GET("/models", h.GetModels)
		chat.POST("/message", h.SendMessage)
		chat.POST("/session", h.CreateSession)
		chat.GET("/session/list", h.GetSessionList)
		chat.GET("/session/active", h.GetActiveSession)
		chat.POST("/session/clear", h.ClearAllSessions)
		chat.PUT("/session/:session_id/activate", h.ActivateSession)
		chat.PUT("/session/:session_id", h.UpdateSessionTitle)
		chat.DELETE("/session/:session_id", h.DeleteSession)
	}
}

func (h *ChatHandler) GetModels(c *gin.Context) {
	c.JSON(http.StatusOK, h.chatService.Models())
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.chatService.SendMessage(c.Request.Context(), req.Model, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}

	// 网关失败也返回 200，失败信息已作为 assistant 消息落盘
	c.JSON(http.StatusOK, model.ChatResponse{
		SessionID: res.ChatID,
		Title:     res.Title,
		Model:     res.Model,
		User:      res.User,
		Assistant: res.Assistant,
		Failed:    res.Failed,
		Timestamp: time.Now(),
	})
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	chat, err := h.chatService.NewChat()
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(*chat, chat.ID))
}

func (h *ChatHandler) GetSessionList(c *gin.Context) {
	chats, err := h.chatService.ListChats()
	if err != nil {
		writeError(c, err)
		return
	}

	activeID := h.chatService.ActiveChatID()
	sessions := make([]model.SessionResponse, 0, len(chats))
	for _, chat := range chats {
		sessions = append(sessions, model.NewSessionResponse(chat, activeID))
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
	})
}

func (h *ChatHandler) GetActiveSession(c *gin.Context) {
	chat, ok := h.chatService.ActiveChat()
	if !ok {
		c.JSON(http.StatusOK, model.ActiveSessionResponse{Messages: []model.Message{}})
		return
	}

	c.JSON(http.StatusOK, model.ActiveSessionResponse{
		SessionID: chat.ID,
		Title:     chat.Title,
		Messages:  chat.Messages,
	})
}

func (h *ChatHandler) ActivateSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	chat, err := h.chatService.SwitchChat(sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.ActiveSessionResponse{
		SessionID: chat.ID,
		Title:     chat.Title,
		Messages:  chat.Messages,
	})
}

func (h *ChatHandler) UpdateSessionTitle(c *gin.Context) {
	sessionID := c.Param("session_id")

	var req model.RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chatService.RenameChat(sessionID, req.Title); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Title updated successfully"})
}

// DeleteSession 幂等：删除不存在的会话同样返回 200
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	if err := h.chatService.DeleteChat(sessionID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}

func (h *ChatHandler) ClearAllSessions(c *gin.Context) {
	if err := h.chatService.ClearChats(); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All sessions cleared successfully"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnknownModel),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, session.ErrInvalidTitle):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"path":   c.FullPath(),
			"method": c.Request.Method,
		}).WithError(err).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
