package model

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
	Model   string `json:"model"`
}

type RenameSessionRequest struct {
	Title string `json:"title" binding:"required"`
}
