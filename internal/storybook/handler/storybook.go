// Package handler provides HTTP handlers for the storybook service.
package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/storybook-rag/internal/storybook/biz"
	"github.com/kart-io/storybook-rag/internal/storybook/model"
	"github.com/kart-io/storybook-rag/pkg/errors"
	"github.com/kart-io/storybook-rag/pkg/utils/response"
)

// HeaderUserEmail carries the caller identity set by the upstream gateway.
const HeaderUserEmail = "X-User-Email"

// StorybookHandler handles document upload, chat and session requests.
type StorybookHandler struct {
	ingestor *biz.Ingestor
	chat     *biz.ChatService
}

// NewStorybookHandler creates a new StorybookHandler.
func NewStorybookHandler(ingestor *biz.Ingestor, chat *biz.ChatService) *StorybookHandler {
	return &StorybookHandler{ingestor: ingestor, chat: chat}
}

// UploadRequest represents a document upload. Text is the OCR output of the PDF.
type UploadRequest struct {
	FileName string `json:"file_name" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

// UploadResponse represents the result of an upload.
type UploadResponse struct {
	Message        string   `json:"message"`
	Status         string   `json:"status"`
	CollectionName string   `json:"collection_name"`
	Chunks         int      `json:"chunks,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

// Upload ingests an extracted document into a new collection.
func (h *StorybookHandler) Upload(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errors.ErrInvalidRequest.WithMessage(err.Error()))
		return
	}

	res, err := h.ingestor.Ingest(c.Request.Context(), biz.IngestRequest{FileName: req.FileName, Text: req.Text})
	if err != nil {
		logger.Errorw("upload failed", "user", user, "file", req.FileName, "error", err.Error())
		response.Fail(c, err)
		return
	}
	h.chat.RememberUpload(user, res.CollectionName)

	response.OK(c, UploadResponse{
		Message:        res.Message,
		Status:         res.Status,
		CollectionName: res.CollectionName,
		Chunks:         res.Chunks,
		Keywords:       res.Keywords,
	})
}

// ChatRequest represents a chat turn.
type ChatRequest struct {
	Query          string `json:"query" binding:"required"`
	SessionID      string `json:"session_id"`
	CollectionName string `json:"collection_name"`
}

// Chat answers a question against the session's document.
func (h *StorybookHandler) Chat(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errors.ErrInvalidRequest.WithMessage(err.Error()))
		return
	}

	res, err := h.chat.Chat(c.Request.Context(), biz.ChatRequest{
		UserEmail:      user,
		Query:          req.Query,
		SessionID:      req.SessionID,
		CollectionName: req.CollectionName,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, res)
}

// SessionsResponse lists a user's sessions.
type SessionsResponse struct {
	Sessions []*model.Session `json:"sessions"`
}

// ListSessions lists the caller's visible sessions, newest first.
func (h *StorybookHandler) ListSessions(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	sessions, err := h.chat.ListSessions(c.Request.Context(), user)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if sessions == nil {
		sessions = []*model.Session{}
	}
	response.OK(c, SessionsResponse{Sessions: sessions})
}

// GetSession returns one visible session.
func (h *StorybookHandler) GetSession(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	sess, err := h.chat.GetSession(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, sess)
}

// MessagesResponse carries a session's conversation.
type MessagesResponse struct {
	SessionID string          `json:"session_id"`
	Messages  []model.Message `json:"messages"`
}

// Messages returns the checkpointed messages of a session.
func (h *StorybookHandler) Messages(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	id := c.Param("id")
	msgs, err := h.chat.Messages(c.Request.Context(), id, user)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, MessagesResponse{SessionID: id, Messages: msgs})
}

// DeleteSession hides a session. The conversation itself is kept.
func (h *StorybookHandler) DeleteSession(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}

	if err := h.chat.HideSession(c.Request.Context(), c.Param("id"), user); err != nil {
		response.Fail(c, err)
		return
	}
	response.Message(c, "Session deleted successfully")
}

// identity reads the caller e-mail, answering 401 when it is missing.
func identity(c *gin.Context) (string, bool) {
	user := strings.TrimSpace(c.GetHeader(HeaderUserEmail))
	if user == "" {
		response.Fail(c, errors.ErrUnauthorized.WithMessage("missing "+HeaderUserEmail+" header"))
		return "", false
	}
	return strings.ToLower(user), true
}
