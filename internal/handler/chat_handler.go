package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/dpatinod/BataBot/internal/service"
	"github.com/dpatinod/BataBot/internal/service/chat"
	"github.com/dpatinod/BataBot/internal/service/knowledge"
	"github.com/dpatinod/BataBot/pkg/logger"
)

// ChatHandler 会话处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建会话处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// MessageRequest /message 请求体
type MessageRequest struct {
	UserID           string `json:"user_id" binding:"required"`
	ConversationID   string `json:"conversation_id" binding:"required"`
	ConversationName string `json:"conversation_name"`
	Content          string `json:"content" binding:"required"`
	PDFText          string `json:"pdf_text"`
	// 可选，填了就把回复同时发到这个 WhatsApp 号码
	Phone string `json:"phone"`
}

// Message 处理一条用户消息并返回 AI 回复
func (h *ChatHandler) Message(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.svc.Chat.RunTurn(c.Request.Context(), &chat.RunTurnRequest{
		UserID:           req.UserID,
		ConversationID:   req.ConversationID,
		ConversationName: req.ConversationName,
		Content:          req.Content,
		ReferenceText:    req.PDFText,
	})
	if err != nil {
		errorResponse(c, err)
		return
	}

	if req.Phone != "" && h.svc.WhatsApp.Enabled() {
		if err := h.svc.WhatsApp.SendText(c.Request.Context(), req.Phone, result.Reply); err != nil {
			logger.Warn().Str("phone", req.Phone).Err(err).Msg("failed to forward reply to whatsapp")
		}
	}

	success(c, gin.H{
		"turn_id": result.TurnID,
		"reply":   result.Reply,
	})
}

// Attachment 接收附件，提取文本并入库
func (h *ChatHandler) Attachment(c *gin.Context) {
	conversationID := c.PostForm("conversation_id")
	userID := c.PostForm("user_id")
	if conversationID == "" {
		badRequest(c, "conversation_id is required")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "multipart form is required")
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		badRequest(c, "at least one file is required")
		return
	}

	files := make([]knowledge.Attachment, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "failed to open uploaded file: "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			badRequest(c, "failed to read uploaded file: "+fh.Filename)
			return
		}
		files = append(files, knowledge.Attachment{FileName: fh.Filename, Data: data})
	}

	result, err := h.svc.Knowledge.Ingest(c.Request.Context(), conversationID, userID, files)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, result)
}

// VoteRequest /vote 请求体
type VoteRequest struct {
	TurnID         string `json:"turn_id" binding:"required"`
	ConversationID string `json:"conversation_id" binding:"required"`
	Rate           *bool  `json:"rate" binding:"required"`
}

// Vote 给一条 AI 回复打分
func (h *ChatHandler) Vote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.svc.Chat.Vote(c.Request.Context(), req.TurnID, req.ConversationID, *req.Rate); err != nil {
		errorResponse(c, err)
		return
	}
	success(c, nil)
}

// SessionsRequest /sessions 请求体
type SessionsRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Sessions 列出用户的会话
func (h *ChatHandler) Sessions(c *gin.Context) {
	var req SessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	sessions, err := h.svc.Chat.ListConversations(c.Request.Context(), req.UserID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, sessions)
}

// GetOneSessionRequest /get_one_session 请求体
type GetOneSessionRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

// GetOneSession 取一个会话的完整消息流
func (h *ChatHandler) GetOneSession(c *gin.Context) {
	var req GetOneSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	detail, err := h.svc.Chat.GetConversation(c.Request.Context(), req.ConversationID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, detail)
}
