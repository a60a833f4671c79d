package chat

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dpatinod/BataBot/internal/repository"
)

// ConversationMessage 会话详情里的一条消息
type ConversationMessage struct {
	ID        string `json:"id"`
	TurnID    string `json:"turn_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	// 仅 assistant 消息有评分
	Rate *bool `json:"rate,omitempty"`
}

// ConversationDetail 单个会话的完整消息流
type ConversationDetail struct {
	ConversationID   string                 `json:"conversation_id"`
	ConversationName string                 `json:"conversation_name"`
	UserID           string                 `json:"user_id"`
	Messages         []*ConversationMessage `json:"messages"`
}

// ListConversations 列出用户的全部会话，按最近活跃排序
// 没有任何会话的用户按 not found 处理
func (s *Service) ListConversations(ctx context.Context, userID string) ([]*repository.ConversationSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	sessions, err := s.store.ListUserConversations(userID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no conversations for user %s: %w", userID, gorm.ErrRecordNotFound)
	}
	return sessions, nil
}

// GetConversation 取一个会话的完整消息流
func (s *Service) GetConversation(ctx context.Context, conversationID string) (*ConversationDetail, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation_id is required")
	}

	turns, err := s.store.GetConversationTurns(conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, gorm.ErrRecordNotFound)
	}

	detail := &ConversationDetail{
		ConversationID: conversationID,
		Messages:       make([]*ConversationMessage, 0, len(turns)*2),
	}
	for _, turn := range turns {
		if detail.ConversationName == "" {
			detail.ConversationName = turn.ConversationName
		}
		if detail.UserID == "" {
			detail.UserID = turn.UserID
		}

		detail.Messages = append(detail.Messages, &ConversationMessage{
			ID:        turn.UserMessage.ID,
			TurnID:    turn.ID,
			Role:      "user",
			Content:   turn.UserMessage.Content,
			CreatedAt: turn.UserMessage.CreatedAt,
		})

		rate := turn.Rate
		detail.Messages = append(detail.Messages, &ConversationMessage{
			ID:        turn.AIMessage.ID,
			TurnID:    turn.ID,
			Role:      "assistant",
			Content:   turn.AIMessage.Content,
			CreatedAt: turn.AIMessage.CreatedAt,
			Rate:      &rate,
		})
	}
	return detail, nil
}

// Vote 给一个回合的 AI 回复打分
// 重复打同一个分是幂等操作
func (s *Service) Vote(ctx context.Context, turnID, conversationID string, rate bool) error {
	if turnID == "" || conversationID == "" {
		return fmt.Errorf("turn id and conversation_id are required")
	}
	return s.store.UpdateRate(turnID, conversationID, rate)
}
