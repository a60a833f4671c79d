package model

import "time"

// StoredMessage 回合内持久化的单条消息
// 字段布局与历史存量文档保持一致（content/additional_kwargs/response_metadata/id/created_at）
type StoredMessage struct {
	Content          string         `json:"content"`
	AdditionalKwargs map[string]any `json:"additional_kwargs"`
	ResponseMetadata map[string]any `json:"response_metadata"`
	ID               string         `json:"id"`
	CreatedAt        string         `json:"created_at"`
}

// ConversationTurn 一个对话回合：一条用户消息 + 一条助手消息
// 回合在 Agent 运行成功后一次性写入，之后仅允许更新 rate
type ConversationTurn struct {
	ID               string        `gorm:"primaryKey;size:64" json:"id"`
	UserID           string        `gorm:"index:idx_conversation,priority:2;size:64" json:"user_id"`
	ConversationID   string        `gorm:"index:idx_conversation,priority:1;size:64" json:"conversation_id"`
	ConversationName string        `gorm:"size:255" json:"conversation_name"`
	PDFText          string        `gorm:"column:pdf_text;type:text" json:"pdf_text"`
	UserMessage      StoredMessage `gorm:"serializer:json;type:jsonb" json:"user_message"`
	AIMessage        StoredMessage `gorm:"column:ai_message;serializer:json;type:jsonb" json:"ai_message"`
	Rate             bool          `gorm:"default:false" json:"rate"`
	CreatedAt        time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (ConversationTurn) TableName() string {
	return "conversation_turns"
}
