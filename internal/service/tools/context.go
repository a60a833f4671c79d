package tools

import "context"

type contextKey string

const conversationIDKey contextKey = "conversation_id"

// WithConversationID 把会话 ID 注入上下文
// retrieval 工具据此把检索范围限定在当前会话上传的附件内
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversationIDKey, id)
}

// ConversationIDFrom 从上下文取会话 ID，未注入时返回空串
func ConversationIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(conversationIDKey).(string); ok {
		return v
	}
	return ""
}
