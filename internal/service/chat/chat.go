// Package chat 实现回合编排
// 一个回合 = 取锁、重建历史、跑引擎、落一条 user/ai 消息对
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/dpatinod/BataBot/internal/model"
	"github.com/dpatinod/BataBot/internal/repository"
	"github.com/dpatinod/BataBot/internal/service/agent"
	"github.com/dpatinod/BataBot/pkg/ids"
)

// ErrNoResponse 引擎跑完后没有任何新的 assistant 消息
// 属于不变量被破坏，不应静默吞掉
var ErrNoResponse = errors.New("agent produced no assistant response")

// TurnStore 回合持久化依赖
type TurnStore interface {
	CreateTurn(turn *model.ConversationTurn) error
	RecentTurns(conversationID, userID string, limit int) ([]*model.ConversationTurn, error)
	UpdateRate(turnID, conversationID string, rate bool) error
	ListUserConversations(userID string) ([]*repository.ConversationSummary, error)
	GetConversationTurns(conversationID string) ([]*model.ConversationTurn, error)
}

// Runner 引擎依赖
type Runner interface {
	Run(ctx context.Context, state *agent.State) (*agent.State, error)
}

// Service 会话回合服务
type Service struct {
	store        TurnStore
	engine       Runner
	locker       Locker
	historyTurns int
	now          func() time.Time
}

// NewService 创建会话服务
func NewService(store TurnStore, engine Runner, locker Locker, historyTurns int) *Service {
	if locker == nil {
		locker = noopLocker{}
	}
	if historyTurns <= 0 {
		historyTurns = 20
	}
	return &Service{
		store:        store,
		engine:       engine,
		locker:       locker,
		historyTurns: historyTurns,
		now:          time.Now,
	}
}

// RunTurnRequest 一个用户回合
type RunTurnRequest struct {
	UserID           string `json:"user_id"`
	ConversationID   string `json:"conversation_id"`
	ConversationName string `json:"conversation_name"`
	Content          string `json:"content"`
	// 本回合随消息带上的附件参考文本，空则沿用历史里最近的一份
	ReferenceText string `json:"pdf_text"`
}

// TurnResult 回合结果
type TurnResult struct {
	TurnID string       `json:"turn_id"`
	Reply  string       `json:"reply"`
	State  *agent.State `json:"-"`
}

// RunTurn 执行一个完整回合
// 同一会话同时只允许一个回合写入，历史读失败在调模型前就中止
func (s *Service) RunTurn(ctx context.Context, req *RunTurnRequest) (*TurnResult, error) {
	if req == nil || req.Content == "" {
		return nil, fmt.Errorf("message content is required")
	}
	if req.UserID == "" || req.ConversationID == "" {
		return nil, fmt.Errorf("user_id and conversation_id are required")
	}

	release := s.locker.Acquire(ctx, lockKey(req.ConversationID))
	defer release()

	turns, err := s.store.RecentTurns(req.ConversationID, req.UserID, s.historyTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	history, carriedRef := rebuildHistory(turns)
	referenceText := req.ReferenceText
	if referenceText == "" {
		referenceText = carriedRef
	}

	state := &agent.State{
		Messages:      append(history, schema.UserMessage(req.Content)),
		ReferenceText: referenceText,
		ThreadID:      req.ConversationID,
	}
	initial := len(state.Messages)

	out, err := s.engine.Run(ctx, state)
	if err != nil {
		return nil, err
	}

	final := lastAssistantSince(out, initial)
	if final == nil {
		return nil, ErrNoResponse
	}

	turn := s.buildTurn(req, referenceText, final)
	if err := s.createTurnIdempotent(turn); err != nil {
		return nil, fmt.Errorf("failed to persist turn: %w", err)
	}

	return &TurnResult{TurnID: turn.ID, Reply: final.Content, State: out}, nil
}

// buildTurn 把本回合的 user/ai 消息对组装成持久化记录
// pdf_text 存的是生效的参考文本（本回合带的或历史延续的），
// 每个回合都带着它，文本不会随着携带它的回合滚出历史窗口而丢失
func (s *Service) buildTurn(req *RunTurnRequest, referenceText string, final *schema.Message) *model.ConversationTurn {
	ts := s.now().Format(time.RFC3339)
	return &model.ConversationTurn{
		ID:               ids.New(),
		UserID:           req.UserID,
		ConversationID:   req.ConversationID,
		ConversationName: req.ConversationName,
		PDFText:          referenceText,
		UserMessage: model.StoredMessage{
			Content:          req.Content,
			AdditionalKwargs: map[string]any{},
			ResponseMetadata: map[string]any{"timestamp": ts},
			ID:               ids.New(),
			CreatedAt:        ts,
		},
		AIMessage: model.StoredMessage{
			Content:          final.Content,
			AdditionalKwargs: map[string]any{},
			ResponseMetadata: map[string]any{"timestamp": ts},
			ID:               ids.New(),
			CreatedAt:        ts,
		},
	}
}

// createTurnIdempotent 落库，失败重试一次
// 主键冲突按成功处理，重试不会写出第二条记录
func (s *Service) createTurnIdempotent(turn *model.ConversationTurn) error {
	if err := s.store.CreateTurn(turn); err != nil {
		return s.store.CreateTurn(turn)
	}
	return nil
}

// rebuildHistory 把持久化回合还原成消息序列
// 返回历史里最近一份非空参考文本
func rebuildHistory(turns []*model.ConversationTurn) ([]*schema.Message, string) {
	msgs := make([]*schema.Message, 0, len(turns)*2)
	for _, turn := range turns {
		msgs = append(msgs, schema.UserMessage(turn.UserMessage.Content))
		msgs = append(msgs, schema.AssistantMessage(turn.AIMessage.Content, nil))
	}

	ref := ""
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].PDFText != "" {
			ref = turns[i].PDFText
			break
		}
	}
	return msgs, ref
}

// lastAssistantSince 取引擎新增消息里最后一条 assistant 消息
func lastAssistantSince(state *agent.State, since int) *schema.Message {
	if state == nil || since > len(state.Messages) {
		return nil
	}
	var final *schema.Message
	for _, msg := range state.Messages[since:] {
		if msg.Role == schema.Assistant {
			final = msg
		}
	}
	return final
}
