package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"gorm.io/gorm"

	"github.com/dpatinod/BataBot/internal/model"
	"github.com/dpatinod/BataBot/internal/repository"
	"github.com/dpatinod/BataBot/internal/service/agent"
)

// mockTurnStore Mock 回合存储
type mockTurnStore struct {
	mu         sync.Mutex
	turns      []*model.ConversationTurn
	createErrs []error
	recentErr  error
	rated      map[string]bool
}

func newMockTurnStore() *mockTurnStore {
	return &mockTurnStore{rated: make(map[string]bool)}
}

func (m *mockTurnStore) CreateTurn(turn *model.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	// 主键冲突时静默跳过，与 ON CONFLICT DO NOTHING 一致
	for _, existing := range m.turns {
		if existing.ID == turn.ID {
			return nil
		}
	}
	m.turns = append(m.turns, turn)
	return nil
}

func (m *mockTurnStore) RecentTurns(conversationID, userID string, limit int) ([]*model.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.recentErr != nil {
		return nil, m.recentErr
	}
	result := make([]*model.ConversationTurn, 0)
	for _, turn := range m.turns {
		if turn.ConversationID == conversationID && turn.UserID == userID {
			result = append(result, turn)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *mockTurnStore) UpdateRate(turnID, conversationID string, rate bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, turn := range m.turns {
		if turn.ID == turnID && turn.ConversationID == conversationID {
			turn.Rate = rate
			m.rated[turnID] = rate
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockTurnStore) ListUserConversations(userID string) ([]*repository.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	result := make([]*repository.ConversationSummary, 0)
	for _, turn := range m.turns {
		if turn.UserID == userID && !seen[turn.ConversationID] {
			seen[turn.ConversationID] = true
			result = append(result, &repository.ConversationSummary{
				ConversationID:   turn.ConversationID,
				ConversationName: turn.ConversationName,
			})
		}
	}
	return result, nil
}

func (m *mockTurnStore) GetConversationTurns(conversationID string) ([]*model.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*model.ConversationTurn, 0)
	for _, turn := range m.turns {
		if turn.ConversationID == conversationID {
			result = append(result, turn)
		}
	}
	return result, nil
}

// fakeEngine 记录输入并按脚本追加消息的测试引擎
type fakeEngine struct {
	gotMessages  []*schema.Message
	gotReference string
	reply        string
	appendExtra  []*schema.Message
	err          error
}

func (e *fakeEngine) Run(ctx context.Context, state *agent.State) (*agent.State, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.gotMessages = append([]*schema.Message{}, state.Messages...)
	e.gotReference = state.ReferenceText
	state.Append(e.appendExtra...)
	if e.reply != "" {
		state.Append(schema.AssistantMessage(e.reply, nil))
	}
	return state, nil
}

func seedTurn(store *mockTurnStore, id, userContent, aiContent, pdfText string) {
	store.turns = append(store.turns, &model.ConversationTurn{
		ID:             id,
		UserID:         "user-1",
		ConversationID: "conv-1",
		PDFText:        pdfText,
		UserMessage:    model.StoredMessage{ID: id + "-u", Content: userContent},
		AIMessage:      model.StoredMessage{ID: id + "-a", Content: aiContent},
	})
}

func TestRunTurnPersistsPair(t *testing.T) {
	store := newMockTurnStore()
	engine := &fakeEngine{reply: "Hola! En que te ayudo?"}
	svc := NewService(store, engine, nil, 20)

	result, err := svc.RunTurn(context.Background(), &RunTurnRequest{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Content:        "hola",
	})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	if result.Reply != "Hola! En que te ayudo?" {
		t.Errorf("unexpected reply: %q", result.Reply)
	}
	if len(store.turns) != 1 {
		t.Fatalf("expected 1 persisted turn, got %d", len(store.turns))
	}
	turn := store.turns[0]
	if turn.ID != result.TurnID {
		t.Error("result turn id must match persisted turn")
	}
	if turn.UserMessage.Content != "hola" || turn.AIMessage.Content != result.Reply {
		t.Errorf("unexpected persisted pair: %+v", turn)
	}
	if turn.UserMessage.ID == "" || turn.AIMessage.ID == "" {
		t.Error("expected generated message ids")
	}
	if turn.Rate {
		t.Error("new turn must start unrated")
	}
}

func TestRunTurnRebuildsHistoryInOrder(t *testing.T) {
	store := newMockTurnStore()
	seedTurn(store, "t1", "hola", "Hola!", "")
	seedTurn(store, "t2", "tienen botas?", "Si, claro.", "")
	engine := &fakeEngine{reply: "ok"}
	svc := NewService(store, engine, nil, 20)

	_, err := svc.RunTurn(context.Background(), &RunTurnRequest{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Content:        "muestrame",
	})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	want := []struct {
		role    schema.RoleType
		content string
	}{
		{schema.User, "hola"},
		{schema.Assistant, "Hola!"},
		{schema.User, "tienen botas?"},
		{schema.Assistant, "Si, claro."},
		{schema.User, "muestrame"},
	}
	if len(engine.gotMessages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(engine.gotMessages))
	}
	for i, w := range want {
		if engine.gotMessages[i].Role != w.role || engine.gotMessages[i].Content != w.content {
			t.Errorf("message[%d] = %s %q, want %s %q",
				i, engine.gotMessages[i].Role, engine.gotMessages[i].Content, w.role, w.content)
		}
	}
}

func TestRunTurnCarriesForwardReferenceText(t *testing.T) {
	store := newMockTurnStore()
	seedTurn(store, "t1", "lee esto", "Leido.", "factura: total $250.000")
	seedTurn(store, "t2", "gracias", "Con gusto.", "")
	engine := &fakeEngine{reply: "ok"}
	svc := NewService(store, engine, nil, 20)

	_, err := svc.RunTurn(context.Background(), &RunTurnRequest{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Content:        "cual era el total?",
	})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}
	if engine.gotReference != "factura: total $250.000" {
		t.Errorf("expected carried reference text, got %q", engine.gotReference)
	}

	// 当前回合带了新文本时覆盖历史里的
	engine2 := &fakeEngine{reply: "ok"}
	svc2 := NewService(store, engine2, nil, 20)
	_, err = svc2.RunTurn(context.Background(), &RunTurnRequest{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Content:        "y este?",
		ReferenceText:  "recibo: total $80.000",
	})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}
	if engine2.gotReference != "recibo: total $80.000" {
		t.Errorf("expected request reference text to win, got %q", engine2.gotReference)
	}
}

func TestRunTurnPersistsLastAssistantMessage(t *testing.T) {
	store := newMockTurnStore()
	engine := &fakeEngine{
		appendExtra: []*schema.Message{
			{Role: schema.Assistant, ToolCalls: []schema.ToolCall{
				{ID: "call_1", Function: schema.FunctionCall{Name: "get_menu"}},
			}},
			{Role: schema.Tool, Content: `{"items":[]}`, ToolCallID: "call_1"},
		},
		reply: "El menu esta vacio hoy.",
	}
	svc := NewService(store, engine, nil, 20)

	result, err := svc.RunTurn(context.Background(), &RunTurnRequest{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Content:        "menu",
	})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}
	if store.turns[0].AIMessage.Content != "El menu esta vacio hoy." {
		t.Errorf("expected last assistant message persisted, got %q", store.turns[0].AIMessage.Content)
	}
	if result.Reply != "El menu esta vacio hoy." {
		t.Errorf("unexpected reply: %q", result.Reply)
	}
}

func TestRunTurnNoResponse(t *testing.T) {
	store := newMockTurnStore()
	engine := &fakeEngine{} // 不产出任何 assistant 消息
	svc := NewService(store, engine, nil, 20)

	_, err := svc.RunTurn(context.Background(), &RunTurnRequest{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Content:        "hola",
	})
	if !errors.Is(err, ErrNoResponse) {
		t.Errorf("expected ErrNoResponse, got %v", err)
	}
	if len(store.turns) != 0 {
		t.Error("no turn must be persisted without a response")
	}
}

func TestRunTurnHistoryReadFailureAbortsBeforeEngine(t *testing.T) {
	store := newMockTurnStore()
	store.recentErr = errors.New("db down")
	engine := &fakeEngine{reply: "ok"}
	svc := NewService(store, engine, nil, 20)

	_, err := svc.RunTurn(context.Background(), &RunTurnRequest{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Content:        "hola",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if engine.gotMessages != nil {
		t.Error("engine must not run when history read fails")
	}
}

func TestRunTurnRetriesWriteOnce(t *testing.T) {
	store := newMockTurnStore()
	store.createErrs = []error{errors.New("transient write failure")}
	engine := &fakeEngine{reply: "ok"}
	svc := NewService(store, engine, nil, 20)

	result, err := svc.RunTurn(context.Background(), &RunTurnRequest{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Content:        "hola",
	})
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if len(store.turns) != 1 || store.turns[0].ID != result.TurnID {
		t.Error("expected exactly one persisted turn after retry")
	}
}

func TestVote(t *testing.T) {
	store := newMockTurnStore()
	seedTurn(store, "t1", "hola", "Hola!", "")
	svc := NewService(store, &fakeEngine{}, nil, 20)
	ctx := context.Background()

	if err := svc.Vote(ctx, "t1", "conv-1", true); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	// 同一评分重复提交是幂等的
	if err := svc.Vote(ctx, "t1", "conv-1", true); err != nil {
		t.Fatalf("repeated Vote failed: %v", err)
	}
	if !store.turns[0].Rate {
		t.Error("expected rate to be set")
	}

	if err := svc.Vote(ctx, "missing", "conv-1", true); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestGetConversation(t *testing.T) {
	store := newMockTurnStore()
	seedTurn(store, "t1", "hola", "Hola!", "")
	store.turns[0].ConversationName = "Pedido almuerzo"
	svc := NewService(store, &fakeEngine{}, nil, 20)

	detail, err := svc.GetConversation(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if detail.ConversationName != "Pedido almuerzo" || detail.UserID != "user-1" {
		t.Errorf("unexpected detail header: %+v", detail)
	}
	if len(detail.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(detail.Messages))
	}
	if detail.Messages[0].Role != "user" || detail.Messages[1].Role != "assistant" {
		t.Error("expected user message before assistant message")
	}
	if detail.Messages[1].Rate == nil {
		t.Error("assistant message must carry its rate")
	}
	if detail.Messages[0].TurnID != "t1" {
		t.Errorf("unexpected turn id: %s", detail.Messages[0].TurnID)
	}
}

func TestRunTurnPersistsCarriedReferenceText(t *testing.T) {
	store := newMockTurnStore()
	seedTurn(store, "t1", "lee esto", "Leido.", "factura: total $250.000")
	engine := &fakeEngine{reply: "ok"}
	svc := NewService(store, engine, nil, 20)

	_, err := svc.RunTurn(context.Background(), &RunTurnRequest{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Content:        "cual era el total?",
	})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	// 新回合自己也带着延续下来的文本，
	// 原来的回合滚出历史窗口后它仍然可见
	last := store.turns[len(store.turns)-1]
	if last.PDFText != "factura: total $250.000" {
		t.Errorf("expected carried reference text persisted, got %q", last.PDFText)
	}

	engine2 := &fakeEngine{reply: "ok"}
	svc2 := NewService(store, engine2, nil, 20)
	_, err = svc2.RunTurn(context.Background(), &RunTurnRequest{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Content:        "y este?",
		ReferenceText:  "recibo: total $80.000",
	})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}
	last = store.turns[len(store.turns)-1]
	if last.PDFText != "recibo: total $80.000" {
		t.Errorf("expected request reference text persisted, got %q", last.PDFText)
	}
}

func TestListConversationsEmptyNotFound(t *testing.T) {
	svc := NewService(newMockTurnStore(), &fakeEngine{}, nil, 20)

	_, err := svc.ListConversations(context.Background(), "nobody")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound for user without conversations, got %v", err)
	}
}

func TestGetConversationEmptyNotFound(t *testing.T) {
	svc := NewService(newMockTurnStore(), &fakeEngine{}, nil, 20)

	_, err := svc.GetConversation(context.Background(), "missing-conv")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound for empty conversation, got %v", err)
	}
}

// staticEngine 并发测试用的无状态引擎
type staticEngine struct{}

func (staticEngine) Run(ctx context.Context, state *agent.State) (*agent.State, error) {
	state.Append(schema.AssistantMessage("ok", nil))
	return state, nil
}

// mutexLocker 进程内互斥锁，并发测试替代 Redis 锁
type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexLocker) Acquire(ctx context.Context, key string) func() {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func TestRunTurnConcurrentSameConversation(t *testing.T) {
	store := newMockTurnStore()
	svc := NewService(store, staticEngine{}, newMutexLocker(), 20)

	const turns = 2
	var wg sync.WaitGroup
	errs := make([]error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RunTurn(context.Background(), &RunTurnRequest{
				UserID:         "user-1",
				ConversationID: "conv-1",
				Content:        fmt.Sprintf("mensaje %d", i),
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("concurrent turn %d failed: %v", i, err)
		}
	}
	if len(store.turns) != turns {
		t.Fatalf("expected %d persisted turns, got %d", turns, len(store.turns))
	}
	if store.turns[0].ID == store.turns[1].ID {
		t.Error("concurrent turns must persist under distinct ids")
	}
}
