package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dpatinod/BataBot/internal/service/tools"
	"github.com/dpatinod/BataBot/pkg/logger"
)

// Config 引擎配置
type Config struct {
	Model    model.ToolCallingChatModel
	Registry *tools.Registry
	// 系统提示词模板，空则用 DefaultSystemPrompt
	SystemPrompt string
	// 入口节点最多执行的轮数，防止模型与工具互相触发死循环
	MaxRounds int
	// 每次模型调用带入的最近消息条数
	ContextWindow int
	// 时间源，测试时可替换
	Now func() time.Time
}

// Engine 工具调用引擎
type Engine struct {
	model         model.ToolCallingChatModel
	registry      *tools.Registry
	prompt        string
	maxRounds     int
	contextWindow int
	now           func() time.Time
}

// New 创建引擎并把工具 schema 绑定到模型
func New(cfg *Config) (*Engine, error) {
	if cfg == nil || cfg.Model == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}

	boundModel := cfg.Model
	if infos := cfg.Registry.Infos(); len(infos) > 0 {
		var err error
		boundModel, err = cfg.Model.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 10
	}
	contextWindow := cfg.ContextWindow
	if contextWindow <= 0 {
		contextWindow = 10
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		model:         boundModel,
		registry:      cfg.Registry,
		prompt:        prompt,
		maxRounds:     maxRounds,
		contextWindow: contextWindow,
		now:           now,
	}, nil
}

// Run 执行一个回合直到产出最终回复或轮数耗尽
// 轮数耗尽不算错误，已累积的消息原样返回
func (e *Engine) Run(ctx context.Context, state *State) (*State, error) {
	if state == nil {
		state = &State{}
	}
	if state.ThreadID != "" {
		ctx = tools.WithConversationID(ctx, state.ThreadID)
	}

	node := NodeEntry
	rounds := 0

	for {
		switch node {
		case NodeEnd:
			return state, nil

		case NodeEntry:
			if rounds >= e.maxRounds {
				logger.Warn().
					Str("thread_id", state.ThreadID).
					Int("max_rounds", e.maxRounds).
					Msg("agent round limit reached, returning accumulated state")
				return state, nil
			}
			rounds++

			msg, err := e.invokeModel(ctx, state)
			if err != nil {
				return nil, &ModelError{Err: err}
			}
			msg.Content = NormalizeEmphasis(msg.Content)
			state.Append(msg)
			node = routeAfterEntry(msg, e.registry.Has).Node

		default:
			state.Append(e.runToolNode(ctx, node, state.LastMessage())...)
			node = NodeEntry
		}
	}
}

// invokeModel 用系统提示词加最近消息窗口调一次模型
func (e *Engine) invokeModel(ctx context.Context, state *State) (*schema.Message, error) {
	window := state.Window(e.contextWindow)
	system := renderSystemPrompt(e.prompt, e.now(), state.ReferenceText)

	msgs := make([]*schema.Message, 0, len(window)+1)
	msgs = append(msgs, schema.SystemMessage(system))
	msgs = append(msgs, window...)

	return e.model.Generate(ctx, msgs)
}

// runToolNode 执行最后一条 assistant 消息里的全部 tool call
// 路由虽然只看第一个 call，执行时每个 call 都要有回应，
// 否则下一次模型调用会因悬空的 tool_call 被拒
func (e *Engine) runToolNode(ctx context.Context, node string, last *schema.Message) []*schema.Message {
	if last == nil || len(last.ToolCalls) == 0 {
		return nil
	}

	results := make([]*schema.Message, 0, len(last.ToolCalls))
	for _, call := range last.ToolCalls {
		name := call.Function.Name
		entry, ok := e.registry.Get(name)
		if !ok {
			results = append(results, toolMessage(call.ID,
				fmt.Sprintf("No existe ninguna herramienta llamada '%s'.", name)))
			continue
		}

		content, err := e.invokeTool(ctx, entry, call.Function.Arguments)
		if err != nil {
			// 工具失败不中断回合，转成模型可见的消息让它向用户解释
			logger.Warn().
				Str("tool", name).
				Str("node", node).
				Err(err).
				Msg("tool execution failed")
			content = fmt.Sprintf("La herramienta '%s' fallo: %v", name, err)
		}
		results = append(results, toolMessage(call.ID, content))
	}
	return results
}

// invokeTool 归一化参数并执行工具，可重试的工具失败后再试一次
func (e *Engine) invokeTool(ctx context.Context, entry *tools.Entry, rawArgs string) (string, error) {
	args, err := tools.NormalizeArguments(rawArgs, entry.ScalarArg)
	if err != nil {
		return "", &ToolError{Tool: entry.Name, Err: err}
	}

	out, err := entry.Tool.InvokableRun(ctx, args)
	if err != nil && entry.Retryable {
		out, err = entry.Tool.InvokableRun(ctx, args)
	}
	if err != nil {
		return "", &ToolError{Tool: entry.Name, Err: err}
	}
	return out, nil
}

func toolMessage(callID, content string) *schema.Message {
	return &schema.Message{
		Role:       schema.Tool,
		Content:    content,
		ToolCallID: callID,
	}
}

// NormalizeEmphasis 把 Markdown 双星号加粗换成 WhatsApp 的单星号
func NormalizeEmphasis(s string) string {
	return strings.ReplaceAll(s, "**", "*")
}
