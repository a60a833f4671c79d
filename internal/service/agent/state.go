// Package agent 实现有界循环的工具调用引擎
// 入口节点调模型产出回复或 tool call，工具节点执行后回到入口，
// 循环次数有上限，不可路由的 tool call 按正常结束处理
package agent

import "github.com/cloudwego/eino/schema"

// State 一次引擎运行的完整状态
// Messages 只增不减，引擎返回后新增的消息即本回合的产出
type State struct {
	// 会话消息序列，含历史与本回合新消息
	Messages []*schema.Message
	// 附件参考文本，随系统提示词带给模型
	ReferenceText string
	// 会话 ID，工具执行时据此限定数据范围
	ThreadID string
}

// LastMessage 返回最后一条消息，空序列返回 nil
func (s *State) LastMessage() *schema.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// Append 追加消息
func (s *State) Append(msgs ...*schema.Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Window 返回最近 n 条消息，n 不足时返回全部
func (s *State) Window(n int) []*schema.Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}
