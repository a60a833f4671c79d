package agent

import "github.com/cloudwego/eino/schema"

// 节点名
const (
	// NodeEntry 入口节点，负责调模型
	NodeEntry = "entry"
	// NodeEnd 终止
	NodeEnd = "end"
)

// NextAction 路由决策结果
type NextAction struct {
	// 下一个节点：NodeEntry、NodeEnd 或工具名
	Node string
}

// Terminal 是否结束本回合
func (a NextAction) Terminal() bool {
	return a.Node == NodeEnd
}

// routeAfterEntry 根据入口节点产出的最后一条消息决定去向
// 规则按顺序匹配：
//  1. 最后一条不是 assistant 消息（缺失或工具结果刚写回）则回入口
//  2. 没有 tool call 则结束，消息就是最终回复
//  3. 第一个 tool call 指向已注册工具则去对应工具节点
//  4. 指向未注册工具则结束，不视为错误
func routeAfterEntry(last *schema.Message, known func(string) bool) NextAction {
	if last == nil || last.Role != schema.Assistant {
		return NextAction{Node: NodeEntry}
	}
	if len(last.ToolCalls) == 0 {
		return NextAction{Node: NodeEnd}
	}

	name := last.ToolCalls[0].Function.Name
	if known(name) {
		return NextAction{Node: name}
	}
	return NextAction{Node: NodeEnd}
}
