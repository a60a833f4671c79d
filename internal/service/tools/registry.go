// Package tools 提供 Agent 工具目录
// 所有工具在启动时注册到 Registry，引擎按名字分发调用
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// Entry 注册表中的一个工具条目
type Entry struct {
	// 工具名，与模型侧 tool call 的 function name 一致
	Name string
	// 底层可调用工具
	Tool tool.InvokableTool
	// 注册时缓存的 schema，引擎绑定模型时直接取用
	Info *schema.ToolInfo
	// 执行失败后是否允许自动重试一次
	// 有副作用的工具（如下单）必须为 false
	Retryable bool
	// 单参数工具的参数名
	// 模型偶尔会把参数直接给成裸标量而不是 JSON 对象，
	// 非空时参数归一化会把裸标量包装成 {ScalarArg: value}
	ScalarArg string
}

// Registry 工具注册表，注册完成后只读
type Registry struct {
	entries map[string]*Entry
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register 注册一个工具
// 注册时即校验 schema，避免运行期才暴露配置错误
func (r *Registry) Register(ctx context.Context, e *Entry) error {
	if e == nil || e.Tool == nil {
		return fmt.Errorf("tool entry is nil")
	}

	info, err := e.Tool.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get tool info: %w", err)
	}
	if info.Name == "" {
		return fmt.Errorf("tool info has empty name")
	}
	if e.Name == "" {
		e.Name = info.Name
	}
	if e.Name != info.Name {
		return fmt.Errorf("tool name mismatch: entry %q vs info %q", e.Name, info.Name)
	}
	if _, ok := r.entries[e.Name]; ok {
		return fmt.Errorf("tool already registered: %s", e.Name)
	}

	e.Info = info
	r.entries[e.Name] = e
	return nil
}

// Get 按名字查找工具，未注册返回 false
func (r *Registry) Get(name string) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Has 是否注册了指定工具
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Infos 返回全部工具 schema，用于绑定 ChatModel
func (r *Registry) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.entries))
	for _, name := range r.Names() {
		infos = append(infos, r.entries[name].Info)
	}
	return infos
}

// Names 返回全部工具名，按字典序
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
