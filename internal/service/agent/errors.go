package agent

import "fmt"

// ModelError 模型调用失败
// 不做降级，原样向上传播由调用方决定重试或报错
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model invocation failed: %v", e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ToolError 工具执行失败
// 引擎内部会把它转成模型可见的消息，不会从 Run 返回
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
