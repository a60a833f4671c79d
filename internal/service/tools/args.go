package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// NormalizeArguments 归一化模型产出的工具参数
// 模型输出不总是合法 JSON 对象，常见三种情况：
//  1. 合法 JSON 对象，直接透传
//  2. 裸标量（"rojo"、42），单参数工具包装为 {scalarArg: value}
//  3. 截断或语法损坏的 JSON，用 jsonrepair 修复后重试
func NormalizeArguments(raw, scalarArg string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "{}", nil
	}

	if normalized, ok := tryNormalize(s, scalarArg); ok {
		return normalized, nil
	}

	// jsonrepair 能处理缺引号、尾逗号、未闭合括号等常见损坏
	repaired, err := jsonrepair.JSONRepair(s)
	if err == nil {
		if normalized, ok := tryNormalize(strings.TrimSpace(repaired), scalarArg); ok {
			return normalized, nil
		}
	}

	// 修复失败时，单参数工具把原始文本整体当作参数值
	if scalarArg != "" {
		return wrapScalar(s, scalarArg)
	}
	return "", fmt.Errorf("failed to normalize tool arguments: %q", raw)
}

// tryNormalize 尝试把合法 JSON 归一化为对象形式
func tryNormalize(s, scalarArg string) (string, bool) {
	var value any
	if err := json.Unmarshal([]byte(s), &value); err != nil {
		return "", false
	}

	switch value.(type) {
	case map[string]any:
		return s, true
	case nil:
		return "{}", true
	}

	// 标量或数组，只有单参数工具知道该挂到哪个键上
	if scalarArg == "" {
		return "", false
	}
	out, err := json.Marshal(map[string]any{scalarArg: value})
	if err != nil {
		return "", false
	}
	return string(out), true
}

func wrapScalar(s, scalarArg string) (string, error) {
	out, err := json.Marshal(map[string]any{scalarArg: s})
	if err != nil {
		return "", fmt.Errorf("failed to wrap scalar argument: %w", err)
	}
	return string(out), nil
}
