package tools

import (
	"context"
	"fmt"

	duckduckgo "github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
)

// NewSearchEntry 创建网络搜索工具 (eino-ext duckduckgo)
// 用于回答目录和附件都覆盖不到的开放问题
func NewSearchEntry(ctx context.Context) (*Entry, error) {
	searchTool, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
		ToolName:   "search",
		ToolDesc:   "Busca en la web informacion actualizada. Usalo cuando el catalogo y los documentos adjuntos no alcanzan para responder.",
		MaxResults: 10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create search tool: %w", err)
	}

	return &Entry{
		Name:      "search",
		Tool:      searchTool,
		Retryable: true,
		ScalarArg: "query",
	}, nil
}
