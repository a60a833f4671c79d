package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/retriever/es8"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

// RetrievalInput retrieval 工具输入
type RetrievalInput struct {
	Query string `json:"query"`
}

// RetrievalResult 单条检索结果
type RetrievalResult struct {
	Content  string  `json:"content"`
	FileName string  `json:"file_name,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// RetrievalOutput retrieval 工具输出
type RetrievalOutput struct {
	Results []RetrievalResult `json:"results"`
}

// DocumentRetriever 向量检索依赖，es8.Retriever 实现它
type DocumentRetriever interface {
	Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error)
}

// NewRetrievalEntry 创建附件检索工具
// 会话过滤放在 ES 查询里，其它会话的块不会占掉 TopK 名额
func NewRetrievalEntry(r DocumentRetriever) (*Entry, error) {
	if r == nil {
		return nil, fmt.Errorf("document retriever is nil")
	}

	info := &schema.ToolInfo{
		Name: "retrieval",
		Desc: "Busca en los documentos que el usuario subio a esta conversacion. Usalo cuando la pregunta se refiere a un archivo adjunto.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "Texto a buscar en los documentos adjuntos",
				Required: true,
			},
		}),
	}

	fn := func(ctx context.Context, input *RetrievalInput) (*RetrievalOutput, error) {
		if input.Query == "" {
			return nil, fmt.Errorf("query is required")
		}

		var opts []retriever.Option
		if conversationID := ConversationIDFrom(ctx); conversationID != "" {
			opts = append(opts, es8.WithFilters([]types.Query{{
				Term: map[string]types.TermQuery{
					"conversation_id": {Value: conversationID},
				},
			}}))
		}

		docs, err := r.Retrieve(ctx, input.Query, opts...)
		if err != nil {
			return nil, fmt.Errorf("retrieval failed: %w", err)
		}

		out := &RetrievalOutput{Results: make([]RetrievalResult, 0, len(docs))}
		for _, doc := range docs {
			result := RetrievalResult{
				Content:  doc.Content,
				FileName: metaString(doc, "file_name"),
			}
			if score, ok := doc.MetaData["_score"].(float64); ok {
				result.Score = score
			}
			out.Results = append(out.Results, result)
		}
		return out, nil
	}

	return &Entry{
		Name:      "retrieval",
		Tool:      utils.NewTool(info, fn),
		Retryable: true,
		ScalarArg: "query",
	}, nil
}

func metaString(doc *schema.Document, key string) string {
	if doc.MetaData == nil {
		return ""
	}
	if v, ok := doc.MetaData[key].(string); ok {
		return v
	}
	return ""
}
