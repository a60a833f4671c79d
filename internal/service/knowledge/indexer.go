// Package knowledge 实现附件入库
// 解析、分块、向量化后写入 Elasticsearch，供 retrieval 工具按会话检索
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino-ext/components/indexer/es8"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
	"github.com/elastic/go-elasticsearch/v8"

	"github.com/dpatinod/BataBot/internal/config"
)

// Indexer 文档块存储
type Indexer interface {
	Store(ctx context.Context, docs []*schema.Document) ([]string, error)
	EnsureIndex(ctx context.Context) error
}

// es8IndexerWrapper 包装 eino-ext 的 ES8 Indexer 并补上索引管理
type es8IndexerWrapper struct {
	indexer    *es8.Indexer
	indexName  string
	client     *elasticsearch.Client
	dimensions int
}

// NewES8Indexer 创建 ES8 Indexer
func NewES8Indexer(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) (Indexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Elastic.Host},
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	indexName := cfg.Elastic.IndexPrefix + "_attachments"

	indexer, err := es8.NewIndexer(ctx, &es8.IndexerConfig{
		Client:    client,
		Index:     indexName,
		BatchSize: 10,
		Embedding: embedder,
		DocumentToFields: func(ctx context.Context, doc *schema.Document) (map[string]es8.FieldValue, error) {
			return documentToESFields(doc), nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES8 indexer: %w", err)
	}

	return &es8IndexerWrapper{
		indexer:    indexer,
		indexName:  indexName,
		client:     client,
		dimensions: cfg.AI.Embedding.Dimensions,
	}, nil
}

// Store 写入文档块
func (w *es8IndexerWrapper) Store(ctx context.Context, docs []*schema.Document) ([]string, error) {
	return w.indexer.Store(ctx, docs)
}

// EnsureIndex 确保索引存在，不存在则按映射创建
func (w *es8IndexerWrapper) EnsureIndex(ctx context.Context) error {
	res, err := w.client.Indices.Exists([]string{w.indexName})
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	dimensions := w.dimensions
	if dimensions == 0 {
		dimensions = 1536
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"content": map[string]interface{}{
					"type": "text",
				},
				"content_vector": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       dimensions,
					"index":      true,
					"similarity": "cosine",
				},
				"conversation_id": map[string]interface{}{
					"type": "keyword",
				},
				"user_id": map[string]interface{}{
					"type": "keyword",
				},
				"file_name": map[string]interface{}{
					"type": "keyword",
				},
				"chunk_index": map[string]interface{}{
					"type": "integer",
				},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createRes, err := w.client.Indices.Create(w.indexName,
		w.client.Indices.Create.WithContext(ctx),
		w.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}
	return nil
}

// documentToESFields 把 Eino Document 转成 ES 字段
// content 带 EmbedKey 表示需要向量化
func documentToESFields(doc *schema.Document) map[string]es8.FieldValue {
	fields := make(map[string]es8.FieldValue)

	fields["content"] = es8.FieldValue{
		Value:    doc.Content,
		EmbedKey: "content_vector",
	}

	for k, v := range doc.MetaData {
		fields[k] = es8.FieldValue{Value: v}
	}
	return fields
}
