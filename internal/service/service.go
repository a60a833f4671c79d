// Package service 组装业务服务
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/dashscope"
	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino-ext/components/retriever/es8"
	"github.com/cloudwego/eino-ext/components/retriever/es8/search_mode"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"github.com/dpatinod/BataBot/internal/config"
	"github.com/dpatinod/BataBot/internal/repository"
	"github.com/dpatinod/BataBot/internal/service/agent"
	"github.com/dpatinod/BataBot/internal/service/chat"
	"github.com/dpatinod/BataBot/internal/service/knowledge"
	"github.com/dpatinod/BataBot/internal/service/order"
	"github.com/dpatinod/BataBot/internal/service/tools"
	"github.com/dpatinod/BataBot/internal/whatsapp"
	"github.com/dpatinod/BataBot/pkg/logger"
)

// Services 服务集合
type Services struct {
	Chat      *chat.Service
	Knowledge *knowledge.Service
	Order     *order.Service
	WhatsApp  *whatsapp.Client
}

// NewServices 创建所有服务
func NewServices(ctx context.Context, cfg *config.Config, repo *repository.Repositories, rdb *redis.Client) (*Services, error) {
	chatModel, err := newToolCallingChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	embedder := newEmbedder(ctx, cfg)
	retriever := newES8Retriever(ctx, cfg, embedder)

	registry, err := newToolRegistry(ctx, cfg, repo, retriever)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	engine, err := agent.New(&agent.Config{
		Model:         chatModel,
		Registry:      registry,
		MaxRounds:     cfg.Agent.MaxRounds,
		ContextWindow: cfg.Agent.ContextWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent engine: %w", err)
	}

	knowledgeSvc := newKnowledgeService(ctx, cfg, embedder)

	return &Services{
		Chat:      chat.NewService(repo.Conversation, engine, chat.NewRedisLocker(rdb), cfg.Agent.HistoryTurns),
		Knowledge: knowledgeSvc,
		Order:     order.NewService(repo.Order),
		WhatsApp:  whatsapp.NewClient(&cfg.WhatsApp),
	}, nil
}

// newToolCallingChatModel 创建支持工具调用的 ChatModel
func newToolCallingChatModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai", "":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "alibaba", "qwen", "dashscope":
		apiKey = aiCfg.DashScope.APIKey
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		modelName = aiCfg.DashScope.Model
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		modelName = aiCfg.DeepSeek.Model
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	temperature := float32(0.7)

	return openaimodel.NewChatModel(ctx, &openaimodel.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       modelName,
		Temperature: &temperature,
	})
}

// newEmbedder 创建 Embedding 器，未配置时返回 nil
func newEmbedder(ctx context.Context, cfg *config.Config) embedding.Embedder {
	embCfg := cfg.AI.Embedding

	if embCfg.APIKey == "" {
		logger.Warn().Msg("embedding api_key is empty, attachment retrieval disabled")
		return nil
	}

	modelName := embCfg.Model
	if modelName == "" {
		modelName = "text-embedding-v3"
	}

	embConfig := &dashscope.EmbeddingConfig{
		APIKey: embCfg.APIKey,
		Model:  modelName,
	}
	if embCfg.Timeout > 0 {
		embConfig.Timeout = time.Duration(embCfg.Timeout) * time.Second
	}
	if embCfg.Dimensions > 0 {
		embConfig.Dimensions = &embCfg.Dimensions
	}

	embedder, err := dashscope.NewEmbedder(ctx, embConfig)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to create embedder")
		return nil
	}
	return embedder
}

// newES8Retriever 创建 ES8 检索器，依赖缺失时返回 nil
func newES8Retriever(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) *es8.Retriever {
	if cfg.Elastic.Host == "" || embedder == nil {
		logger.Warn().Msg("elasticsearch or embedder not configured, retrieval tool disabled")
		return nil
	}

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Elastic.Host},
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to create es client")
		return nil
	}

	retriever, err := es8.NewRetriever(ctx, &es8.RetrieverConfig{
		Client:     esClient,
		Index:      cfg.Elastic.IndexPrefix + "_attachments",
		TopK:       10,
		SearchMode: search_mode.SearchModeDenseVectorSimilarity(search_mode.DenseVectorSimilarityTypeCosineSimilarity, "content_vector"),
		Embedding:  embedder,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to create es8 retriever")
		return nil
	}
	return retriever
}

// newToolRegistry 注册全部工具
// 外部依赖缺失的工具跳过注册，引擎对未注册工具的调用会正常收尾
func newToolRegistry(ctx context.Context, cfg *config.Config, repo *repository.Repositories, retriever *es8.Retriever) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	register := func(entry *tools.Entry, err error) error {
		if err != nil {
			logger.Warn().Err(err).Msg("tool unavailable, skipping registration")
			return nil
		}
		return registry.Register(ctx, entry)
	}

	if err := register(tools.NewSearchEntry(ctx)); err != nil {
		return nil, err
	}
	if retriever != nil {
		if err := register(tools.NewRetrievalEntry(retriever)); err != nil {
			return nil, err
		}
	}
	if err := register(tools.NewScrapeEntry(tools.NewCatalogScraper(&cfg.Scraper))); err != nil {
		return nil, err
	}
	if err := register(tools.NewMenuEntry(repo.Inventory, cfg.Agent.DefaultRestaurant)); err != nil {
		return nil, err
	}
	if err := register(tools.NewOrderEntry(repo.Order)); err != nil {
		return nil, err
	}

	return registry, nil
}

// newKnowledgeService 创建附件服务，ES 不可用时退化为只提取文本
func newKnowledgeService(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) *knowledge.Service {
	if cfg.Elastic.Host == "" || embedder == nil {
		return knowledge.NewService(nil)
	}

	indexer, err := knowledge.NewES8Indexer(ctx, cfg, embedder)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to create attachment indexer, indexing disabled")
		return knowledge.NewService(nil)
	}
	if err := indexer.EnsureIndex(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to ensure attachment index")
	}
	return knowledge.NewService(indexer)
}
