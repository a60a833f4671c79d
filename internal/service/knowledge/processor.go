package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino-ext/components/document/parser/docx"
	"github.com/cloudwego/eino-ext/components/document/parser/html"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	einoparser "github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/dpatinod/BataBot/pkg/logger"
)

// 参考文本超过这个长度就截断，后续靠向量检索取细节
const maxReferenceChars = 4000

// Attachment 一个上传的附件
type Attachment struct {
	FileName string
	Data     []byte
}

// IngestResult 一批附件的处理结果
type IngestResult struct {
	// 成功入库的文件名
	Stored []string `json:"stored"`
	// 解析或入库失败的文件名
	Failed []string `json:"failed"`
	// 提取出的参考文本，随后续消息带给模型
	ReferenceText string `json:"pdf_text"`
	ChunkCount    int    `json:"chunk_count"`
}

// Service 附件处理服务
type Service struct {
	indexer Indexer
}

// NewService 创建附件处理服务
func NewService(indexer Indexer) *Service {
	return &Service{indexer: indexer}
}

// Ingest 处理一批附件
// 单个文件失败不影响其余文件，结果里分开列出
func (s *Service) Ingest(ctx context.Context, conversationID, userID string, files []Attachment) (*IngestResult, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation_id is required")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files provided")
	}

	result := &IngestResult{Stored: []string{}, Failed: []string{}}
	var refParts []string

	for _, file := range files {
		text, err := extractText(ctx, file)
		if err != nil || strings.TrimSpace(text) == "" {
			logger.Warn().Str("file", file.FileName).Err(err).Msg("failed to extract attachment text")
			result.Failed = append(result.Failed, file.FileName)
			continue
		}

		if s.indexer != nil {
			chunks, err := splitText(ctx, text, conversationID, userID, file.FileName)
			if err != nil {
				logger.Warn().Str("file", file.FileName).Err(err).Msg("failed to split attachment")
				result.Failed = append(result.Failed, file.FileName)
				continue
			}
			if _, err := s.indexer.Store(ctx, chunks); err != nil {
				logger.Warn().Str("file", file.FileName).Err(err).Msg("failed to index attachment")
				result.Failed = append(result.Failed, file.FileName)
				continue
			}
			result.ChunkCount += len(chunks)
		}

		result.Stored = append(result.Stored, file.FileName)
		refParts = append(refParts, file.FileName+":\n"+text)
	}

	result.ReferenceText = buildReferenceText(refParts)
	return result, nil
}

// extractText 按扩展名选解析器提取纯文本
func extractText(ctx context.Context, file Attachment) (string, error) {
	fileParser, err := newParser(ctx, file.FileName)
	if err != nil {
		return "", err
	}

	docs, err := fileParser.Parse(ctx, bytes.NewReader(file.Data))
	if err != nil {
		return "", fmt.Errorf("parser failed: %w", err)
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Content != "" {
			parts = append(parts, doc.Content)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// newParser 按扩展名创建解析器
func newParser(ctx context.Context, fileName string) (einoparser.Parser, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	switch ext {
	case ".pdf":
		return pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	case ".docx":
		return docx.NewDocxParser(ctx, &docx.Config{
			ToSections:      false,
			IncludeComments: false,
			IncludeHeaders:  true,
			IncludeFooters:  false,
			IncludeTables:   true,
		})
	case ".html", ".htm":
		bodySelector := "body"
		return html.NewParser(ctx, &html.Config{Selector: &bodySelector})
	case ".txt", ".md":
		return &textParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

// textParser 纯文本解析器
type textParser struct{}

func (p *textParser) Parse(_ context.Context, reader io.Reader, opts ...einoparser.Option) ([]*schema.Document, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}
	if len(content) == 0 {
		return []*schema.Document{}, nil
	}
	return []*schema.Document{
		{Content: string(content), MetaData: make(map[string]any)},
	}, nil
}

// splitText 分块并挂上会话元数据
func splitText(ctx context.Context, text, conversationID, userID, fileName string) ([]*schema.Document, error) {
	splitter, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   512,
		OverlapSize: 50,
		Separators:  []string{"\n\n", "\n", ". ", "? ", "! ", ", ", " ", ""},
		KeepType:    recursive.KeepTypeNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create splitter: %w", err)
	}

	docs, err := splitter.Transform(ctx, []*schema.Document{
		{Content: text, MetaData: make(map[string]any)},
	})
	if err != nil {
		return nil, fmt.Errorf("splitter failed: %w", err)
	}

	for i, doc := range docs {
		doc.ID = uuid.New().String()
		if doc.MetaData == nil {
			doc.MetaData = make(map[string]any)
		}
		doc.MetaData["conversation_id"] = conversationID
		doc.MetaData["user_id"] = userID
		doc.MetaData["file_name"] = fileName
		doc.MetaData["chunk_index"] = i
	}
	return docs, nil
}

// buildReferenceText 拼参考文本，过长截断
// 截断点回退到符文边界，避免把多字节字符切成非法 UTF-8
func buildReferenceText(parts []string) string {
	text := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if len(text) <= maxReferenceChars {
		return text
	}

	cut := maxReferenceChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n[texto truncado, usa la herramienta retrieval para el resto]"
}
