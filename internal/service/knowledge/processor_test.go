package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

// fakeIndexer 记录写入的测试索引器
type fakeIndexer struct {
	stored   []*schema.Document
	storeErr error
}

func (f *fakeIndexer) Store(ctx context.Context, docs []*schema.Document) ([]string, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	f.stored = append(f.stored, docs...)
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	return ids, nil
}

func (f *fakeIndexer) EnsureIndex(ctx context.Context) error { return nil }

func TestIngestTextFile(t *testing.T) {
	indexer := &fakeIndexer{}
	svc := NewService(indexer)

	result, err := svc.Ingest(context.Background(), "conv-1", "user-1", []Attachment{
		{FileName: "factura.txt", Data: []byte("Factura 123\nTotal: $250.000")},
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if len(result.Stored) != 1 || result.Stored[0] != "factura.txt" {
		t.Errorf("unexpected stored list: %v", result.Stored)
	}
	if len(result.Failed) != 0 {
		t.Errorf("unexpected failures: %v", result.Failed)
	}
	if !strings.Contains(result.ReferenceText, "Total: $250.000") {
		t.Errorf("expected extracted text in reference, got %q", result.ReferenceText)
	}
	if result.ChunkCount == 0 || len(indexer.stored) != result.ChunkCount {
		t.Errorf("expected indexed chunks, got count=%d stored=%d", result.ChunkCount, len(indexer.stored))
	}

	chunk := indexer.stored[0]
	if chunk.MetaData["conversation_id"] != "conv-1" || chunk.MetaData["file_name"] != "factura.txt" {
		t.Errorf("unexpected chunk metadata: %+v", chunk.MetaData)
	}
	if chunk.ID == "" {
		t.Error("expected generated chunk id")
	}
}

func TestIngestPartialFailure(t *testing.T) {
	svc := NewService(&fakeIndexer{})

	result, err := svc.Ingest(context.Background(), "conv-1", "user-1", []Attachment{
		{FileName: "notas.md", Data: []byte("# Notas\ncontenido")},
		{FileName: "imagen.png", Data: []byte{0x89, 0x50}},
		{FileName: "vacio.txt", Data: []byte("   ")},
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if len(result.Stored) != 1 || result.Stored[0] != "notas.md" {
		t.Errorf("unexpected stored list: %v", result.Stored)
	}
	if len(result.Failed) != 2 {
		t.Errorf("expected 2 failed files, got %v", result.Failed)
	}
}

func TestIngestIndexerFailure(t *testing.T) {
	svc := NewService(&fakeIndexer{storeErr: errors.New("es down")})

	result, err := svc.Ingest(context.Background(), "conv-1", "user-1", []Attachment{
		{FileName: "doc.txt", Data: []byte("contenido")},
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(result.Failed) != 1 {
		t.Errorf("expected index failure to mark file failed, got %+v", result)
	}
}

func TestIngestValidation(t *testing.T) {
	svc := NewService(&fakeIndexer{})

	if _, err := svc.Ingest(context.Background(), "", "user-1", []Attachment{{FileName: "a.txt"}}); err == nil {
		t.Error("expected missing conversation_id to fail")
	}
	if _, err := svc.Ingest(context.Background(), "conv-1", "user-1", nil); err == nil {
		t.Error("expected empty file list to fail")
	}
}

func TestBuildReferenceTextTruncation(t *testing.T) {
	long := strings.Repeat("a", maxReferenceChars+100)
	ref := buildReferenceText([]string{long})
	if len(ref) <= maxReferenceChars {
		t.Error("expected truncation marker appended")
	}
	if !strings.Contains(ref, "retrieval") {
		t.Error("expected truncation note to mention retrieval")
	}
}

func TestBuildReferenceTextRuneBoundary(t *testing.T) {
	// "ñ" 占两个字节，正好骑在截断点上
	straddling := strings.Repeat("a", maxReferenceChars-1) + "ñ" + strings.Repeat("b", 50)
	ref := buildReferenceText([]string{straddling})

	if !utf8.ValidString(ref) {
		t.Error("truncated reference text must stay valid UTF-8")
	}
	if strings.Contains(ref, "ñ") {
		t.Error("expected the straddling rune to be dropped, not split")
	}
	if !strings.Contains(ref, "retrieval") {
		t.Error("expected truncation note appended")
	}
}
