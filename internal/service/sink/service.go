package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/LouYuanbo1/profilecrawler/internal/domain/model"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/embedding"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/persistence/es"
)

const embedTimeout = 60 * time.Second

// IndexService 把最终记录写入搜索索引, 可选地先生成向量
type IndexService[C entity.Crawlable[D], D model.Document] interface {
	IndexRecords(ctx context.Context, runID string, records []C) (es.BulkStats, error)
}

type indexService[C entity.Crawlable[D], D model.Document] struct {
	typedEsClient es.TypedEsClient[D]
	// 为nil时不生成向量
	embedder embedding.Embedder
}

func InitIndexService[C entity.Crawlable[D], D model.Document](
	typedEsClient es.TypedEsClient[D],
	embedder embedding.Embedder,
) IndexService[C, D] {
	return &indexService[C, D]{typedEsClient: typedEsClient, embedder: embedder}
}

func (is *indexService[C, D]) IndexRecords(ctx context.Context, runID string, records []C) (es.BulkStats, error) {
	if len(records) == 0 {
		return es.BulkStats{}, nil
	}
	if err := is.typedEsClient.CreateIndexWithMapping(ctx); err != nil {
		return es.BulkStats{}, err
	}

	docs := make([]D, 0, len(records))
	for _, r := range records {
		doc := r.ToDocument()
		doc.SetRunID(runID)
		docs = append(docs, doc)
	}
	if is.embedder != nil {
		is.embedDocs(ctx, docs)
	}

	stats, err := is.typedEsClient.BulkIndexDocsWithID(ctx, docs)
	if err != nil {
		return stats, fmt.Errorf("写入索引失败: %w", err)
	}
	if total, err := is.typedEsClient.CountDocs(ctx); err != nil {
		slog.WarnContext(ctx, "统计索引文档数失败", "error", err)
	} else {
		slog.InfoContext(ctx, "索引写入完成", "run_id", runID, "indexed", stats.Indexed, "failed", stats.Failed, "total_docs", total)
	}
	return stats, nil
}

// embedDocs 按批生成向量, 失败的批次不带向量写入
func (is *indexService[C, D]) embedDocs(ctx context.Context, docs []D) {
	reqCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	batchSize := max(is.embedder.BatchSize(), 1)
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))
		texts := make([]string, 0, end-i)
		for _, doc := range docs[i:end] {
			texts = append(texts, doc.GetEmbeddingString())
		}
		vectors, err := is.embedder.Embed(reqCtx, texts)
		if err != nil {
			slog.WarnContext(ctx, "生成向量失败", "from", i, "to", end, "error", err)
			continue
		}
		for j := range min(len(vectors), end-i) {
			docs[i+j].SetEmbedding(vectors[j])
		}
		slog.DebugContext(ctx, "已生成向量", "from", i, "to", end)
	}
}
