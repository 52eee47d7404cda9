package es

import (
	"context"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/model"
)

// BulkStats 批量写入结果
type BulkStats struct {
	Indexed uint64
	Failed  uint64
}

// 所有的文档结构体要实现 model.Document
type TypedEsClient[D model.Document] interface {
	CreateIndexWithMapping(ctx context.Context) error
	BulkIndexDocsWithID(ctx context.Context, docs []D) (BulkStats, error)
	CountDocs(ctx context.Context) (int64, error)
}
