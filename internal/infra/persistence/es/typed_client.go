package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/config"
	"github.com/LouYuanbo1/profilecrawler/internal/domain/model"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esutil"
)

type typedEsClient[D model.Document] struct {
	client *elasticsearch.TypedClient
	// 只用于读取索引名和mapping, 不存数据
	schemaDoc D
}

func InitTypedEsClient[D model.Document](cfg *config.Config) (TypedEsClient[D], error) {
	typedClient, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Addresses: []string{cfg.Elasticsearch.Address},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			// 本地开发集群通常是自签名证书
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化Elasticsearch客户端失败: %w", err)
	}
	return &typedEsClient[D]{client: typedClient}, nil
}

func (tec *typedEsClient[D]) CreateIndexWithMapping(ctx context.Context) error {
	index := tec.schemaDoc.GetIndex()
	exists, err := tec.client.Indices.Exists(index).Do(ctx)
	if err != nil {
		return fmt.Errorf("检查索引是否存在失败: %w", err)
	}
	if exists {
		slog.DebugContext(ctx, "索引已存在, 跳过创建", "index", index)
		return nil
	}

	if mapping := tec.schemaDoc.GetTypeMapping(); mapping == nil {
		_, err = tec.client.Indices.Create(index).Do(ctx)
	} else {
		_, err = tec.client.Indices.Create(index).Mappings(mapping).Do(ctx)
	}
	if err != nil {
		return fmt.Errorf("创建索引 %s 失败: %w", index, err)
	}
	slog.InfoContext(ctx, "已创建索引", "index", index)
	return nil
}

func (tec *typedEsClient[D]) BulkIndexDocsWithID(ctx context.Context, docs []D) (BulkStats, error) {
	if len(docs) == 0 {
		return BulkStats{}, nil
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         tec.schemaDoc.GetIndex(),
		Client:        tec.client,
		NumWorkers:    2,
		FlushBytes:    5 * 1024 * 1024,
		FlushInterval: 30 * time.Second,
		OnError: func(ctx context.Context, err error) {
			slog.ErrorContext(ctx, "批量写入出错", "error", err)
		},
	})
	if err != nil {
		return BulkStats{}, fmt.Errorf("创建批量写入器失败: %w", err)
	}

	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			slog.WarnContext(ctx, "序列化文档失败", "id", doc.GetID(), "error", err)
			continue
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.GetID(),
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					slog.WarnContext(ctx, "写入文档失败", "id", item.DocumentID, "error", err)
					return
				}
				slog.WarnContext(ctx, "写入文档失败", "id", item.DocumentID, "reason", res.Error.Reason)
			},
		})
		if err != nil {
			slog.WarnContext(ctx, "添加文档到批量写入器失败", "id", doc.GetID(), "error", err)
		}
	}

	// Close 会刷新所有未写入的文档
	if err := bi.Close(ctx); err != nil {
		return BulkStats{}, fmt.Errorf("关闭批量写入器失败: %w", err)
	}
	stats := bi.Stats()
	slog.InfoContext(ctx, "批量写入完成", "index", tec.schemaDoc.GetIndex(), "indexed", stats.NumIndexed, "failed", stats.NumFailed)
	return BulkStats{Indexed: stats.NumIndexed, Failed: stats.NumFailed}, nil
}

func (tec *typedEsClient[D]) CountDocs(ctx context.Context) (int64, error) {
	resp, err := tec.client.Count().Index(tec.schemaDoc.GetIndex()).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("统计文档数量失败: %w", err)
	}
	return resp.Count, nil
}
