package embedding

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/LouYuanbo1/profilecrawler/internal/config"
	"github.com/cloudwego/eino-ext/components/embedding/ollama"
)

type ollamaEmbedder struct {
	model     *ollama.Embedder
	batchSize int
}

// InitEmbedder 连接本地ollama服务, 地址由 embedder.host 和 embedder.port 组成
func InitEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	baseURL := strings.TrimSuffix(cfg.Embedder.Host, "/")
	if cfg.Embedder.Port > 0 {
		baseURL += ":" + strconv.Itoa(cfg.Embedder.Port)
	}
	model, err := ollama.NewEmbedder(ctx, &ollama.EmbeddingConfig{
		Model:   cfg.Embedder.Model,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化嵌入模型失败: %w", err)
	}
	batchSize := cfg.Embedder.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	return &ollamaEmbedder{model: model, batchSize: batchSize}, nil
}

func (e *ollamaEmbedder) BatchSize() int {
	return e.batchSize
}

// Embed 返回的向量顺序与输入一致
func (e *ollamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.model.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("生成向量失败: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("向量数量 %d 与文本数量 %d 不一致", len(vectors), len(texts))
	}
	// 模型返回float64, 索引使用float32
	out := make([][]float32, 0, len(vectors))
	for _, v := range vectors {
		f32 := make([]float32, len(v))
		for i, f := range v {
			f32[i] = float32(f)
		}
		out = append(out, f32)
	}
	return out, nil
}
