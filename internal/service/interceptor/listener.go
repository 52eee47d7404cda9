package interceptor

import (
	"context"
	"log/slog"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/types"
)

// Ingester 接收解析出的片段
type Ingester interface {
	Ingest(frag entity.Fragment)
}

// Listen 消费网络响应通道, 分类后写入 Ingester, 直到通道关闭或ctx取消
func Listen(ctx context.Context, respCh <-chan *types.NetworkResponse, sink Ingester) {
	for {
		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "响应监听退出", "reason", ctx.Err())
			return
		case resp, ok := <-respCh:
			if !ok {
				return
			}
			frags := Classify(resp)
			for _, frag := range frags {
				sink.Ingest(frag)
			}
			if len(frags) > 0 {
				slog.DebugContext(ctx, "捕获结构化数据", "url", resp.Url, "fragments", len(frags))
			}
		}
	}
}
