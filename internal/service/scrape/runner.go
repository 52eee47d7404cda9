package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/config"
	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/LouYuanbo1/profilecrawler/internal/domain/model"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/export"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/persistence/es"
	"github.com/LouYuanbo1/profilecrawler/internal/service/auth"
	"github.com/LouYuanbo1/profilecrawler/internal/service/interceptor"
	"github.com/LouYuanbo1/profilecrawler/internal/service/pacing"
	"github.com/LouYuanbo1/profilecrawler/internal/service/profile"
	"github.com/LouYuanbo1/profilecrawler/internal/service/reconciler"
	"github.com/LouYuanbo1/profilecrawler/internal/service/search"
	"github.com/LouYuanbo1/profilecrawler/internal/service/sink"
	"github.com/LouYuanbo1/profilecrawler/param"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// 响应通道缓冲, 监听协程处理慢时浏览器事件不阻塞
const responseBuffer = 256

type Indexer = sink.IndexService[*entity.Record, *model.ProfileDoc]

// Summary 一次运行的结果
type Summary struct {
	RunID     string
	Hits      int
	Records   []entity.Record
	WithEmail int
	Files     []string
	Pacing    pacing.Stats
	Indexed   es.BulkStats
}

type Runner interface {
	// Run 执行一次完整的抓取; 只有登录失败和搜索无结果会返回错误
	Run(ctx context.Context, opts param.RunOptions) (*Summary, error)
}

type Options struct {
	Auth    auth.Options
	Search  search.Options
	Profile profile.Options
	Pacing  pacing.Options
	// 测试中注入等待函数和随机源
	PacerOptions []pacing.Option
	Now          func() time.Time
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Auth:    auth.OptionsFromConfig(cfg),
		Search:  search.OptionsFromConfig(cfg),
		Profile: profile.OptionsFromConfig(cfg),
		Pacing:  pacing.OptionsFromConfig(cfg),
		Now:     time.Now,
	}
}

type runner struct {
	crawler chrome.ChromeCrawler
	// 为nil时不写入索引
	indexer Indexer
	opts    Options
}

func InitRunner(crawler chrome.ChromeCrawler, indexer Indexer, opts Options) Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &runner{crawler: crawler, indexer: indexer, opts: opts}
}

func (r *runner) Run(ctx context.Context, opts param.RunOptions) (*Summary, error) {
	if !opts.IsValid() {
		return nil, fmt.Errorf("无效的运行参数: %+v", opts)
	}
	runID := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)

	store := reconciler.NewStore()
	respCh := make(chan *types.NetworkResponse, responseBuffer)
	r.crawler.SetNetworkListener(interceptor.VoyagerNamespace, respCh)

	var g errgroup.Group
	g.Go(func() error {
		interceptor.Listen(ctx, respCh, store)
		return nil
	})
	defer g.Wait()
	defer cancel()

	page, err := r.crawler.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	defer page.Close()

	slog.InfoContext(ctx, "开始运行", "run_id", runID, "keywords", opts.Query.Keywords, "location", opts.Query.Location)
	if err := auth.InitAuthenticator(r.crawler, page, r.opts.Auth).EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	pacer := pacing.InitPacer(r.opts.Pacing, r.opts.PacerOptions...)
	hits, err := search.InitDriver(page, store, pacer, r.opts.Search).Search(ctx, opts.Query)
	if err != nil {
		return nil, err
	}

	qc := entity.QueryContext{
		Keywords: opts.Query.Keywords,
		Location: opts.Query.Location,
	}
	var records []entity.Record
	if opts.FetchDetails {
		records = profile.InitDriver(page, store, pacer, r.opts.Profile).CompleteAll(ctx, hits, opts.Query.MaxResults, qc)
	} else {
		records = make([]entity.Record, 0, len(hits))
		for _, hit := range hits {
			records = append(records, store.Finalize(hit.PublicID, &hit, qc))
		}
	}
	// 所有记录使用同一个完成时间, 在主页补全结束后取
	completedAt := r.opts.Now()
	for i := range records {
		records[i].ScrapedAt = completedAt
	}

	summary := &Summary{
		RunID:   runID,
		Hits:    len(hits),
		Records: records,
		Pacing:  pacer.Stats(),
	}
	for _, rec := range records {
		if rec.Email != "" {
			summary.WithEmail++
		}
	}

	// 导出和索引不受取消影响, 已抓取的数据尽量保存
	saveCtx := context.WithoutCancel(ctx)
	files, err := export.Export(saveCtx, records, export.Options{
		OutputDir: opts.OutputDir,
		Format:    opts.Format,
		Keywords:  opts.Query.Keywords,
		Location:  opts.Query.Location,
		Now:       completedAt,
	})
	if err != nil {
		slog.ErrorContext(ctx, "导出失败", "run_id", runID, "error", err)
	}
	summary.Files = files

	if opts.Index && r.indexer != nil {
		ptrs := make([]*entity.Record, len(records))
		for i := range records {
			ptrs[i] = &records[i]
		}
		stats, err := r.indexer.IndexRecords(saveCtx, runID, ptrs)
		if err != nil {
			slog.ErrorContext(ctx, "写入索引失败", "run_id", runID, "error", err)
		}
		summary.Indexed = stats
	}

	slog.InfoContext(ctx, "运行结束", "run_id", runID, "records", len(records), "with_email", summary.WithEmail, "files", len(files))
	return summary, nil
}
