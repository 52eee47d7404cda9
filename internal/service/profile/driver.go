package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/config"
	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/profilecrawler/internal/service/markup"
	"github.com/LouYuanbo1/profilecrawler/internal/service/pacing"
	"github.com/LouYuanbo1/profilecrawler/internal/service/reconciler"
)

var ErrNavigation = errors.New("打开主页失败")

const (
	// 连续失败达到该值时停止, 很可能已被限制访问
	FailureThreshold = 5
	MaxNavRetries    = 2

	navRetryBackoff   = 3 * time.Second
	readyTimeout      = 10 * time.Second
	contactCloseDelay = 500 * time.Millisecond
)

// 被重定向到这些页面说明访问已被拦截
var blockedPaths = []string{"/authwall", "/checkpoint", "/uas/login", "/login"}

type Driver interface {
	// CompleteAll 按发现顺序访问主页并生成记录, 每个处理过的结果都有且只有一条记录
	// 主页打开失败时记录只来自搜索结果
	CompleteAll(ctx context.Context, hits []entity.SearchHit, limit int, qc entity.QueryContext) []entity.Record
}

type Options struct {
	Barrier       bool
	Settle        time.Duration
	ContactSettle time.Duration
	Sleep         pacing.Sleeper
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Barrier:       cfg.Scraper.CaptureMode == "barrier",
		Settle:        time.Duration(cfg.Scraper.SettleMillis) * time.Millisecond,
		ContactSettle: time.Duration(cfg.Scraper.ContactSettleMillis) * time.Millisecond,
		Sleep:         pacing.ContextSleep,
	}
}

type profileDriver struct {
	page  chrome.Page
	store *reconciler.Store
	pacer pacing.Pacer
	opts  Options
}

func InitDriver(page chrome.Page, store *reconciler.Store, pacer pacing.Pacer, opts Options) Driver {
	if opts.Sleep == nil {
		opts.Sleep = pacing.ContextSleep
	}
	return &profileDriver{page: page, store: store, pacer: pacer, opts: opts}
}

func (pd *profileDriver) CompleteAll(ctx context.Context, hits []entity.SearchHit, limit int, qc entity.QueryContext) []entity.Record {
	toVisit := hits[:max(0, min(limit, len(hits)))]
	records := make([]entity.Record, 0, len(toVisit))
	failures := 0

	for i, hit := range toVisit {
		if err := ctx.Err(); err != nil {
			slog.WarnContext(ctx, "任务已取消, 停止访问主页", "done", i, "error", err)
			break
		}
		if pd.pacer.IsSessionLimitReached() {
			slog.WarnContext(ctx, "达到会话访问上限, 停止访问主页", "requests", pd.pacer.Stats().Requests)
			break
		}
		if failures >= FailureThreshold {
			slog.ErrorContext(ctx, "连续失败次数过多, 可能已被限制访问, 停止访问主页", "failures", failures)
			break
		}

		rec, err := pd.completeOne(ctx, hit, qc)
		records = append(records, rec)
		if err != nil {
			slog.WarnContext(ctx, "主页提取失败", "public_id", hit.PublicID, "error", err)
			pd.pacer.ReportError()
			failures++
		} else {
			pd.pacer.ReportSuccess()
			failures = 0
		}
		slog.InfoContext(ctx, "主页处理完成", "public_id", hit.PublicID, "progress", fmt.Sprintf("%d/%d", i+1, len(toVisit)), "source", rec.Source)

		if err := pd.pacer.WaitBeforeItem(ctx); err != nil {
			break
		}
	}
	return records
}

func (pd *profileDriver) completeOne(ctx context.Context, hit entity.SearchHit, qc entity.QueryContext) (entity.Record, error) {
	url := hit.ProfileURL
	if url == "" {
		url = entity.ProfileURL(hit.PublicID)
	}
	if err := pd.navigate(ctx, url); err != nil {
		// 页面上可能还是上一个主页, 只用搜索结果
		return entity.RecordFromHit(hit, qc), err
	}

	if pd.opts.Barrier {
		if !pd.store.WaitForDetail(ctx, hit.PublicID, pd.opts.Settle) {
			slog.DebugContext(ctx, "等待结构化数据超时", "public_id", hit.PublicID)
		}
	} else if err := pd.opts.Sleep(ctx, pd.opts.Settle); err != nil {
		return pd.store.Finalize(hit.PublicID, &hit, qc), err
	}

	contactHTML := pd.openContactInfo(ctx)

	rec := pd.store.Finalize(hit.PublicID, &hit, qc)
	pd.fillFromMarkup(ctx, &rec, contactHTML)
	rec.Source = entity.SourceProfile
	return rec, nil
}

func (pd *profileDriver) navigate(ctx context.Context, url string) error {
	var lastErr error
	for attempt := 0; attempt <= MaxNavRetries; attempt++ {
		if attempt > 0 {
			slog.DebugContext(ctx, "重试打开主页", "url", url, "attempt", attempt, "error", lastErr)
			if err := pd.opts.Sleep(ctx, navRetryBackoff); err != nil {
				return err
			}
		}
		lastErr = pd.load(ctx, url)
		if lastErr == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if errors.Is(lastErr, chrome.ErrRateLimited) {
			pd.pacer.ReportRateLimited(0)
		}
	}
	return fmt.Errorf("%w: %s 重试%d次后仍失败: %v", ErrNavigation, url, MaxNavRetries, lastErr)
}

func (pd *profileDriver) load(ctx context.Context, url string) error {
	if err := pd.page.Navigate(ctx, url); err != nil {
		return err
	}
	current, err := pd.page.URL(ctx)
	if err != nil {
		return err
	}
	if isBlocked(current) {
		return fmt.Errorf("%w: 被重定向到 %s", chrome.ErrRateLimited, current)
	}
	return pd.page.WaitVisible(ctx, markup.ProfileReady, readyTimeout)
}

func isBlocked(url string) bool {
	for _, p := range blockedPaths {
		if strings.Contains(url, p) {
			return true
		}
	}
	return false
}

// openContactInfo 打开联系方式浮层以触发接口请求, 关闭前保存页面快照
func (pd *profileDriver) openContactInfo(ctx context.Context) string {
	has, err := pd.page.Has(ctx, markup.ContactInfoLink)
	if err != nil || !has {
		return ""
	}
	if err := pd.page.Click(ctx, markup.ContactInfoLink); err != nil {
		slog.DebugContext(ctx, "打开联系方式失败", "error", err)
		return ""
	}
	if err := pd.opts.Sleep(ctx, pd.opts.ContactSettle); err != nil {
		return ""
	}

	snapshot, err := pd.page.HTML(ctx)
	if err != nil {
		slog.DebugContext(ctx, "保存联系方式快照失败", "error", err)
	}

	if has, _ := pd.page.Has(ctx, markup.ContactClose); has {
		if err := pd.page.Click(ctx, markup.ContactClose); err != nil {
			slog.DebugContext(ctx, "关闭联系方式失败", "error", err)
		}
		_ = pd.opts.Sleep(ctx, contactCloseDelay)
	}
	return snapshot
}

func fill(dst *string, extract func() string) {
	if *dst == "" {
		*dst = extract()
	}
}

// fillFromMarkup 只填充仍为空的字段
func (pd *profileDriver) fillFromMarkup(ctx context.Context, rec *entity.Record, contactHTML string) {
	if html, err := pd.page.HTML(ctx); err != nil {
		slog.DebugContext(ctx, "读取主页失败", "public_id", rec.PublicID, "error", err)
	} else if doc, err := markup.Parse(html); err != nil {
		slog.DebugContext(ctx, "解析主页失败", "public_id", rec.PublicID, "error", err)
	} else {
		fill(&rec.FullName, doc.Name)
		fill(&rec.Headline, doc.Headline)
		fill(&rec.Location, doc.Location)
		fill(&rec.About, doc.About)
		fill(&rec.Connections, doc.Connections)
		if len(rec.Experiences) == 0 {
			rec.Experiences = doc.Experiences()
		}
		if len(rec.Education) == 0 {
			rec.Education = doc.Education()
		}
		if len(rec.Skills) == 0 {
			rec.Skills = doc.Skills()
		}
		rec.ApplyCurrentRole()
	}

	if contactHTML != "" {
		if doc, err := markup.Parse(contactHTML); err != nil {
			slog.DebugContext(ctx, "解析联系方式失败", "public_id", rec.PublicID, "error", err)
		} else {
			fill(&rec.Email, doc.Email)
			fill(&rec.Phone, doc.Phone)
			fill(&rec.Website, doc.Website)
		}
	}

	fill(&rec.FullName, func() string { return markup.GuessNameFromID(rec.PublicID) })
}
