package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/config"
	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/profilecrawler/internal/service/markup"
	"github.com/LouYuanbo1/profilecrawler/internal/service/pacing"
	"github.com/LouYuanbo1/profilecrawler/internal/service/reconciler"
	"github.com/LouYuanbo1/profilecrawler/param"
)

var ErrNoResults = errors.New("没有找到搜索结果")

const PeopleSearchURL = "https://www.linkedin.com/search/results/people/"

// 过滤栏每一步操作之间的等待
const (
	filterStepDelay  = time.Second
	filterTypeDelay  = 2 * time.Second
	filterApplyDelay = 3 * time.Second
	filterWait       = 5 * time.Second
	pageLoadDelay    = 3 * time.Second
)

type Driver interface {
	// Search 翻页收集搜索结果, 返回按发现顺序排列的前 MaxResults 个
	Search(ctx context.Context, q param.SearchQuery) ([]entity.SearchHit, error)
}

type Options struct {
	ResultsPerPage int
	MaxSearchPages int
	// true: 等待结构化数据到达, 最多等待 Settle; false: 固定等待 Settle
	Barrier bool
	Settle  time.Duration
	Sleep   pacing.Sleeper
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ResultsPerPage: cfg.Scraper.ResultsPerPage,
		MaxSearchPages: cfg.Scraper.MaxSearchPages,
		Barrier:        cfg.Scraper.CaptureMode == "barrier",
		Settle:         time.Duration(cfg.Scraper.SettleMillis) * time.Millisecond,
		Sleep:          pacing.ContextSleep,
	}
}

type searchDriver struct {
	page  chrome.Page
	store *reconciler.Store
	pacer pacing.Pacer
	opts  Options
}

func InitDriver(page chrome.Page, store *reconciler.Store, pacer pacing.Pacer, opts Options) Driver {
	if opts.Sleep == nil {
		opts.Sleep = pacing.ContextSleep
	}
	if opts.ResultsPerPage <= 0 {
		opts.ResultsPerPage = 10
	}
	return &searchDriver{page: page, store: store, pacer: pacer, opts: opts}
}

// BuildURL 构造人员搜索地址, 第一页不带 page 参数
func BuildURL(keywords string, page int) string {
	q := url.Values{}
	q.Set("keywords", keywords)
	q.Set("origin", "SWITCH_SEARCH_VERTICAL")
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return PeopleSearchURL + "?" + q.Encode()
}

// NextPageURL 改写当前地址中的 page 参数
func NextPageURL(current string, page int) (string, error) {
	u, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("解析地址失败: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// PageCount 达到 target 个结果需要的页数, 不超过 pageCap
func PageCount(target, perPage, pageCap int) int {
	n := (target + perPage - 1) / perPage
	if pageCap > 0 {
		n = min(n, pageCap)
	}
	return max(n, 1)
}

func (sd *searchDriver) Search(ctx context.Context, q param.SearchQuery) ([]entity.SearchHit, error) {
	if !q.IsValid() {
		return nil, fmt.Errorf("无效的搜索条件: %+v", q)
	}

	slog.InfoContext(ctx, "开始搜索", "keywords", q.Keywords, "location", q.Location, "industry", q.Industry, "max", q.MaxResults)
	if err := sd.page.Navigate(ctx, BuildURL(q.Keywords, 1)); err != nil {
		return nil, fmt.Errorf("%w: 打开搜索页失败: %v", ErrNoResults, err)
	}
	if err := sd.opts.Sleep(ctx, pageLoadDelay); err != nil {
		return nil, err
	}

	if q.Location != "" {
		sd.applyFilter(ctx, "location", markup.FilterLocationsText, markup.FilterLocationInput, q.Location)
	}
	if q.Industry != "" {
		sd.applyFilter(ctx, "industry", markup.FilterIndustryText, markup.FilterIndustryInput, q.Industry)
	}

	sd.paginate(ctx, q.MaxResults)

	hits := make([]entity.SearchHit, 0, q.MaxResults)
	for hit := range sd.store.SearchHits() {
		if len(hits) == q.MaxResults {
			break
		}
		hits = append(hits, hit)
	}
	if len(hits) == 0 {
		return nil, ErrNoResults
	}
	slog.InfoContext(ctx, "搜索完成", "hits", len(hits))
	return hits, nil
}

func (sd *searchDriver) paginate(ctx context.Context, maxResults int) {
	maxPages := PageCount(maxResults, sd.opts.ResultsPerPage, sd.opts.MaxSearchPages)

	for current := 1; current <= maxPages; current++ {
		if err := sd.page.ScrollToBottom(ctx); err != nil {
			slog.DebugContext(ctx, "滚动失败", "page", current, "error", err)
		}
		if err := sd.pacer.WaitScroll(ctx); err != nil {
			return
		}

		expected := min(current*sd.opts.ResultsPerPage, maxResults)
		if sd.opts.Barrier {
			sd.store.WaitForSearchHits(ctx, expected, sd.opts.Settle)
		} else if err := sd.opts.Sleep(ctx, sd.opts.Settle); err != nil {
			return
		}

		if sd.store.SearchHitCount() < expected {
			sd.collectFromMarkup(ctx, current)
		}

		total := sd.store.SearchHitCount()
		slog.InfoContext(ctx, "搜索页完成", "page", current, "max_pages", maxPages, "collected", total)
		if total >= maxResults || current == maxPages {
			return
		}

		if !sd.nextPage(ctx, current+1) {
			return
		}
		if err := sd.pacer.WaitBetweenPages(ctx); err != nil {
			return
		}
	}
}

// collectFromMarkup 结构化数据不足时解析页面, 新结果以同样的方式写入存储
func (sd *searchDriver) collectFromMarkup(ctx context.Context, current int) {
	html, err := sd.page.HTML(ctx)
	if err != nil {
		slog.DebugContext(ctx, "读取页面失败", "page", current, "error", err)
		return
	}
	doc, err := markup.Parse(html)
	if err != nil {
		slog.DebugContext(ctx, "解析搜索页失败", "page", current, "error", err)
		return
	}
	before := sd.store.SearchHitCount()
	for _, hit := range doc.SearchHits() {
		sd.store.Ingest(&hit)
	}
	if added := sd.store.SearchHitCount() - before; added > 0 {
		slog.InfoContext(ctx, "从页面补充搜索结果", "page", current, "added", added)
	}
}

func (sd *searchDriver) nextPage(ctx context.Context, next int) bool {
	has, err := sd.page.Has(ctx, markup.PaginationNext)
	if err != nil {
		slog.WarnContext(ctx, "查找下一页按钮失败", "page", next, "error", err)
		return false
	}
	if has {
		if _, disabled, err := sd.page.Attribute(ctx, markup.PaginationNext, "disabled"); err != nil || disabled {
			slog.InfoContext(ctx, "没有更多搜索页", "page", next)
			return false
		}
		if err := sd.page.Click(ctx, markup.PaginationNext); err != nil {
			slog.WarnContext(ctx, "点击下一页失败", "page", next, "error", err)
			return false
		}
		return sd.opts.Sleep(ctx, pageLoadDelay) == nil
	}

	current, err := sd.page.URL(ctx)
	if err != nil {
		slog.WarnContext(ctx, "读取当前地址失败", "page", next, "error", err)
		return false
	}
	nextURL, err := NextPageURL(current, next)
	if err != nil {
		slog.WarnContext(ctx, "构造下一页地址失败", "page", next, "error", err)
		return false
	}
	if err := sd.page.Navigate(ctx, nextURL); err != nil {
		slog.WarnContext(ctx, "打开下一页失败", "page", next, "error", err)
		return false
	}
	return sd.opts.Sleep(ctx, pageLoadDelay) == nil
}

// applyFilter 通过过滤栏设置条件, 失败只记录日志
func (sd *searchDriver) applyFilter(ctx context.Context, name, buttonText, inputSelector, value string) {
	err := sd.fillFilter(ctx, buttonText, inputSelector, value)
	if err != nil {
		slog.WarnContext(ctx, "无法应用过滤条件", "filter", name, "value", value, "error", err)
		return
	}
	slog.InfoContext(ctx, "已应用过滤条件", "filter", name, "value", value)
}

func (sd *searchDriver) fillFilter(ctx context.Context, buttonText, inputSelector, value string) error {
	if err := sd.page.ClickText(ctx, markup.FilterButton, buttonText); err != nil {
		return err
	}
	if err := sd.opts.Sleep(ctx, filterStepDelay); err != nil {
		return err
	}
	if err := sd.page.WaitVisible(ctx, inputSelector, filterWait); err != nil {
		return err
	}
	if err := sd.page.Input(ctx, inputSelector, value); err != nil {
		return err
	}
	if err := sd.opts.Sleep(ctx, filterTypeDelay); err != nil {
		return err
	}
	if err := sd.page.WaitVisible(ctx, markup.FilterResultOption, filterWait); err != nil {
		return err
	}
	if err := sd.page.Click(ctx, markup.FilterResultOption); err != nil {
		return err
	}
	if err := sd.opts.Sleep(ctx, filterStepDelay); err != nil {
		return err
	}

	if has, _ := sd.page.Has(ctx, markup.FilterApply); has {
		if err := sd.page.Click(ctx, markup.FilterApply); err != nil {
			return err
		}
	} else if err := sd.page.ClickText(ctx, markup.FilterButton, buttonText); err != nil {
		return err
	}
	return sd.opts.Sleep(ctx, filterApplyDelay)
}
