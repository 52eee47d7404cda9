package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/chrome/chrometest"
	"github.com/LouYuanbo1/profilecrawler/internal/service/markup"
	"github.com/LouYuanbo1/profilecrawler/internal/service/pacing"
	"github.com/LouYuanbo1/profilecrawler/internal/service/reconciler"
	"github.com/LouYuanbo1/profilecrawler/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

func testPacer() pacing.Pacer {
	return pacing.InitPacer(pacing.Options{MaxRequests: 100}, pacing.WithSleeper(noSleep))
}

func testOptions(barrier bool) Options {
	return Options{
		ResultsPerPage: 10,
		MaxSearchPages: 100,
		Barrier:        barrier,
		Settle:         20 * time.Millisecond,
		Sleep:          noSleep,
	}
}

func pageOf(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil {
		return 1
	}
	return n
}

// structuredPages 导航到指定页时写入 n 个结构化搜索结果
func structuredPages(store *reconciler.Store, perPage map[int]int) func(*chrometest.Page, string) error {
	return func(_ *chrometest.Page, raw string) error {
		page := pageOf(raw)
		for i := range perPage[page] {
			id := fmt.Sprintf("p%d-%d", page, i)
			store.Ingest(&entity.SearchHit{PublicID: id, FullName: id, ProfileURL: entity.ProfileURL(id)})
		}
		return nil
	}
}

func TestSearchAdvancesPastEmptyPage(t *testing.T) {
	store := reconciler.NewStore()
	page := chrometest.New()
	page.OnNavigate = structuredPages(store, map[int]int{1: 10, 3: 10})

	d := InitDriver(page, store, testPacer(), testOptions(true))
	hits, err := d.Search(context.Background(), param.SearchQuery{Keywords: "data engineer", MaxResults: 25})
	require.NoError(t, err)

	assert.Len(t, hits, 20)
	require.Len(t, page.Navigations, 3)
	assert.Equal(t, 2, pageOf(page.Navigations[1]))
	assert.Equal(t, 3, pageOf(page.Navigations[2]))
	assert.Equal(t, "p1-0", hits[0].PublicID)
	assert.Equal(t, "p3-9", hits[19].PublicID)
}

func TestSearchStopsAtTarget(t *testing.T) {
	store := reconciler.NewStore()
	page := chrometest.New()
	page.OnNavigate = structuredPages(store, map[int]int{1: 10, 2: 10, 3: 10})

	d := InitDriver(page, store, testPacer(), testOptions(true))
	hits, err := d.Search(context.Background(), param.SearchQuery{Keywords: "go", MaxResults: 15})
	require.NoError(t, err)

	assert.Len(t, hits, 15)
	assert.Len(t, page.Navigations, 2)
}

func TestSearchPageCap(t *testing.T) {
	store := reconciler.NewStore()
	page := chrometest.New()
	page.OnNavigate = structuredPages(store, map[int]int{1: 10, 2: 10, 3: 10})

	opts := testOptions(false)
	opts.MaxSearchPages = 2
	d := InitDriver(page, store, testPacer(), opts)
	hits, err := d.Search(context.Background(), param.SearchQuery{Keywords: "go", MaxResults: 50})
	require.NoError(t, err)

	assert.Len(t, hits, 20)
	assert.Len(t, page.Navigations, 2)
}

const resultsMarkup = `<ul>
<li class="reusable-search__result-container">
  <span class="entity-result__title-text"><a href="/in/jane-doe/"><span aria-hidden="true">Jane Doe</span></a></span>
  <div class="entity-result__primary-subtitle">Data Engineer</div>
</li>
<li class="reusable-search__result-container">
  <span class="entity-result__title-text"><a href="/in/p1-0/"><span aria-hidden="true">Duplicate</span></a></span>
</li>
</ul>`

func TestSearchFallsBackToMarkup(t *testing.T) {
	store := reconciler.NewStore()
	page := chrometest.New()
	page.OnNavigate = func(p *chrometest.Page, raw string) error {
		store.Ingest(&entity.SearchHit{PublicID: "p1-0", FullName: "From API"})
		p.Markup = resultsMarkup
		return nil
	}

	d := InitDriver(page, store, testPacer(), testOptions(false))
	hits, err := d.Search(context.Background(), param.SearchQuery{Keywords: "go", MaxResults: 10})
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "From API", hits[0].FullName)
	assert.Equal(t, "jane-doe", hits[1].PublicID)
	assert.Equal(t, "Data Engineer", hits[1].Headline)
	assert.Equal(t, 2, store.SearchHitCount())
}

func TestSearchNextButton(t *testing.T) {
	store := reconciler.NewStore()
	page := chrometest.New()
	page.Set(markup.PaginationNext, true)
	page.OnNavigate = structuredPages(store, map[int]int{1: 10})
	clicks := 0
	page.OnClick = func(p *chrometest.Page, selector string) error {
		clicks++
		for i := range 10 {
			store.Ingest(&entity.SearchHit{PublicID: fmt.Sprintf("click%d-%d", clicks, i)})
		}
		// 第二页之后按钮被禁用
		p.Attributes[markup.PaginationNext] = map[string]string{"disabled": ""}
		return nil
	}

	d := InitDriver(page, store, testPacer(), testOptions(true))
	hits, err := d.Search(context.Background(), param.SearchQuery{Keywords: "go", MaxResults: 40})
	require.NoError(t, err)

	assert.Len(t, hits, 20)
	assert.Equal(t, 1, clicks)
	assert.Len(t, page.Navigations, 1)
}

func TestSearchNoResults(t *testing.T) {
	store := reconciler.NewStore()
	page := chrometest.New()

	d := InitDriver(page, store, testPacer(), testOptions(false))
	_, err := d.Search(context.Background(), param.SearchQuery{Keywords: "nobody", MaxResults: 10})
	assert.ErrorIs(t, err, ErrNoResults)

	page.OnNavigate = func(*chrometest.Page, string) error { return fmt.Errorf("net::ERR_TIMED_OUT") }
	_, err = d.Search(context.Background(), param.SearchQuery{Keywords: "nobody", MaxResults: 10})
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestSearchAppliesFilters(t *testing.T) {
	store := reconciler.NewStore()
	page := chrometest.New()
	page.OnNavigate = structuredPages(store, map[int]int{1: 5})
	page.Set(markup.FilterLocationInput, true)
	page.Set(markup.FilterResultOption, true)
	page.OnClickText = func(*chrometest.Page, string, string) error { return nil }

	d := InitDriver(page, store, testPacer(), testOptions(true))
	hits, err := d.Search(context.Background(), param.SearchQuery{
		Keywords:   "go",
		Location:   "Paris",
		Industry:   "Software",
		MaxResults: 5,
	})
	require.NoError(t, err)
	assert.Len(t, hits, 5)

	assert.Equal(t, "Paris", page.Inputs[markup.FilterLocationInput])
	// 找不到行业输入框时跳过, 不影响搜索
	assert.NotContains(t, page.Inputs, markup.FilterIndustryInput)
	assert.Contains(t, page.Clicks, markup.FilterResultOption)
}

func TestURLHelpers(t *testing.T) {
	assert.Equal(t,
		"https://www.linkedin.com/search/results/people/?keywords=data+engineer&origin=SWITCH_SEARCH_VERTICAL",
		BuildURL("data engineer", 1))
	assert.Equal(t, 3, pageOf(BuildURL("x", 3)))

	next, err := NextPageURL(BuildURL("go", 2), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, pageOf(next))

	assert.Equal(t, 3, PageCount(25, 10, 100))
	assert.Equal(t, 2, PageCount(25, 10, 2))
	assert.Equal(t, 1, PageCount(0, 10, 100))
}
