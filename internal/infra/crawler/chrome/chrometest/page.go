// Package chrometest 提供可编程的 chrome.Page 替身
package chrometest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/types"
)

// Page 内存中的页面, 通过钩子模拟导航和点击带来的副作用
type Page struct {
	mu sync.Mutex

	CurrentURL string
	Markup     string
	// selector -> 是否存在
	Elements map[string]bool
	// selector -> attribute -> value
	Attributes map[string]map[string]string
	Inputs     map[string]string

	Navigations []string
	Clicks      []string
	Scrolls     int
	Closed      bool

	OnNavigate  func(p *Page, url string) error
	OnClick     func(p *Page, selector string) error
	OnClickText func(p *Page, selector, textRegex string) error
	OnScroll    func(p *Page)
}

var _ chrome.Page = (*Page)(nil)

func New() *Page {
	return &Page{
		Elements:   make(map[string]bool),
		Attributes: make(map[string]map[string]string),
		Inputs:     make(map[string]string),
	}
}

// Set 在钩子中修改页面状态, 调用方已持有锁
func (p *Page) Set(selector string, present bool) {
	p.Elements[selector] = present
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigations = append(p.Navigations, url)
	p.CurrentURL = url
	if p.OnNavigate != nil {
		return p.OnNavigate(p, url)
	}
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Markup, nil
}

func (p *Page) Has(ctx context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Elements[selector], nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.Elements[selector] {
		return fmt.Errorf("%w: %s", chrome.ErrElementNotFound, selector)
	}
	p.Clicks = append(p.Clicks, selector)
	if p.OnClick != nil {
		return p.OnClick(p, selector)
	}
	return nil
}

func (p *Page) ClickText(ctx context.Context, selector, textRegex string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.OnClickText == nil {
		return fmt.Errorf("%w: %s /%s/", chrome.ErrElementNotFound, selector, textRegex)
	}
	p.Clicks = append(p.Clicks, selector+" /"+textRegex+"/")
	return p.OnClickText(p, selector, textRegex)
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.Elements[selector] {
		return "", false, fmt.Errorf("%w: %s", chrome.ErrElementNotFound, selector)
	}
	v, ok := p.Attributes[selector][name]
	return v, ok, nil
}

func (p *Page) Input(ctx context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.Elements[selector] {
		return fmt.Errorf("%w: %s", chrome.ErrElementNotFound, selector)
	}
	p.Inputs[selector] = text
	return nil
}

func (p *Page) ScrollToBottom(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scrolls++
	if p.OnScroll != nil {
		p.OnScroll(p)
	}
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.Elements[selector] {
		return fmt.Errorf("等待元素 %s 失败: %w", selector, context.DeadlineExceeded)
	}
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// NavigationCount 线程安全地读取导航次数
func (p *Page) NavigationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Navigations)
}

// Crawler 内存中的浏览器会话, 保存cookie并返回预设的页面
type Crawler struct {
	mu      sync.Mutex
	page    *Page
	cookies []types.Cookie

	UrlPattern string
	RespCh     chan<- *types.NetworkResponse
	Closed     bool
}

var _ chrome.ChromeCrawler = (*Crawler)(nil)

func NewCrawler(page *Page) *Crawler {
	return &Crawler{page: page}
}

func (c *Crawler) SetNetworkListener(urlPattern string, respCh chan<- *types.NetworkResponse) {
	c.UrlPattern = urlPattern
	c.RespCh = respCh
}

func (c *Crawler) NewPage(ctx context.Context) (chrome.Page, error) {
	return c.page, nil
}

func (c *Crawler) Cookies(ctx context.Context) ([]types.Cookie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Cookie(nil), c.cookies...), nil
}

func (c *Crawler) SetCookies(ctx context.Context, cookies []types.Cookie) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = append(c.cookies, cookies...)
	return nil
}

func (c *Crawler) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
}
