package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/config"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/types"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

type cachedResponse struct {
	url    string
	status int
}

type chromedpCrawler struct {
	allocCtxFuc   context.CancelFunc
	browserCtx    context.Context
	browserCtxFuc context.CancelFunc
	timeoutCtxFuc context.CancelFunc
	navTimeout    time.Duration

	urlPattern string
	respCh     chan<- *types.NetworkResponse
	closed     chan struct{}
	closeOnce  sync.Once
}

func InitChromedpCrawler(ctx context.Context, cfg *config.Config) (ChromeCrawler, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Chromedp.Headless),
		chromedp.Flag("disable-blink-features", cfg.Chromedp.DisableBlinkFeatures),
		chromedp.Flag("incognito", cfg.Chromedp.Incognito),
		chromedp.Flag("disable-dev-shm-usage", cfg.Chromedp.DisableDevShmUsage),
		chromedp.Flag("no-sandbox", cfg.Chromedp.NoSandbox),
		chromedp.UserDataDir(cfg.Chromedp.UserDataDir),
		chromedp.UserAgent(userAgentOr(cfg.Chromedp.UserAgent)),
		chromedp.WindowSize(1366, 768),
	)
	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, time.Duration(cfg.Chromedp.LifeTime)*time.Second)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// 空的Run会启动浏览器
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		cancelTimeout()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	return &chromedpCrawler{
		allocCtxFuc:   cancelAlloc,
		browserCtx:    browserCtx,
		browserCtxFuc: cancelBrowser,
		timeoutCtxFuc: cancelTimeout,
		navTimeout:    time.Duration(cfg.Chromedp.NavigationTimeout) * time.Second,
		closed:        make(chan struct{}),
	}, nil
}

func (cc *chromedpCrawler) SetNetworkListener(urlPattern string, respCh chan<- *types.NetworkResponse) {
	cc.urlPattern = urlPattern
	cc.respCh = respCh
}

func (cc *chromedpCrawler) NewPage(ctx context.Context) (Page, error) {
	pageCtx, cancelPage := chromedp.NewContext(cc.browserCtx)
	if cc.respCh != nil {
		cc.listen(pageCtx)
	}
	if err := chromedp.Run(pageCtx, network.Enable()); err != nil {
		cancelPage()
		return nil, fmt.Errorf("开启网络监听失败: %w", err)
	}
	return &chromedpPage{pageCtx: pageCtx, cancel: cancelPage, navTimeout: cc.navTimeout}, nil
}

func (cc *chromedpCrawler) listen(pageCtx context.Context) {
	var reqCache sync.Map
	chromedp.ListenTarget(pageCtx, func(ev any) {
		switch ev := ev.(type) {
		case *network.EventResponseReceived:
			resp := ev.Response
			if strings.Contains(resp.URL, cc.urlPattern) {
				reqCache.Store(ev.RequestID, cachedResponse{url: resp.URL, status: int(resp.Status)})
			}
		case *network.EventLoadingFinished:
			// 当请求加载完成时获取响应体
			if cached, ok := reqCache.LoadAndDelete(ev.RequestID); ok {
				go cc.fetchBody(pageCtx, ev.RequestID, cached.(cachedResponse))
			}
		case *network.EventLoadingFailed:
			reqCache.Delete(ev.RequestID)
		}
	})
}

func (cc *chromedpCrawler) fetchBody(pageCtx context.Context, requestID network.RequestID, cached cachedResponse) {
	c := chromedp.FromContext(pageCtx)
	body, err := network.GetResponseBody(requestID).Do(cdp.WithExecutor(pageCtx, c.Target))
	if err != nil {
		slog.Debug("获取响应体失败", "request_id", requestID, "url", cached.url, "error", err)
		return
	}
	select {
	case cc.respCh <- &types.NetworkResponse{Url: cached.url, UrlPattern: cc.urlPattern, Status: cached.status, Body: body}:
	case <-cc.closed:
	}
}

func (cc *chromedpCrawler) Cookies(ctx context.Context) ([]types.Cookie, error) {
	var raw []*network.Cookie
	err := chromedp.Run(cc.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("读取cookie失败: %w", err)
	}
	cookies := make([]types.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, types.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return cookies, nil
}

func (cc *chromedpCrawler) SetCookies(ctx context.Context, cookies []types.Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	err := chromedp.Run(cc.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("写入cookie失败: %w", err)
	}
	return nil
}

func (cc *chromedpCrawler) Close() {
	cc.closeOnce.Do(func() {
		close(cc.closed)
		cc.browserCtxFuc()
		cc.allocCtxFuc()
		cc.timeoutCtxFuc()
	})
}

type chromedpPage struct {
	pageCtx    context.Context
	cancel     context.CancelFunc
	navTimeout time.Duration
}

// run 在页面上下文中执行动作, 同时响应调用方ctx的取消
func (cp *chromedpPage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(cp.pageCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (cp *chromedpPage) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := context.WithTimeout(cp.pageCtx, cp.navTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	if resp != nil {
		return StatusError(int(resp.Status))
	}
	return nil
}

func (cp *chromedpPage) URL(ctx context.Context) (string, error) {
	var u string
	err := cp.run(ctx, 10*time.Second, chromedp.Location(&u))
	return u, err
}

func (cp *chromedpPage) HTML(ctx context.Context) (string, error) {
	var html string
	err := cp.run(ctx, 15*time.Second, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (cp *chromedpPage) Has(ctx context.Context, selector string) (bool, error) {
	var ok bool
	js := fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))
	err := cp.run(ctx, 10*time.Second, chromedp.Evaluate(js, &ok))
	return ok, err
}

func (cp *chromedpPage) ensure(ctx context.Context, selector string) error {
	ok, err := cp.Has(ctx, selector)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

func (cp *chromedpPage) Click(ctx context.Context, selector string) error {
	if err := cp.ensure(ctx, selector); err != nil {
		return err
	}
	if err := cp.run(ctx, 10*time.Second, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("点击失败: %w", err)
	}
	return nil
}

func (cp *chromedpPage) ClickText(ctx context.Context, selector, textRegex string) error {
	var clicked bool
	js := fmt.Sprintf(`(() => {
		const re = new RegExp(%s);
		for (const el of document.querySelectorAll(%s)) {
			if (re.test(el.innerText || "")) { el.click(); return true; }
		}
		return false;
	})()`, jsString(textRegex), jsString(selector))
	if err := cp.run(ctx, 10*time.Second, chromedp.Evaluate(js, &clicked)); err != nil {
		return fmt.Errorf("点击失败: %w", err)
	}
	if !clicked {
		return fmt.Errorf("%w: %s /%s/", ErrElementNotFound, selector, textRegex)
	}
	return nil
}

func (cp *chromedpPage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	if err := cp.ensure(ctx, selector); err != nil {
		return "", false, err
	}
	var (
		value string
		ok    bool
	)
	err := cp.run(ctx, 10*time.Second, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.ByQuery))
	return value, ok, err
}

func (cp *chromedpPage) Input(ctx context.Context, selector, text string) error {
	if err := cp.ensure(ctx, selector); err != nil {
		return err
	}
	return cp.run(ctx, 15*time.Second,
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (cp *chromedpPage) ScrollToBottom(ctx context.Context) error {
	js := `window.scrollTo({top: document.body.scrollHeight, behavior: 'smooth'});`
	if err := cp.run(ctx, 10*time.Second, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("滑动到底部失败: %w", err)
	}
	return nil
}

func (cp *chromedpPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return cp.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (cp *chromedpPage) Close() error {
	cp.cancel()
	return nil
}
