package chrome

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/config"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/options"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/types"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

type rodCrawler struct {
	browser    *rod.Browser
	navTimeout time.Duration

	urlPattern string
	respCh     chan<- *types.NetworkResponse
	closed     chan struct{}
	closeOnce  sync.Once
}

func InitRodCrawler(cfg *config.Config) (ChromeCrawler, error) {
	if err := os.MkdirAll(cfg.Rod.UserDataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建用户数据目录失败: %w", err)
	}

	l := options.CreateLauncher(cfg.Rod.UserMode,
		options.WithBin(cfg.Rod.Bin),
		options.WithUserDataDir(cfg.Rod.UserDataDir),
		options.WithHeadless(cfg.Rod.Headless),
		options.WithDisableBlinkFeatures(cfg.Rod.DisableBlinkFeatures),
		options.WithIncognito(cfg.Rod.Incognito),
		options.WithDisableDevShmUsage(cfg.Rod.DisableDevShmUsage),
		options.WithNoSandbox(cfg.Rod.NoSandbox),
		options.WithUserAgent(userAgentOr(cfg.Rod.UserAgent)),
		options.WithLeakless(cfg.Rod.Leakless),
		options.WithDisableBackgroundNetworking(cfg.Rod.DisableBackgroundNetworking),
		options.WithDisableBackgroundTimerThrottling(cfg.Rod.DisableBackgroundTimerThrottling),
		options.WithRemoteDebuggingPort(cfg.Rod.RemoteDebuggingPort),
		options.WithWindowSize(1366, 768),
	)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	slog.Debug("浏览器可以连接的URL", "url", controlURL)

	browser := rod.New().
		ControlURL(controlURL).
		Trace(cfg.Rod.Trace)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	return &rodCrawler{
		browser:    browser,
		navTimeout: time.Duration(cfg.Rod.NavigationTimeout) * time.Second,
		closed:     make(chan struct{}),
	}, nil
}

func (rc *rodCrawler) SetNetworkListener(urlPattern string, respCh chan<- *types.NetworkResponse) {
	rc.urlPattern = urlPattern
	rc.respCh = respCh
}

func (rc *rodCrawler) NewPage(ctx context.Context) (Page, error) {
	page, err := stealth.Page(rc.browser)
	if err != nil {
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	if rc.respCh != nil {
		if err := rc.listen(page); err != nil {
			_ = page.Close()
			return nil, err
		}
	}
	return &rodPage{page: page, navTimeout: rc.navTimeout}, nil
}

// listen 被动监听页面的网络事件, 响应加载完成后读取响应体
// 与请求拦截不同, 这里不会重放请求, 浏览器自身的cookie和请求头保持不变
func (rc *rodCrawler) listen(page *rod.Page) error {
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return fmt.Errorf("开启网络监听失败: %w", err)
	}

	var reqCache sync.Map
	wait := page.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			if e.Response != nil && strings.Contains(e.Response.URL, rc.urlPattern) {
				reqCache.Store(e.RequestID, e.Response)
			}
		},
		func(e *proto.NetworkLoadingFinished) {
			if cached, ok := reqCache.LoadAndDelete(e.RequestID); ok {
				go rc.fetchBody(page, e.RequestID, cached.(*proto.NetworkResponse))
			}
		},
		func(e *proto.NetworkLoadingFailed) {
			reqCache.Delete(e.RequestID)
		},
	)
	go wait()
	return nil
}

func (rc *rodCrawler) fetchBody(page *rod.Page, requestID proto.NetworkRequestID, resp *proto.NetworkResponse) {
	res, err := proto.NetworkGetResponseBody{RequestID: requestID}.Call(page)
	if err != nil {
		slog.Debug("获取响应体失败", "request_id", requestID, "url", resp.URL, "error", err)
		return
	}
	body := []byte(res.Body)
	if res.Base64Encoded {
		if body, err = base64.StdEncoding.DecodeString(res.Body); err != nil {
			slog.Debug("响应体base64解码失败", "url", resp.URL, "error", err)
			return
		}
	}

	select {
	case rc.respCh <- &types.NetworkResponse{Url: resp.URL, UrlPattern: rc.urlPattern, Status: resp.Status, Body: body}:
	case <-rc.closed:
	}
}

func (rc *rodCrawler) Cookies(ctx context.Context) ([]types.Cookie, error) {
	raw, err := rc.browser.Context(ctx).GetCookies()
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
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return cookies, nil
}

func (rc *rodCrawler) SetCookies(ctx context.Context, cookies []types.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	if err := rc.browser.Context(ctx).SetCookies(params); err != nil {
		return fmt.Errorf("写入cookie失败: %w", err)
	}
	return nil
}

func (rc *rodCrawler) Close() {
	rc.closeOnce.Do(func() {
		close(rc.closed)
		if err := rc.browser.Close(); err != nil {
			slog.Warn("关闭浏览器失败", "error", err)
		}
	})
}

type rodPage struct {
	page       *rod.Page
	navTimeout time.Duration
}

func (rp *rodPage) withTimeout(ctx context.Context, d time.Duration) (*rod.Page, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(ctx, d)
	return rp.page.Context(tctx), cancel
}

// 页面加载完成后等待主文档响应事件的最长时间
const documentStatusGrace = 500 * time.Millisecond

// documentStatus 只接受主框架的文档响应
func documentStatus(e *proto.NetworkResponseReceived, mainFrame proto.PageFrameID) (int, bool) {
	if e == nil || e.Response == nil || e.Type != proto.NetworkResourceTypeDocument || e.FrameID != mainFrame {
		return 0, false
	}
	return e.Response.Status, true
}

func (rp *rodPage) Navigate(ctx context.Context, url string) error {
	p, cancel := rp.withTimeout(ctx, rp.navTimeout)
	defer cancel()

	statusCh := make(chan int, 1)
	wait := p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		status, ok := documentStatus(e, p.FrameID)
		if ok {
			statusCh <- status
		}
		return ok
	})
	go wait()

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("等待页面加载失败: %w", err)
	}

	select {
	case status := <-statusCh:
		return StatusError(status)
	case <-time.After(documentStatusGrace):
		slog.DebugContext(ctx, "未取得主文档状态码", "url", url)
		return nil
	}
}

func (rp *rodPage) URL(ctx context.Context) (string, error) {
	info, err := rp.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (rp *rodPage) HTML(ctx context.Context) (string, error) {
	return rp.page.Context(ctx).HTML()
}

func (rp *rodPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := rp.page.Context(ctx).Has(selector)
	return has, err
}

func (rp *rodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	has, el, err := rp.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return el, nil
}

func (rp *rodPage) Click(ctx context.Context, selector string) error {
	el, err := rp.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		slog.Debug("滚动到元素失败", "selector", selector, "error", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("点击失败: %w", err)
	}
	return nil
}

func (rp *rodPage) ClickText(ctx context.Context, selector, textRegex string) error {
	p, cancel := rp.withTimeout(ctx, 3*time.Second)
	defer cancel()

	el, err := p.ElementR(selector, textRegex)
	if err != nil {
		return fmt.Errorf("%w: %s /%s/", ErrElementNotFound, selector, textRegex)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("点击失败: %w", err)
	}
	return nil
}

func (rp *rodPage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	el, err := rp.element(ctx, selector)
	if err != nil {
		return "", false, err
	}
	v, err := el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (rp *rodPage) Input(ctx context.Context, selector, text string) error {
	el, err := rp.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		slog.Debug("清空输入框失败", "selector", selector, "error", err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("输入失败: %w", err)
	}
	return nil
}

func (rp *rodPage) ScrollToBottom(ctx context.Context) error {
	_, err := rp.page.Context(ctx).Eval(`() => window.scrollTo({top: document.body.scrollHeight, behavior: 'smooth'})`)
	if err != nil {
		return fmt.Errorf("执行Js滚动失败: %w", err)
	}
	return nil
}

func (rp *rodPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p, cancel := rp.withTimeout(ctx, timeout)
	defer cancel()

	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("等待元素 %s 失败: %w", selector, err)
	}
	return el.WaitVisible()
}

func (rp *rodPage) Close() error {
	return rp.page.Close()
}
