package chrome

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/types"
)

var (
	ErrElementNotFound = errors.New("元素不存在")
	ErrRateLimited     = errors.New("请求被限流")
)

// LinkedIn 对自动化访问返回的非标准状态码
const StatusRateLimited = 999

// StatusError 把主文档的HTTP状态转换为导航错误, 0 表示未取得状态
func StatusError(status int) error {
	switch {
	case status == StatusRateLimited:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, status)
	case status >= 400:
		return fmt.Errorf("导航失败: HTTP %d", status)
	default:
		return nil
	}
}

// ChromeCrawler 浏览器会话: 启动在构造函数中完成, 页面按顺序使用
type ChromeCrawler interface {
	// SetNetworkListener 之后创建的页面会把URL包含 urlPattern 的响应发送到 respCh
	SetNetworkListener(urlPattern string, respCh chan<- *types.NetworkResponse)
	NewPage(ctx context.Context) (Page, error)
	Cookies(ctx context.Context) ([]types.Cookie, error)
	SetCookies(ctx context.Context, cookies []types.Cookie) error
	Close()
}

// Page 驱动层使用的页面能力
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Has(ctx context.Context, selector string) (bool, error)
	// Click 元素不存在时返回 ErrElementNotFound
	Click(ctx context.Context, selector string) error
	// ClickText 点击文本匹配 textRegex 的第一个 selector 元素
	ClickText(ctx context.Context, selector, textRegex string) error
	Attribute(ctx context.Context, selector, name string) (string, bool, error)
	Input(ctx context.Context, selector, text string) error
	ScrollToBottom(ctx context.Context) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Close() error
}

var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
}

// userAgentOr 配置为空时随机选择一个常见的桌面UA
func userAgentOr(ua string) string {
	if ua != "" {
		return ua
	}
	return userAgents[rand.IntN(len(userAgents))]
}
