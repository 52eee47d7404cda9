package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/config"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/profilecrawler/internal/service/markup"
	"github.com/LouYuanbo1/profilecrawler/internal/service/pacing"
)

var ErrAuthFailed = errors.New("LinkedIn 登录失败")

const (
	FeedURL  = "https://www.linkedin.com/feed/"
	LoginURL = "https://www.linkedin.com/login"

	pollInterval   = 3 * time.Second
	indicatorWait  = 5 * time.Second
	feedSettle     = 3 * time.Second
	loginSettle    = 2 * time.Second
	typingPause    = 500 * time.Millisecond
	submitSettle   = 5 * time.Second
	loginFormWait  = 10 * time.Second
	loginFieldWait = 5 * time.Second
)

var (
	challengePaths = []string{"/checkpoint", "/challenge"}
	loggedInPaths  = []string{"/feed", "/mynetwork", "/messaging"}
)

type Authenticator interface {
	// EnsureAuthenticated 依次尝试: 保存的cookie, 账号密码登录, 手动登录
	EnsureAuthenticated(ctx context.Context) error
}

type Options struct {
	CookieFile    string
	Email         string
	Password      string
	ManualTimeout time.Duration
	// 无头模式下无法手动登录, 遇到验证直接失败
	Headless bool
	Sleep    pacing.Sleeper
}

func OptionsFromConfig(cfg *config.Config) Options {
	headless := cfg.Rod.Headless
	if cfg.Driver == "chromedp" {
		headless = cfg.Chromedp.Headless
	}
	return Options{
		CookieFile:    cfg.Auth.CookieFile,
		Email:         cfg.Auth.Email,
		Password:      cfg.Auth.Password,
		ManualTimeout: time.Duration(cfg.Auth.ManualLoginTimeout) * time.Second,
		Headless:      headless,
		Sleep:         pacing.ContextSleep,
	}
}

type authenticator struct {
	crawler chrome.ChromeCrawler
	page    chrome.Page
	opts    Options
}

func InitAuthenticator(crawler chrome.ChromeCrawler, page chrome.Page, opts Options) Authenticator {
	if opts.Sleep == nil {
		opts.Sleep = pacing.ContextSleep
	}
	return &authenticator{crawler: crawler, page: page, opts: opts}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (a *authenticator) EnsureAuthenticated(ctx context.Context) error {
	if a.restoreSession(ctx) {
		slog.InfoContext(ctx, "已通过cookie恢复登录状态")
		return nil
	}

	if a.opts.Email != "" && a.opts.Password != "" {
		ok, err := a.login(ctx)
		if err != nil {
			return err
		}
		if ok {
			a.saveCookies(ctx)
			return nil
		}
		slog.WarnContext(ctx, "自动登录失败, 改为手动登录")
	}

	if a.opts.Headless {
		return fmt.Errorf("%w: 无头模式无法手动登录, 请提供有效的cookie或账号密码", ErrAuthFailed)
	}
	if a.waitForManualLogin(ctx) {
		a.saveCookies(ctx)
		return nil
	}
	return ErrAuthFailed
}

func (a *authenticator) restoreSession(ctx context.Context) bool {
	cookies, err := LoadCookies(a.opts.CookieFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.WarnContext(ctx, "读取cookie失败", "file", a.opts.CookieFile, "error", err)
		}
		return false
	}
	if len(cookies) == 0 {
		return false
	}
	if err := a.crawler.SetCookies(ctx, cookies); err != nil {
		slog.WarnContext(ctx, "写入cookie到浏览器失败", "error", err)
		return false
	}
	if a.isLoggedIn(ctx) {
		return true
	}
	slog.InfoContext(ctx, "保存的cookie已失效, 重新登录")
	return false
}

func (a *authenticator) isLoggedIn(ctx context.Context) bool {
	if err := a.page.Navigate(ctx, FeedURL); err != nil {
		slog.DebugContext(ctx, "检查登录状态失败", "error", err)
		return false
	}
	if err := a.opts.Sleep(ctx, feedSettle); err != nil {
		return false
	}
	for _, sel := range []string{markup.NavIndicator, markup.FeedIndicator} {
		if err := a.page.WaitVisible(ctx, sel, indicatorWait); err == nil {
			return true
		}
	}
	return false
}

// login 填写登录表单; 遇到安全验证时转为手动登录, 无头模式下直接返回错误
func (a *authenticator) login(ctx context.Context) (bool, error) {
	if err := a.fillLoginForm(ctx); err != nil {
		slog.ErrorContext(ctx, "自动登录出错", "error", err)
		return false, nil
	}

	current, err := a.page.URL(ctx)
	if err != nil {
		return false, nil
	}
	if containsAny(current, challengePaths) {
		if a.opts.Headless {
			return false, fmt.Errorf("%w: 需要完成安全验证, 请关闭无头模式后重试", ErrAuthFailed)
		}
		slog.WarnContext(ctx, "检测到安全验证, 请在浏览器中完成")
		return a.waitForManualLogin(ctx), nil
	}
	return a.isLoggedIn(ctx), nil
}

func (a *authenticator) fillLoginForm(ctx context.Context) error {
	if err := a.page.Navigate(ctx, LoginURL); err != nil {
		return err
	}
	if err := a.opts.Sleep(ctx, loginSettle); err != nil {
		return err
	}
	if err := a.page.WaitVisible(ctx, markup.LoginEmail, loginFormWait); err != nil {
		return err
	}
	if err := a.page.Input(ctx, markup.LoginEmail, a.opts.Email); err != nil {
		return err
	}
	if err := a.opts.Sleep(ctx, typingPause); err != nil {
		return err
	}
	if err := a.page.WaitVisible(ctx, markup.LoginPassword, loginFieldWait); err != nil {
		return err
	}
	if err := a.page.Input(ctx, markup.LoginPassword, a.opts.Password); err != nil {
		return err
	}
	if err := a.opts.Sleep(ctx, typingPause); err != nil {
		return err
	}
	if err := a.page.Click(ctx, markup.LoginSubmit); err != nil {
		return err
	}
	return a.opts.Sleep(ctx, submitSettle)
}

// waitForManualLogin 打开登录页后每3秒检查一次, 直到登录成功或超时
func (a *authenticator) waitForManualLogin(ctx context.Context) bool {
	current, _ := a.page.URL(ctx)
	if !strings.Contains(current, "/login") && !containsAny(current, challengePaths) {
		if err := a.page.Navigate(ctx, LoginURL); err != nil {
			slog.ErrorContext(ctx, "打开登录页失败", "error", err)
			return false
		}
	}

	slog.InfoContext(ctx, "请在浏览器窗口中登录LinkedIn", "timeout", a.opts.ManualTimeout)
	for elapsed := time.Duration(0); elapsed < a.opts.ManualTimeout; elapsed += pollInterval {
		if err := a.opts.Sleep(ctx, pollInterval); err != nil {
			return false
		}
		if current, err := a.page.URL(ctx); err == nil && containsAny(current, loggedInPaths) {
			return true
		}
		for _, sel := range []string{markup.NavIndicator, markup.FeedIndicator} {
			if has, _ := a.page.Has(ctx, sel); has {
				return true
			}
		}
	}
	slog.ErrorContext(ctx, "手动登录超时", "timeout", a.opts.ManualTimeout)
	return false
}

func (a *authenticator) saveCookies(ctx context.Context) {
	cookies, err := a.crawler.Cookies(ctx)
	if err != nil {
		slog.WarnContext(ctx, "读取浏览器cookie失败", "error", err)
		return
	}
	if err := SaveCookies(a.opts.CookieFile, cookies); err != nil {
		slog.WarnContext(ctx, "保存cookie失败", "error", err)
		return
	}
	slog.InfoContext(ctx, "cookie已保存", "file", a.opts.CookieFile, "count", len(cookies))
}
