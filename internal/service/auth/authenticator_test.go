package auth

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/chrome/chrometest"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/profilecrawler/internal/service/markup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

var sessionCookie = types.Cookie{Name: "li_at", Value: "token", Domain: ".linkedin.com", Path: "/", HTTPOnly: true, Secure: true}

// linkedIn 模拟登录流程: 提交表单后跳转到 afterSubmit, 登录后访问首页出现导航栏
func linkedIn(page *chrometest.Page, loggedIn *bool, afterSubmit string) {
	page.OnNavigate = func(p *chrometest.Page, url string) error {
		switch {
		case strings.HasPrefix(url, LoginURL):
			p.Set(markup.LoginEmail, true)
			p.Set(markup.LoginPassword, true)
			p.Set(markup.LoginSubmit, true)
		case url == FeedURL:
			p.Set(markup.NavIndicator, *loggedIn)
		}
		return nil
	}
	page.OnClick = func(p *chrometest.Page, selector string) error {
		if selector == markup.LoginSubmit {
			p.CurrentURL = afterSubmit
			*loggedIn = afterSubmit == FeedURL
		}
		return nil
	}
}

func TestCookieRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cookies.json")
	require.NoError(t, SaveCookies(path, []types.Cookie{sessionCookie}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cookies, err := LoadCookies(path)
	require.NoError(t, err)
	assert.Equal(t, []types.Cookie{sessionCookie}, cookies)
}

func TestRestoresSavedSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, SaveCookies(path, []types.Cookie{sessionCookie}))

	page := chrometest.New()
	loggedIn := true
	linkedIn(page, &loggedIn, FeedURL)
	crawler := chrometest.NewCrawler(page)

	a := InitAuthenticator(crawler, page, Options{CookieFile: path, Sleep: noSleep})
	require.NoError(t, a.EnsureAuthenticated(context.Background()))

	assert.Equal(t, []string{FeedURL}, page.Navigations)
	cookies, _ := crawler.Cookies(context.Background())
	assert.Equal(t, []types.Cookie{sessionCookie}, cookies)
}

func TestLoginWithCredentialsSavesCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	page := chrometest.New()
	loggedIn := false
	linkedIn(page, &loggedIn, FeedURL)
	crawler := chrometest.NewCrawler(page)
	require.NoError(t, crawler.SetCookies(context.Background(), []types.Cookie{sessionCookie}))

	a := InitAuthenticator(crawler, page, Options{
		CookieFile: path,
		Email:      "me@example.com",
		Password:   "secret",
		Headless:   true,
		Sleep:      noSleep,
	})
	require.NoError(t, a.EnsureAuthenticated(context.Background()))

	assert.Equal(t, "me@example.com", page.Inputs[markup.LoginEmail])
	assert.Equal(t, "secret", page.Inputs[markup.LoginPassword])
	saved, err := LoadCookies(path)
	require.NoError(t, err)
	assert.Equal(t, []types.Cookie{sessionCookie}, saved)
}

func TestHeadlessChallengeFailsFast(t *testing.T) {
	page := chrometest.New()
	loggedIn := false
	linkedIn(page, &loggedIn, "https://www.linkedin.com/checkpoint/challenge/abc")

	a := InitAuthenticator(chrometest.NewCrawler(page), page, Options{
		CookieFile: filepath.Join(t.TempDir(), "cookies.json"),
		Email:      "me@example.com",
		Password:   "secret",
		Headless:   true,
		Sleep:      noSleep,
	})
	err := a.EnsureAuthenticated(context.Background())
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestHeadlessWithoutCredentialsFails(t *testing.T) {
	page := chrometest.New()
	a := InitAuthenticator(chrometest.NewCrawler(page), page, Options{
		CookieFile: filepath.Join(t.TempDir(), "missing.json"),
		Headless:   true,
		Sleep:      noSleep,
	})
	assert.ErrorIs(t, a.EnsureAuthenticated(context.Background()), ErrAuthFailed)
	assert.Empty(t, page.Navigations)
}

func TestManualLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	page := chrometest.New()
	crawler := chrometest.NewCrawler(page)
	require.NoError(t, crawler.SetCookies(context.Background(), []types.Cookie{sessionCookie}))

	// 第二次轮询时用户已完成登录
	polls := 0
	sleep := func(context.Context, time.Duration) error {
		polls++
		if polls == 2 {
			page.CurrentURL = "https://www.linkedin.com/mynetwork/"
		}
		return nil
	}

	a := InitAuthenticator(crawler, page, Options{CookieFile: path, ManualTimeout: 30 * time.Second, Sleep: sleep})
	require.NoError(t, a.EnsureAuthenticated(context.Background()))

	assert.Equal(t, []string{LoginURL}, page.Navigations)
	assert.Equal(t, 2, polls)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestManualLoginTimeout(t *testing.T) {
	page := chrometest.New()
	polls := 0
	sleep := func(context.Context, time.Duration) error {
		polls++
		return nil
	}

	a := InitAuthenticator(chrometest.NewCrawler(page), page, Options{
		CookieFile:    filepath.Join(t.TempDir(), "cookies.json"),
		ManualTimeout: 9 * time.Second,
		Sleep:         sleep,
	})
	assert.ErrorIs(t, a.EnsureAuthenticated(context.Background()), ErrAuthFailed)
	assert.Equal(t, 3, polls)
}
