package pacing

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/config"
	"golang.org/x/time/rate"
)

// Pacer 驱动层调用的节奏控制策略
type Pacer interface {
	WaitBeforeItem(ctx context.Context) error
	WaitBetweenPages(ctx context.Context) error
	WaitScroll(ctx context.Context) error
	ReportSuccess()
	ReportError()
	ReportRateLimited(retryAfter time.Duration)
	IsSessionLimitReached() bool
	Stats() Stats
}

// Stats 会话统计
type Stats struct {
	Requests          int
	Elapsed           time.Duration
	ConsecutiveErrors int
	TotalErrors       int
	LimitReached      bool
}

type Options struct {
	MinDelay       time.Duration
	MaxDelay       time.Duration
	LongPauseEvery int
	LongPauseMin   time.Duration
	LongPauseMax   time.Duration
	PageDelayMin   time.Duration
	PageDelayMax   time.Duration
	ScrollPauseMin time.Duration
	ScrollPauseMax time.Duration
	// 会话内最多访问的实体数
	MaxRequests int
	// 每分钟最多动作数, 0 表示不限制
	MaxActionsPerMinute float64
}

// 退避倍数上限为 2^maxBackoffExp
const maxBackoffExp = 4

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MinDelay:            seconds(cfg.Pacing.MinDelay),
		MaxDelay:            seconds(cfg.Pacing.MaxDelay),
		LongPauseEvery:      cfg.Pacing.LongPauseEvery,
		LongPauseMin:        seconds(cfg.Pacing.LongPauseMin),
		LongPauseMax:        seconds(cfg.Pacing.LongPauseMax),
		PageDelayMin:        seconds(cfg.Pacing.SearchPageDelayMin),
		PageDelayMax:        seconds(cfg.Pacing.SearchPageDelayMax),
		ScrollPauseMin:      seconds(cfg.Pacing.ScrollPauseMin),
		ScrollPauseMax:      seconds(cfg.Pacing.ScrollPauseMax),
		MaxRequests:         cfg.Scraper.MaxProfilesPerSession,
		MaxActionsPerMinute: cfg.Pacing.MaxActionsPerMinute,
	}
}

// Sleeper 可中断的等待, 测试中可替换
type Sleeper func(ctx context.Context, d time.Duration) error

func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Option func(*adaptivePacer)

func WithSleeper(sleep Sleeper) Option {
	return func(p *adaptivePacer) { p.sleep = sleep }
}

// WithRand 替换 [0,1) 随机数来源
func WithRand(f func() float64) Option {
	return func(p *adaptivePacer) { p.random = f }
}

func WithClock(now func() time.Time) Option {
	return func(p *adaptivePacer) { p.now = now }
}

type adaptivePacer struct {
	opts    Options
	limiter *rate.Limiter
	sleep   Sleeper
	random  func() float64
	now     func() time.Time

	mu                sync.Mutex
	requests          int
	consecutiveErrors int
	totalErrors       int
	start             time.Time
	retryAt           time.Time
}

// InitPacer 创建自适应节奏控制器: 随机延迟, 周期性长暂停, 连续错误指数退避, 会话上限
func InitPacer(opts Options, options ...Option) Pacer {
	p := &adaptivePacer{
		opts:   opts,
		sleep:  ContextSleep,
		random: rand.Float64,
		now:    time.Now,
	}
	for _, o := range options {
		o(p)
	}
	if opts.MaxActionsPerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.MaxActionsPerMinute/60), 1)
	}
	p.start = p.now()
	return p
}

func (p *adaptivePacer) uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(p.random()*float64(hi-lo))
}

func (p *adaptivePacer) throttle(ctx context.Context) error {
	p.mu.Lock()
	retryAt := p.retryAt
	p.mu.Unlock()

	if wait := retryAt.Sub(p.now()); wait > 0 {
		slog.InfoContext(ctx, "触发限流, 等待恢复", "wait", wait.Round(time.Second))
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}
	if p.limiter != nil {
		return p.limiter.Wait(ctx)
	}
	return nil
}

// WaitBeforeItem 访问下一个实体前的等待
func (p *adaptivePacer) WaitBeforeItem(ctx context.Context) error {
	if err := p.throttle(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	requests, errs := p.requests, p.consecutiveErrors
	p.mu.Unlock()

	delay := p.uniform(p.opts.MinDelay, p.opts.MaxDelay)
	if errs > 0 {
		delay *= time.Duration(1 << min(errs, maxBackoffExp))
		slog.InfoContext(ctx, "退避等待", "delay", delay.Round(100*time.Millisecond), "consecutive_errors", errs)
	}
	if p.opts.LongPauseEvery > 0 && requests > 0 && requests%p.opts.LongPauseEvery == 0 {
		delay = p.uniform(p.opts.LongPauseMin, p.opts.LongPauseMax)
		slog.InfoContext(ctx, "长暂停", "delay", delay.Round(100*time.Millisecond), "requests", requests)
	}

	if err := p.sleep(ctx, delay); err != nil {
		return err
	}

	p.mu.Lock()
	p.requests++
	p.mu.Unlock()
	return nil
}

// WaitBetweenPages 搜索翻页之间的等待, 比单个实体的间隔更长
func (p *adaptivePacer) WaitBetweenPages(ctx context.Context) error {
	if err := p.throttle(ctx); err != nil {
		return err
	}
	return p.sleep(ctx, p.uniform(p.opts.PageDelayMin, p.opts.PageDelayMax))
}

func (p *adaptivePacer) WaitScroll(ctx context.Context) error {
	return p.sleep(ctx, p.uniform(p.opts.ScrollPauseMin, p.opts.ScrollPauseMax))
}

func (p *adaptivePacer) ReportSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveErrors = 0
}

func (p *adaptivePacer) ReportError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveErrors++
	p.totalErrors++
}

// ReportRateLimited 收到限流响应后, 在 retryAfter 之前暂停所有动作
func (p *adaptivePacer) ReportRateLimited(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = time.Minute
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retryAt = p.now().Add(retryAfter)
}

func (p *adaptivePacer) IsSessionLimitReached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limitReachedLocked()
}

func (p *adaptivePacer) limitReachedLocked() bool {
	return p.opts.MaxRequests > 0 && p.requests >= p.opts.MaxRequests
}

func (p *adaptivePacer) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Requests:          p.requests,
		Elapsed:           p.now().Sub(p.start),
		ConsecutiveErrors: p.consecutiveErrors,
		TotalErrors:       p.totalErrors,
		LimitReached:      p.limitReachedLocked(),
	}
}
