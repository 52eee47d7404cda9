package config

import (
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// DefaultConfig 返回默认配置, 配置文件中未填写的字段使用这里的值
func DefaultConfig() Config {
	var cfg Config
	cfg.Driver = "rod"

	cfg.Rod.UserDataDir = "./user_data"
	cfg.Rod.DisableBlinkFeatures = "AutomationControlled"
	cfg.Rod.NavigationTimeout = 45

	cfg.Chromedp.LifeTime = 3600
	cfg.Chromedp.UserDataDir = "./user_data"
	cfg.Chromedp.DisableBlinkFeatures = "AutomationControlled"
	cfg.Chromedp.NavigationTimeout = 45

	cfg.Auth.CookieFile = "./linkedin_cookies.json"
	cfg.Auth.ManualLoginTimeout = 120

	cfg.Scraper.MaxProfilesPerSession = 80
	cfg.Scraper.MaxSearchPages = 100
	cfg.Scraper.ResultsPerPage = 10
	cfg.Scraper.CaptureMode = "barrier"
	cfg.Scraper.SettleMillis = 1500
	cfg.Scraper.ContactSettleMillis = 2000

	cfg.Pacing.MinDelay = 3
	cfg.Pacing.MaxDelay = 7
	cfg.Pacing.LongPauseEvery = 8
	cfg.Pacing.LongPauseMin = 15
	cfg.Pacing.LongPauseMax = 30
	cfg.Pacing.SearchPageDelayMin = 5
	cfg.Pacing.SearchPageDelayMax = 10
	cfg.Pacing.ScrollPauseMin = 1
	cfg.Pacing.ScrollPauseMax = 2.5
	cfg.Pacing.MaxActionsPerMinute = 20

	cfg.Export.OutputDir = "./output"
	cfg.Export.Format = "both"

	cfg.Elasticsearch.Index = "linkedin_profiles"

	cfg.Embedder.Host = "http://localhost"
	cfg.Embedder.Port = 11434
	cfg.Embedder.BatchSize = 16
	cfg.Embedder.Dims = 768
	return cfg
}

func ParseConfig(byteConfig []byte) (*Config, error) {
	var cfg Config
	if err := json5.Unmarshal(byteConfig, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := mergo.Merge(&cfg, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("合并默认配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, p := range []*string{&cfg.Rod.UserDataDir, &cfg.Chromedp.UserDataDir, &cfg.Auth.CookieFile, &cfg.Export.OutputDir} {
		absPath, err := filepath.Abs(*p)
		if err != nil {
			return nil, err
		}
		*p = absPath
	}
	return &cfg, nil
}

// ApplyEnv 用环境变量覆盖登录凭据
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LINKEDIN_EMAIL"); v != "" {
		c.Auth.Email = v
	}
	if v := os.Getenv("LINKEDIN_PASSWORD"); v != "" {
		c.Auth.Password = v
	}
}

func (c *Config) Validate() error {
	switch c.Driver {
	case "rod", "chromedp":
	default:
		return fmt.Errorf("未知浏览器驱动: %q", c.Driver)
	}
	switch c.Scraper.CaptureMode {
	case "barrier", "fixed":
	default:
		return fmt.Errorf("未知 capture_mode: %q", c.Scraper.CaptureMode)
	}
	switch c.Export.Format {
	case "csv", "excel", "both":
	default:
		return fmt.Errorf("未知导出格式: %q", c.Export.Format)
	}
	if c.Pacing.MinDelay > c.Pacing.MaxDelay {
		return fmt.Errorf("pacing.min_delay (%v) 大于 pacing.max_delay (%v)", c.Pacing.MinDelay, c.Pacing.MaxDelay)
	}
	if c.Scraper.ResultsPerPage <= 0 {
		return fmt.Errorf("scraper.results_per_page 必须大于 0")
	}
	return nil
}
