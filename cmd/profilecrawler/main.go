package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/config"
	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/LouYuanbo1/profilecrawler/internal/domain/model"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/embedding"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/persistence/es"
	"github.com/LouYuanbo1/profilecrawler/internal/service/scrape"
	"github.com/LouYuanbo1/profilecrawler/internal/service/sink"
	"github.com/LouYuanbo1/profilecrawler/param"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

//go:embed appconfig/appconfig.json
var appConfig []byte

type flags struct {
	location   string
	industry   string
	maxResults int
	outputDir  string
	format     string
	noDetails  bool
	headless   bool
	email      string
	password   string
	cookieFile string
	verbose    bool
	driver     string
	index      bool
}

func main() {
	var f flags
	cmd := &cobra.Command{
		Use:   "profilecrawler <keywords>",
		Short: "搜索 LinkedIn 人员并导出个人资料",
		Example: `  profilecrawler "data engineer" -l Paris -n 30
  profilecrawler "golang" -f csv --no-details --headless`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, strings.TrimSpace(args[0]), &f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.location, "location", "l", "", "地区过滤, 例如 \"Paris\"")
	fl.StringVarP(&f.industry, "industry", "i", "", "行业过滤, 例如 \"Software Development\"")
	fl.IntVarP(&f.maxResults, "max", "n", 50, "最多抓取的人数, 不超过会话上限")
	fl.StringVarP(&f.outputDir, "output", "o", "", "输出目录")
	fl.StringVarP(&f.format, "format", "f", "", "导出格式: csv, excel, both")
	fl.BoolVar(&f.noDetails, "no-details", false, "只导出搜索结果, 不访问个人主页")
	fl.BoolVar(&f.headless, "headless", false, "无头模式运行浏览器")
	fl.StringVar(&f.email, "email", "", "LinkedIn 登录邮箱 (默认读取 LINKEDIN_EMAIL)")
	fl.StringVar(&f.password, "password", "", "LinkedIn 登录密码 (默认读取 LINKEDIN_PASSWORD)")
	fl.StringVar(&f.cookieFile, "cookies", "", "cookie 文件路径")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "输出调试日志")
	fl.StringVar(&f.driver, "driver", "", "浏览器驱动: rod 或 chromedp")
	fl.BoolVar(&f.index, "index", false, "把结果写入 Elasticsearch")

	if err := cmd.Execute(); err != nil {
		slog.Error("运行失败", "error", err)
		os.Exit(1)
	}
}

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
}

// loadConfig 配置文件 < 环境变量 < 命令行参数
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("读取 .env 失败", "error", err)
	}
	cfg, err := config.ParseConfig(appConfig)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	changed := cmd.Flags().Changed
	if f.driver != "" {
		cfg.Driver = f.driver
	}
	if changed("headless") {
		cfg.Rod.Headless = f.headless
		cfg.Chromedp.Headless = f.headless
	}
	if f.email != "" {
		cfg.Auth.Email = f.email
	}
	if f.password != "" {
		cfg.Auth.Password = f.password
	}
	if f.cookieFile != "" {
		cfg.Auth.CookieFile = f.cookieFile
	}
	if f.outputDir != "" {
		cfg.Export.OutputDir = f.outputDir
	}
	if f.format != "" {
		cfg.Export.Format = f.format
	}
	if f.noDetails {
		cfg.Scraper.FetchDetails = false
	}
	if f.index {
		cfg.Elasticsearch.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model.ProfileIndex = cfg.Elasticsearch.Index
	model.EmbeddingDims = cfg.Embedder.Dims
	return cfg, nil
}

func initCrawler(ctx context.Context, cfg *config.Config) (chrome.ChromeCrawler, error) {
	if cfg.Driver == "chromedp" {
		return chrome.InitChromedpCrawler(ctx, cfg)
	}
	return chrome.InitRodCrawler(cfg)
}

func initIndexer(ctx context.Context, cfg *config.Config) (scrape.Indexer, error) {
	esClient, err := es.InitTypedEsClient[*model.ProfileDoc](cfg)
	if err != nil {
		return nil, err
	}
	var embedder embedding.Embedder
	if cfg.Embedder.Enabled {
		embedder, err = embedding.InitEmbedder(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	return sink.InitIndexService[*entity.Record](esClient, embedder), nil
}

func run(cmd *cobra.Command, keywords string, f *flags) error {
	setupLogger(f.verbose)
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	maxResults := f.maxResults
	if limit := cfg.Scraper.MaxProfilesPerSession; limit > 0 && maxResults > limit {
		slog.Warn("超过会话上限, 已截断", "requested", maxResults, "limit", limit)
		maxResults = limit
	}
	opts := param.RunOptions{
		Query: param.SearchQuery{
			Keywords:   keywords,
			Location:   f.location,
			Industry:   f.industry,
			MaxResults: maxResults,
		},
		OutputDir:    cfg.Export.OutputDir,
		Format:       param.ExportFormat(cfg.Export.Format),
		FetchDetails: cfg.Scraper.FetchDetails,
		Index:        cfg.Elasticsearch.Enabled,
	}
	if !opts.IsValid() {
		return fmt.Errorf("无效的参数: 关键词不能为空, 人数必须大于0")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var indexer scrape.Indexer
	if opts.Index {
		if indexer, err = initIndexer(ctx, cfg); err != nil {
			return err
		}
	}

	crawler, err := initCrawler(ctx, cfg)
	if err != nil {
		return err
	}
	defer crawler.Close()

	start := time.Now()
	summary, err := scrape.InitRunner(crawler, indexer, scrape.OptionsFromConfig(cfg)).Run(ctx, opts)
	if err != nil {
		return err
	}
	printSummary(summary, time.Since(start))
	return nil
}

func printSummary(s *scrape.Summary, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("运行结果")
	t.AppendRows([]table.Row{
		{"Run ID", s.RunID},
		{"搜索结果", s.Hits},
		{"导出记录", len(s.Records)},
		{"有邮箱", s.WithEmail},
		{"主页访问", s.Pacing.Requests},
		{"错误", s.Pacing.TotalErrors},
		{"达到会话上限", s.Pacing.LimitReached},
		{"耗时", elapsed.Round(time.Second)},
	})
	if s.Indexed.Indexed > 0 || s.Indexed.Failed > 0 {
		t.AppendRow(table.Row{"索引写入", fmt.Sprintf("%d 成功 / %d 失败", s.Indexed.Indexed, s.Indexed.Failed)})
	}
	for _, file := range s.Files {
		t.AppendRow(table.Row{"文件", file})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
