package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/LouYuanbo1/profilecrawler/param"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	OutputDir string
	Format    param.ExportFormat
	Keywords  string
	Location  string
	// 为零值时使用当前时间
	Now time.Time
}

// Export 写出CSV和/或Excel文件, 返回创建的文件路径; 没有记录时不创建文件
func Export(ctx context.Context, records []entity.Record, opts Options) ([]string, error) {
	if len(records) == 0 {
		slog.WarnContext(ctx, "没有可导出的记录")
		return nil, nil
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	base := filepath.Join(opts.OutputDir, BaseName(opts.Keywords, opts.Location, now))
	data := rows(records)

	var paths []string
	g, _ := errgroup.WithContext(ctx)
	if opts.Format == param.FormatCSV || opts.Format == param.FormatBoth {
		path := base + ".csv"
		paths = append(paths, path)
		g.Go(func() error {
			if err := writeCSV(path, data); err != nil {
				return err
			}
			slog.InfoContext(ctx, "CSV已导出", "path", path, "rows", len(data))
			return nil
		})
	}
	if opts.Format == param.FormatExcel || opts.Format == param.FormatBoth {
		path := base + ".xlsx"
		paths = append(paths, path)
		summary := summarize(data, opts.Keywords, opts.Location, now)
		g.Go(func() error {
			if err := writeExcel(path, data, summary); err != nil {
				return err
			}
			slog.InfoContext(ctx, "Excel已导出", "path", path, "rows", len(data))
			return nil
		})
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("不支持的导出格式: %q", opts.Format)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
