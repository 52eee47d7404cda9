package param

import "strings"

// SearchQuery 一次人员搜索的条件
type SearchQuery struct {
	Keywords   string `json:"keywords"`
	Location   string `json:"location"`
	Industry   string `json:"industry"`
	MaxResults int    `json:"max_results"`
}

func (sq *SearchQuery) IsValid() bool {
	return strings.TrimSpace(sq.Keywords) != "" && sq.MaxResults > 0
}

type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "excel"
	FormatBoth  ExportFormat = "both"
)

// RunOptions 一次运行的参数, 由命令行覆盖配置文件得到
type RunOptions struct {
	Query     SearchQuery
	OutputDir string
	Format    ExportFormat
	// 为false时只导出搜索结果, 不访问个人主页
	FetchDetails bool
	// 写入Elasticsearch
	Index bool
}

func (ro *RunOptions) IsValid() bool {
	if !ro.Query.IsValid() || ro.OutputDir == "" {
		return false
	}
	switch ro.Format {
	case FormatCSV, FormatExcel, FormatBoth:
		return true
	default:
		return false
	}
}
