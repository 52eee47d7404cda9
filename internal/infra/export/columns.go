package export

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
)

type category string

const (
	catIdentity     category = "identity"
	catContact      category = "contact"
	catProfessional category = "professional"
	catAbout        category = "about"
	catMeta         category = "meta"
)

type column struct {
	label    string
	category category
	width    float64
	value    func(r *entity.Record) string
}

var columns = []column{
	{"Full Name", catIdentity, 24, func(r *entity.Record) string { return r.FullName }},
	{"Headline", catIdentity, 38, func(r *entity.Record) string { return r.Headline }},
	{"Company", catIdentity, 26, func(r *entity.Record) string { return r.CurrentCompany }},
	{"Location", catIdentity, 22, func(r *entity.Record) string { return r.Location }},
	{"Industry", catIdentity, 22, func(r *entity.Record) string { return r.Industry }},
	{"Email", catContact, 32, func(r *entity.Record) string { return r.Email }},
	{"Phone", catContact, 20, func(r *entity.Record) string { return r.Phone }},
	{"Website", catContact, 32, func(r *entity.Record) string { return r.Website }},
	{"LinkedIn URL", catContact, 42, func(r *entity.Record) string { return r.ProfileURL }},
	{"Current Title", catProfessional, 28, func(r *entity.Record) string { return r.CurrentTitle }},
	{"Experience", catProfessional, 55, (*entity.Record).ExperienceSummary},
	{"Education", catProfessional, 42, (*entity.Record).EducationSummary},
	{"Top Skills", catProfessional, 38, (*entity.Record).SkillsSummary},
	{"Connections", catProfessional, 14, func(r *entity.Record) string { return r.Connections }},
	{"About", catAbout, 55, (*entity.Record).TruncatedAbout},
	{"Source", catMeta, 10, func(r *entity.Record) string { return string(r.Source) }},
	{"Search Query", catMeta, 20, func(r *entity.Record) string { return r.SearchQuery }},
	{"Search Location", catMeta, 18, func(r *entity.Record) string { return r.SearchLocation }},
	{"Scraped At", catMeta, 22, func(r *entity.Record) string { return formatTime(r.ScrapedAt) }},
}

// 列下标, 从0开始
var (
	colName    = columnIndex("Full Name")
	colEmail   = columnIndex("Email")
	colPhone   = columnIndex("Phone")
	colWebsite = columnIndex("Website")
	colURL     = columnIndex("LinkedIn URL")
	colSource  = columnIndex("Source")
)

func columnIndex(label string) int {
	return slices.IndexFunc(columns, func(c column) bool { return c.label == label })
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func header() []string {
	labels := make([]string, len(columns))
	for i, c := range columns {
		labels[i] = c.label
	}
	return labels
}

// rows 展开记录, 有邮箱的排在前面, 其次按姓名排序
func rows(records []entity.Record) [][]string {
	out := make([][]string, 0, len(records))
	for i := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = strings.TrimSpace(c.value(&records[i]))
		}
		out = append(out, row)
	}
	slices.SortStableFunc(out, func(a, b []string) int {
		aMissing, bMissing := a[colEmail] == "", b[colEmail] == ""
		if aMissing != bMissing {
			if aMissing {
				return 1
			}
			return -1
		}
		return cmp.Compare(a[colName], b[colName])
	})
	return out
}

var (
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	spaces      = regexp.MustCompile(`\s+`)
)

const maxBaseName = 100

// BaseName 输出文件名(不含扩展名): linkedin_{keywords}_{location}_{timestamp}
func BaseName(keywords, location string, at time.Time) string {
	raw := "linkedin_" + keywords + "_" + location + "_" + at.Format("20060102_150405")
	safe := strings.ToLower(strings.TrimSpace(raw))
	safe = unsafeChars.ReplaceAllString(safe, "")
	safe = spaces.ReplaceAllString(safe, "_")
	runes := []rune(safe)
	if len(runes) > maxBaseName {
		runes = runes[:maxBaseName]
	}
	return string(runes)
}
