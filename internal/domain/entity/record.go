package entity

import (
	"strings"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/model"
)

// Provenance 记录数据来源
type Provenance string

const (
	// 只有搜索结果
	SourceSearch Provenance = "search"
	// 至少有一个结构化片段
	SourceAPI Provenance = "api"
	// 访问过主页
	SourceProfile Provenance = "profile"
)

const maxAboutRunes = 500

// QueryContext 产生记录的搜索条件
type QueryContext struct {
	Keywords    string
	Location    string
	CompletedAt time.Time
}

// Record 单个实体合并后的最终视图
type Record struct {
	PublicID       string
	FullName       string
	Headline       string
	CurrentCompany string
	CurrentTitle   string
	Location       string
	Industry       string
	Email          string
	Phone          string
	Website        string
	Twitter        string
	ProfileURL     string
	Experiences    []Position
	Education      []Education
	Skills         []string
	Connections    string
	About          string
	Source         Provenance
	SearchQuery    string
	SearchLocation string
	ScrapedAt      time.Time
}

// RecordFromHit 只用搜索结果生成记录
func RecordFromHit(hit SearchHit, qc QueryContext) Record {
	rec := Record{
		PublicID:       hit.PublicID,
		FullName:       hit.FullName,
		Headline:       hit.Headline,
		Location:       hit.Location,
		ProfileURL:     hit.ProfileURL,
		Source:         SourceSearch,
		SearchQuery:    qc.Keywords,
		SearchLocation: qc.Location,
		ScrapedAt:      qc.CompletedAt,
	}
	if rec.ProfileURL == "" {
		rec.ProfileURL = ProfileURL(hit.PublicID)
	}
	return rec
}

func (r *Record) ExperienceSummary() string {
	parts := make([]string, 0, 3)
	for _, p := range r.Experiences {
		if len(parts) == 3 {
			break
		}
		if s := p.Summary(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " | ")
}

func (r *Record) EducationSummary() string {
	parts := make([]string, 0, 2)
	for _, e := range r.Education {
		if len(parts) == 2 {
			break
		}
		if s := e.Summary(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " | ")
}

func (r *Record) SkillsSummary() string {
	return strings.Join(r.Skills[:min(5, len(r.Skills))], ", ")
}

// TruncatedAbout 截断到500个字符
func (r *Record) TruncatedAbout() string {
	runes := []rune(r.About)
	if len(runes) <= maxAboutRunes {
		return r.About
	}
	return string(runes[:maxAboutRunes])
}

// ApplyCurrentRole 用第一条经历填充当前职位和公司
func (r *Record) ApplyCurrentRole() {
	if len(r.Experiences) == 0 {
		return
	}
	if r.CurrentTitle == "" {
		r.CurrentTitle = r.Experiences[0].Title
	}
	if r.CurrentCompany == "" {
		r.CurrentCompany = r.Experiences[0].Company
	}
}

func (r *Record) ToDocument() *model.ProfileDoc {
	return &model.ProfileDoc{
		PublicID:       r.PublicID,
		FullName:       r.FullName,
		Headline:       r.Headline,
		CurrentCompany: r.CurrentCompany,
		CurrentTitle:   r.CurrentTitle,
		Location:       r.Location,
		Industry:       r.Industry,
		Email:          r.Email,
		ProfileURL:     r.ProfileURL,
		Experience:     r.ExperienceSummary(),
		Education:      r.EducationSummary(),
		Skills:         append([]string(nil), r.Skills...),
		About:          r.TruncatedAbout(),
		Source:         string(r.Source),
		SearchQuery:    r.SearchQuery,
		ScrapedAt:      r.ScrapedAt,
	}
}
