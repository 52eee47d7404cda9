package model

import (
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

var (
	// 索引名, 可由配置覆盖
	ProfileIndex = "linkedin_profiles"
	// 向量维度, 需与嵌入模型一致
	EmbeddingDims = 768
)

// ProfileDoc 写入Elasticsearch的文档
type ProfileDoc struct {
	PublicID       string    `json:"public_id"`
	RunID          string    `json:"run_id"`
	FullName       string    `json:"full_name"`
	Headline       string    `json:"headline"`
	CurrentCompany string    `json:"current_company"`
	CurrentTitle   string    `json:"current_title"`
	Location       string    `json:"location"`
	Industry       string    `json:"industry"`
	Email          string    `json:"email"`
	ProfileURL     string    `json:"profile_url"`
	Experience     string    `json:"experience"`
	Education      string    `json:"education"`
	Skills         []string  `json:"skills"`
	About          string    `json:"about"`
	Source         string    `json:"source"`
	SearchQuery    string    `json:"search_query"`
	ScrapedAt      time.Time `json:"scraped_at"`
	Embedding      []float32 `json:"embedding,omitempty"`
}

func (d *ProfileDoc) GetID() string {
	return d.PublicID
}

func (d *ProfileDoc) GetIndex() string {
	return ProfileIndex
}

func (d *ProfileDoc) GetTypeMapping() *types.TypeMapping {
	dims := EmbeddingDims
	embedding := types.NewDenseVectorProperty()
	embedding.Dims = &dims

	return &types.TypeMapping{
		Properties: map[string]types.Property{
			"public_id":       types.NewKeywordProperty(),
			"run_id":          types.NewKeywordProperty(),
			"full_name":       types.NewTextProperty(),
			"headline":        types.NewTextProperty(),
			"current_company": types.NewKeywordProperty(),
			"current_title":   types.NewTextProperty(),
			"location":        types.NewKeywordProperty(),
			"industry":        types.NewKeywordProperty(),
			"email":           types.NewKeywordProperty(),
			"profile_url":     types.NewKeywordProperty(),
			"experience":      types.NewTextProperty(),
			"education":       types.NewTextProperty(),
			"skills":          types.NewKeywordProperty(),
			"about":           types.NewTextProperty(),
			"source":          types.NewKeywordProperty(),
			"search_query":    types.NewKeywordProperty(),
			"scraped_at":      types.NewDateProperty(),
			"embedding":       embedding,
		},
	}
}

// GetEmbeddingString 用于生成向量的文本
func (d *ProfileDoc) GetEmbeddingString() string {
	parts := []string{d.FullName, d.Headline, d.CurrentTitle, d.CurrentCompany, d.Experience, d.Education, strings.Join(d.Skills, ", "), d.About}
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

func (d *ProfileDoc) SetEmbedding(embedding []float32) {
	d.Embedding = embedding
}

func (d *ProfileDoc) GetEmbedding() []float32 {
	return d.Embedding
}

func (d *ProfileDoc) SetRunID(runID string) {
	d.RunID = runID
}
