package markup

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/PuerkitoBio/goquery"
)

var (
	innerWhitespace = regexp.MustCompile(`\s\s+`)
	publicIDRe      = regexp.MustCompile(`/in/([^/?#]+)`)
	// 自定义地址末尾常见的数字/十六进制后缀, 例如 jane-doe-1a2b3c
	slugSuffixRe = regexp.MustCompile(`-[0-9a-f]*[0-9][0-9a-f]*$`)
	digitRe      = regexp.MustCompile(`\d`)
)

const (
	maxExperiences = 5
	maxEducation   = 3
	maxSkills      = 10
	minAboutLen    = 10
)

// Document 页面快照, 所有提取都在内存中完成, 不再访问浏览器
type Document struct {
	doc *goquery.Document
}

func Parse(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	return &Document{doc: doc}, nil
}

func clean(s string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}

func firstText(sel *goquery.Selection, selector string) string {
	return clean(sel.Find(selector).First().Text())
}

// PublicIDFromURL 从主页地址中取出 public id
func PublicIDFromURL(href string) string {
	m := publicIDRe.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[1]
}

// GuessNameFromID 页面上没有名字时根据地址猜测, jane-doe-1a2b3c -> Jane Doe
func GuessNameFromID(publicID string) string {
	slug := slugSuffixRe.ReplaceAllString(strings.ToLower(publicID), "")
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// SearchHits 解析搜索结果列表, 忽略没有主页链接的条目
func (d *Document) SearchHits() []entity.SearchHit {
	var hits []entity.SearchHit
	seen := make(map[string]struct{})
	d.doc.Find(SearchResultItem).Each(func(_ int, item *goquery.Selection) {
		href, _ := item.Find(ResultProfileLink).First().Attr("href")
		id := PublicIDFromURL(href)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}

		name := firstText(item, ResultName)
		if name == "" {
			name = GuessNameFromID(id)
		}
		hits = append(hits, entity.SearchHit{
			PublicID:   id,
			FullName:   name,
			Headline:   firstText(item, ResultHeadline),
			Location:   firstText(item, ResultLocation),
			ProfileURL: entity.ProfileURL(id),
		})
	})
	return hits
}

func (d *Document) Name() string {
	return firstText(d.doc.Selection, ProfileName)
}

func (d *Document) Headline() string {
	return firstText(d.doc.Selection, ProfileHeadline)
}

func (d *Document) Location() string {
	return firstText(d.doc.Selection, ProfileLocation)
}

func (d *Document) Connections() string {
	return firstText(d.doc.Selection, ProfileConnections)
}

// About 过短的文本通常是截断的占位符, 会被忽略
func (d *Document) About() string {
	section := d.doc.Find(AboutSection).First()
	if section.Length() == 0 {
		return ""
	}
	for _, selector := range aboutTextCandidates {
		if text := firstText(section, selector); len(text) > minAboutLen {
			return text
		}
	}
	return ""
}

func (d *Document) Experiences() []entity.Position {
	var out []entity.Position
	d.doc.Find(ExperienceSection).First().Find(SectionItem).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := firstText(item, ItemTitle)
		company := firstText(item, ItemSubtitle)
		if title != "" || company != "" {
			out = append(out, entity.Position{
				Title:     title,
				Company:   company,
				DateRange: firstText(item, ItemDateRange),
			})
		}
		return len(out) < maxExperiences
	})
	return out
}

func (d *Document) Education() []entity.Education {
	var out []entity.Education
	d.doc.Find(EducationSection).First().Find(SectionItem).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if school := firstText(item, ItemTitle); school != "" {
			out = append(out, entity.Education{
				School:    school,
				Degree:    firstText(item, ItemSubtitle),
				DateRange: firstText(item, ItemDateRange),
			})
		}
		return len(out) < maxEducation
	})
	return out
}

func (d *Document) Skills() []string {
	var out []string
	d.doc.Find(SkillItems).EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= maxSkills {
			return false
		}
		text := clean(item.Text())
		if text != "" && !slices.Contains(out, text) {
			out = append(out, text)
		}
		return true
	})
	return out
}

// Email 只在联系方式浮层打开时的快照中存在
func (d *Document) Email() string {
	el := d.doc.Find(ContactEmail).First()
	if el.Length() == 0 {
		return ""
	}
	if href, ok := el.Attr("href"); ok && strings.HasPrefix(href, "mailto:") {
		return strings.TrimSpace(strings.TrimPrefix(href, "mailto:"))
	}
	if text := clean(el.Text()); strings.Contains(text, "@") {
		return text
	}
	return ""
}

func (d *Document) Phone() string {
	text := firstText(d.doc.Selection, ContactPhone)
	if !digitRe.MatchString(text) {
		return ""
	}
	return text
}

func (d *Document) Website() string {
	el := d.doc.Find(ContactWebsite).First()
	if href, ok := el.Attr("href"); ok && href != "" {
		return strings.TrimSpace(href)
	}
	return clean(el.Text())
}
