package entity

import "fmt"

// FragmentKind 标识一个片段的种类
type FragmentKind string

const (
	KindSearchHit     FragmentKind = "search_hit"
	KindProfileDetail FragmentKind = "profile_detail"
	KindPosition      FragmentKind = "position"
	KindEducation     FragmentKind = "education"
	KindContact       FragmentKind = "contact"
	KindSkills        FragmentKind = "skills"
)

// Fragment 是从单个网络响应中解析出的某个实体的部分数据
// 具体类型为 *SearchHit, *ProfileDetail, *Position, *Education, *ContactInfo, *SkillList
type Fragment interface {
	Kind() FragmentKind
}

// SearchHit 搜索结果中发现的一个实体
type SearchHit struct {
	PublicID   string `json:"public_id"`
	FullName   string `json:"full_name"`
	Headline   string `json:"headline"`
	Location   string `json:"location"`
	ProfileURL string `json:"profile_url"`
}

func (*SearchHit) Kind() FragmentKind { return KindSearchHit }

// ProfileDetail 个人主页的结构化详情
// MemberURN 用于子片段(经历/教育)的归属判断
type ProfileDetail struct {
	PublicID    string `json:"public_id"`
	FullName    string `json:"full_name"`
	Headline    string `json:"headline"`
	Location    string `json:"location"`
	Industry    string `json:"industry"`
	About       string `json:"about"`
	Connections string `json:"connections"`
	MemberURN   string `json:"member_urn"`
}

func (*ProfileDetail) Kind() FragmentKind { return KindProfileDetail }

// Position 一条工作经历, 本身没有实体标识, 通过 OwnerURN 推断归属
type Position struct {
	Title     string `json:"title"`
	Company   string `json:"company"`
	Location  string `json:"location"`
	DateRange string `json:"date_range"`
	OwnerURN  string `json:"-"`
}

func (*Position) Kind() FragmentKind { return KindPosition }

// Summary 返回 "title @ company"
func (p Position) Summary() string {
	switch {
	case p.Title != "" && p.Company != "":
		return p.Title + " @ " + p.Company
	case p.Title != "":
		return p.Title
	default:
		return p.Company
	}
}

// Education 一条教育经历
type Education struct {
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
	DateRange    string `json:"date_range"`
	OwnerURN     string `json:"-"`
}

func (*Education) Kind() FragmentKind { return KindEducation }

// Summary 返回 "degree field - school"
func (e Education) Summary() string {
	credential := e.Degree
	if e.FieldOfStudy != "" {
		if credential != "" {
			credential += " "
		}
		credential += e.FieldOfStudy
	}
	switch {
	case credential != "" && e.School != "":
		return credential + " - " + e.School
	case credential != "":
		return credential
	default:
		return e.School
	}
}

// ContactInfo 联系方式; PublicID 可能为空(无法从响应地址中推断)
type ContactInfo struct {
	PublicID string `json:"public_id"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
	Twitter  string `json:"twitter"`
}

func (*ContactInfo) Kind() FragmentKind { return KindContact }

// IsEmpty 所有字段均为空
func (c ContactInfo) IsEmpty() bool {
	return c.Email == "" && c.Phone == "" && c.Website == "" && c.Twitter == ""
}

// SkillList 技能列表, 没有实体标识, 总是归属于当前焦点实体
type SkillList struct {
	Names []string `json:"names"`
}

func (*SkillList) Kind() FragmentKind { return KindSkills }

// ProfileURL 返回实体的规范主页地址
func ProfileURL(publicID string) string {
	return fmt.Sprintf("https://www.linkedin.com/in/%s/", publicID)
}
