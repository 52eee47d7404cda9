package interceptor

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/types"
	"github.com/buger/jsonparser"
)

// Voyager 内部接口的路径前缀
const VoyagerNamespace = "/voyager/api/"

// Family 接口族
type Family int

const (
	FamilyNone Family = iota
	FamilySearch
	FamilyContact
	FamilySkills
	FamilyIdentity
)

func (f Family) String() string {
	switch f {
	case FamilySearch:
		return "search"
	case FamilyContact:
		return "contact"
	case FamilySkills:
		return "skills"
	case FamilyIdentity:
		return "identity"
	default:
		return "none"
	}
}

var (
	miniProfileURNRe = regexp.MustCompile(`fs_miniProfile:(.+)`)
	contactPathRe    = regexp.MustCompile(`/profiles/([^/]+)/profileContactInfo`)
)

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// FamilyOf 根据URL判断接口族, 各接口族互斥, 结果与判断顺序无关
func FamilyOf(url string) Family {
	u := strings.ToLower(url)
	if !strings.Contains(u, VoyagerNamespace) {
		return FamilyNone
	}

	search := strings.Contains(u, "search") && containsAny(u, "clusters", "blended", "people")
	contact := !search && strings.Contains(u, "contactinfo")
	skills := !search && !contact && containsAny(u, "normskills", "/skills", "featuredbysection")
	identity := !search && !contact && !skills &&
		strings.Contains(u, "/identity/") && containsAny(u, "profile", "position", "education", "dash")

	switch {
	case search:
		return FamilySearch
	case contact:
		return FamilyContact
	case skills:
		return FamilySkills
	case identity:
		return FamilyIdentity
	default:
		return FamilyNone
	}
}

// Classify 将一个网络响应解析为零个或多个片段
// 任何无法识别或格式错误的输入都返回nil, 不会返回错误
func Classify(resp *types.NetworkResponse) []entity.Fragment {
	if resp == nil {
		return nil
	}
	family := FamilyOf(resp.Url)
	if family == FamilyNone {
		return nil
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 || body[0] != '{' || !json.Valid(body) {
		slog.Debug("忽略非JSON对象响应", "url", resp.Url, "family", family, "size", len(body))
		return nil
	}

	var frags []entity.Fragment
	switch family {
	case FamilySearch:
		frags = parseSearch(body)
	case FamilyContact:
		frags = parseContact(resp.Url, body)
	case FamilySkills:
		frags = parseSkills(body)
	case FamilyIdentity:
		frags = parseIdentity(body)
	}
	if len(frags) == 0 {
		slog.Debug("响应中未解析出片段", "url", resp.Url, "family", family)
	}
	return frags
}

// str 读取字符串字段, 缺失或类型不符时返回空串
func str(data []byte, keys ...string) string {
	s, err := jsonparser.GetString(data, keys...)
	if err != nil {
		return ""
	}
	return s
}

// firstStr 返回第一个非空的字符串字段
func firstStr(data []byte, paths ...[]string) string {
	for _, p := range paths {
		if s := str(data, p...); s != "" {
			return s
		}
	}
	return ""
}

func valueOf(data []byte, keys ...string) ([]byte, jsonparser.ValueType) {
	v, typ, _, err := jsonparser.Get(data, keys...)
	if err != nil {
		return nil, jsonparser.NotExist
	}
	return v, typ
}

// eachIncluded 遍历 included 数组中的对象
func eachIncluded(body []byte, fn func(item []byte)) {
	_, _ = jsonparser.ArrayEach(body, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if err != nil || dataType != jsonparser.Object {
			return
		}
		fn(value)
	}, "included")
}

func typeOf(item []byte) string {
	return firstStr(item, []string{"$type"}, []string{"_type"})
}

func parseSearch(body []byte) []entity.Fragment {
	var frags []entity.Fragment
	seen := make(map[string]struct{})
	add := func(mini []byte) {
		hit := miniProfile(mini)
		if hit == nil {
			return
		}
		if _, ok := seen[hit.PublicID]; ok {
			return
		}
		seen[hit.PublicID] = struct{}{}
		frags = append(frags, hit)
	}

	eachIncluded(body, func(item []byte) {
		recipe := typeOf(item)
		if strings.Contains(recipe, "MiniProfile") || strings.Contains(recipe, "miniProfile") {
			add(item)
			return
		}
		if mini, typ := valueOf(item, "miniProfile"); typ == jsonparser.Object {
			add(mini)
			return
		}
		if mini, typ := valueOf(item, "hitInfo", "com.linkedin.voyager.search.SearchProfile", "miniProfile"); typ == jsonparser.Object {
			add(mini)
		}
	})
	return frags
}

func miniProfile(item []byte) *entity.SearchHit {
	publicID := firstStr(item, []string{"publicIdentifier"}, []string{"public_id"})
	if publicID == "" {
		if m := miniProfileURNRe.FindStringSubmatch(str(item, "entityUrn")); m != nil {
			publicID = m[1]
		}
	}
	if publicID == "" {
		return nil
	}
	return &entity.SearchHit{
		PublicID:   publicID,
		FullName:   fullName(item),
		Headline:   firstStr(item, []string{"occupation"}, []string{"headline"}),
		Location:   str(item, "locationName"),
		ProfileURL: entity.ProfileURL(publicID),
	}
}

func fullName(item []byte) string {
	return strings.TrimSpace(str(item, "firstName") + " " + str(item, "lastName"))
}

func parseIdentity(body []byte) []entity.Fragment {
	var frags []entity.Fragment
	eachIncluded(body, func(item []byte) {
		typ := typeOf(item)
		if strings.Contains(typ, "Profile") {
			if detail := profileDetail(item); detail != nil {
				frags = append(frags, detail)
			}
		}
		if strings.Contains(typ, "Position") {
			if pos := position(item); pos != nil {
				frags = append(frags, pos)
			}
		}
		if strings.Contains(typ, "Education") {
			if edu := education(item); edu != nil {
				frags = append(frags, edu)
			}
		}
	})
	return frags
}

func profileDetail(item []byte) *entity.ProfileDetail {
	publicID := str(item, "publicIdentifier")
	if publicID == "" {
		return nil
	}
	return &entity.ProfileDetail{
		PublicID:    publicID,
		FullName:    fullName(item),
		Headline:    str(item, "headline"),
		Location:    firstStr(item, []string{"locationName"}, []string{"geoLocationName"}),
		Industry:    firstStr(item, []string{"industryName"}, []string{"industry"}),
		About:       str(item, "summary"),
		Connections: connections(item),
		MemberURN:   str(item, "entityUrn"),
	}
}

func connections(item []byte) string {
	v, typ := valueOf(item, "connections")
	switch typ {
	case jsonparser.Object:
		total, err := jsonparser.GetInt(v, "paging", "total")
		if err != nil {
			return ""
		}
		return strconv.FormatInt(total, 10)
	case jsonparser.Number:
		f, err := jsonparser.ParseFloat(v)
		if err != nil {
			return ""
		}
		return strconv.FormatInt(int64(f), 10)
	default:
		return ""
	}
}

func position(item []byte) *entity.Position {
	company := ""
	v, typ := valueOf(item, "company")
	if typ == jsonparser.NotExist || typ == jsonparser.Null {
		v, typ = valueOf(item, "companyName")
	}
	switch typ {
	case jsonparser.Object:
		company = firstStr(v, []string{"miniCompany", "name"}, []string{"name"})
	case jsonparser.String:
		if s, err := jsonparser.ParseString(v); err == nil {
			company = s
		}
	}

	pos := &entity.Position{
		Title:     str(item, "title"),
		Company:   company,
		Location:  str(item, "locationName"),
		DateRange: dateRange(item),
		OwnerURN:  str(item, "entityUrn"),
	}
	if pos.Title == "" && pos.Company == "" {
		return nil
	}
	return pos
}

func education(item []byte) *entity.Education {
	edu := &entity.Education{
		School:       firstStr(item, []string{"schoolName"}, []string{"school", "name"}),
		Degree:       str(item, "degreeName"),
		FieldOfStudy: str(item, "fieldOfStudy"),
		DateRange:    dateRange(item),
		OwnerURN:     str(item, "entityUrn"),
	}
	if edu.School == "" && edu.Degree == "" {
		return nil
	}
	return edu
}

// dateRange 格式: "M/YYYY - M/YYYY", 没有月份时只有年份, 没有结束日期时为 "Present"
func dateRange(item []byte) string {
	period, typ := valueOf(item, "timePeriod")
	if typ != jsonparser.Object || isEmptyObject(period) {
		return ""
	}

	var parts []string
	if start, typ := valueOf(period, "startDate"); typ == jsonparser.Object && !isEmptyObject(start) {
		parts = append(parts, datePart(start))
	}
	if end, typ := valueOf(period, "endDate"); typ == jsonparser.Object && !isEmptyObject(end) {
		parts = append(parts, datePart(end))
	} else {
		parts = append(parts, "Present")
	}
	return strings.Join(parts, " - ")
}

func datePart(date []byte) string {
	year := ""
	if y, err := jsonparser.GetInt(date, "year"); err == nil {
		year = strconv.FormatInt(y, 10)
	}
	if m, err := jsonparser.GetInt(date, "month"); err == nil && m > 0 {
		return strconv.FormatInt(m, 10) + "/" + year
	}
	return year
}

func isEmptyObject(obj []byte) bool {
	empty := true
	_ = jsonparser.ObjectEach(obj, func([]byte, []byte, jsonparser.ValueType, int) error {
		empty = false
		return nil
	})
	return empty
}

func parseContact(url string, body []byte) []entity.Fragment {
	publicID := ""
	if m := contactPathRe.FindStringSubmatch(url); m != nil {
		publicID = m[1]
	}

	payload := body
	if data, typ := valueOf(body, "data"); typ == jsonparser.Object {
		payload = data
	}

	contact := &entity.ContactInfo{PublicID: publicID}

	switch v, typ := valueOf(payload, "emailAddress"); typ {
	case jsonparser.String:
		contact.Email, _ = jsonparser.ParseString(v)
	case jsonparser.Object:
		contact.Email = str(v, "emailAddress")
	}

	contact.Phone = firstElement(payload, "phoneNumbers", "number")
	contact.Website = firstElement(payload, "websites", "url")
	if handle := firstElement(payload, "twitterHandles", "name"); handle != "" {
		contact.Twitter = "https://twitter.com/" + handle
	}
	if contact.IsEmpty() {
		return nil
	}
	return []entity.Fragment{contact}
}

// firstElement 读取数组第一个元素: 对象时取 field 字段, 否则取其字面值
func firstElement(payload []byte, array, field string) string {
	v, typ := valueOf(payload, array, "[0]")
	switch typ {
	case jsonparser.Object:
		return str(v, field)
	case jsonparser.String:
		s, _ := jsonparser.ParseString(v)
		return s
	case jsonparser.Number:
		return string(v)
	default:
		return ""
	}
}

func parseSkills(body []byte) []entity.Fragment {
	var names []string
	eachIncluded(body, func(item []byte) {
		if name := str(item, "name"); name != "" {
			names = append(names, name)
		}
	})
	if len(names) == 0 {
		return nil
	}
	return []entity.Fragment{&entity.SkillList{Names: names}}
}
