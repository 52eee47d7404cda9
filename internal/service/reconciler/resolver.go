package reconciler

import (
	"regexp"
	"strings"
)

// Attribution 描述子片段的归属是如何确定的
type Attribution int

const (
	AttributedNone Attribution = iota
	// 引用标识匹配到了已知实体
	AttributedMatch
	// 未匹配, 归属于当前焦点实体
	AttributedFocus
)

func (a Attribution) String() string {
	switch a {
	case AttributedMatch:
		return "match"
	case AttributedFocus:
		return "focus"
	default:
		return "none"
	}
}

// urn:li:fs_position:(ACoAABxxxxxxx,123456) -> ACoAABxxxxxxx
var ownerTokenRe = regexp.MustCompile(`\(([^,)]+)`)

// Known 已知实体及其引用标识(ProfileDetail 中的 entityUrn)
type Known struct {
	PublicID  string
	MemberURN string
}

// OwnerToken 提取复合URN的第一个成员标识, 无法提取时返回空串
func OwnerToken(urn string) string {
	m := ownerTokenRe.FindStringSubmatch(urn)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// MatchOwner 按子串包含关系在已知实体中查找, 第一个匹配的胜出
func MatchOwner(token string, known []Known) (string, bool) {
	if token == "" {
		return "", false
	}
	for _, k := range known {
		if k.MemberURN != "" && strings.Contains(k.MemberURN, token) {
			return k.PublicID, true
		}
	}
	return "", false
}

// ResolveOwner 推断子片段的归属实体
// 未匹配时回退到焦点实体(最近创建的实体); 这是尽力而为的启发式,
// 多个实体的响应交错到达时可能归属错误
func ResolveOwner(urn string, known []Known, focus string) (string, Attribution) {
	if id, ok := MatchOwner(OwnerToken(urn), known); ok {
		return id, AttributedMatch
	}
	if focus != "" {
		return focus, AttributedFocus
	}
	return "", AttributedNone
}
