package reconciler

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
)

// 等待归属的孤立片段上限
const maxOrphans = 256

type profileState struct {
	detail    *entity.ProfileDetail
	positions []entity.Position
	education []entity.Education
	contact   *entity.ContactInfo
	skills    []string
}

func (ps *profileState) structured() bool {
	return ps.detail != nil ||
		len(ps.positions) > 0 ||
		len(ps.education) > 0 ||
		(ps.contact != nil && !ps.contact.IsEmpty()) ||
		len(ps.skills) > 0
}

// Store 会话内的片段存储与合并
// 片段由监听协程写入, 驱动协程读取, 所有访问都在同一把锁下进行
type Store struct {
	mu sync.RWMutex

	hits   []entity.SearchHit
	hitIDs map[string]struct{}

	profiles map[string]*profileState
	// 按创建顺序排列的已定义实体(收到过 ProfileDetail)
	known []Known
	// 最近创建的实体, 用于无法匹配归属的片段
	focus string
	// 在任何实体出现之前到达、带有成员标识的经历/教育片段
	orphans []entity.Fragment

	// 每次写入后关闭并替换, 用于唤醒等待者
	changed chan struct{}
}

func NewStore() *Store {
	return &Store{
		hitIDs:   make(map[string]struct{}),
		profiles: make(map[string]*profileState),
		changed:  make(chan struct{}),
	}
}

func (s *Store) state(id string) *profileState {
	ps, ok := s.profiles[id]
	if !ok {
		ps = &profileState{}
		s.profiles[id] = ps
	}
	return ps
}

func (s *Store) broadcast() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Ingest 合并一个片段; 重复合并同一片段结果不变
func (s *Store) Ingest(frag entity.Fragment) {
	if frag == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.broadcast()

	switch f := frag.(type) {
	case *entity.SearchHit:
		s.ingestHit(f)
	case *entity.ProfileDetail:
		s.ingestDetail(f)
	case *entity.Position:
		s.ingestChild(f, f.OwnerURN)
	case *entity.Education:
		s.ingestChild(f, f.OwnerURN)
	case *entity.ContactInfo:
		s.ingestContact(f)
	case *entity.SkillList:
		s.ingestSkills(f)
	default:
		slog.Debug("未知片段类型", "kind", frag.Kind())
	}
}

func (s *Store) ingestHit(hit *entity.SearchHit) {
	if hit.PublicID == "" {
		return
	}
	if _, ok := s.hitIDs[hit.PublicID]; ok {
		return
	}
	s.hitIDs[hit.PublicID] = struct{}{}
	s.hits = append(s.hits, *hit)
}

func (s *Store) ingestDetail(d *entity.ProfileDetail) {
	if d.PublicID == "" {
		return
	}
	ps := s.state(d.PublicID)
	if ps.detail == nil {
		detail := *d
		ps.detail = &detail
		s.known = append(s.known, Known{PublicID: d.PublicID, MemberURN: d.MemberURN})
		s.focus = d.PublicID
		s.adoptOrphans(d.PublicID, d.MemberURN)
		return
	}

	mergeDetail(ps.detail, d)
	if d.MemberURN != "" {
		for i := range s.known {
			if s.known[i].PublicID == d.PublicID {
				s.known[i].MemberURN = ps.detail.MemberURN
			}
		}
		s.adoptOrphans(d.PublicID, ps.detail.MemberURN)
	}
}

// mergeDetail 新值非空时覆盖旧值
func mergeDetail(dst, src *entity.ProfileDetail) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&dst.FullName, src.FullName)
	set(&dst.Headline, src.Headline)
	set(&dst.Location, src.Location)
	set(&dst.Industry, src.Industry)
	set(&dst.About, src.About)
	set(&dst.Connections, src.Connections)
	set(&dst.MemberURN, src.MemberURN)
}

func (s *Store) adoptOrphans(id, memberURN string) {
	if len(s.orphans) == 0 || memberURN == "" {
		return
	}
	only := []Known{{PublicID: id, MemberURN: memberURN}}
	kept := s.orphans[:0]
	for _, frag := range s.orphans {
		if _, ok := MatchOwner(OwnerToken(ownerURN(frag)), only); ok {
			s.attach(id, frag)
			continue
		}
		kept = append(kept, frag)
	}
	s.orphans = kept
}

func ownerURN(frag entity.Fragment) string {
	switch f := frag.(type) {
	case *entity.Position:
		return f.OwnerURN
	case *entity.Education:
		return f.OwnerURN
	}
	return ""
}

func (s *Store) ingestChild(frag entity.Fragment, urn string) {
	owner, how := ResolveOwner(urn, s.known, s.focus)
	if how == AttributedNone {
		if OwnerToken(urn) != "" && len(s.orphans) < maxOrphans {
			s.orphans = append(s.orphans, frag)
			slog.Debug("片段暂存, 等待实体出现", "kind", frag.Kind(), "urn", urn)
			return
		}
		slog.Debug("片段无法归属, 已丢弃", "kind", frag.Kind(), "urn", urn)
		return
	}
	if how == AttributedFocus {
		slog.Debug("片段归属于焦点实体", "kind", frag.Kind(), "urn", urn, "owner", owner)
	}
	s.attach(owner, frag)
}

func (s *Store) attach(id string, frag entity.Fragment) {
	ps := s.state(id)
	switch f := frag.(type) {
	case *entity.Position:
		p := *f
		if !slices.Contains(ps.positions, p) {
			ps.positions = append(ps.positions, p)
		}
	case *entity.Education:
		e := *f
		if !slices.Contains(ps.education, e) {
			ps.education = append(ps.education, e)
		}
	}
}

// ingestContact 空的联系方式不覆盖已有数据
func (s *Store) ingestContact(c *entity.ContactInfo) {
	if c.IsEmpty() {
		return
	}
	id := c.PublicID
	if id == "" {
		id = s.focus
	}
	if id == "" {
		slog.Debug("联系方式无法归属, 已丢弃")
		return
	}
	contact := *c
	contact.PublicID = id
	s.state(id).contact = &contact
}

func (s *Store) ingestSkills(sl *entity.SkillList) {
	if len(sl.Names) == 0 {
		return
	}
	if s.focus == "" {
		slog.Debug("技能列表无法归属, 已丢弃", "skills", len(sl.Names))
		return
	}
	s.state(s.focus).skills = slices.Clone(sl.Names)
}

// Finalize 根据当前存储状态生成合并后的记录, 不修改存储
// 结构化数据优先于搜索结果
func (s *Store) Finalize(id string, hit *entity.SearchHit, qc entity.QueryContext) entity.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if hit == nil {
		if i := slices.IndexFunc(s.hits, func(h entity.SearchHit) bool { return h.PublicID == id }); i >= 0 {
			h := s.hits[i]
			hit = &h
		} else {
			hit = &entity.SearchHit{PublicID: id}
		}
	}

	h := *hit
	h.PublicID = id
	rec := entity.RecordFromHit(h, qc)

	ps, ok := s.profiles[id]
	if !ok {
		return rec
	}

	prefer := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	if d := ps.detail; d != nil {
		prefer(&rec.FullName, d.FullName)
		prefer(&rec.Headline, d.Headline)
		prefer(&rec.Location, d.Location)
		rec.Industry = d.Industry
		rec.About = d.About
		rec.Connections = d.Connections
	}
	if c := ps.contact; c != nil {
		rec.Email = c.Email
		rec.Phone = c.Phone
		rec.Website = c.Website
		rec.Twitter = c.Twitter
	}
	rec.Experiences = slices.Clone(ps.positions)
	rec.Education = slices.Clone(ps.education)
	rec.Skills = slices.Clone(ps.skills)
	rec.ApplyCurrentRole()

	if ps.structured() {
		rec.Source = entity.SourceAPI
	}
	return rec
}

// SearchHits 按发现顺序遍历搜索结果
// 遍历反映调用时的实时状态, 可重复遍历
func (s *Store) SearchHits() iter.Seq[entity.SearchHit] {
	return func(yield func(entity.SearchHit) bool) {
		for i := 0; ; i++ {
			s.mu.RLock()
			if i >= len(s.hits) {
				s.mu.RUnlock()
				return
			}
			hit := s.hits[i]
			s.mu.RUnlock()
			if !yield(hit) {
				return
			}
		}
	}
}

func (s *Store) SearchHitCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hits)
}

func (s *Store) HasDetail(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, ok := s.profiles[id]
	return ok && ps.detail != nil
}

// Focus 返回当前焦点实体
func (s *Store) Focus() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.focus
}

func (s *Store) changedCh() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// WaitFor 等待 cond 成立, 最多等待 timeout; 每次写入后重新检查
func (s *Store) WaitFor(ctx context.Context, timeout time.Duration, cond func() bool) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		ch := s.changedCh()
		if cond() {
			return true
		}
		select {
		case <-ch:
		case <-timer.C:
			return cond()
		case <-ctx.Done():
			return false
		}
	}
}

// WaitForDetail 等待实体的 ProfileDetail 到达
func (s *Store) WaitForDetail(ctx context.Context, id string, timeout time.Duration) bool {
	return s.WaitFor(ctx, timeout, func() bool { return s.HasDetail(id) })
}

// WaitForSearchHits 等待搜索结果数量达到 n
func (s *Store) WaitForSearchHits(ctx context.Context, n int, timeout time.Duration) bool {
	return s.WaitFor(ctx, timeout, func() bool { return s.SearchHitCount() >= n })
}
