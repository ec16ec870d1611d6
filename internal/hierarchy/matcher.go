package hierarchy

import (
	"fmt"

	"tenureline/internal/domain"
)

// Matcher resolves a free-text post description into hierarchy paths, one
// taxonomy per post field. Selection is deterministic, which tenure
// continuity depends on: the same text must always resolve to the same
// post identity.
type Matcher struct {
	hierarchies map[string]*Hierarchy
	opts        MatchOptions
	defaultRole []string
}

// NewMatcher loads the given taxonomy files, keyed by post field
// (dept, role, juri, loca, stat). defaultRoleName, when non-empty, is
// resolved against the role taxonomy and substituted for posts that match a
// department but no role.
func NewMatcher(files map[string]string, opts MatchOptions, defaultRoleName string) (*Matcher, error) {
	m := &Matcher{hierarchies: map[string]*Hierarchy{}, opts: opts}
	for field, path := range files {
		h, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("taxonomy %s: %w", field, err)
		}
		h.Field = field
		m.hierarchies[field] = h
	}
	if defaultRoleName != "" {
		if roles, ok := m.hierarchies["role"]; ok {
			if best, ok := roles.FindBest(defaultRoleName, m.opts); ok {
				m.defaultRole = best.Path
			}
		}
		if m.defaultRole == nil {
			m.defaultRole = []string{defaultRoleName}
		}
	}
	return m, nil
}

// ParsePost maps text to a Post with one selected path per field. Fields with
// no loaded taxonomy or no candidate stay empty, except role which falls back
// to the default role when a department matched.
func (m *Matcher) ParsePost(text string, idFields []string) domain.Post {
	p := domain.Post{PostStr: text}
	for _, field := range domain.PostFields {
		h, ok := m.hierarchies[field]
		if !ok {
			continue
		}
		best, ok := h.FindBest(text, m.opts)
		if !ok {
			continue
		}
		switch field {
		case "dept":
			p.DeptPath = best.Path
		case "role":
			p.RolePath = best.Path
		case "juri":
			p.JuriPath = best.Path
		case "loca":
			p.LocaPath = best.Path
		case "stat":
			p.StatPath = best.Path
		}
	}
	if len(p.RolePath) == 0 && len(p.DeptPath) > 0 && m.defaultRole != nil {
		p.RolePath = append([]string{}, m.defaultRole...)
	}
	p.PostID = p.Identity(idFields)
	return p
}
