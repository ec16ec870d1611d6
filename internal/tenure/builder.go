package tenure

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"tenureline/internal/config"
	"tenureline/internal/domain"
)

// Builder replays one officer's post-assignment events and emits the
// officer's tenures. It is stateless across officers; a single Builder can be
// shared by concurrent callers.
type Builder struct {
	Config     config.BuilderConfig
	Ministries []domain.Ministry
	Now        func() time.Time
	Log        *logrus.Entry
}

func NewBuilder(cfg *config.Config, ministries []domain.Ministry, log *logrus.Entry) *Builder {
	return &Builder{
		Config:     cfg.Builder,
		Ministries: ministries,
		Now:        time.Now,
		Log:        log,
	}
}

// pendingTenure accumulates events for one open post until a closing event
// arrives. events holds every assume/continue/relinquish in replay order.
type pendingTenure struct {
	open   DetailInfo
	events []DetailInfo
}

// verbPriority orders same-date events so that a post freed by one order can
// be taken up by another order of the same date.
func verbPriority(v domain.Verb) int {
	switch v {
	case domain.VerbRelinquishes:
		return 0
	case domain.VerbAssumes:
		return 1
	case domain.VerbContinues:
		return 2
	default:
		panic(fmt.Sprintf("unknown verb: %s", v))
	}
}

func sortInfos(infos []DetailInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i], infos[j]
		if !a.OrderDate.Equal(b.OrderDate) {
			return a.OrderDate.Before(b.OrderDate)
		}
		if pa, pb := verbPriority(a.Verb), verbPriority(b.Verb); pa != pb {
			return pa < pb
		}
		if a.OrderID != b.OrderID {
			return a.OrderID < b.OrderID
		}
		return a.PostID < b.PostID
	})
}

// orderGroup is all of one officer's events from a single order, in sorted
// replay order.
type orderGroup struct {
	orderID string
	infos   []DetailInfo
}

// groupByOrder gathers sorted events into per-order groups. Groups keep the
// first-appearance order of their order ids, so two same-date orders whose
// events interleave after the verb-priority sort still apply atomically.
func groupByOrder(infos []DetailInfo) []orderGroup {
	idx := map[string]int{}
	var groups []orderGroup
	for _, info := range infos {
		i, ok := idx[info.OrderID]
		if !ok {
			i = len(groups)
			idx[info.OrderID] = i
			groups = append(groups, orderGroup{orderID: info.OrderID})
		}
		groups[i].infos = append(groups[i].infos, info)
	}
	return groups
}

// officerState tracks one officer's open posts during replay. openOrder
// remembers insertion order so implicit and boundary closures emit tenures
// deterministically.
type officerState struct {
	officerID string
	pending   map[string]*pendingTenure
	openOrder []string
	seq       int
	tenures   []domain.Tenure
	errs      []DataError
}

func (s *officerState) openPost(info DetailInfo) {
	s.pending[info.PostID] = &pendingTenure{open: info, events: []DetailInfo{info}}
	s.openOrder = append(s.openOrder, info.PostID)
}

func (s *officerState) closePost(postID string, endOrderID string, endDate time.Time, endDetailIdx int) {
	p := s.pending[postID]
	delete(s.pending, postID)
	for i, id := range s.openOrder {
		if id == postID {
			s.openOrder = append(s.openOrder[:i], s.openOrder[i+1:]...)
			break
		}
	}
	s.tenures = append(s.tenures, s.buildTenure(p, endOrderID, endDate, endDetailIdx))
}

// buildTenure finalizes a pending post into a tenure. The role is decided by
// majority vote over the accumulated events; on a tie the earliest-seen role
// wins, and any disagreement at all is reported as a non-fatal error.
func (s *officerState) buildTenure(p *pendingTenure, endOrderID string, endDate time.Time, endDetailIdx int) domain.Tenure {
	role := s.majorityRole(p)

	refs := make([]domain.OrderRef, 0, len(p.events))
	for _, e := range p.events {
		refs = append(refs, domain.OrderRef{OrderID: e.OrderID, DetailIdx: e.DetailIdx})
	}

	id := fmt.Sprintf("%s-%d", s.officerID, s.seq)
	s.seq++
	return domain.Tenure{
		TenureID:       id,
		OfficerID:      s.officerID,
		PostID:         p.open.PostID,
		Role:           role,
		StartDate:      p.open.OrderDate,
		StartOrderID:   p.open.OrderID,
		StartDetailIdx: p.open.DetailIdx,
		EndDate:        endDate,
		EndOrderID:     endOrderID,
		EndDetailIdx:   endDetailIdx,
		AllOrderInfos:  refs,
	}
}

func (s *officerState) majorityRole(p *pendingTenure) string {
	type roleCount struct {
		role  string
		count int
	}
	var counts []roleCount
	for _, e := range p.events {
		found := false
		for i := range counts {
			if counts[i].role == e.Role {
				counts[i].count++
				found = true
				break
			}
		}
		if !found {
			counts = append(counts, roleCount{role: e.Role, count: 1})
		}
	}
	if len(counts) > 1 {
		s.errs = append(s.errs, multipleRolesError(p.open, p.events))
	}
	best := counts[0]
	for _, c := range counts[1:] {
		if c.count > best.count {
			best = c
		}
	}
	return best.role
}

// BuildOfficer replays one officer's events and returns the resulting
// tenures plus the recoverable errors found along the way. It panics on
// invariants that indicate corrupted input rather than bad data: an unknown
// verb or a closing event whose provenance does not match the order being
// applied.
func (b *Builder) BuildOfficer(officerID string, infos []DetailInfo) ([]domain.Tenure, []DataError) {
	sortInfos(infos)
	state := &officerState{
		officerID: officerID,
		pending:   map[string]*pendingTenure{},
	}

	prevMinistry := ""
	for _, g := range groupByOrder(infos) {
		curr := b.ministryAt(g.infos[0].OrderDate)
		if prevMinistry != "" && curr != prevMinistry {
			b.closeAtMinistryEnds(state)
		}
		prevMinistry = curr
		b.applyOrder(state, g)
	}

	if len(b.Ministries) > 0 {
		b.closeAtMinistryEnds(state)
	} else {
		for len(state.openOrder) > 0 {
			state.closePost(state.openOrder[0], "", time.Time{}, -1)
		}
	}

	b.checkSpans(state)
	return state.tenures, state.errs
}

// applyOrder applies one order's events atomically. For whole-slate
// categories, open posts the order does not mention are closed first; the
// order stands in as the closing provenance with its first event's detail.
func (b *Builder) applyOrder(state *officerState, g orderGroup) {
	first := g.infos[0]
	if b.Config.IsWholeSlate(first.Category) {
		mentioned := map[string]bool{}
		for _, info := range g.infos {
			mentioned[info.PostID] = true
		}
		for _, postID := range append([]string(nil), state.openOrder...) {
			if !mentioned[postID] {
				state.closePost(postID, g.orderID, first.OrderDate, first.DetailIdx)
			}
		}
	}

	for _, info := range g.infos {
		switch info.Verb {
		case domain.VerbAssumes, domain.VerbContinues:
			if p, ok := state.pending[info.PostID]; ok {
				p.events = append(p.events, info)
			} else {
				state.openPost(info)
			}
		case domain.VerbRelinquishes:
			p, ok := state.pending[info.PostID]
			if !ok {
				state.errs = append(state.errs, missingAssumeError(info))
				continue
			}
			if info.OrderID != g.orderID || info.DetailIdx != first.DetailIdx {
				panic(fmt.Sprintf("relinquish provenance mismatch: %s[%d] applied under %s[%d]",
					info.OrderID, info.DetailIdx, g.orderID, first.DetailIdx))
			}
			p.events = append(p.events, info)
			state.closePost(info.PostID, info.OrderID, info.OrderDate, info.DetailIdx)
		default:
			panic(fmt.Sprintf("unknown verb: %s", info.Verb))
		}
	}
}

// ministryAt returns the name of the ministry whose span contains the date,
// or "" when none does or no ministries are configured.
func (b *Builder) ministryAt(date time.Time) string {
	for _, m := range b.Ministries {
		if m.Contains(date) {
			return m.Name
		}
	}
	return ""
}

// closeAtMinistryEnds force-closes every open post at the end of the
// ministry containing the post's own start date. Posts opened outside any
// known ministry close with their start date, which surfaces downstream as a
// zero-length tenure.
func (b *Builder) closeAtMinistryEnds(state *officerState) {
	for len(state.openOrder) > 0 {
		postID := state.openOrder[0]
		open := state.pending[postID].open
		date := open.OrderDate
		for _, m := range b.Ministries {
			if m.Contains(open.OrderDate) {
				date = m.End
				break
			}
		}
		state.closePost(postID, "", date, -1)
	}
}

// checkSpans flags implausibly long closed tenures and implausibly long gaps
// between an officer's consecutive tenures. Open tenures are exempt from the
// long check.
func (b *Builder) checkSpans(state *officerState) {
	now := b.Now()
	for _, t := range state.tenures {
		if t.Open() {
			continue
		}
		if d := t.DurationDays(now); b.Config.LongTenureDays > 0 && d > b.Config.LongTenureDays {
			state.errs = append(state.errs, longTenureError(t, d))
		}
	}

	if b.Config.GapDays <= 0 || len(state.tenures) < 2 {
		return
	}
	byStart := append([]domain.Tenure(nil), state.tenures...)
	sort.SliceStable(byStart, func(i, j int) bool {
		return byStart[i].StartDate.Before(byStart[j].StartDate)
	})
	for i := 1; i < len(byStart); i++ {
		prev, next := byStart[i-1], byStart[i]
		if prev.Open() {
			continue
		}
		if d := domain.DaysBetween(prev.EndDate, next.StartDate); d > b.Config.GapDays {
			state.errs = append(state.errs, gapError(prev, next, d))
		}
	}
}
