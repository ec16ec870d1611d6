package domain

import (
	"fmt"
	"time"
)

// OrderRef points at one detail inside one order, the provenance unit for
// tenure events.
type OrderRef struct {
	OrderID   string `json:"order_id"`
	DetailIdx int    `json:"detail_idx"`
}

// Tenure is a continuous interval during which one officer held one post.
// Values are immutable once built, except for the manager linkage fields which
// are filled by a single post-pass over the full tenure list.
type Tenure struct {
	TenureID  string `json:"tenure_id"`
	OfficerID string `json:"officer_id"`
	PostID    string `json:"post_id"`
	Role      string `json:"role"`

	StartDate      time.Time `json:"-"`
	StartOrderID   string    `json:"start_order_id"`
	StartDetailIdx int       `json:"start_detail_idx"`

	// EndDate is the zero time while the tenure is still open; EndOrderID is
	// then "" and EndDetailIdx -1.
	EndDate      time.Time `json:"-"`
	EndOrderID   string    `json:"end_order_id"`
	EndDetailIdx int       `json:"end_detail_idx"`

	ManagerIDs  []string `json:"manager_ids,omitempty"`
	ReporteeIDs []string `json:"reportee_ids,omitempty"`

	// AllOrderInfos lists every order that opened or re-affirmed the tenure
	// while it was open, in replay order.
	AllOrderInfos []OrderRef `json:"all_order_infos"`
}

// Open reports whether the tenure never saw a closing event.
func (t Tenure) Open() bool {
	return t.EndDate.IsZero()
}

// EffectiveEnd returns the end date, substituting now for open tenures.
func (t Tenure) EffectiveEnd(now time.Time) time.Time {
	if t.Open() {
		return now
	}
	return t.EndDate
}

// DurationDays is the tenure length in calendar days, counting open tenures
// up to now.
func (t Tenure) DurationDays(now time.Time) int {
	return DaysBetween(t.StartDate, t.EffectiveEnd(now))
}

// OverlapDays returns the number of days the two tenures' [start, end)
// intervals share, zero when disjoint.
func (t Tenure) OverlapDays(o Tenure, now time.Time) int {
	end := t.EffectiveEnd(now)
	if oEnd := o.EffectiveEnd(now); oEnd.Before(end) {
		end = oEnd
	}
	start := t.StartDate
	if o.StartDate.After(start) {
		start = o.StartDate
	}
	if d := DaysBetween(start, end); d > 0 {
		return d
	}
	return 0
}

// Overlaps reports whether the two tenures share at least one day.
func (t Tenure) Overlaps(o Tenure, now time.Time) bool {
	return t.OverlapDays(o, now) > 0
}

func (t Tenure) String() string {
	return fmt.Sprintf("O: %s %s:%d <-> %s:%d", t.OfficerID,
		t.StartOrderID, t.StartDetailIdx, t.EndOrderID, t.EndDetailIdx)
}
