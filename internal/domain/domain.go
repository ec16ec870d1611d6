package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used everywhere: in order JSON,
// ministry reference data and exported tenures.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
// An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}

// FormatDate renders a date as YYYY-MM-DD; the zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// DaysBetween returns whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Order is one government appointment order document, already parsed and
// resolved by the upstream pipeline (officer ids and hierarchy paths assigned).
type Order struct {
	OrderID  string        `json:"order_id"`
	Date     time.Time     `json:"-"`
	Number   string        `json:"number,omitempty"`
	Category string        `json:"category"`
	Details  []OrderDetail `json:"details"`
}

// OrderDetail is one officer-centric row inside an order. Each post carries
// its own verb via the slice it sits in.
type OrderDetail struct {
	DetailIdx    int    `json:"detail_idx"`
	OfficerID    string `json:"officer_id"`
	OfficerName  string `json:"officer_name,omitempty"`
	Continues    []Post `json:"continues,omitempty"`
	Relinquishes []Post `json:"relinquishes,omitempty"`
	Assumes      []Post `json:"assumes,omitempty"`
}

// Posts returns the detail's posts tagged with their verb, continues first,
// matching the order they appear in the source document model.
func (d OrderDetail) Posts() []VerbPost {
	var out []VerbPost
	for _, p := range d.Continues {
		out = append(out, VerbPost{Verb: VerbContinues, Post: p})
	}
	for _, p := range d.Relinquishes {
		out = append(out, VerbPost{Verb: VerbRelinquishes, Post: p})
	}
	for _, p := range d.Assumes {
		out = append(out, VerbPost{Verb: VerbAssumes, Post: p})
	}
	return out
}

// VerbPost pairs a post with the assignment verb it appeared under.
type VerbPost struct {
	Verb Verb
	Post Post
}

// Verb is the nature of a per-order post event.
type Verb string

const (
	VerbContinues    Verb = "continues"
	VerbRelinquishes Verb = "relinquishes"
	VerbAssumes      Verb = "assumes"
)

// Post is one job description: five hierarchy paths assigned by the upstream
// taxonomy matcher plus the derived identity key.
type Post struct {
	PostStr  string   `json:"post_str,omitempty"`
	DeptPath []string `json:"dept_path,omitempty"`
	RolePath []string `json:"role_path,omitempty"`
	JuriPath []string `json:"juri_path,omitempty"`
	LocaPath []string `json:"loca_path,omitempty"`
	StatPath []string `json:"stat_path,omitempty"`
	PostID   string   `json:"post_id,omitempty"`
}

// PostFields is the canonical order of identity fields.
var PostFields = []string{"dept", "role", "juri", "loca", "stat"}

func (p Post) fieldPath(field string) []string {
	switch field {
	case "dept":
		return p.DeptPath
	case "role":
		return p.RolePath
	case "juri":
		return p.JuriPath
	case "loca":
		return p.LocaPath
	case "stat":
		return p.StatPath
	}
	return nil
}

// Identity derives the post identity key from the given fields (all fields
// when none are given). Two posts with equal identity are the same job.
func (p Post) Identity(fields []string) string {
	if len(fields) == 0 {
		fields = PostFields
	}
	segs := make([]string, 0, len(fields))
	for _, f := range fields {
		segs = append(segs, fmt.Sprintf("%s:%s", strings.ToUpper(f[:1]), strings.Join(p.fieldPath(f), ">")))
	}
	return strings.Join(segs, ",")
}

// Role is the last element of the role path, or "" when unmatched.
func (p Post) Role() string {
	if len(p.RolePath) == 0 {
		return ""
	}
	return p.RolePath[len(p.RolePath)-1]
}

// Dept is the last element of the department path, or "".
func (p Post) Dept() string {
	if len(p.DeptPath) == 0 {
		return ""
	}
	return p.DeptPath[len(p.DeptPath)-1]
}

// Officer is reference data for one resolved officer id, used when joining
// names into exports.
type Officer struct {
	OfficerID string `json:"officer_id" yaml:"officer_id"`
	Name      string `json:"name" yaml:"name"`
	FullName  string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Cadre     string `json:"cadre,omitempty" yaml:"cadre,omitempty"`
}

// Ministry is a named government-formation period, used as a fallback
// tenure-closing boundary. End is exclusive.
type Ministry struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Contains reports whether date falls inside the [Start, End) window.
func (m Ministry) Contains(date time.Time) bool {
	return !date.Before(m.Start) && date.Before(m.End)
}
