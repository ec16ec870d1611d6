package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestParseDateEmptyIsZero(t *testing.T) {
	d, err := ParseDate("")
	if err != nil || !d.IsZero() {
		t.Fatalf("ParseDate(\"\") = %v, %v", d, err)
	}
	if got := FormatDate(time.Time{}); got != "" {
		t.Fatalf("FormatDate(zero) = %q", got)
	}
}

func TestPostIdentity(t *testing.T) {
	p := Post{
		DeptPath: []string{"ministries", "home"},
		RolePath: []string{"roles", "Cabinet Minister"},
		JuriPath: []string{"india"},
	}
	if got, want := p.Identity([]string{"dept", "role"}), "D:ministries>home,R:roles>Cabinet Minister"; got != want {
		t.Fatalf("identity = %q, want %q", got, want)
	}
	// all five fields when none given; empty paths keep their slot
	if got, want := p.Identity(nil), "D:ministries>home,R:roles>Cabinet Minister,J:india,L:,S:"; got != want {
		t.Fatalf("identity = %q, want %q", got, want)
	}
}

func TestPostIdentityDistinguishesPosts(t *testing.T) {
	home := Post{DeptPath: []string{"ministries", "home"}}
	finance := Post{DeptPath: []string{"ministries", "finance"}}
	if home.Identity(nil) == finance.Identity(nil) {
		t.Fatal("different departments must get different identities")
	}
}

func TestDetailPostsVerbOrder(t *testing.T) {
	d := OrderDetail{
		Continues:    []Post{{DeptPath: []string{"a"}}},
		Relinquishes: []Post{{DeptPath: []string{"b"}}},
		Assumes:      []Post{{DeptPath: []string{"c"}}},
	}
	got := d.Posts()
	want := []Verb{VerbContinues, VerbRelinquishes, VerbAssumes}
	if len(got) != 3 {
		t.Fatalf("got %d posts", len(got))
	}
	for i, vp := range got {
		if vp.Verb != want[i] {
			t.Fatalf("posts[%d].Verb = %s, want %s", i, vp.Verb, want[i])
		}
	}
}

func TestTenureOverlapDays(t *testing.T) {
	now := date(t, "2021-01-01")
	a := Tenure{StartDate: date(t, "2000-01-01"), EndDate: date(t, "2000-12-31")}
	b := Tenure{StartDate: date(t, "2000-07-01"), EndDate: date(t, "2001-07-01")}
	if got := a.OverlapDays(b, now); got != 183 {
		t.Fatalf("overlap = %d", got)
	}
	if got := b.OverlapDays(a, now); got != 183 {
		t.Fatal("overlap must be symmetric")
	}

	// touching intervals share no day: [x, y) then [y, z)
	c := Tenure{StartDate: date(t, "2000-12-31"), EndDate: date(t, "2001-06-01")}
	if a.Overlaps(c, now) {
		t.Fatal("end date is exclusive")
	}

	// open tenures extend to now
	open := Tenure{StartDate: date(t, "2000-06-01")}
	if !open.Overlaps(b, now) {
		t.Fatal("open tenure should overlap")
	}
	if got, want := open.DurationDays(now), DaysBetween(date(t, "2000-06-01"), now); got != want {
		t.Fatalf("duration = %d, want %d", got, want)
	}
}

func TestMinistryContains(t *testing.T) {
	m := Ministry{Name: "First", Start: date(t, "1998-03-19"), End: date(t, "2004-05-22")}
	if !m.Contains(date(t, "1998-03-19")) {
		t.Fatal("start inclusive")
	}
	if m.Contains(date(t, "2004-05-22")) {
		t.Fatal("end exclusive")
	}
}

func TestOrderJSONDates(t *testing.T) {
	raw := `{"order_id":"ord-1","date":"2000-01-10","category":"Council of Ministers","details":[{"detail_idx":0,"officer_id":"off-1","assumes":[{"dept_path":["ministries","home"]}]}]}`
	var o Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatal(err)
	}
	if !o.Date.Equal(date(t, "2000-01-10")) {
		t.Fatalf("date = %v", o.Date)
	}
	out, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	var again Order
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatal(err)
	}
	if !again.Date.Equal(o.Date) || len(again.Details) != 1 {
		t.Fatalf("round trip: %+v", again)
	}
}

func TestTenureJSONOpenEnd(t *testing.T) {
	te := Tenure{
		TenureID: "off-1-1", OfficerID: "off-1", PostID: "D:x", Role: "Cabinet Minister",
		StartDate: date(t, "2000-01-10"), StartOrderID: "ord-1", EndDetailIdx: -1,
	}
	out, err := json.Marshal(te)
	if err != nil {
		t.Fatal(err)
	}
	var again Tenure
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatal(err)
	}
	if !again.Open() {
		t.Fatalf("open tenure lost its sentinel: %+v", again)
	}
}
