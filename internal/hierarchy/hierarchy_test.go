package hierarchy

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const deptYAML = `field: dept
nodes:
  - name: ministries
    children:
      - name: Home Affairs
        aliases: ["Home"]
      - name: Finance
        children:
          - name: Revenue
      - name: External Affairs
`

const roleYAML = `field: role
nodes:
  - name: roles
    children:
      - name: Cabinet Minister
      - name: Minister of State
      - name: Deputy Minister
`

func testHierarchy(t *testing.T, data string) *Hierarchy {
	t.Helper()
	h, err := FromYAML([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestFromYAMLRejectsEmpty(t *testing.T) {
	if _, err := FromYAML([]byte("field: dept\nnodes: []\n")); err == nil {
		t.Fatal("expected error for empty taxonomy")
	}
}

func TestFindMatchesAlias(t *testing.T) {
	h := testHierarchy(t, deptYAML)
	matches := h.FindMatches("Minister of Home", MatchOptions{})
	var paths [][]string
	for _, m := range matches {
		paths = append(paths, m.Path)
	}
	want := [][]string{{"ministries", "Home Affairs"}}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestFindMatchesDepth(t *testing.T) {
	h := testHierarchy(t, deptYAML)
	matches := h.FindMatches("Department of Revenue, Ministry of Finance", MatchOptions{})
	if len(matches) != 2 {
		t.Fatalf("want Finance and Revenue candidates, got %d", len(matches))
	}
	// Revenue's candidate carries its parent's span too
	revenue := matches[1]
	if revenue.Leaf() != "Revenue" || len(revenue.Spans) != 2 {
		t.Fatalf("unexpected candidate: %+v", revenue)
	}
}

func TestSelectStrategies(t *testing.T) {
	h := testHierarchy(t, deptYAML)
	text := "Revenue and External Affairs"

	first, ok := h.FindBest(text, MatchOptions{Strategy: StrategyFirst})
	if !ok || first.Leaf() != "Revenue" {
		t.Fatalf("first: %+v", first)
	}

	leftmost, ok := h.FindBest(text, MatchOptions{Strategy: StrategyLeftmost})
	if !ok || leftmost.Leaf() != "Revenue" {
		t.Fatalf("leftmost: %+v", leftmost)
	}

	span, ok := h.FindBest(text, MatchOptions{Strategy: StrategyConnectedSpanLen})
	if !ok || span.Leaf() != "External Affairs" {
		t.Fatalf("connected_span_len: %+v", span)
	}
}

func TestSelectDeterministic(t *testing.T) {
	h := testHierarchy(t, deptYAML)
	text := "Finance and Home"
	first, _ := h.FindBest(text, MatchOptions{Strategy: StrategyConnectedSpanLen})
	for i := 0; i < 10; i++ {
		again, _ := h.FindBest(text, MatchOptions{Strategy: StrategyConnectedSpanLen})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("selection changed: %+v vs %+v", first, again)
		}
	}
}

func TestWordBoundary(t *testing.T) {
	h := testHierarchy(t, deptYAML)
	if _, ok := h.FindBest("Homestead", MatchOptions{WordBoundary: true}); ok {
		t.Fatal("Homestead should not match Home on a word boundary")
	}
	if _, ok := h.FindBest("Homestead", MatchOptions{}); !ok {
		t.Fatal("Home should match inside Homestead without boundaries")
	}
}

func TestIgnoreCase(t *testing.T) {
	h := testHierarchy(t, deptYAML)
	if _, ok := h.FindBest("ministry of finance", MatchOptions{}); ok {
		t.Fatal("case-sensitive match should fail")
	}
	m, ok := h.FindBest("ministry of finance", MatchOptions{IgnoreCase: true})
	if !ok || m.Leaf() != "Finance" {
		t.Fatalf("ignore case: %+v", m)
	}
}

func writeTaxonomies(t *testing.T) map[string]string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{}
	for field, data := range map[string]string{"dept": deptYAML, "role": roleYAML} {
		path := filepath.Join(dir, field+".yml")
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		files[field] = path
	}
	return files
}

func TestMatcherParsePost(t *testing.T) {
	m, err := NewMatcher(writeTaxonomies(t), MatchOptions{
		IgnoreCase: true,
		Strategy:   StrategyConnectedSpanLen,
	}, "Cabinet Minister")
	if err != nil {
		t.Fatal(err)
	}

	p := m.ParsePost("Minister of State, Ministry of Finance", []string{"dept", "role"})
	if got := p.PostID; got != "D:ministries>Finance,R:roles>Minister of State" {
		t.Fatalf("post id = %q", got)
	}

	// no role in the text, dept matched: default role kicks in
	p = m.ParsePost("Ministry of Home Affairs", []string{"dept", "role"})
	if got, want := p.Role(), "Cabinet Minister"; got != want {
		t.Fatalf("role = %q, want %q", got, want)
	}

	// nothing matched at all: no default role either
	p = m.ParsePost("unrecognized text", []string{"dept", "role"})
	if len(p.DeptPath) != 0 || len(p.RolePath) != 0 {
		t.Fatalf("expected empty post, got %+v", p)
	}
}
