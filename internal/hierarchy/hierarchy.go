package hierarchy

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Node is one taxonomy entry. Children are matched in file order, which is
// what makes candidate enumeration deterministic.
type Node struct {
	Name     string   `yaml:"name"`
	Aliases  []string `yaml:"aliases,omitempty"`
	Children []*Node  `yaml:"children,omitempty"`
}

// Hierarchy is one field's taxonomy (department, role, jurisdiction, ...).
type Hierarchy struct {
	Field string
	Roots []*Node
}

type hierarchyFile struct {
	Field string  `yaml:"field"`
	Nodes []*Node `yaml:"nodes"`
}

// Load reads a taxonomy YAML file.
func Load(path string) (*Hierarchy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses a taxonomy from raw YAML bytes.
func FromYAML(data []byte) (*Hierarchy, error) {
	var f hierarchyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid taxonomy yaml: %w", err)
	}
	if len(f.Nodes) == 0 {
		return nil, fmt.Errorf("taxonomy has no nodes")
	}
	return &Hierarchy{Field: f.Field, Roots: f.Nodes}, nil
}

// Span is a half-open [Start, End) byte range inside the matched text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Span) Len() int { return s.End - s.Start }

// Match is one candidate taxonomy path with the spans of the labels along the
// path that occurred in the text.
type Match struct {
	Path  []string
	Spans []Span
}

// Leaf returns the last label of the path.
func (m Match) Leaf() string {
	if len(m.Path) == 0 {
		return ""
	}
	return m.Path[len(m.Path)-1]
}

// SpanLen is the total matched character count across the path.
func (m Match) SpanLen() int {
	n := 0
	for _, s := range m.Spans {
		n += s.Len()
	}
	return n
}

// MinStart is the left-most matched position on the path.
func (m Match) MinStart() int {
	min := -1
	for _, s := range m.Spans {
		if min == -1 || s.Start < min {
			min = s.Start
		}
	}
	return min
}

// SelectStrategy picks one candidate among several. All strategies are
// deterministic: the same text always resolves to the same path.
type SelectStrategy string

const (
	// StrategyFirst takes the first candidate in taxonomy file order.
	StrategyFirst SelectStrategy = "first"
	// StrategyLeftmost takes the candidate whose match begins earliest in
	// the text, ties broken by file order.
	StrategyLeftmost SelectStrategy = "leftmost"
	// StrategyConnectedSpanLen takes the candidate whose path labels cover
	// the most text, ties broken by left-most start then file order.
	StrategyConnectedSpanLen SelectStrategy = "connected_span_len"
)

// MatchOptions controls text matching and candidate selection.
type MatchOptions struct {
	IgnoreCase   bool
	WordBoundary bool
	Strategy     SelectStrategy
}

// FindMatches enumerates every taxonomy node whose name (or an alias) occurs
// in text. Each matched node yields one candidate whose path runs from its
// root, carrying the spans of every path label that also occurred. Candidates
// come out in taxonomy file order (depth-first).
func (h *Hierarchy) FindMatches(text string, opts MatchOptions) []Match {
	var out []Match
	var walk func(node *Node, path []string, spans []Span)
	walk = func(node *Node, path []string, spans []Span) {
		path = append(path, node.Name)
		nodeSpans := spans
		if sp, ok := findLabel(text, node, opts); ok {
			nodeSpans = append(append([]Span{}, spans...), sp)
			out = append(out, Match{
				Path:  append([]string{}, path...),
				Spans: nodeSpans,
			})
		}
		for _, c := range node.Children {
			walk(c, path, nodeSpans)
		}
	}
	for _, r := range h.Roots {
		walk(r, nil, nil)
	}
	return out
}

// Select applies the strategy to the candidate list.
func Select(matches []Match, strategy SelectStrategy) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	switch strategy {
	case StrategyLeftmost:
		best := matches[0]
		for _, m := range matches[1:] {
			if m.MinStart() < best.MinStart() {
				best = m
			}
		}
		return best, true
	case StrategyConnectedSpanLen:
		best := matches[0]
		for _, m := range matches[1:] {
			switch {
			case m.SpanLen() > best.SpanLen():
				best = m
			case m.SpanLen() == best.SpanLen() && m.MinStart() < best.MinStart():
				best = m
			}
		}
		return best, true
	default: // StrategyFirst
		return matches[0], true
	}
}

// FindBest is FindMatches followed by Select with the options' strategy.
func (h *Hierarchy) FindBest(text string, opts MatchOptions) (Match, bool) {
	return Select(h.FindMatches(text, opts), opts.Strategy)
}

func findLabel(text string, node *Node, opts MatchOptions) (Span, bool) {
	labels := append([]string{node.Name}, node.Aliases...)
	best := Span{Start: -1}
	for _, label := range labels {
		if sp, ok := findOccurrence(text, label, opts); ok {
			if best.Start == -1 || sp.Start < best.Start {
				best = sp
			}
		}
	}
	return best, best.Start != -1
}

func findOccurrence(text, label string, opts MatchOptions) (Span, bool) {
	if label == "" {
		return Span{}, false
	}
	haystack, needle := text, label
	if opts.IgnoreCase {
		haystack = strings.ToLower(text)
		needle = strings.ToLower(label)
	}
	from := 0
	for {
		idx := strings.Index(haystack[from:], needle)
		if idx == -1 {
			return Span{}, false
		}
		start := from + idx
		end := start + len(needle)
		if !opts.WordBoundary || onWordBoundary(haystack, start, end) {
			return Span{Start: start, End: end}, true
		}
		from = start + 1
	}
}

func onWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r := rune(text[start-1])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r := rune(text[end])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
