// Package dpath implements the dotted path notation used to address
// attributes and linked objects:
//
//	segment   := ident subscript?
//	subscript := "[" ( index | multiindex | slice ) "]"
//	index     := signed-int
//	multiindex:= signed-int ("," signed-int)* ","?
//	slice     := signed-int? ":" signed-int? (":" signed-int?)?
//	ident     := [A-Za-z][A-Za-z0-9_]*
//
// A multi-index with a single element always carries a trailing comma
// ("[3,]") to disambiguate it from a plain index; String preserves that. A
// path is plain when every segment is unsubscripted or carries a plain
// index; only plain paths resolve to exactly one target.
//
// The relative form, used as a link value to express sharing, prefixes a
// path with k dots: ascend k levels from the slot path of the reference
// holder, then apply the suffix.
package dpath

import (
	"strconv"
	"strings"

	"github.com/beamlab/dms/dmserr"
)

// SubKind discriminates subscript forms.
type SubKind int

const (
	KindIndex SubKind = iota
	KindMulti
	KindSlice
)

// Subscript is one bracketed expression.
type Subscript struct {
	Kind    SubKind
	Index   int   // KindIndex
	Indices []int // KindMulti
	// KindSlice bounds; nil means absent.
	Start, Stop, Step *int
}

// Entry is one path segment: an attribute name with an optional subscript.
type Entry struct {
	Attr string
	Sub  *Subscript
}

// Path is a parsed sequence of segments.
type Path []Entry

// Plain reports whether the subscript selects exactly one element.
func (s *Subscript) Plain() bool { return s == nil || s.Kind == KindIndex }

// Plain reports whether every segment of the path is plain.
func (p Path) Plain() bool {
	for _, e := range p {
		if !e.Sub.Plain() {
			return false
		}
	}
	return true
}

// Parse parses a dotted path. The empty string is the empty path.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		e, err := parseSegment(part, s)
		if err != nil {
			return nil, err
		}
		p = append(p, e)
	}
	return p, nil
}

// MustParse parses a path and panics on failure. Intended for tests.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(seg, full string) (Entry, error) {
	fail := func(format string, args ...any) (Entry, error) {
		msg := "cannot parse path %q (segment %q): " + format
		return Entry{}, dmserr.New(dmserr.KindPathParseError, msg, append([]any{full, seg}, args...)...)
	}
	i := 0
	for i < len(seg) && isIdentByte(seg[i], i == 0) {
		i++
	}
	if i == 0 {
		return fail("segment must start with a letter")
	}
	e := Entry{Attr: seg[:i]}
	if i == len(seg) {
		return e, nil
	}
	if seg[i] != '[' || seg[len(seg)-1] != ']' {
		return fail("malformed subscript")
	}
	body := seg[i+1 : len(seg)-1]
	sub, err := parseSubscript(body)
	if err != nil {
		return fail("%s", err)
	}
	e.Sub = sub
	return e, nil
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case first:
		return false
	}
	return c == '_' || (c >= '0' && c <= '9')
}

func parseSubscript(body string) (*Subscript, error) {
	if strings.Contains(body, ":") {
		return parseSlice(body)
	}
	if strings.Contains(body, ",") {
		parts := strings.Split(strings.TrimSuffix(body, ","), ",")
		idxs := make([]int, len(parts))
		for i, p := range parts {
			n, err := parseInt(p)
			if err != nil {
				return nil, err
			}
			idxs[i] = n
		}
		return &Subscript{Kind: KindMulti, Indices: idxs}, nil
	}
	n, err := parseInt(body)
	if err != nil {
		return nil, err
	}
	return &Subscript{Kind: KindIndex, Index: n}, nil
}

func parseSlice(body string) (*Subscript, error) {
	parts := strings.Split(body, ":")
	if len(parts) > 3 {
		return nil, errTooManyColons
	}
	sub := &Subscript{Kind: KindSlice}
	dst := []**int{&sub.Start, &sub.Stop, &sub.Step}
	for i, p := range parts {
		if p == "" {
			continue
		}
		n, err := parseInt(p)
		if err != nil {
			return nil, err
		}
		*dst[i] = &n
	}
	return sub, nil
}

var errTooManyColons = dmserr.New(dmserr.KindPathParseError, "slice has more than three parts")

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, dmserr.New(dmserr.KindPathParseError, "invalid integer %q", s)
	}
	return n, nil
}

// String unparses the path. It is the deterministic inverse of Parse; a
// single-element multi-index round-trips with its trailing comma.
func (p Path) String() string {
	var b strings.Builder
	for i, e := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(e.String())
	}
	return b.String()
}

// String unparses one segment.
func (e Entry) String() string {
	if e.Sub == nil {
		return e.Attr
	}
	return e.Attr + e.Sub.String()
}

// String unparses the subscript including brackets.
func (s *Subscript) String() string {
	var b strings.Builder
	b.WriteByte('[')
	switch s.Kind {
	case KindIndex:
		b.WriteString(strconv.Itoa(s.Index))
	case KindMulti:
		for _, n := range s.Indices {
			b.WriteString(strconv.Itoa(n))
			b.WriteByte(',')
		}
		if len(s.Indices) > 1 {
			// trailing comma only disambiguates the single-element form
			return strings.TrimSuffix(b.String(), ",") + "]"
		}
	case KindSlice:
		if s.Start != nil {
			b.WriteString(strconv.Itoa(*s.Start))
		}
		b.WriteByte(':')
		if s.Stop != nil {
			b.WriteString(strconv.Itoa(*s.Stop))
		}
		if s.Step != nil {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(*s.Step))
		}
	}
	b.WriteByte(']')
	return b.String()
}

// Apply expands the subscript against a list of length n, returning the
// selected indices in order. A nil subscript selects nothing and must be
// handled by the caller.
func (s *Subscript) Apply(n int) ([]int, error) {
	switch s.Kind {
	case KindIndex:
		i, err := normalize(s.Index, n)
		if err != nil {
			return nil, err
		}
		return []int{i}, nil
	case KindMulti:
		out := make([]int, 0, len(s.Indices))
		for _, idx := range s.Indices {
			i, err := normalize(idx, n)
			if err != nil {
				return nil, err
			}
			out = append(out, i)
		}
		return out, nil
	case KindSlice:
		return sliceIndices(s.Start, s.Stop, s.Step, n)
	}
	return nil, dmserr.New(dmserr.KindPathParseError, "unknown subscript kind")
}

func normalize(i, n int) (int, error) {
	j := i
	if j < 0 {
		j += n
	}
	if j < 0 || j >= n {
		return 0, dmserr.New(dmserr.KindIndexOutOfRange, "index %d out of range for length %d", i, n)
	}
	return j, nil
}

// sliceIndices mirrors CPython slice.indices: half-open bounds, negative
// indices counted from the end, arbitrary non-zero stride.
func sliceIndices(startP, stopP, stepP *int, n int) ([]int, error) {
	step := 1
	if stepP != nil {
		step = *stepP
	}
	if step == 0 {
		return nil, dmserr.New(dmserr.KindPathParseError, "slice step cannot be zero")
	}

	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}

	var start, stop int
	if step > 0 {
		start, stop = 0, n
		if startP != nil {
			start = *startP
			if start < 0 {
				start += n
			}
			start = clamp(start, 0, n)
		}
		if stopP != nil {
			stop = *stopP
			if stop < 0 {
				stop += n
			}
			stop = clamp(stop, 0, n)
		}
		var out []int
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
		return out, nil
	}

	start, stop = n-1, -1
	if startP != nil {
		start = *startP
		if start < 0 {
			start += n
		}
		start = clamp(start, -1, n-1)
	}
	if stopP != nil {
		stop = *stopP
		if stop < 0 {
			stop += n
		}
		stop = clamp(stop, -1, n-1)
	}
	var out []int
	for i := start; i > stop; i += step {
		out = append(out, i)
	}
	return out, nil
}
