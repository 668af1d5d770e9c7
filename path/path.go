// Package path implements the dotted-path accessor contract of spec.md §4.1:
// read/write/move/delete with array index and append-sentinel support.
package path

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brain2labs/docstore/value"
)

// SegmentKind tags one path component.
type SegmentKind int

const (
	SegField SegmentKind = iota
	SegIndex
	SegAppend
)

// Segment is one dotted-path component: a field name, an array index, or
// the append sentinel `-`.
type Segment struct {
	Kind   SegmentKind
	Field  string // set when Kind == SegField; "$"-prefix already stripped
	System bool   // true if the field segment had a leading "$"
	Index  int    // set when Kind == SegIndex
}

// Path is a parsed, immutable sequence of Segments.
type Path struct {
	segments []Segment
}

func (p Path) Segments() []Segment { return append([]Segment(nil), p.segments...) }
func (p Path) Empty() bool         { return len(p.segments) == 0 }

func (p Path) String() string {
	var b strings.Builder
	for i, s := range p.segments {
		switch s.Kind {
		case SegField:
			if i > 0 {
				b.WriteByte('.')
			}
			if s.System {
				b.WriteByte('$')
			}
			b.WriteString(s.Field)
		case SegIndex:
			fmt.Fprintf(&b, "[%d]", s.Index)
		case SegAppend:
			b.WriteString("[-]")
		}
	}
	return b.String()
}

// Parse parses a dotted path expression such as "obj.nobj.nnstr",
// "arrstr[3]", "arrstr[-]", or "$pk".
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("path: empty expression")
	}
	var segs []Segment
	i := 0
	n := len(s)
	expectField := true
	for i < n {
		switch {
		case s[i] == '.':
			if expectField {
				return Path{}, fmt.Errorf("path: unexpected '.' at %d in %q", i, s)
			}
			i++
			expectField = true
		case s[i] == '[':
			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				return Path{}, fmt.Errorf("path: unterminated '[' in %q", s)
			}
			inner := s[i+1 : i+j]
			i += j + 1
			if inner == "-" {
				segs = append(segs, Segment{Kind: SegAppend})
			} else {
				idx, err := strconv.Atoi(inner)
				if err != nil {
					return Path{}, fmt.Errorf("path: bad index %q in %q", inner, s)
				}
				segs = append(segs, Segment{Kind: SegIndex, Index: idx})
			}
			expectField = false
		default:
			start := i
			for i < n && s[i] != '.' && s[i] != '[' {
				i++
			}
			field := s[start:i]
			system := false
			if strings.HasPrefix(field, "$") {
				system = true
				field = field[1:]
			}
			if field == "" {
				return Path{}, fmt.Errorf("path: empty field segment in %q", s)
			}
			segs = append(segs, Segment{Kind: SegField, Field: field, System: system})
			expectField = false
		}
	}
	if len(segs) == 0 {
		return Path{}, fmt.Errorf("path: no segments parsed from %q", s)
	}
	return Path{segments: segs}, nil
}

// MustParse panics on a malformed path; used for compile-time-known literals.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ErrNotDefined is returned by Get when the path does not resolve.
type ErrNotDefined struct{ Path string }

func (e *ErrNotDefined) Error() string { return fmt.Sprintf("path: %q is not defined", e.Path) }

// Get returns the value at path, or ErrNotDefined.
func Get(root value.Value, p Path) (value.Value, error) {
	cur := root
	for _, seg := range p.segments {
		var ok bool
		cur, ok = step(cur, seg)
		if !ok {
			return value.Value{}, &ErrNotDefined{Path: p.String()}
		}
	}
	return cur, nil
}

func step(cur value.Value, seg Segment) (value.Value, bool) {
	switch seg.Kind {
	case SegField:
		return cur.Field(seg.Field)
	case SegIndex:
		arr, ok := cur.Array()
		if !ok || seg.Index < 0 || seg.Index >= len(arr) {
			return value.Value{}, false
		}
		return arr[seg.Index], true
	default:
		return value.Value{}, false
	}
}

// Set creates intermediate maps as needed and writes val at path. Fails if
// an intermediate segment addresses a non-container.
func Set(root value.Value, p Path, val value.Value) (value.Value, error) {
	return setAt(root, p.segments, val)
}

func setAt(cur value.Value, segs []Segment, val value.Value) (value.Value, error) {
	if len(segs) == 0 {
		return val, nil
	}
	seg := segs[0]
	rest := segs[1:]

	switch seg.Kind {
	case SegField:
		if cur.Kind() != value.KindMap && !cur.IsNull() {
			return value.Value{}, fmt.Errorf("path: cannot set field %q on non-object", seg.Field)
		}
		child, ok := cur.Field(seg.Field)
		if !ok {
			child = value.Null()
		}
		newChild, err := setAt(child, rest, val)
		if err != nil {
			return value.Value{}, err
		}
		return cur.WithField(seg.Field, newChild), nil
	case SegIndex:
		arr, ok := cur.Array()
		if !ok {
			if cur.IsNull() {
				arr = nil
			} else {
				return value.Value{}, fmt.Errorf("path: cannot index non-array")
			}
		} else {
			// cur.Array() returns the live backing slice; copy before any
			// in-place element write so the source value tree stays immutable.
			arr = append([]value.Value(nil), arr...)
		}
		idx := seg.Index
		if idx < 0 {
			return value.Value{}, fmt.Errorf("path: negative index")
		}
		for len(arr) <= idx {
			arr = append(arr, value.Null())
		}
		newChild, err := setAt(arr[idx], rest, val)
		if err != nil {
			return value.Value{}, err
		}
		arr[idx] = newChild
		return value.Array(arr...), nil
	case SegAppend:
		arr, _ := cur.Array()
		newChild, err := setAt(value.Null(), rest, val)
		if err != nil {
			return value.Value{}, err
		}
		arr = append(arr, newChild)
		return value.Array(arr...), nil
	}
	return value.Value{}, fmt.Errorf("path: unknown segment kind")
}

// Insert behaves like Set if the leaf is absent; for an array `[k]` index it
// splice-inserts at k, and `[-]` appends.
func Insert(root value.Value, p Path, val value.Value) (value.Value, error) {
	if len(p.segments) == 0 {
		return root, fmt.Errorf("path: empty path")
	}
	last := p.segments[len(p.segments)-1]
	parentPath := Path{segments: p.segments[:len(p.segments)-1]}

	if last.Kind == SegAppend {
		return Set(root, p, val)
	}
	if last.Kind == SegIndex {
		parent, err := navigateOrCreate(root, parentPath.segments)
		if err != nil {
			return value.Value{}, err
		}
		parentArr, _ := parent.Array()
		idx := last.Index
		if idx < 0 || idx > len(parentArr) {
			return value.Value{}, fmt.Errorf("path: splice index %d out of range", idx)
		}
		// parent.Array() returns the live backing slice; copy before
		// splicing so the source value tree stays immutable.
		arr := make([]value.Value, len(parentArr)+1)
		copy(arr, parentArr[:idx])
		copy(arr[idx+1:], parentArr[idx:])
		arr[idx] = val
		newParent := value.Array(arr...)
		return setAt(root, parentPath.segments, newParent)
	}

	// Field: only set if absent.
	existing, err := Get(root, p)
	if err == nil {
		_ = existing
		return root, nil
	}
	return Set(root, p, val)
}

func navigateOrCreate(root value.Value, segs []Segment) (value.Value, error) {
	cur := root
	for _, seg := range segs {
		child, ok := step(cur, seg)
		if !ok {
			child = value.Array()
		}
		cur = child
	}
	if cur.Kind() != value.KindArray && len(segs) > 0 {
		cur = value.Array()
	}
	if len(segs) == 0 && cur.Kind() != value.KindArray {
		cur = value.Array()
	}
	return cur, nil
}

// Delete removes the leaf at path. For an array element, it removes and
// shifts subsequent elements down.
func Delete(root value.Value, p Path) (value.Value, error) {
	if len(p.segments) == 0 {
		return root, fmt.Errorf("path: empty path")
	}
	last := p.segments[len(p.segments)-1]
	parentSegs := p.segments[:len(p.segments)-1]

	return deleteAt(root, parentSegs, last)
}

func deleteAt(cur value.Value, parentSegs []Segment, last Segment) (value.Value, error) {
	if len(parentSegs) == 0 {
		return applyDelete(cur, last)
	}
	seg := parentSegs[0]
	rest := parentSegs[1:]
	switch seg.Kind {
	case SegField:
		child, ok := cur.Field(seg.Field)
		if !ok {
			return cur, nil // nothing to delete
		}
		newChild, err := deleteAt(child, rest, last)
		if err != nil {
			return value.Value{}, err
		}
		return cur.WithField(seg.Field, newChild), nil
	case SegIndex:
		arr, ok := cur.Array()
		if !ok || seg.Index < 0 || seg.Index >= len(arr) {
			return cur, nil
		}
		newChild, err := deleteAt(arr[seg.Index], rest, last)
		if err != nil {
			return value.Value{}, err
		}
		arr[seg.Index] = newChild
		return value.Array(arr...), nil
	}
	return cur, nil
}

func applyDelete(cur value.Value, last Segment) (value.Value, error) {
	switch last.Kind {
	case SegField:
		return cur.WithoutField(last.Field), nil
	case SegIndex:
		arr, ok := cur.Array()
		if !ok || last.Index < 0 || last.Index >= len(arr) {
			return cur, nil
		}
		out := make([]value.Value, 0, len(arr)-1)
		out = append(out, arr[:last.Index]...)
		out = append(out, arr[last.Index+1:]...)
		return value.Array(out...), nil
	default:
		return cur, fmt.Errorf("path: cannot delete append sentinel")
	}
}

// Move deletes from source and sets at destination atomically (as a single
// pure transformation of root).
func Move(root value.Value, from, to Path) (value.Value, error) {
	v, err := Get(root, from)
	if err != nil {
		return value.Value{}, err
	}
	afterDelete, err := Delete(root, from)
	if err != nil {
		return value.Value{}, err
	}
	return Set(afterDelete, to, v)
}

// IsPrefix reports whether p is a prefix of other (used to reject
// overlapping UPDATE SET assignments at parse time).
func IsPrefix(p, other Path) bool {
	if len(p.segments) > len(other.segments) {
		return false
	}
	for i, seg := range p.segments {
		o := other.segments[i]
		if seg.Kind != o.Kind || seg.Field != o.Field || seg.Index != o.Index {
			return false
		}
	}
	return true
}
