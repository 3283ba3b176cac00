package view

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/lexandro/promptattach/materialize"
)

// ErrEmpty is returned by New when there are no records to wrap.
var ErrEmpty = errors.New("view: no records")

// CardinalityError reports a single-record access on a view of another size.
type CardinalityError struct {
	Expected int
	Got      int
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("expected %d file, got %d", e.Expected, e.Got)
}

// View is the ordered, never-empty set of records bound to one alias.
//
// Templates can index, slice, range over and take the len of a View directly.
// The scalar-or-list accessors (Name, Content, ...) return a bare value for a
// single record and a slice for many; the plural accessors always return a
// slice.
type View []*materialize.Record

// New wraps records in a View, preserving their order.
func New(records []*materialize.Record) (View, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	v := make(View, len(records))
	copy(v, records)
	return v, nil
}

// Len returns the number of records.
func (v View) Len() int { return len(v) }

// IsCollection is true when more than one record is bound.
func (v View) IsCollection() bool { return len(v) > 1 }

// First returns the first record in collection order.
func (v View) First() *materialize.Record { return v[0] }

// At returns the i-th record.
func (v View) At(i int) (*materialize.Record, error) {
	if i < 0 || i >= len(v) {
		return nil, fmt.Errorf("index %d out of range [0,%d)", i, len(v))
	}
	return v[i], nil
}

// Slice returns records [i, j) as a new View. An empty range is an error
// because a View is never empty.
func (v View) Slice(i, j int) (View, error) {
	if i < 0 || j > len(v) || i >= j {
		return nil, fmt.Errorf("slice [%d:%d] invalid for %d records", i, j, len(v))
	}
	return New(v[i:j])
}

// Single returns the only record or a CardinalityError.
func (v View) Single() (*materialize.Record, error) {
	if len(v) != 1 {
		return nil, &CardinalityError{Expected: 1, Got: len(v)}
	}
	return v[0], nil
}

// Name is the base name of the single record, or a list for a collection.
func (v View) Name() any { return pick(v, v.Names()) }

// Path is the path relative to the attachment root.
func (v View) Path() any { return pick(v, v.Paths()) }

// Size is the size in bytes on disk.
func (v View) Size() any { return pick(v, v.Sizes()) }

// Content is the decoded text. It is empty for binary and oversized records.
func (v View) Content() any { return pick(v, v.Contents()) }

// ModTime is the modification time seen at collection.
func (v View) ModTime() any { return pick(v, v.ModTimes()) }

// Encoding names the detected text encoding.
func (v View) Encoding() any { return pick(v, v.Encodings()) }

// Hash is the hex SHA-256 of the raw bytes. It is empty for a record whose
// read was skipped because the total size budget ran out.
func (v View) Hash() any { return pick(v, v.Hashes()) }

// Extension is the file extension including the dot.
func (v View) Extension() any { return pick(v, v.Extensions()) }

// Language is the detected language name.
func (v View) Language() any { return pick(v, v.Languages()) }

// Dir is the directory part of Path.
func (v View) Dir() any { return pick(v, v.Dirs()) }

// Names always returns one base name per record.
func (v View) Names() []string {
	return project(v, func(r *materialize.Record) string { return r.Name })
}

// Paths always returns one relative path per record.
func (v View) Paths() []string {
	return project(v, func(r *materialize.Record) string { return r.Path })
}

// Sizes always returns one size per record.
func (v View) Sizes() []int64 {
	return project(v, func(r *materialize.Record) int64 { return r.Size })
}

// Hashes always returns one hash per record, "" where the read was skipped.
func (v View) Hashes() []string {
	return project(v, func(r *materialize.Record) string { return r.Hash })
}

// Contents always returns one text per record.
func (v View) Contents() []string {
	return project(v, func(r *materialize.Record) string { return r.Content })
}

// ModTimes always returns one modification time per record.
func (v View) ModTimes() []time.Time {
	return project(v, func(r *materialize.Record) time.Time { return r.ModTime })
}

// Encodings always returns one encoding per record.
func (v View) Encodings() []string {
	return project(v, func(r *materialize.Record) string { return r.Encoding })
}

// Extensions always returns one extension per record.
func (v View) Extensions() []string {
	return project(v, func(r *materialize.Record) string { return path.Ext(r.Name) })
}

// Languages always returns one language per record.
func (v View) Languages() []string {
	return project(v, func(r *materialize.Record) string { return r.Language })
}

// Dirs always returns one directory per record.
func (v View) Dirs() []string {
	return project(v, func(r *materialize.Record) string { return path.Dir(r.Path) })
}

// TotalSize sums the sizes of all records.
func (v View) TotalSize() int64 {
	var total int64
	for _, r := range v {
		total += r.Size
	}
	return total
}

func project[T any](v View, field func(*materialize.Record) T) []T {
	out := make([]T, len(v))
	for i, r := range v {
		out[i] = field(r)
	}
	return out
}

func pick[T any](v View, values []T) any {
	if len(v) == 1 {
		return values[0]
	}
	return values
}
