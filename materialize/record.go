package materialize

import (
	"fmt"
	"time"
)

// Kind tells which payload of a Record is populated.
type Kind int

const (
	// Text records carry decoded Content.
	Text Kind = iota
	// Binary records carry the raw bytes in Binary.
	Binary
	// Oversized records were not loaded because a size limit applied; only
	// metadata is available. Neither Content nor Binary is populated. The hash
	// is set unless the read was skipped because the total budget ran out.
	Oversized
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Binary:
		return "binary"
	case Oversized:
		return "oversized"
	default:
		return "unknown"
	}
}

// Record is the immutable, materialized form of one file. Field names double
// as template accessors, e.g. {{ .First.Content }} or {{ range .src }}{{ .Path }}{{ end }}.
type Record struct {
	Seq      int    // position in the originating attachment's collection order
	Name     string // base name
	Path     string // forward-slash path relative to the attachment root
	AbsPath  string // canonical absolute path
	Content  string // decoded text; empty unless Kind == Text
	Binary   []byte // raw bytes; nil unless Kind == Binary
	Size     int64
	ModTime  time.Time
	Encoding string
	Hash     string // hex SHA-256 of the raw bytes; "" when the read was skipped
	Kind     Kind
	Language string
}

// IsText reports whether Content is populated.
func (r *Record) IsText() bool { return r.Kind == Text }

// Bytes returns the payload to upload: the raw bytes for binary records and
// the decoded text for text records. Oversized records return nil; callers
// stream them from AbsPath.
func (r *Record) Bytes() []byte {
	switch r.Kind {
	case Binary:
		return r.Binary
	case Text:
		return []byte(r.Content)
	}
	return nil
}

// Error is a per-file materialization failure. It never aborts the run on
// its own; it only matters when it leaves an attachment with no files.
type Error struct {
	Path string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("materializing %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
