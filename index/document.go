package index

import (
	"time"

	"github.com/lexandro/promptattach/materialize"
)

// Document is a materialized attachment file as seen by the indexes.
type Document struct {
	Key      string // "alias:path", unique across attachments
	Alias    string
	Path     string // relative to the attachment root (forward slashes)
	AbsPath  string
	Language string
	Size     int64
	ModTime  time.Time
	Hash     string
	Kind     materialize.Kind
}

// DocumentKey builds the key used by both indexes.
func DocumentKey(alias, path string) string { return alias + ":" + path }

// NewDocument describes rec as bound to alias.
func NewDocument(alias string, rec *materialize.Record) *Document {
	return &Document{
		Key:      DocumentKey(alias, rec.Path),
		Alias:    alias,
		Path:     rec.Path,
		AbsPath:  rec.AbsPath,
		Language: rec.Language,
		Size:     rec.Size,
		ModTime:  rec.ModTime,
		Hash:     rec.Hash,
		Kind:     rec.Kind,
	}
}
