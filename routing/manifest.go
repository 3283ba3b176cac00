package routing

import (
	"encoding/json"
	"os"

	"github.com/lexandro/promptattach/attach"
)

// ManifestFile is one upload as seen by the API client.
type ManifestFile struct {
	Alias    string `json:"alias"`
	Path     string `json:"path"`
	AbsPath  string `json:"absPath"`
	Size     int64  `json:"size"`
	Hash     string `json:"sha256"`
	Encoding string `json:"encoding,omitempty"`
	Kind     string `json:"kind"`
}

// Manifest lists, per tool, the files the upload client must send. Keys are
// canonical target names. Bytes are not embedded; the client reads AbsPath.
type Manifest struct {
	Uploads map[string][]ManifestFile `json:"uploads"`
}

// Manifest builds the upload manifest.
func (t *Table) Manifest() Manifest {
	m := Manifest{Uploads: make(map[string][]ManifestFile)}
	for _, target := range attach.Targets(attach.Execution | attach.Search | attach.Vision).List() {
		uploads := t.uploads[target]
		if len(uploads) == 0 {
			continue
		}
		files := make([]ManifestFile, 0, len(uploads))
		for _, u := range uploads {
			files = append(files, ManifestFile{
				Alias:    u.Alias,
				Path:     u.Record.Path,
				AbsPath:  u.Record.AbsPath,
				Size:     u.Record.Size,
				Hash:     u.Record.Hash,
				Encoding: u.Record.Encoding,
				Kind:     u.Record.Kind.String(),
			})
		}
		m.Uploads[target.String()] = files
	}
	return m
}

// WriteFile writes the manifest as indented JSON.
func (m Manifest) WriteFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
