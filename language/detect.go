package language

import (
	"path/filepath"
	"strings"
)

// Kind is a coarse content category derived from a file name.
type Kind string

const (
	KindSource   Kind = "source"
	KindData     Kind = "data"
	KindDocument Kind = "document"
	KindImage    Kind = "image"
	KindArchive  Kind = "archive"
	KindUnknown  Kind = "unknown"
)

type fileType struct {
	language string
	kind     Kind
}

// extensionTypes maps lower-case extensions (without dot) to a language and kind.
var extensionTypes = map[string]fileType{
	"go": {"Go", KindSource}, "py": {"Python", KindSource}, "rs": {"Rust", KindSource},
	"js": {"JavaScript", KindSource}, "mjs": {"JavaScript", KindSource}, "jsx": {"JavaScript", KindSource},
	"ts": {"TypeScript", KindSource}, "tsx": {"TypeScript", KindSource},
	"java": {"Java", KindSource}, "kt": {"Kotlin", KindSource}, "swift": {"Swift", KindSource},
	"c": {"C", KindSource}, "h": {"C", KindSource}, "cpp": {"C++", KindSource}, "hpp": {"C++", KindSource},
	"cs": {"C#", KindSource}, "rb": {"Ruby", KindSource}, "php": {"PHP", KindSource},
	"sh": {"Shell", KindSource}, "bash": {"Shell", KindSource}, "sql": {"SQL", KindSource},
	"html": {"HTML", KindSource}, "css": {"CSS", KindSource},

	"json": {"JSON", KindData}, "jsonl": {"JSON", KindData}, "yaml": {"YAML", KindData}, "yml": {"YAML", KindData},
	"toml": {"TOML", KindData}, "xml": {"XML", KindData}, "csv": {"CSV", KindData}, "tsv": {"TSV", KindData},
	"ini": {"INI", KindData}, "parquet": {"Parquet", KindData}, "xlsx": {"Excel", KindData}, "xls": {"Excel", KindData},

	"md": {"Markdown", KindDocument}, "txt": {"Text", KindDocument}, "rst": {"reStructuredText", KindDocument},
	"tex": {"LaTeX", KindDocument}, "pdf": {"PDF", KindDocument}, "docx": {"Word", KindDocument},
	"pptx": {"PowerPoint", KindDocument},

	"png": {"PNG", KindImage}, "jpg": {"JPEG", KindImage}, "jpeg": {"JPEG", KindImage},
	"gif": {"GIF", KindImage}, "webp": {"WebP", KindImage}, "bmp": {"BMP", KindImage},
	"tif": {"TIFF", KindImage}, "tiff": {"TIFF", KindImage},

	"zip": {"Zip", KindArchive}, "tar": {"Tar", KindArchive}, "gz": {"Gzip", KindArchive}, "tgz": {"Tar", KindArchive},
}

// DetectLanguage returns the language or format name for a file path based on its extension.
// Returns "Unknown" if the extension is not recognized.
func DetectLanguage(filePath string) string {
	if ft, ok := lookup(filePath); ok {
		return ft.language
	}
	switch strings.ToLower(filepath.Base(filePath)) {
	case "makefile", "gnumakefile":
		return "Makefile"
	case "dockerfile":
		return "Dockerfile"
	}
	return "Unknown"
}

// DetectKind returns the content category for a file path.
func DetectKind(filePath string) Kind {
	if ft, ok := lookup(filePath); ok {
		return ft.kind
	}
	return KindUnknown
}

// IsImage reports whether the file name denotes a raster image format.
func IsImage(filePath string) bool {
	return DetectKind(filePath) == KindImage
}

func lookup(filePath string) (fileType, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	if ext == "" {
		return fileType{}, false
	}
	ft, ok := extensionTypes[ext]
	return ft, ok
}
