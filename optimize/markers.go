package optimize

import (
	"regexp"
	"strconv"
)

// Rendered references are wrapped in private-use code points so they survive
// any text the template produces around them and never collide with file
// content in practice.
const (
	markerStart = "\uE000"
	markerEnd   = "\uE001"
	refPrefix   = "REF:"
	closePrefix = "/REF:"
)

var markerPattern = regexp.MustCompile(`\x{E000}/?REF:[0-9]+\x{E001}`)

// OpenMarker returns the marker that precedes the rendered content of reference id.
func OpenMarker(id int) string {
	return markerStart + refPrefix + strconv.Itoa(id) + markerEnd
}

// CloseMarker returns the marker that follows the rendered content of reference id.
func CloseMarker(id int) string {
	return markerStart + closePrefix + strconv.Itoa(id) + markerEnd
}

// Wrap surrounds content with the markers for id.
func Wrap(id int, content string) string {
	return OpenMarker(id) + content + CloseMarker(id)
}

// Strip removes every reference marker from text.
func Strip(text string) string {
	return markerPattern.ReplaceAllLiteralString(text, "")
}
