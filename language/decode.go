package language

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported on materialized records.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF16LE = "utf-16le"
	EncodingUTF16BE = "utf-16be"
	EncodingBinary  = "binary"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode attempts to interpret data as text. It understands UTF-8 (with or
// without a byte order mark) and UTF-16 introduced by a byte order mark.
// ok is false when the data is binary or not valid in the detected encoding;
// the returned encoding is then EncodingBinary.
func Decode(data []byte) (text string, enc string, ok bool) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		rest := data[len(bomUTF8):]
		if IsBinaryContent(rest) || !utf8.Valid(rest) {
			return "", EncodingBinary, false
		}
		return string(rest), EncodingUTF8, true
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), EncodingUTF16LE)
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeWith(data, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), EncodingUTF16BE)
	}

	if IsBinaryContent(data) || !utf8.Valid(data) {
		return "", EncodingBinary, false
	}
	return string(data), EncodingUTF8, true
}

func decodeWith(data []byte, enc encoding.Encoding, name string) (string, string, bool) {
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(decoded) || bytes.IndexByte(decoded, 0) >= 0 {
		return "", EncodingBinary, false
	}
	return string(decoded), name, true
}
