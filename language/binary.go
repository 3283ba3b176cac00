package language

// sniffSize is how much of a file is inspected for NUL bytes.
const sniffSize = 8000

// IsBinaryContent checks if the given byte slice appears to be binary content.
// It checks the first 8000 bytes (or less) for null bytes, which indicates binary data.
func IsBinaryContent(data []byte) bool {
	checkSize := sniffSize
	if len(data) < checkSize {
		checkSize = len(data)
	}

	for i := 0; i < checkSize; i++ {
		if data[i] == 0 {
			return true
		}
	}
	return false
}
