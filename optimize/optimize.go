package optimize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Default thresholds, in characters.
const (
	DefaultInlineThreshold   = 200
	DefaultAlwaysInlineFloor = 50
)

// Reference describes one alias-content substitution recorded at render time.
type Reference struct {
	ID         int
	Alias      string
	Label      string // human-readable name used in the reference text and appendix heading
	UsedInLoop bool
}

// Options controls relocation.
type Options struct {
	Enabled           bool
	InlineThreshold   int
	AlwaysInlineFloor int
}

// DefaultOptions returns the optimizer defaults with relocation enabled.
func DefaultOptions() Options {
	return Options{Enabled: true, InlineThreshold: DefaultInlineThreshold, AlwaysInlineFloor: DefaultAlwaysInlineFloor}
}

// Decision is the classification of one rendered block.
type Decision int

const (
	Inline Decision = iota
	Relocate
)

func (d Decision) String() string {
	if d == Relocate {
		return "relocate"
	}
	return "inline"
}

// Block is one rendered reference as found in the text.
type Block struct {
	Ref      Reference
	Content  string
	Length   int // in characters
	Decision Decision
}

// Result is the optimizer output. Text never contains reference markers.
type Result struct {
	Text     string
	Blocks   []Block
	Appendix []AppendixEntry
	// Fault is set when the optimizer gave up and returned the unmodified
	// text. It is meant for debug logging only.
	Fault error
}

// AppendixEntry is one relocated block, emitted under its label.
type AppendixEntry struct {
	Label   string
	Content string
}

// Relocated reports how many blocks were moved to the appendix.
func (r Result) Relocated() int {
	n := 0
	for _, b := range r.Blocks {
		if b.Decision == Relocate {
			n++
		}
	}
	return n
}

// ReferenceText is the stand-in left in the body for a relocated block.
func ReferenceText(label string) string {
	return fmt.Sprintf("the contents of %s (see %q in the appendix below)", label, label)
}

// Optimize rewrites rendered text, moving large, non-loop reference blocks to
// an appendix. Output is a pure function of text, refs and options. Any
// internal failure returns the input with markers removed and Fault set.
func Optimize(text string, refs []Reference, options Options) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Text: Strip(text), Fault: fmt.Errorf("optimizer panic: %v", r)}
		}
	}()

	if !options.Enabled {
		return Result{Text: Strip(text)}
	}

	byID := make(map[int]Reference, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
	}

	segments, err := scan(text, byID)
	if err != nil {
		return Result{Text: Strip(text), Fault: err}
	}

	var blocks []Block
	for i := range segments {
		if segments[i].block != nil {
			b := segments[i].block
			b.Decision = classify(*b, options)
			blocks = append(blocks, *b)
		}
	}

	body, appendix := relocate(segments)
	return Result{Text: emit(body, appendix), Blocks: blocks, Appendix: appendix}
}

// segment is either literal text or a reference block.
type segment struct {
	text  string
	block *Block
}

// scan splits text into literal segments and reference blocks. Markers must
// be balanced, non-nested and refer to a known reference.
func scan(text string, refs map[int]Reference) ([]segment, error) {
	var segments []segment
	rest := text
	for {
		start := strings.Index(rest, markerStart)
		if start < 0 {
			if rest != "" {
				segments = append(segments, segment{text: rest})
			}
			return segments, nil
		}
		if start > 0 {
			segments = append(segments, segment{text: rest[:start]})
		}
		id, closing, n, err := readMarker(rest[start:])
		if err != nil {
			return nil, err
		}
		if closing {
			return nil, fmt.Errorf("closing marker for reference %d without opening", id)
		}
		ref, ok := refs[id]
		if !ok {
			return nil, fmt.Errorf("unknown reference %d", id)
		}
		body := rest[start+n:]
		end := strings.Index(body, markerStart)
		if end < 0 {
			return nil, fmt.Errorf("reference %d is not closed", id)
		}
		closeID, closing, m, err := readMarker(body[end:])
		if err != nil {
			return nil, err
		}
		if !closing || closeID != id {
			return nil, fmt.Errorf("reference %d interleaved with marker %d", id, closeID)
		}
		content := body[:end]
		segments = append(segments, segment{block: &Block{
			Ref:     ref,
			Content: content,
			Length:  utf8.RuneCountInString(content),
		}})
		rest = body[end+m:]
	}
}

// readMarker parses the marker at the start of s and returns its id, whether
// it closes a block, and its byte length.
func readMarker(s string) (id int, closing bool, n int, err error) {
	end := strings.Index(s, markerEnd)
	if end < 0 {
		return 0, false, 0, fmt.Errorf("unterminated marker")
	}
	inner := s[len(markerStart):end]
	switch {
	case strings.HasPrefix(inner, closePrefix):
		closing = true
		inner = inner[len(closePrefix):]
	case strings.HasPrefix(inner, refPrefix):
		inner = inner[len(refPrefix):]
	default:
		return 0, false, 0, fmt.Errorf("malformed marker %q", inner)
	}
	id, err = strconv.Atoi(inner)
	if err != nil {
		return 0, false, 0, fmt.Errorf("malformed marker id %q", inner)
	}
	return id, closing, end + len(markerEnd), nil
}

func classify(b Block, options Options) Decision {
	if b.Length < options.AlwaysInlineFloor || b.Ref.UsedInLoop {
		return Inline
	}
	if b.Length > options.InlineThreshold {
		return Relocate
	}
	return Inline
}

// relocate builds the body and appendix. Identical content under the same
// label is emitted once; a label reused for different content gets a numeric
// suffix so each appendix heading is unambiguous.
func relocate(segments []segment) (string, []AppendixEntry) {
	var body strings.Builder
	var appendix []AppendixEntry
	seen := make(map[AppendixEntry]string)
	labelUses := make(map[string]int)

	for _, seg := range segments {
		if seg.block == nil {
			body.WriteString(seg.text)
			continue
		}
		b := seg.block
		if b.Decision != Relocate {
			body.WriteString(b.Content)
			continue
		}
		base := b.Ref.Label
		if base == "" {
			base = b.Ref.Alias
		}
		key := AppendixEntry{Label: base, Content: b.Content}
		label, ok := seen[key]
		if !ok {
			labelUses[base]++
			label = base
			if labelUses[base] > 1 {
				label = fmt.Sprintf("%s (%d)", base, labelUses[base])
			}
			seen[key] = label
			appendix = append(appendix, AppendixEntry{Label: label, Content: b.Content})
		}
		body.WriteString(ReferenceText(label))
	}
	return body.String(), appendix
}

func emit(body string, appendix []AppendixEntry) string {
	if len(appendix) == 0 {
		return body
	}
	var out strings.Builder
	out.WriteString(strings.TrimRight(body, "\n"))
	out.WriteString("\n\n## Appendix\n")
	for _, entry := range appendix {
		out.WriteString("\n### ")
		out.WriteString(entry.Label)
		out.WriteString("\n\n")
		out.WriteString(strings.TrimRight(entry.Content, "\n"))
		out.WriteString("\n")
	}
	return out.String()
}
