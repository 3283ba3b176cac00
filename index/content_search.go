package index

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/bmatcuk/doublestar/v4"
)

// SearchResult groups the matching lines of one document.
type SearchResult struct {
	Document *Document
	Matches  []LineMatch
}

// LineMatch is one matching line with optional context.
type LineMatch struct {
	LineNumber    int
	LineText      string
	ContextBefore []string
	ContextAfter  []string
}

// SearchOptions configures a search.
type SearchOptions struct {
	Query        string
	Alias        string // restrict to one attachment
	FileGlob     string // doublestar pattern over paths relative to the attachment root
	MaxResults   int
	ContextLines int
}

// Search runs a query over the indexed text.
// Query format:
//   - Plain text: match query (word-level matching)
//   - "quoted text": phrase query (exact phrase match)
//   - /regex/: regexp query
func (si *SearchIndex) Search(options SearchOptions) ([]SearchResult, int, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if options.MaxResults <= 0 {
		options.MaxResults = 50
	}
	if options.ContextLines < 0 {
		options.ContextLines = 0
	}
	glob := strings.ReplaceAll(options.FileGlob, "\\", "/")
	if glob != "" && !doublestar.ValidatePattern(glob) {
		return nil, 0, fmt.Errorf("invalid glob pattern: %s", options.FileGlob)
	}

	q := buildQuery(options.Query)
	if options.Alias != "" {
		aliasQuery := bleve.NewTermQuery(options.Alias)
		aliasQuery.SetField("alias")
		q = bleve.NewConjunctionQuery(q, aliasQuery)
	}

	request := bleve.NewSearchRequest(q)
	request.Size = options.MaxResults * 5 // filtered and grouped below
	request.Fields = []string{"path", "alias"}

	hits, err := si.index.Search(request)
	if err != nil {
		return nil, 0, fmt.Errorf("searching index: %w", err)
	}

	var results []SearchResult
	total := 0
	for _, hit := range hits.Hits {
		doc, ok := si.docs[hit.ID]
		if !ok {
			continue
		}
		if glob != "" {
			if matched, err := doublestar.Match(glob, doc.Path); err != nil || !matched {
				continue
			}
		}
		lines := findMatchingLines(si.contents[hit.ID], options.Query, options.ContextLines)
		if len(lines) == 0 {
			continue
		}
		total += len(lines)
		results = append(results, SearchResult{Document: doc, Matches: lines})
		if len(results) >= options.MaxResults {
			break
		}
	}
	return results, total, nil
}

// buildQuery parses the query string into a Bleve query.
func buildQuery(queryString string) query.Query {
	queryString = strings.TrimSpace(queryString)

	if strings.HasPrefix(queryString, "/") && strings.HasSuffix(queryString, "/") && len(queryString) > 2 {
		return bleve.NewRegexpQuery(queryString[1 : len(queryString)-1])
	}
	if strings.HasPrefix(queryString, "\"") && strings.HasSuffix(queryString, "\"") && len(queryString) > 2 {
		return bleve.NewMatchPhraseQuery(queryString[1 : len(queryString)-1])
	}
	return bleve.NewMatchQuery(queryString)
}

// findMatchingLines returns the lines containing the search term,
// case-insensitively, with up to contextLines of surrounding text.
func findMatchingLines(content string, queryString string, contextLines int) []LineMatch {
	lines := strings.Split(content, "\n")
	term := strings.ToLower(extractSearchTerm(queryString))

	var matches []LineMatch
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), term) {
			continue
		}
		match := LineMatch{LineNumber: i + 1, LineText: line}
		if contextLines > 0 {
			start := max(i-contextLines, 0)
			match.ContextBefore = append(match.ContextBefore, lines[start:i]...)
			end := min(i+contextLines+1, len(lines))
			match.ContextAfter = append(match.ContextAfter, lines[i+1:end]...)
		}
		matches = append(matches, match)
	}
	return matches
}

// extractSearchTerm strips query syntax to get the raw term for line matching.
func extractSearchTerm(queryString string) string {
	queryString = strings.TrimSpace(queryString)
	if len(queryString) > 2 {
		first, last := queryString[0], queryString[len(queryString)-1]
		if (first == '/' && last == '/') || (first == '"' && last == '"') {
			return queryString[1 : len(queryString)-1]
		}
	}
	return queryString
}
