package retrieval

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/quarry/internal/models"
)

// Tool-call argument keys. Single-term tools use search_term, multi-term
// tools use search_terms.
const (
	ArgSearchTerm  = "search_term"
	ArgSearchTerms = "search_terms"
)

type resultEntry struct {
	Title   string        `json:"Title"`
	Chunk   string        `json:"Chunk"`
	Figures []figureEntry `json:"Figures,omitempty"`
}

type figureEntry struct {
	FigureID    string `json:"FigureId"`
	Description string `json:"Description,omitempty"`
}

// ParseSearchArguments extracts the query strings from a search tool call.
// Any decoding failure or missing key yields a ToolCallArgumentError.
func ParseSearchArguments(raw string) ([]string, error) {
	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, &models.ToolCallArgumentError{Arguments: raw, Err: err}
	}

	var queries []string
	if value, ok := args[ArgSearchTerm]; ok {
		var term string
		if err := json.Unmarshal(value, &term); err != nil {
			return nil, &models.ToolCallArgumentError{Arguments: raw, Err: fmt.Errorf("%s: %w", ArgSearchTerm, err)}
		}
		queries = append(queries, term)
	} else if value, ok := args[ArgSearchTerms]; ok {
		if err := json.Unmarshal(value, &queries); err != nil {
			return nil, &models.ToolCallArgumentError{Arguments: raw, Err: fmt.Errorf("%s: %w", ArgSearchTerms, err)}
		}
	} else {
		return nil, &models.ToolCallArgumentError{
			Arguments: raw,
			Err:       fmt.Errorf("expected %s or %s", ArgSearchTerm, ArgSearchTerms),
		}
	}

	cleaned := queries[:0]
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	if len(cleaned) == 0 {
		return nil, &models.ToolCallArgumentError{Arguments: raw, Err: errors.New("no search terms")}
	}
	return cleaned, nil
}

// EncodeSearchArguments builds the argument JSON for a search tool call
func EncodeSearchArguments(queries []string, multi bool) string {
	var (
		data []byte
		err  error
	)
	if multi {
		data, err = json.Marshal(map[string][]string{ArgSearchTerms: queries})
	} else {
		data, err = json.Marshal(map[string]string{ArgSearchTerm: strings.Join(queries, " ")})
	}
	if err != nil {
		return "{}"
	}
	return string(data)
}

// EncodeResultSet serializes a result set as the tool-call result envelope:
// a JSON object mapping passage id -> {Title, Chunk, Figures}. Keys keep
// retrieval order.
func EncodeResultSet(rs *models.ResultSet) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, passage := range rs.Passages() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(passage.ID)
		if err != nil {
			return "", err
		}
		entry := resultEntry{Title: passage.Title, Chunk: passage.Body}
		for _, f := range passage.Figures {
			entry.Figures = append(entry.Figures, figureEntry{FigureID: f.ID, Description: f.Description})
		}
		value, err := json.Marshal(entry)
		if err != nil {
			return "", err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

// DecodeResultSet parses a tool-call result envelope, preserving key order.
// Figure entries carry ids and descriptions only; payloads live in the cache.
func DecodeResultSet(content string) (*models.ResultSet, error) {
	dec := json.NewDecoder(strings.NewReader(content))

	tok, err := dec.Token()
	if err != nil {
		return nil, &models.MalformedToolResultError{Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &models.MalformedToolResultError{Err: fmt.Errorf("expected object, got %v", tok)}
	}

	rs := models.NewResultSet()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &models.MalformedToolResultError{Err: err}
		}
		id, ok := tok.(string)
		if !ok {
			return nil, &models.MalformedToolResultError{Err: fmt.Errorf("expected passage id, got %v", tok)}
		}

		var entry resultEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, &models.MalformedToolResultError{Err: fmt.Errorf("passage %s: %w", id, err)}
		}

		passage := models.Passage{ID: id, Title: entry.Title, Body: entry.Chunk}
		for _, f := range entry.Figures {
			passage.Figures = append(passage.Figures, models.Figure{ID: f.FigureID, Description: f.Description})
		}
		rs.Add(passage)
	}

	if _, err := dec.Token(); err != nil {
		return nil, &models.MalformedToolResultError{Err: err}
	}
	return rs, nil
}
