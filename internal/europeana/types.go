package europeana

import (
	"encoding/json"
	"strconv"
)

// Record is one Europeana record as returned by the API. Field values are
// heterogeneous: most metadata fields arrive either as a scalar or as a list
// of language-tagged values, so records stay loosely typed and go through
// ProcessRecord for normalization.
type Record map[string]interface{}

// SearchMetadata describes one executed search.
type SearchMetadata struct {
	Query           string `json:"query"`
	TotalRecords    int    `json:"total_records"`
	RecordsReturned int    `json:"records_returned"`
}

// SearchResult is the normalized envelope around a search response.
type SearchResult struct {
	Metadata SearchMetadata    `json:"metadata"`
	Records  []Record          `json:"records"`
	Facets   []json.RawMessage `json:"facets,omitempty"`
}

// searchResponse mirrors the raw Europeana search.json payload.
type searchResponse struct {
	Success      bool              `json:"success"`
	TotalResults int               `json:"totalResults"`
	ItemsCount   int               `json:"itemsCount"`
	Items        []Record          `json:"items"`
	Facets       []json.RawMessage `json:"facets"`
	Error        string            `json:"error"`
}

// recordResponse mirrors the raw Europeana record payload.
type recordResponse struct {
	Success bool   `json:"success"`
	Object  Record `json:"object"`
	Error   string `json:"error"`
}

// First returns the first string value under key, unwrapping list-valued
// fields. Missing or non-string values yield "".
func (r Record) First(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok {
				return s
			}
		}
	case []string:
		if len(t) > 0 {
			return t[0]
		}
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
	}
	return ""
}
