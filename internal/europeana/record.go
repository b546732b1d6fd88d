package europeana

import "strings"

// ProcessedRecord is the flattened view of a heterogeneous Europeana record:
// every field reduced to a single string, list-valued and language-tagged
// variants unwrapped.
type ProcessedRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Creator     string `json:"creator"`
	Description string `json:"description"`
	Provider    string `json:"provider"`
	Rights      string `json:"rights"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	ShownBy     string `json:"shown_by"`
	ShownAt     string `json:"shown_at"`
	Thumbnail   string `json:"thumbnail"`
}

// ProcessRecord extracts the key fields of a record into a flat map, with
// the defaults the bibliography layer expects for absent metadata.
func ProcessRecord(r Record) ProcessedRecord {
	p := ProcessedRecord{
		ID:          r.First("id"),
		Title:       r.First("title"),
		Creator:     r.First("creator"),
		Description: r.First("description"),
		Provider:    r.First("provider"),
		Rights:      r.First("rights"),
		Date:        r.First("year"),
		Type:        r.First("type"),
		ShownBy:     r.First("edmIsShownBy"),
		ShownAt:     r.First("edmIsShownAt"),
		Thumbnail:   ExtractThumbnail(r),
	}
	if p.ID == "" {
		p.ID = r.First("about")
	}
	if p.Title == "" {
		p.Title = "Untitled"
	}
	if p.Creator == "" {
		p.Creator = "Unknown Creator"
	}
	if p.Provider == "" {
		p.Provider = "Unknown Provider"
	}
	if p.Rights == "" {
		p.Rights = "Unknown Rights"
	}
	if p.Date == "" {
		p.Date = "Unknown Date"
	}
	return p
}

// MediaURL returns the preferred media link of a record: the direct
// "shown-by" resource when present, the "shown-at" landing page otherwise.
// Empty when the record exposes neither.
func (p ProcessedRecord) MediaURL() string {
	if p.ShownBy != "" {
		return p.ShownBy
	}
	return p.ShownAt
}

// IsPDF reports whether the record's media link points at a PDF file,
// independent of the declared record type.
func (p ProcessedRecord) IsPDF() bool {
	return strings.HasSuffix(strings.ToLower(p.MediaURL()), ".pdf")
}

// ExtractThumbnail pulls a thumbnail URL from a search result or a full
// record's aggregations.
func ExtractThumbnail(r Record) string {
	if s := r.First("edmPreview"); s != "" {
		return s
	}
	if s := r.First("edmIsShownBy"); s != "" {
		return s
	}
	aggs, ok := r["aggregations"].([]interface{})
	if !ok {
		return ""
	}
	for _, raw := range aggs {
		agg, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if s := Record(agg).First("edmIsShownBy"); s != "" {
			return s
		}
	}
	return ""
}
