package report

import "github.com/m-khosravi/chronicler/internal/europeana"

// Default workflow parameters, matching the tool's published schema.
const (
	DefaultPageCount     = 4
	DefaultSourceCount   = 10
	DefaultGraphicsCount = 5

	// Non-bibliography sections must carry at least this much content.
	minContentLength = 10
)

// Phase is the workflow state of a session. Transitions only move forward
// except for re-initialization, which resets the whole session.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseTopicSet
	PhaseSourcesDiscovered
	PhaseSourcesConfirmed
	PhaseAuthoring
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseTopicSet:
		return "topic_set"
	case PhaseSourcesDiscovered:
		return "sources_discovered"
	case PhaseSourcesConfirmed:
		return "sources_confirmed"
	case PhaseAuthoring:
		return "authoring"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// MediaType classifies a source's media.
type MediaType string

const (
	MediaImage MediaType = "IMAGE"
	MediaVideo MediaType = "VIDEO"
	MediaSound MediaType = "SOUND"
	MediaText  MediaType = "TEXT"
	MediaPDF   MediaType = "PDF"
	MediaOther MediaType = "OTHER"
)

// NormalizeMediaType maps a record's declared type onto the known set.
func NormalizeMediaType(declared string) MediaType {
	switch MediaType(declared) {
	case MediaImage, MediaVideo, MediaSound, MediaText:
		return MediaType(declared)
	default:
		return MediaOther
	}
}

// Source is one normalized reference to a retrieved heritage record. IDs are
// session-local and dense 1..N in list order; EuropeanaID is the dedup key
// and unique within a session.
type Source struct {
	ID          int                   `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	URL         string                `json:"url"`
	Provider    string                `json:"provider"`
	Thumbnail   string                `json:"thumbnail,omitempty"`
	MediaType   MediaType             `json:"media_type"`
	Rights      string                `json:"rights"`
	Date        string                `json:"date"`
	EuropeanaID string                `json:"europeanaId"`
	IsPDF       bool                  `json:"is_pdf"`
	HasContent  bool                  `json:"has_content"`
	PDFContent  *europeana.PDFContent `json:"pdf_content,omitempty"`
}

// Graphic is a visual/audio/video source with its own id sequence.
type Graphic struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Provider    string    `json:"provider"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	MediaType   MediaType `json:"media_type"`
	Rights      string    `json:"rights"`
	Date        string    `json:"date"`
	EuropeanaID string    `json:"europeanaId"`
}

// Section is one authored report unit.
type Section struct {
	SectionNumber     int    `json:"section_number"`
	TotalSections     int    `json:"total_sections"`
	Title             string `json:"title"`
	Content           string `json:"content"`
	IsBibliography    bool   `json:"is_bibliography"`
	SourcesUsed       []int  `json:"sources_used"`
	NextSectionNeeded bool   `json:"next_section_needed"`
}

// PlanSection is one planned section stub.
type PlanSection struct {
	Title          string `json:"title"`
	IsBibliography bool   `json:"is_bibliography"`
}

// Plan is the report structure derived from the page budget. It is created
// once per session; only CurrentSection advances afterwards.
type Plan struct {
	Topic          string        `json:"topic"`
	Sections       []PlanSection `json:"sections"`
	TotalSections  int           `json:"total_sections"`
	CurrentSection int           `json:"current_section"`
	Steps          []string      `json:"steps"`
	Guidelines     []string      `json:"reportGuidelines"`
	NextStep       string        `json:"next_step"`
}

// ProviderAnalysis summarizes the contributing institutions behind a source
// list. Recomputed whenever the source list changes.
type ProviderAnalysis struct {
	Diverse         bool           `json:"diverse_sources"`
	TotalProviders  int            `json:"total_providers"`
	PrimaryProvider string         `json:"primary_provider"`
	Distribution    map[string]int `json:"provider_distribution"`
}

// Session is the full mutable state of one report workflow. It is owned by
// exactly one Controller and never persisted.
type Session struct {
	ID              string
	Topic           string
	PageCount       int
	SourceCount     int
	IncludeGraphics bool
	Phase           Phase
	Sources         []Source
	Graphics        []Graphic
	Sections        []Section
	Plan            *Plan
	Providers       ProviderAnalysis
}
