package report

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is the tagged form of one workflow input. Inputs arrive as loose
// key/value records; classification happens exactly once, here, by
// fixed-priority key presence: topic, then search_sources, then
// confirm_sources, then section submission.
type Command interface{ isCommand() }

// InitCommand (re)initializes a session with a topic.
type InitCommand struct {
	Topic           string
	PageCount       int
	SourceCount     int
	IncludeGraphics bool
}

// SearchCommand requests source discovery.
type SearchCommand struct{}

// ConfirmCommand confirms the discovered sources.
type ConfirmCommand struct{}

// SectionCommand submits one authored section.
type SectionCommand struct {
	Section Section
}

func (InitCommand) isCommand()    {}
func (SearchCommand) isCommand()  {}
func (ConfirmCommand) isCommand() {}
func (SectionCommand) isCommand() {}

// StepError is a workflow-level failure. It is returned as data, never as a
// Go error crossing the Process boundary.
type StepError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detailed_message,omitempty"`

	ParagraphIssues   []ParagraphIssue `json:"paragraph_issues,omitempty"`
	UncitedSources    []int            `json:"uncited_sources,omitempty"`
	InvalidCitations  []int            `json:"invalid_citations,omitempty"`
	UncitedParagraphs []ParagraphIssue `json:"uncited_paragraphs,omitempty"`
}

// Error kinds.
const (
	ErrKindValidation = "validation"
	ErrKindCitation   = "citation"
	ErrKindNoSources  = "no_sources"
	ErrKindInternal   = "internal"
)

func validationError(format string, args ...interface{}) *StepError {
	return &StepError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

// ParseCommand classifies one input record into a Command. Structural
// problems yield a StepError naming the offending field; nothing is mutated.
func ParseCommand(input map[string]interface{}) (Command, *StepError) {
	if input == nil {
		return nil, validationError("expected an input record, got nothing")
	}

	if rawTopic, ok := input["topic"]; ok {
		topic, ok := rawTopic.(string)
		if !ok || strings.TrimSpace(topic) == "" {
			return nil, validationError("invalid topic: must be a non-empty string")
		}
		cmd := InitCommand{
			Topic:       topic,
			PageCount:   coerceIntDefault(input["page_count"], DefaultPageCount),
			SourceCount: coerceIntDefault(input["source_count"], DefaultSourceCount),
		}
		cmd.IncludeGraphics = coerceBool(input["include_graphics"])
		return cmd, nil
	}

	if coerceBool(input["search_sources"]) {
		return SearchCommand{}, nil
	}

	if coerceBool(input["confirm_sources"]) {
		return ConfirmCommand{}, nil
	}

	return parseSection(input)
}

func parseSection(input map[string]interface{}) (Command, *StepError) {
	for _, field := range []string{"section_number", "total_sections"} {
		if _, ok := input[field]; !ok {
			return nil, validationError("missing required field: %s", field)
		}
	}

	sectionNumber, ok := coerceInt(input["section_number"])
	if !ok || sectionNumber < 1 {
		return nil, validationError("invalid section_number: must be a positive number")
	}
	totalSections, ok := coerceInt(input["total_sections"])
	if !ok || totalSections < 1 {
		return nil, validationError("invalid total_sections: must be a positive number")
	}

	isBibliography := coerceBool(input["is_bibliography"])

	title := fmt.Sprintf("Section %d", sectionNumber)
	if rawTitle, ok := input["title"]; ok && rawTitle != nil {
		s, ok := rawTitle.(string)
		if !ok {
			return nil, validationError("invalid title: must be a string")
		}
		if strings.TrimSpace(s) != "" {
			title = s
		}
	}

	content := ""
	if rawContent, ok := input["content"]; ok && rawContent != nil {
		s, ok := rawContent.(string)
		if !ok {
			return nil, validationError("invalid content: must be a string")
		}
		content = s
	}
	if !isBibliography && len(strings.TrimSpace(content)) < minContentLength {
		return nil, validationError("content is required for non-bibliography sections and must be meaningful")
	}

	sourcesUsed, ok := coerceIntList(input["sources_used"])
	if !ok {
		return nil, validationError("invalid sources_used: must be a list of source IDs")
	}
	if !isBibliography && len(sourcesUsed) == 0 {
		return nil, validationError("non-bibliography sections must include sources_used with at least one source ID")
	}

	nextNeeded := true
	if raw, ok := input["next_section_needed"]; ok {
		nextNeeded = coerceBool(raw)
	}

	return SectionCommand{Section: Section{
		SectionNumber:     sectionNumber,
		TotalSections:     totalSections,
		Title:             title,
		Content:           content,
		IsBibliography:    isBibliography,
		SourcesUsed:       sourcesUsed,
		NextSectionNeeded: nextNeeded,
	}}, nil
}

// coerceInt accepts the numeric shapes a JSON boundary produces: ints,
// whole-valued floats, and digit strings.
func coerceInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func coerceIntDefault(v interface{}, def int) int {
	if v == nil {
		return def
	}
	n, ok := coerceInt(v)
	if !ok || n < 1 {
		return def
	}
	return n
}

func coerceBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func coerceIntList(v interface{}) ([]int, bool) {
	if v == nil {
		return nil, true
	}
	switch t := v.(type) {
	case []int:
		return t, true
	case []interface{}:
		out := make([]int, 0, len(t))
		for _, item := range t {
			n, ok := coerceInt(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	}
	return nil, false
}
