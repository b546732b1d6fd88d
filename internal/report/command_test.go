package report

import (
	"strings"
	"testing"
)

func TestParseCommandPriorityOrder(t *testing.T) {
	t.Parallel()
	// Topic wins over everything else present in the same record.
	cmd, stepErr := ParseCommand(map[string]interface{}{
		"topic":          "art nouveau posters",
		"search_sources": true,
		"section_number": 1,
	})
	if stepErr != nil {
		t.Fatalf("unexpected error: %+v", stepErr)
	}
	if _, ok := cmd.(InitCommand); !ok {
		t.Fatalf("expected InitCommand, got %T", cmd)
	}

	cmd, _ = ParseCommand(map[string]interface{}{"search_sources": true, "confirm_sources": true})
	if _, ok := cmd.(SearchCommand); !ok {
		t.Fatalf("expected SearchCommand, got %T", cmd)
	}

	cmd, _ = ParseCommand(map[string]interface{}{"confirm_sources": true})
	if _, ok := cmd.(ConfirmCommand); !ok {
		t.Fatalf("expected ConfirmCommand, got %T", cmd)
	}
}

func TestParseCommandInitCoercion(t *testing.T) {
	t.Parallel()
	cmd, stepErr := ParseCommand(map[string]interface{}{
		"topic":        "ottoman calligraphy",
		"page_count":   "6",
		"source_count": float64(15),
	})
	if stepErr != nil {
		t.Fatalf("unexpected error: %+v", stepErr)
	}
	init := cmd.(InitCommand)
	if init.PageCount != 6 || init.SourceCount != 15 {
		t.Fatalf("coercion failed: %+v", init)
	}
}

func TestParseCommandInitDefaultsOnBadNumbers(t *testing.T) {
	t.Parallel()
	cmd, stepErr := ParseCommand(map[string]interface{}{
		"topic":        "viking navigation",
		"page_count":   "not-a-number",
		"source_count": -3,
	})
	if stepErr != nil {
		t.Fatalf("unexpected error: %+v", stepErr)
	}
	init := cmd.(InitCommand)
	if init.PageCount != DefaultPageCount {
		t.Fatalf("PageCount = %d, want default %d", init.PageCount, DefaultPageCount)
	}
	if init.SourceCount != DefaultSourceCount {
		t.Fatalf("SourceCount = %d, want default %d", init.SourceCount, DefaultSourceCount)
	}
}

func TestParseCommandSection(t *testing.T) {
	t.Parallel()
	cmd, stepErr := ParseCommand(map[string]interface{}{
		"section_number": "2",
		"total_sections": float64(9),
		"content":        "A sufficiently long body of text for a section.",
		"sources_used":   []interface{}{float64(1), float64(2)},
	})
	if stepErr != nil {
		t.Fatalf("unexpected error: %+v", stepErr)
	}
	section := cmd.(SectionCommand).Section
	if section.SectionNumber != 2 || section.TotalSections != 9 {
		t.Fatalf("numeric coercion failed: %+v", section)
	}
	if section.Title != "Section 2" {
		t.Fatalf("title default = %q, want %q", section.Title, "Section 2")
	}
	if len(section.SourcesUsed) != 2 {
		t.Fatalf("sources_used = %v", section.SourcesUsed)
	}
	if !section.NextSectionNeeded {
		t.Fatal("next_section_needed should default to true")
	}
}

func TestParseCommandSectionValidation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		input map[string]interface{}
		want  string
	}{
		{
			"missing section_number",
			map[string]interface{}{"total_sections": 3},
			"section_number",
		},
		{
			"missing total_sections",
			map[string]interface{}{"section_number": 1},
			"total_sections",
		},
		{
			"non-numeric section_number",
			map[string]interface{}{"section_number": "two", "total_sections": 3},
			"section_number",
		},
		{
			"content not a string",
			map[string]interface{}{"section_number": 1, "total_sections": 3, "content": 42, "sources_used": []interface{}{float64(1)}},
			"content",
		},
		{
			"content too short",
			map[string]interface{}{"section_number": 1, "total_sections": 3, "content": "tiny", "sources_used": []interface{}{float64(1)}},
			"content",
		},
		{
			"missing sources_used",
			map[string]interface{}{"section_number": 1, "total_sections": 3, "content": "A sufficiently long body of text."},
			"sources_used",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, stepErr := ParseCommand(tc.input)
			if stepErr == nil {
				t.Fatal("expected a validation error")
			}
			if stepErr.Kind != ErrKindValidation {
				t.Fatalf("kind = %q, want %q", stepErr.Kind, ErrKindValidation)
			}
			if !strings.Contains(stepErr.Message, tc.want) {
				t.Fatalf("message %q does not name field %q", stepErr.Message, tc.want)
			}
		})
	}
}

func TestParseCommandBibliographySkipsContentChecks(t *testing.T) {
	t.Parallel()
	cmd, stepErr := ParseCommand(map[string]interface{}{
		"section_number":  1,
		"total_sections":  9,
		"title":           "Bibliography",
		"is_bibliography": true,
	})
	if stepErr != nil {
		t.Fatalf("bibliography must not require content or sources: %+v", stepErr)
	}
	section := cmd.(SectionCommand).Section
	if !section.IsBibliography {
		t.Fatal("is_bibliography lost in parsing")
	}
}
