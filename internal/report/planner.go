package report

import "fmt"

// maxPlanSections caps the report skeleton regardless of page budget.
const maxPlanSections = 20

// NewPlan derives a report skeleton from a page budget: one page yields
// roughly two sections, plus the bibliography, capped at maxPlanSections.
// Bibliography comes first so every later section can cite it; Conclusion is
// always last.
func NewPlan(topic string, pageCount int) *Plan {
	if pageCount < 1 {
		pageCount = DefaultPageCount
	}
	total := pageCount*2 + 1
	if total > maxPlanSections {
		total = maxPlanSections
	}

	sections := []PlanSection{
		{Title: "Bibliography", IsBibliography: true},
		{Title: "Introduction"},
	}
	if pageCount >= 2 {
		sections = append(sections, PlanSection{Title: "Historical Context"})
	}
	if pageCount >= 3 {
		sections = append(sections,
			PlanSection{Title: "Main Analysis"},
			PlanSection{Title: "Key Findings"})
	}
	if pageCount >= 4 {
		sections = append(sections,
			PlanSection{Title: "Detailed Examination"},
			PlanSection{Title: "Cultural Significance"})
	}
	for i := 1; len(sections) < total-1; i++ {
		sections = append(sections, PlanSection{Title: fmt.Sprintf("Additional Analysis %d", i)})
	}
	sections = append(sections, PlanSection{Title: "Conclusion"})

	return &Plan{
		Topic:         topic,
		Sections:      sections,
		TotalSections: len(sections),
		Steps:         planSteps,
		Guidelines:    reportGuidelines,
		NextStep:      "Search for sources and extract PDF content",
	}
}

// planSteps and reportGuidelines are static policy text, independent of the
// topic.
var planSteps = []string{
	"Initialize with topic",
	"Search for sources and extract PDF content",
	"Analyze PDF content for primary source material",
	"Create bibliography with PDFs marked",
	"Write introduction incorporating PDF insights",
	"Develop content sections using PDF extracts",
	"Include images when relevant to illustrate key points",
	"Write conclusion",
}

var reportGuidelines = []string{
	"CRITICAL: NEVER invent or fabricate any information. If sources are insufficient, explicitly state this limitation.",
	"Every statement in the report MUST be directly supported by the content from the sources found.",
	"Use specific citations ([source_id], page X) for EVERY factual claim in the report.",
	"Always include proper references with links to the original sources.",
	"Use PDF content to extract direct quotes and primary source material.",
	"Include images when they help illustrate important concepts.",
	"Explicitly mention where you found each piece of information and explain its relevance.",
	"Try to use at least two different source providers/institutions for varied perspectives.",
	"Include a brief source analysis at the end of each section.",
	"Make connections between different sources when possible.",
	"When analyzing PDFs, cite the specific page number if available.",
	"If sources are insufficient to address an aspect of the topic, clearly state this limitation rather than attempting to fill the gap.",
}
