package report

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// citationPattern matches a bracketed source reference, optionally carrying a
// page marker: [3] or [3, p. 12] or [3, page 12].
var citationPattern = regexp.MustCompile(`\[(\d+)(?:,\s*(?:p\.|page)\s*\d+)?\]`)

// Paragraphs shorter than this are treated as headers or separators and are
// exempt from the citation contract.
const paragraphExemptLength = 20

// ParagraphIssue pinpoints one paragraph that violates the citation contract.
type ParagraphIssue struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Issue string `json:"issue"`
}

// PresenceResult reports whether every qualifying paragraph carries at least
// one valid citation token.
type PresenceResult struct {
	Valid           bool             `json:"valid"`
	ParagraphIssues []ParagraphIssue `json:"paragraph_issues"`
	Message         string           `json:"message"`
}

// VerificationResult is the full citation check: presence plus coverage of
// sources_used in both directions.
type VerificationResult struct {
	Valid             bool             `json:"valid"`
	UncitedSources    []int            `json:"uncited_sources"`
	InvalidCitations  []int            `json:"invalid_citations"`
	UncitedParagraphs []ParagraphIssue `json:"uncited_paragraphs"`
	Message           string           `json:"message"`
}

// PatternAnalysis is the advisory citation-usage profile of a section. It
// flags weak patterns but never blocks submission.
type PatternAnalysis struct {
	Valid                         bool        `json:"valid"`
	SourceUsage                   map[int]int `json:"source_usage"`
	CitationDensity               float64     `json:"citation_frequency"`
	ParagraphsWithoutCitations    int         `json:"paragraphs_without_citations"`
	ParagraphsWithMultipleSources int         `json:"paragraphs_with_multiple_sources"`
	AllParagraphsCited            bool        `json:"all_paragraphs_cited"`
	AllSourcesUsed                bool        `json:"all_sources_used"`
	Message                       string      `json:"message"`
}

// paragraphIndex is the shared parse of one content string: paragraphs split
// on blank lines with their citation ids extracted. The presence, full, and
// pattern checks are read-only views over it.
type paragraphIndex struct {
	paragraphs []indexedParagraph
	citedIDs   map[int]struct{}
}

type indexedParagraph struct {
	index   int
	text    string
	exempt  bool
	cites   []int
	citeSet map[int]struct{}
}

func indexParagraphs(content string) paragraphIndex {
	idx := paragraphIndex{citedIDs: map[int]struct{}{}}
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		p := indexedParagraph{
			index:   len(idx.paragraphs),
			text:    block,
			exempt:  len(strings.TrimSpace(block)) < paragraphExemptLength,
			citeSet: map[int]struct{}{},
		}
		for _, m := range citationPattern.FindAllStringSubmatch(block, -1) {
			id, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			p.cites = append(p.cites, id)
			p.citeSet[id] = struct{}{}
			idx.citedIDs[id] = struct{}{}
		}
		idx.paragraphs = append(idx.paragraphs, p)
	}
	return idx
}

func (p indexedParagraph) excerpt() string {
	if len(p.text) > 100 {
		return p.text[:100] + "..."
	}
	return p.text
}

func (p indexedParagraph) invalidCites(allowed map[int]struct{}) []int {
	var out []int
	for _, id := range p.cites {
		if _, ok := allowed[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func intSet(ids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// CheckCitationPresence verifies that every qualifying paragraph contains at
// least one citation and cites only ids from sourcesUsed.
func CheckCitationPresence(content string, sourcesUsed []int) PresenceResult {
	if len(sourcesUsed) == 0 {
		return PresenceResult{Valid: false, Message: "No sources provided in sources_used list."}
	}
	return presenceView(indexParagraphs(content), intSet(sourcesUsed))
}

func presenceView(idx paragraphIndex, allowed map[int]struct{}) PresenceResult {
	var issues []ParagraphIssue
	for _, p := range idx.paragraphs {
		if p.exempt {
			continue
		}
		if len(p.cites) == 0 {
			issues = append(issues, ParagraphIssue{Index: p.index, Text: p.excerpt(), Issue: "Paragraph contains no citations"})
			continue
		}
		if invalid := p.invalidCites(allowed); len(invalid) > 0 {
			issues = append(issues, ParagraphIssue{
				Index: p.index,
				Text:  p.excerpt(),
				Issue: fmt.Sprintf("Paragraph contains invalid citations: %v", invalid),
			})
		}
	}

	res := PresenceResult{Valid: len(issues) == 0, ParagraphIssues: issues}
	if res.Valid {
		res.Message = "All paragraphs properly cited"
	} else {
		res.Message = fmt.Sprintf("%d paragraphs with citation issues", len(issues))
	}
	return res
}

// VerifyCitations runs the full check: presence, every id in sourcesUsed
// cited at least once, and no cited id outside sourcesUsed.
func VerifyCitations(content string, sourcesUsed []int) VerificationResult {
	idx := indexParagraphs(content)
	allowed := intSet(sourcesUsed)

	res := VerificationResult{Valid: true}
	for _, p := range idx.paragraphs {
		if p.exempt {
			continue
		}
		if len(p.cites) == 0 {
			res.Valid = false
			res.UncitedParagraphs = append(res.UncitedParagraphs, ParagraphIssue{
				Index: p.index, Text: p.excerpt(), Issue: "No citations found",
			})
		}
		if invalid := p.invalidCites(allowed); len(invalid) > 0 {
			res.Valid = false
			res.UncitedParagraphs = append(res.UncitedParagraphs, ParagraphIssue{
				Index: p.index, Text: p.excerpt(), Issue: fmt.Sprintf("Invalid citations: %v", invalid),
			})
		}
	}

	for _, id := range sourcesUsed {
		if _, ok := idx.citedIDs[id]; !ok {
			res.UncitedSources = append(res.UncitedSources, id)
		}
	}
	for id := range idx.citedIDs {
		if _, ok := allowed[id]; !ok {
			res.InvalidCitations = append(res.InvalidCitations, id)
		}
	}
	sort.Ints(res.InvalidCitations)
	if len(res.UncitedSources) > 0 || len(res.InvalidCitations) > 0 {
		res.Valid = false
	}

	var messages []string
	if len(res.UncitedSources) > 0 {
		messages = append(messages, fmt.Sprintf("Sources listed but not cited in content: %s", joinInts(res.UncitedSources)))
	}
	if len(res.InvalidCitations) > 0 {
		messages = append(messages, fmt.Sprintf("Citations in content not in sources_used list: %s", joinInts(res.InvalidCitations)))
	}
	if len(res.UncitedParagraphs) > 0 {
		messages = append(messages, fmt.Sprintf("%d paragraphs with citation issues found.", len(res.UncitedParagraphs)))
	}
	if len(messages) == 0 {
		res.Message = "All citations validated successfully."
	} else {
		res.Message = strings.Join(messages, " ")
	}
	return res
}

// AnalyzeCitationPatterns profiles how sources are used across a section.
// Advisory only.
func AnalyzeCitationPatterns(content string, sourcesUsed []int) PatternAnalysis {
	idx := indexParagraphs(content)

	res := PatternAnalysis{
		SourceUsage:        make(map[int]int, len(sourcesUsed)),
		AllParagraphsCited: true,
		AllSourcesUsed:     true,
	}
	for _, id := range sourcesUsed {
		res.SourceUsage[id] = 0
	}

	qualifying := 0
	cited := 0
	for _, p := range idx.paragraphs {
		if p.exempt {
			continue
		}
		qualifying++
		for id := range p.citeSet {
			if _, ok := res.SourceUsage[id]; ok {
				res.SourceUsage[id]++
			}
		}
		if len(p.cites) == 0 {
			res.ParagraphsWithoutCitations++
			res.AllParagraphsCited = false
			continue
		}
		cited++
		if len(p.citeSet) > 1 {
			res.ParagraphsWithMultipleSources++
		}
	}

	var unused []int
	for _, id := range sourcesUsed {
		if res.SourceUsage[id] == 0 {
			unused = append(unused, id)
		}
	}
	res.AllSourcesUsed = len(unused) == 0

	if qualifying > 0 {
		res.CitationDensity = float64(cited) / float64(qualifying) * 100
	}
	res.Valid = res.AllParagraphsCited && res.AllSourcesUsed

	var messages []string
	if !res.AllParagraphsCited {
		messages = append(messages, fmt.Sprintf("%d paragraph(s) without citations", res.ParagraphsWithoutCitations))
	}
	if !res.AllSourcesUsed {
		messages = append(messages, "Unused sources: "+joinInts(unused))
	}
	if len(messages) == 0 {
		res.Message = "All paragraphs properly cited and all sources used."
	} else {
		res.Message = strings.Join(messages, ". ")
	}
	return res
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
