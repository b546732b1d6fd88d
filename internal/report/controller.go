package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/m-khosravi/chronicler/internal/telemetry"
)

// StepResult is the structured outcome of one workflow step. The payload is
// serialized JSON; IsError marks workflow-level failures, which are data,
// not transport errors.
type StepResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ContentItem carries one serialized payload.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Controller owns one Session and sequences it through the report workflow:
// init, discover sources, confirm, author sections, complete. Callers must
// serialize Process calls; a Controller is single-owner by design.
type Controller struct {
	discovery     *DiscoveryEngine
	metrics       *telemetry.Metrics
	logger        *log.Logger
	graphicsCount int

	session Session
}

// NewController builds a controller with an uninitialized session.
func NewController(discovery *DiscoveryEngine, metrics *telemetry.Metrics) *Controller {
	return &Controller{
		discovery:     discovery,
		metrics:       metrics,
		logger:        log.New(log.Writer(), "[REPORT] ", log.LstdFlags),
		graphicsCount: DefaultGraphicsCount,
		session:       Session{ID: uuid.New().String()},
	}
}

// Session exposes a copy of the current session state for inspection.
func (c *Controller) Session() Session { return c.session }

// Process handles one workflow input. It never returns a Go error or panics:
// validation and citation failures come back as tagged error payloads, and
// unexpected failures are caught and reported generically with diagnostic
// detail. The workflow stays resumable after any error.
func (c *Controller) Process(ctx context.Context, input map[string]interface{}) (result StepResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("unexpected failure: %v\n%s", r, debug.Stack())
			result = errorResult(&StepError{
				Kind:    ErrKindInternal,
				Message: fmt.Sprintf("Unexpected error: %v", r),
				Detail:  string(debug.Stack()),
			})
		}
	}()

	cmd, stepErr := ParseCommand(input)
	if stepErr != nil {
		return errorResult(stepErr)
	}

	switch cmd := cmd.(type) {
	case InitCommand:
		return c.handleInit(cmd)
	case SearchCommand:
		return c.handleSearch(ctx)
	case ConfirmCommand:
		return c.handleConfirm()
	case SectionCommand:
		return c.handleSection(cmd.Section)
	default:
		return errorResult(&StepError{Kind: ErrKindInternal, Message: "unhandled command"})
	}
}

// handleInit (re)initializes the session. A topic always wins over the
// current phase: collections are reset and the plan rebuilt.
func (c *Controller) handleInit(cmd InitCommand) StepResult {
	c.session = Session{
		ID:              uuid.New().String(),
		Topic:           cmd.Topic,
		PageCount:       cmd.PageCount,
		SourceCount:     cmd.SourceCount,
		IncludeGraphics: cmd.IncludeGraphics,
		Phase:           PhaseTopicSet,
		Plan:            NewPlan(cmd.Topic, cmd.PageCount),
	}
	c.logger.Printf("session %s initialized: topic=%q pages=%d sources=%d", c.session.ID, cmd.Topic, cmd.PageCount, cmd.SourceCount)

	return jsonResult(map[string]interface{}{
		"topic":           c.session.Topic,
		"pageCount":       c.session.PageCount,
		"sourceCount":     c.session.SourceCount,
		"includeGraphics": c.session.IncludeGraphics,
		"plan":            c.session.Plan,
		"nextStep":        "Search for sources with the search_sources step",
	})
}

func (c *Controller) handleSearch(ctx context.Context) StepResult {
	if c.session.Phase < PhaseTopicSet {
		return errorResult(validationError("No topic specified. Please initialize with a topic first."))
	}

	sources, err := c.discovery.SearchSources(ctx, c.session.Topic, c.session.SourceCount)
	if err != nil {
		return errorResult(&StepError{Kind: ErrKindInternal, Message: fmt.Sprintf("Source discovery failed: %v", err)})
	}
	if len(sources) == 0 {
		// Hard failure: every strategy came back empty. Retrying the same
		// topic will not help.
		return errorResult(&StepError{
			Kind:    ErrKindNoSources,
			Message: "No sources found for the topic. Cannot proceed with report generation.",
			Detail:  "No sources could be found on this topic. Please try a different search query or topic.",
		})
	}

	c.session.Sources = sources
	c.session.Graphics = nil
	if c.session.IncludeGraphics {
		c.session.Graphics = c.discovery.SearchGraphics(ctx, c.session.Topic, c.graphicsCount)
	}
	c.session.Providers = AnalyzeProviderDiversity(sources)
	c.session.Phase = PhaseSourcesDiscovered

	mediaCounts := map[MediaType]int{
		MediaImage: 0, MediaVideo: 0, MediaSound: 0, MediaText: 0, MediaPDF: 0, MediaOther: 0,
	}
	pdfWithContent := 0
	for _, s := range sources {
		mediaCounts[s.MediaType]++
		if s.IsPDF {
			mediaCounts[MediaPDF]++
		}
		if s.HasContent {
			pdfWithContent++
		}
	}

	pdfMessage := "WARNING: No sources with readable PDF content were found. This may limit the ability to create a detailed factual report. DO NOT fabricate information - focus only on what is available in the metadata."
	if pdfWithContent > 0 {
		pdfMessage = fmt.Sprintf("Found %d sources with PDF content. These have been automatically analyzed and the extracted text is available for your use. PDF content provides valuable primary source material.", pdfWithContent)
	}

	analysisMessage := fmt.Sprintf("All sources are from a single provider: %s. Please note this limitation in your report.", c.session.Providers.PrimaryProvider)
	if c.session.Providers.Diverse {
		analysisMessage = fmt.Sprintf("Found %d sources from %d different providers. You should use sources from multiple providers in your report for diverse perspectives.", len(sources), c.session.Providers.TotalProviders)
	}

	return jsonResult(map[string]interface{}{
		"confirmationRequired": true,
		"sourceSummary": map[string]interface{}{
			"totalFound":            len(sources),
			"requestedSourceCount":  c.session.SourceCount,
			"sourcesReturned":       len(sources),
			"mediaTypeCounts":       mediaCounts,
			"sourcesWithPDFContent": pdfWithContent,
			"providersCount":        c.session.Providers.TotalProviders,
			"graphicsFound":         len(c.session.Graphics),
		},
		"sources":  c.session.Sources,
		"graphics": c.session.Graphics,
		"sourceAnalysis": map[string]interface{}{
			"message":              analysisMessage,
			"providerDistribution": c.session.Providers.Distribution,
			"diverse":              c.session.Providers.Diverse,
		},
		"pdfAnalysis":        pdfMessage,
		"sourcesWithContent": pdfWithContent > 0,
		"nextStep":           "Please confirm if you want to proceed with generating the report using these sources.",
	})
}

func (c *Controller) handleConfirm() StepResult {
	if c.session.Phase != PhaseSourcesDiscovered && c.session.Phase != PhaseSourcesConfirmed {
		return errorResult(validationError("No sources to confirm. Search for sources first."))
	}
	c.session.Phase = PhaseSourcesConfirmed

	return jsonResult(map[string]interface{}{
		"message":  "Source selection confirmed. Proceeding with report generation.",
		"nextStep": "Create bibliography section",
	})
}

func (c *Controller) handleSection(section Section) StepResult {
	if c.session.Phase != PhaseSourcesConfirmed && c.session.Phase != PhaseAuthoring {
		return errorResult(validationError("Sources must be discovered and confirmed before authoring sections."))
	}

	var citationWarning string
	if !section.IsBibliography {
		for _, id := range section.SourcesUsed {
			if id < 1 || id > len(c.session.Sources) {
				c.rejectSection(ErrKindValidation)
				return errorResult(validationError("invalid sources_used: source ID %d does not exist in this session", id))
			}
		}

		// Blocking checks; the section is not recorded and nothing is
		// mutated until both pass.
		presence := CheckCitationPresence(section.Content, section.SourcesUsed)
		if !presence.Valid {
			c.rejectSection(ErrKindCitation)
			return errorResult(&StepError{
				Kind:            ErrKindCitation,
				Message:         "Content validation failed: " + presence.Message,
				Detail:          "Ensure every substantial paragraph contains citations to source material.",
				ParagraphIssues: presence.ParagraphIssues,
			})
		}

		verification := VerifyCitations(section.Content, section.SourcesUsed)
		if !verification.Valid {
			c.rejectSection(ErrKindCitation)
			return errorResult(&StepError{
				Kind:              ErrKindCitation,
				Message:           "Citation validation failed: " + verification.Message,
				Detail:            "Every source in sources_used must be cited in the content, and every paragraph must include at least one citation.",
				UncitedSources:    verification.UncitedSources,
				InvalidCitations:  verification.InvalidCitations,
				UncitedParagraphs: verification.UncitedParagraphs,
			})
		}

		// Advisory only; weak patterns warn but never block.
		if patterns := AnalyzeCitationPatterns(section.Content, section.SourcesUsed); !patterns.Valid {
			citationWarning = "Citation pattern warning: " + patterns.Message
		}
	}

	// Self-heal: a section numbered past the declared total grows the report
	// rather than being rejected.
	if section.SectionNumber > section.TotalSections {
		section.TotalSections = section.SectionNumber
	}

	c.session.Sections = append(c.session.Sections, section)
	c.session.Phase = PhaseAuthoring
	if !section.NextSectionNeeded {
		c.session.Phase = PhaseComplete
	}
	if c.metrics != nil {
		c.metrics.SectionsAccepted.Inc()
	}

	nextStep := "Report complete"
	if c.session.Plan != nil {
		c.session.Plan.CurrentSection = section.SectionNumber
		if section.SectionNumber < len(c.session.Plan.Sections) {
			next := c.session.Plan.Sections[section.SectionNumber]
			nextStep = fmt.Sprintf("Create section %d: %s", section.SectionNumber+1, next.Title)
		}
	} else if section.NextSectionNeeded {
		nextStep = "Continue writing the report"
	}
	if c.session.Phase == PhaseComplete {
		nextStep = "Report complete"
	}

	progress := float64(len(c.session.Sections)) / float64(section.TotalSections) * 100

	c.logger.Printf("\n%s", FormatSection(section, c.session.Sources))

	payload := map[string]interface{}{
		"sectionNumber":           section.SectionNumber,
		"totalSections":           section.TotalSections,
		"nextSectionNeeded":       section.NextSectionNeeded,
		"progress":                fmt.Sprintf("%.1f%%", progress),
		"reportSectionsCount":     len(c.session.Sections),
		"nextStep":                nextStep,
		"sourceProviderCount":     c.session.Providers.TotalProviders,
		"imagesAvailable":         c.session.IncludeGraphics && len(c.session.Graphics) > 0,
		"sourceDiversityReminder": "Remember to include proper references with links to original sources, and try to use sources from at least two different providers for varied perspectives.",
		"noFabricationReminder":   "CRITICAL: NEVER invent or fabricate any information. If sources are insufficient, explicitly state these limitations in your report.",
		"citationReminder":        "Every paragraph in your report must contain at least one citation to a source. All statements must be directly supported by the source material.",
	}
	if section.IsBibliography {
		payload["sources"] = c.session.Sources
		payload["bibliographyEntries"] = FormatBibliography(c.session.Sources)
	}
	if c.session.IncludeGraphics && len(c.session.Graphics) > 0 {
		limit := 3
		if len(c.session.Graphics) < limit {
			limit = len(c.session.Graphics)
		}
		payload["images"] = c.session.Graphics[:limit]
	}

	if !section.IsBibliography {
		sectionNarratives(payload, c.session.Sources, section.SourcesUsed)
	}
	if citationWarning != "" {
		payload["citationWarning"] = citationWarning
	}

	return jsonResult(payload)
}

// sectionNarratives adds the per-section provider-diversity and
// extractable-content narratives computed from the cited sources.
func sectionNarratives(payload map[string]interface{}, sources []Source, sourcesUsed []int) {
	providers := sectionProviders(sources, sourcesUsed)
	distinct := map[string]struct{}{}
	for _, p := range providers {
		distinct[p] = struct{}{}
	}

	switch {
	case len(distinct) > 1:
		payload["sourceAnalysisMessage"] = fmt.Sprintf("This section uses sources from %d different providers. Continue using diverse sources in subsequent sections.", len(distinct))
	case len(providers) > 0:
		payload["sourceAnalysisMessage"] = fmt.Sprintf("This section uses sources from only one provider: %s. Try to incorporate sources from other providers in the next sections if possible.", providers[0])
	default:
		payload["sourceAnalysisMessage"] = "This section doesn't use any sources. Please include citations in your content."
	}

	var withContent []map[string]interface{}
	for _, id := range sourcesUsed {
		if id < 1 || id > len(sources) {
			continue
		}
		src := sources[id-1]
		if src.HasContent {
			withContent = append(withContent, map[string]interface{}{
				"id":          id,
				"title":       src.Title,
				"pdf_content": src.PDFContent,
			})
		}
	}
	if len(withContent) > 0 {
		payload["pdfContentMessage"] = fmt.Sprintf("This section uses %d sources with PDF content. Use the extracted text for direct quotes and primary source material.", len(withContent))
		payload["pdfSourcesUsed"] = withContent
	} else {
		payload["pdfContentMessage"] = "No sources with PDF content were used in this section. Be careful to limit claims to what is explicitly available in metadata."
		payload["warningMessage"] = "WARNING: None of the cited sources have extractable content. This severely limits the ability to make factual claims. DO NOT fabricate information - focus only on what is available in the metadata."
	}
}

func (c *Controller) rejectSection(kind string) {
	if c.metrics != nil {
		c.metrics.SectionsRejected.WithLabelValues(kind).Inc()
	}
}

func jsonResult(payload interface{}) StepResult {
	text, err := json.Marshal(payload)
	if err != nil {
		return errorResult(&StepError{Kind: ErrKindInternal, Message: fmt.Sprintf("encoding response: %v", err)})
	}
	return StepResult{Content: []ContentItem{{Type: "text", Text: string(text)}}}
}

func errorResult(stepErr *StepError) StepResult {
	payload := map[string]interface{}{
		"error":  stepErr.Message,
		"status": "failed",
		"kind":   stepErr.Kind,
	}
	if stepErr.Detail != "" {
		payload["message"] = stepErr.Detail
	}
	if len(stepErr.ParagraphIssues) > 0 {
		payload["paragraph_issues"] = stepErr.ParagraphIssues
	}
	if len(stepErr.UncitedSources) > 0 {
		payload["uncited_sources"] = stepErr.UncitedSources
	}
	if len(stepErr.InvalidCitations) > 0 {
		payload["invalid_citations"] = stepErr.InvalidCitations
	}
	if len(stepErr.UncitedParagraphs) > 0 {
		payload["uncited_paragraphs"] = stepErr.UncitedParagraphs
	}
	text, err := json.Marshal(payload)
	if err != nil {
		text = []byte(`{"error":"internal encoding failure","status":"failed"}`)
	}
	return StepResult{Content: []ContentItem{{Type: "text", Text: string(text)}}, IsError: true}
}
