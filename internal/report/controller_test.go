package report

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/m-khosravi/chronicler/internal/europeana"
)

func newTestController(f Fetcher) *Controller {
	return NewController(newTestEngine(f), nil)
}

// decode unmarshals the serialized step payload for assertions.
func decode(t *testing.T, result StepResult) map[string]interface{} {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("result has %d content items, want 1", len(result.Content))
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	return payload
}

func threeSourceFetcher() *fakeFetcher {
	return &fakeFetcher{respond: func(int, string, europeana.SearchOptions) (*europeana.SearchResult, error) {
		return results(
			record("/p/1", "Charter", "http://x/1", "Archive A", "TEXT"),
			record("/p/2", "Etching", "http://x/2", "Museum B", "IMAGE"),
			record("/p/3", "Recording", "http://x/3", "Archive A", "SOUND"),
		), nil
	}}
}

func initAndConfirm(t *testing.T, c *Controller) {
	t.Helper()
	ctx := context.Background()
	if r := c.Process(ctx, map[string]interface{}{"topic": "medieval charters", "source_count": 3}); r.IsError {
		t.Fatalf("init failed: %s", r.Content[0].Text)
	}
	if r := c.Process(ctx, map[string]interface{}{"search_sources": true}); r.IsError {
		t.Fatalf("search failed: %s", r.Content[0].Text)
	}
	if r := c.Process(ctx, map[string]interface{}{"confirm_sources": true}); r.IsError {
		t.Fatalf("confirm failed: %s", r.Content[0].Text)
	}
}

func TestProcessInitBuildsPlan(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())

	result := c.Process(context.Background(), map[string]interface{}{
		"topic":      "dutch windmills",
		"page_count": 4,
	})
	if result.IsError {
		t.Fatalf("init returned error: %s", result.Content[0].Text)
	}
	payload := decode(t, result)
	if payload["topic"] != "dutch windmills" {
		t.Fatalf("topic = %v", payload["topic"])
	}
	if payload["pageCount"] != float64(4) {
		t.Fatalf("pageCount = %v", payload["pageCount"])
	}
	if _, ok := payload["plan"]; !ok {
		t.Fatal("init payload missing plan")
	}

	session := c.Session()
	if session.Phase != PhaseTopicSet {
		t.Fatalf("phase = %s, want topic_set", session.Phase)
	}
	if session.Plan == nil || session.Plan.TotalSections != 9 {
		t.Fatalf("plan = %+v, want 9 sections for 4 pages", session.Plan)
	}
}

func TestProcessSearchBeforeInit(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())

	result := c.Process(context.Background(), map[string]interface{}{"search_sources": true})
	if !result.IsError {
		t.Fatal("search without a topic must fail")
	}
	payload := decode(t, result)
	if payload["kind"] != ErrKindValidation {
		t.Fatalf("kind = %v", payload["kind"])
	}
	if !strings.Contains(payload["error"].(string), "No topic specified") {
		t.Fatalf("error = %v", payload["error"])
	}
}

func TestProcessSearchZeroSourcesIsHardFailure(t *testing.T) {
	t.Parallel()
	empty := &fakeFetcher{respond: func(int, string, europeana.SearchOptions) (*europeana.SearchResult, error) {
		return results(), nil
	}}
	c := newTestController(empty)
	ctx := context.Background()

	c.Process(ctx, map[string]interface{}{"topic": "nonexistent obscurity"})
	result := c.Process(ctx, map[string]interface{}{"search_sources": true})
	if !result.IsError {
		t.Fatal("zero discovered sources must be a failure")
	}
	payload := decode(t, result)
	if payload["kind"] != ErrKindNoSources {
		t.Fatalf("kind = %v, want no_sources", payload["kind"])
	}
	if c.Session().Phase != PhaseTopicSet {
		t.Fatalf("phase advanced to %s on failed search", c.Session().Phase)
	}
}

func TestProcessSearchPopulatesSession(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())
	ctx := context.Background()

	c.Process(ctx, map[string]interface{}{"topic": "medieval charters", "source_count": 3})
	result := c.Process(ctx, map[string]interface{}{"search_sources": true})
	if result.IsError {
		t.Fatalf("search failed: %s", result.Content[0].Text)
	}
	payload := decode(t, result)
	if payload["confirmationRequired"] != true {
		t.Fatal("search payload must require confirmation")
	}
	summary := payload["sourceSummary"].(map[string]interface{})
	if summary["totalFound"] != float64(3) {
		t.Fatalf("totalFound = %v", summary["totalFound"])
	}
	if summary["providersCount"] != float64(2) {
		t.Fatalf("providersCount = %v", summary["providersCount"])
	}

	session := c.Session()
	if session.Phase != PhaseSourcesDiscovered {
		t.Fatalf("phase = %s", session.Phase)
	}
	if len(session.Sources) != 3 {
		t.Fatalf("session holds %d sources", len(session.Sources))
	}
	if !session.Providers.Diverse {
		t.Fatal("two providers should count as diverse")
	}
}

func TestProcessConfirmBeforeSearch(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())
	ctx := context.Background()

	c.Process(ctx, map[string]interface{}{"topic": "tapestries"})
	result := c.Process(ctx, map[string]interface{}{"confirm_sources": true})
	if !result.IsError {
		t.Fatal("confirm before discovery must fail")
	}
}

func TestProcessSectionFlow(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())
	initAndConfirm(t, c)

	result := c.Process(context.Background(), map[string]interface{}{
		"section_number": 1,
		"total_sections": 3,
		"title":          "Introduction",
		"content":        "The charters of the period reveal administrative continuity [1]. Their seals carry iconography shared with contemporary etchings [2], while surviving recordings of oral tradition preserve related accounts [3].",
		"sources_used":   []interface{}{1, 2, 3},
	})
	if result.IsError {
		t.Fatalf("section rejected: %s", result.Content[0].Text)
	}
	payload := decode(t, result)
	if payload["sectionNumber"] != float64(1) {
		t.Fatalf("sectionNumber = %v", payload["sectionNumber"])
	}
	if payload["progress"] != "33.3%" {
		t.Fatalf("progress = %v", payload["progress"])
	}
	if payload["nextSectionNeeded"] != true {
		t.Fatal("nextSectionNeeded should default to true")
	}
	if c.Session().Phase != PhaseAuthoring {
		t.Fatalf("phase = %s", c.Session().Phase)
	}
}

func TestProcessSectionDoesNotMutateSources(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())
	initAndConfirm(t, c)

	before := c.Session().Sources
	c.Process(context.Background(), map[string]interface{}{
		"section_number": 1,
		"total_sections": 2,
		"content":        "Archival material documents the practice in detail [1].",
		"sources_used":   []interface{}{1},
	})
	after := c.Session().Sources
	if len(before) != len(after) {
		t.Fatalf("source count changed from %d to %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID || before[i].EuropeanaID != after[i].EuropeanaID {
			t.Fatalf("source %d changed after section submission", i)
		}
	}
}

func TestProcessSectionRejectsUnknownSourceID(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())
	initAndConfirm(t, c)

	result := c.Process(context.Background(), map[string]interface{}{
		"section_number": 1,
		"total_sections": 2,
		"content":        "A claim resting on a source that does not exist [9].",
		"sources_used":   []interface{}{9},
	})
	if !result.IsError {
		t.Fatal("out-of-range source id must be rejected")
	}
	if len(c.Session().Sections) != 0 {
		t.Fatal("rejected section must not be recorded")
	}
}

func TestProcessSectionCitationFailureLeavesSessionUntouched(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())
	initAndConfirm(t, c)

	result := c.Process(context.Background(), map[string]interface{}{
		"section_number": 1,
		"total_sections": 2,
		"content":        "This substantial paragraph makes several claims about the period without citing anything at all.",
		"sources_used":   []interface{}{1},
	})
	if !result.IsError {
		t.Fatal("uncited content must be rejected")
	}
	payload := decode(t, result)
	if payload["kind"] != ErrKindCitation {
		t.Fatalf("kind = %v", payload["kind"])
	}
	if _, ok := payload["paragraph_issues"]; !ok {
		t.Fatal("citation failure must carry paragraph_issues")
	}

	session := c.Session()
	if len(session.Sections) != 0 {
		t.Fatal("rejected section must not be recorded")
	}
	if session.Phase != PhaseSourcesConfirmed {
		t.Fatalf("phase = %s, rejection must not advance it", session.Phase)
	}
}

func TestProcessSectionSelfHealsTotal(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())
	initAndConfirm(t, c)

	result := c.Process(context.Background(), map[string]interface{}{
		"section_number": 5,
		"total_sections": 3,
		"content":        "Late material extends the report beyond its declared size [1].",
		"sources_used":   []interface{}{1},
	})
	if result.IsError {
		t.Fatalf("section rejected: %s", result.Content[0].Text)
	}
	payload := decode(t, result)
	if payload["totalSections"] != float64(5) {
		t.Fatalf("totalSections = %v, want grown to 5", payload["totalSections"])
	}
}

func TestProcessBibliographyCompletesReport(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())
	initAndConfirm(t, c)

	result := c.Process(context.Background(), map[string]interface{}{
		"section_number":      1,
		"total_sections":      1,
		"is_bibliography":     true,
		"title":               "Bibliography",
		"next_section_needed": false,
	})
	if result.IsError {
		t.Fatalf("bibliography rejected: %s", result.Content[0].Text)
	}
	payload := decode(t, result)
	if _, ok := payload["bibliographyEntries"]; !ok {
		t.Fatal("bibliography payload missing bibliographyEntries")
	}
	if _, ok := payload["sources"]; !ok {
		t.Fatal("bibliography payload missing sources")
	}
	if payload["nextStep"] != "Report complete" {
		t.Fatalf("nextStep = %v", payload["nextStep"])
	}
	if c.Session().Phase != PhaseComplete {
		t.Fatalf("phase = %s, want complete", c.Session().Phase)
	}
}

func TestProcessReinitResetsCollections(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())
	initAndConfirm(t, c)
	ctx := context.Background()

	c.Process(ctx, map[string]interface{}{
		"section_number": 1,
		"total_sections": 2,
		"content":        "Documented practice appears in the charters [1].",
		"sources_used":   []interface{}{1},
	})
	oldID := c.Session().ID

	if r := c.Process(ctx, map[string]interface{}{"topic": "a fresh topic"}); r.IsError {
		t.Fatalf("re-init failed: %s", r.Content[0].Text)
	}
	session := c.Session()
	if session.ID == oldID {
		t.Fatal("re-init must issue a new session identifier")
	}
	if len(session.Sources) != 0 || len(session.Sections) != 0 {
		t.Fatal("re-init must clear sources and sections")
	}
	if session.Phase != PhaseTopicSet {
		t.Fatalf("phase = %s after re-init", session.Phase)
	}
}

func TestProcessMalformedInput(t *testing.T) {
	t.Parallel()
	c := newTestController(threeSourceFetcher())

	result := c.Process(context.Background(), map[string]interface{}{"unrelated": "value"})
	if !result.IsError {
		t.Fatal("unrecognized input must be rejected")
	}
	payload := decode(t, result)
	if payload["status"] != "failed" {
		t.Fatalf("status = %v", payload["status"])
	}
}
