package report

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/m-khosravi/chronicler/internal/europeana"
	"github.com/m-khosravi/chronicler/internal/telemetry"
)

// Fetcher is the search collaborator consumed by discovery. Implemented by
// *europeana.Client; tests substitute fakes.
type Fetcher interface {
	Search(ctx context.Context, query string, opts europeana.SearchOptions) (*europeana.SearchResult, error)
}

// ContentExtractor optionally enriches PDF sources with extracted text.
type ContentExtractor interface {
	ExtractPDFContent(ctx context.Context, pdfURL string, maxPages int) europeana.PDFContent
}

const (
	searchMaxRetries = 3
	maxPDFPages      = 10
)

var quotedPhrasePattern = regexp.MustCompile(`"([^"]*)"`)

// DiscoveryEngine performs resilient multi-strategy source search against the
// heritage index. Strategies run sequentially so dedup order stays
// deterministic; each strategy is retried with exponential backoff and a
// strategy that keeps failing is skipped, not fatal.
type DiscoveryEngine struct {
	fetcher   Fetcher
	extractor ContentExtractor
	metrics   *telemetry.Metrics
	logger    *log.Logger

	// sleep is the backoff delay; tests replace it to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDiscoveryEngine builds a discovery engine. extractor may be nil, in
// which case PDF sources keep only the URL-based content flag.
func NewDiscoveryEngine(fetcher Fetcher, extractor ContentExtractor, metrics *telemetry.Metrics) *DiscoveryEngine {
	return &DiscoveryEngine{
		fetcher:   fetcher,
		extractor: extractor,
		metrics:   metrics,
		logger:    log.New(log.Writer(), "[DISCOVERY] ", log.LstdFlags),
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SearchSources collects up to sourceCount distinct sources for a topic,
// walking the fallback strategies in order until the count is reached or the
// strategies are exhausted.
func (e *DiscoveryEngine) SearchSources(ctx context.Context, topic string, sourceCount int) ([]Source, error) {
	if sourceCount <= 0 {
		sourceCount = DefaultSourceCount
	}

	collector := newRecordCollector(e.metrics)
	hasOperators := strings.Contains(topic, " OR ") || strings.Contains(topic, " AND ")

	// Strategy 1: the topic as given, boolean operators preserved.
	e.runStrategy(ctx, "direct", collector, topic, europeana.SearchOptions{
		Rows:     sourceCount,
		Language: detectLanguage(topic),
	})

	if collector.len() < sourceCount && !hasOperators {
		// Strategy 2: exact phrase.
		if !strings.Contains(topic, `"`) {
			e.runStrategy(ctx, "quoted", collector, `"`+topic+`"`, europeana.SearchOptions{Rows: sourceCount})
		}

		// Strategy 3: significant words and quoted phrases joined with OR.
		if collector.len() < sourceCount {
			if query := keywordQuery(topic); query != "" {
				e.runStrategy(ctx, "keywords", collector, query, europeana.SearchOptions{Rows: sourceCount})
			}
		}

		// Strategy 4: one type-filtered query per media type.
		if collector.len() < sourceCount {
			for _, mediaType := range []MediaType{MediaImage, MediaVideo, MediaSound, MediaText} {
				if collector.len() >= sourceCount {
					break
				}
				e.runStrategy(ctx, "type:"+string(mediaType), collector, topic, europeana.SearchOptions{
					Rows: sourceCount - collector.len(),
					Type: string(mediaType),
				})
			}
		}
	}

	sources := e.finalizeSources(ctx, topic, collector.records, sourceCount)
	e.logger.Printf("discovery for %q: %d unique records, %d returned", topic, collector.len(), len(sources))
	return sources, nil
}

// SearchGraphics collects visual/audio sources with the same retry and dedup
// discipline, restricted to image, then video, then audio type searches.
func (e *DiscoveryEngine) SearchGraphics(ctx context.Context, topic string, count int) []Graphic {
	if count <= 0 {
		count = DefaultGraphicsCount
	}

	collector := newRecordCollector(e.metrics)
	for _, mediaType := range []MediaType{MediaImage, MediaVideo, MediaSound} {
		if collector.len() >= count {
			break
		}
		e.runStrategy(ctx, "graphics:"+string(mediaType), collector, topic, europeana.SearchOptions{
			Rows: count - collector.len(),
			Type: string(mediaType),
		})
	}

	records := collector.records
	sortRecordsByIdentifier(records)
	if len(records) > count {
		records = records[:count]
	}

	graphics := make([]Graphic, 0, len(records))
	for i, rec := range records {
		p := europeana.ProcessRecord(rec)
		graphics = append(graphics, Graphic{
			ID:          i + 1,
			Title:       p.Title,
			Description: describe(p, topic),
			URL:         p.MediaURL(),
			Provider:    p.Provider,
			Thumbnail:   p.Thumbnail,
			MediaType:   NormalizeMediaType(p.Type),
			Rights:      p.Rights,
			Date:        p.Date,
			EuropeanaID: p.ID,
		})
	}
	return graphics
}

// runStrategy executes one search strategy with retry and feeds its records
// into the collector. Failure is logged and swallowed; discovery moves on.
func (e *DiscoveryEngine) runStrategy(ctx context.Context, name string, collector *recordCollector, query string, opts europeana.SearchOptions) {
	if e.metrics != nil {
		e.metrics.SearchAttempts.WithLabelValues(name).Inc()
	}

	var lastErr error
	for attempt := 0; attempt < searchMaxRetries; attempt++ {
		result, err := e.fetcher.Search(ctx, query, opts)
		if err == nil {
			collector.add(result.Records)
			return
		}
		lastErr = err
		if attempt < searchMaxRetries-1 {
			if e.metrics != nil {
				e.metrics.SearchRetries.Inc()
			}
			e.logger.Printf("strategy %s attempt %d failed: %v", name, attempt+1, err)
			if serr := e.sleep(ctx, time.Duration(1<<attempt)*time.Second); serr != nil {
				lastErr = serr
				break
			}
		}
	}

	if e.metrics != nil {
		e.metrics.SearchFailures.WithLabelValues(name).Inc()
	}
	e.logger.Printf("strategy %s exhausted retries: %v", name, lastErr)
}

// finalizeSources sorts, truncates, numbers, and optionally enriches the
// deduplicated records.
func (e *DiscoveryEngine) finalizeSources(ctx context.Context, topic string, records []europeana.Record, sourceCount int) []Source {
	sortRecordsByIdentifier(records)
	if len(records) > sourceCount {
		records = records[:sourceCount]
	}

	sources := make([]Source, 0, len(records))
	for i, rec := range records {
		p := europeana.ProcessRecord(rec)
		src := Source{
			ID:          i + 1,
			Title:       p.Title,
			Description: describe(p, topic),
			URL:         p.MediaURL(),
			Provider:    p.Provider,
			Thumbnail:   p.Thumbnail,
			MediaType:   NormalizeMediaType(p.Type),
			Rights:      p.Rights,
			Date:        p.Date,
			EuropeanaID: p.ID,
			IsPDF:       p.IsPDF(),
		}
		if src.IsPDF && e.extractor != nil {
			content := e.extractor.ExtractPDFContent(ctx, src.URL, maxPDFPages)
			src.PDFContent = &content
			src.HasContent = content.Success
		}
		if e.metrics != nil {
			e.metrics.SourcesFound.Inc()
		}
		sources = append(sources, src)
	}
	return sources
}

// sortRecordsByIdentifier orders records by descending Europeana identifier.
// This is a stable, documented tie-break for deterministic output, not a
// relevance signal.
func sortRecordsByIdentifier(records []europeana.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].First("id") > records[j].First("id")
	})
}

// recordCollector accumulates search records, dropping any whose identifier
// was already seen or which expose no usable URL.
type recordCollector struct {
	records []europeana.Record
	seen    map[string]struct{}
	metrics *telemetry.Metrics
}

func newRecordCollector(metrics *telemetry.Metrics) *recordCollector {
	return &recordCollector{seen: map[string]struct{}{}, metrics: metrics}
}

func (c *recordCollector) len() int { return len(c.records) }

func (c *recordCollector) add(records []europeana.Record) {
	for _, rec := range records {
		id := rec.First("id")
		if id == "" {
			continue
		}
		if _, dup := c.seen[id]; dup {
			if c.metrics != nil {
				c.metrics.DuplicatesSeen.Inc()
			}
			continue
		}
		if rec.First("edmIsShownBy") == "" && rec.First("edmIsShownAt") == "" {
			continue
		}
		c.seen[id] = struct{}{}
		c.records = append(c.records, rec)
	}
}

// keywordQuery decomposes a topic into significant words (longer than three
// characters, excluding bare "and"/"or") plus any quoted phrases, joined
// with OR.
func keywordQuery(topic string) string {
	phrases := quotedPhrasePattern.FindAllStringSubmatch(topic, -1)
	stripped := quotedPhrasePattern.ReplaceAllString(topic, " ")

	var keywords []string
	for _, w := range strings.Fields(stripped) {
		if len(w) <= 3 {
			continue
		}
		if lower := strings.ToLower(w); lower == "and" || lower == "or" {
			continue
		}
		keywords = append(keywords, w)
	}
	for _, m := range phrases {
		if phrase := strings.TrimSpace(m[1]); phrase != "" {
			keywords = append(keywords, phrase)
		}
	}
	if len(keywords) == 0 {
		return ""
	}

	parts := make([]string, len(keywords))
	for i, k := range keywords {
		if strings.Contains(k, " ") {
			parts[i] = `"` + k + `"`
		} else {
			parts[i] = k
		}
	}
	return strings.Join(parts, " OR ")
}

// detectLanguage adds a French language hint when the topic carries French
// accented characters.
func detectLanguage(topic string) string {
	if strings.ContainsAny(strings.ToLower(topic), "àâçéèêëîïôûü") {
		return "fr"
	}
	return ""
}

func describe(p europeana.ProcessedRecord, topic string) string {
	if p.Description != "" {
		return p.Description
	}
	label := p.Type
	if label == "" {
		label = "Source"
	}
	return fmt.Sprintf("%s related to %s: %s", label, topic, p.Title)
}
