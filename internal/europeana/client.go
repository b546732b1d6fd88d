package europeana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-khosravi/chronicler/config"
)

// Client talks to the Europeana Search and Record APIs. The API key is a
// constructor dependency; the client carries no mutable state beyond the
// underlying http.Client and is safe for concurrent use.
type Client struct {
	cfg     config.EuropeanaConfig
	client  *http.Client
	retries int
	backoff time.Duration
	logger  *log.Logger
}

// SearchOptions carries the optional parameters of a search call.
type SearchOptions struct {
	Rows     int
	Start    int
	Profile  string
	Filters  []string // qf parameters, e.g. "TYPE:IMAGE"
	Type     string   // shorthand for a single TYPE qf filter
	Language string
}

// NewClient constructs a Europeana client from configuration.
func NewClient(cfg config.EuropeanaConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("europeana: no API key configured")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	backoff := cfg.RetryBackoff
	if backoff == 0 {
		backoff = 300 * time.Millisecond
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		backoff: backoff,
		logger:  log.New(log.Writer(), "[EUROPEANA] ", log.LstdFlags),
	}, nil
}

// Search queries the Europeana search API.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("europeana: empty query")
	}
	rows := opts.Rows
	if rows <= 0 {
		rows = 10
	}
	start := opts.Start
	if start <= 0 {
		start = 1
	}
	profile := opts.Profile
	if profile == "" {
		profile = "standard"
	}

	params := url.Values{}
	params.Set("wskey", c.cfg.APIKey)
	params.Set("query", query)
	params.Set("rows", strconv.Itoa(rows))
	params.Set("start", strconv.Itoa(start))
	params.Set("profile", profile)
	for _, f := range opts.Filters {
		params.Add("qf", f)
	}
	if opts.Type != "" {
		params.Add("qf", "TYPE:"+strings.ToUpper(opts.Type))
	}
	if opts.Language != "" {
		params.Set("lang", opts.Language)
	}

	var resp searchResponse
	if err := c.getJSON(ctx, c.cfg.SearchURL+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("europeana search %q: %w", query, err)
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("europeana search %q: %s", query, resp.Error)
	}

	return &SearchResult{
		Metadata: SearchMetadata{
			Query:           query,
			TotalRecords:    resp.TotalResults,
			RecordsReturned: len(resp.Items),
		},
		Records: resp.Items,
		Facets:  resp.Facets,
	}, nil
}

// GetRecord fetches one full record by its Europeana identifier.
func (c *Client) GetRecord(ctx context.Context, recordID string) (Record, error) {
	recordID = strings.Trim(recordID, "/")
	if recordID == "" {
		return nil, errors.New("europeana: empty record id")
	}

	params := url.Values{}
	params.Set("wskey", c.cfg.APIKey)
	endpoint := strings.TrimSuffix(c.cfg.RecordURL, "/") + "/" + url.PathEscape(recordID) + ".json?" + params.Encode()

	var resp recordResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("europeana record %q: %w", recordID, err)
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("europeana record %q: %s", recordID, resp.Error)
	}
	return resp.Object, nil
}

// getJSON performs a GET with bounded exponential backoff between attempts.
// Backoff waits honor ctx cancellation.
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	var lastErr error
	tries := c.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			func() {
				defer resp.Body.Close()
				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					lastErr = json.NewDecoder(resp.Body).Decode(out)
					return
				}
				b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				lastErr = errors.New(resp.Status + ": " + string(b))
			}()
			if lastErr == nil {
				return nil
			}
			// 4xx responses won't improve on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return lastErr
			}
		}

		if attempt < tries-1 {
			c.logger.Printf("request attempt %d/%d failed: %v", attempt+1, tries, lastErr)
			select {
			case <-time.After(c.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}
