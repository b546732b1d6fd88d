package europeana

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"rsc.io/pdf"
)

// maxDownloadBytes bounds how much of a remote document is pulled for text
// extraction.
const maxDownloadBytes = 32 << 20

// PDFPage is one extracted page of a PDF document.
type PDFPage struct {
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

// PDFContent is the result of extracting text from a PDF source.
type PDFContent struct {
	Source     string    `json:"source"`
	Pages      []PDFPage `json:"text"`
	TotalPages int       `json:"total_pages"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// ExtractPDFContent downloads a PDF and extracts text from up to maxPages
// pages. Extraction failures are reported in the result rather than as an
// error: a source without readable text is still a usable source.
func (c *Client) ExtractPDFContent(ctx context.Context, pdfURL string, maxPages int) PDFContent {
	out := PDFContent{Source: pdfURL}
	if maxPages <= 0 {
		maxPages = 10
	}

	data, err := c.download(ctx, pdfURL)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		out.Error = fmt.Sprintf("parsing PDF: %v", err)
		return out
	}

	out.TotalPages = reader.NumPage()
	for pageNum := 1; pageNum <= reader.NumPage() && pageNum <= maxPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		var sb strings.Builder
		for _, item := range page.Content().Text {
			chunk := strings.TrimSpace(item.S)
			if chunk == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(chunk)
		}
		if sb.Len() == 0 {
			continue
		}
		out.Pages = append(out.Pages, PDFPage{PageNumber: pageNum, Content: sb.String()})
	}

	// A scanned PDF parses fine but yields no text; don't call that success.
	var total int
	for _, p := range out.Pages {
		total += len(p.Content)
	}
	out.Success = total >= 100
	if !out.Success && out.Error == "" {
		out.Error = "insufficient text content extracted from PDF"
	}
	return out
}

// ExtractPageText fetches an HTML landing page and extracts its main text
// content.
func (c *Client) ExtractPageText(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}

	data, err := c.download(ctx, pageURL)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsed)
	if err != nil {
		return "", fmt.Errorf("extracting article text: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("downloading %s: %s", rawURL, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}
