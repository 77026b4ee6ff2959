package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html/charset"

	"slack-summarizer/internal/summary"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	defaultTimeout  = 10 * time.Second
	defaultMaxBytes = 5 << 20
)

// Options configures an HTTPExtractor.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	MaxChars int
}

// HTTPExtractor fetches pages over HTTP and extracts readable text from HTML, plain text and PDF bodies.
// It is safe for concurrent use.
type HTTPExtractor struct {
	client   *http.Client
	maxBytes int64
	maxChars int
}

// NewHTTPExtractor builds an extractor with one shared HTTP client.
func NewHTTPExtractor(opts Options) *HTTPExtractor {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	return &HTTPExtractor{
		client:   &http.Client{Timeout: opts.Timeout},
		maxBytes: opts.MaxBytes,
		maxChars: opts.MaxChars,
	}
}

// Extract performs a single fetch of rawURL. Every failure is an ExtractionFailed summary.Error.
func (e *HTTPExtractor) Extract(ctx context.Context, rawURL string) (summary.Content, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Host == "" {
		return summary.Content{}, summary.Wrap(summary.ExtractionFailed, "invalid url", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return summary.Content{}, summary.Wrap(summary.ExtractionFailed, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return summary.Content{}, summary.Wrap(summary.ExtractionFailed, "fetch page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return summary.Content{}, summary.Fail(summary.ExtractionFailed, fmt.Sprintf("http status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		return summary.Content{}, summary.Wrap(summary.ExtractionFailed, "read body", err)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	var text string
	switch {
	case mediaType == "", mediaType == "text/html", mediaType == "application/xhtml+xml":
		text, err = htmlText(body, contentType, resp.Request.URL)
	case mediaType == "application/pdf":
		text, err = pdfText(body)
	case strings.HasPrefix(mediaType, "text/"):
		text, err = plainText(body, contentType)
	default:
		return summary.Content{}, summary.Fail(summary.ExtractionFailed, "unsupported content type "+mediaType)
	}
	if err != nil {
		return summary.Content{}, summary.Wrap(summary.ExtractionFailed, "extract text", err)
	}

	text = normalize(text)
	if text == "" {
		return summary.Content{}, summary.Fail(summary.ExtractionFailed, "no readable text")
	}
	return Truncate(text, e.maxChars), nil
}

// htmlText prefers readability's article text and falls back to joining <p> elements.
func htmlText(body []byte, contentType string, pageURL *url.URL) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}

	if article, err := readability.FromReader(bytes.NewReader(decoded), pageURL); err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			return text, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script,noscript,style").Remove()

	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " "), nil
}

func plainText(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func pdfText(content []byte) (string, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}
	return textBuilder.String(), nil
}
