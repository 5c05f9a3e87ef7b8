package extractor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html"
)

// Config holds extractor configuration.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Extraction is the result of fetching and cleaning one article page.
type Extraction struct {
	Text    string // main content rendered as markdown text
	Title   string // <title> tag content, may be empty
	RawHTML string // response body as fetched, for optional archival
}

// Extractor fetches a URL and produces clean article text from raw HTML.
type Extractor struct {
	config Config
}

// New creates a new Extractor with the given configuration.
func New(config Config) *Extractor {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "articlerag/1.0"
	}
	return &Extractor{config: config}
}

// Extract issues a single GET for the URL and runs boilerplate removal on
// the response body. A network failure or non-2xx response yields a
// *FetchError; an empty extraction result yields an *ExtractionError.
// No retries happen at this layer.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*Extraction, error) {
	var body string
	var fetchErr error
	var fetchStatus int

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.UserAgent(e.config.UserAgent),
	)
	c.SetRequestTimeout(e.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			fetchErr = ctx.Err()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchStatus = r.StatusCode
		fetchErr = err
	})

	// Visit is synchronous, so OnError has already recorded the response
	// status by the time it returns.
	if err := c.Visit(pageURL); err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: fetchStatus, Err: err}
	}
	c.Wait()

	if fetchErr != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: fetchStatus, Err: fetchErr}
	}

	text := extractText(body)
	if text == "" {
		return nil, &ExtractionError{URL: pageURL}
	}

	slog.Debug("extracted article", "url", pageURL, "chars", len(text))

	return &Extraction{
		Text:    text,
		Title:   extractTitle(body),
		RawHTML: body,
	}, nil
}

// extractText turns a raw response body into clean article text.
func extractText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	// Plain-text or markdown payloads need no boilerplate removal.
	if !strings.Contains(trimmed, "<") {
		return trimmed
	}

	cleaned := preClean(trimmed)

	article, err := readability.FromReader(strings.NewReader(cleaned), nil)
	if err == nil {
		var htmlBuf strings.Builder
		if err := article.RenderHTML(&htmlBuf); err == nil {
			if md := toMarkdown(htmlBuf.String()); md != "" {
				return md
			}
		}
		var textBuf strings.Builder
		if err := article.RenderText(&textBuf); err == nil {
			if text := strings.TrimSpace(textBuf.String()); text != "" {
				return text
			}
		}
	}

	// Readability found no article node; convert the cleaned page directly.
	return toMarkdown(cleaned)
}

// preClean strips non-content elements before readability parsing.
func preClean(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	doc.Find("script, style, noscript, aside, nav, header, footer").Remove()
	doc.Find("iframe, embed, object, video, audio, canvas").Remove()
	doc.Find("[class*='comment'], [id*='comment']").Remove()

	cleaned, err := doc.Html()
	if err != nil || cleaned == "" {
		return rawHTML
	}
	return cleaned
}

// toMarkdown renders HTML as markdown text.
func toMarkdown(htmlContent string) string {
	md, err := htmltomarkdown.ConvertString(htmlContent)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(md)
}

// extractTitle extracts the <title> content from HTML.
func extractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var title string
	var findTitle func(*html.Node)
	findTitle = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findTitle(c)
		}
	}
	findTitle(doc)

	return strings.TrimSpace(title)
}
