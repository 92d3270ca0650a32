package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/XenioxYT/discord-chatbot/internal/logger"
)

// scrapePrefix tells the model to actually use the page text instead of
// answering from memory.
const scrapePrefix = "this is the data from the webpage, please use this in your response and say you accessed the webpage: "

// ScrapeTool fetches a web page and reduces it to plain text. The text is
// truncated before it is folded into the conversation so a single page cannot
// blow the token budget.
type ScrapeTool struct {
	client   *http.Client
	maxChars int
}

// NewScrapeTool builds the tool. maxChars caps the extracted text length.
func NewScrapeTool(client *http.Client, maxChars int) *ScrapeTool {
	if client == nil {
		client = http.DefaultClient
	}
	return &ScrapeTool{client: client, maxChars: maxChars}
}

func (t *ScrapeTool) Name() string { return "scrape_web_page" }

func (t *ScrapeTool) Description() string {
	return "Scrape the webpage data given a URL."
}

func (t *ScrapeTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {"type": "string"}
		},
		"required": ["url"]
	}`)
}

func (t *ScrapeTool) Run(ctx context.Context, args map[string]any) (string, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return "", fmt.Errorf("url must be a non-empty string")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", url, err)
	}
	logger.L.Debug("scraped web page", "url", url, "status", resp.StatusCode, "chars", len(text))

	if len(text) > t.maxChars {
		cut := t.maxChars
		// Back up to a rune boundary so the truncation never leaves a
		// partial UTF-8 sequence in the model's context.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return scrapePrefix + text, nil
}

// extractText strips noise elements and collects the page's readable text.
func extractText(resp *http.Response) (string, error) {
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, header, aside, iframe").Remove()

	var b strings.Builder
	if title := strings.TrimSpace(doc.Find("title").Text()); title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	doc.Find("h1, h2, h3, h4, h5, h6, p, li").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	})
	return b.String(), nil
}
