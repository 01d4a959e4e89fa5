// Package mdndocs collects MDN reference pages for a web domain and turns
// them into concept nodes for the import endpoint.
package mdndocs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/textnorm"
	apperrors "blog-graph/backend/pkg/errors"
)

const (
	DefaultBaseURL = "https://developer.mozilla.org/api/v1"
	DefaultLocale  = "zh-CN"
	pageSize       = 100
	userAgent      = "blog-graph-docs-collector/1.0"
)

// Profile describes which searches feed a domain and which results belong to it
type Profile struct {
	Domain      string
	Queries     []string
	Keywords    []string
	SlugMarkers []string
	Categorize  func(slug string) string
}

// Matches reports whether a search hit belongs to the profile's domain
func (p Profile) Matches(doc Document) bool {
	for _, m := range p.SlugMarkers {
		if strings.Contains(doc.Slug, m) {
			return true
		}
	}
	text := strings.ToLower(doc.Title + " " + doc.Summary)
	for _, kw := range p.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var profiles = map[string]Profile{
	"css": {
		Domain:      "css",
		Queries:     []string{"CSS", "Style", "Layout", "Selector", "Flexbox", "Grid"},
		Keywords:    []string{"css", "flexbox", "grid", "selector", "animation", "media query", "pseudo-class", "box model"},
		SlugMarkers: []string{"/CSS"},
		Categorize:  slugSection,
	},
	"html": {
		Domain:  "html",
		Queries: []string{"HTML", "Element", "Tag", "Attribute", "Form", "Input", "Table", "List"},
		Keywords: []string{
			"html", "element", "tag", "attribute", "form", "input", "table", "list",
			"semantic", "accessibility", "meta", "head", "body", "div", "span",
		},
		SlugMarkers: []string{"/HTML"},
		Categorize:  htmlSection,
	},
}

// ProfileFor returns the built-in profile for css or html
func ProfileFor(domain string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(domain))]
	if !ok {
		return Profile{}, fmt.Errorf("no docs profile for %q (want css or html)", domain)
	}
	return p, nil
}

// slugSection is the path segment after Web/, e.g. Web/CSS/flex -> CSS
func slugSection(slug string) string {
	parts := strings.Split(slug, "/")
	if len(parts) > 1 && parts[1] != "" {
		return parts[1]
	}
	return "Other"
}

func htmlSection(slug string) string {
	for _, part := range strings.Split(slug, "/") {
		switch part {
		case "HTML":
			return "HTML"
		case "API":
			return "API"
		}
	}
	return "Other"
}

// Document is one search hit
type Document struct {
	Title      string  `json:"title"`
	Slug       string  `json:"slug"`
	Summary    string  `json:"summary"`
	Popularity float64 `json:"popularity"`
	Modified   string  `json:"modified"`
}

type searchResponse struct {
	Documents []Document `json:"documents"`
}

// Client queries the MDN search API
type Client struct {
	baseURL    string
	locale     string
	delay      time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

// WithBaseURL points the client at another API root
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithLocale(locale string) Option {
	return func(c *Client) { c.locale = locale }
}

// WithDelay sets the pause between searches; MDN rate-limits bursts
func WithDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client with a one second delay between searches
func NewClient(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		locale:     DefaultLocale,
		delay:      time.Second,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs one query and returns its hits
func (c *Client) Search(ctx context.Context, query string) ([]Document, error) {
	params := url.Values{
		"q":      {query},
		"locale": {c.locale},
		"sort":   {"relevance"},
		"size":   {fmt.Sprint(pageSize)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewContextCancelled("search "+query, ctx.Err())
		}
		return nil, apperrors.NewFetchFailure("mdn search "+query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperrors.NewFetchFailure("mdn search "+query, fmt.Errorf("status %d", resp.StatusCode))
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.NewFetchFailure("mdn search "+query, fmt.Errorf("invalid response: %w", err))
	}
	return body.Documents, nil
}

// Collect runs every query of the profile, keeps the first hit per slug and
// drops hits outside the domain. A failed query is logged and skipped; the
// result is sorted by section, then slug.
func (c *Client) Collect(ctx context.Context, p Profile) ([]Document, error) {
	seen := make(map[string]bool)
	var docs []Document
	failed := 0

	for i, q := range p.Queries {
		if i > 0 && c.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewContextCancelled("collect "+p.Domain, ctx.Err())
			case <-time.After(c.delay):
			}
		}

		hits, err := c.Search(ctx, q)
		if err != nil {
			if apperrors.IsErrorType(err, apperrors.ErrorTypeContext) {
				return nil, err
			}
			failed++
			c.logger.Warn("MDN search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		c.logger.Debug("MDN search", zap.String("query", q), zap.Int("hits", len(hits)))

		for _, d := range hits {
			if d.Slug == "" || seen[d.Slug] {
				continue
			}
			seen[d.Slug] = true
			d.Summary = cleanSummary(d.Summary)
			if p.Matches(d) {
				docs = append(docs, d)
			}
		}
	}

	if failed == len(p.Queries) && failed > 0 {
		return nil, apperrors.NewFetchFailure("mdn "+p.Domain, fmt.Errorf("all %d searches failed", failed))
	}

	sort.SliceStable(docs, func(i, j int) bool {
		ci, cj := p.Categorize(docs[i].Slug), p.Categorize(docs[j].Slug)
		if ci != cj {
			return ci < cj
		}
		return docs[i].Slug < docs[j].Slug
	})
	return docs, nil
}

// cleanSummary strips any markup and folds the summary onto one line
func cleanSummary(s string) string {
	return strings.Join(strings.Fields(textnorm.StripMarkup(s)), " ")
}

// DocURL is the public page of a slug
func DocURL(locale, slug string) string {
	return "https://developer.mozilla.org/" + locale + "/docs/" + slug
}

// NodeID is "<domain>-" plus the lowercased slug with '/' turned into '-'
func NodeID(domain, slug string) string {
	return strings.ToLower(domain) + "-" + strings.ToLower(strings.ReplaceAll(slug, "/", "-"))
}

// ImportRequest converts collected documents into an import body. Nodes carry
// no relationships, so the store links nodes of the same section.
func (c *Client) ImportRequest(p Profile, docs []Document) *models.ImportRequest {
	req := &models.ImportRequest{
		Type:          p.Domain,
		Nodes:         make([]models.ImportNode, 0, len(docs)),
		Relationships: []models.Edge{},
	}
	for _, d := range docs {
		req.Nodes = append(req.Nodes, models.ImportNode{
			ID:    NodeID(p.Domain, d.Slug),
			Label: d.Title,
			Type:  models.ConceptType(p.Domain),
			Properties: models.NodeProperties{
				Title:    d.Title,
				URL:      DocURL(c.locale, d.Slug),
				Summary:  d.Summary,
				Category: p.Categorize(d.Slug),
				Weight:   d.Popularity,
			},
		})
	}
	return req
}
