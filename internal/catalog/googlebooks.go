// Package catalog queries the Google Books volumes API for candidate records.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/roots/internal/config"
	"github.com/mrlokans/roots/internal/entities"
)

var (
	// ErrNetwork is returned when the request fails or the API answers
	// with a non-2xx status or an unreadable body.
	ErrNetwork = errors.New("catalog request failed")
	// ErrTimeout is returned when the request exceeds its deadline.
	ErrTimeout = errors.New("catalog request timed out")
)

const (
	userAgent       = "roots/1.0 (+https://github.com/mrlokans/roots)"
	maxResponseSize = 4 << 20
)

// VolumeResponse is the body of GET /books/v1/volumes.
type VolumeResponse struct {
	Kind       string   `json:"kind"`
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

type Volume struct {
	ID         string     `json:"id,omitempty"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo is the bibliographic part of a volume. Every field may be
// missing from the response.
type VolumeInfo struct {
	Title               string       `json:"title,omitempty"`
	Authors             []string     `json:"authors,omitempty"`
	Publisher           string       `json:"publisher,omitempty"`
	PublishedDate       string       `json:"publishedDate,omitempty"`
	Description         string       `json:"description,omitempty"`
	IndustryIdentifiers []Identifier `json:"industryIdentifiers,omitempty"`
	Categories          []string     `json:"categories,omitempty"`
	Language            string       `json:"language,omitempty"`
}

type Identifier struct {
	Identifier string `json:"identifier"`
	Type       string `json:"type"`
}

// Client is a rate limited Google Books client, safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client from the catalog configuration section.
func NewClient(cfg config.Catalog, opts ...Option) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultCatalogURL
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search issues one volumes query for title.
func (c *Client) Search(ctx context.Context, title string) (*VolumeResponse, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("search catalog: %w", entities.ErrUnidentifiableRecord)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classify(ctx, err)
	}

	searchURL := c.baseURL + "?q=" + url.QueryEscape(title)
	if c.apiKey != "" {
		searchURL += "&key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrNetwork, resp.StatusCode)
	}

	var result VolumeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&result); err != nil {
		return nil, classify(ctx, fmt.Errorf("decode response: %w", err))
	}
	return &result, nil
}

// Candidates returns the volume infos of a title search in response order.
func (c *Client) Candidates(ctx context.Context, title string) ([]VolumeInfo, error) {
	resp, err := c.Search(ctx, title)
	if err != nil {
		return nil, err
	}
	infos := make([]VolumeInfo, 0, len(resp.Items))
	for _, item := range resp.Items {
		infos = append(infos, item.VolumeInfo)
	}
	return infos, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("search catalog: %w", err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	// rate.Limiter reports a wait that would outlive the deadline without
	// wrapping context.DeadlineExceeded.
	if _, ok := ctx.Deadline(); ok && strings.Contains(err.Error(), "would exceed context deadline") {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// ISBN returns the ISBN_13 identifier of the volume, falling back to ISBN_10.
func (v VolumeInfo) ISBN() string {
	for _, want := range []string{"ISBN_13", "ISBN_10"} {
		for _, id := range v.IndustryIdentifiers {
			if id.Type == want && id.Identifier != "" {
				return id.Identifier
			}
		}
	}
	return ""
}

// HasIdentifier reports whether value appears among the identifiers,
// regardless of their type. The comparison is exact.
func (v VolumeInfo) HasIdentifier(value string) bool {
	if value == "" {
		return false
	}
	for _, id := range v.IndustryIdentifiers {
		if id.Identifier == value {
			return true
		}
	}
	return false
}

// Year returns the first four-digit year in PublishedDate, or 0.
func (v VolumeInfo) Year() int {
	return extractYear(v.PublishedDate)
}

// Book converts the volume into a catalog record. Missing fields stay unset.
func (v VolumeInfo) Book() entities.Book {
	return entities.Book{
		Title:           strings.TrimSpace(v.Title),
		Authors:         nonEmpty(v.Authors),
		Publisher:       strings.TrimSpace(v.Publisher),
		PublicationDate: parsePublishedDate(v.PublishedDate),
		Description:     strings.TrimSpace(v.Description),
		Subjects:        nonEmpty(v.Categories),
		ISBN:            v.ISBN(),
		Format:          entities.FormatCatalog,
	}
}

func nonEmpty(values []string) []string {
	var out []string
	for _, s := range values {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parsePublishedDate accepts the YYYY-MM-DD, YYYY-MM and YYYY forms the API
// returns; the result is midnight UTC of the first day covered.
func parsePublishedDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// extractYear returns the first run of exactly four digits in s.
func extractYear(s string) int {
	for i := 0; i < len(s); {
		if !isDigit(s[i]) {
			i++
			continue
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j-i == 4 {
			year, _ := strconv.Atoi(s[i:j])
			return year
		}
		i = j
	}
	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
