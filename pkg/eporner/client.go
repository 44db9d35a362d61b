// Package eporner is a small client for the public Eporner v2 API.
package eporner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"epstream/pkg/quality"
)

// ErrNotFound is returned when the API does not know the requested video.
var ErrNotFound = errors.New("eporner: video not found")

const maxBodySize = 4 << 20

// Searcher is implemented by Client and CachedSearcher.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// Client for the Eporner API
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new Eporner client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// SearchRequest holds the parameters of /video/search/
type SearchRequest struct {
	Query     string
	Page      int
	PerPage   int
	Order     string
	ThumbSize string
}

func (r SearchRequest) params() url.Values {
	page := r.Page
	if page < 1 {
		page = 1
	}
	perPage := r.PerPage
	if perPage < 1 {
		perPage = 20
	}
	order := r.Order
	if order == "" {
		order = "latest"
	}
	thumb := r.ThumbSize
	if thumb == "" {
		thumb = "big"
	}

	params := url.Values{}
	params.Set("query", r.Query)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	params.Set("thumbsize", thumb)
	params.Set("order", order)
	return params
}

// SearchResponse represents the response from /video/search/
type SearchResponse struct {
	Count      FlexInt `json:"count"`
	Start      FlexInt `json:"start"`
	PerPage    FlexInt `json:"per_page"`
	Page       FlexInt `json:"page"`
	TotalCount FlexInt `json:"total_count"`
	TotalPages FlexInt `json:"total_pages"`
	Videos     []Video `json:"videos"`
}

// Thumb is a preview image
type Thumb struct {
	Size   string  `json:"size"`
	Width  FlexInt `json:"width"`
	Height FlexInt `json:"height"`
	Src    string  `json:"src"`
}

// Video is a single video record
type Video struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Keywords     string  `json:"keywords"`
	Views        FlexInt `json:"views"`
	URL          string  `json:"url"`
	Added        string  `json:"added"`
	LengthSec    FlexInt `json:"length_sec"`
	LengthMin    string  `json:"length_min"`
	Embed        string  `json:"embed"`
	DefaultThumb Thumb   `json:"default_thumb"`

	// Variants are the playable renditions keyed by quality label, taken from
	// the "videos" object when the API includes one.
	Variants []quality.Variant `json:"-"`
}

// UnmarshalJSON decodes a video and lifts its "videos" object into Variants.
// Any other shape of that field is ignored.
func (v *Video) UnmarshalJSON(b []byte) error {
	type plain Video
	var raw struct {
		plain
		Videos json.RawMessage `json:"videos"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = Video(raw.plain)
	v.Variants = parseVariants(raw.Videos)
	return nil
}

func parseVariants(raw json.RawMessage) []quality.Variant {
	if len(raw) == 0 {
		return nil
	}
	var byLabel map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byLabel); err != nil {
		return nil
	}

	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	variants := make([]quality.Variant, 0, len(labels))
	for _, label := range labels {
		var u string
		if err := json.Unmarshal(byLabel[label], &u); err != nil {
			continue
		}
		variants = append(variants, quality.Variant{Label: label, URL: u})
	}
	return variants
}

// FlexInt accepts a JSON number or a numeric string.
type FlexInt int64

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*n = FlexInt(f)
	return nil
}

// Search lists videos matching req
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	body, err := c.get(ctx, "/video/search/", req.params())
	if err != nil {
		return nil, fmt.Errorf("eporner search request failed: %w", err)
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode eporner search response: %w", err)
	}
	return &result, nil
}

// Video retrieves a single video by its bare id (without the addon prefix).
func (c *Client) Video(ctx context.Context, id string) (*Video, error) {
	params := url.Values{}
	params.Set("id", id)
	params.Set("thumbsize", "big")

	body, err := c.get(ctx, "/video/id/", params)
	if err != nil {
		return nil, fmt.Errorf("eporner video request failed: %w", err)
	}

	// Unknown ids come back as an empty array.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("[]")) || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNotFound
	}

	var video Video
	if err := json.Unmarshal(trimmed, &video); err != nil {
		return nil, fmt.Errorf("failed to decode eporner video response: %w", err)
	}
	if video.ID == "" && len(video.Variants) == 0 {
		return nil, ErrNotFound
	}
	return &video, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eporner returned status: %d", resp.StatusCode)
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("unsupported response charset: %w", err)
	}
	return io.ReadAll(io.LimitReader(reader, maxBodySize))
}
