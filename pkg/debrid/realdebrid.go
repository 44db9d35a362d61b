package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Service is the subset of the debrid REST API the pipeline drives.
type Service interface {
	AddMagnet(ctx context.Context, token, magnet string) (*AddTorrentResponse, error)
	SelectFiles(ctx context.Context, token, torrentID string) error
	TorrentInfo(ctx context.Context, token, torrentID string) (*TorrentInfo, error)
	UnrestrictLink(ctx context.Context, token, link string) (*UnrestrictedLink, error)
}

// AddTorrentResponse is returned when adding a magnet
type AddTorrentResponse struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// TorrentInfo contains detailed information about a torrent
type TorrentInfo struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Hash     string   `json:"hash"`
	Bytes    int64    `json:"bytes"`
	Progress float64  `json:"progress"`
	Status   string   `json:"status"`
	Links    []string `json:"links"`
}

// UnrestrictedLink is returned when unrestricting a link
type UnrestrictedLink struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	Filesize   int64  `json:"filesize"`
	Link       string `json:"link"`
	Host       string `json:"host"`
	Download   string `json:"download"`
	Streamable int    `json:"streamable"`
}

// Torrent status values reported by Real-Debrid
const (
	StatusMagnetError           = "magnet_error"
	StatusMagnetConversion      = "magnet_conversion"
	StatusWaitingFilesSelection = "waiting_files_selection"
	StatusQueued                = "queued"
	StatusDownloading           = "downloading"
	StatusDownloaded            = "downloaded"
	StatusError                 = "error"
	StatusVirus                 = "virus"
	StatusCompressing           = "compressing"
	StatusUploading             = "uploading"
	StatusDead                  = "dead"
)

// IsDeadStatus reports statuses from which a torrent never becomes ready.
func IsDeadStatus(status string) bool {
	switch status {
	case StatusMagnetError, StatusError, StatusVirus, StatusDead:
		return true
	}
	return false
}

// APIError is an error response from Real-Debrid.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Code       int    `json:"error_code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("real-debrid returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("real-debrid returned status %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
}

// Client talks to the Real-Debrid REST API. The bearer token is passed per
// call and never kept on the client.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Real-Debrid client. Deadlines come from the caller's
// context, so httpClient normally has no Timeout of its own.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// AddMagnet registers a magnet with the service and returns its torrent id.
func (c *Client) AddMagnet(ctx context.Context, token, magnet string) (*AddTorrentResponse, error) {
	form := url.Values{}
	form.Set("magnet", magnet)

	var out AddTorrentResponse
	if err := c.do(ctx, http.MethodPost, "/torrents/addMagnet", token, form, &out); err != nil {
		return nil, fmt.Errorf("add magnet: %w", err)
	}
	return &out, nil
}

// SelectFiles marks every file of the torrent for retrieval.
func (c *Client) SelectFiles(ctx context.Context, token, torrentID string) error {
	form := url.Values{}
	form.Set("files", "all")

	if err := c.do(ctx, http.MethodPost, "/torrents/selectFiles/"+url.PathEscape(torrentID), token, form, nil); err != nil {
		return fmt.Errorf("select files: %w", err)
	}
	return nil
}

// TorrentInfo returns the current status and links of a torrent.
func (c *Client) TorrentInfo(ctx context.Context, token, torrentID string) (*TorrentInfo, error) {
	var out TorrentInfo
	if err := c.do(ctx, http.MethodGet, "/torrents/info/"+url.PathEscape(torrentID), token, nil, &out); err != nil {
		return nil, fmt.Errorf("torrent info: %w", err)
	}
	return &out, nil
}

// UnrestrictLink converts a hoster link into a direct download URL.
func (c *Client) UnrestrictLink(ctx context.Context, token, link string) (*UnrestrictedLink, error) {
	form := url.Values{}
	form.Set("link", link)

	var out UnrestrictedLink
	if err := c.do(ctx, http.MethodPost, "/unrestrict/link", token, form, &out); err != nil {
		return nil, fmt.Errorf("unrestrict link: %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
