package stremio

// StreamResponse represents the response to a stream request
type StreamResponse struct {
	Streams []Stream `json:"streams"`
}

// Stream represents a single stream option. Exactly one of URL and
// ExternalUrl is set; use DirectStream or ExternalStream to build one.
type Stream struct {
	// URL for direct streaming (HTTP video file)
	URL string `json:"url,omitempty"`

	// ExternalUrl for external player (alternative to URL)
	ExternalUrl string `json:"externalUrl,omitempty"`

	// Display name in Stremio
	Name string `json:"name,omitempty"`

	// Optional metadata (shown in Stremio UI)
	Title         string         `json:"title,omitempty"`
	BehaviorHints *BehaviorHints `json:"behaviorHints,omitempty"`
}

// BehaviorHints provides hints to Stremio about stream behavior
type BehaviorHints struct {
	NotWebReady bool   `json:"notWebReady,omitempty"`
	BingeGroup  string `json:"bingeGroup,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// DirectStream is played by the client itself.
func DirectStream(name, title, url string) Stream {
	return Stream{Name: name, Title: title, URL: url}
}

// ExternalStream opens in an external player.
func ExternalStream(name, title, url string) Stream {
	return Stream{Name: name, Title: title, ExternalUrl: url}
}

// IsExternal reports whether the stream opens an external player.
func (s Stream) IsExternal() bool {
	return s.ExternalUrl != ""
}

// CatalogResponse represents the response to a catalog request
type CatalogResponse struct {
	Metas []MetaPreview `json:"metas"`
}

// MetaPreview is a catalog entry
type MetaPreview struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Poster      string `json:"poster,omitempty"`
	Background  string `json:"background,omitempty"`
	Description string `json:"description,omitempty"`
	ReleaseInfo string `json:"releaseInfo,omitempty"`
	Runtime     string `json:"runtime,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
