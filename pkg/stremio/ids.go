package stremio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

const (
	// IDPrefix marks ids owned by this addon.
	IDPrefix = "eporner_"
	// ContentType is the only Stremio type served.
	ContentType = "movie"
)

// ErrInvalidID is returned for stream requests this addon cannot resolve.
var ErrInvalidID = errors.New("invalid video id")

// ParseVideoID validates a Stremio type/id pair and returns the bare Eporner id.
func ParseVideoID(contentType, id string) (string, error) {
	if contentType != ContentType {
		return "", fmt.Errorf("%w: unsupported type %q", ErrInvalidID, contentType)
	}
	bare, ok := strings.CutPrefix(id, IDPrefix)
	if !ok {
		return "", fmt.Errorf("%w: missing %s prefix", ErrInvalidID, IDPrefix)
	}
	if bare == "" {
		return "", fmt.Errorf("%w: empty id", ErrInvalidID)
	}
	if !lo.EveryBy([]rune(bare), isAlnum) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, bare)
	}
	return bare, nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// EmbedURL builds the embed player link. It needs no network call.
func EmbedURL(base, videoID string) string {
	return strings.TrimRight(base, "/") + "/" + videoID
}
