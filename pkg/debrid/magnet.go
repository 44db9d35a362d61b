package debrid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
)

// Magnet is the validated form of a magnet reference.
type Magnet struct {
	URI         string
	InfoHash    string
	DisplayName string
}

// ParseMagnet validates a magnet URI before it is sent to the service.
func ParseMagnet(uri string) (Magnet, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Magnet{}, errors.New("empty magnet reference")
	}

	m, err := metainfo.ParseMagnetUri(uri)
	if err != nil {
		return Magnet{}, fmt.Errorf("parse magnet: %w", err)
	}
	if m.InfoHash == (metainfo.Hash{}) {
		return Magnet{}, errors.New("magnet has no info hash")
	}

	return Magnet{
		URI:         uri,
		InfoHash:    m.InfoHash.HexString(),
		DisplayName: m.DisplayName,
	}, nil
}
