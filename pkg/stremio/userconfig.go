package stremio

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// UserConfig is the per-install configuration carried in the addon URL.
// The debrid token lives only here and is never stored by the server.
type UserConfig struct {
	RDToken string `json:"rd_token,omitempty"`
	Magnet  string `json:"magnet,omitempty"`
}

// Encode returns the URL segment form of c (unpadded base64url JSON).
func (c UserConfig) Encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeUserConfig accepts base64url (padded or not), standard base64 or
// URL-escaped raw JSON.
func DecodeUserConfig(segment string) (UserConfig, error) {
	var cfg UserConfig
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return cfg, nil
	}

	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}

	var data []byte
	var err error
	if strings.HasPrefix(segment, "{") {
		data = []byte(segment)
	} else {
		trimmed := strings.TrimRight(segment, "=")
		data, err = base64.RawURLEncoding.DecodeString(trimmed)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(trimmed)
			if err != nil {
				return cfg, fmt.Errorf("decode user config: %w", err)
			}
		}
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse user config: %w", err)
	}
	cfg.RDToken = strings.TrimSpace(cfg.RDToken)
	cfg.Magnet = strings.TrimSpace(cfg.Magnet)
	return cfg, nil
}
