package stremio

import (
	"encoding/base64"
	"errors"
	"net/url"
	"testing"
)

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		contentType string
		id          string
		want        string
		wantErr     bool
	}{
		{"movie", "eporner_AbC123", "AbC123", false},
		{"series", "eporner_AbC123", "", true},
		{"movie", "tt1234567", "", true},
		{"movie", "eporner_", "", true},
		{"movie", "eporner_../etc", "", true},
		{"movie", "eporner_abc def", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.contentType+"/"+tt.id, func(t *testing.T) {
			got, err := ParseVideoID(tt.contentType, tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Errorf("Expected ErrInvalidID, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseVideoID() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestEmbedURL(t *testing.T) {
	if got := EmbedURL("https://www.eporner.com/embed/", "abc"); got != "https://www.eporner.com/embed/abc" {
		t.Errorf("EmbedURL() = %q", got)
	}
}

func TestDecodeUserConfig(t *testing.T) {
	raw := `{"rd_token":" tok ","magnet":"magnet:?xt=urn:btih:abc"}`
	want := UserConfig{RDToken: "tok", Magnet: "magnet:?xt=urn:btih:abc"}

	inputs := map[string]string{
		"base64url unpadded": base64.RawURLEncoding.EncodeToString([]byte(raw)),
		"base64url padded":   base64.URLEncoding.EncodeToString([]byte(raw)),
		"base64 std":         base64.StdEncoding.EncodeToString([]byte(raw)),
		"escaped json":       url.PathEscape(raw),
		"escaped base64 std": url.QueryEscape(base64.StdEncoding.EncodeToString([]byte(raw))),
		"round trip":         want.Encode(),
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeUserConfig(in)
			if err != nil {
				t.Fatalf("DecodeUserConfig: %v", err)
			}
			if got != want {
				t.Errorf("DecodeUserConfig() = %+v, want %+v", got, want)
			}
		})
	}

	if _, err := DecodeUserConfig("%%%not-config"); err == nil {
		t.Error("Expected error for garbage config")
	}
	if cfg, err := DecodeUserConfig(""); err != nil || cfg != (UserConfig{}) {
		t.Errorf("Empty segment should decode to zero config, got %+v, %v", cfg, err)
	}
}
