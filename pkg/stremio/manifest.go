package stremio

// Manifest represents the Stremio addon manifest
type Manifest struct {
	ID            string         `json:"id"`
	Version       string         `json:"version"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Resources     []string       `json:"resources"`
	Types         []string       `json:"types"`
	Catalogs      []Catalog      `json:"catalogs"`
	IDPrefixes    []string       `json:"idPrefixes,omitempty"`
	BehaviorHints *ManifestHints `json:"behaviorHints,omitempty"`
}

// Catalog represents a content catalog
type Catalog struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Extra []CatalogExtra `json:"extra,omitempty"`
}

// CatalogExtra declares an optional catalog argument
type CatalogExtra struct {
	Name       string `json:"name"`
	IsRequired bool   `json:"isRequired"`
}

// ManifestHints are install-time hints for the client
type ManifestHints struct {
	Adult        bool `json:"adult,omitempty"`
	Configurable bool `json:"configurable,omitempty"`
}

// LatestCatalogID is the only catalog this addon serves.
const LatestCatalogID = "eporner_latest"

// NewManifest creates the addon manifest
func NewManifest(version string) *Manifest {
	if version == "" {
		version = "1.0.0"
	}
	return &Manifest{
		ID:          "com.eporner.addon",
		Version:     version,
		Name:        "Eporner Addon",
		Description: "Stream adult content from Eporner with Real-Debrid support",
		Resources:   []string{"catalog", "stream"},
		Types:       []string{ContentType},
		Catalogs: []Catalog{
			{
				Type:  ContentType,
				ID:    LatestCatalogID,
				Name:  "Latest Videos",
				Extra: []CatalogExtra{{Name: "search"}, {Name: "skip"}},
			},
		},
		IDPrefixes:    []string{IDPrefix},
		BehaviorHints: &ManifestHints{Adult: true},
	}
}
