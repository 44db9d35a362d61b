package stremio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"epstream/pkg/eporner"
	"epstream/pkg/logger"
)

// Server represents the Stremio addon HTTP server
type Server struct {
	manifest   *Manifest
	assembler  *Assembler
	catalog    eporner.Searcher
	pageSize   int
	apiHandler http.Handler
}

// NewServer creates a new Stremio addon server
func NewServer(manifest *Manifest, assembler *Assembler, catalog eporner.Searcher, pageSize int) *Server {
	if manifest == nil {
		manifest = NewManifest("")
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Server{
		manifest:  manifest,
		assembler: assembler,
		catalog:   catalog,
		pageSize:  pageSize,
	}
}

// CheckPort verifies if the specified port is available for the addon
func CheckPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("addon port %d is already in use", port)
	}
	ln.Close()
	return nil
}

// SetAPIHandler sets the handler for /api/ requests
func (s *Server) SetAPIHandler(h http.Handler) {
	s.apiHandler = h
}

// Handler returns the addon's root handler with CORS and request ids applied.
func (s *Server) Handler() http.Handler {
	// Matched on the escaped path so an encoded "/" stays inside its segment.
	r := mux.NewRouter().UseEncodedPath()

	r.HandleFunc("/", s.handleManifest)
	r.HandleFunc("/manifest.json", s.handleManifest)
	r.HandleFunc("/health", s.handleHealth)
	r.HandleFunc("/catalog/{type}/{id}.json", s.handleCatalog)
	r.HandleFunc("/catalog/{type}/{id}/{extra}.json", s.handleCatalog)
	r.HandleFunc("/stream/{type}/{id}.json", s.handleStream)
	if s.apiHandler != nil {
		r.PathPrefix("/api/").Handler(s.apiHandler)
	}
	r.HandleFunc("/{config}/manifest.json", s.handleManifest)
	r.HandleFunc("/{config}/catalog/{type}/{id}.json", s.handleCatalog)
	r.HandleFunc("/{config}/catalog/{type}/{id}/{extra}.json", s.handleCatalog)
	r.HandleFunc("/{config}/stream/{type}/{id}.json", s.handleStream)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	})

	return withCORS(withRequestID(r))
}

// withCORS lets any Stremio client call the addon and answers preflights.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "*")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := logger.WithContext(r.Context(), logger.Log.With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to write response", "err", err)
	}
}

// handleManifest serves the addon manifest
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Debug("Manifest request", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, s.manifest)
}

// handleHealth serves health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCatalog lists the latest videos, or search results when a search
// extra is given. Upstream errors produce an empty catalog.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if pathVar(r, "type") != ContentType || pathVar(r, "id") != LatestCatalogID {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Catalog not found"})
		return
	}

	search, skip := parseCatalogExtra(mux.Vars(r)["extra"], r.URL.Query())
	req := eporner.SearchRequest{
		Query:   search,
		Page:    skip/s.pageSize + 1,
		PerPage: s.pageSize,
	}
	log.Info("Catalog request", "search", search, "page", req.Page)

	metas := []MetaPreview{}
	if s.catalog != nil {
		resp, err := s.catalog.Search(r.Context(), req)
		if err != nil {
			log.Error("Error fetching catalog", "err", err)
		} else {
			metas = lo.Map(resp.Videos, func(v eporner.Video, _ int) MetaPreview { return videoToMeta(v) })
		}
	}

	writeJSON(w, http.StatusOK, CatalogResponse{Metas: metas})
}

// pathVar returns the unescaped value of a route variable.
func pathVar(r *http.Request, name string) string {
	v := mux.Vars(r)[name]
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// parseCatalogExtra reads "search=..&skip=.." from the still escaped path
// extra, falling back to query parameters.
func parseCatalogExtra(extra string, query url.Values) (string, int) {
	values := url.Values{}
	if extra != "" {
		if parsed, err := url.ParseQuery(extra); err == nil {
			values = parsed
		}
	}
	get := func(key string) string {
		if v := values.Get(key); v != "" {
			return v
		}
		return query.Get(key)
	}

	skip, err := strconv.Atoi(get("skip"))
	if err != nil || skip < 0 {
		skip = 0
	}
	return strings.TrimSpace(get("search")), skip
}

// handleStream handles stream requests
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	contentType, id := pathVar(r, "type"), pathVar(r, "id")

	videoID, err := ParseVideoID(contentType, id)
	if err != nil {
		log.Info("Rejected stream request", "type", contentType, "id", id, "err", err)
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Stream not found"})
		return
	}

	var userCfg UserConfig
	if segment := mux.Vars(r)["config"]; segment != "" {
		userCfg, err = DecodeUserConfig(segment)
		if err != nil {
			log.Warn("Ignoring invalid user config", "err", err)
		}
	}
	magnetRef := userCfg.Magnet
	if q := strings.TrimSpace(r.URL.Query().Get("magnet")); q != "" {
		magnetRef = q
	}

	log.Info("Stream request", "video_id", videoID, "premium", magnetRef != "" && userCfg.RDToken != "")

	streams := s.assembler.BuildStreams(r.Context(), videoID, present(magnetRef), present(userCfg.RDToken))
	writeJSON(w, http.StatusOK, StreamResponse{Streams: streams})
}

func present(v string) mo.Option[string] {
	if v == "" {
		return mo.None[string]()
	}
	return mo.Some(v)
}

// Streams resolves streams for a Stremio id outside of HTTP, as used by the CLI.
func (s *Server) Streams(ctx context.Context, id string, magnet, token mo.Option[string]) ([]Stream, error) {
	videoID, err := ParseVideoID(ContentType, id)
	if err != nil {
		if errors.Is(err, ErrInvalidID) && !strings.HasPrefix(id, IDPrefix) {
			// Accept bare ids on the command line.
			videoID, err = ParseVideoID(ContentType, IDPrefix+id)
		}
		if err != nil {
			return nil, err
		}
	}
	return s.assembler.BuildStreams(ctx, videoID, magnet, token), nil
}
