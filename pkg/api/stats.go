package api

import (
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// SystemStats represents the current state of the application
type SystemStats struct {
	Timestamp     time.Time `json:"timestamp"`
	Version       string    `json:"version"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Goroutines    int       `json:"goroutines"`
	HeapAlloc     string    `json:"heap_alloc"`
	CatalogPages  int       `json:"catalog_pages_cached"`
	LogClients    int       `json:"log_clients"`
}

// collectStats gathers metrics from all sources
func (s *Server) collectStats() SystemStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := SystemStats{
		Timestamp:     time.Now(),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		HeapAlloc:     humanize.IBytes(mem.HeapAlloc),
		LogClients:    s.ClientCount(),
	}
	if s.catalog != nil {
		stats.CatalogPages = s.catalog.Len()
	}
	return stats
}
