package eporner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"epstream/pkg/logger"
)

func TestClientSearch(t *testing.T) {
	logger.Init("DEBUG")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video/search/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		q := r.URL.Query()
		if q.Get("query") != "beach" || q.Get("per_page") != "20" || q.Get("page") != "2" ||
			q.Get("thumbsize") != "big" || q.Get("order") != "latest" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		fmt.Fprint(w, `{
  "count": 1, "start": 20, "per_page": 20, "page": 2, "total_count": "21", "total_pages": 2,
  "videos": [{
    "id": "AbC123", "title": "Sunset", "views": "1500", "added": "2024-01-02 10:00:00",
    "length_sec": 754, "length_min": "12:34",
    "default_thumb": {"size": "big", "width": 640, "height": 360, "src": "https://img.example/1.jpg"}
  }]
}`)
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", time.Second)
	resp, err := c.Search(context.Background(), SearchRequest{Query: "beach", Page: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Videos) != 1 {
		t.Fatalf("Expected 1 video, got %d", len(resp.Videos))
	}

	v := resp.Videos[0]
	if v.ID != "AbC123" || v.Title != "Sunset" {
		t.Errorf("Unexpected video %+v", v)
	}
	if v.Views != 1500 || v.LengthSec != 754 {
		t.Errorf("Expected views 1500 and length 754, got %d and %d", v.Views, v.LengthSec)
	}
	if resp.TotalCount != 21 {
		t.Errorf("Expected total_count 21, got %d", resp.TotalCount)
	}
	if v.DefaultThumb.Src != "https://img.example/1.jpg" {
		t.Errorf("Unexpected thumb %q", v.DefaultThumb.Src)
	}
}

func TestClientVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video/id/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.URL.Query().Get("id") {
		case "AbC123":
			fmt.Fprint(w, `{"id":"AbC123","title":"Sunset","videos":{"720p":"https://cdn.example/720.mp4","1080p":"https://cdn.example/1080.mp4","bogus":42}}`)
		case "plain":
			fmt.Fprint(w, `{"id":"plain","title":"No variants","videos":["not","a","map"]}`)
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	ctx := context.Background()

	v, err := c.Video(ctx, "AbC123")
	if err != nil {
		t.Fatalf("Video failed: %v", err)
	}
	if len(v.Variants) != 2 {
		t.Fatalf("Expected 2 variants, got %+v", v.Variants)
	}
	// sorted by label
	if v.Variants[0].Label != "1080p" || v.Variants[0].URL != "https://cdn.example/1080.mp4" {
		t.Errorf("Unexpected first variant %+v", v.Variants[0])
	}

	v, err = c.Video(ctx, "plain")
	if err != nil {
		t.Fatalf("Video failed: %v", err)
	}
	if len(v.Variants) != 0 {
		t.Errorf("Expected no variants, got %+v", v.Variants)
	}

	if _, err := c.Video(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := c.Video(ctx, "broken"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Expected upstream error, got %v", err)
	}
}

func TestClientLatin1Body(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=iso-8859-1")
		// "Café" with a Latin-1 encoded é
		w.Write([]byte("{\"id\":\"x1\",\"title\":\"Caf\xe9\"}"))
	}))
	defer server.Close()

	v, err := NewClient(server.URL, time.Second).Video(context.Background(), "x1")
	if err != nil {
		t.Fatalf("Video failed: %v", err)
	}
	if v.Title != "Café" {
		t.Errorf("Expected decoded title Café, got %q", v.Title)
	}
}
