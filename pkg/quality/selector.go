// Package quality picks the preferred rendition of a video.
package quality

import (
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// DefaultOrder is the preference table used when none is configured, best first.
var DefaultOrder = []string{"1080p", "720p", "480p", "360p"}

// Variant is one encoded rendition of a video.
type Variant struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Selector resolves the best variant by walking a fixed preference table.
// Labels are compared as exact strings; the table is never parsed numerically.
type Selector struct {
	order []string
}

// NewSelector copies order so later mutation by the caller has no effect.
// An empty order falls back to DefaultOrder.
func NewSelector(order []string) *Selector {
	if len(order) == 0 {
		order = DefaultOrder
	}
	return &Selector{order: append([]string(nil), order...)}
}

// Order returns a copy of the preference table.
func (s *Selector) Order() []string {
	return append([]string(nil), s.order...)
}

// SelectBest returns the URL of the highest-preference variant present.
// No variants, or none with a known label, is a normal absent result.
func (s *Selector) SelectBest(variants []Variant) mo.Option[string] {
	if len(variants) == 0 {
		return mo.None[string]()
	}
	for _, label := range s.order {
		v, ok := lo.Find(variants, func(v Variant) bool {
			return v.Label == label && v.URL != ""
		})
		if ok {
			return mo.Some(v.URL)
		}
	}
	return mo.None[string]()
}
