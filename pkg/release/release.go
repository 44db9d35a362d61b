// Package release extracts quality details from torrent release names so the
// premium stream can tell the user what they are about to play.
package release

import (
	"strconv"
	"strings"

	"github.com/MunifTanjim/go-ptt"
	"github.com/samber/lo"
)

// Info contains parsed metadata from a release name
type Info struct {
	Title      string
	Year       int
	Resolution string
	Quality    string
	Codec      string
	Audio      []string
	HDR        []string
	Container  string
	Group      string
}

// Parse parses a release name using go-ptt. An empty name yields an empty Info.
func Parse(name string) *Info {
	name = strings.TrimSpace(name)
	if name == "" {
		return &Info{}
	}

	r := ptt.Parse(name)
	info := &Info{
		Title:      r.Title,
		Resolution: r.Resolution,
		Quality:    r.Quality,
		Codec:      r.Codec,
		Audio:      r.Audio,
		HDR:        r.HDR,
		Container:  r.Container,
		Group:      r.Group,
	}
	if r.Year != "" {
		if year, err := strconv.Atoi(r.Year); err == nil {
			info.Year = year
		}
	}
	return info
}

// Summary renders the technical parts as a single display line, e.g.
// "1080p WEB-DL x264 [GRP]". It is empty when nothing was recognised.
func (i *Info) Summary() string {
	if i == nil {
		return ""
	}
	parts := lo.Compact([]string{i.Resolution, i.Quality, strings.ToUpper(i.Codec)})
	parts = append(parts, lo.Compact(i.HDR)...)
	parts = append(parts, lo.Compact(i.Audio)...)
	if i.Group != "" {
		parts = append(parts, "["+i.Group+"]")
	}
	return strings.Join(parts, " ")
}
