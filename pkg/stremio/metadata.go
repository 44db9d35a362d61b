package stremio

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"epstream/pkg/debrid"
	"epstream/pkg/eporner"
	"epstream/pkg/release"
)

// Stream labels shown in the client.
const (
	DirectName   = "Eporner Direct"
	DirectTitle  = "Direct Stream (No VPN Required)"
	PremiumName  = "Real-Debrid"
	PremiumTitle = "Premium Stream (Real-Debrid)"
	EmbedName    = "Eporner Embed"
	EmbedTitle   = "Embed Player"
)

// videoToMeta converts an Eporner video into a catalog entry
func videoToMeta(v eporner.Video) MetaPreview {
	name := v.Title
	if name == "" {
		name = "Untitled"
	}
	return MetaPreview{
		ID:          IDPrefix + v.ID,
		Type:        ContentType,
		Name:        name,
		Poster:      v.DefaultThumb.Src,
		Background:  v.DefaultThumb.Src,
		Description: fmt.Sprintf("Length: %ds | Views: %d", v.LengthSec, v.Views),
		ReleaseInfo: v.Added,
		Runtime:     fmt.Sprintf("%d min", v.LengthSec/60),
	}
}

// premiumStream builds the Real-Debrid candidate, adding the parsed release
// details of the downloaded file on a second line when available.
func premiumStream(task *debrid.Task) Stream {
	name := task.Filename
	if name == "" {
		name = task.DisplayName
	}

	title := PremiumTitle
	details := release.Parse(name).Summary()
	if task.Bytes > 0 {
		details = strings.TrimSpace(details + " " + humanize.Bytes(uint64(task.Bytes)))
	}
	if details != "" {
		title += "\n" + details
	}

	s := DirectStream(PremiumName, title, task.ResultURL)
	if task.Filename != "" {
		s.BehaviorHints = &BehaviorHints{
			BingeGroup: "epstream|realdebrid",
			Filename:   task.Filename,
		}
	}
	return s
}

func embedStream(base, videoID string) Stream {
	return ExternalStream(EmbedName, EmbedTitle, EmbedURL(base, videoID))
}

func describeStreams(streams []Stream) string {
	return strings.Join(lo.Map(streams, func(s Stream, _ int) string { return s.Name }), ", ")
}
