package stremio

import (
	"context"
	"errors"

	"github.com/samber/mo"

	"epstream/pkg/debrid"
	"epstream/pkg/eporner"
	"epstream/pkg/logger"
	"epstream/pkg/quality"
)

// MetadataSource looks up a video's playable variants.
type MetadataSource interface {
	Video(ctx context.Context, id string) (*eporner.Video, error)
}

// Unrestricter turns a magnet into a direct URL, see debrid.Pipeline.
type Unrestricter interface {
	UnrestrictWithRetry(ctx context.Context, magnet, token string, policy debrid.RetryPolicy) *debrid.Task
}

// Assembler composes the ordered stream list for one video: the direct
// stream, the premium stream, then the embed fallback.
type Assembler struct {
	metadata  MetadataSource
	selector  *quality.Selector
	debrid    Unrestricter
	policy    debrid.RetryPolicy
	embedBase string
}

// NewAssembler wires the collaborators. unrestricter may be nil, in which
// case premium streams are never attempted.
func NewAssembler(metadata MetadataSource, selector *quality.Selector, unrestricter Unrestricter, policy debrid.RetryPolicy, embedBase string) *Assembler {
	if selector == nil {
		selector = quality.NewSelector(nil)
	}
	return &Assembler{
		metadata:  metadata,
		selector:  selector,
		debrid:    unrestricter,
		policy:    policy,
		embedBase: embedBase,
	}
}

// BuildStreams looks up the video and assembles its streams. Lookup failures
// only cost the direct stream; the result is never empty.
func (a *Assembler) BuildStreams(ctx context.Context, videoID string, magnet, token mo.Option[string]) []Stream {
	log := logger.FromContext(ctx)

	var variants []quality.Variant
	if a.metadata != nil {
		video, err := a.metadata.Video(ctx, videoID)
		switch {
		case errors.Is(err, eporner.ErrNotFound):
			log.Info("Video unknown to metadata service", "video_id", videoID, "kind", "MetadataUnavailable")
		case err != nil:
			log.Warn("Metadata lookup failed", "video_id", videoID, "kind", "MetadataUnavailable", "err", err)
		default:
			variants = video.Variants
		}
	}

	return a.Assemble(ctx, videoID, variants, magnet, token)
}

// Assemble builds the stream list from already fetched variants.
func (a *Assembler) Assemble(ctx context.Context, videoID string, variants []quality.Variant, magnet, token mo.Option[string]) []Stream {
	log := logger.FromContext(ctx)
	streams := make([]Stream, 0, 3)

	if url, ok := a.selector.SelectBest(variants).Get(); ok {
		streams = append(streams, DirectStream(DirectName, DirectTitle, url))
	} else if len(variants) > 0 {
		log.Debug("No preferred quality available", "video_id", videoID, "variants", len(variants))
	}

	if s, ok := a.premium(ctx, videoID, magnet, token).Get(); ok {
		streams = append(streams, s)
	}

	streams = append(streams, embedStream(a.embedBase, videoID))
	log.Debug("Assembled streams", "video_id", videoID, "streams", describeStreams(streams))
	return streams
}

func (a *Assembler) premium(ctx context.Context, videoID string, magnet, token mo.Option[string]) mo.Option[Stream] {
	m, hasMagnet := magnet.Get()
	t, hasToken := token.Get()
	if !hasMagnet || !hasToken || m == "" || t == "" || a.debrid == nil {
		return mo.None[Stream]()
	}

	task := a.debrid.UnrestrictWithRetry(ctx, m, t, a.policy)
	if task.Failure != nil {
		f := task.Failure
		logger.FromContext(ctx).Warn("Premium stream unavailable",
			"video_id", videoID,
			"step", f.Step.String(),
			"task_id", f.TaskID,
			"kind", string(f.Kind),
			"attempts", task.Attempt,
			"err", f)
		return mo.None[Stream]()
	}
	return mo.Some(premiumStream(task))
}
