package download

import (
	"strings"

	"github.com/snagd/snagd/internal/ytdlp"
)

// DefaultSelector asks for the best video stream combined with the best
// audio stream, falling back to the best single pre-merged stream.
const DefaultSelector = "bestvideo+bestaudio/best"

// AudioOnlySelector is the audio fast path: no video stream is
// requested at all.
const AudioOnlySelector = "bestaudio/best"

const defaultMergeFormat = "mp4"

// Resolver turns the user-supplied format and audio options into the
// declarative option set handed to the extraction engine. It never
// fails; unresolvable input degrades to the default selector.
type Resolver struct {
	overrides *OverrideTable
}

func NewResolver(overrides *OverrideTable) *Resolver {
	return &Resolver{overrides: overrides}
}

// Resolve composes the engine option set from the request. The option
// set is constructed once, here, and treated as immutable downstream.
func (resolver *Resolver) Resolve(req *Request, workDir string) ytdlp.OptionSet {
	selector := resolver.selectorFor(req)

	opts := ytdlp.OptionSet{
		URL:           req.MediaURL,
		WorkDir:       workDir,
		Selector:      selector,
		AudioOnly:     req.AudioOnly(),
		WriteInfoJSON: true,

		WriteThumbnail:     req.Thumbnails.Download,
		WriteAllThumbnails: req.Thumbnails.DownloadAll,
		EmbedThumbnail:     req.Thumbnails.EmbedInAudio && req.Audio.Extract,

		WriteSubtitles: req.Subtitles.Download,
		SubtitleLangs:  req.Subtitles.Languages,

		MaxFilesize: req.Download.MaxFilesize,
		RateLimit:   req.Download.RateLimit,
		Retries:     req.Download.Retries,
	}

	if len(req.Subtitles.Formats) > 0 {
		opts.SubtitleFormat = req.Subtitles.Formats[0]
	}

	if req.Thumbnails.Convert && len(req.Thumbnails.Formats) > 0 {
		opts.ConvertThumbnails = req.Thumbnails.Formats[0]
	}

	// A selector that joins separate video and audio pulls needs a
	// merge container.
	if strings.Contains(selector, "+") {
		opts.MergeFormat = defaultMergeFormat
	}

	if req.Audio.Extract {
		opts.ExtractAudio = true
		opts.AudioFormat = req.Audio.EffectiveFormat()
		opts.AudioQuality = req.Audio.EffectiveQuality()

		// When an explicit video format was requested alongside audio
		// extraction the video must be retained; audio is a secondary
		// artifact, never a replacement.
		if !opts.AudioOnly {
			opts.KeepVideo = true
		}
	}

	return opts
}

// selectorFor applies the resolution rules in order: source override,
// raw quality expression, structured selectors, audio fast path,
// default.
func (resolver *Resolver) selectorFor(req *Request) string {
	if resolver.overrides != nil {
		if selector, ok := resolver.overrides.Lookup(req.MediaURL); ok {
			return selector
		}
	}

	if req.Format.Quality != "" {
		return req.Format.Quality
	}

	if structured := joinStructured(req.Format); structured != "" {
		return structured
	}

	if req.AudioOnly() {
		return AudioOnlySelector
	}

	return DefaultSelector
}

func joinStructured(spec FormatSpec) string {
	parts := make([]string, 0, 4)
	for _, field := range []string{spec.FormatID, spec.Resolution, spec.VideoCodec, spec.AudioCodec} {
		if field != "" {
			parts = append(parts, field)
		}
	}

	return strings.Join(parts, "+")
}
