package ytdlp

import (
	"fmt"
	"path/filepath"
)

// OptionSet is the immutable, declarative option value handed to the
// extraction engine for a single invocation. It is constructed once by
// the format resolver and never mutated downstream.
type OptionSet struct {
	URL         string
	WorkDir     string
	Selector    string
	MergeFormat string // target container when the selector pulls separate streams; "" = no merge

	AudioOnly    bool
	ExtractAudio bool
	AudioFormat  string
	AudioQuality string
	KeepVideo    bool

	WriteThumbnail     bool
	WriteAllThumbnails bool
	EmbedThumbnail     bool
	ConvertThumbnails  string // target image format; "" = no conversion
	WriteInfoJSON      bool

	WriteSubtitles bool
	SubtitleLangs  []string
	SubtitleFormat string

	MaxFilesize int64
	RateLimit   string
	Retries     int

	// OutputTemplate is relative to WorkDir, e.g. "%(id)s.%(ext)s".
	OutputTemplate string
}

// BuildArgs translates an OptionSet into the engine's command line.
// The two --print directives make the engine report the info document
// and every produced file path on stdout, one per line; ScanOutput
// understands that stream.
func BuildArgs(opts OptionSet) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--print-json",
		"--print", "after_move:filepath",
	}

	if opts.Selector != "" {
		args = append(args, "-f", opts.Selector)
	}
	if opts.MergeFormat != "" {
		args = append(args, "--merge-output-format", opts.MergeFormat)
	}

	template := opts.OutputTemplate
	if template == "" {
		template = "%(id)s.%(ext)s"
	}
	args = append(args, "-o", filepath.Join(opts.WorkDir, template))

	if opts.ExtractAudio {
		args = append(args, "-x", "--audio-format", opts.AudioFormat, "--audio-quality", opts.AudioQuality)
		if opts.KeepVideo {
			args = append(args, "-k")
		}
	}

	if opts.WriteAllThumbnails {
		args = append(args, "--write-all-thumbnails")
	} else if opts.WriteThumbnail {
		args = append(args, "--write-thumbnail")
	}
	if opts.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if opts.ConvertThumbnails != "" {
		args = append(args, "--convert-thumbnails", opts.ConvertThumbnails)
	}
	if opts.WriteInfoJSON {
		args = append(args, "--write-info-json")
	}

	if opts.WriteSubtitles {
		args = append(args, "--write-subs")
		if len(opts.SubtitleLangs) > 0 {
			args = append(args, "--sub-langs", joinComma(opts.SubtitleLangs))
		}
		if opts.SubtitleFormat != "" {
			args = append(args, "--sub-format", opts.SubtitleFormat)
		}
	}

	if opts.MaxFilesize > 0 {
		args = append(args, "--max-filesize", fmt.Sprintf("%d", opts.MaxFilesize))
	}
	if opts.RateLimit != "" {
		args = append(args, "--limit-rate", opts.RateLimit)
	}
	if opts.Retries > 0 {
		args = append(args, "--retries", fmt.Sprintf("%d", opts.Retries))
	}

	return append(args, opts.URL)
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
