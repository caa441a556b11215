package ytdlp_test

import (
	"path/filepath"
	"testing"

	"github.com/snagd/snagd/internal/ytdlp"
	"github.com/stretchr/testify/assert"
)

// argsContainPair reports whether the flag appears immediately followed
// by the given value.
func argsContainPair(args []string, flag string, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestBuildArgs_BaseInvocation(t *testing.T) {
	args := ytdlp.BuildArgs(ytdlp.OptionSet{
		URL:     "https://example.com/watch?v=abc",
		WorkDir: "/tmp/work",
	})

	assert.Contains(t, args, "--no-playlist")
	assert.Contains(t, args, "--print-json")
	assert.True(t, argsContainPair(args, "--print", "after_move:filepath"))
	assert.True(t, argsContainPair(args, "-o", filepath.Join("/tmp/work", "%(id)s.%(ext)s")),
		"output template defaults when unset")
	assert.Equal(t, "https://example.com/watch?v=abc", args[len(args)-1], "URL is always the final argument")
	assert.NotContains(t, args, "-f")
	assert.NotContains(t, args, "-x")
}

func TestBuildArgs_SelectorAndMerge(t *testing.T) {
	args := ytdlp.BuildArgs(ytdlp.OptionSet{
		URL:         "https://example.com/v",
		WorkDir:     "/tmp/work",
		Selector:    "137+bestaudio",
		MergeFormat: "mp4",
	})

	assert.True(t, argsContainPair(args, "-f", "137+bestaudio"))
	assert.True(t, argsContainPair(args, "--merge-output-format", "mp4"))
}

func TestBuildArgs_AudioExtraction(t *testing.T) {
	args := ytdlp.BuildArgs(ytdlp.OptionSet{
		URL:          "https://example.com/v",
		WorkDir:      "/tmp/work",
		ExtractAudio: true,
		AudioFormat:  "mp3",
		AudioQuality: "192",
		KeepVideo:    true,
	})

	assert.Contains(t, args, "-x")
	assert.True(t, argsContainPair(args, "--audio-format", "mp3"))
	assert.True(t, argsContainPair(args, "--audio-quality", "192"))
	assert.Contains(t, args, "-k", "video is kept alongside the extracted audio")

	audioOnly := ytdlp.BuildArgs(ytdlp.OptionSet{
		URL:          "https://example.com/v",
		WorkDir:      "/tmp/work",
		ExtractAudio: true,
		AudioFormat:  "mp3",
		AudioQuality: "192",
	})
	assert.NotContains(t, audioOnly, "-k")
}

func TestBuildArgs_ThumbnailsSubtitlesAndLimits(t *testing.T) {
	args := ytdlp.BuildArgs(ytdlp.OptionSet{
		URL:               "https://example.com/v",
		WorkDir:           "/tmp/work",
		WriteThumbnail:    true,
		EmbedThumbnail:    true,
		ConvertThumbnails: "png",
		WriteInfoJSON:     true,
		WriteSubtitles:    true,
		SubtitleLangs:     []string{"en", "de"},
		SubtitleFormat:    "srt",
		MaxFilesize:       1048576,
		RateLimit:         "500K",
		Retries:           3,
	})

	assert.Contains(t, args, "--write-thumbnail")
	assert.Contains(t, args, "--embed-thumbnail")
	assert.True(t, argsContainPair(args, "--convert-thumbnails", "png"))
	assert.Contains(t, args, "--write-info-json")
	assert.Contains(t, args, "--write-subs")
	assert.True(t, argsContainPair(args, "--sub-langs", "en,de"))
	assert.True(t, argsContainPair(args, "--sub-format", "srt"))
	assert.True(t, argsContainPair(args, "--max-filesize", "1048576"))
	assert.True(t, argsContainPair(args, "--limit-rate", "500K"))
	assert.True(t, argsContainPair(args, "--retries", "3"))

	all := ytdlp.BuildArgs(ytdlp.OptionSet{
		URL:                "https://example.com/v",
		WorkDir:            "/tmp/work",
		WriteThumbnail:     true,
		WriteAllThumbnails: true,
	})
	assert.Contains(t, all, "--write-all-thumbnails")
	assert.NotContains(t, all, "--write-thumbnail", "the all-thumbnails flag supersedes the single-thumbnail one")
}

func TestBuildArgs_CustomOutputTemplate(t *testing.T) {
	args := ytdlp.BuildArgs(ytdlp.OptionSet{
		URL:            "https://example.com/v",
		WorkDir:        "/tmp/work",
		OutputTemplate: "media.%(ext)s",
	})

	assert.True(t, argsContainPair(args, "-o", filepath.Join("/tmp/work", "media.%(ext)s")))
}
