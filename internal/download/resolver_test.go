package download_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/snagd/snagd/internal/download"
	"github.com/stretchr/testify/assert"
)

func TestResolve_DefaultSelector(t *testing.T) {
	resolver := download.NewResolver(nil)
	req := &download.Request{MediaURL: "https://example.com/watch?v=abc"}

	opts := resolver.Resolve(req, "/tmp/work")

	assert.Equal(t, download.DefaultSelector, opts.Selector)
	assert.Equal(t, "mp4", opts.MergeFormat, "combining selector should request a merge container")
	assert.False(t, opts.ExtractAudio)
	assert.False(t, opts.AudioOnly)
	assert.True(t, opts.WriteInfoJSON)
}

func TestResolve_RawQualityTakesPrecedence(t *testing.T) {
	resolver := download.NewResolver(nil)
	req := &download.Request{
		MediaURL: "https://example.com/watch?v=abc",
		Format: download.FormatSpec{
			Quality:  "best[height<=720]",
			FormatID: "137",
		},
	}

	opts := resolver.Resolve(req, "/tmp/work")

	assert.Equal(t, "best[height<=720]", opts.Selector)
	assert.Empty(t, opts.MergeFormat, "single-stream selector needs no merge container")
}

func TestResolve_StructuredSelectorJoinOrder(t *testing.T) {
	resolver := download.NewResolver(nil)
	req := &download.Request{
		MediaURL: "https://example.com/watch?v=abc",
		Format: download.FormatSpec{
			FormatID:   "137",
			Resolution: "bestvideo[height<=1080]",
			AudioCodec: "bestaudio[acodec=opus]",
		},
	}

	opts := resolver.Resolve(req, "/tmp/work")

	assert.Equal(t, "137+bestvideo[height<=1080]+bestaudio[acodec=opus]", opts.Selector)
	assert.Equal(t, "mp4", opts.MergeFormat)
}

func TestResolve_AudioOnlyFastPath(t *testing.T) {
	resolver := download.NewResolver(nil)
	req := &download.Request{
		MediaURL: "https://example.com/watch?v=abc",
		Audio:    download.AudioSpec{Extract: true},
	}

	opts := resolver.Resolve(req, "/tmp/work")

	assert.Equal(t, download.AudioOnlySelector, opts.Selector)
	assert.True(t, opts.AudioOnly)
	assert.True(t, opts.ExtractAudio)
	assert.Equal(t, "mp3", opts.AudioFormat)
	assert.Equal(t, "192", opts.AudioQuality)
	assert.False(t, opts.KeepVideo, "audio-only extraction must not retain video")
}

func TestResolve_AudioAlongsideVideoKeepsVideo(t *testing.T) {
	resolver := download.NewResolver(nil)
	req := &download.Request{
		MediaURL: "https://example.com/watch?v=abc",
		Format:   download.FormatSpec{Resolution: "bestvideo[height<=720]"},
		Audio:    download.AudioSpec{Extract: true, Format: "m4a", Quality: "256"},
	}

	opts := resolver.Resolve(req, "/tmp/work")

	assert.False(t, opts.AudioOnly)
	assert.True(t, opts.ExtractAudio)
	assert.True(t, opts.KeepVideo, "video must be retained when an explicit format was requested")
	assert.Equal(t, "m4a", opts.AudioFormat)
	assert.Equal(t, "256", opts.AudioQuality)
}

func TestResolve_OverrideTableWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")
	content := "overrides:\n  - pattern: \"example.com/broken\"\n    selector: \"best[ext=mp4]\"\n"
	assert.Nil(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := download.LoadOverrideTable(path)
	assert.Nil(t, err)

	resolver := download.NewResolver(table)
	req := &download.Request{
		MediaURL: "https://example.com/broken/stream",
		Format:   download.FormatSpec{Quality: "bestvideo+bestaudio"},
	}

	opts := resolver.Resolve(req, "/tmp/work")
	assert.Equal(t, "best[ext=mp4]", opts.Selector, "override must beat even an explicit quality expression")
}

func TestOverrideTable_NoMatchFallsThrough(t *testing.T) {
	table, err := download.LoadOverrideTable("")
	assert.Nil(t, err)

	_, ok := table.Lookup("https://example.com/fine")
	assert.False(t, ok)
}

func TestResolve_ThumbnailMapping(t *testing.T) {
	resolver := download.NewResolver(nil)
	req := &download.Request{
		MediaURL:   "https://example.com/watch?v=abc",
		Audio:      download.AudioSpec{Extract: true},
		Thumbnails: download.ThumbnailSpec{Download: true, DownloadAll: true, EmbedInAudio: true},
	}

	opts := resolver.Resolve(req, "/tmp/work")

	assert.True(t, opts.WriteThumbnail)
	assert.True(t, opts.WriteAllThumbnails)
	assert.True(t, opts.EmbedThumbnail)

	noAudio := &download.Request{
		MediaURL:   "https://example.com/watch?v=abc",
		Format:     download.FormatSpec{Resolution: "bestvideo"},
		Thumbnails: download.ThumbnailSpec{EmbedInAudio: true},
	}
	assert.False(t, resolver.Resolve(noAudio, "/tmp/work").EmbedThumbnail,
		"embedding needs an extracted audio artifact to embed into")
}

func TestResolve_SubtitlesAndLimitsPassthrough(t *testing.T) {
	resolver := download.NewResolver(nil)
	req := &download.Request{
		MediaURL:  "https://example.com/watch?v=abc",
		Subtitles: download.SubtitleSpec{Download: true, Languages: []string{"en", "de"}, Formats: []string{"srt"}},
		Download:  download.Limits{MaxFilesize: 1024, RateLimit: "5M", Retries: 3},
	}

	opts := resolver.Resolve(req, "/tmp/work")

	assert.True(t, opts.WriteSubtitles)
	assert.Equal(t, []string{"en", "de"}, opts.SubtitleLangs)
	assert.Equal(t, "srt", opts.SubtitleFormat)
	assert.Equal(t, int64(1024), opts.MaxFilesize)
	assert.Equal(t, "5M", opts.RateLimit)
	assert.Equal(t, 3, opts.Retries)
}
