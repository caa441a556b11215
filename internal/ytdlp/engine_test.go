package ytdlp_test

import (
	"bytes"
	"testing"

	"github.com/snagd/snagd/internal/ytdlp"
	"github.com/stretchr/testify/assert"
)

func TestScanOutput_SeparatesInfoAndFiles(t *testing.T) {
	stdout := bytes.NewBufferString(`[youtube] Extracting URL
{"id":"abc","title":"First","ext":"webm","format_id":"248"}
[download] Destination: /work/abc.webm
/work/abc.webm
{"id":"abc","title":"Merged","ext":"mp4","format_id":"137+251"}
/work/abc.mp4
/work/abc.mp4
[Merger] Merging formats
`)

	info, files := ytdlp.ScanOutput(stdout, "/work")

	assert.NotNil(t, info)
	assert.Equal(t, "Merged", info.Title, "last info document wins")
	assert.Equal(t, "137+251", info.FormatID)
	assert.Equal(t, []string{"/work/abc.webm", "/work/abc.mp4"}, files, "reported paths are deduplicated in order")
}

func TestScanOutput_MalformedInfoIsSkipped(t *testing.T) {
	stdout := bytes.NewBufferString(`{"id":"abc","title":"Good","ext":"mp4"}
{"id":"broken"
/work/abc.mp4
`)

	info, files := ytdlp.ScanOutput(stdout, "/work")

	assert.NotNil(t, info)
	assert.Equal(t, "Good", info.Title, "malformed document does not clobber a good one")
	assert.Equal(t, []string{"/work/abc.mp4"}, files)
}

func TestScanOutput_IgnoresPathsOutsideWorkDir(t *testing.T) {
	stdout := bytes.NewBufferString(`/etc/passwd
/work/abc.mp4
/elsewhere/abc.mp4
/workspace/abc.mp4
`)

	info, files := ytdlp.ScanOutput(stdout, "/work")

	assert.Nil(t, info)
	assert.Equal(t, []string{"/work/abc.mp4"}, files)
}

func TestScanOutput_WeaklyTypedNumericFields(t *testing.T) {
	// The engine emits numeric fields as floats or strings depending on
	// the site extractor; both must decode.
	stdout := bytes.NewBufferString(`{"id":"abc","title":"T","ext":"mp4","width":1920,"height":"1080","fps":29.97,"view_count":"12345"}
`)

	info, _ := ytdlp.ScanOutput(stdout, "/work")

	assert.NotNil(t, info)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.InDelta(t, 29.97, info.FPS, 0.001)
	assert.Equal(t, int64(12345), info.ViewCount)
}

func TestSynthesizeInfo_FromQueryParameter(t *testing.T) {
	info := ytdlp.SynthesizeInfo("https://www.youtube.com/watch?v=dQw4w9WgXcQ", "/work/best.mp4")

	assert.Equal(t, "dQw4w9WgXcQ", info.ID)
	assert.Equal(t, "dQw4w9WgXcQ", info.Title)
	assert.Equal(t, "mp4", info.Ext)
	assert.Equal(t, "best", info.FormatID)
	assert.True(t, info.Synthesized)
}

func TestSynthesizeInfo_FromPathSegment(t *testing.T) {
	info := ytdlp.SynthesizeInfo("https://vimeo.com/76979871/", "/work/best.webm")

	assert.Equal(t, "76979871", info.ID)
	assert.Equal(t, "webm", info.Ext)
}

func TestSynthesizeInfo_HostFallback(t *testing.T) {
	info := ytdlp.SynthesizeInfo("https://example.com/", "/work/best.mkv")

	assert.Equal(t, "example.com", info.ID)
}
