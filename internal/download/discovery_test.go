package download_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/snagd/snagd/internal/download"
	"github.com/stretchr/testify/assert"
)

func writeFile(t *testing.T, dir string, name string, size int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	assert.Nil(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestDiscoverArtifacts_ClassifiesByExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "abc.mp4", 100)
	writeFile(t, dir, "abc.mp3", 50)
	writeFile(t, dir, "abc.webp", 10)
	writeFile(t, dir, "abc.info.json", 5)
	writeFile(t, dir, "abc.description", 5)

	candidates := download.DiscoverArtifacts(dir, []string{"abc.mp4", "abc.mp3", "abc.webp", "abc.info.json", "abc.description"})

	assert.Len(t, candidates, 3, "sidecar files must be skipped")
	assert.Equal(t, download.RoleVideo, candidates[0].Role)
	assert.Equal(t, int64(100), candidates[0].Size)
	assert.Equal(t, download.RoleAudio, candidates[1].Role)
	assert.Equal(t, download.RoleThumbnail, candidates[2].Role)
}

func TestDiscoverArtifacts_StripsPartialSuffix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "abc.mp4.part", 100)

	candidates := download.DiscoverArtifacts(dir, []string{"abc.mp4.part"})

	assert.Len(t, candidates, 1)
	assert.Equal(t, download.RoleVideo, candidates[0].Role)
	assert.Equal(t, "mp4", candidates[0].Ext)
	assert.FileExists(t, filepath.Join(dir, "abc.mp4"))
	assert.NoFileExists(t, filepath.Join(dir, "abc.mp4.part"))
}

func TestDiscoverArtifacts_SecondPassMatchesFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "abc.mp4.part", 100)
	listing := []string{"abc.mp4.part"}

	first := download.DiscoverArtifacts(dir, listing)
	second := download.DiscoverArtifacts(dir, listing)

	assert.Equal(t, first, second)
	assert.Len(t, second, 1)
	assert.Equal(t, download.RoleVideo, second[0].Role)
	assert.Equal(t, int64(100), second[0].Size)

	final := download.SelectArtifacts(second, "mp4", "")
	assert.NotNil(t, final.Video)
}

func TestSelectArtifacts_PrefersMergeFormatVideo(t *testing.T) {
	candidates := []download.ArtifactCandidate{
		{Path: "/w/abc.webm", Role: download.RoleVideo, Ext: "webm", Size: 900},
		{Path: "/w/abc.mp4", Role: download.RoleVideo, Ext: "mp4", Size: 800},
	}

	final := download.SelectArtifacts(candidates, "mp4", "")
	assert.NotNil(t, final.Video)
	assert.Equal(t, "mp4", final.Video.Ext)
}

func TestSelectArtifacts_AudioExactMatchBeatsLarger(t *testing.T) {
	candidates := []download.ArtifactCandidate{
		{Path: "/w/abc.m4a", Role: download.RoleAudio, Ext: "m4a", Size: 5000},
		{Path: "/w/abc.mp3", Role: download.RoleAudio, Ext: "mp3", Size: 100},
	}

	final := download.SelectArtifacts(candidates, "", "mp3")
	assert.NotNil(t, final.Audio)
	assert.Equal(t, "mp3", final.Audio.Ext, "requested format beats a larger candidate")
}

func TestSelectArtifacts_LargestAudioWhenNoExactMatch(t *testing.T) {
	candidates := []download.ArtifactCandidate{
		{Path: "/w/abc.m4a", Role: download.RoleAudio, Ext: "m4a", Size: 100},
		{Path: "/w/abc.opus", Role: download.RoleAudio, Ext: "opus", Size: 5000},
	}

	final := download.SelectArtifacts(candidates, "", "mp3")
	assert.NotNil(t, final.Audio)
	assert.Equal(t, "opus", final.Audio.Ext, "largest candidate is the quality proxy")
}

func TestSelectArtifacts_EmptyWhenNothingUsable(t *testing.T) {
	final := download.SelectArtifacts([]download.ArtifactCandidate{
		{Path: "/w/abc.xyz", Role: download.RoleUnknown, Ext: "xyz"},
	}, "mp4", "mp3")

	assert.True(t, final.Empty())
}

func TestWorkDir_AcquireListRelease(t *testing.T) {
	root := t.TempDir()
	id := mustUUID(t)

	wd, err := download.AcquireWorkDir(root, id)
	assert.Nil(t, err)
	assert.DirExists(t, wd.Path)

	writeFile(t, wd.Path, "a.mp4", 10)
	assert.Nil(t, os.Mkdir(filepath.Join(wd.Path, "nested"), 0o755))

	names, err := wd.List()
	assert.Nil(t, err)
	assert.Equal(t, []string{"a.mp4"}, names, "subdirectories are not listed")

	wd.Release()
	assert.NoDirExists(t, wd.Path)
}

func TestSweepOrphans_RemovesOnlyJobDirs(t *testing.T) {
	root := t.TempDir()
	id := mustUUID(t)
	orphan, err := download.AcquireWorkDir(root, id)
	assert.Nil(t, err)

	keep := filepath.Join(root, "unrelated")
	assert.Nil(t, os.Mkdir(keep, 0o755))

	download.SweepOrphans(root)

	assert.NoDirExists(t, orphan.Path)
	assert.DirExists(t, keep)
}
