package download

import (
	"os"
	"path/filepath"
	"strings"
)

// ArtifactRole classifies a discovered file.
type ArtifactRole int

const (
	RoleUnknown ArtifactRole = iota
	RoleVideo
	RoleAudio
	RoleThumbnail
)

func (role ArtifactRole) String() string {
	switch role {
	case RoleVideo:
		return "video"
	case RoleAudio:
		return "audio"
	case RoleThumbnail:
		return "thumbnail"
	default:
		return "unknown"
	}
}

// ArtifactCandidate is a file discovered after an extraction attempt,
// not yet confirmed as an artifact to keep.
type ArtifactCandidate struct {
	Path string
	Role ArtifactRole
	Ext  string
	Size int64
}

// FinalArtifacts is the subset of candidates selected for upload: at
// most one video, at most one audio, zero or more thumbnails.
type FinalArtifacts struct {
	Video      *ArtifactCandidate
	Audio      *ArtifactCandidate
	Thumbnails []ArtifactCandidate
}

var (
	videoExtensions = map[string]bool{
		"mp4": true, "webm": true, "mkv": true, "mov": true, "avi": true, "flv": true,
	}
	audioExtensions = map[string]bool{
		"mp3": true, "m4a": true, "wav": true, "aac": true, "opus": true, "flac": true,
	}
	imageExtensions = map[string]bool{
		"jpg": true, "jpeg": true, "png": true, "webp": true, "gif": true,
	}
	sidecarSuffixes = []string{".info.json", ".description", ".annotations.xml"}
)

const partialSuffix = ".part"

// DiscoverArtifacts classifies every file in the listing and returns
// the candidates, in listing order. Metadata sidecar files are skipped.
// A file still carrying a partial-download suffix is renamed to strip
// the suffix first; if the stripped path already exists (an earlier pass
// renamed it) the stripped path is classified instead, and if the rename
// fails outright the original path is classified as-is. Sizes are stat'd
// best-effort; a file that cannot be stat'd gets size zero.
//
// The function is deterministic over its input listing: classifying the
// same listing twice yields the same candidates.
func DiscoverArtifacts(dir string, listing []string) []ArtifactCandidate {
	candidates := make([]ArtifactCandidate, 0, len(listing))

	for _, name := range listing {
		if isSidecar(name) {
			continue
		}

		path := filepath.Join(dir, name)
		if strings.HasSuffix(name, partialSuffix) {
			stripped := strings.TrimSuffix(path, partialSuffix)
			if _, err := os.Stat(stripped); err == nil {
				path = stripped
			} else if err := os.Rename(path, stripped); err == nil {
				path = stripped
			}
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		role := RoleUnknown
		switch {
		case videoExtensions[ext]:
			role = RoleVideo
		case audioExtensions[ext]:
			role = RoleAudio
		case imageExtensions[ext]:
			role = RoleThumbnail
		}

		var size int64
		if stat, err := os.Stat(path); err == nil {
			size = stat.Size()
		}

		candidates = append(candidates, ArtifactCandidate{Path: path, Role: role, Ext: ext, Size: size})
	}

	return candidates
}

// SelectArtifacts picks the final artifacts out of the candidates.
//
// Video: prefer the container matching the requested merge format, else
// the first discovered.
// Audio: prefer an exact requested-format match; otherwise the largest
// file stands in as a quality proxy. The largest-file heuristic is a
// deliberate compromise: stream metadata may be unavailable at this
// point and rejecting the job outright would be worse.
func SelectArtifacts(candidates []ArtifactCandidate, mergeFormat string, audioFormat string) FinalArtifacts {
	var final FinalArtifacts

	for i := range candidates {
		candidate := candidates[i]
		switch candidate.Role {
		case RoleVideo:
			if final.Video == nil {
				final.Video = &candidates[i]
			} else if mergeFormat != "" && candidate.Ext == mergeFormat && final.Video.Ext != mergeFormat {
				final.Video = &candidates[i]
			}
		case RoleAudio:
			if final.Audio == nil {
				final.Audio = &candidates[i]
				continue
			}

			exactNew := audioFormat != "" && candidate.Ext == audioFormat
			exactCurrent := audioFormat != "" && final.Audio.Ext == audioFormat
			if exactNew && !exactCurrent {
				final.Audio = &candidates[i]
			} else if exactNew == exactCurrent && candidate.Size > final.Audio.Size {
				final.Audio = &candidates[i]
			}
		case RoleThumbnail:
			final.Thumbnails = append(final.Thumbnails, candidate)
		}
	}

	return final
}

// Empty reports whether discovery found nothing usable at all.
func (artifacts FinalArtifacts) Empty() bool {
	return artifacts.Video == nil && artifacts.Audio == nil
}

func isSidecar(name string) bool {
	for _, suffix := range sidecarSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
