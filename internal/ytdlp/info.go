package ytdlp

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// MediaInfo is the descriptive metadata the extraction engine reports
// for a resolved media resource. It is read-only once obtained.
type MediaInfo struct {
	ID          string  `mapstructure:"id" json:"id"`
	Title       string  `mapstructure:"title" json:"title"`
	Ext         string  `mapstructure:"ext" json:"ext"`
	FormatID    string  `mapstructure:"format_id" json:"format_id"`
	Resolution  string  `mapstructure:"resolution" json:"resolution"`
	Width       int     `mapstructure:"width" json:"width"`
	Height      int     `mapstructure:"height" json:"height"`
	FPS         float64 `mapstructure:"fps" json:"fps"`
	VideoCodec  string  `mapstructure:"vcodec" json:"vcodec"`
	AudioCodec  string  `mapstructure:"acodec" json:"acodec"`
	Duration    float64 `mapstructure:"duration" json:"duration"`
	Filesize    int64   `mapstructure:"filesize" json:"filesize"`
	UploadDate  string  `mapstructure:"upload_date" json:"upload_date"`
	ViewCount   int64   `mapstructure:"view_count" json:"view_count"`
	Uploader    string  `mapstructure:"uploader" json:"uploader"`
	UploaderID  string  `mapstructure:"uploader_id" json:"uploader_id"`
	Description string  `mapstructure:"description" json:"description"`

	Thumbnails []ThumbnailInfo `mapstructure:"thumbnails" json:"thumbnails,omitempty"`

	// Synthesized marks a minimal info document inferred from the URL
	// and produced file when the engine could not report rich metadata.
	Synthesized bool `mapstructure:"-" json:"-"`
}

type ThumbnailInfo struct {
	ID     string `mapstructure:"id" json:"id"`
	URL    string `mapstructure:"url" json:"url"`
	Width  int    `mapstructure:"width" json:"width"`
	Height int    `mapstructure:"height" json:"height"`
	Ext    string `mapstructure:"ext" json:"ext"`
}

// DecodeInfo converts the loosely-typed info document emitted by the
// engine into a MediaInfo. The engine emits nulls and mixed numeric
// types freely, hence the weakly-typed decode.
func DecodeInfo(raw map[string]any) (*MediaInfo, error) {
	var info MediaInfo
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &info,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode engine info document: %w", err)
	}

	return &info, nil
}

// SynthesizeInfo builds a minimal MediaInfo for a last-resort extraction
// where the engine produced a file but no metadata. The id and title are
// inferred from the URL, the extension from the produced file.
func SynthesizeInfo(mediaURL string, filePath string) *MediaInfo {
	id := inferID(mediaURL)
	ext := strings.TrimPrefix(filepath.Ext(filePath), ".")

	return &MediaInfo{
		ID:          id,
		Title:       id,
		Ext:         ext,
		FormatID:    "best",
		Synthesized: true,
	}
}

// inferID pulls the most specific identifier it can out of a media URL:
// a `v` query parameter when present, otherwise the last path segment.
func inferID(mediaURL string) string {
	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return mediaURL
	}

	if v := parsed.Query().Get("v"); v != "" {
		return v
	}

	if segment := path.Base(strings.TrimSuffix(parsed.Path, "/")); segment != "" && segment != "." && segment != "/" {
		return segment
	}

	return parsed.Host
}
