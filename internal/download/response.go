package download

import "github.com/snagd/snagd/internal/ytdlp"

// ResponseRecord is the normalised result of a completed download job.
// The media block is always present when any artifact was produced; the
// audio block and thumbnail array only appear when those artifacts
// exist.
type ResponseRecord struct {
	Media      MediaBlock        `json:"media"`
	Audio      *AudioBlock       `json:"audio,omitempty"`
	Thumbnails []ThumbnailRecord `json:"thumbnails,omitempty"`
}

type MediaBlock struct {
	MediaURL    string  `json:"media_url"`
	Title       string  `json:"title"`
	FormatID    string  `json:"format_id"`
	Ext         string  `json:"ext"`
	Resolution  string  `json:"resolution,omitempty"`
	Filesize    int64   `json:"filesize,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	FPS         float64 `json:"fps,omitempty"`
	VideoCodec  string  `json:"video_codec,omitempty"`
	AudioCodec  string  `json:"audio_codec,omitempty"`
	UploadDate  string  `json:"upload_date,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	ViewCount   int64   `json:"view_count,omitempty"`
	Uploader    string  `json:"uploader,omitempty"`
	UploaderID  string  `json:"uploader_id,omitempty"`
	Description string  `json:"description,omitempty"`
}

// AudioBlock reports the ACTUAL format and quality of the produced
// audio artifact, not merely what was requested.
type AudioBlock struct {
	AudioURL string `json:"audio_url"`
	Format   string `json:"format"`
	Quality  string `json:"quality"`
}

type ThumbnailRecord struct {
	ID             string `json:"id"`
	ImageURL       string `json:"image_url"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	OriginalFormat string `json:"original_format,omitempty"`
	Converted      bool   `json:"converted"`
}

// assembleResponse builds the ResponseRecord from the engine metadata
// and the per-artifact upload outcomes. When only an audio artifact
// exists, the media block is populated from it so callers always
// receive a non-empty media block when any artifact was produced.
func assembleResponse(info *ytdlp.MediaInfo, video *UploadResult, audio *UploadResult, audioFormat, audioQuality string, thumbnails []ThumbnailRecord) *ResponseRecord {
	record := &ResponseRecord{
		Media: MediaBlock{
			Title:       info.Title,
			FormatID:    info.FormatID,
			Ext:         info.Ext,
			Resolution:  info.Resolution,
			Filesize:    info.Filesize,
			Width:       info.Width,
			Height:      info.Height,
			FPS:         info.FPS,
			VideoCodec:  info.VideoCodec,
			AudioCodec:  info.AudioCodec,
			UploadDate:  info.UploadDate,
			Duration:    info.Duration,
			ViewCount:   info.ViewCount,
			Uploader:    info.Uploader,
			UploaderID:  info.UploaderID,
			Description: info.Description,
		},
		Thumbnails: thumbnails,
	}

	if video != nil {
		record.Media.MediaURL = video.RemoteURL
	}

	if audio != nil {
		record.Audio = &AudioBlock{
			AudioURL: audio.RemoteURL,
			Format:   audioFormat,
			Quality:  audioQuality,
		}

		// Audio-only shape: the media block carries the audio artifact
		// so the caller never receives an empty media block.
		if video == nil {
			record.Media.MediaURL = audio.RemoteURL
			record.Media.Ext = audioFormat
			record.Media.VideoCodec = ""
		}
	}

	return record
}

// UploadResult records a finalized artifact's successful upload. At
// most two upload attempts are ever made per artifact.
type UploadResult struct {
	Role      ArtifactRole
	RemoteURL string
}
