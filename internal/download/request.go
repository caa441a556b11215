package download

// Request describes a remote media resource and the output shape the
// caller wants back. A request is immutable once accepted by the job
// service; the pipeline only ever reads from it.
type Request struct {
	MediaURL   string        `json:"media_url" validate:"required,url"`
	WebhookURL string        `json:"webhook_url,omitempty" validate:"omitempty,url"`
	ID         string        `json:"id,omitempty"`
	Format     FormatSpec    `json:"format,omitempty"`
	Audio      AudioSpec     `json:"audio,omitempty"`
	Thumbnails ThumbnailSpec `json:"thumbnails,omitempty"`
	Subtitles  SubtitleSpec  `json:"subtitles,omitempty"`
	Download   Limits        `json:"download,omitempty"`
}

// FormatSpec selects the video format. Quality is a raw selector
// expression handed to the extraction engine verbatim; when present it
// takes absolute precedence over the structured fields.
type FormatSpec struct {
	Quality    string `json:"quality,omitempty"`
	FormatID   string `json:"format_id,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	VideoCodec string `json:"video_codec,omitempty"`
	AudioCodec string `json:"audio_codec,omitempty"`
}

// Empty reports whether no format preference was supplied at all.
func (spec FormatSpec) Empty() bool {
	return spec.Quality == "" && spec.FormatID == "" && spec.Resolution == "" &&
		spec.VideoCodec == "" && spec.AudioCodec == ""
}

type AudioSpec struct {
	Extract bool   `json:"extract,omitempty"`
	Format  string `json:"format,omitempty"`
	Quality string `json:"quality,omitempty"`
}

const (
	DefaultAudioFormat  = "mp3"
	DefaultAudioQuality = "192"
)

// EffectiveFormat returns the requested audio container, defaulted.
func (spec AudioSpec) EffectiveFormat() string {
	if spec.Format == "" {
		return DefaultAudioFormat
	}
	return spec.Format
}

// EffectiveQuality returns the requested audio bitrate, defaulted.
func (spec AudioSpec) EffectiveQuality() string {
	if spec.Quality == "" {
		return DefaultAudioQuality
	}
	return spec.Quality
}

type ThumbnailSpec struct {
	Download     bool     `json:"download,omitempty"`
	DownloadAll  bool     `json:"download_all,omitempty"`
	Formats      []string `json:"formats,omitempty"`
	Convert      bool     `json:"convert,omitempty"`
	EmbedInAudio bool     `json:"embed_in_audio,omitempty"`
}

type SubtitleSpec struct {
	Download  bool     `json:"download,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Formats   []string `json:"formats,omitempty"`
}

// Limits are passed through to the extraction engine verbatim.
type Limits struct {
	MaxFilesize int64  `json:"max_filesize,omitempty"`
	RateLimit   string `json:"rate_limit,omitempty"`
	Retries     int    `json:"retries,omitempty"`
}

// AudioOnly reports whether the request is for an audio artifact alone:
// audio extraction with no explicit video format. In this shape the
// pipeline takes the audio-only fast path and never requests a video
// stream.
func (req *Request) AudioOnly() bool {
	return req.Audio.Extract && req.Format.Empty()
}
