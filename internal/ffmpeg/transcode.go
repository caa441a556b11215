package ffmpeg

import (
	"context"
	"fmt"

	"github.com/floostack/transcoder/ffmpeg"
)

// audioCodecs maps a requested audio container to the encoder used to
// produce it. Lossless copy semantics are never assumed; every
// conversion goes through the format's encoder.
var audioCodecs = map[string]string{
	"mp3":  "libmp3lame",
	"m4a":  "aac",
	"aac":  "aac",
	"opus": "libopus",
	"flac": "flac",
	"wav":  "pcm_s16le",
}

// Transcoder converts an audio source into an exact requested
// format/bitrate using the structured transcoder wrapper.
type Transcoder struct {
	config Config
}

func NewTranscoder(config Config) *Transcoder {
	return &Transcoder{config: config}
}

// TranscodeAudio converts inputPath into the requested format at the
// given bitrate (a plain number of kbit/s, e.g. "192"). The video
// stream of a video source is dropped.
func (transcoder *Transcoder) TranscodeAudio(ctx context.Context, inputPath string, outputPath string, format string, bitrate string) error {
	codec, ok := audioCodecs[format]
	if !ok {
		return fmt.Errorf("no known encoder for audio format %q", format)
	}

	skipVideo := true
	overwrite := true
	audioBitrate := bitrate + "k"
	opts := &ffmpeg.Options{
		AudioCodec:   &codec,
		AudioBitrate: &audioBitrate,
		SkipVideo:    &skipVideo,
		Overwrite:    &overwrite,
	}

	progress, err := ffmpeg.
		New(&ffmpeg.Config{
			FfmpegBinPath:  transcoder.config.FfmpegBinPath,
			FfprobeBinPath: transcoder.config.FfprobeBinPath,
		}).
		Input(inputPath).
		Output(outputPath).
		WithContext(&ctx).
		WithOptions(opts).
		Start(opts)
	if err != nil {
		return fmt.Errorf("audio transcode failed to start: %w", err)
	}

	// Drain the progress channel; it closes when the command exits.
	for range progress {
	}

	return verifyOutput(outputPath)
}
