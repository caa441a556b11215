package ffmpeg

import (
	"fmt"

	"github.com/floostack/transcoder/ffmpeg"
)

// ProbeResult is the subset of stream information the pipeline needs to
// verify artifact integrity.
type ProbeResult struct {
	HasVideo    bool
	HasAudio    bool
	StreamCount int
}

type Prober struct {
	config Config
}

func NewProber(config Config) *Prober {
	return &Prober{config: config}
}

// Probe inspects the file's stream list using ffprobe.
func (prober *Prober) Probe(path string) (*ProbeResult, error) {
	cfg := ffmpeg.Config{
		FfmpegBinPath:  prober.config.FfmpegBinPath,
		FfprobeBinPath: prober.config.FfprobeBinPath,
	}

	metadata, err := ffmpeg.New(&cfg).Input(path).GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("failed to extract file metadata information using ffprobe: %s", err.Error())
	}

	result := &ProbeResult{}
	for _, stream := range metadata.GetStreams() {
		result.StreamCount++
		switch stream.GetCodecType() {
		case "video":
			result.HasVideo = true
		case "audio":
			result.HasAudio = true
		}
	}

	return result, nil
}
