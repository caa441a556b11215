package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/snagd/snagd/pkg/logger"
)

var log = logger.Get("FFmpeg")

type Config struct {
	FfmpegBinPath  string `yaml:"ffmpeg_binary" env:"FFMPEG_BINARY_PATH" env-default:"ffmpeg"`
	FfprobeBinPath string `yaml:"ffprobe_binary" env:"FFPROBE_BINARY_PATH" env-default:"ffprobe"`
}

// Remuxer repackages an existing video stream and a separately encoded
// audio stream into one container. The video stream is copied
// unmodified; only the audio is re-encoded to fit the container.
// Two inputs are required, which rules out the structured transcoder
// wrapper (single input only), so the binary is invoked directly.
type Remuxer struct {
	config Config
}

func NewRemuxer(config Config) *Remuxer {
	return &Remuxer{config: config}
}

func (remuxer *Remuxer) Remux(ctx context.Context, videoPath string, audioPath string, outputPath string) error {
	args := []string{
		"-y",
		"-loglevel", "error",
		"-nostdin",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		outputPath,
	}

	log.Debugf("Remuxing %s + %s -> %s\n", videoPath, audioPath, outputPath)
	if err := runFfmpeg(ctx, remuxer.config, args); err != nil {
		return err
	}

	return verifyOutput(outputPath)
}

func runFfmpeg(ctx context.Context, config Config, args []string) error {
	bin := config.FfmpegBinPath
	if bin == "" {
		bin = "ffmpeg"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %w | %s", err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// verifyOutput enforces the external-process contract: success is exit
// status zero AND a non-empty output file.
func verifyOutput(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("ffmpeg reported success but output %s is missing: %w", path, err)
	}
	if stat.Size() == 0 {
		return fmt.Errorf("ffmpeg reported success but output %s is empty", path)
	}

	return nil
}
