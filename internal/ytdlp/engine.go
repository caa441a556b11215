package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/snagd/snagd/pkg/logger"
)

var log = logger.Get("YtDlp")

// Result is what a successful engine invocation yields: the info
// document plus every file path the engine reported producing.
type Result struct {
	Info  *MediaInfo
	Files []string
}

// Engine invokes the external extraction binary. It satisfies the
// download pipelines Extractor interface.
type Engine struct {
	binPath string
}

func New(binPath string) *Engine {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Engine{binPath: binPath}
}

// Extract runs the engine with the full declarative option set. The
// engine reports the info document and produced file paths on stdout;
// both are parsed out of the stream by ScanOutput.
func (engine *Engine) Extract(ctx context.Context, opts OptionSet) (*Result, error) {
	args := BuildArgs(opts)
	log.Debugf("Invoking %s with args: %v\n", engine.binPath, args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, engine.binPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	info, files := ScanOutput(&stdout, opts.WorkDir)
	if runErr != nil {
		return nil, fmt.Errorf("engine invocation failed: %w | %s", runErr, tail(stderr.String()))
	}
	if info == nil {
		return nil, fmt.Errorf("engine reported no info document | %s", tail(stderr.String()))
	}

	return &Result{Info: info, Files: files}, nil
}

// ExtractBare is the last-resort invocation: a hard-coded "best"
// selector and fixed output naming, bypassing all structured options.
// Returns the path of the produced file if one exists and is non-empty.
func (engine *Engine) ExtractBare(ctx context.Context, mediaURL string, dir string) (string, error) {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"-f", "best",
		"-o", filepath.Join(dir, "best.%(ext)s"),
		mediaURL,
	}

	cmd := exec.CommandContext(ctx, engine.binPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("bare engine invocation failed: %w | %s", err, tail(string(out)))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "best.") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if stat, err := os.Stat(path); err == nil && stat.Size() > 0 {
			return path, nil
		}
	}

	return "", fmt.Errorf("bare engine invocation produced no usable file in %s", dir)
}

// ScanOutput splits the engines stdout stream into the info document
// and the reported file paths. Lines opening a JSON object are decoded
// as info documents (the last one wins); lines naming a path under the
// working directory are produced-file reports. Everything else is
// progress noise and dropped.
func ScanOutput(r *bytes.Buffer, workDir string) (*MediaInfo, []string) {
	var info *MediaInfo
	files := make([]string, 0)
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "{") {
			var raw map[string]any
			if err := json.Unmarshal([]byte(line), &raw); err != nil {
				log.Warnf("Discarding malformed info document line: %v\n", err)
				continue
			}

			decoded, err := DecodeInfo(raw)
			if err != nil {
				log.Warnf("Discarding undecodable info document: %v\n", err)
				continue
			}
			info = decoded
			continue
		}

		if workDir != "" && strings.HasPrefix(line, workDir+string(os.PathSeparator)) && !seen[line] {
			seen[line] = true
			files = append(files, line)
		}
	}

	return info, files
}

// tail trims engine output down to its final line, which is where the
// actionable error message lives.
func tail(out string) string {
	out = strings.TrimSpace(out)
	if idx := strings.LastIndex(out, "\n"); idx >= 0 {
		return strings.TrimSpace(out[idx+1:])
	}
	return out
}
