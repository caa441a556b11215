package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/snagd/snagd/internal/ffmpeg"
	"github.com/snagd/snagd/internal/ytdlp"
	"github.com/snagd/snagd/pkg/logger"
)

var log = logger.Get("Pipeline")

type (
	// Extractor is the extraction engine collaborator. Extract runs the
	// structured invocation (tiers one and two differ only in their
	// option sets); ExtractBare is the last-resort raw invocation.
	Extractor interface {
		Extract(ctx context.Context, opts ytdlp.OptionSet) (*ytdlp.Result, error)
		ExtractBare(ctx context.Context, mediaURL string, dir string) (string, error)
	}

	Prober interface {
		Probe(path string) (*ffmpeg.ProbeResult, error)
	}

	Remuxer interface {
		Remux(ctx context.Context, videoPath string, audioPath string, outputPath string) error
	}

	Transcoder interface {
		TranscodeAudio(ctx context.Context, inputPath string, outputPath string, format string, bitrate string) error
	}

	// Store is the object storage collaborator: synchronous, may fail.
	Store interface {
		Upload(ctx context.Context, localPath string) (string, error)
	}

	Fetcher interface {
		Fetch(ctx context.Context, url string, destDir string) (string, error)
	}

	// Pipeline drives a single download job from format resolution
	// through upload. One job runs entirely within one call to Run; the
	// only internal concurrency is the thumbnail fetch loop.
	Pipeline struct {
		resolver   *Resolver
		extractor  Extractor
		prober     Prober
		remuxer    Remuxer
		transcoder Transcoder
		store      Store
		fetcher    Fetcher

		workRoot    string
		uploadRetry time.Duration
	}
)

func NewPipeline(resolver *Resolver, extractor Extractor, prober Prober, remuxer Remuxer, transcoder Transcoder, store Store, fetcher Fetcher, workRoot string) *Pipeline {
	return &Pipeline{
		resolver:    resolver,
		extractor:   extractor,
		prober:      prober,
		remuxer:     remuxer,
		transcoder:  transcoder,
		store:       store,
		fetcher:     fetcher,
		workRoot:    workRoot,
		uploadRetry: 2 * time.Second,
	}
}

// Run executes the full pipeline for one request. The working
// directory is released on every exit path.
func (pipeline *Pipeline) Run(ctx context.Context, jobID uuid.UUID, req *Request) (*ResponseRecord, error) {
	workDir, err := AcquireWorkDir(pipeline.workRoot, jobID)
	if err != nil {
		return nil, err
	}
	defer workDir.Release()

	opts := pipeline.resolver.Resolve(req, workDir.Path)
	log.Infof("Job %s: resolved selector %q (audio-only=%v) for %s\n", jobID, opts.Selector, opts.AudioOnly, req.MediaURL)

	result, err := pipeline.extract(ctx, req, opts, workDir)
	if err != nil {
		return nil, err
	}

	final, err := pipeline.discover(result, opts, req, workDir)
	if err != nil {
		return nil, err
	}

	videoRequired := !req.AudioOnly()
	if videoRequired && final.Video != nil && req.Audio.Extract {
		pipeline.repairVideo(ctx, jobID, &final, workDir)
	} else if videoRequired && final.Video != nil {
		// Even without audio extraction the video should carry audio;
		// a mismatch here is only logged, never fatal.
		pipeline.verifyVideoAudio(jobID, final.Video)
	}

	var (
		audioArtifact *ArtifactCandidate
		actualFormat  string
	)
	if req.Audio.Extract {
		audioArtifact, actualFormat, err = pipeline.ensureAudio(ctx, jobID, req, final, workDir)
		if err != nil {
			if !videoRequired {
				// Audio was the sole requested artifact.
				return nil, err
			}
			log.Warnf("Job %s: audio transcode failed, proceeding video-only: %v\n", jobID, err)
			audioArtifact = nil
		}
	}

	var videoUpload, audioUpload *UploadResult
	if final.Video != nil {
		videoUpload, err = pipeline.upload(ctx, jobID, final.Video, videoRequired)
		if err != nil {
			return nil, err
		}
	}

	if audioArtifact != nil {
		audioUpload, err = pipeline.upload(ctx, jobID, audioArtifact, !videoRequired)
		if err != nil {
			return nil, err
		}
	}

	thumbnails := pipeline.fetchThumbnails(ctx, jobID, req, result.Info, final, workDir)

	return assembleResponse(result.Info, videoUpload, audioUpload, actualFormat, req.Audio.EffectiveQuality(), thumbnails), nil
}

// extract drives the tiered fallback: each tier runs at most once, and
// a tier failure is recovered locally by advancing to the next.
func (pipeline *Pipeline) extract(ctx context.Context, req *Request, opts ytdlp.OptionSet, workDir *WorkDir) (*ytdlp.Result, error) {
	attempts := make([]string, 0, 3)

	result, err := pipeline.extractor.Extract(ctx, opts)
	if err == nil {
		return result, nil
	}
	attempts = append(attempts, fmt.Sprintf("tier 1 (full options): %v", err))
	log.Warnf("Primary extraction failed, falling back: %v\n", err)

	minimal := ytdlp.OptionSet{
		URL:            req.MediaURL,
		WorkDir:        workDir.Path,
		Selector:       "b",
		OutputTemplate: "media.%(ext)s",
	}
	if req.Audio.Extract {
		minimal.ExtractAudio = true
		minimal.AudioFormat = req.Audio.EffectiveFormat()
		minimal.AudioQuality = req.Audio.EffectiveQuality()
		minimal.KeepVideo = !req.AudioOnly()
	}

	result, err = pipeline.extractor.Extract(ctx, minimal)
	if err == nil {
		return result, nil
	}
	attempts = append(attempts, fmt.Sprintf("tier 2 (minimal options): %v", err))
	log.Warnf("Fallback extraction failed, attempting last resort: %v\n", err)

	path, err := pipeline.extractor.ExtractBare(ctx, req.MediaURL, workDir.Path)
	if err == nil {
		// Rich metadata may be unavailable at this tier; synthesize the
		// minimum from the URL and produced file.
		return &ytdlp.Result{
			Info:  ytdlp.SynthesizeInfo(req.MediaURL, path),
			Files: []string{path},
		}, nil
	}
	attempts = append(attempts, fmt.Sprintf("tier 3 (bare invocation): %v", err))

	return nil, &ExtractionError{Cause: err, Attempts: attempts}
}

// discover classifies the attempts output and selects the final
// artifacts. The engine-reported paths are authoritative; the directory
// listing is the cross-check used when nothing was reported.
func (pipeline *Pipeline) discover(result *ytdlp.Result, opts ytdlp.OptionSet, req *Request, workDir *WorkDir) (FinalArtifacts, error) {
	names := make([]string, 0, len(result.Files))
	for _, reported := range result.Files {
		if _, err := os.Stat(reported); err == nil {
			names = append(names, filepath.Base(reported))
		}
	}

	if len(names) == 0 {
		listing, err := workDir.List()
		if err != nil {
			return FinalArtifacts{}, err
		}
		names = listing
	}

	audioFormat := ""
	if req.Audio.Extract {
		audioFormat = req.Audio.EffectiveFormat()
	}

	candidates := DiscoverArtifacts(workDir.Path, names)
	final := SelectArtifacts(candidates, opts.MergeFormat, audioFormat)

	if final.Empty() {
		return FinalArtifacts{}, &ArtifactNotFoundError{Dir: workDir.Path, Listing: names}
	}
	if !req.AudioOnly() && final.Video == nil {
		return FinalArtifacts{}, &ArtifactNotFoundError{Dir: workDir.Path, Listing: names}
	}

	if final.Video != nil && final.Video.Size == 0 {
		return FinalArtifacts{}, &ZeroByteArtifactError{Path: final.Video.Path}
	}
	if final.Video == nil && final.Audio != nil && final.Audio.Size == 0 {
		return FinalArtifacts{}, &ZeroByteArtifactError{Path: final.Audio.Path}
	}

	return final, nil
}

// repairVideo guarantees the selected video artifact carries an audio
// stream before upload. If it does not and an audio-only candidate is
// available, the video stream is copied unmodified into a new container
// with the audio encoded in; the original video-only file is superseded.
// With no audio candidate available the video ships as-is and the
// mismatch is only logged: video delivery takes priority over audio
// completeness.
func (pipeline *Pipeline) repairVideo(ctx context.Context, jobID uuid.UUID, final *FinalArtifacts, workDir *WorkDir) {
	probe, err := pipeline.prober.Probe(final.Video.Path)
	if err != nil {
		log.Warnf("Job %s: failed to probe video artifact %s, skipping integrity repair: %v\n", jobID, final.Video.Path, err)
		return
	}
	if probe.HasAudio {
		return
	}

	if final.Audio == nil {
		log.Warnf("Job %s: video artifact %s has no audio stream and no audio candidate exists to repair it\n", jobID, final.Video.Path)
		return
	}

	repaired := filepath.Join(workDir.Path, "repaired."+final.Video.Ext)
	if err := pipeline.remuxer.Remux(ctx, final.Video.Path, final.Audio.Path, repaired); err != nil {
		log.Warnf("Job %s: remux of %s failed, uploading original video: %v\n", jobID, final.Video.Path, err)
		return
	}

	var size int64
	if stat, err := os.Stat(repaired); err == nil {
		size = stat.Size()
	}

	log.Emit(logger.SUCCESS, "Job %s: remuxed audio stream into video artifact (%s)\n", jobID, repaired)
	final.Video = &ArtifactCandidate{Path: repaired, Role: RoleVideo, Ext: final.Video.Ext, Size: size}
}

func (pipeline *Pipeline) verifyVideoAudio(jobID uuid.UUID, video *ArtifactCandidate) {
	probe, err := pipeline.prober.Probe(video.Path)
	if err != nil {
		log.Warnf("Job %s: failed to probe video artifact %s: %v\n", jobID, video.Path, err)
		return
	}
	if !probe.HasAudio {
		log.Warnf("Job %s: video artifact %s carries no audio stream\n", jobID, video.Path)
	}
}

// ensureAudio guarantees the final audio artifact matches the requested
// format exactly, transcoding when necessary. Returns the artifact and
// its ACTUAL format. A transcode failure is recoverable when an audio
// candidate in another format already exists.
func (pipeline *Pipeline) ensureAudio(ctx context.Context, jobID uuid.UUID, req *Request, final FinalArtifacts, workDir *WorkDir) (*ArtifactCandidate, string, error) {
	want := req.Audio.EffectiveFormat()

	if final.Audio != nil && final.Audio.Ext == want {
		return final.Audio, want, nil
	}

	// Largest available source stands in for "highest quality"; stream
	// metadata is not reliably available for every encoding.
	var source *ArtifactCandidate
	if final.Audio != nil {
		source = final.Audio
	}
	if final.Video != nil && (source == nil || final.Video.Size > source.Size) {
		source = final.Video
	}

	if source == nil {
		return nil, "", &TranscodeError{Source: "(none)", Format: want, Cause: ErrArtifactNotFound}
	}

	output := filepath.Join(workDir.Path, "audio."+want)
	if err := pipeline.transcoder.TranscodeAudio(ctx, source.Path, output, want, req.Audio.EffectiveQuality()); err != nil {
		if final.Audio != nil {
			log.Warnf("Job %s: transcode to %s failed, falling back to existing %s artifact: %v\n", jobID, want, final.Audio.Ext, err)
			return final.Audio, final.Audio.Ext, nil
		}

		return nil, "", &TranscodeError{Source: source.Path, Format: want, Cause: err}
	}

	var size int64
	if stat, err := os.Stat(output); err == nil {
		size = stat.Size()
	}

	return &ArtifactCandidate{Path: output, Role: RoleAudio, Ext: want, Size: size}, want, nil
}

// upload stores one finalized artifact, with exactly one retry after a
// short wait. The local file is deleted only after its own confirmed
// upload; a failed-and-abandoned artifact is left for the WorkDir
// cleanup. Failure of a mandatory artifact fails the job.
func (pipeline *Pipeline) upload(ctx context.Context, jobID uuid.UUID, artifact *ArtifactCandidate, mandatory bool) (*UploadResult, error) {
	remoteURL, err := pipeline.store.Upload(ctx, artifact.Path)
	if err != nil {
		log.Warnf("Job %s: upload of %s failed, retrying once: %v\n", jobID, artifact.Path, err)
		select {
		case <-time.After(pipeline.uploadRetry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		remoteURL, err = pipeline.store.Upload(ctx, artifact.Path)
	}

	if err != nil {
		if mandatory {
			return nil, &UploadError{Path: artifact.Path, Attempts: 2, Cause: err}
		}

		log.Warnf("Job %s: abandoning secondary %s artifact after failed retry: %v\n", jobID, artifact.Role, err)
		return nil, nil
	}

	if removeErr := os.Remove(artifact.Path); removeErr != nil {
		log.Verbosef("Job %s: failed to remove uploaded artifact %s: %v\n", jobID, artifact.Path, removeErr)
	}

	log.Emit(logger.SUCCESS, "Job %s: uploaded %s artifact to %s\n", jobID, artifact.Role, remoteURL)
	return &UploadResult{Role: artifact.Role, RemoteURL: remoteURL}, nil
}

// fetchThumbnails uploads any thumbnails the engine wrote locally and,
// when requested, downloads the remote ones it reported. Thumbnails are
// processed concurrently; a single failure is skipped and never fails
// the job.
func (pipeline *Pipeline) fetchThumbnails(ctx context.Context, jobID uuid.UUID, req *Request, info *ytdlp.MediaInfo, final FinalArtifacts, workDir *WorkDir) []ThumbnailRecord {
	if !req.Thumbnails.Download {
		return nil
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		records []ThumbnailRecord
	)

	appendRecord := func(record ThumbnailRecord) {
		mu.Lock()
		defer mu.Unlock()
		records = append(records, record)
	}

	// Thumbnails the engine already wrote into the working directory.
	for _, local := range final.Thumbnails {
		wg.Add(1)
		go func(local ArtifactCandidate) {
			defer wg.Done()

			result, err := pipeline.upload(ctx, jobID, &local, false)
			if err != nil || result == nil {
				log.Warnf("Job %s: skipping thumbnail %s: %v\n", jobID, local.Path, err)
				return
			}

			id := filepath.Base(local.Path)
			appendRecord(ThumbnailRecord{
				ID:             id[:len(id)-len(filepath.Ext(id))],
				ImageURL:       result.RemoteURL,
				OriginalFormat: local.Ext,
				Converted:      req.Thumbnails.Convert,
			})
		}(local)
	}

	// Remote thumbnails reported by the engine metadata.
	if info != nil {
		for _, thumb := range info.Thumbnails {
			if thumb.URL == "" {
				continue
			}

			wg.Add(1)
			go func(thumb ytdlp.ThumbnailInfo) {
				defer wg.Done()

				local, err := pipeline.fetcher.Fetch(ctx, thumb.URL, workDir.Path)
				if err != nil {
					log.Warnf("Job %s: skipping thumbnail %s: %v\n", jobID, thumb.URL, err)
					return
				}

				candidate := ArtifactCandidate{Path: local, Role: RoleThumbnail, Ext: thumb.Ext}
				result, err := pipeline.upload(ctx, jobID, &candidate, false)
				if err != nil || result == nil {
					log.Warnf("Job %s: skipping thumbnail %s: %v\n", jobID, thumb.URL, err)
					return
				}

				id := thumb.ID
				if id == "" {
					id = "default"
				}
				appendRecord(ThumbnailRecord{
					ID:             id,
					ImageURL:       result.RemoteURL,
					Width:          thumb.Width,
					Height:         thumb.Height,
					OriginalFormat: thumb.Ext,
					Converted:      req.Thumbnails.Convert,
				})
			}(thumb)
		}
	}

	wg.Wait()
	return records
}
