package download

import (
	"errors"
	"fmt"
	"strings"
)

// The failure classes a download job can surface. Tier-level extraction
// failures never escape the fallback engine; only exhaustion of all
// tiers produces an ExtractionError. Secondary-artifact failures are
// recovered locally and logged, so they never appear here either.
var (
	ErrExtractionFailed = errors.New("extraction failed")
	ErrArtifactNotFound = errors.New("no usable artifact found")
	ErrZeroByteArtifact = errors.New("artifact file is empty")
	ErrTranscodeFailed  = errors.New("audio transcode failed")
	ErrUploadFailed     = errors.New("artifact upload failed")
)

// ExtractionError is returned when every fallback tier has been
// exhausted. Cause holds the innermost error (the tier 3 failure) and
// Attempts summarises what was tried.
type ExtractionError struct {
	Cause    error
	Attempts []string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed after %d attempts (%s): %v", len(e.Attempts), strings.Join(e.Attempts, "; "), e.Cause)
}

func (e *ExtractionError) Unwrap() error { return ErrExtractionFailed }

type ArtifactNotFoundError struct {
	Dir     string
	Listing []string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("no usable media artifact found in %s (directory contents: %v)", e.Dir, e.Listing)
}

func (e *ArtifactNotFoundError) Unwrap() error { return ErrArtifactNotFound }

type ZeroByteArtifactError struct {
	Path string
}

func (e *ZeroByteArtifactError) Error() string {
	return fmt.Sprintf("file %s exists but has zero size", e.Path)
}

func (e *ZeroByteArtifactError) Unwrap() error { return ErrZeroByteArtifact }

type TranscodeError struct {
	Source string
	Format string
	Cause  error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("failed to transcode %s to %s: %v", e.Source, e.Format, e.Cause)
}

func (e *TranscodeError) Unwrap() error { return ErrTranscodeFailed }

type UploadError struct {
	Path     string
	Attempts int
	Cause    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s after %d attempts: %v", e.Path, e.Attempts, e.Cause)
}

func (e *UploadError) Unwrap() error { return ErrUploadFailed }

// ExplainFailure maps known failure signatures to a more specific
// user-facing explanation. Unrecognised errors fall back to a generic
// message that still carries the underlying cause.
func ExplainFailure(err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "no such file or directory"), errors.Is(err, ErrArtifactNotFound):
		return fmt.Sprintf("The system could not locate the downloaded file. This may be due to an extraction failure or an unsupported media format. Error: %s", msg)
	case errors.Is(err, ErrZeroByteArtifact):
		return fmt.Sprintf("The downloaded file was empty and cannot be used. Error: %s", msg)
	case errors.Is(err, ErrTranscodeFailed), strings.Contains(lower, "conversion failed"):
		return fmt.Sprintf("Audio conversion failed and no usable fallback was produced. Error: %s", msg)
	case errors.Is(err, ErrUploadFailed):
		return fmt.Sprintf("The media was downloaded but could not be stored. Error: %s", msg)
	default:
		return fmt.Sprintf("Download failed: %s. Please check the URL and try again.", msg)
	}
}
