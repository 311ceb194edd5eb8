package errors

import "errors"

// Sentinel errors for the deployment pipeline. Every fatal condition wraps
// exactly one of these so callers can classify failures with errors.Is.
var (
	// ErrConfigInvalid indicates a missing or malformed deployment config.
	ErrConfigInvalid = errors.New("invalid deployment config")

	// ErrManifestMissing indicates the project manifest file does not exist.
	ErrManifestMissing = errors.New("manifest not found")

	// ErrManifestInvalid indicates the manifest exists but fails validation.
	ErrManifestInvalid = errors.New("invalid manifest")

	// ErrRegistryUnavailable indicates the registry could not be queried.
	ErrRegistryUnavailable = errors.New("registry unavailable")

	// ErrPublishNotAllowed indicates registry validation rejected the publish.
	ErrPublishNotAllowed = errors.New("publish not allowed")

	// ErrNoArtifactsFound indicates the build output directory holds no
	// deployable artifacts.
	ErrNoArtifactsFound = errors.New("no build artifacts found")

	// ErrMissingArtifact indicates a previously resolved artifact file
	// disappeared before it could be archived.
	ErrMissingArtifact = errors.New("artifact file missing")

	// ErrArchiveBuildFailed indicates an I/O failure while writing the archive.
	ErrArchiveBuildFailed = errors.New("archive build failed")

	// ErrUploadFailed indicates the deployment upload did not succeed.
	ErrUploadFailed = errors.New("upload failed")
)

// Controlled reports whether err is an expected validation outcome rather
// than an unexpected I/O or network fault. Controlled failures get a clean
// single-line message; everything else surfaces its cause chain.
func Controlled(err error) bool {
	switch {
	case errors.Is(err, ErrConfigInvalid),
		errors.Is(err, ErrManifestMissing),
		errors.Is(err, ErrManifestInvalid),
		errors.Is(err, ErrPublishNotAllowed),
		errors.Is(err, ErrNoArtifactsFound):
		return true
	}
	return false
}
