// Package pipeline sequences one deployment run: config validation,
// manifest discovery, registry validation, file-set resolution, archive
// build, upload, cleanup. Stages are strictly sequential with no branching
// back; every failure is terminal for the run.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkgship-dev/pkgship/internal/archive"
	"github.com/pkgship-dev/pkgship/internal/config"
	"github.com/pkgship-dev/pkgship/internal/credentials"
	pkgerrors "github.com/pkgship-dev/pkgship/internal/errors"
	"github.com/pkgship-dev/pkgship/internal/fileset"
	"github.com/pkgship-dev/pkgship/internal/manifest"
	"github.com/pkgship-dev/pkgship/internal/registry"
	"github.com/pkgship-dev/pkgship/internal/upload"
)

// Stage identifies where in the run an error occurred.
type Stage string

const (
	StageConfigLoad       Stage = "config-load"
	StageConfigValidate   Stage = "config-validate"
	StageManifestDiscover Stage = "manifest-discover"
	StageRegistryValidate Stage = "registry-validate"
	StageFileSetResolve   Stage = "fileset-resolve"
	StageArchiveBuild     Stage = "archive-build"
	StageUpload           Stage = "upload"
)

// StageError tags a failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func fail(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Options configure one deployment run.
type Options struct {
	// Root is the project directory.
	Root string

	// ConfigFile overrides the deployment config file name.
	ConfigFile string

	RegistryURL string
	UploadURL   string

	// DryRun stops after file-set resolution; nothing is archived or sent.
	DryRun bool

	// Verbose enables progress output.
	Verbose bool
}

// Result summarizes a completed (or dry) run.
type Result struct {
	PackageName    string
	PackageVersion string

	// Files is the resolved relative file listing (source projects) or the
	// artifact listing (build-artifact projects).
	Files []string

	// ArchivedCount is the number of entries written to the artifact.
	ArchivedCount int

	DeploymentURL string
	DeploymentID  string

	// Warnings collected along the way, in order.
	Warnings []string

	DryRun bool
}

// Run executes the full pipeline against opts.Root. The artifact file is
// removed on every exit path once the archive stage has started, success
// and failure alike.
func Run(ctx context.Context, opts Options) (*Result, error) {
	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = config.DefaultFileName
	}

	// ConfigLoad
	cfg, err := config.Parse(filepath.Join(opts.Root, configFile))
	if err != nil {
		return nil, fail(StageConfigLoad, err)
	}

	// ConfigValidate
	if err := cfg.Validate(); err != nil {
		return nil, fail(StageConfigValidate, err)
	}

	// ManifestDiscover
	info, err := manifest.Discover(opts.Root, cfg.PackageType == config.PackageTypeSource)
	if err != nil {
		return nil, fail(StageManifestDiscover, err)
	}

	res := &Result{
		PackageName:    info.Name,
		PackageVersion: info.Version,
		DryRun:         opts.DryRun,
	}
	if advisory := info.VersionAdvisory(); advisory != "" {
		res.Warnings = append(res.Warnings, advisory)
	}

	creds, err := credentials.Load(credentials.Locate(opts.Root))
	if err != nil {
		return res, fail(StageRegistryValidate, fmt.Errorf("%w: %v", pkgerrors.ErrRegistryUnavailable, err))
	}

	// RegistryValidate
	validation, err := registry.NewClient(opts.RegistryURL).
		ValidatePackage(ctx, info.Name, info.Version, creds.Token)
	if err != nil {
		return res, fail(StageRegistryValidate, err)
	}
	if !validation.CanPublish() {
		return res, fail(StageRegistryValidate,
			fmt.Errorf("%w: %s", pkgerrors.ErrPublishNotAllowed, strings.Join(validation.Messages, "; ")))
	}

	// FileSetResolve
	var (
		sourceSet   *fileset.FileSet
		artifactSet *fileset.ArtifactSet
	)
	if cfg.PackageType == config.PackageTypeSource {
		sourceSet = fileset.ResolveSource(info.FileName, info.DeclaredFiles, configFile, archive.ArtifactName)
		res.Warnings = append(res.Warnings, sourceSet.Warnings...)
		files, err := sourceSet.Expand(opts.Root)
		if err != nil {
			return res, fail(StageFileSetResolve, err)
		}
		res.Files = files
	} else {
		artifactSet, err = fileset.ResolveArtifacts(opts.Root, info.FileName)
		if err != nil {
			return res, fail(StageFileSetResolve, err)
		}
		res.Files = append([]string{artifactSet.MetadataFile}, artifactSet.Files...)
	}

	if opts.DryRun {
		return res, nil
	}

	// ArchiveBuild. From here on the artifact is cleaned up unconditionally.
	artifactPath := archive.Path(opts.Root)
	defer func() {
		_ = archive.Remove(artifactPath)
	}()

	var count int
	if sourceSet != nil {
		count, err = archive.BuildSource(opts.Root, artifactPath, sourceSet)
	} else {
		count, err = archive.BuildArtifacts(opts.Root, artifactPath, artifactSet)
	}
	if err != nil {
		return res, fail(StageArchiveBuild, err)
	}
	res.ArchivedCount = count

	// Upload
	client := upload.NewClient(opts.UploadURL)
	client.ShowProgress = opts.Verbose
	resp, err := client.Upload(ctx, &upload.Request{
		ArtifactPath:      artifactPath,
		PackageName:       info.Name,
		PackageVersion:    info.Version,
		EntryPoint:        info.EntryPoint,
		CredentialContent: creds.Content,
		Config:            cfg,
	})
	if err != nil {
		return res, fail(StageUpload, err)
	}

	res.DeploymentURL = resp.URL
	res.DeploymentID = resp.DeploymentID
	return res, nil
}
