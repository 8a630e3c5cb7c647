// Package pipeline runs one packaging job end to end: it resolves the
// recipe into a plan, fetches and verifies the CEF distribution, builds the
// wrapper library and lays out the package.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/cef-composer/internal/assembler"
	"github.com/open-edge-platform/cef-composer/internal/cmake"
	"github.com/open-edge-platform/cef-composer/internal/config"
	"github.com/open-edge-platform/cef-composer/internal/errdefs"
	"github.com/open-edge-platform/cef-composer/internal/fetcher"
	"github.com/open-edge-platform/cef-composer/internal/packager"
	"github.com/open-edge-platform/cef-composer/internal/platform"
	"github.com/open-edge-platform/cef-composer/internal/sysdeps"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/open-edge-platform/cef-composer/internal/utils/security"
	"github.com/open-edge-platform/cef-composer/internal/utils/shell"
)

// Downloader fetches the distribution archive and its companion files.
type Downloader interface {
	Download(ctx context.Context, url, destDir string) (string, error)
	FetchAll(ctx context.Context, urls []string, destDir string) ([]string, error)
}

// Extractor unpacks an archive into destDir/topDir.
type Extractor interface {
	Extract(archivePath, destDir, topDir string) (string, error)
}

// ExtractFunc adapts a function to the Extractor interface.
type ExtractFunc func(archivePath, destDir, topDir string) (string, error)

func (f ExtractFunc) Extract(archivePath, destDir, topDir string) (string, error) {
	return f(archivePath, destDir, topDir)
}

// Builder patches, configures and builds the wrapper library.
type Builder interface {
	Patch(sourceDir string, d platform.Descriptor) error
	Configure(ctx context.Context, sourceDir, buildDir, generator string, buildType platform.BuildType, cfg assembler.BuildConfig) error
	Build(ctx context.Context, buildDir string, buildType platform.BuildType, jobs int) error
}

// SystemInstaller installs the host packages the build links against.
type SystemInstaller interface {
	Install(ctx context.Context, d platform.Descriptor) error
}

// Pipeline holds the collaborators and directories shared by every run.
type Pipeline struct {
	Downloader Downloader
	Extractor  Extractor
	Builder    Builder
	Installer  SystemInstaller

	Host     platform.Descriptor // fills the target OS and arch a recipe leaves out
	CacheDir string              // downloaded archives
	WorkDir  string              // one workspace per distribution and build type
	TempDir  string              // signatures and checksum files
	Jobs     int                 // parallel build jobs, 0 lets cmake decide
}

// New returns a Pipeline wired to the real fetcher, cmake and apt installer,
// configured from gc. exec runs external commands; nil uses the host.
func New(gc *config.GlobalConfig, exec shell.Executor) (*Pipeline, error) {
	if gc == nil {
		gc = config.DefaultGlobalConfig()
	}
	host, err := platform.Host()
	if err != nil {
		return nil, err
	}
	cacheDir, err := filepath.Abs(gc.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("resolving cache directory: %w", err)
	}
	workDir, err := filepath.Abs(gc.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("resolving work directory: %w", err)
	}
	tempDir := gc.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &Pipeline{
		Downloader: fetcher.New(gc.Workers),
		Extractor:  ExtractFunc(fetcher.Extract),
		Builder:    cmake.New(exec),
		Installer:  sysdeps.New(exec),
		Host:       host,
		CacheDir:   cacheDir,
		WorkDir:    workDir,
		TempDir:    filepath.Join(tempDir, "cef-composer"),
		Jobs:       gc.Workers,
	}, nil
}

// Result describes a finished run.
type Result struct {
	Plan       *assembler.Plan
	PackageDir string
	Files      []string // package relative, sorted
	Descriptor string   // absolute path of cefinfo.json
	Warnings   []string
}

// Resolve computes the plan for recipe without touching the filesystem.
// Link flags refer to the absolute output directory.
func (p *Pipeline) Resolve(recipe *config.Recipe) (*assembler.Plan, error) {
	d, err := recipe.Descriptor(p.Host)
	if err != nil {
		return nil, err
	}
	a, err := assembler.New(assembler.Config{
		Version:    recipe.Source.Version,
		BaseURL:    recipe.Source.BaseURL,
		PackageDir: recipe.OutputDir(d),
	})
	if err != nil {
		return nil, err
	}
	return a.Plan(d, recipe.PlatformOptions())
}

// workspace returns the workspace directory of plan.
func (p *Pipeline) workspace(plan *assembler.Plan) string {
	name := plan.DistributionID + "-" + strings.ToLower(string(plan.Platform.BuildType))
	return filepath.Join(p.WorkDir, name)
}

// Run executes every step for recipe. System package failures are recorded
// as warnings; every other failure stops the run.
func (p *Pipeline) Run(ctx context.Context, recipe *config.Recipe) (*Result, error) {
	log := logger.Named("pipeline")

	draft, err := p.Resolve(recipe)
	if err != nil {
		log.Errorf("cannot plan recipe: %v", err)
		return nil, err
	}
	d := draft.Platform

	pkgDir, err := filepath.Abs(recipe.OutputDir(d))
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}
	wsDir := p.workspace(draft)

	// Replan with the workspace so CEF_ROOT is absolute.
	a, err := assembler.New(assembler.Config{
		Version:      draft.Version,
		BaseURL:      recipe.Source.BaseURL,
		WorkspaceDir: wsDir,
		PackageDir:   pkgDir,
	})
	if err != nil {
		return nil, err
	}
	plan, err := a.Plan(d, recipe.PlatformOptions())
	if err != nil {
		return nil, err
	}
	res := &Result{Plan: plan, PackageDir: pkgDir, Warnings: append([]string(nil), plan.Notes...)}
	for _, note := range plan.Notes {
		log.Warnf("%s", note)
	}
	log.Infof("packaging %s for %s into %s", plan.DistributionID, d, pkgDir)

	if recipe.InstallSystemDeps() && p.Installer != nil {
		if err := p.Installer.Install(ctx, d); err != nil {
			if !errdefs.IsWarning(err) {
				return nil, err
			}
			log.Warnf("continuing without all system packages: %v", err)
			res.Warnings = append(res.Warnings, err.Error())
		}
	}

	archive, err := p.Downloader.Download(ctx, plan.ArchiveURL, p.CacheDir)
	if err != nil {
		return nil, ensureKind(err, errdefs.ErrFetchFailed, "download", d).WithPath(plan.ArchiveURL)
	}
	if err := p.verify(ctx, recipe, archive, plan); err != nil {
		// A cached archive that fails verification must not be reused.
		if rmErr := os.Remove(archive); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warnf("failed to remove %s: %v", archive, rmErr)
		}
		return nil, err
	}

	if err := os.MkdirAll(wsDir, 0755); err != nil {
		return nil, errdefs.New(errdefs.ErrExtractFailed, "workspace", err).WithPath(wsDir)
	}
	if _, err := p.Extractor.Extract(archive, wsDir, assembler.SourceSubfolder); err != nil {
		return nil, ensureKind(err, errdefs.ErrExtractFailed, "extract", d).WithPath(archive)
	}

	if err := p.Builder.Patch(a.SourceDir(), d); err != nil {
		return nil, ensureKind(err, errdefs.ErrBuildFailed, "patch", d)
	}
	if err := p.Builder.Configure(ctx, a.SourceDir(), a.BuildDir(), plan.Generator, d.BuildType, plan.BuildConfig); err != nil {
		return nil, ensureKind(err, errdefs.ErrBuildFailed, "configure", d)
	}
	if err := p.Builder.Build(ctx, a.BuildDir(), d.BuildType, p.Jobs); err != nil {
		return nil, ensureKind(err, errdefs.ErrBuildFailed, "build", d)
	}

	pk, err := packager.New(wsDir, pkgDir)
	if err != nil {
		return nil, err
	}
	files, err := pk.Apply(plan.CopyManifest)
	if err != nil {
		return nil, ensureKind(err, errdefs.ErrMissingSourceArtifact, "copy", d)
	}
	if packager.HasPkgConfig(d.OS) {
		pc, err := pk.WritePkgConfig(plan.Version, plan.PackageInfo)
		if err != nil {
			return nil, err
		}
		files = append(files, pc)
	}

	desc, err := pk.Describe(plan, files)
	if err != nil {
		return nil, err
	}
	descPath, err := pk.WriteDescriptor(desc)
	if err != nil {
		return nil, err
	}
	res.Files = files
	res.Descriptor = descPath

	if !recipe.Package.KeepWorkspace {
		if err := p.removeWorkspace(wsDir); err != nil {
			log.Warnf("failed to clean workspace: %v", err)
			res.Warnings = append(res.Warnings, err.Error())
		}
	}

	log.Infof("package ready: %d files in %s", len(files), pkgDir)
	return res, nil
}

// verify checks the archive against a pinned sha1, the published .sha1
// file and a detached signature, as configured by the recipe. Companion
// files are removed when verification fails so the next run fetches them again.
func (p *Pipeline) verify(ctx context.Context, recipe *config.Recipe, archive string, plan *assembler.Plan) (err error) {
	log := logger.Named("pipeline")
	src := recipe.Source

	var paths []string
	defer func() {
		if err == nil {
			return
		}
		for _, path := range paths {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warnf("failed to remove %s: %v", path, rmErr)
			}
		}
	}()

	var companions []string
	checksumURL := ""
	if src.SHA1 == "" && src.VerifyChecksum {
		checksumURL = plan.ArchiveURL + ".sha1"
		companions = append(companions, checksumURL)
	}
	if src.SignatureURL != "" {
		companions = append(companions, src.SignatureURL)
	}

	if len(companions) > 0 {
		paths, err = p.Downloader.FetchAll(ctx, companions, p.TempDir)
		if err != nil {
			return ensureKind(err, errdefs.ErrFetchFailed, "fetch companions", plan.Platform)
		}
		if len(paths) != len(companions) {
			return errdefs.New(errdefs.ErrFetchFailed, "fetch companions",
				fmt.Errorf("expected %d files, got %d", len(companions), len(paths)))
		}
	}

	expected := src.SHA1
	if checksumURL != "" {
		data, err := security.SafeReadFile(paths[0], security.RejectSymlinks)
		if err != nil {
			return errdefs.New(errdefs.ErrFetchFailed, "verify checksum", err).WithPath(paths[0])
		}
		if expected, err = fetcher.ParseChecksumFile(data); err != nil {
			return ensureKind(err, errdefs.ErrFetchFailed, "verify checksum", plan.Platform).WithPath(checksumURL)
		}
	}
	if expected != "" {
		if err := fetcher.VerifyChecksum(archive, fetcher.SHA1, expected); err != nil {
			return ensureKind(err, errdefs.ErrFetchFailed, "verify checksum", plan.Platform)
		}
		log.Infof("sha1 verified for %s", filepath.Base(archive))
	}

	if src.SignatureURL != "" {
		sig := paths[len(paths)-1]
		key := recipe.ResolvePath(src.PublicKey)
		if err := fetcher.VerifySignature(archive, sig, key); err != nil {
			return ensureKind(err, errdefs.ErrFetchFailed, "verify signature", plan.Platform)
		}
		log.Infof("signature verified for %s", filepath.Base(archive))
	}
	return nil
}

func (p *Pipeline) removeWorkspace(wsDir string) error {
	ok, err := security.WithinDir(p.WorkDir, wsDir)
	if err != nil {
		return err
	}
	if !ok || filepath.Clean(wsDir) == filepath.Clean(p.WorkDir) {
		return fmt.Errorf("refusing to remove %s outside %s", wsDir, p.WorkDir)
	}
	logger.Named("pipeline").Debugf("removing workspace %s", wsDir)
	return os.RemoveAll(wsDir)
}

// ensureKind returns err as an *errdefs.Error of kind, keeping an existing
// error of that kind intact.
func ensureKind(err error, kind error, op string, d platform.Descriptor) *errdefs.Error {
	var e *errdefs.Error
	if errors.As(err, &e) && errors.Is(e, kind) {
		if e.Platform == "" {
			e.Platform = d.String()
		}
		return e
	}
	return errdefs.New(kind, op, err).WithPlatform(d.String())
}
