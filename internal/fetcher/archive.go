package fetcher

import (
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/open-edge-platform/cef-composer/internal/errdefs"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/open-edge-platform/cef-composer/internal/utils/security"
	"github.com/ulikunitz/xz"
)

// Compression identifies the compression applied to a tarball.
type Compression string

const (
	Bzip2 Compression = "bzip2"
	Xz    Compression = "xz"
	Gzip  Compression = "gzip"
	Zstd  Compression = "zstd"
)

// DetectCompression derives the compression from the archive file name.
func DetectCompression(name string) (Compression, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return Bzip2, nil
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return Xz, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return Gzip, nil
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return Zstd, nil
	default:
		return "", fmt.Errorf("unsupported archive format: %s", filepath.Base(name))
	}
}

// decompressor wraps r with the decoder for c. The returned closer releases
// decoder resources and does not close r.
func decompressor(c Compression, r io.Reader) (io.Reader, func(), error) {
	noop := func() {}
	switch c {
	case Bzip2:
		return bzip2.NewReader(r), noop, nil
	case Xz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, noop, nil
	case Gzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gr, func() { gr.Close() }, nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression %q", c)
	}
}

// Extract unpacks archivePath into destDir. When topDir is not empty the
// archive must contain a single top-level directory, which is renamed to
// destDir/topDir replacing any previous content. It returns the directory
// holding the extracted distribution.
func Extract(archivePath, destDir, topDir string) (string, error) {
	log := logger.Named("fetcher")

	fail := func(err error) (string, error) {
		return "", errdefs.New(errdefs.ErrExtractFailed, "extract", err).WithPath(archivePath)
	}

	comp, err := DetectCompression(archivePath)
	if err != nil {
		return fail(err)
	}
	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(absDest, 0755); err != nil {
		return fail(err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	r, closeFn, err := decompressor(comp, f)
	if err != nil {
		return fail(fmt.Errorf("failed to open %s stream: %w", comp, err))
	}
	defer closeFn()

	log.Infof("extracting %s into %s", filepath.Base(archivePath), absDest)
	tops, err := untar(tar.NewReader(r), absDest)
	if err != nil {
		return fail(err)
	}

	if topDir == "" {
		return absDest, nil
	}
	if len(tops) != 1 {
		return fail(fmt.Errorf("expected a single top-level directory, found %d", len(tops)))
	}
	var top string
	for name := range tops {
		top = name
	}

	extracted := filepath.Join(absDest, top)
	if fi, err := os.Stat(extracted); err != nil || !fi.IsDir() {
		return fail(fmt.Errorf("top-level entry %q is not a directory", top))
	}
	target := filepath.Join(absDest, topDir)
	if top == topDir {
		return target, nil
	}
	if err := os.RemoveAll(target); err != nil {
		return fail(err)
	}
	if err := os.Rename(extracted, target); err != nil {
		return fail(err)
	}
	log.Debugf("renamed %s to %s", top, topDir)
	return target, nil
}

// untar writes every entry of tr below destDir and returns the set of
// top-level names encountered.
func untar(tr *tar.Reader, destDir string) (map[string]struct{}, error) {
	tops := make(map[string]struct{})
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return tops, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar stream: %w", err)
		}

		name := filepath.FromSlash(strings.TrimPrefix(hdr.Name, "./"))
		if name == "" || name == "." {
			continue
		}
		target := filepath.Join(destDir, name)
		ok, err := security.WithinDir(destDir, target)
		if err != nil {
			return nil, err
		}
		if !ok || filepath.IsAbs(hdr.Name) {
			return nil, fmt.Errorf("entry %q escapes the destination", hdr.Name)
		}
		mode := hdr.FileInfo().Mode().Perm()
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, mode|0700); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, mode); err != nil {
				return nil, fmt.Errorf("writing %s: %w", hdr.Name, err)
			}
		case tar.TypeSymlink:
			if err := linkEntry(destDir, target, hdr.Linkname); err != nil {
				return nil, fmt.Errorf("linking %s: %w", hdr.Name, err)
			}
		case tar.TypeLink:
			src := filepath.Join(destDir, filepath.FromSlash(hdr.Linkname))
			if ok, err := security.WithinDir(destDir, src); err != nil || !ok {
				return nil, fmt.Errorf("hard link %q escapes the destination", hdr.Name)
			}
			if err := replace(target); err != nil {
				return nil, err
			}
			if err := os.Link(src, target); err != nil {
				return nil, err
			}
		default:
			// Device nodes, fifos and global headers have no place in a binary distribution.
			continue
		}

		rel, _ := filepath.Rel(destDir, target)
		tops[strings.SplitN(rel, string(filepath.Separator), 2)[0]] = struct{}{}
	}
}

func replace(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeEntry(r io.Reader, target string, mode os.FileMode) error {
	if err := replace(target); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(target, mode)
}

// linkEntry recreates a symlink whose target must resolve inside destDir.
func linkEntry(destDir, target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("absolute symlink target %q", linkname)
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	ok, err := security.WithinDir(destDir, resolved)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("symlink target %q escapes the destination", linkname)
	}
	if err := replace(target); err != nil {
		return err
	}
	return os.Symlink(linkname, target)
}
