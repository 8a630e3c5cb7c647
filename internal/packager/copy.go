// Package packager executes copy manifests against the workspace and writes
// the package metadata files.
package packager

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/open-edge-platform/cef-composer/internal/assembler"
	"github.com/open-edge-platform/cef-composer/internal/errdefs"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
)

// Packager copies build outputs from WorkspaceDir into PackageDir.
type Packager struct {
	WorkspaceDir string
	PackageDir   string
}

// New returns a Packager for the given workspace and package directories.
func New(workspaceDir, packageDir string) (*Packager, error) {
	ws, err := filepath.Abs(workspaceDir)
	if err != nil {
		return nil, err
	}
	pkg, err := filepath.Abs(packageDir)
	if err != nil {
		return nil, err
	}
	return &Packager{WorkspaceDir: ws, PackageDir: pkg}, nil
}

// MatchPattern compiles a shell-style pattern into an anchored regular
// expression. "*" and "?" also match path separators.
func MatchPattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				b.WriteString(`\[`)
				continue
			}
			class := strings.ReplaceAll(pattern[i+1:j], `\`, `\\`)
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			} else if strings.HasPrefix(class, "^") {
				class = `\` + class
			}
			b.WriteString("[" + class + "]")
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

type candidate struct {
	abs  string // path on disk
	rel  string // slash separated, relative to the rule source
	link bool   // entry is a symlink kept as such
}

// Apply executes rules in order and returns the package relative paths that
// were written, sorted. Later rules overwrite files placed by earlier ones.
func (p *Packager) Apply(rules []assembler.CopyRule) ([]string, error) {
	log := logger.Named("packager")

	written := make(map[string]struct{})
	for _, rule := range rules {
		re, err := MatchPattern(rule.Pattern)
		if err != nil {
			return nil, errdefs.New(errdefs.ErrMissingSourceArtifact, "copy", fmt.Errorf("invalid pattern: %w", err)).WithPath(rule.Pattern)
		}
		srcRoot := filepath.Join(p.WorkspaceDir, filepath.FromSlash(rule.Src))

		matches, err := p.collect(srcRoot, re, rule.Symlinks)
		if err != nil && !os.IsNotExist(err) {
			return nil, errdefs.New(errdefs.ErrMissingSourceArtifact, "copy", err).WithPath(path.Join(rule.Src, rule.Pattern))
		}
		if len(matches) == 0 {
			if rule.Optional {
				log.Debugf("optional pattern %q matched nothing in %q", rule.Pattern, rule.Src)
				continue
			}
			return nil, errdefs.New(errdefs.ErrMissingSourceArtifact, "copy",
				fmt.Errorf("pattern %q matched no files", rule.Pattern)).WithPath(srcRoot)
		}

		for _, m := range matches {
			dstRel := path.Base(m.rel)
			if rule.KeepPath {
				dstRel = m.rel
			}
			dstRel = path.Join(rule.Dst, dstRel)
			dst := filepath.Join(p.PackageDir, filepath.FromSlash(dstRel))
			if err := place(m, dst); err != nil {
				return nil, errdefs.New(errdefs.ErrMissingSourceArtifact, "copy", err).WithPath(m.abs)
			}
			written[dstRel] = struct{}{}
		}
		log.Debugf("copied %d files for %q", len(matches), path.Join(rule.Src, rule.Pattern))
	}

	out := make([]string, 0, len(written))
	for rel := range written {
		out = append(out, rel)
	}
	sort.Strings(out)
	log.Infof("packaged %d files into %s", len(out), p.PackageDir)
	return out, nil
}

// collect walks root and returns the entries whose relative path matches re.
// Symlinks are returned as links when keepLinks is set, otherwise they are
// followed. The package directory is never descended into.
func (p *Packager) collect(root string, re *regexp.Regexp, keepLinks bool) ([]candidate, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}
	var out []candidate
	visited := make(map[string]bool)
	var walk func(dir, rel string) error
	walk = func(dir, rel string) error {
		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return err
		}
		if visited[resolved] {
			return nil
		}
		visited[resolved] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			abs := filepath.Join(dir, e.Name())
			if abs == p.PackageDir {
				continue
			}
			entryRel := path.Join(rel, e.Name())

			if e.Type()&os.ModeSymlink != 0 {
				if keepLinks {
					if re.MatchString(entryRel) {
						out = append(out, candidate{abs: abs, rel: entryRel, link: true})
					}
					continue
				}
				fi, err := os.Stat(abs)
				if err != nil {
					// Dangling links have nothing to follow.
					continue
				}
				if fi.IsDir() {
					if err := walk(abs, entryRel); err != nil {
						return err
					}
				} else if re.MatchString(entryRel) {
					out = append(out, candidate{abs: abs, rel: entryRel})
				}
				continue
			}

			if e.IsDir() {
				if err := walk(abs, entryRel); err != nil {
					return err
				}
				continue
			}
			if re.MatchString(entryRel) {
				out = append(out, candidate{abs: abs, rel: entryRel})
			}
		}
		return nil
	}
	if err := walk(root, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func place(c candidate, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if fi, err := os.Lstat(dst); err == nil {
		if fi.IsDir() && fi.Mode()&os.ModeSymlink == 0 {
			return fmt.Errorf("destination %s is a directory", dst)
		}
		if err := os.Remove(dst); err != nil {
			return err
		}
	}

	if c.link {
		target, err := os.Readlink(c.abs)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	}
	return copyFile(c.abs, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, fi.ModTime(), fi.ModTime())
}
