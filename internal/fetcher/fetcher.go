// Package fetcher downloads CEF binary distributions, verifies them and
// unpacks them into the workspace.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/open-edge-platform/cef-composer/internal/errdefs"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/open-edge-platform/cef-composer/internal/utils/network"
	"github.com/schollz/progressbar/v3"
)

// Fetcher downloads files over HTTP(S) into a destination directory.
type Fetcher struct {
	Client   *http.Client
	Workers  int
	Progress io.Writer // progress bar output, io.Discard to disable
}

// New returns a Fetcher using the hardened HTTP client.
func New(workers int) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	return &Fetcher{
		Client:   network.NewSecureHTTPClient(),
		Workers:  workers,
		Progress: os.Stderr,
	}
}

func (f *Fetcher) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

func (f *Fetcher) progress() io.Writer {
	if f.Progress == nil {
		return io.Discard
	}
	return f.Progress
}

func barTheme() progressbar.Theme {
	return progressbar.Theme{
		Saucer:        "[green]=[reset]",
		SaucerHead:    "[green]>[reset]",
		SaucerPadding: " ",
		BarStart:      "[",
		BarEnd:        "]",
	}
}

// FileName returns the local file name for rawURL, with percent escapes decoded.
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("url %q has no file name", rawURL)
	}
	return name, nil
}

// Download fetches rawURL into destDir and returns the local path. A non-empty
// file already present under the same name is reused.
func (f *Fetcher) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	log := logger.Named("fetcher")

	name, err := FileName(rawURL)
	if err != nil {
		return "", errdefs.New(errdefs.ErrFetchFailed, "download", err).WithPath(rawURL)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", errdefs.New(errdefs.ErrFetchFailed, "download", err).WithPath(destDir)
	}

	destPath := filepath.Join(destDir, name)
	if fi, err := os.Stat(destPath); err == nil {
		if fi.Size() > 0 {
			log.Infof("skipping existing %s", name)
			return destPath, nil
		}
		log.Warnf("re-downloading zero-size %s", name)
	}

	if err := f.fetch(ctx, rawURL, destPath, true); err != nil {
		return "", errdefs.New(errdefs.ErrFetchFailed, "download", err).WithPath(rawURL)
	}
	log.Infof("downloaded %s", destPath)
	return destPath, nil
}

// fetch streams rawURL into destPath through a temporary file so an
// interrupted transfer never leaves a partial archive under the final name.
func (f *Fetcher) fetch(ctx context.Context, rawURL, destPath string, showBytes bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	tmp := destPath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	var w io.Writer = out
	if showBytes {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(f.progress()),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionSpinnerType(10),
			progressbar.OptionSetDescription(filepath.Base(destPath)),
			progressbar.OptionSetTheme(barTheme()),
		)
		defer func() { _ = bar.Finish() }()
		w = io.MultiWriter(out, bar)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, destPath)
}

// FetchAll downloads urls into destDir using a pool of workers. It shows a
// single progress bar tracking files completed against the total. Paths are
// returned in the order of urls; every failure is reported in the joined error.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, destDir string) ([]string, error) {
	log := logger.Named("fetcher")

	total := len(urls)
	if total == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, errdefs.New(errdefs.ErrFetchFailed, "fetch", err).WithPath(destDir)
	}

	type job struct {
		idx int
		url string
	}
	jobs := make(chan job, total)
	paths := make([]string, total)
	errs := make([]error, total)
	var wg sync.WaitGroup

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(f.progress()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionSpinnerType(10),
		progressbar.OptionSetTheme(barTheme()),
	)

	workers := f.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				name, err := FileName(j.url)
				if err != nil {
					errs[j.idx] = err
					_ = bar.Add(1)
					continue
				}
				bar.Describe(name)

				destPath := filepath.Join(destDir, name)
				if fi, err := os.Stat(destPath); err == nil && fi.Size() > 0 {
					log.Debugf("skipping existing %s", name)
					paths[j.idx] = destPath
					_ = bar.Add(1)
					continue
				}

				if err := ctx.Err(); err != nil {
					errs[j.idx] = err
				} else if err := f.fetch(ctx, j.url, destPath, false); err != nil {
					log.Errorf("downloading %s failed: %v", j.url, err)
					errs[j.idx] = fmt.Errorf("%s: %w", j.url, err)
				} else {
					paths[j.idx] = destPath
				}
				if err := bar.Add(1); err != nil {
					log.Debugf("failed to add to progress bar: %v", err)
				}
			}
		}()
	}

	for i, u := range urls {
		jobs <- job{idx: i, url: u}
	}
	close(jobs)

	wg.Wait()
	if err := bar.Finish(); err != nil {
		log.Debugf("failed to finish progress bar: %v", err)
	}

	if err := errors.Join(errs...); err != nil {
		return paths, errdefs.New(errdefs.ErrFetchFailed, "fetch", err).WithPath(destDir)
	}
	return paths, nil
}
