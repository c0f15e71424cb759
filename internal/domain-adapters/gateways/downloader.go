package gateways

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/domain/interfaces/gateways"
)

// maxEntrySize bounds a single extracted file (decompression bombs)
const maxEntrySize = 1 << 30

// Downloader fetches recipe sources: archives over HTTP or git tags
type Downloader struct {
	httpClient *http.Client
	verifier   gateways.SourceVerifier
	logger     interfaces.Logger
}

// NewDownloader creates a new downloader that checks archives with verifier
func NewDownloader(verifier gateways.SourceVerifier, logger interfaces.Logger) *Downloader {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Downloader{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // Long timeout for large downloads
		},
		verifier: verifier,
		logger:   logger,
	}
}

// WithHTTPClient replaces the HTTP client (used by tests)
func (d *Downloader) WithHTTPClient(c *http.Client) *Downloader {
	d.httpClient = c
	return d
}

// Fetch downloads src, verifies it and extracts it into destDir.
// The downloaded archive is removed after extraction.
func (d *Downloader) Fetch(ctx context.Context, src entities.Source, destDir string) (*entities.Artifact, error) {
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	if src.Git != "" {
		return d.cloneGit(ctx, src, destDir)
	}
	if src.URL == "" {
		return nil, errors.New("source has neither url nor git")
	}

	filename, err := archiveName(src.URL)
	if err != nil {
		return nil, err
	}
	archivePath := filepath.Join(destDir, filename)

	if err := d.downloadFile(ctx, src.URL, archivePath); err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if err := d.verify(ctx, src, archivePath); err != nil {
		return nil, err
	}

	if err := Extract(archivePath, destDir); err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	if err := os.Remove(archivePath); err != nil {
		return nil, fmt.Errorf("failed to remove archive: %w", err)
	}

	d.logger.Info("source extracted", interfaces.F("archive", filename), interfaces.F("dir", destDir))
	return &entities.Artifact{Name: filename, Path: destDir, Type: "source"}, nil
}

func (d *Downloader) verify(ctx context.Context, src entities.Source, archivePath string) error {
	if d.verifier == nil {
		return errors.New("no source verifier configured")
	}
	return d.verifier.VerifySource(ctx, archivePath, src)
}

// cloneGit clones src.Git at tag src.Ref into destDir/<repository name>
func (d *Downloader) cloneGit(ctx context.Context, src entities.Source, destDir string) (*entities.Artifact, error) {
	name := strings.TrimSuffix(path.Base(src.Git), ".git")
	repoPath := filepath.Join(destDir, name)

	opts := &git.CloneOptions{URL: src.Git, Depth: 1}
	if src.Ref != "" {
		opts.ReferenceName = plumbing.NewTagReferenceName(src.Ref)
		opts.SingleBranch = true
	}

	d.logger.Debug("cloning source", interfaces.F("url", src.Git), interfaces.F("ref", src.Ref))
	repo, err := git.PlainCloneContext(ctx, repoPath, false, opts)
	if err != nil {
		return nil, fmt.Errorf("git clone %s at %q failed: %w", src.Git, src.Ref, err)
	}
	if head, err := repo.Head(); err == nil {
		d.logger.Info("source cloned", interfaces.F("url", src.Git), interfaces.F("commit", head.Hash().String()))
	}

	return &entities.Artifact{Name: name, Path: repoPath, Type: "source"}, nil
}

// downloadFile downloads a file from URL to destination
func (d *Downloader) downloadFile(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "cauldron/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	//nolint:gosec // G304: File path dest is function parameter for download destination
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	d.logger.Info("downloaded", interfaces.F("file", filepath.Base(dest)), interfaces.F("bytes", written))
	return nil
}

// archiveName returns the file name of the archive a URL points to
func archiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid source url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("cannot derive archive name from %q", rawURL)
	}
	return name, nil
}

// Extract unpacks a .tar.gz, .tgz, .tar.bz2, .tbz2, .tar or .zip archive into destDir
func Extract(archivePath, destDir string) error {
	name := strings.ToLower(filepath.Base(archivePath))
	switch {
	case strings.HasSuffix(name, ".zip"):
		return extractZip(archivePath, destDir)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return extractTar(archivePath, destDir, func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		})
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		return extractTar(archivePath, destDir, func(r io.Reader) (io.Reader, error) {
			return bzip2.NewReader(r), nil
		})
	case strings.HasSuffix(name, ".tar"):
		return extractTar(archivePath, destDir, func(r io.Reader) (io.Reader, error) {
			return r, nil
		})
	default:
		return fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}
}

func extractTar(archivePath, destDir string, decompress func(io.Reader) (io.Reader, error)) error {
	//nolint:gosec // G304: File path archivePath is function parameter for extraction
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	r, err := decompress(file)
	if err != nil {
		return fmt.Errorf("failed to create decompressor: %w", err)
	}
	tr := tar.NewReader(r)

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	// Symlinks are created after all files exist
	type symlinkInfo struct {
		target   string
		linkname string
	}
	var symlinks []symlinkInfo

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}

		target, err := securejoin.SecureJoin(destDir, header.Name)
		if err != nil {
			return fmt.Errorf("invalid file path in archive: %s: %w", header.Name, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			//nolint:gosec // G115: tar header mode fits in FileMode
			if err := writeFile(target, tr, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}

		case tar.TypeSymlink:
			symlinks = append(symlinks, symlinkInfo{target: target, linkname: header.Linkname})

		default:
			// pax headers and device files carry nothing a build needs
		}
	}

	for _, link := range symlinks {
		if err := os.MkdirAll(filepath.Dir(link.target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for symlink: %w", err)
		}
		if err := os.Symlink(link.linkname, link.target); err != nil {
			return fmt.Errorf("failed to create symlink %s -> %s: %w", link.target, link.linkname, err)
		}
	}

	return nil
}

func extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	//nolint:errcheck // Defer close on read-only archive
	defer zr.Close()

	for _, f := range zr.File {
		target, err := securejoin.SecureJoin(destDir, f.Name)
		if err != nil {
			return fmt.Errorf("invalid file path in archive: %s: %w", f.Name, err)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		mode := f.Mode().Perm()
		if mode == 0 {
			mode = 0o644
		}
		err = writeFile(target, rc, mode)
		_ = rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	//nolint:gosec // G304: target is confined to the extraction directory
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, io.LimitReader(r, maxEntrySize)); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
