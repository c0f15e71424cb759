package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

// ShortIDLength is how many package ID characters appear in archive names
const ShortIDLength = 12

// Packager archives a package folder into a distributable tarball
type Packager struct {
	logger interfaces.Logger
}

// NewPackager creates a new packager
func NewPackager(logger interfaces.Logger) *Packager {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Packager{logger: logger}
}

// ArchiveName returns <name>-<version>-<short package id>.tar.gz
func ArchiveName(name, version, packageID string) string {
	short := packageID
	if len(short) > ShortIDLength {
		short = short[:ShortIDLength]
	}
	return fmt.Sprintf("%s-%s-%s.tar.gz", name, version, short)
}

// PackageArtifact archives packageDir into outputDir and returns the archive artifact
func (p *Packager) PackageArtifact(
	_ context.Context,
	name, version, packageID, packageDir, outputDir string,
) (*entities.Artifact, error) {
	info, err := os.Stat(packageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat package folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("package folder %s is not a directory", packageDir)
	}

	if outputDir == "" {
		outputDir = "dist"
	}
	tarballPath := filepath.Join(outputDir, ArchiveName(name, version, packageID))

	if err := p.createTarball(packageDir, tarballPath); err != nil {
		return nil, fmt.Errorf("failed to create tarball: %w", err)
	}
	p.logger.Info("package archived", interfaces.F("path", tarballPath))

	return &entities.Artifact{
		Name:      name,
		Version:   version,
		PackageID: packageID,
		Path:      tarballPath,
		Type:      "archive",
	}, nil
}

// createTarball creates a gzipped tar archive from a source directory
func (p *Packager) createTarball(sourceDir, tarballPath string) (err error) {
	if err := os.MkdirAll(filepath.Dir(tarballPath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	//nolint:gosec // G304: tarballPath is constructed for package output
	file, err := os.Create(tarballPath)
	if err != nil {
		return fmt.Errorf("failed to create tarball file: %w", err)
	}
	gzipWriter := gzip.NewWriter(file)
	tarWriter := tar.NewWriter(gzipWriter)

	defer func() {
		for _, c := range []io.Closer{tarWriter, gzipWriter, file} {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	return filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				p.logger.Warn("skipping unreadable symlink", interfaces.F("path", path), interfaces.F("error", err))
				return nil
			}
		}

		header, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return fmt.Errorf("failed to create tar header: %w", err)
		}

		relPath, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath == "." {
			return nil
		}
		header.Name = filepath.ToSlash(relPath)
		if info.IsDir() {
			header.Name += "/"
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		return copyInto(tarWriter, path)
	})
}

func copyInto(w io.Writer, path string) error {
	//nolint:gosec // G304: File path from filepath.Walk for packaging
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("failed to write file to tar: %w", err)
	}
	return nil
}
