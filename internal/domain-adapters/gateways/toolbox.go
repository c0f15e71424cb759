package gateways

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

// Toolbox implements interfaces.Toolbox on top of the downloader and script executor
type Toolbox struct {
	downloader *Downloader
	executor   *ScriptExecutor
	build      *entities.Settings
	env        map[string]string
	jobs       int
	logger     interfaces.Logger
}

// NewToolbox creates a toolbox. build describes the machine running the
// build and env is the profile environment passed to every tool.
func NewToolbox(downloader *Downloader, executor *ScriptExecutor, build *entities.Settings, env map[string]string, logger interfaces.Logger) *Toolbox {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Toolbox{
		downloader: downloader,
		executor:   executor,
		build:      build,
		env:        env,
		logger:     logger,
	}
}

// WithJobs sets the make parallelism of autotools builds; 0 keeps the CPU count
func (t *Toolbox) WithJobs(jobs int) *Toolbox {
	t.jobs = jobs
	return t
}

// Get downloads, verifies and extracts src into destDir
func (t *Toolbox) Get(ctx context.Context, src entities.Source, destDir string) error {
	_, err := t.downloader.Fetch(ctx, src, destDir)
	return err
}

// Run executes a shell command line in dir
func (t *Toolbox) Run(ctx context.Context, dir, command string) error {
	result := t.executor.ExecuteScript(ctx, ExecuteScriptConfig{
		Script:      command,
		WorkingDir:  dir,
		Env:         t.env,
		Description: command,
	})
	return result.Err(command)
}

// Autotools returns a build environment installing into the package folder
func (t *Toolbox) Autotools(rc *interfaces.RecipeContext) interfaces.AutotoolsBuild {
	at := NewAutotools(t.executor, rc.Settings, t.build, rc.Options, rc.Layout.PackageFolder, t.env)
	at.SetJobs(t.jobs)
	return at
}

// Copy copies files under srcDir whose relative path matches pattern into
// dstDir, keeping their relative paths. It returns the written paths.
func (t *Toolbox) Copy(pattern, srcDir, dstDir string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var copied []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if ok, _ := filepath.Match(pattern, filepath.ToSlash(rel)); !ok {
			return nil
		}

		target := filepath.Join(dstDir, rel)
		if err := copyFile(path, target); err != nil {
			return err
		}
		copied = append(copied, target)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to copy %s from %s: %w", pattern, srcDir, err)
	}

	t.logger.Debug("copied files", interfaces.F("pattern", pattern), interfaces.F("count", len(copied)))
	return copied, nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	//nolint:gosec // G304: path comes from walking the recipe's own tree
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return err
	}
	//nolint:gosec // G304: destination is inside the package folder
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Rename moves oldPath to newPath
func (t *Toolbox) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("failed to rename %s: %w", oldPath, err)
	}
	return nil
}

// Chmod sets mode on the files directly in dir whose name matches pattern.
// Subdirectories are not descended into.
func (t *Toolbox) Chmod(dir, pattern string, mode fs.FileMode) error {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(pattern, entry.Name()); !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Chmod(path, mode); err != nil {
			return fmt.Errorf("failed to chmod %s: %w", path, err)
		}
	}
	return nil
}

// Rmdir removes a directory tree; a missing directory is not an error
func (t *Toolbox) Rmdir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Unlink removes a single file; a missing file is an error
func (t *Toolbox) Unlink(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
