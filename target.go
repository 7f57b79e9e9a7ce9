// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:generate mockgen -source=target.go -destination=internal/mocks/mock_target.go -package=mocks

// Target specifies all function that are needed to be implemented to extract contents from an archive
type Target interface {
	// CreateFile creates a file at the specified path and returns a writer for its content. The mode parameter
	// is the file mode that should be set on the file. If the file already exists and overwrite is false, an
	// error should be returned. If overwrite is true, an existing file is truncated. The caller closes the
	// returned writer.
	CreateFile(path string, mode fs.FileMode, overwrite bool) (io.WriteCloser, error)

	// CreateDir creates at the specified path with the specified mode, including all missing parents.
	// If the directory already exists, nothing is done.
	CreateDir(path string, mode fs.FileMode) error

	// Lstat see docs for os.Lstat. Main purpose is to check for symlinks in the extraction path,
	// for existing files and for path traversal.
	Lstat(path string) (fs.FileInfo, error)
}

// prepareDestination ensures that dst exists. A missing destination is created
// if config.CreateDestination() returns true.
func prepareDestination(t Target, dst string, cfg *Config) error {
	stat, err := t.Lstat(dst)
	if err == nil {
		if !stat.IsDir() && stat.Mode()&os.ModeSymlink == 0 {
			return fmt.Errorf("destination is not a directory: %s", dst)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("invalid destination: %w", err)
	}
	if !cfg.CreateDestination() {
		return fmt.Errorf("destination does not exist: %s", dst)
	}
	if err := t.CreateDir(dst, cfg.CustomCreateDirMode()); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	cfg.Logger().Info("created destination directory", "path", dst)
	return nil
}

// createFile is a wrapper around the CreateFile function
//
// If the name is empty, the function returns an error.
//
// If the directory for the file does not exist, it will be created with the config.CustomCreateDirMode().
//
// If the path contains path traversal, or a symlink while config.TraverseSymlinks() returns false,
// the function returns an error.
func createFile(t Target, dst string, name string, cfg *Config) (io.WriteCloser, error) {
	// check if a name is provided
	if len(name) == 0 {
		return nil, fmt.Errorf("cannot create file without name")
	}

	// ensures that the directory exists and is safe to write to
	if err := createDir(t, dst, parentDir(name), cfg); err != nil {
		return nil, fmt.Errorf("cannot create directory: %w", err)
	}

	// ensure that if the file exist that it is not a symlink
	if err := securityCheck(t, dst, name, cfg); err != nil {
		return nil, fmt.Errorf("security check path failed: %w", err)
	}
	return t.CreateFile(joinPath(dst, name), cfg.CustomFileMode(), cfg.Overwrite())
}

// createDir is a wrapper around the CreateDir function
//
// If the path contains path traversal, or a symlink while config.TraverseSymlinks() returns false,
// the function returns an error. The destination itself needs no action.
func createDir(t Target, dst string, name string, cfg *Config) error {
	// no action needed
	if n := strings.Trim(name, "/"); n == "" || n == "." {
		return nil
	}

	// perform security check to ensure that the path is safe to write to
	if err := securityCheck(t, dst, name, cfg); err != nil {
		return fmt.Errorf("security check path failed: %w", err)
	}
	return t.CreateDir(joinPath(dst, name), cfg.CustomCreateDirMode())
}

// fileExists checks if the entry name is already present below dst.
func fileExists(t Target, dst string, name string) (bool, error) {
	if _, err := t.Lstat(joinPath(dst, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("invalid path: %w", err)
	}
	return true, nil
}

// securityCheck checks if the slash separated name contains path traversal
// and if the path below dst contains a symlink.
//
// If the path contains a symlink and config.TraverseSymlinks() returns true,
// a warning is logged and the function continues.
func securityCheck(t Target, dst string, name string, config *Config) error {
	path := osPath(name)

	// get relative path from base to new directory target
	rel, err := filepath.Rel(dst, filepath.Join(dst, path))
	if err != nil {
		return fmt.Errorf("failed to get relative path: %w", err)
	}
	// check if the relative path is local
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("%w: %s", ErrPathTraversal, name)
	}
	if rel == "." {
		return nil
	}

	// check each dir in path
	elements := strings.Split(rel, string(os.PathSeparator))
	for i := range elements {

		// assemble path
		subDirs := filepath.Join(elements[0 : i+1]...)
		checkDir := filepath.Join(dst, subDirs)

		// check for symlink
		isSymlink, err := isSymlink(t, checkDir)
		if err != nil {
			return fmt.Errorf("failed to check symlink: %w", err)
		}
		if isSymlink {
			if config.TraverseSymlinks() {
				config.Logger().Warn("traverse symlink", "sub-dir", subDirs)
			} else {
				return fmt.Errorf("%w: %s", ErrSymlinkInPath, subDirs)
			}
		}
	}

	return nil
}

// isSymlink checks if path is a symlink. A path that does not exist is no symlink.
func isSymlink(t Target, path string) (bool, error) {
	stat, err := t.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check path: %w", err)
	}

	// check if we got stats
	if stat == nil {
		return false, fmt.Errorf("failed to get stats")
	}
	return stat.Mode()&os.ModeSymlink == os.ModeSymlink, nil
}

// osPath converts a slash separated entry name into an os specific relative path.
func osPath(name string) string {
	parts := strings.Split(name, "/")
	return filepath.Join(parts...)
}

// joinPath joins dst and the slash separated entry name.
func joinPath(dst string, name string) string {
	return filepath.Join(dst, osPath(name))
}

// parentDir returns the slash separated parent of an entry name.
func parentDir(name string) string {
	name = strings.TrimSuffix(name, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[:i]
	}
	return "."
}
