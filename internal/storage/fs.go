package storage

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// CopyOptions tunes [FileSystem.CopyTree].
type CopyOptions struct {
	// SkipExisting leaves files already present at the destination untouched.
	SkipExisting bool
	// OnFile is called after each regular file is handled, with the relative path and whether it was copied.
	OnFile func(rel string, copied bool)
}

// CopyStats summarizes a tree copy.
type CopyStats struct {
	Copied  int
	Skipped int
	Bytes   int64
}

// FileSystem resolves engine paths below Root and manipulates trees.
type FileSystem struct {
	Root string
}

// New creates a [FileSystem] rooted at root.
func New(root string) *FileSystem {
	return &FileSystem{Root: root}
}

// ProjectPath is the storage folder of a project.
func (f *FileSystem) ProjectPath(projectID int64) string {
	return filepath.Join(f.Root, "projects", strconv.FormatInt(projectID, 10))
}

// ProjectBackupPath is the hidden backup folder of a project.
func (f *FileSystem) ProjectBackupPath(projectID int64) string {
	return filepath.Join(f.ProjectPath(projectID), ".backup")
}

// ProjectStagingPath is the L0 staging folder of one sample.
func (f *FileSystem) ProjectStagingPath(projectID int64, sample string) string {
	return filepath.Join(f.ProjectPath(projectID), "l0", sample)
}

// TaskDir is the folder holding a task's log and artifacts.
func (f *FileSystem) TaskDir(taskID string) string {
	return filepath.Join(f.Root, "tasks", taskID)
}

// Exists reports whether path exists.
func (f *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// IsDir reports whether path exists and is a directory.
func (f *FileSystem) IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.IsDir(), nil
}

// List returns the sorted entry names of a directory.
func (f *FileSystem) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// RemoveTree deletes path and everything below it. A missing path is not an error.
func (f *FileSystem) RemoveTree(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// CountFiles counts the regular files below root.
func (f *FileSystem) CountFiles(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count files in %s: %w", root, err)
	}
	return count, nil
}

// CopyTree recursively copies src into dst, creating dst as needed.
func (f *FileSystem) CopyTree(ctx context.Context, src, dst string, opts CopyOptions) (CopyStats, error) {
	var stats CopyStats

	info, err := os.Stat(src)
	if err != nil {
		return stats, fmt.Errorf("failed to stat source %s: %w", src, err)
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("source %s is not a directory", src)
	}

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if opts.SkipExisting {
			if _, err := os.Stat(target); err == nil {
				stats.Skipped++
				if opts.OnFile != nil {
					opts.OnFile(rel, false)
				}
				return nil
			}
		}

		n, err := copyFile(path, target)
		if err != nil {
			return err
		}
		stats.Copied++
		stats.Bytes += n
		if opts.OnFile != nil {
			opts.OnFile(rel, true)
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	return stats, nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, err
	}
	return n, out.Close()
}

// ZipTree writes every file below src into a zip archive at dst, with slash separated relative names.
// A partially written archive is removed on failure.
func (f *FileSystem) ZipTree(ctx context.Context, src, dst string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create archive folder: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", dst, err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(dst)
		}
	}()

	zw := zip.NewWriter(out)

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == src || !(d.IsDir() || d.Type().IsRegular()) {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		if d.IsDir() {
			_, err := zw.Create(name + "/")
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = name
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		_, err = io.Copy(w, in)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to zip %s: %w", src, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}

	return nil
}
