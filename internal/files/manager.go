package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrOutsideBase is returned for relative paths that resolve outside the
// manager's base directory.
var ErrOutsideBase = errors.New("path escapes base directory")

// Manager provides file management operations
type Manager struct {
	baseDir string
	logger  *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(baseDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		baseDir: baseDir,
		logger:  logger.With(slog.String("component", "files")),
	}
}

// BaseDir returns the directory relative paths resolve against
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// FileExists checks if a regular file exists at the given path
func (m *Manager) FileExists(path string) bool {
	fullPath, err := m.resolvePath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	exists := err == nil && !info.IsDir()

	m.logger.Debug("FileExists check",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Bool("exists", exists))

	return exists
}

// DirExists checks if a directory exists at the given path
func (m *Manager) DirExists(path string) bool {
	fullPath, err := m.resolvePath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && info.IsDir()
}

// EnsureDirectory creates a directory with all parent directories
func (m *Manager) EnsureDirectory(path string) error {
	fullPath, err := m.resolvePath(path)
	if err != nil {
		return err
	}

	m.logger.Debug("Ensuring directory exists",
		slog.String("path", path),
		slog.String("full_path", fullPath))

	return os.MkdirAll(fullPath, 0755)
}

// CopyFile copies a file from source to destination, replacing the
// destination when it exists
func (m *Manager) CopyFile(src, dst string) error {
	srcPath, err := m.resolvePath(src)
	if err != nil {
		return err
	}
	dstPath, err := m.resolvePath(dst)
	if err != nil {
		return err
	}

	m.logger.Debug("Copying file",
		slog.String("src_path", srcPath),
		slog.String("dst_path", dstPath))

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	srcFile, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	return dstFile.Sync()
}

// CopyTree copies every regular file below src into dst, keeping the
// relative layout and overwriting existing files. It returns the number of
// files copied.
func (m *Manager) CopyTree(src, dst string) (int, error) {
	srcRoot, err := m.resolvePath(src)
	if err != nil {
		return 0, err
	}
	dstRoot, err := m.resolvePath(dst)
	if err != nil {
		return 0, err
	}

	copied := 0
	err = filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstRoot, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := m.CopyFile(path, target); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, err
	}

	m.logger.Info("Copied directory tree",
		slog.String("src", srcRoot),
		slog.String("dst", dstRoot),
		slog.Int("files", copied))
	return copied, nil
}

// ReadFile reads the entire content of a file
func (m *Manager) ReadFile(path string) ([]byte, error) {
	fullPath, err := m.resolvePath(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(fullPath)
}

// WriteFile writes data to a file, creating parent directories
func (m *Manager) WriteFile(path string, data []byte) error {
	fullPath, err := m.resolvePath(path)
	if err != nil {
		return err
	}

	m.logger.Debug("Writing file",
		slog.String("full_path", fullPath),
		slog.Int("size_bytes", len(data)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(fullPath, data, 0644)
}

// WriteFileIfAbsent writes data only when nothing exists at path. It reports
// whether the file was written.
func (m *Manager) WriteFileIfAbsent(path string, data []byte) (bool, error) {
	fullPath, err := m.resolvePath(path)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return false, err
	}
	return true, f.Close()
}

// ListFiles returns the names of the regular files in a directory
// (non-recursive), sorted
func (m *Manager) ListFiles(dir string) ([]string, error) {
	return m.list(dir, false)
}

// ListDirectories returns the names of the subdirectories of dir, sorted
func (m *Manager) ListDirectories(dir string) ([]string, error) {
	return m.list(dir, true)
}

func (m *Manager) list(dir string, dirs bool) ([]string, error) {
	fullPath, err := m.resolvePath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() == dirs {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// resolvePath resolves a path relative to the base directory
func (m *Manager) resolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	full := filepath.Join(m.baseDir, path)
	rel, err := filepath.Rel(m.baseDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBase, path)
	}
	return full, nil
}
