package process

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// SearchScope limits where a resolver looks for an executable.
type SearchScope struct {
	// Directories are searched recursively after PATH.
	Directories []string
	// SkipPath disables the PATH lookup.
	SkipPath bool
}

// ExecutableResolver turns a name into an absolute executable path.
type ExecutableResolver interface {
	LocateExecutable(ctx context.Context, name string, scope SearchScope) (string, error)
}

// PathResolver resolves explicit paths directly, then searches PATH, then
// the scope's directories recursively.
type PathResolver struct{}

var _ ExecutableResolver = PathResolver{}

// LocateExecutable returns an absolute path, or an ErrCodeNotFound error.
func (PathResolver) LocateExecutable(ctx context.Context, name string, scope SearchScope) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", apperrors.InvalidInput("target_file_path", "executable name is required")
	}

	if filepath.IsAbs(name) || strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		abs, err := filepath.Abs(name)
		if err != nil {
			return "", executableNotFound(name, err)
		}
		if err := isExecutable(abs); err != nil {
			return "", executableNotFound(name, err)
		}
		return abs, nil
	}

	if !scope.SkipPath {
		if p, err := exec.LookPath(name); err == nil {
			return filepath.Abs(p)
		}
	}

	for _, dir := range scope.Directories {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if p, ok := searchDir(dir, name); ok {
			return p, nil
		}
	}
	return "", executableNotFound(name, exec.ErrNotFound)
}

// searchDir walks dir for the first executable matching name, in lexical order.
func searchDir(dir, name string) (string, bool) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	matches, err := doublestar.Glob(os.DirFS(root), "**/"+escapeGlob(name)+executableSuffixPattern(name), doublestar.WithFilesOnly())
	if err != nil {
		return "", false
	}
	sort.Strings(matches)
	for _, m := range matches {
		p := filepath.Join(root, filepath.FromSlash(m))
		if isExecutable(p) == nil {
			return p, true
		}
	}
	return "", false
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var errNotRegular = errors.New("not a regular file")

func statRegular(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, errNotRegular
	}
	return info, nil
}
