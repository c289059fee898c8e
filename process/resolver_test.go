//go:build unix

package process

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/kbukum/procinvoke/errors"
)

func writeFile(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPathResolverLocateExecutable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "notexec", "procinvoke-tool"), 0o644)
	writeFile(t, filepath.Join(dir, "b", "deep", "procinvoke-tool"), 0o755)
	writeFile(t, filepath.Join(dir, "plain"), 0o644)

	tests := []struct {
		name     string
		target   string
		scope    SearchScope
		want     string
		wantCode apperrors.ErrorCode
	}{
		{
			name:   "recursive search skips non-executables",
			target: "procinvoke-tool",
			scope:  SearchScope{Directories: []string{dir}, SkipPath: true},
			want:   filepath.Join(dir, "b", "deep", "procinvoke-tool"),
		},
		{
			name:   "explicit path",
			target: filepath.Join(dir, "b", "deep", "procinvoke-tool"),
			want:   filepath.Join(dir, "b", "deep", "procinvoke-tool"),
		},
		{
			name:     "explicit path without execute bit",
			target:   filepath.Join(dir, "plain"),
			wantCode: apperrors.ErrCodeNotFound,
		},
		{
			name:     "not on path and not searched",
			target:   "procinvoke-tool",
			scope:    SearchScope{SkipPath: true},
			wantCode: apperrors.ErrCodeNotFound,
		},
		{
			name:   "found on path",
			target: "sh",
		},
		{
			name:     "empty name",
			target:   " ",
			wantCode: apperrors.ErrCodeInvalidInput,
		},
		{
			name:     "directory is not an executable",
			target:   dir,
			wantCode: apperrors.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PathResolver{}.LocateExecutable(context.Background(), tt.target, tt.scope)
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("expected %s, got %q, %v", tt.wantCode, got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !filepath.IsAbs(got) {
				t.Fatalf("expected an absolute path, got %q", got)
			}
			if tt.want != "" && got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPathResolverCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PathResolver{}.LocateExecutable(ctx, "procinvoke-tool", SearchScope{Directories: []string{t.TempDir()}, SkipPath: true})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEscapeGlob(t *testing.T) {
	if got := escapeGlob("a*b[1]{x}"); got != `a\*b\[1\]\{x\}` {
		t.Fatalf("escapeGlob = %q", got)
	}
}
