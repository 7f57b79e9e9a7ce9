// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package untar

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSecurityCheck(t *testing.T) {
	tests := []struct {
		name    string
		entry   string
		prep    func(t *testing.T, dst string)
		cfg     *Config
		wantErr error
	}{
		{name: "simple file", entry: "file.txt"},
		{name: "nested file", entry: "a/b/c.txt"},
		{name: "current directory", entry: "./"},
		{name: "dot segments inside destination", entry: "a/../b.txt"},
		{name: "absolute name", entry: "/etc/passwd"},
		{name: "parent directory", entry: "../file.txt", wantErr: ErrPathTraversal},
		{name: "escaping dot segments", entry: "a/../../file.txt", wantErr: ErrPathTraversal},
		{
			name:  "symlink in path",
			entry: "link/file.txt",
			prep: func(t *testing.T, dst string) {
				if err := os.Symlink(t.TempDir(), filepath.Join(dst, "link")); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: ErrSymlinkInPath,
		},
		{
			name:  "symlink as file",
			entry: "link",
			prep: func(t *testing.T, dst string) {
				if err := os.Symlink("target", filepath.Join(dst, "link")); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: ErrSymlinkInPath,
		},
		{
			name:  "traverse symlink",
			entry: "link/file.txt",
			prep: func(t *testing.T, dst string) {
				if err := os.Symlink(t.TempDir(), filepath.Join(dst, "link")); err != nil {
					t.Fatal(err)
				}
			},
			cfg: NewConfig(WithInsecureTraverseSymlinks(true)),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.prep != nil && runtime.GOOS == "windows" {
				t.Skip("symlinks require privileges on windows")
			}
			dst := t.TempDir()
			if test.prep != nil {
				test.prep(t, dst)
			}
			cfg := test.cfg
			if cfg == nil {
				cfg = NewConfig()
			}

			err := securityCheck(NewTargetDisk(), dst, test.entry, cfg)
			if test.wantErr == nil && err != nil {
				t.Errorf("securityCheck(%q) = %v, want no error", test.entry, err)
			}
			if test.wantErr != nil && !errors.Is(err, test.wantErr) {
				t.Errorf("securityCheck(%q) = %v, want %v", test.entry, err, test.wantErr)
			}
		})
	}
}

func TestParentDir(t *testing.T) {
	tests := map[string]string{
		"file.txt":     ".",
		"a/file.txt":   "a",
		"a/b/file.txt": "a/b",
		"a/b/":         "a",
		"/abs.txt":     "",
	}
	for name, want := range tests {
		if got := parentDir(name); got != want {
			t.Errorf("parentDir(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestTargetDiskCreateFile(t *testing.T) {
	d := NewTargetDisk()
	path := filepath.Join(t.TempDir(), "file.txt")

	w, err := d.CreateFile(path, 0640, false)
	if err != nil {
		t.Fatalf("CreateFile() failed: %v", err)
	}
	if _, err := w.Write([]byte("first")); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// existing file without overwrite
	if _, err := d.CreateFile(path, 0640, false); !errors.Is(err, fs.ErrExist) {
		t.Errorf("CreateFile() = %v, want %v", err, fs.ErrExist)
	}

	// existing file is truncated with overwrite
	w, err = d.CreateFile(path, 0640, true)
	if err != nil {
		t.Fatalf("CreateFile() failed: %v", err)
	}
	if _, err := w.Write([]byte("2nd")); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if got, _ := os.ReadFile(path); string(got) != "2nd" {
		t.Errorf("file content = %q, want %q", got, "2nd")
	}
}

// FuzzSecurityCheckDisk is a fuzzer for the securityCheck function
func FuzzSecurityCheckDisk(f *testing.F) {
	f.Add("name")
	f.Add("../name")
	d := NewTargetDisk()
	f.Fuzz(func(t *testing.T, name string) {
		tmp := t.TempDir()
		if err := securityCheck(d, tmp, name, NewConfig()); err == nil {
			rel, relErr := filepath.Rel(tmp, joinPath(tmp, name))
			if relErr != nil || !filepath.IsLocal(rel) {
				t.Errorf("securityCheck(%q) accepted a path outside of the destination", name)
			}
		}
	})
}
