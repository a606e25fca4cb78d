package filesystem

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sophialabs/labelcheck/internal/domain/label"
)

// TestFiles returns the regular files directly inside dir whose base name
// contains "_<labelName>.", sorted by name.
func TestFiles(dir, labelName string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read test data directory %s: %w", dir, err)
	}
	marker := "_" + labelName + "."
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.Contains(e.Name(), marker) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// FileMD5 returns the hex md5 digest of the file at path.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// TestData locates the generated test files of each specification under a
// root directory, one folder per specification slug.
type TestData struct {
	root string
}

// NewTestData creates a TestData rooted at root.
func NewTestData(root string) *TestData {
	return &TestData{root: root}
}

// Folder is the directory holding the files of spec.
func (d *TestData) Folder(spec label.Specification) string {
	return filepath.Join(d.root, spec.Slug())
}

// Files lists the files of spec generated for one label.
func (d *TestData) Files(spec label.Specification, labelName string) ([]string, error) {
	return TestFiles(d.Folder(spec), labelName)
}

// Digest returns the md5 of a test file.
func (d *TestData) Digest(path string) (string, error) {
	return FileMD5(path)
}
