package filesystem_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/filesystem"
)

func TestTestFiles_MatchesLabelMarker(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_phone.docx", "a_phone.txt", "a_phone_number.txt", "phone.csv", "x_email.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "c_phone.d"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := filesystem.TestFiles(dir, "phone")
	if err != nil {
		t.Fatalf("TestFiles failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a_phone.txt"), filepath.Join(dir, "b_phone.docx")}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, files[i], want[i])
		}
	}
}

func TestTestFiles_MissingDir(t *testing.T) {
	if _, err := filesystem.TestFiles(filepath.Join(t.TempDir(), "absent"), "phone"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestFileMD5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	sum, err := filesystem.FileMD5(path)
	if err != nil {
		t.Fatalf("FileMD5 failed: %v", err)
	}
	if sum != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("unexpected md5 %s", sum)
	}

	if _, err := filesystem.FileMD5(path + ".missing"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTestData_SpecificationFolder(t *testing.T) {
	root := "../../../../testdata/test_data"
	data := filesystem.NewTestData(root)
	spec := label.Specification{ID: 1, Name: "GB/T 35273"}

	if got := data.Folder(spec); got != filepath.Join(root, "GB_T 35273") {
		t.Errorf("Folder = %q", got)
	}
	files, err := data.Files(spec, "phone")
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "contacts_phone.csv" || filepath.Base(files[1]) != "notes_phone.txt" {
		t.Errorf("unexpected files: %v", files)
	}
	sum, err := data.Digest(files[0])
	if err != nil || len(sum) != 32 {
		t.Errorf("Digest = %q, %v", sum, err)
	}
}
