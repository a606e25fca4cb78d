package usecases_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/domain/verdict"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/labelcheck/internal/infrastructure/usecases"
	"github.com/sophialabs/labelcheck/internal/testutil"
)

// writeTestData creates the specification folder with the given files and returns
// the test data root.
func writeTestData(t *testing.T, spec label.Specification, files ...string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, spec.Slug())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data of "+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newVerifyFileUC(t *testing.T, fake *testutil.FakeBackend, root string, clk *testutil.FixedClock) *usecases.VerifyFileUseCase {
	t.Helper()
	return usecases.NewVerifyFileUseCase(
		newBackend(t, fake),
		filesystem.NewTestData(root),
		newPoller(clk),
		clk,
		&testutil.NoopLogger{},
		usecases.VerifyFileOptions{SettleDelay: 3 * time.Second, RecordRetries: 1, RecordInterval: time.Second},
	)
}

func TestVerifyFile_Settle(t *testing.T) {
	clk := testClock()
	uc := newVerifyFileUC(t, &testutil.FakeBackend{FileAssetCount: 8}, t.TempDir(), clk)

	if err := uc.Settle(context.Background(), []*label.Sample{phoneSample("1")}); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if sleeps := clk.Sleeps(); len(sleeps) != 1 || sleeps[0] != 3*time.Second {
		t.Errorf("expected only the settle delay, got %v", sleeps)
	}
}

func TestVerifyFile_SettleCountMismatchIsSoft(t *testing.T) {
	clk := testClock()
	uc := newVerifyFileUC(t, &testutil.FakeBackend{FileAssetCount: 3}, t.TempDir(), clk)

	if err := uc.Settle(context.Background(), []*label.Sample{phoneSample("1")}); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	want := []time.Duration{time.Second, 3 * time.Second}
	sleeps := clk.Sleeps()
	if len(sleeps) != len(want) || sleeps[0] != want[0] || sleeps[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", sleeps, want)
	}
}

func TestVerifyFile_ClassifiesPerExtension(t *testing.T) {
	root := writeTestData(t, testSpec, "a_phone.txt", "a_phone.csv", "a_phone.bin", "a_phone.pdf", "a_email.txt")
	fake := &testutil.FakeBackend{
		FileAssets: map[string]int{"a_phone.txt": 1, "a_phone.csv": 2},
		Ranks: map[int]map[string]int{
			1: {"phone": 2},
			2: {"phone": 2, "email": 1},
		},
	}
	uc := newVerifyFileUC(t, fake, root, testClock())

	results, err := uc.Execute(context.Background(), testSpec, []*label.Sample{phoneSample("1")})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Status != verdict.StatusFailed {
		t.Errorf("expected FAILED, got %s", r.Status)
	}
	if len(r.Files) != 3 {
		t.Fatalf("expected 3 tracked files, got %v", r.Files)
	}
	if v := r.Files[".txt"][0]; !v.Passed() || v.MatchedCount != 2 {
		t.Errorf(".txt verdict = %+v", v)
	}
	if v := r.Files[".csv"][0]; v.Misidentification["email"] != 1 {
		t.Errorf(".csv verdict = %+v", v)
	}
	if v := r.Files[".pdf"][0]; !v.Missing {
		t.Errorf(".pdf should be missing: %+v", v)
	}
	if fake.Hits("/apione/v2/file-assets/{id}/data-count/rank") != 2 {
		t.Errorf("rank lookups = %d", fake.Hits("/apione/v2/file-assets/{id}/data-count/rank"))
	}
}

func TestVerifyFile_NoFilesFails(t *testing.T) {
	uc := newVerifyFileUC(t, &testutil.FakeBackend{}, t.TempDir(), testClock())

	results, err := uc.Execute(context.Background(), testSpec, []*label.Sample{phoneSample("1")})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if results[0].Status != verdict.StatusFailed || len(results[0].Files) != 0 {
		t.Errorf("expected FAILED without files, got %+v", results[0])
	}
}
