package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/domain/verdict"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/labelcheck/internal/infrastructure/usecases"
	"github.com/sophialabs/labelcheck/internal/testutil"
)

type runFixture struct {
	fake    *testutil.FakeBackend
	remote  *testutil.StubRemoteHost
	sender  *fakeSender
	metrics *testutil.RecordingMetrics
	uc      *usecases.RunSpecificationUseCase
}

func newRunFixture(t *testing.T, catalogue label.Catalogue, fake *testutil.FakeBackend, dataRoot string) *runFixture {
	t.Helper()
	f := &runFixture{
		fake:    fake,
		remote:  &testutil.StubRemoteHost{},
		sender:  &fakeSender{},
		metrics: &testutil.RecordingMetrics{},
	}
	clk := testClock()
	poller := newPoller(clk)
	logger := &testutil.NoopLogger{}
	be := newBackend(t, fake)
	files := filesystem.NewTestData(dataRoot)

	f.uc = usecases.NewRunSpecificationUseCase(
		catalogue,
		be,
		usecases.NewChooseSpecificationUseCase(f.remote, be, poller, logger, usecases.ChooseOptions{}),
		usecases.NewSendAPITrafficUseCase(f.sender, logger, usecases.APITrafficOptions{Proxy: testProxy}),
		usecases.NewVerifyAPIUseCase(be, verdict.NewClassifier(verdict.Options{}), poller, logger,
			usecases.VerifyAPIOptions{Proxy: testProxy, RecordRetries: 1, RecordInterval: time.Second}),
		usecases.NewSendFileTrafficUseCase(f.sender, files, logger, usecases.FileTrafficOptions{Proxy: "10.0.0.6:5004", UploadRetries: 2}),
		usecases.NewVerifyFileUseCase(be, files, poller, clk, logger,
			usecases.VerifyFileOptions{RecordRetries: 1, RecordInterval: time.Second}),
		clk,
		logger,
		f.metrics,
	)
	f.uc.SetRunIDFunc(func() string { return "run-1" })
	return f
}

func TestRunSpecification_FullPipeline(t *testing.T) {
	apiOnly := &label.Sample{ID: "2", Name: "email", Scope: 1, Body: []label.RequestFieldSample{{Body: []string{"a@b.c"}}}}
	catalogue := &testutil.StubCatalogue{
		Specs:  []label.Specification{testSpec},
		BySpec: map[string][]*label.Sample{testSpec.Name: {phoneSample("1"), apiOnly}},
	}
	fake := &testutil.FakeBackend{
		FileAssetCount: 8,
		APIAssets:      map[string]int{testProxy + "/data_label_test/1": 11},
		Calls:          map[int]testutil.RawCall{11: phoneCall()},
		FileAssets:     map[string]int{"a_phone.txt": 1},
		Ranks:          map[int]map[string]int{1: {"phone": 2}},
	}
	root := writeTestData(t, testSpec, "a_phone.txt")
	f := newRunFixture(t, catalogue, fake, root)

	summary, err := f.uc.Execute(context.Background(), testSpec)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if summary.RunID != "run-1" || summary.TotalLabels != 2 {
		t.Errorf("unexpected summary header: %+v", summary)
	}
	if summary.API.Total != 2 || summary.API.RequestPass != 1 || summary.API.RequestFail != 1 || summary.API.Unresolved != 1 {
		t.Errorf("api summary = %+v", summary.API)
	}
	if summary.File.Total != 1 || summary.File.Pass != 1 {
		t.Errorf("file summary = %+v", summary.File)
	}

	if got := f.fake.AutoMerge(); got == nil || *got {
		t.Error("auto merge should be disabled")
	}
	if len(f.sender.baseURLs) != 2 || f.sender.baseURLs[0] != "http://"+testProxy || f.sender.baseURLs[1] != "http://10.0.0.6:5004" {
		t.Errorf("proxy switches = %v", f.sender.baseURLs)
	}
	if len(f.sender.specs) != 10 {
		t.Errorf("expected 10 api requests, got %d", len(f.sender.specs))
	}
	if len(f.sender.uploads) != 1 || f.sender.uploads[0].Path != usecases.UploadPath || !f.sender.uploads[0].Multipart {
		t.Errorf("uploads = %+v", f.sender.uploads)
	}

	if f.metrics.Count("verdict:api:request:PASS") != 1 || f.metrics.Count("verdict:api:request:FAILED") != 1 {
		t.Error("api verdict metrics not recorded")
	}
	if f.metrics.Count("verdict:file:file:PASS") != 1 {
		t.Error("file verdict metric not recorded")
	}
	if f.metrics.Count("run:fail") != 1 {
		t.Error("run with a failed label should be recorded as failed")
	}
}

func TestRunSpecification_SetupFailureStopsRun(t *testing.T) {
	catalogue := &testutil.StubCatalogue{BySpec: map[string][]*label.Sample{testSpec.Name: {phoneSample("1")}}}
	f := newRunFixture(t, catalogue, &testutil.FakeBackend{}, t.TempDir())
	f.remote.ExecErr = errors.New("permission denied")

	_, err := f.uc.Execute(context.Background(), testSpec)
	if !usecases.IsStage(err, usecases.StageInit) {
		t.Fatalf("expected INIT stage error, got %v", err)
	}
	if !errors.Is(err, f.remote.ExecErr) {
		t.Errorf("stage error should wrap the cause: %v", err)
	}
	if len(f.sender.specs) != 0 {
		t.Error("no traffic may be sent after a setup failure")
	}
	if f.metrics.Count("run:fail") != 1 {
		t.Error("failed run not recorded")
	}
}

func TestRunSpecification_UnknownSpecification(t *testing.T) {
	f := newRunFixture(t, &testutil.StubCatalogue{}, &testutil.FakeBackend{}, t.TempDir())

	_, err := f.uc.Execute(context.Background(), testSpec)
	if !errors.Is(err, label.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunSpecification_BackendRejectsToken(t *testing.T) {
	catalogue := &testutil.StubCatalogue{BySpec: map[string][]*label.Sample{testSpec.Name: {phoneSample("1")}}}
	fake := &testutil.FakeBackend{Token: "expected"}
	f := newRunFixture(t, catalogue, fake, t.TempDir())

	_, err := f.uc.Execute(context.Background(), testSpec)
	if !usecases.IsStage(err, usecases.StageInit) {
		t.Fatalf("expected INIT stage error, got %v", err)
	}
}
