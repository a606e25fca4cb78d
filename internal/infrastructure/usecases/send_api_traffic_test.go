package usecases_test

import (
	"context"
	"testing"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/infrastructure/usecases"
	"github.com/sophialabs/labelcheck/internal/testutil"
)

func TestSendAPITraffic_SendsCopiesPerLabel(t *testing.T) {
	sender := &fakeSender{FailPaths: map[string]bool{"/data_label_test/2": true}}
	uc := usecases.NewSendAPITrafficUseCase(sender, &testutil.NoopLogger{}, usecases.APITrafficOptions{Proxy: testProxy})

	report, err := uc.Execute(context.Background(), []*label.Sample{phoneSample("1"), phoneSample("2")})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if report.Sent != 10 || report.Failed != 5 {
		t.Errorf("report = %+v, want 10 sent, 5 failed", report)
	}
	if len(sender.baseURLs) != 1 || sender.baseURLs[0] != "http://"+testProxy {
		t.Errorf("base URLs = %v", sender.baseURLs)
	}
	if string(sender.specs[0].Body) != `[{"start_line":[],"headers":[],"body":["13800138000"]}]` {
		t.Errorf("body = %s", sender.specs[0].Body)
	}
}

func TestSendAPITraffic_NoSamples(t *testing.T) {
	sender := &fakeSender{}
	uc := usecases.NewSendAPITrafficUseCase(sender, &testutil.NoopLogger{}, usecases.APITrafficOptions{Proxy: testProxy, CopiesPerLabel: 2})

	report, err := uc.Execute(context.Background(), nil)
	if err != nil || report.Sent != 0 {
		t.Fatalf("got %+v, %v", report, err)
	}
	if len(sender.baseURLs) != 0 {
		t.Error("no proxy switch expected without samples")
	}
}

func TestSendAPITraffic_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	uc := usecases.NewSendAPITrafficUseCase(&fakeSender{}, &testutil.NoopLogger{}, usecases.APITrafficOptions{Proxy: testProxy})

	if _, err := uc.Execute(ctx, []*label.Sample{phoneSample("1")}); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestProxyURL(t *testing.T) {
	if got := usecases.ProxyURL("1.2.3.4:80"); got != "http://1.2.3.4:80" {
		t.Errorf("got %q", got)
	}
	if got := usecases.ProxyURL("https://proxy"); got != "https://proxy" {
		t.Errorf("got %q", got)
	}
}
