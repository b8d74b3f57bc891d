package observe

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/keyed/pkg/keyed"
	"github.com/vango-dev/keyed/pkg/reconciler"
)

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestObservePass(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))

	m.ObservePass(context.Background(), reconciler.PassStats{
		Stats:    keyed.Stats{Removed: 2, Added: 3, Moved: 1, Passive: 4},
		Site:     "cart",
		Entries:  7,
		Duration: 50 * time.Microsecond,
	})

	if got := testutil.ToFloat64(m.passes.WithLabelValues("cart", "ok")); got != 1 {
		t.Errorf("passes_total(ok) = %v, want 1", got)
	}
	for op, want := range map[string]float64{"remove": 2, "add": 3, "move": 1, "shift": 4, "clear": 0} {
		if got := testutil.ToFloat64(m.ops.WithLabelValues("cart", op)); got != want {
			t.Errorf("ops_total(%s) = %v, want %v", op, got, want)
		}
	}
	if got := testutil.ToFloat64(m.entries.WithLabelValues("cart")); got != 7 {
		t.Errorf("entries = %v, want 7", got)
	}
	if got := histogramCount(t, m.passDuration.WithLabelValues("cart")); got != 1 {
		t.Errorf("pass_duration_seconds count = %v, want 1", got)
	}
}

func TestObservePassResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg), WithNamespace("app"), WithSubsystem("lists"))

	m.ObservePass(context.Background(), reconciler.PassStats{Site: "feed", Duplicates: 2, Entries: 3})
	m.ObservePass(context.Background(), reconciler.PassStats{Site: "feed", Duplicates: 1, Err: errors.New("rejected")})
	m.ObservePass(context.Background(), reconciler.PassStats{Site: "feed", Stats: keyed.Stats{Clear: true}})

	if got := testutil.ToFloat64(m.passes.WithLabelValues("feed", "collapsed")); got != 1 {
		t.Errorf("passes_total(collapsed) = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.passes.WithLabelValues("feed", "rejected")); got != 1 {
		t.Errorf("passes_total(rejected) = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.duplicates.WithLabelValues("feed")); got != 3 {
		t.Errorf("duplicate_keys_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.ops.WithLabelValues("feed", "clear")); got != 1 {
		t.Errorf("ops_total(clear) = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.entries.WithLabelValues("feed")); got != 0 {
		t.Errorf("entries = %v, want 0 after clear", got)
	}

	n, err := testutil.GatherAndCount(reg, "app_lists_passes_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error: %v", err)
	}
	if n != 2 {
		t.Errorf("passes_total series = %d, want 2", n)
	}
}

func TestStreamMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.FrameSent("diff")
	m.FrameSent("diff")
	m.StreamError("decode")

	if got := testutil.ToFloat64(m.sessions); got != 1 {
		t.Errorf("stream_sessions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.frames.WithLabelValues("diff")); got != 2 {
		t.Errorf("stream_frames_total(diff) = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.streamErrors.WithLabelValues("decode")); got != 1 {
		t.Errorf("stream_errors_total(decode) = %v, want 1", got)
	}
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(WithRegistry(reg))

	defer func() {
		if recover() == nil {
			t.Error("second New() on the same registry did not panic")
		}
	}()
	New(WithRegistry(reg))
}

func TestReconcilerIntegration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))

	build := func(_ int, s string) *keyed.Entry[string, string, struct{}] {
		return keyed.NewEntry(s, s, struct{}{})
	}
	r := reconciler.New(func(s string) string { return s }, build, nil,
		reconciler.WithName("tags"),
		reconciler.WithObserver(m),
		reconciler.WithDiffOptions(keyed.WithStrategy(keyed.StrategyLIS)),
	)
	if _, err := r.Update(context.Background(), []string{"a", "b", "c"}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if _, err := r.Update(context.Background(), []string{"c", "a", "b"}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	if got := testutil.ToFloat64(m.passes.WithLabelValues("tags", "ok")); got != 2 {
		t.Errorf("passes_total(ok) = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ops.WithLabelValues("tags", "add")); got != 3 {
		t.Errorf("ops_total(add) = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.ops.WithLabelValues("tags", "move")); got != 1 {
		t.Errorf("ops_total(move) = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))
	m.FrameSent("snapshot")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(string(body), `keyed_stream_frames_total{type="snapshot"} 1`) {
		t.Errorf("metrics output missing frame counter:\n%s", body)
	}
}
