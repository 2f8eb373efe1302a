package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffline/boond-sync/internal/config"
	"github.com/staffline/boond-sync/internal/model"
	"github.com/staffline/boond-sync/internal/resilience"
	"github.com/staffline/boond-sync/internal/store"
	"github.com/staffline/boond-sync/pkg/boond"
)

type fakeRuns struct {
	store.RunStore
	runs []model.Run
	err  error
}

func (f *fakeRuns) ListRuns(_ context.Context, _ store.RunFilter) ([]model.Run, error) {
	return f.runs, f.err
}

const failedResult = `{"totals":{"created":2,"updated":1,"skipped":3,"failed":4},
	"types":[{"type":"documents","failures":[{"reason":"access denied","permission":true},{"reason":"boom"}]}]}`

func TestCollector_Collect(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := &fakeRuns{runs: []model.Run{
		{ID: "a", Status: model.RunStatusComplete, CreatedAt: now.Add(-time.Hour), Result: json.RawMessage(failedResult)},
		{ID: "b", Status: model.RunStatusFailed, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "c", Status: model.RunStatusCancelled, CreatedAt: now.Add(-3 * time.Hour), Result: json.RawMessage(`not json`)},
		{ID: "old", Status: model.RunStatusFailed, CreatedAt: now.Add(-48 * time.Hour)},
	}}
	c := NewCollector(runs)
	c.now = func() time.Time { return now }

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.RunsTotal)
	assert.Equal(t, 1, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.Equal(t, 1, snap.RunsCancelled)
	assert.InDelta(t, 0.5, snap.RunFailRate, 0.001)
	assert.Equal(t, 10, snap.RecordsAttempted)
	assert.Equal(t, 4, snap.RecordsFailed)
	assert.InDelta(t, 0.4, snap.RecordFailRate, 0.001)
	assert.Equal(t, 1, snap.PermissionFailures)
}

func TestCollector_StoreError(t *testing.T) {
	c := NewCollector(&fakeRuns{err: eris.New("db down")})
	_, err := c.Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list runs")
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	alerts := a.Evaluate(&MetricsSnapshot{
		RunsTotal:        4,
		RunsComplete:     4,
		RecordsAttempted: 100,
		RecordsFailed:    5,
		RecordFailRate:   0.05,
		LookbackHours:    24,
	})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_AllAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	alerts := a.Evaluate(&MetricsSnapshot{
		RunsTotal:          3,
		RunsFailed:         1,
		RecordsAttempted:   10,
		RecordsFailed:      4,
		RecordFailRate:     0.4,
		PermissionFailures: 2,
		LookbackHours:      24,
	})
	require.Len(t, alerts, 3)
	assert.Equal(t, AlertRunFailure, alerts[0].Type)
	assert.Equal(t, AlertRecordFailureRate, alerts[1].Type)
	assert.Contains(t, alerts[1].Message, "40.0%")
	assert.Equal(t, AlertPermissionDenied, alerts[2].Type)
	assert.Equal(t, "medium", alerts[2].Severity)
}

func TestAlerter_Evaluate_SmallSampleIgnored(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})
	alerts := a.Evaluate(&MetricsSnapshot{RecordsAttempted: 2, RecordsFailed: 2, RecordFailRate: 1})
	assert.Empty(t, alerts)
}

func TestAlerter_SendAlerts(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		if alert.Type == AlertPermissionDenied {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		received.Add(1)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertRunFailure, Severity: "high"},
		{Type: AlertPermissionDenied, Severity: "medium"},
	})
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
}

func TestAlerter_SendAlerts_NoWebhook(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Zero(t, a.SendAlerts(context.Background(), []Alert{{Type: AlertRunFailure}}))
}

func TestChecker_CheckOnce(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
	}))
	defer srv.Close()

	runs := &fakeRuns{runs: []model.Run{{ID: "x", Status: model.RunStatusFailed, CreatedAt: time.Now()}}}
	cfg := config.MonitoringConfig{WebhookURL: srv.URL, FailureRateThreshold: 0.1, LookbackWindowHours: 24}
	checker := NewChecker(NewCollector(runs), NewAlerter(cfg), cfg)

	alerts, err := checker.CheckOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRunFailure, alerts[0].Type)
	assert.Equal(t, int32(1), received.Load())
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 24}
	checker := NewChecker(NewCollector(&fakeRuns{}), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	checker := NewChecker(nil, nil, config.MonitoringConfig{})
	assert.Equal(t, 5*time.Minute, checker.interval())
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveRequest(boond.Production, "list", 200, 20*time.Millisecond)
	m.ObserveRequest(boond.Production, "list", 200, 30*time.Millisecond)
	m.ObserveRequest(boond.Sandbox, "create", 0, time.Millisecond)
	m.RecordOutcome(boond.Candidates, "created", 2)
	m.RecordOutcome(boond.Candidates, "skipped", 0)
	m.RecordRun("complete", 3*time.Second)
	m.BreakerChanged("sandbox", resilience.CircuitClosed, resilience.CircuitOpen)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues("production", "list", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("sandbox", "create", "0")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.SyncRecords.WithLabelValues("candidates", "created")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SyncRuns.WithLabelValues("complete")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BreakerState.WithLabelValues("sandbox")), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest(boond.Production, "get", 200, time.Millisecond)
	m.RecordOutcome(boond.Projects, "failed", 1)
	m.RecordRun("failed", time.Second)
	m.BreakerChanged("production", resilience.CircuitClosed, resilience.CircuitOpen)
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordRun("complete", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "boond_sync_runs_total"))
}
