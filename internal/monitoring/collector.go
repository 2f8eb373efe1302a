package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/staffline/boond-sync/internal/model"
	"github.com/staffline/boond-sync/internal/store"
)

// MetricsSnapshot holds a point-in-time view of reconciliation health.
type MetricsSnapshot struct {
	// Run metrics (within lookback window).
	RunsTotal     int     `json:"runs_total"`
	RunsComplete  int     `json:"runs_complete"`
	RunsFailed    int     `json:"runs_failed"`
	RunsCancelled int     `json:"runs_cancelled"`
	RunsRunning   int     `json:"runs_running"`
	RunFailRate   float64 `json:"run_fail_rate"`

	// Record metrics summed over the finished runs' results.
	RecordsAttempted   int     `json:"records_attempted"`
	RecordsFailed      int     `json:"records_failed"`
	RecordFailRate     float64 `json:"record_fail_rate"`
	PermissionFailures int     `json:"permission_failures"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from persisted sync runs.
type Collector struct {
	runs store.RunStore
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs store.RunStore) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusCancelled:
			snap.RunsCancelled++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		if len(r.Result) == 0 || !gjson.ValidBytes(r.Result) {
			continue
		}
		res := gjson.ParseBytes(r.Result)
		totals := res.Get("totals")
		failed := int(totals.Get("failed").Int())
		snap.RecordsFailed += failed
		snap.RecordsAttempted += failed +
			int(totals.Get("created").Int()) +
			int(totals.Get("updated").Int()) +
			int(totals.Get("skipped").Int())
		res.Get("types").ForEach(func(_, typ gjson.Result) bool {
			typ.Get("failures").ForEach(func(_, f gjson.Result) bool {
				if f.Get("permission").Bool() {
					snap.PermissionFailures++
				}
				return true
			})
			return true
		})
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.RecordsAttempted > 0 {
		snap.RecordFailRate = float64(snap.RecordsFailed) / float64(snap.RecordsAttempted)
	}
	return snap, nil
}
