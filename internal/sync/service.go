// Package sync fetches environment snapshots, analyzes their quality and
// replicates production into sandbox.
package sync

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/staffline/boond-sync/internal/dedupe"
	"github.com/staffline/boond-sync/internal/monitoring"
	"github.com/staffline/boond-sync/internal/quality"
	"github.com/staffline/boond-sync/internal/store"
	"github.com/staffline/boond-sync/pkg/boond"
)

const (
	defaultPageSize    = 100
	defaultConcurrency = 3
)

// Service coordinates the per-environment clients. Construct it once at
// process start and share it.
type Service struct {
	clients map[boond.Environment]boond.Client

	store            store.Store
	xrefs            store.XrefStore
	pageSize         int
	concurrency      int
	includeDocuments bool
	xrefField        string
	detector         dedupe.Detector
	metrics          *monitoring.Metrics
	now              func() time.Time

	locks *keyedLocker
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists cross-references and runs. A nil store keeps
// cross-references in memory for the life of the Service.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
			s.xrefs = st
		}
	}
}

// WithPageSize sets the listing page size used for snapshots.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithConcurrency bounds how many resource types are processed at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDocuments toggles resume replication.
func WithDocuments(enabled bool) Option {
	return func(s *Service) { s.includeDocuments = enabled }
}

// WithXrefField names a sandbox attribute that stores the production id of
// the record it was copied from.
func WithXrefField(name string) Option {
	return func(s *Service) { s.xrefField = name }
}

// WithCountryCode sets the country assumed for national phone numbers when
// building comparison keys.
func WithCountryCode(cc string) Option {
	return func(s *Service) { s.detector.CountryCode = cc }
}

// WithMetrics records outcomes and runs.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over one client per environment.
func New(clients map[boond.Environment]boond.Client, opts ...Option) *Service {
	s := &Service{
		clients:          clients,
		xrefs:            newMemXrefs(),
		pageSize:         defaultPageSize,
		concurrency:      defaultConcurrency,
		includeDocuments: true,
		now:              time.Now,
		locks:            newKeyedLocker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the client of env.
func (s *Service) Client(env boond.Environment) (boond.Client, error) {
	c, ok := s.clients[env]
	if !ok || c == nil {
		return nil, &boond.APIError{Kind: boond.ErrValidation, Environment: env, Message: "environment not configured"}
	}
	return c, nil
}

// Store returns the configured store, or nil.
func (s *Service) Store() store.Store { return s.store }

// TypeSnapshot is the full listing of one resource type.
type TypeSnapshot struct {
	Type     boond.ResourceType `json:"type"`
	Records  []boond.Record     `json:"records"`
	Included []boond.Record     `json:"included,omitempty"`
	Error    string             `json:"error,omitempty"`

	err error
}

// Err is the fetch failure of the type, if any. Records may then be
// partial.
func (t *TypeSnapshot) Err() error { return t.err }

// Snapshot holds every listable type of one environment.
type Snapshot struct {
	Environment boond.Environment `json:"environment"`
	FetchedAt   time.Time         `json:"fetchedAt"`
	Types       []*TypeSnapshot   `json:"types"`
}

// Type returns the snapshot of rt, or nil.
func (s *Snapshot) Type(rt boond.ResourceType) *TypeSnapshot {
	for _, t := range s.Types {
		if t.Type == rt {
			return t
		}
	}
	return nil
}

// Complete reports whether every type was fully listed.
func (s *Snapshot) Complete() bool {
	for _, t := range s.Types {
		if t.err != nil {
			return false
		}
	}
	return true
}

// FetchAllData lists every listable type of env. Types are fetched
// concurrently; a failing type does not stop the others. The returned
// error joins the per-type failures and accompanies the partial snapshot.
func (s *Service) FetchAllData(ctx context.Context, env boond.Environment) (*Snapshot, error) {
	c, err := s.Client(env)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Environment: env, FetchedAt: s.now().UTC()}
	for _, rt := range boond.ListableTypes {
		snap.Types = append(snap.Types, &TypeSnapshot{Type: rt, Records: []boond.Record{}})
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, ts := range snap.Types {
		g.Go(func() error {
			s.fetchType(ctx, c, ts)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, ts := range snap.Types {
		if ts.err != nil {
			errs = append(errs, eris.Wrapf(ts.err, "sync: fetch %s %s", env, ts.Type))
		}
	}
	return snap, errors.Join(errs...)
}

func (s *Service) fetchType(ctx context.Context, c boond.Client, ts *TypeSnapshot) {
	start := s.now()
	err := boond.ListAll(ctx, c, ts.Type, s.pageSize, func(p *boond.Page) error {
		ts.Records = append(ts.Records, p.Data...)
		ts.Included = append(ts.Included, p.Included...)
		return nil
	})
	if err != nil {
		ts.err = err
		ts.Error = err.Error()
	}
	zap.L().Debug("sync: fetched type",
		zap.String("environment", string(c.Environment())),
		zap.String("type", string(ts.Type)),
		zap.Int("records", len(ts.Records)),
		zap.Duration("elapsed", s.now().Sub(start)),
		zap.Error(err),
	)
}

// AnalyzeAllDataQuality fetches env and reports on every listable type.
// Types that could not be listed are named in FetchErrors and analyzed on
// whatever was fetched. An error is returned only when no type could be
// listed at all.
func (s *Service) AnalyzeAllDataQuality(ctx context.Context, env boond.Environment) (*quality.EnvironmentReport, error) {
	snap, err := s.FetchAllData(ctx, env)
	if snap == nil {
		return nil, err
	}

	analyzer := quality.Analyzer{Detector: s.detector}
	rep := &quality.EnvironmentReport{
		Environment: env,
		GeneratedAt: s.now().UTC(),
		Reports:     make([]quality.Report, 0, len(snap.Types)),
	}
	failed := 0
	var firstErr error
	for _, ts := range snap.Types {
		if ts.err != nil {
			failed++
			if firstErr == nil {
				firstErr = ts.err
			}
			if rep.FetchErrors == nil {
				rep.FetchErrors = make(map[boond.ResourceType]string)
			}
			rep.FetchErrors[ts.Type] = ts.Error
		}
		rep.Reports = append(rep.Reports, analyzer.Analyze(env, ts.Type, ts.Records, ts.Included))
	}
	if failed == len(snap.Types) {
		return nil, eris.Wrapf(firstErr, "sync: analyze %s", env)
	}
	return rep, nil
}
