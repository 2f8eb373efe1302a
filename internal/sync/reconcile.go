package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/staffline/boond-sync/internal/model"
	"github.com/staffline/boond-sync/internal/normalize"
	"github.com/staffline/boond-sync/pkg/boond"
)

// link pairs a production record with its sandbox counterpart.
type link struct {
	productionID boond.ID
	sandboxID    boond.ID
}

// SyncProdToSandbox replicates production into sandbox: records without a
// counterpart are created, differing ones updated and equal ones skipped.
// Per-record failures are collected in the result and never abort the run.
// Cancelling ctx stops the run between records; writes already started
// complete and unreached records are reported as not attempted.
//
// The error is non-nil only when the run could not start.
func (s *Service) SyncProdToSandbox(ctx context.Context) (*Result, error) {
	prod, err := s.Client(boond.Production)
	if err != nil {
		return nil, err
	}
	sandbox, err := s.Client(boond.Sandbox)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.New().String(), StartedAt: s.now().UTC()}
	if s.store != nil {
		run, err := s.store.CreateRun(ctx)
		if err != nil {
			zap.L().Warn("sync: record run start", zap.Error(err))
		} else {
			res.RunID = run.ID
		}
	}
	log := zap.L().With(zap.String("run_id", res.RunID))
	log.Info("sync: starting production to sandbox run")

	var prodSnap, sandSnap *Snapshot
	var g errgroup.Group
	g.Go(func() error {
		prodSnap, _ = s.FetchAllData(ctx, boond.Production)
		return nil
	})
	g.Go(func() error {
		sandSnap, _ = s.FetchAllData(ctx, boond.Sandbox)
		return nil
	})
	_ = g.Wait()

	r := &reconciler{s: s, prod: prod, sandbox: sandbox, log: log}
	results := make([]*TypeResult, len(boond.ListableTypes))
	links := make([][]link, len(boond.ListableTypes))

	var passes errgroup.Group
	passes.SetLimit(s.concurrency)
	for i, rt := range boond.ListableTypes {
		passes.Go(func() error {
			results[i], links[i] = r.typePass(ctx, rt, prodSnap.Type(rt), sandSnap.Type(rt))
			return nil
		})
	}
	_ = passes.Wait()
	res.Types = results

	if s.includeDocuments {
		var docLinks []typedLink
		for i, rt := range boond.ListableTypes {
			if !rt.HasResumes() {
				continue
			}
			for _, l := range links[i] {
				docLinks = append(docLinks, typedLink{rt: rt, link: l})
			}
		}
		res.Types = append(res.Types, r.documentsPass(ctx, docLinks))
	}

	res.Cancelled = ctx.Err() != nil
	res.FinishedAt = s.now().UTC()
	res.total()
	s.finish(ctx, res)

	log.Info("sync: run finished",
		zap.Int("created", res.Totals.Created),
		zap.Int("updated", res.Totals.Updated),
		zap.Int("skipped", res.Totals.Skipped),
		zap.Int("failed", res.Totals.Failed),
		zap.Int("not_attempted", res.Totals.NotAttempted),
		zap.Bool("cancelled", res.Cancelled),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, nil
}

func (res *Result) status() model.RunStatus {
	if res.Cancelled {
		return model.RunStatusCancelled
	}
	fetched := false
	for _, t := range res.Types {
		if t.Type != boond.Documents && t.FetchError == "" {
			fetched = true
		}
	}
	if !fetched {
		return model.RunStatusFailed
	}
	return model.RunStatusComplete
}

// finish persists the run and records metrics.
func (s *Service) finish(ctx context.Context, res *Result) {
	status := res.status()
	for _, t := range res.Types {
		s.metrics.RecordOutcome(t.Type, OutcomeCreated, t.Created)
		s.metrics.RecordOutcome(t.Type, OutcomeUpdated, t.Updated)
		s.metrics.RecordOutcome(t.Type, OutcomeSkipped, t.Skipped)
		s.metrics.RecordOutcome(t.Type, OutcomeFailed, t.Failed)
		s.metrics.RecordOutcome(t.Type, OutcomeNotAttempted, t.NotAttempted)
	}
	s.metrics.RecordRun(string(status), res.FinishedAt.Sub(res.StartedAt))

	if s.store == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		zap.L().Warn("sync: encode run result", zap.String("run_id", res.RunID), zap.Error(err))
		return
	}
	var errMsg string
	if status == model.RunStatusFailed {
		errMsg = "no resource type could be listed"
	}
	if err := s.store.FinishRun(context.WithoutCancel(ctx), res.RunID, status, payload, errMsg); err != nil {
		zap.L().Warn("sync: record run result", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

type reconciler struct {
	s       *Service
	prod    boond.Client
	sandbox boond.Client
	log     *zap.Logger
}

func lockKey(rt boond.ResourceType, productionID boond.ID) string {
	return fmt.Sprintf("%s/%s/%d", boond.Sandbox, rt, productionID)
}

// typePass reconciles one resource type in listing order.
func (r *reconciler) typePass(ctx context.Context, rt boond.ResourceType, prodSnap, sandSnap *TypeSnapshot) (*TypeResult, []link) {
	tr := newTypeResult(rt)
	switch {
	case prodSnap == nil || sandSnap == nil:
		tr.FetchError = "snapshot missing"
		return tr, nil
	case prodSnap.err != nil:
		tr.FetchError = "production: " + prodSnap.Error
		return tr, nil
	case sandSnap.err != nil:
		// Matching against a partial sandbox listing would duplicate records.
		tr.FetchError = "sandbox: " + sandSnap.Error
		return tr, nil
	}

	m := newMatcher(ctx, r.s, rt, sandSnap)
	links := make([]link, 0, len(prodSnap.Records))
	for i, rec := range prodSnap.Records {
		if ctx.Err() != nil {
			tr.NotAttempted += len(prodSnap.Records) - i
			break
		}
		outcome, sandboxID, recErr := r.reconcileRecord(ctx, m, rt, rec, prodSnap.Included)
		switch outcome {
		case OutcomeCreated:
			tr.Created++
		case OutcomeUpdated:
			tr.Updated++
		case OutcomeSkipped:
			tr.Skipped++
		case OutcomeFailed:
			tr.fail(recErr)
			r.log.Debug("sync: record failed", zap.Error(recErr))
		}
		if sandboxID != 0 {
			links = append(links, link{productionID: rec.ID, sandboxID: sandboxID})
		}
	}

	r.log.Info("sync: type pass recorded",
		zap.String("type", string(rt)),
		zap.Int("created", tr.Created),
		zap.Int("updated", tr.Updated),
		zap.Int("skipped", tr.Skipped),
		zap.Int("failed", tr.Failed),
		zap.Int("not_attempted", tr.NotAttempted),
	)
	return tr, links
}

// reconcileRecord runs the decision window of one production record under
// its key lock. Writes use a context that ignores cancellation.
func (r *reconciler) reconcileRecord(ctx context.Context, m *matcher, rt boond.ResourceType, rec boond.Record, included []boond.Record) (string, boond.ID, *SyncRecordError) {
	unlock := r.s.locks.Lock(lockKey(rt, rec.ID))
	defer unlock()
	wctx := context.WithoutCancel(ctx)

	target, how, err := r.match(wctx, m, rt, rec, included)
	if err != nil {
		return OutcomeFailed, 0, newRecordError(rt, rec.ID, StageMatch, err)
	}

	if target == nil {
		attrs := createAttributes(rt, rec)
		if r.s.xrefField != "" {
			attrs[r.s.xrefField] = rec.ID.String()
		}
		ent, err := r.sandbox.Create(wctx, rt, attrs)
		if err != nil {
			return OutcomeFailed, 0, newRecordError(rt, rec.ID, StageCreate, err)
		}
		m.claim(ent.Data, rec.ID)
		r.remember(wctx, rt, rec.ID, ent.Data.ID)
		r.log.Debug("sync: created", zap.String("type", string(rt)),
			zap.Int64("production_id", int64(rec.ID)), zap.Int64("sandbox_id", int64(ent.Data.ID)))
		return OutcomeCreated, ent.Data.ID, nil
	}

	m.claim(*target, rec.ID)
	if how != matchStored {
		r.remember(wctx, rt, rec.ID, target.ID)
	}

	diff := changedFields(rt, rec, *target)
	if len(diff) == 0 {
		return OutcomeSkipped, target.ID, nil
	}
	if r.s.xrefField != "" && strings.TrimSpace(target.Attr(r.s.xrefField)) != rec.ID.String() {
		diff[r.s.xrefField] = rec.ID.String()
	}
	if _, err := r.sandbox.Update(wctx, rt, target.ID, diff); err != nil {
		e := newRecordError(rt, rec.ID, StageUpdate, err)
		e.SandboxID = target.ID
		return OutcomeFailed, target.ID, e
	}
	r.log.Debug("sync: updated", zap.String("type", string(rt)),
		zap.Int64("production_id", int64(rec.ID)), zap.Int64("sandbox_id", int64(target.ID)),
		zap.String("matched_by", how), zap.Int("fields", len(diff)))
	return OutcomeUpdated, target.ID, nil
}

// match resolves the sandbox counterpart: the stored cross-reference
// (re-read inside the lock), then the cross-reference attribute, then the
// normalized key. A nil record means none exists.
func (r *reconciler) match(ctx context.Context, m *matcher, rt boond.ResourceType, rec boond.Record, included []boond.Record) (*boond.Record, string, error) {
	x, err := r.s.xrefs.GetXref(ctx, rt, rec.ID)
	if err != nil {
		return nil, "", err
	}
	if x != nil {
		if target, ok := m.byID[x.SandboxID]; ok {
			return &target, matchStored, nil
		}
		// Created after the snapshot, possibly by a concurrent run.
		ent, err := r.sandbox.Get(ctx, rt, x.SandboxID, boond.ViewDefault)
		switch {
		case err == nil:
			return &ent.Data, matchStored, nil
		case boond.IsNotFound(err):
			r.log.Debug("sync: stale cross-reference", zap.String("type", string(rt)),
				zap.Int64("production_id", int64(rec.ID)), zap.Int64("sandbox_id", int64(x.SandboxID)))
			delete(m.reserved, x.SandboxID)
		default:
			return nil, "", err
		}
	}

	if target, how, ok := m.byAttributes(rec, included); ok {
		return &target, how, nil
	}
	return nil, "", nil
}

func (r *reconciler) remember(ctx context.Context, rt boond.ResourceType, productionID, sandboxID boond.ID) {
	if err := r.s.xrefs.PutXref(ctx, rt, productionID, sandboxID); err != nil {
		r.log.Warn("sync: store cross-reference", zap.String("type", string(rt)),
			zap.Int64("production_id", int64(productionID)), zap.Error(err))
	}
}

type typedLink struct {
	rt boond.ResourceType
	link
}

// documentsPass copies resumes missing from each sandbox counterpart. A
// resume counts as present when its stored cross-reference points at a
// sandbox resume of the counterpart, or when a sandbox resume has the same
// normalized file name.
func (r *reconciler) documentsPass(ctx context.Context, links []typedLink) *TypeResult {
	tr := newTypeResult(boond.Documents)
	for i, l := range links {
		if ctx.Err() != nil {
			tr.ParentsNotAttempted = len(links) - i
			break
		}
		r.copyResumes(ctx, tr, l)
	}
	r.log.Info("sync: type pass recorded",
		zap.String("type", string(boond.Documents)),
		zap.Int("created", tr.Created),
		zap.Int("skipped", tr.Skipped),
		zap.Int("failed", tr.Failed),
		zap.Int("not_attempted", tr.NotAttempted),
		zap.Int("parents_not_attempted", tr.ParentsNotAttempted),
	)
	return tr
}

func (r *reconciler) copyResumes(ctx context.Context, tr *TypeResult, l typedLink) {
	wctx := context.WithoutCancel(ctx)
	fail := func(stage string, docID boond.ID, err error) {
		e := newRecordError(l.rt, l.productionID, stage, err)
		e.SandboxID = l.sandboxID
		e.DocumentID = docID
		tr.fail(e)
	}

	docs, err := r.prod.GetResumes(wctx, l.rt, l.productionID)
	if err != nil {
		fail(StageResumes, 0, err)
		return
	}
	if len(docs) == 0 {
		return
	}
	existing, err := r.sandbox.GetResumes(wctx, l.rt, l.sandboxID)
	if err != nil {
		fail(StageResumes, 0, err)
		return
	}
	present := make(map[string]boond.ID, len(existing))
	onSandbox := make(map[boond.ID]bool, len(existing))
	for _, d := range existing {
		onSandbox[d.ID] = true
		if name := normalize.Name(d.Name); name != "" {
			present[name] = d.ID
		}
	}

	for i, doc := range docs {
		if ctx.Err() != nil {
			tr.NotAttempted += len(docs) - i
			return
		}
		x, err := r.s.xrefs.GetXref(wctx, boond.Documents, doc.ID)
		if err != nil {
			fail(StageMatch, doc.ID, err)
			continue
		}
		if x != nil && onSandbox[x.SandboxID] {
			tr.Skipped++
			continue
		}
		if id, ok := present[normalize.Name(doc.Name)]; ok && doc.Name != "" {
			r.remember(wctx, boond.Documents, doc.ID, id)
			tr.Skipped++
			continue
		}

		content, err := r.prod.DownloadDocument(wctx, doc.ID)
		if err != nil {
			fail(StageDownload, doc.ID, err)
			continue
		}
		if doc.Name != "" {
			content.Name = doc.Name
		}
		// Listings may omit names; the downloaded file always carries one.
		if id, ok := present[normalize.Name(content.Name)]; ok && content.Name != "" {
			r.remember(wctx, boond.Documents, doc.ID, id)
			tr.Skipped++
			continue
		}
		uploaded, err := r.sandbox.UploadDocument(wctx, l.rt, l.sandboxID, *content)
		if err != nil {
			fail(StageUpload, doc.ID, err)
			continue
		}
		if name := normalize.Name(content.Name); name != "" {
			present[name] = uploaded.ID
		}
		onSandbox[uploaded.ID] = true
		r.remember(wctx, boond.Documents, doc.ID, uploaded.ID)
		tr.Created++
	}
}
