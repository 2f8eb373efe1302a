package sync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/staffline/boond-sync/internal/model"
	"github.com/staffline/boond-sync/pkg/boond"
)

type xrefKey struct {
	rt boond.ResourceType
	id boond.ID
}

// memXrefs is the process-local cross-reference table used when no store
// is configured.
type memXrefs struct {
	mu sync.Mutex
	m  map[xrefKey]model.Xref
}

func newMemXrefs() *memXrefs {
	return &memXrefs{m: make(map[xrefKey]model.Xref)}
}

func (x *memXrefs) GetXref(_ context.Context, rt boond.ResourceType, productionID boond.ID) (*model.Xref, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	v, ok := x.m[xrefKey{rt, productionID}]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (x *memXrefs) PutXref(_ context.Context, rt boond.ResourceType, productionID, sandboxID boond.ID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	now := time.Now().UTC()
	k := xrefKey{rt, productionID}
	v, ok := x.m[k]
	if !ok {
		v = model.Xref{Type: rt, ProductionID: productionID, CreatedAt: now}
	}
	v.SandboxID = sandboxID
	v.UpdatedAt = now
	x.m[k] = v
	return nil
}

func (x *memXrefs) ListXrefs(_ context.Context, rt boond.ResourceType) ([]model.Xref, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := []model.Xref{}
	for k, v := range x.m {
		if k.rt == rt {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductionID < out[j].ProductionID })
	return out, nil
}

func (x *memXrefs) DeleteXref(_ context.Context, rt boond.ResourceType, productionID boond.ID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.m, xrefKey{rt, productionID})
	return nil
}
