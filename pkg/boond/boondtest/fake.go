// Package boondtest provides an in-memory BoondManager environment that
// implements boond.Client for tests.
package boondtest

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/staffline/boond-sync/pkg/boond"
)

// Call identifies one operation against the fake, for failure injection and
// call counting.
type Call struct {
	Op   string // get, list, resumes, download, create, update, upload
	Type boond.ResourceType
	ID   boond.ID
}

type storedDoc struct {
	meta    boond.Document
	content boond.DocumentContent
}

// Fake is a concurrency-safe in-memory CRM environment.
type Fake struct {
	env boond.Environment

	mu      sync.Mutex
	nextID  boond.ID
	records map[boond.ResourceType]map[boond.ID]boond.Record
	docs    map[boond.ID]storedDoc
	calls   map[string]int

	// Fail, when set, is consulted before every operation; a non-nil error
	// is returned instead of performing it.
	Fail func(Call) error
	// BeforeCall, when set, runs before every operation (after Fail).
	BeforeCall func(Call)
}

var _ boond.Client = (*Fake)(nil)

// New returns an empty environment. Ids start at 1000 so they never collide
// with small hand-picked ids in fixtures.
func New(env boond.Environment) *Fake {
	return &Fake{
		env:     env,
		nextID:  1000,
		records: make(map[boond.ResourceType]map[boond.ID]boond.Record),
		docs:    make(map[boond.ID]storedDoc),
		calls:   make(map[string]int),
	}
}

// Forbidden returns the error the real client produces on a 403.
func Forbidden(env boond.Environment) error {
	return &boond.APIError{Kind: boond.ErrPermission, Environment: env, StatusCode: 403, Message: "access denied"}
}

// Put stores a record with a fixed id, replacing any previous one.
func (f *Fake) Put(rt boond.ResourceType, id boond.ID, attrs map[string]any) boond.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.put(rt, id, attrs)
}

func (f *Fake) put(rt boond.ResourceType, id boond.ID, attrs map[string]any) boond.Record {
	if f.records[rt] == nil {
		f.records[rt] = make(map[boond.ID]boond.Record)
	}
	rec := boond.Record{ID: id, Type: string(rt), Attributes: maps.Clone(attrs)}
	if rec.Attributes == nil {
		rec.Attributes = map[string]any{}
	}
	f.records[rt][id] = rec
	if id >= f.nextID {
		f.nextID = id + 1
	}
	return rec
}

// AttachResume stores a resume document under a candidate or resource.
func (f *Fake) AttachResume(rt boond.ResourceType, parentID boond.ID, name string, data []byte) boond.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attach(rt, parentID, boond.DocumentContent{Name: name, MIMEType: "application/pdf", Data: data})
}

func (f *Fake) attach(rt boond.ResourceType, parentID boond.ID, content boond.DocumentContent) boond.ID {
	id := f.nextID
	f.nextID++
	f.docs[id] = storedDoc{
		meta:    boond.Document{ID: id, Name: content.Name, ParentType: rt, ParentID: parentID},
		content: content,
	}
	return id
}

// Records returns the stored records of rt in id order.
func (f *Fake) Records(rt boond.ResourceType) []boond.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(rt)
}

func (f *Fake) sorted(rt boond.ResourceType) []boond.Record {
	out := make([]boond.Record, 0, len(f.records[rt]))
	for _, r := range f.records[rt] {
		out = append(out, cloneRecord(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Record returns one stored record.
func (f *Fake) Record(rt boond.ResourceType, id boond.ID) (boond.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[rt][id]
	return cloneRecord(r), ok
}

// Resumes returns the documents attached to a parent.
func (f *Fake) Resumes(rt boond.ResourceType, parentID boond.ID) []boond.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumes(rt, parentID)
}

func (f *Fake) resumes(rt boond.ResourceType, parentID boond.ID) []boond.Document {
	out := []boond.Document{}
	for _, d := range f.docs {
		if d.meta.ParentType == rt && d.meta.ParentID == parentID {
			out = append(out, d.meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Calls returns how many times op was invoked, failed calls included.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Fake) enter(c Call) error {
	f.mu.Lock()
	f.calls[c.Op]++
	f.mu.Unlock()
	if f.Fail != nil {
		if err := f.Fail(c); err != nil {
			return err
		}
	}
	if f.BeforeCall != nil {
		f.BeforeCall(c)
	}
	return nil
}

func (f *Fake) notFound(rt boond.ResourceType, id boond.ID) error {
	return &boond.APIError{Kind: boond.ErrNotFound, Environment: f.env, StatusCode: 404, Message: string(rt) + " " + id.String()}
}

func (f *Fake) Environment() boond.Environment { return f.env }

func (f *Fake) Get(_ context.Context, rt boond.ResourceType, id boond.ID, view boond.DetailView) (*boond.Entity, error) {
	if !view.Supports(rt) {
		return nil, &boond.APIError{Kind: boond.ErrValidation, Message: "unsupported view"}
	}
	if err := f.enter(Call{Op: "get", Type: rt, ID: id}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[rt][id]
	if !ok {
		return nil, f.notFound(rt, id)
	}
	return &boond.Entity{Data: cloneRecord(r)}, nil
}

func (f *Fake) List(_ context.Context, rt boond.ResourceType, filter boond.ListFilter) (*boond.Page, error) {
	filter = filter.WithDefaults()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if !rt.Listable() {
		return nil, &boond.APIError{Kind: boond.ErrValidation, Message: string(rt) + " cannot be listed"}
	}
	if err := f.enter(Call{Op: "list", Type: rt}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	all := f.sorted(rt)
	start := (filter.Page - 1) * filter.MaxResults
	page := &boond.Page{
		Data: []boond.Record{},
		Meta: boond.Meta{Totals: boond.Totals{Rows: len(all)}, Page: filter.Page, MaxResults: filter.MaxResults},
	}
	if start < len(all) {
		end := min(start+filter.MaxResults, len(all))
		page.Data = all[start:end]
	}
	return page, nil
}

func (f *Fake) GetResumes(_ context.Context, rt boond.ResourceType, id boond.ID) ([]boond.Document, error) {
	if !rt.HasResumes() {
		return nil, &boond.APIError{Kind: boond.ErrValidation, Message: string(rt) + " do not carry resumes"}
	}
	if err := f.enter(Call{Op: "resumes", Type: rt, ID: id}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[rt][id]; !ok {
		return nil, f.notFound(rt, id)
	}
	return f.resumes(rt, id), nil
}

func (f *Fake) DownloadDocument(_ context.Context, id boond.ID) (*boond.DocumentContent, error) {
	if err := f.enter(Call{Op: "download", Type: boond.Documents, ID: id}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return nil, f.notFound(boond.Documents, id)
	}
	c := d.content
	c.Data = append([]byte(nil), c.Data...)
	return &c, nil
}

func (f *Fake) Create(_ context.Context, rt boond.ResourceType, attrs map[string]any) (*boond.Entity, error) {
	if err := f.enter(Call{Op: "create", Type: rt}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.put(rt, f.nextID, attrs)
	return &boond.Entity{Data: cloneRecord(rec)}, nil
}

func (f *Fake) Update(_ context.Context, rt boond.ResourceType, id boond.ID, attrs map[string]any) (*boond.Entity, error) {
	if err := f.enter(Call{Op: "update", Type: rt, ID: id}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[rt][id]
	if !ok {
		return nil, f.notFound(rt, id)
	}
	maps.Copy(r.Attributes, attrs)
	f.records[rt][id] = r
	return &boond.Entity{Data: cloneRecord(r)}, nil
}

func (f *Fake) UploadDocument(_ context.Context, parentType boond.ResourceType, parentID boond.ID, content boond.DocumentContent) (*boond.Document, error) {
	if parentType.ResumeParentType() == "" {
		return nil, &boond.APIError{Kind: boond.ErrValidation, Message: "unsupported parent type"}
	}
	if err := f.enter(Call{Op: "upload", Type: parentType, ID: parentID}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[parentType][parentID]; !ok {
		return nil, f.notFound(parentType, parentID)
	}
	content.Data = append([]byte(nil), content.Data...)
	id := f.attach(parentType, parentID, content)
	meta := f.docs[id].meta
	return &meta, nil
}

func cloneRecord(r boond.Record) boond.Record {
	r.Attributes = maps.Clone(r.Attributes)
	r.Relationships = maps.Clone(r.Relationships)
	return r
}
