package sync

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/staffline/boond-sync/internal/dedupe"
	"github.com/staffline/boond-sync/internal/normalize"
	"github.com/staffline/boond-sync/pkg/boond"
)

var contactFields = []string{
	"civility", "firstName", "lastName", "title",
	"email1", "email2", "email3", "phone1", "phone2", "mobile",
	"address", "postcode", "town", "country",
}

// trackedFields are the attributes copied on create and compared to decide
// between update and skip.
var trackedFields = map[boond.ResourceType][]string{
	boond.Candidates: append(append([]string{}, contactFields...), "availability", "typeOf"),
	boond.Resources:  append(append([]string{}, contactFields...), "reference", "typeOf"),
	boond.Projects:   {"reference", "title", "typeOf", "mode", "startDate", "endDate", "state"},
}

func sameValue(field, a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if strings.HasPrefix(field, "email") {
		return normalize.Email(a) == normalize.Email(b)
	}
	return a == b
}

// changedFields returns the tracked production attributes whose value
// differs in the sandbox record. Attributes absent in production are left
// alone.
func changedFields(rt boond.ResourceType, prod, sandbox boond.Record) map[string]any {
	diff := map[string]any{}
	for _, f := range trackedFields[rt] {
		v, ok := prod.Attributes[f]
		if !ok {
			continue
		}
		if !sameValue(f, prod.Attr(f), sandbox.Attr(f)) {
			diff[f] = v
		}
	}
	return diff
}

// createAttributes copies the tracked production attributes.
func createAttributes(rt boond.ResourceType, prod boond.Record) map[string]any {
	attrs := map[string]any{}
	for _, f := range trackedFields[rt] {
		if v, ok := prod.Attributes[f]; ok {
			attrs[f] = v
		}
	}
	return attrs
}

// Match methods, in precedence order.
const (
	matchStored = "stored_xref"
	matchField  = "xref_field"
	matchKey    = "key"
)

// matcher finds the sandbox counterpart of production records of one type.
// It is used by a single goroutine.
type matcher struct {
	rt        boond.ResourceType
	detector  dedupe.Detector
	xrefField string

	byID    map[boond.ID]boond.Record
	byField map[string][]boond.ID
	byKey   map[dedupe.Key][]boond.ID
	// claimed sandbox records are taken by a production record already.
	claimed map[boond.ID]bool
	// reserved sandbox records belong to the production id stored for them.
	reserved map[boond.ID]boond.ID
}

func newMatcher(ctx context.Context, s *Service, rt boond.ResourceType, sandbox *TypeSnapshot) *matcher {
	m := &matcher{
		rt:        rt,
		detector:  s.detector,
		xrefField: s.xrefField,
		byID:      make(map[boond.ID]boond.Record, len(sandbox.Records)),
		byField:   make(map[string][]boond.ID),
		byKey:     make(map[dedupe.Key][]boond.ID),
		claimed:   make(map[boond.ID]bool),
		reserved:  make(map[boond.ID]boond.ID),
	}
	for _, rec := range sandbox.Records {
		m.byID[rec.ID] = rec
		if m.xrefField != "" {
			if v := strings.TrimSpace(rec.Attr(m.xrefField)); v != "" {
				m.byField[v] = append(m.byField[v], rec.ID)
			}
		}
		if k := m.detector.KeyOf(rt, rec, sandbox.Included); !k.IsEmpty() {
			m.byKey[k] = append(m.byKey[k], rec.ID)
		}
	}

	xs, err := s.xrefs.ListXrefs(ctx, rt)
	if err != nil {
		zap.L().Warn("sync: list cross-references", zap.String("type", string(rt)), zap.Error(err))
	}
	for _, x := range xs {
		m.reserved[x.SandboxID] = x.ProductionID
	}
	return m
}

func (m *matcher) available(sandboxID, productionID boond.ID) bool {
	if m.claimed[sandboxID] {
		return false
	}
	owner, ok := m.reserved[sandboxID]
	return !ok || owner == productionID
}

func (m *matcher) first(ids []boond.ID, productionID boond.ID) (boond.Record, bool) {
	for _, id := range ids {
		if m.available(id, productionID) {
			return m.byID[id], true
		}
	}
	return boond.Record{}, false
}

// byAttributes matches on the cross-reference attribute, then on the
// normalized key.
func (m *matcher) byAttributes(prod boond.Record, prodIncluded []boond.Record) (boond.Record, string, bool) {
	if m.xrefField != "" {
		if rec, ok := m.first(m.byField[prod.ID.String()], prod.ID); ok {
			return rec, matchField, true
		}
	}
	if k := m.detector.KeyOf(m.rt, prod, prodIncluded); !k.IsEmpty() {
		if rec, ok := m.first(m.byKey[k], prod.ID); ok {
			return rec, matchKey, true
		}
	}
	return boond.Record{}, "", false
}

func (m *matcher) claim(rec boond.Record, productionID boond.ID) {
	m.byID[rec.ID] = rec
	m.claimed[rec.ID] = true
	m.reserved[rec.ID] = productionID
}
