package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffline/boond-sync/pkg/boond"
)

func candidate(id boond.ID, attrs map[string]any) boond.Record {
	return boond.Record{ID: id, Type: "candidate", Attributes: attrs}
}

func TestFindDuplicates_CasingAndWhitespace(t *testing.T) {
	records := []boond.Record{
		candidate(1, map[string]any{"firstName": "Ana", "lastName": "Lopez", "email1": "Ana.Lopez@Acme.fr"}),
		candidate(2, map[string]any{"firstName": "  ANA ", "lastName": "lópez", "email1": " ana.lopez@acme.fr"}),
		candidate(3, map[string]any{"firstName": "Marc", "lastName": "Durand", "email1": "marc@acme.fr"}),
		candidate(4, map[string]any{}),
		candidate(5, map[string]any{"firstName": " ", "email1": ""}),
	}

	groups := FindDuplicates(boond.Sandbox, boond.Candidates, records, nil)
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, boond.Candidates, g.Type)
	assert.Equal(t, boond.Sandbox, g.Environment)
	assert.Equal(t, []boond.Ref{
		{Environment: boond.Sandbox, Type: boond.Candidates, ID: 1},
		{Environment: boond.Sandbox, Type: boond.Candidates, ID: 2},
	}, g.Members)
	assert.Equal(t, "ana lopez", g.Key.Name)
	assert.Equal(t, "ana.lopez@acme.fr", g.Key.Email)
}

func TestFindDuplicates_EmptyKeysNeverGrouped(t *testing.T) {
	records := []boond.Record{
		candidate(1, map[string]any{"company": "Acme"}),
		candidate(2, map[string]any{"company": "ACME SAS"}),
	}
	assert.Empty(t, FindDuplicates(boond.Production, boond.Candidates, records, nil))
}

func TestFindDuplicates_FirstAppearanceOrder(t *testing.T) {
	records := []boond.Record{
		candidate(1, map[string]any{"lastName": "B", "phone1": "06 11 22 33 44"}),
		candidate(2, map[string]any{"lastName": "A", "phone1": "0611223355"}),
		candidate(3, map[string]any{"lastName": "A", "phone1": "+33 6 11 22 33 55"}),
		candidate(4, map[string]any{"lastName": "b", "phone1": "+33611223344"}),
		candidate(5, map[string]any{"lastName": "a", "mobile": "0033611223355"}),
	}

	groups := FindDuplicates(boond.Production, boond.Candidates, records, nil)
	require.Len(t, groups, 2)
	assert.Equal(t, boond.ID(1), groups[0].Members[0].ID)
	assert.Len(t, groups[0].Members, 2)
	assert.Equal(t, []boond.ID{2, 3, 5}, ids(groups[1].Members))
}

func TestFindDuplicates_CountryCode(t *testing.T) {
	records := []boond.Record{
		candidate(1, map[string]any{"lastName": "Weber", "phone1": "0621 123 456"}),
		candidate(2, map[string]any{"lastName": "Weber", "phone1": "+352 621 123 456"}),
	}
	assert.Empty(t, FindDuplicates(boond.Production, boond.Resources, records, nil))

	groups := Detector{CountryCode: "352"}.FindDuplicates(boond.Production, boond.Resources, records, nil)
	require.Len(t, groups, 1)
	assert.Equal(t, boond.Resources, groups[0].Type)
}

func TestKeyOf_ProjectCompanyFromIncluded(t *testing.T) {
	project := boond.Record{
		ID:         9,
		Type:       "project",
		Attributes: map[string]any{"reference": "PRJ-001"},
		Relationships: map[string]boond.Relationship{
			"company": {Data: []boond.Linkage{{ID: 4, Type: "company"}}},
		},
	}
	included := []boond.Record{{ID: 4, Type: "company", Attributes: map[string]any{"name": "Acme S.A.S."}}}

	k := KeyOf(boond.Projects, project, included)
	assert.Equal(t, Key{Name: "prj-001", Company: "acme"}, k)
	assert.False(t, k.IsEmpty())
	assert.Equal(t, "prj-001|||acme", k.String())
}

func TestContactOf_PrefersValidEmail(t *testing.T) {
	rec := candidate(1, map[string]any{"email1": "broken", "email2": "ok@acme.fr", "phone2": "0611"})
	c := ContactOf(boond.Candidates, rec, nil)
	assert.Equal(t, "ok@acme.fr", c.Email)
	assert.Equal(t, "0611", c.Phone)

	rec = candidate(2, map[string]any{"email1": "broken", "company": map[string]any{"id": 3}})
	c = ContactOf(boond.Candidates, rec, nil)
	assert.Equal(t, "broken", c.Email)
	assert.Empty(t, c.Company)
}

func ids(refs []boond.Ref) []boond.ID {
	out := make([]boond.ID, len(refs))
	for i, r := range refs {
		out[i] = r.ID
	}
	return out
}
