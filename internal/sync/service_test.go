package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffline/boond-sync/internal/quality"
	"github.com/staffline/boond-sync/pkg/boond"
	"github.com/staffline/boond-sync/pkg/boond/boondtest"
)

func jsonField(t *testing.T, raw []byte, field string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return string(m[field])
}

func TestFetchAllData_Paginates(t *testing.T) {
	prod := boondtest.New(boond.Production)
	for id := boond.ID(1); id <= 5; id++ {
		prod.Put(boond.Candidates, id, map[string]any{"lastName": id.String()})
	}
	prod.Put(boond.Projects, 9, map[string]any{"reference": "P9"})
	svc := New(map[boond.Environment]boond.Client{boond.Production: prod}, WithPageSize(2))

	snap, err := svc.FetchAllData(context.Background(), boond.Production)
	require.NoError(t, err)
	assert.True(t, snap.Complete())
	assert.Equal(t, boond.Production, snap.Environment)
	require.Len(t, snap.Types, 3)
	assert.Len(t, snap.Type(boond.Candidates).Records, 5)
	assert.Empty(t, snap.Type(boond.Resources).Records)
	assert.NotNil(t, snap.Type(boond.Resources).Records)
	assert.Len(t, snap.Type(boond.Projects).Records, 1)
	assert.Nil(t, snap.Type(boond.Documents))
	// 3 candidate pages, 1 empty resource page, 1 short project page.
	assert.Equal(t, 5, prod.Calls("list"))
}

func TestFetchAllData_PartialFailure(t *testing.T) {
	prod := boondtest.New(boond.Production)
	prod.Put(boond.Candidates, 1, map[string]any{"lastName": "A"})
	prod.Fail = func(c boondtest.Call) error {
		if c.Op == "list" && c.Type == boond.Resources {
			return boondtest.Forbidden(boond.Production)
		}
		return nil
	}
	svc := New(map[boond.Environment]boond.Client{boond.Production: prod})

	snap, err := svc.FetchAllData(context.Background(), boond.Production)
	require.Error(t, err)
	assert.True(t, boond.IsPermission(err))
	require.NotNil(t, snap)
	assert.False(t, snap.Complete())
	assert.Len(t, snap.Type(boond.Candidates).Records, 1)
	assert.NotEmpty(t, snap.Type(boond.Resources).Error)
	assert.True(t, boond.IsPermission(snap.Type(boond.Resources).Err()))
}

func TestFetchAllData_UnconfiguredEnvironment(t *testing.T) {
	svc := New(map[boond.Environment]boond.Client{boond.Sandbox: boondtest.New(boond.Sandbox)})
	_, err := svc.FetchAllData(context.Background(), boond.Production)
	assert.True(t, boond.IsValidation(err))
}

func TestAnalyzeAllDataQuality(t *testing.T) {
	sandbox := boondtest.New(boond.Sandbox)
	sandbox.Put(boond.Candidates, 1, map[string]any{"firstName": "Ana", "lastName": "Lopez", "email1": "ana@acme.fr"})
	sandbox.Put(boond.Candidates, 2, map[string]any{"firstName": " ana ", "lastName": "LOPEZ", "email1": "Ana@Acme.fr"})
	sandbox.Put(boond.Candidates, 3, map[string]any{"firstName": "Bob", "lastName": "Martin"})
	sandbox.Fail = func(c boondtest.Call) error {
		if c.Op == "list" && c.Type == boond.Projects {
			return boondtest.Forbidden(boond.Sandbox)
		}
		return nil
	}
	svc := New(map[boond.Environment]boond.Client{boond.Sandbox: sandbox})

	rep, err := svc.AnalyzeAllDataQuality(context.Background(), boond.Sandbox)
	require.NoError(t, err)
	assert.Equal(t, boond.Sandbox, rep.Environment)
	require.Len(t, rep.Reports, 3)

	cand := rep.Reports[0]
	assert.Equal(t, boond.Candidates, cand.Type)
	assert.Equal(t, 3, cand.Total)
	assert.Equal(t, 2, cand.Duplicated)
	require.Len(t, cand.Groups, 1)
	assert.Equal(t, 1, cand.MissingContact)
	assert.Equal(t, 1, cand.Incomplete)

	assert.Contains(t, rep.FetchErrors, boond.Projects)
	assert.NotContains(t, rep.FetchErrors, boond.Candidates)
}

func TestAnalyzeAllDataQuality_AllTypesFail(t *testing.T) {
	sandbox := boondtest.New(boond.Sandbox)
	sandbox.Fail = func(boondtest.Call) error { return boondtest.Forbidden(boond.Sandbox) }
	svc := New(map[boond.Environment]boond.Client{boond.Sandbox: sandbox})

	rep, err := svc.AnalyzeAllDataQuality(context.Background(), boond.Sandbox)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, boond.IsPermission(err))
}

func TestAnalyzeAllDataQuality_CountryCode(t *testing.T) {
	env := boondtest.New(boond.Production)
	env.Put(boond.Resources, 1, map[string]any{"firstName": "Léa", "lastName": "Roux", "phone1": "0621 123 456"})
	env.Put(boond.Resources, 2, map[string]any{"firstName": "Lea", "lastName": "Roux", "mobile": "+352 621 123 456"})

	rep, err := New(map[boond.Environment]boond.Client{boond.Production: env}, WithCountryCode("352")).
		AnalyzeAllDataQuality(context.Background(), boond.Production)
	require.NoError(t, err)

	var res quality.Report
	for _, r := range rep.Reports {
		if r.Type == boond.Resources {
			res = r
		}
	}
	require.Len(t, res.Groups, 1)
	assert.Len(t, res.Groups[0].Members, 2)
}
