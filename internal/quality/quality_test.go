package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffline/boond-sync/pkg/boond"
)

func rec(id boond.ID, attrs map[string]any) boond.Record {
	return boond.Record{ID: id, Attributes: attrs}
}

func findIssues(t *testing.T, rep Report, id boond.ID) RecordIssues {
	t.Helper()
	for _, r := range rep.Records {
		if r.Ref.ID == id {
			return r
		}
	}
	t.Fatalf("record %d has no issues", id)
	return RecordIssues{}
}

func TestAnalyze_MissingContact(t *testing.T) {
	records := []boond.Record{
		rec(1, map[string]any{"firstName": "Ana", "lastName": "Lopez"}),
		rec(2, map[string]any{"firstName": "Marc", "lastName": "Durand", "email1": "marc@acme.fr"}),
	}

	rep := AnalyzeDataQuality(boond.Production, boond.Candidates, records, nil)
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 1, rep.Incomplete)
	assert.Equal(t, 1, rep.Complete)
	assert.Equal(t, 1, rep.MissingContact)
	assert.InDelta(t, 0.5, rep.CompletenessRate(), 1e-9)

	require.Len(t, rep.Records, 1)
	assert.True(t, findIssues(t, rep, 1).Has(MissingContact))
}

func TestAnalyze_InvalidFieldsFlaggedSeparately(t *testing.T) {
	records := []boond.Record{
		rec(1, map[string]any{"lastName": "Weber", "email1": "not-an-email", "phone1": "+352 621 123 456"}),
		rec(2, map[string]any{"lastName": "Roux", "email1": "roux@acme.fr", "phone1": "abc12"}),
		rec(3, map[string]any{"email1": "x", "phone1": "12"}),
	}

	rep := AnalyzeDataQuality(boond.Sandbox, boond.Resources, records, nil)
	assert.Equal(t, 2, rep.InvalidEmail)
	assert.Equal(t, 2, rep.InvalidPhone)
	assert.Equal(t, 1, rep.MissingName)
	assert.Equal(t, 1, rep.MissingContact)
	assert.Equal(t, 1, rep.Incomplete)

	one := findIssues(t, rep, 1)
	assert.Equal(t, []Issue{InvalidEmail}, one.Issues)
	assert.Equal(t, []Issue{InvalidPhone}, findIssues(t, rep, 2).Issues)
	assert.Equal(t, []Issue{MissingName, MissingContact, InvalidEmail, InvalidPhone}, findIssues(t, rep, 3).Issues)
}

func TestAnalyze_ProjectsNeedOnlyName(t *testing.T) {
	records := []boond.Record{
		rec(1, map[string]any{"reference": "PRJ-1"}),
		rec(2, map[string]any{}),
	}

	rep := AnalyzeDataQuality(boond.Production, boond.Projects, records, nil)
	assert.Equal(t, 1, rep.Complete)
	assert.Equal(t, 0, rep.MissingContact)
	assert.Equal(t, []Issue{MissingName}, findIssues(t, rep, 2).Issues)
}

func TestAnalyze_DuplicateMembership(t *testing.T) {
	records := []boond.Record{
		rec(1, map[string]any{"firstName": "Ana", "lastName": "Lopez", "email1": "ana@acme.fr"}),
		rec(2, map[string]any{"firstName": "ana", "lastName": "LOPEZ", "email1": "ANA@acme.fr "}),
		rec(3, map[string]any{"firstName": "Marc", "email1": "marc@acme.fr"}),
	}

	rep := AnalyzeDataQuality(boond.Production, boond.Candidates, records, nil)
	assert.Equal(t, 2, rep.Duplicated)
	require.Len(t, rep.Groups, 1)
	assert.Equal(t, 3, rep.Complete)
	assert.Equal(t, []Issue{Duplicate}, findIssues(t, rep, 1).Issues)
	assert.Equal(t, []Issue{Duplicate}, findIssues(t, rep, 2).Issues)
}

func TestAnalyze_MalformedRecordStillCounted(t *testing.T) {
	records := []boond.Record{
		{ID: 1},
		rec(2, map[string]any{"firstName": 42, "email1": []any{"a"}}),
	}

	rep := AnalyzeDataQuality(boond.Production, boond.Candidates, records, nil)
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 2, rep.Incomplete)
	assert.Len(t, rep.Records, 2)
}

func TestCompletenessRate_Empty(t *testing.T) {
	assert.InDelta(t, 1.0, Report{}.CompletenessRate(), 1e-9)
}
