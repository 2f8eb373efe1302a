package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffline/boond-sync/pkg/boond"
)

func rec(id boond.ID, attrs map[string]any) boond.Record {
	return boond.Record{ID: id, Attributes: attrs}
}

func TestChangedFields(t *testing.T) {
	prod := rec(1, map[string]any{"firstName": "Ana", "email1": "ANA@acme.fr", "title": "Lead", "town": nil, "notTracked": "x"})
	sandbox := rec(9, map[string]any{"firstName": "Ana ", "email1": "ana@acme.fr", "title": "Dev", "phone1": "0612"})

	diff := changedFields(boond.Candidates, prod, sandbox)
	assert.Equal(t, map[string]any{"title": "Lead"}, diff)
}

func TestChangedFields_ProjectNumbers(t *testing.T) {
	prod := rec(1, map[string]any{"reference": "P1", "state": float64(2)})
	sandbox := rec(2, map[string]any{"reference": "P1", "state": "2"})
	assert.Empty(t, changedFields(boond.Projects, prod, sandbox))
}

func TestCreateAttributes(t *testing.T) {
	prod := rec(1, map[string]any{"reference": "P1", "title": "Migration", "budget": 10})
	assert.Equal(t, map[string]any{"reference": "P1", "title": "Migration"}, createAttributes(boond.Projects, prod))
}

func TestMatcher_ReservedRecordsAreNotKeyMatched(t *testing.T) {
	svc := New(nil)
	require.NoError(t, svc.xrefs.PutXref(context.Background(), boond.Candidates, 9, 100))

	sandbox := &TypeSnapshot{Type: boond.Candidates, Records: []boond.Record{
		rec(100, map[string]any{"firstName": "Ana", "lastName": "Lopez"}),
		rec(101, map[string]any{"firstName": "Ana", "lastName": "Lopez"}),
	}}
	m := newMatcher(context.Background(), svc, boond.Candidates, sandbox)

	got, how, ok := m.byAttributes(rec(1, map[string]any{"firstName": "ANA", "lastName": "lopez"}), nil)
	require.True(t, ok)
	assert.Equal(t, matchKey, how)
	assert.Equal(t, boond.ID(101), got.ID)
	m.claim(got, 1)

	_, _, ok = m.byAttributes(rec(2, map[string]any{"firstName": "Ana", "lastName": "Lopez"}), nil)
	assert.False(t, ok, "both sandbox copies are taken")

	got, _, ok = m.byAttributes(rec(9, map[string]any{"firstName": "Ana", "lastName": "Lopez"}), nil)
	require.True(t, ok)
	assert.Equal(t, boond.ID(100), got.ID)
}

func TestMatcher_EmptyKeyNeverMatches(t *testing.T) {
	svc := New(nil)
	sandbox := &TypeSnapshot{Type: boond.Candidates, Records: []boond.Record{rec(100, map[string]any{"town": "Paris"})}}
	m := newMatcher(context.Background(), svc, boond.Candidates, sandbox)

	_, _, ok := m.byAttributes(rec(1, map[string]any{"town": "Paris"}), nil)
	assert.False(t, ok)
}

func TestKeyedLocker_Serializes(t *testing.T) {
	l := newKeyedLocker()
	var mu sync.Mutex
	active, maxActive := 0, 0

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("sandbox/candidates/1")
			mu.Lock()
			active++
			maxActive = max(maxActive, active)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Zero(t, l.size())
}

func TestKeyedLocker_DistinctKeysIndependent(t *testing.T) {
	l := newKeyedLocker()
	unlockA := l.Lock("a")
	done := make(chan struct{})
	go func() {
		l.Lock("b")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
}
