package tracking

import (
	"context"
	"testing"
	"time"
)

func newRegistryTracker(recorder *fakeRecorder, clock *fakeClock) func() *Tracker {
	return func() *Tracker {
		return newTestTracker(NewMemStore(), recorder, clock)
	}
}

func TestRegistryGetOrCreateReusesTracker(t *testing.T) {
	registry := NewRegistry(time.Minute, quietLogger())
	recorder := newFakeRecorder()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	first := registry.GetOrCreate("sessao-1", newRegistryTracker(recorder, clock))
	second := registry.GetOrCreate("sessao-1", newRegistryTracker(recorder, clock))

	if first != second {
		t.Fatal("expected same tracker instance for same session")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", registry.Len())
	}

	other := registry.GetOrCreate("sessao-2", newRegistryTracker(recorder, clock))
	if other == first {
		t.Fatal("expected distinct tracker for distinct session")
	}
	if registry.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", registry.Len())
	}
}

func TestRegistryRemoveTearsDown(t *testing.T) {
	registry := NewRegistry(time.Minute, quietLogger())
	recorder := newFakeRecorder()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	tracker := registry.GetOrCreate("sessao-1", newRegistryTracker(recorder, clock))
	tracker.InitializeSiteVisit(context.Background())

	clock.Advance(12 * time.Second)
	registry.Remove("sessao-1")

	if registry.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", registry.Len())
	}

	sessionID := tracker.GetOrCreateSessionID()
	if got := recorder.siteDuration(sessionID); got != 12 {
		t.Fatalf("expected teardown to flush duration 12, got %d", got)
	}

	if _, ok := registry.Lookup("sessao-1"); ok {
		t.Fatal("expected session to be gone after remove")
	}
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	registry := NewRegistry(time.Minute, quietLogger())
	recorder := newFakeRecorder()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	registry.now = clock.Now

	registry.GetOrCreate("antiga", newRegistryTracker(recorder, clock))

	clock.Advance(2 * time.Minute)
	active := registry.GetOrCreate("ativa", newRegistryTracker(recorder, clock))

	registry.evictIdle()

	if registry.Len() != 1 {
		t.Fatalf("expected 1 surviving session, got %d", registry.Len())
	}
	if got, ok := registry.Lookup("ativa"); !ok || got != active {
		t.Fatal("expected active session to survive eviction")
	}
}
