package stores

import (
	"context"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *RunStore {
	t.Helper()

	store, err := NewRunStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("NewRunStore failed: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id string) RunRecord {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return RunRecord{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Minute),
		Family:     "arch",
		Profile:    "desktop",
		Results: []PackageResult{
			{Name: "git", Source: "native", Outcome: "installed"},
			{Name: "htop", Source: "native", Outcome: "failed"},
			{Name: "pacseek", Source: "aux", Outcome: "skipped"},
		},
	}
}

func TestNewRunStoreRequiresPath(t *testing.T) {
	if _, err := NewRunStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRecordAndGetRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.RecordRun(ctx, sampleRun("run-1")); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	rec, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if rec.Family != "arch" || rec.Profile != "desktop" {
		t.Errorf("unexpected run metadata: %+v", rec)
	}
	if len(rec.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(rec.Results))
	}
	// Results come back in recorded order.
	if rec.Results[0].Name != "git" || rec.Results[2].Name != "pacseek" {
		t.Errorf("result order not preserved: %+v", rec.Results)
	}
	if rec.Results[1].Outcome != "failed" {
		t.Errorf("expected htop failed, got %q", rec.Results[1].Outcome)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.GetRun(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestListRunsMostRecentFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	older := sampleRun("run-old")
	newer := sampleRun("run-new")
	newer.StartedAt = newer.StartedAt.Add(time.Hour)
	newer.FinishedAt = newer.FinishedAt.Add(time.Hour)

	for _, rec := range []RunRecord{older, newer} {
		if err := store.RecordRun(ctx, rec); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-new" || runs[1].ID != "run-old" {
		t.Errorf("wrong ordering: %s, %s", runs[0].ID, runs[1].ID)
	}
	if len(runs[0].Results) != 0 {
		t.Error("ListRuns must not load package results")
	}
}

func TestRecordRunDuplicateIDFails(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.RecordRun(ctx, sampleRun("run-1")); err != nil {
		t.Fatalf("first RecordRun failed: %v", err)
	}
	if err := store.RecordRun(ctx, sampleRun("run-1")); err == nil {
		t.Fatal("expected duplicate run ID to fail")
	}
}
