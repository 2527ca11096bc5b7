package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/arghonaut/snapshot"
	"github.com/chazu/arghonaut/vm"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "argh.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	in := vm.New([]string{"j", "lgj", "  j", "qPh"})
	in.Run(0)
	snap := snapshot.Capture(in)

	hash, err := s.SaveSnapshot(ctx, "echo", snap)
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	want, _ := snapshot.Hash(snap)
	if hash != want {
		t.Errorf("hash = %s, want %s", hash, want)
	}

	loaded, err := s.LoadSnapshot(ctx, "echo")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	restored, err := loaded.Restore()
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !restored.NeedsInput() {
		t.Error("restored interpreter should be waiting for input")
	}
	restored.InputChar('k')
	restored.Run(0)
	if restored.Stdout() != "k" {
		t.Errorf("Stdout() = %q, want %q", restored.Stdout(), "k")
	}
}

func TestSnapshotReplace(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	first := snapshot.Capture(vm.New([]string{"q"}))
	second := snapshot.Capture(vm.New([]string{"lq"}))
	if _, err := s.SaveSnapshot(ctx, "p", first); err != nil {
		t.Fatal(err)
	}
	h2, err := s.SaveSnapshot(ctx, "p", second)
	if err != nil {
		t.Fatal(err)
	}

	list, err := s.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(list) != 1 || list[0].Name != "p" || list[0].Hash != h2 {
		t.Errorf("ListSnapshots() = %+v, want single replaced entry", list)
	}
}

func TestLoadSnapshotNotFound(t *testing.T) {
	s := openTemp(t)
	_, err := s.LoadSnapshot(context.Background(), "missing")
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("LoadSnapshot(missing) = %v, want ErrSnapshotNotFound", err)
	}
	if err := s.DeleteSnapshot(context.Background(), "missing"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("DeleteSnapshot(missing) = %v, want ErrSnapshotNotFound", err)
	}
}

func TestSaveSnapshotEmptyName(t *testing.T) {
	s := openTemp(t)
	if _, err := s.SaveSnapshot(context.Background(), "", snapshot.Capture(vm.New(nil))); err == nil {
		t.Error("SaveSnapshot with empty name succeeded")
	}
}

func TestDeleteSnapshot(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if _, err := s.SaveSnapshot(ctx, "gone", snapshot.Capture(vm.New([]string{"q"}))); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteSnapshot(ctx, "gone"); err != nil {
		t.Fatalf("DeleteSnapshot: %v", err)
	}
	if _, err := s.LoadSnapshot(ctx, "gone"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("LoadSnapshot after delete = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

func TestRecordRuns(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	for i, status := range []string{"done", "errored", "done"} {
		_, err := s.RecordRun(ctx, Run{
			ProgramHash: snapshot.ProgramHash([]string{"q"}),
			Status:      status,
			Steps:       i,
			Created:     base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	runs, err := s.Runs(ctx, 2)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(Runs(2)) = %d, want 2", len(runs))
	}
	if runs[0].Steps != 2 || runs[1].Status != "errored" {
		t.Errorf("Runs(2) = %+v, want newest first", runs)
	}
	if runs[0].ID == "" {
		t.Error("RecordRun did not assign an ID")
	}

	all, err := s.Runs(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("len(Runs(0)) = %d, want 3", len(all))
	}
}

func TestInMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	defer s.Close()
	if _, err := s.RecordRun(context.Background(), Run{Status: "done"}); err != nil {
		t.Errorf("RecordRun: %v", err)
	}
}
